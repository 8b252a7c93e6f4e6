package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	TitleMinLen       = 10
	TitleMaxLen       = 200
	DescriptionMinLen = 50
	CommentMinLen     = 5
	UsernameMaxLen    = 150
)

// 长度按 Unicode 字符计
func checkLen(v *ValidationError, field, value string, minLen, maxLen int) {
	n := utf8.RuneCountInString(value)
	switch {
	case strings.TrimSpace(value) == "":
		v.Add(field, "This field may not be blank.")
	case n < minLen:
		v.Add(field, fmt.Sprintf("Ensure this field has at least %d characters.", minLen))
	case maxLen > 0 && n > maxLen:
		v.Add(field, fmt.Sprintf("Ensure this field has no more than %d characters.", maxLen))
	}
}

func validateIdea(title, description string) error {
	v := &ValidationError{}
	checkLen(v, "title", title, TitleMinLen, TitleMaxLen)
	checkLen(v, "description", description, DescriptionMinLen, 0)
	return v.Err()
}

func validateComment(content string) error {
	v := &ValidationError{}
	checkLen(v, "content", content, CommentMinLen, 0)
	return v.Err()
}
