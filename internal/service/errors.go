package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionRevoked     = errors.New("session expired or logged in elsewhere")
	ErrForbidden          = errors.New("permission denied")
)

// AuthError 认证失败；errors.Is 同时匹配 ErrUnauthenticated 和具体原因
type AuthError struct {
	Reason error
}

func (e *AuthError) Error() string {
	return e.Reason.Error()
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrUnauthenticated, e.Reason}
}

func unauthenticated(reason error) error {
	return &AuthError{Reason: reason}
}

// ValidationError 字段级错误，key 为 JSON 字段名；"non_field_errors" 放整体性错误
type ValidationError struct {
	Fields map[string][]string
}

const NonFieldErrors = "non_field_errors"

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err 没有字段错误时返回 nil
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// notFound 把 gorm 的 ErrRecordNotFound 翻译成 ErrNotFound，其余原样返回
func notFound(err error, what string, id uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return missing(what, id)
	}
	return err
}

func missing(what string, id uint64) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}
