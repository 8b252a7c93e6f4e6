// Package view 显式地把 model 映射成对外 JSON：哪些字段暴露、哪些计算、哪些隐藏都在这里写明。
// 密码哈希永远不会出现在任何视图里。
package view

import (
	"time"

	"Pitch_Board/internal/model"
)

type User struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func NewUser(u *model.User) User {
	if u == nil {
		return User{}
	}
	return User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

type Comment struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	Commenter User      `json:"commenter"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewComment(c *model.Comment) Comment {
	return Comment{
		ID:        c.ID,
		Content:   c.Content,
		Commenter: NewUser(c.Commenter),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func NewComments(list []model.Comment) []Comment {
	out := make([]Comment, 0, len(list))
	for i := range list {
		out = append(out, NewComment(&list[i]))
	}
	return out
}

// Idea is_liked 相对当前请求者；匿名请求恒为 false
type Idea struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Pitcher     User      `json:"pitcher"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	LikesCount  int64     `json:"likes_count"`
	IsLiked     bool      `json:"is_liked"`
}

// IdeaDetail 详情页带评论（新到旧）
type IdeaDetail struct {
	Idea
	Comments []Comment `json:"comments"`
}

func NewIdea(idea *model.Idea, liked bool) Idea {
	return Idea{
		ID:          idea.ID,
		Title:       idea.Title,
		Description: idea.Description,
		Pitcher:     NewUser(idea.Pitcher),
		CreatedAt:   idea.CreatedAt,
		UpdatedAt:   idea.UpdatedAt,
		LikesCount:  idea.LikesCount,
		IsLiked:     liked,
	}
}

func NewIdeaDetail(idea *model.Idea, comments []model.Comment, liked bool) IdeaDetail {
	return IdeaDetail{
		Idea:     NewIdea(idea, liked),
		Comments: NewComments(comments),
	}
}

func NewIdeas(ideas []model.Idea, liked map[uint64]bool) []Idea {
	out := make([]Idea, 0, len(ideas))
	for i := range ideas {
		out = append(out, NewIdea(&ideas[i], liked[ideas[i].ID]))
	}
	return out
}

type Like struct {
	Status     string `json:"status"`
	LikesCount int64  `json:"likes_count"`
}
