package model

import "time"

type Comment struct {
	ID          uint64    `gorm:"primaryKey"`
	IdeaID      uint64    `gorm:"not null;index:idx_comments_idea_time,priority:1"`
	Idea        *Idea     `gorm:"foreignKey:IdeaID;constraint:OnDelete:CASCADE"`
	CommenterID uint64    `gorm:"not null;index"`
	Commenter   *User     `gorm:"foreignKey:CommenterID;constraint:OnDelete:CASCADE"`
	Content     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"index:idx_comments_idea_time,priority:2,sort:desc"`
	UpdatedAt   time.Time
}

// NewestFirst 评论默认排序
const NewestFirst = "created_at DESC, id DESC"
