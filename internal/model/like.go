package model

import "time"

// Like 唯一(user_id, idea_id)，重复点赞由唯一索引兜底
type Like struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    uint64 `gorm:"not null;uniqueIndex:uk_like_user_idea,priority:1"`
	User      *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	IdeaID    uint64 `gorm:"not null;index;uniqueIndex:uk_like_user_idea,priority:2"`
	Idea      *Idea  `gorm:"foreignKey:IdeaID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

func (Like) TableName() string {
	return "likes"
}
