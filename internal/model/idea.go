package model

import "time"

// Idea 创意（pitch）。LikesCount 是 likes 表的反范式计数，只能在点赞事务里重算
type Idea struct {
	ID          uint64    `gorm:"primaryKey;index:idx_ideas_rank,priority:3,sort:desc"`
	Title       string    `gorm:"size:200;not null"`
	Description string    `gorm:"type:text;not null"`
	PitcherID   uint64    `gorm:"not null;index"`
	Pitcher     *User     `gorm:"foreignKey:PitcherID;constraint:OnDelete:CASCADE"`
	LikesCount  int64     `gorm:"not null;default:0;index:idx_ideas_rank,priority:1,sort:desc"`
	CreatedAt   time.Time `gorm:"index:idx_ideas_rank,priority:2,sort:desc"`
	UpdatedAt   time.Time
}

// RankOrder 默认排序：点赞数降序，同票按时间新到旧，最后用 id 打破并列
const RankOrder = "likes_count DESC, created_at DESC, id DESC"
