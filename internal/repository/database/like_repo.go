package database

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Pitch_Board/internal/model"
)

type LikeRepository struct {
	DB *gorm.DB
}

// Toggle 在一个事务里完成：锁创意行 -> 有赞则删、无赞则插 -> 重新 COUNT 并回写 likes_count。
// 并发的重复插入由唯一索引 uk_like_user_idea 折叠成 no-op，结果仍是 liked。
// 创意不存在时返回 gorm.ErrRecordNotFound。
func (r *LikeRepository) Toggle(ctx context.Context, userID, ideaID uint64) (liked bool, count int64, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var idea model.Idea
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&idea, ideaID).Error; err != nil {
			return err
		}

		res := tx.Where("user_id = ? AND idea_id = ?", userID, ideaID).Delete(&model.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
		} else {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "idea_id"}},
				DoNothing: true,
			}).Create(&model.Like{UserID: userID, IdeaID: ideaID}).Error
			if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			liked = true
		}

		n, err := recount(tx, ideaID)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	return liked, count, err
}

// recount 以 likes 表为准重算计数
func recount(tx *gorm.DB, ideaID uint64) (int64, error) {
	var n int64
	if err := tx.Model(&model.Like{}).Where("idea_id = ?", ideaID).Count(&n).Error; err != nil {
		return 0, err
	}
	err := tx.Model(&model.Idea{}).Where("id = ?", ideaID).
		Updates(map[string]any{"likes_count": n, "updated_at": time.Now()}).Error
	return n, err
}

func (r *LikeRepository) IsLiked(ctx context.Context, userID, ideaID uint64) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND idea_id = ?", userID, ideaID).
		Count(&n).Error
	return n > 0, err
}

// LikedIdeaIDs 一次查出用户在给定创意里点过赞的集合，列表页避免 N+1
func (r *LikeRepository) LikedIdeaIDs(ctx context.Context, userID uint64, ideaIDs []uint64) (map[uint64]bool, error) {
	liked := make(map[uint64]bool, len(ideaIDs))
	if userID == 0 || len(ideaIDs) == 0 {
		return liked, nil
	}
	var ids []uint64
	if err := r.DB.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND idea_id IN ?", userID, ideaIDs).
		Pluck("idea_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
