package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Pitch_Board/internal/model"
)

type IdeaRepository struct {
	DB *gorm.DB
}

func (r *IdeaRepository) Create(ctx context.Context, idea *model.Idea) error {
	return r.DB.WithContext(ctx).Create(idea).Error
}

// FindByID 带出 pitcher
func (r *IdeaRepository) FindByID(ctx context.Context, id uint64) (*model.Idea, error) {
	var idea model.Idea
	err := r.DB.WithContext(ctx).Preload("Pitcher").First(&idea, id).Error
	return &idea, err
}

func (r *IdeaRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&model.Idea{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// ListRanked 按默认排序返回；limit<=0 表示不分页
func (r *IdeaRepository) ListRanked(ctx context.Context, offset, limit int) ([]model.Idea, error) {
	var list []model.Idea
	q := r.DB.WithContext(ctx).Preload("Pitcher").Order(model.RankOrder)
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

// Update 锁住创意行后只更新给定列，updated_at 一并刷新；创意不存在返回 gorm.ErrRecordNotFound
func (r *IdeaRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var idea model.Idea
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&idea, id).Error; err != nil {
			return err
		}
		fields["updated_at"] = time.Now()
		return tx.Model(&model.Idea{}).Where("id = ?", id).Updates(fields).Error
	})
}

// Delete 同一事务内删除点赞、评论和创意本身；不依赖数据库是否开启了外键级联
func (r *IdeaRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var idea model.Idea
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&idea, id).Error; err != nil {
			return err
		}
		if err := tx.Where("idea_id = ?", id).Delete(&model.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("idea_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Idea{}, id).Error
	})
}
