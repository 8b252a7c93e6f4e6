package database

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Pitch_Board/internal/model"
)

type CommentRepository struct {
	DB *gorm.DB
}

// CreateForIdea 锁住父创意再写评论，避免和删除创意并发时留下孤儿评论
func (r *CommentRepository) CreateForIdea(ctx context.Context, c *model.Comment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var idea model.Idea
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).Select("id").First(&idea, c.IdeaID).Error; err != nil {
			return err
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Preload("Commenter").First(c, c.ID).Error
	})
}

func (r *CommentRepository) ListByIdea(ctx context.Context, ideaID uint64) ([]model.Comment, error) {
	var list []model.Comment
	err := r.DB.WithContext(ctx).
		Preload("Commenter").
		Where("idea_id = ?", ideaID).
		Order(model.NewestFirst).
		Find(&list).Error
	return list, err
}

// FindInIdea 评论必须属于该创意，否则视为不存在
func (r *CommentRepository) FindInIdea(ctx context.Context, ideaID, commentID uint64) (*model.Comment, error) {
	var c model.Comment
	err := r.DB.WithContext(ctx).
		Preload("Commenter").
		Where("id = ? AND idea_id = ?", commentID, ideaID).
		First(&c).Error
	return &c, err
}

func (r *CommentRepository) UpdateContent(ctx context.Context, id uint64, content string) error {
	return r.DB.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "updated_at": time.Now()}).Error
}

func (r *CommentRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Delete(&model.Comment{}, id).Error
}
