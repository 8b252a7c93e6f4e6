package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"Pitch_Board/internal/metrics"
	"Pitch_Board/internal/model"
	"Pitch_Board/internal/repository/database"
)

const (
	LikeStatusLiked   = "liked"
	LikeStatusUnliked = "unliked"

	DefaultTopLimit = 5
	MaxTopLimit     = 50
	MaxPageSize     = 100
)

type IdeaService struct {
	ideas    *database.IdeaRepository
	comments *database.CommentRepository
	likes    *database.LikeRepository
	metrics  *metrics.Metrics
	log      *logrus.Logger
}

func NewIdeaService(ideas *database.IdeaRepository, comments *database.CommentRepository, likes *database.LikeRepository, m *metrics.Metrics, log *logrus.Logger) *IdeaService {
	return &IdeaService{
		ideas:    ideas,
		comments: comments,
		likes:    likes,
		metrics:  m,
		log:      log,
	}
}

// RankedIdea 列表项；Liked 相对 viewer，匿名恒为 false
type RankedIdea struct {
	Idea  model.Idea
	Liked bool
}

// IdeaDetail 单个创意 + 评论
type IdeaDetail struct {
	Idea     *model.Idea
	Comments []model.Comment
	Liked    bool
}

type LikeResult struct {
	Status     string
	LikesCount int64
}

// IdeaPatch nil 字段不修改
type IdeaPatch struct {
	Title       *string
	Description *string
}

func (s *IdeaService) CreateIdea(ctx context.Context, pitcherID uint64, title, description string) (*model.Idea, error) {
	if pitcherID == 0 {
		return nil, ErrUnauthenticated
	}
	if err := validateIdea(title, description); err != nil {
		return nil, err
	}

	idea := &model.Idea{
		Title:       title,
		Description: description,
		PitcherID:   pitcherID,
		LikesCount:  0,
	}
	if err := s.ideas.Create(ctx, idea); err != nil {
		return nil, err
	}
	// 回读一次带上 pitcher
	created, err := s.ideas.FindByID(ctx, idea.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.IdeaCreated()
	s.log.WithFields(logrus.Fields{"idea_id": created.ID, "pitcher_id": pitcherID}).Info("idea created")
	return created, nil
}

// ListIdeas 默认排序；limit<=0 返回全部
func (s *IdeaService) ListIdeas(ctx context.Context, viewerID uint64, offset, limit int) ([]RankedIdea, error) {
	if offset < 0 {
		offset = 0
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	list, err := s.ideas.ListRanked(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(list))
	for i := range list {
		ids = append(ids, list[i].ID)
	}
	liked, err := s.likes.LikedIdeaIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]RankedIdea, 0, len(list))
	for i := range list {
		out = append(out, RankedIdea{Idea: list[i], Liked: liked[list[i].ID]})
	}
	return out, nil
}

// TopIdeas 默认排序的前 limit 个，和 ListIdeas 是同一个查询
func (s *IdeaService) TopIdeas(ctx context.Context, viewerID uint64, limit int) ([]RankedIdea, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	return s.ListIdeas(ctx, viewerID, 0, limit)
}

func (s *IdeaService) GetIdea(ctx context.Context, viewerID, ideaID uint64) (*IdeaDetail, error) {
	idea, err := s.ideas.FindByID(ctx, ideaID)
	if err != nil {
		return nil, notFound(err, "idea", ideaID)
	}
	comments, err := s.comments.ListByIdea(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	liked := false
	if viewerID != 0 {
		if liked, err = s.likes.IsLiked(ctx, viewerID, ideaID); err != nil {
			return nil, err
		}
	}
	return &IdeaDetail{Idea: idea, Comments: comments, Liked: liked}, nil
}

// ownedIdea 只有 pitcher 能改/删
func (s *IdeaService) ownedIdea(ctx context.Context, actorID, ideaID uint64) (*model.Idea, error) {
	if actorID == 0 {
		return nil, ErrUnauthenticated
	}
	idea, err := s.ideas.FindByID(ctx, ideaID)
	if err != nil {
		return nil, notFound(err, "idea", ideaID)
	}
	if idea.PitcherID != actorID {
		return nil, ErrForbidden
	}
	return idea, nil
}

func (s *IdeaService) UpdateIdea(ctx context.Context, actorID, ideaID uint64, patch IdeaPatch) (*model.Idea, error) {
	idea, err := s.ownedIdea(ctx, actorID, ideaID)
	if err != nil {
		return nil, err
	}

	title, description := idea.Title, idea.Description
	if patch.Title != nil {
		title = *patch.Title
	}
	if patch.Description != nil {
		description = *patch.Description
	}
	if err = validateIdea(title, description); err != nil {
		return nil, err
	}

	if err = s.ideas.Update(ctx, ideaID, map[string]any{
		"title":       title,
		"description": description,
	}); err != nil {
		return nil, notFound(err, "idea", ideaID)
	}
	updated, err := s.ideas.FindByID(ctx, ideaID)
	if err != nil {
		return nil, notFound(err, "idea", ideaID)
	}
	s.log.WithFields(logrus.Fields{"idea_id": ideaID, "pitcher_id": actorID}).Info("idea updated")
	return updated, nil
}

// DeleteIdea 连同评论、点赞一起删除
func (s *IdeaService) DeleteIdea(ctx context.Context, actorID, ideaID uint64) error {
	if _, err := s.ownedIdea(ctx, actorID, ideaID); err != nil {
		return err
	}
	if err := s.ideas.Delete(ctx, ideaID); err != nil {
		return notFound(err, "idea", ideaID)
	}
	s.metrics.IdeaDeleted()
	s.log.WithFields(logrus.Fields{"idea_id": ideaID, "pitcher_id": actorID}).Info("idea deleted")
	return nil
}

// ToggleLike 点赞/取消点赞，计数在同一事务内重算
func (s *IdeaService) ToggleLike(ctx context.Context, viewerID, ideaID uint64) (*LikeResult, error) {
	if viewerID == 0 {
		return nil, ErrUnauthenticated
	}
	liked, count, err := s.likes.Toggle(ctx, viewerID, ideaID)
	if err != nil {
		return nil, notFound(err, "idea", ideaID)
	}

	status := LikeStatusUnliked
	if liked {
		status = LikeStatusLiked
	}
	s.metrics.LikeToggled(status)
	s.log.WithFields(logrus.Fields{
		"idea_id":     ideaID,
		"user_id":     viewerID,
		"status":      status,
		"likes_count": count,
	}).Debug("like toggled")
	return &LikeResult{Status: status, LikesCount: count}, nil
}
