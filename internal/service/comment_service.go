package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"Pitch_Board/internal/model"
)

func (s *IdeaService) AddComment(ctx context.Context, commenterID, ideaID uint64, content string) (*model.Comment, error) {
	if commenterID == 0 {
		return nil, ErrUnauthenticated
	}
	// 先判断创意是否存在，保证 404 优先于校验错误
	ok, err := s.ideas.Exists(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missing("idea", ideaID)
	}
	if err = validateComment(content); err != nil {
		return nil, err
	}

	c := &model.Comment{
		IdeaID:      ideaID,
		CommenterID: commenterID,
		Content:     content,
	}
	if err = s.comments.CreateForIdea(ctx, c); err != nil {
		return nil, notFound(err, "idea", ideaID)
	}
	s.metrics.CommentAdded()
	s.log.WithFields(logrus.Fields{"idea_id": ideaID, "comment_id": c.ID, "commenter_id": commenterID}).Info("comment added")
	return c, nil
}

// ListComments 新到旧
func (s *IdeaService) ListComments(ctx context.Context, ideaID uint64) ([]model.Comment, error) {
	ok, err := s.ideas.Exists(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missing("idea", ideaID)
	}
	return s.comments.ListByIdea(ctx, ideaID)
}

func (s *IdeaService) GetComment(ctx context.Context, ideaID, commentID uint64) (*model.Comment, error) {
	c, err := s.comments.FindInIdea(ctx, ideaID, commentID)
	if err != nil {
		return nil, notFound(err, "comment", commentID)
	}
	return c, nil
}

// ownedComment 只有评论者本人能改/删
func (s *IdeaService) ownedComment(ctx context.Context, actorID, ideaID, commentID uint64) (*model.Comment, error) {
	if actorID == 0 {
		return nil, ErrUnauthenticated
	}
	c, err := s.GetComment(ctx, ideaID, commentID)
	if err != nil {
		return nil, err
	}
	if c.CommenterID != actorID {
		return nil, ErrForbidden
	}
	return c, nil
}

func (s *IdeaService) UpdateComment(ctx context.Context, actorID, ideaID, commentID uint64, content string) (*model.Comment, error) {
	if _, err := s.ownedComment(ctx, actorID, ideaID, commentID); err != nil {
		return nil, err
	}
	if err := validateComment(content); err != nil {
		return nil, err
	}
	if err := s.comments.UpdateContent(ctx, commentID, content); err != nil {
		return nil, err
	}
	return s.GetComment(ctx, ideaID, commentID)
}

func (s *IdeaService) DeleteComment(ctx context.Context, actorID, ideaID, commentID uint64) error {
	if _, err := s.ownedComment(ctx, actorID, ideaID, commentID); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"idea_id": ideaID, "comment_id": commentID, "commenter_id": actorID}).Info("comment deleted")
	return nil
}
