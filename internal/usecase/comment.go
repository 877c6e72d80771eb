package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"github.com/sd-owens/YelpCamp/internal/platform/metrics"
	"github.com/sd-owens/YelpCamp/internal/port/repository"
	"go.uber.org/zap"
)

const defaultCommentPageSize = 10

type CommentUsecase struct {
	commentRepo    repository.CommentRepository
	campgroundRepo repository.CampgroundRepository
	publisher      EventPublisher
	metrics        *metrics.MetricsManager
	logger         *logger.Logger
}

func NewCommentUsecase(
	commentRepo repository.CommentRepository,
	campgroundRepo repository.CampgroundRepository,
	publisher EventPublisher,
	mm *metrics.MetricsManager,
	log *logger.Logger,
) *CommentUsecase {
	return &CommentUsecase{
		commentRepo:    commentRepo,
		campgroundRepo: campgroundRepo,
		publisher:      publisher,
		metrics:        mm,
		logger:         log.Named("CommentUsecase"),
	}
}

type CreateCommentInput struct {
	CampgroundID string
	Text         string
}

// CreateComment appends a comment to an existing campground, snapshotting
// the principal as the immutable author.
func (uc *CommentUsecase) CreateComment(ctx context.Context, principal *entity.Principal, input CreateCommentInput) (*entity.Comment, error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	if _, err := uc.campgroundRepo.GetByID(ctx, input.CampgroundID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to check campground existence: %w", err)
	}

	now := time.Now()
	comment := &entity.Comment{
		CampgroundID: input.CampgroundID,
		Text:         input.Text,
		Author: entity.Author{
			ID:       principal.ID,
			Username: principal.Username,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := uc.commentRepo.Create(ctx, comment)
	if err != nil {
		uc.logger.Error("Failed to create comment", zap.Error(err), zap.String("campground_id", input.CampgroundID))
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment.ID = id

	if uc.metrics != nil {
		uc.metrics.CommentsCreatedTotal.Inc()
	}
	if uc.publisher != nil {
		eventData := map[string]interface{}{
			"comment_id":    comment.ID,
			"campground_id": comment.CampgroundID,
			"author_id":     comment.Author.ID,
			"created_at":    comment.CreatedAt.Format(time.RFC3339Nano),
		}
		if err := uc.publisher.Publish(ctx, "comment.created", eventData); err != nil {
			uc.logger.Warn("Failed to publish comment.created event", zap.Error(err), zap.String("comment_id", comment.ID))
		}
	}

	uc.logger.Info("Comment created", zap.String("comment_id", comment.ID), zap.String("campground_id", input.CampgroundID))
	return comment, nil
}

func (uc *CommentUsecase) GetComment(ctx context.Context, id string) (*entity.Comment, error) {
	comment, err := uc.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

// ListByCampground returns the campground's comments in creation order.
func (uc *CommentUsecase) ListByCampground(ctx context.Context, campgroundID string, page, pageSize int) ([]*entity.Comment, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultCommentPageSize
	}
	comments, total, err := uc.commentRepo.GetByCampgroundID(ctx, campgroundID, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, total, nil
}

// UpdateComment replaces the comment text after the ownership check. The
// author snapshot stays as it was at creation.
func (uc *CommentUsecase) UpdateComment(ctx context.Context, principal *entity.Principal, id, text string) (*entity.Comment, error) {
	comment, err := uc.getForMutation(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	if comment.Text == text {
		return comment, nil
	}

	comment.Text = text
	comment.UpdatedAt = time.Now()
	if err := uc.commentRepo.Update(ctx, comment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	uc.logger.Info("Comment updated", zap.String("comment_id", id))
	return comment, nil
}

func (uc *CommentUsecase) DeleteComment(ctx context.Context, principal *entity.Principal, id string) error {
	if _, err := uc.getForMutation(ctx, principal, id); err != nil {
		return err
	}

	if err := uc.commentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	uc.logger.Info("Comment deleted", zap.String("comment_id", id))
	return nil
}

func (uc *CommentUsecase) getForMutation(ctx context.Context, principal *entity.Principal, id string) (*entity.Comment, error) {
	comment, err := uc.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if err := Authorize(principal, comment.Author.ID); err != nil {
		uc.logger.Warn("Comment mutation denied",
			zap.String("comment_id", id),
			zap.String("author_id", comment.Author.ID),
			zap.Error(err))
		return nil, err
	}
	return comment, nil
}
