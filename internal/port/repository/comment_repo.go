package repository

import (
	"context"

	"github.com/sd-owens/YelpCamp/internal/entity"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *entity.Comment) (string, error)
	GetByID(ctx context.Context, id string) (*entity.Comment, error)
	GetByCampgroundID(ctx context.Context, campgroundID string, page, pageSize int) ([]*entity.Comment, int, error)
	Update(ctx context.Context, comment *entity.Comment) error
	Delete(ctx context.Context, id string) error
}
