package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sd-owens/YelpCamp/internal/adapter/email"
	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"github.com/sd-owens/YelpCamp/internal/platform/metrics"
	"github.com/sd-owens/YelpCamp/internal/port/cache"
	"github.com/sd-owens/YelpCamp/internal/port/repository"
	"go.uber.org/zap"
)

// campgroundPageSize is the fixed window of the paginated index view.
const campgroundPageSize = 8

const campgroundCacheTTL = 5 * time.Minute

func campgroundCacheKey(id string) string {
	return fmt.Sprintf("campground:%s", id)
}

type CampgroundUsecase struct {
	repo      repository.CampgroundRepository
	userRepo  repository.UserRepository
	resolver  AddressResolver
	storage   Storage
	sender    email.Sender
	publisher EventPublisher
	cacheRepo cache.CacheRepository
	metrics   *metrics.MetricsManager
	logger    *logger.Logger
}

func NewCampgroundUsecase(
	repo repository.CampgroundRepository,
	userRepo repository.UserRepository,
	resolver AddressResolver,
	storage Storage,
	sender email.Sender,
	publisher EventPublisher,
	cacheRepo cache.CacheRepository,
	mm *metrics.MetricsManager,
	log *logger.Logger,
) *CampgroundUsecase {
	return &CampgroundUsecase{
		repo:      repo,
		userRepo:  userRepo,
		resolver:  resolver,
		storage:   storage,
		sender:    sender,
		publisher: publisher,
		cacheRepo: cacheRepo,
		metrics:   mm,
		logger:    log.Named("CampgroundUsecase"),
	}
}

type CreateCampgroundInput struct {
	Name        string
	Price       float64
	Description string
	Image       string
	Location    string
}

// CreateCampground resolves the submitted address, snapshots the creating
// principal as the immutable author and persists the campground. The
// courtesy mail to the author and the published event are best-effort.
func (uc *CampgroundUsecase) CreateCampground(ctx context.Context, principal *entity.Principal, input CreateCampgroundInput) (*entity.Campground, error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	loc, err := uc.resolver.Resolve(ctx, input.Location)
	if err != nil {
		uc.logger.Warn("Address resolution failed", zap.Error(err), zap.String("location", input.Location))
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	now := time.Now()
	campground := &entity.Campground{
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		Image:       input.Image,
		Author: entity.Author{
			ID:       principal.ID,
			Username: principal.Username,
		},
		Location:  loc.FormattedAddress,
		Lat:       loc.Lat,
		Lng:       loc.Lng,
		Likes:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := uc.repo.Create(ctx, campground)
	if err != nil {
		uc.logger.Error("Failed to create campground", zap.Error(err), zap.String("name", input.Name))
		return nil, fmt.Errorf("failed to create campground: %w", err)
	}
	campground.ID = id

	if uc.metrics != nil {
		uc.metrics.CampgroundsCreatedTotal.Inc()
	}

	uc.cacheSet(ctx, campground)
	uc.publish(ctx, "campground.created", map[string]interface{}{
		"campground_id": campground.ID,
		"author_id":     campground.Author.ID,
		"name":          campground.Name,
		"created_at":    campground.CreatedAt.Format(time.RFC3339Nano),
	})
	uc.sendCreatedEmail(ctx, campground)

	uc.logger.Info("Campground created", zap.String("campground_id", campground.ID), zap.String("author_id", principal.ID))
	return campground, nil
}

// GetCampground reads through the cache.
func (uc *CampgroundUsecase) GetCampground(ctx context.Context, id string) (*entity.Campground, error) {
	if uc.cacheRepo != nil {
		key := campgroundCacheKey(id)
		cachedBytes, err := uc.cacheRepo.Get(ctx, key)
		if err == nil {
			var cached entity.Campground
			if unmarshalErr := json.Unmarshal(cachedBytes, &cached); unmarshalErr == nil {
				uc.logger.Debug("Campground fetched from cache", zap.String("key", key))
				return &cached, nil
			}
			if delErr := uc.cacheRepo.Delete(ctx, key); delErr != nil {
				uc.logger.Warn("Failed to delete corrupted cache entry", zap.String("key", key), zap.Error(delErr))
			}
		} else if !errors.Is(err, cache.ErrNotFound) {
			uc.logger.Warn("Failed to read campground from cache", zap.Error(err), zap.String("key", key))
		}
	}

	campground, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campground: %w", err)
	}

	uc.cacheSet(ctx, campground)
	return campground, nil
}

type ListCampgroundsOutput struct {
	Campgrounds []*entity.Campground
	CurrentPage int
	TotalPages  int
	// NoMatch is set when a search term was given and the page came back
	// empty, so the caller can distinguish "nothing matched that query"
	// from a generically empty collection.
	NoMatch bool
}

// ListCampgrounds returns one fixed-size page of campgrounds, optionally
// filtered by a case-insensitive literal substring match on the name. The
// search term is escaped before it reaches the store, so user input can
// never act as a pattern.
func (uc *CampgroundUsecase) ListCampgrounds(ctx context.Context, search string, page int) (*ListCampgroundsOutput, error) {
	if page < 1 {
		page = 1
	}

	pattern := ""
	if search != "" {
		pattern = escapeRegex(search)
	}

	campgrounds, total, err := uc.repo.List(ctx, pattern, page, campgroundPageSize)
	if err != nil {
		uc.logger.Error("Failed to list campgrounds", zap.Error(err), zap.String("search", search), zap.Int("page", page))
		return nil, fmt.Errorf("failed to list campgrounds: %w", err)
	}

	totalPages := int((total + campgroundPageSize - 1) / campgroundPageSize)

	return &ListCampgroundsOutput{
		Campgrounds: campgrounds,
		CurrentPage: page,
		TotalPages:  totalPages,
		NoMatch:     search != "" && len(campgrounds) == 0,
	}, nil
}

type UpdateCampgroundInput struct {
	Name        *string
	Price       *float64
	Description *string
	Image       *string
	Location    *string
}

// UpdateCampground applies the submitted changes after the ownership check.
// A changed location is re-resolved; the author snapshot is never touched.
func (uc *CampgroundUsecase) UpdateCampground(ctx context.Context, principal *entity.Principal, id string, input UpdateCampgroundInput) (*entity.Campground, error) {
	campground, err := uc.getForMutation(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	updated := false
	if input.Name != nil && campground.Name != *input.Name {
		campground.Name = *input.Name
		updated = true
	}
	if input.Price != nil && campground.Price != *input.Price {
		campground.Price = *input.Price
		updated = true
	}
	if input.Description != nil && campground.Description != *input.Description {
		campground.Description = *input.Description
		updated = true
	}
	if input.Image != nil && campground.Image != *input.Image {
		campground.Image = *input.Image
		updated = true
	}
	if input.Location != nil && *input.Location != campground.Location {
		loc, err := uc.resolver.Resolve(ctx, *input.Location)
		if err != nil {
			uc.logger.Warn("Address resolution failed", zap.Error(err), zap.String("location", *input.Location))
			return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		campground.Location = loc.FormattedAddress
		campground.Lat = loc.Lat
		campground.Lng = loc.Lng
		updated = true
	}

	if !updated {
		uc.logger.Info("No changes detected for campground update", zap.String("campground_id", id))
		return campground, nil
	}

	campground.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, campground); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update campground: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.CampgroundUpdatesTotal.Inc()
	}
	uc.cacheDelete(ctx, id)
	uc.publish(ctx, "campground.updated", map[string]interface{}{
		"campground_id": campground.ID,
		"updated_at":    campground.UpdatedAt.Format(time.RFC3339Nano),
	})

	uc.logger.Info("Campground updated", zap.String("campground_id", id))
	return campground, nil
}

// DeleteCampground removes the campground after the ownership check.
// Comments referencing it are left in place; there is deliberately no
// cascade (see DESIGN.md).
func (uc *CampgroundUsecase) DeleteCampground(ctx context.Context, principal *entity.Principal, id string) error {
	campground, err := uc.getForMutation(ctx, principal, id)
	if err != nil {
		return err
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete campground: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.CampgroundDeletesTotal.Inc()
	}
	uc.cacheDelete(ctx, id)
	uc.publish(ctx, "campground.deleted", map[string]interface{}{
		"campground_id": id,
		"author_id":     campground.Author.ID,
		"deleted_at":    time.Now().UTC().Format(time.RFC3339Nano),
	})

	uc.logger.Info("Campground deleted", zap.String("campground_id", id))
	return nil
}

// ToggleLike flips the principal's membership in the campground's like set.
// The flip itself is atomic in the store, so two toggles racing each other
// cannot drop one another's change or duplicate an entry.
func (uc *CampgroundUsecase) ToggleLike(ctx context.Context, principal *entity.Principal, id string) (*entity.Campground, error) {
	if err := RequireAuthenticated(principal); err != nil {
		return nil, err
	}

	campground, err := uc.repo.ToggleLike(ctx, id, principal.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.LikeTogglesTotal.Inc()
	}
	uc.cacheDelete(ctx, id)

	uc.logger.Debug("Like toggled", zap.String("campground_id", id), zap.String("user_id", principal.ID), zap.Bool("liked", campground.LikedBy(principal.ID)))
	return campground, nil
}

// UploadPhoto stores the image bytes and records the resulting URL on the
// campground.
func (uc *CampgroundUsecase) UploadPhoto(ctx context.Context, principal *entity.Principal, id, fileName string, data []byte) (string, error) {
	campground, err := uc.getForMutation(ctx, principal, id)
	if err != nil {
		return "", err
	}

	url, err := uc.storage.Upload(ctx, fileName, data)
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	campground.Image = url
	campground.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, campground); err != nil {
		return "", fmt.Errorf("failed to record photo on campground: %w", err)
	}

	uc.cacheDelete(ctx, id)
	return url, nil
}

// ListByAuthor returns every campground created by authorID, for profile
// pages.
func (uc *CampgroundUsecase) ListByAuthor(ctx context.Context, authorID string) ([]*entity.Campground, error) {
	campgrounds, err := uc.repo.FindByAuthorID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list campgrounds by author: %w", err)
	}
	return campgrounds, nil
}

// getForMutation fetches the campground and runs the ownership check
// before any mutating operation touches the store.
func (uc *CampgroundUsecase) getForMutation(ctx context.Context, principal *entity.Principal, id string) (*entity.Campground, error) {
	campground, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campground: %w", err)
	}
	if err := Authorize(principal, campground.Author.ID); err != nil {
		uc.logger.Warn("Campground mutation denied",
			zap.String("campground_id", id),
			zap.String("author_id", campground.Author.ID),
			zap.Error(err))
		return nil, err
	}
	return campground, nil
}

func (uc *CampgroundUsecase) cacheSet(ctx context.Context, campground *entity.Campground) {
	if uc.cacheRepo == nil {
		return
	}
	payload, err := json.Marshal(campground)
	if err != nil {
		uc.logger.Warn("Failed to marshal campground for caching", zap.Error(err), zap.String("campground_id", campground.ID))
		return
	}
	key := campgroundCacheKey(campground.ID)
	if err := uc.cacheRepo.Set(ctx, key, payload, campgroundCacheTTL); err != nil {
		uc.logger.Warn("Failed to set campground in cache", zap.Error(err), zap.String("key", key))
	}
}

func (uc *CampgroundUsecase) cacheDelete(ctx context.Context, id string) {
	if uc.cacheRepo == nil {
		return
	}
	key := campgroundCacheKey(id)
	if err := uc.cacheRepo.Delete(ctx, key); err != nil {
		uc.logger.Warn("Failed to delete campground from cache", zap.Error(err), zap.String("key", key))
	}
}

func (uc *CampgroundUsecase) publish(ctx context.Context, subject string, data map[string]interface{}) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, subject, data); err != nil {
		uc.logger.Warn("Failed to publish event", zap.Error(err), zap.String("subject", subject))
	}
}

func (uc *CampgroundUsecase) sendCreatedEmail(ctx context.Context, campground *entity.Campground) {
	if uc.sender == nil || uc.userRepo == nil {
		return
	}
	author, err := uc.userRepo.GetByID(ctx, campground.Author.ID)
	if err != nil || author.Email == "" {
		uc.logger.Warn("Could not resolve author email for created notification", zap.Error(err), zap.String("author_id", campground.Author.ID))
		return
	}
	subject := "New Listing Created"
	body := fmt.Sprintf("Your campground '%s' has been created successfully.", campground.Name)
	if err := uc.sender.SendEmail([]string{author.Email}, subject, body); err != nil {
		uc.logger.Warn("Failed to send campground created email", zap.Error(err), zap.String("author_id", campground.Author.ID))
		if uc.metrics != nil {
			uc.metrics.NotifierFailuresTotal.WithLabelValues("campground_created").Inc()
		}
	}
}

// escapeRegex prefixes every regular-expression metacharacter and
// whitespace rune with a backslash, so the search term always matches as a
// literal substring.
func escapeRegex(term string) string {
	var b strings.Builder
	b.Grow(len(term) * 2)
	for _, r := range term {
		switch r {
		case '-', '[', ']', '{', '}', '(', ')', '*', '+', '?', '.', ',', '\\', '^', '$', '|', '#':
			b.WriteRune('\\')
		default:
			if unicode.IsSpace(r) {
				b.WriteRune('\\')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
