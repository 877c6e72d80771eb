package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/sd-owens/YelpCamp/internal/platform/logger"
	"github.com/sd-owens/YelpCamp/internal/port/cache"
	"github.com/sd-owens/YelpCamp/internal/port/repository"
	"github.com/stretchr/testify/mock"
)

func testLogger() *logger.Logger {
	return logger.NewLogger()
}

type MockUserRepository struct{ mock.Mock }

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}
func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) Update(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *MockUserRepository) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, token, expiresAt)
	return args.Error(0)
}
func (m *MockUserRepository) FindByValidResetToken(ctx context.Context, token string, now time.Time) (*entity.User, error) {
	args := m.Called(ctx, token, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
func (m *MockUserRepository) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error) {
	args := m.Called(ctx, token, passwordHash, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

type MockCampgroundRepository struct{ mock.Mock }

func (m *MockCampgroundRepository) Create(ctx context.Context, campground *entity.Campground) (string, error) {
	args := m.Called(ctx, campground)
	return args.String(0), args.Error(1)
}
func (m *MockCampgroundRepository) GetByID(ctx context.Context, id string) (*entity.Campground, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campground), args.Error(1)
}
func (m *MockCampgroundRepository) Update(ctx context.Context, campground *entity.Campground) error {
	args := m.Called(ctx, campground)
	return args.Error(0)
}
func (m *MockCampgroundRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockCampgroundRepository) List(ctx context.Context, namePattern string, page, pageSize int) ([]*entity.Campground, int64, error) {
	args := m.Called(ctx, namePattern, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*entity.Campground), args.Get(1).(int64), args.Error(2)
}
func (m *MockCampgroundRepository) FindByAuthorID(ctx context.Context, authorID string) ([]*entity.Campground, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Campground), args.Error(1)
}
func (m *MockCampgroundRepository) ToggleLike(ctx context.Context, id, userID string) (*entity.Campground, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Campground), args.Error(1)
}

type MockCommentRepository struct{ mock.Mock }

func (m *MockCommentRepository) Create(ctx context.Context, comment *entity.Comment) (string, error) {
	args := m.Called(ctx, comment)
	return args.String(0), args.Error(1)
}
func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*entity.Comment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Comment), args.Error(1)
}
func (m *MockCommentRepository) GetByCampgroundID(ctx context.Context, campgroundID string, page, pageSize int) ([]*entity.Comment, int, error) {
	args := m.Called(ctx, campgroundID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*entity.Comment), args.Int(1), args.Error(2)
}
func (m *MockCommentRepository) Update(ctx context.Context, comment *entity.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}
func (m *MockCommentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEmailSender struct{ mock.Mock }

func (m *MockEmailSender) SendEmail(to []string, subject, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockResolver struct{ mock.Mock }

func (m *MockResolver) Resolve(ctx context.Context, freeText string) (*entity.Location, error) {
	args := m.Called(ctx, freeText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Location), args.Error(1)
}

type MockStorage struct{ mock.Mock }

func (m *MockStorage) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	args := m.Called(ctx, fileName, data)
	return args.String(0), args.Error(1)
}

// memoryCache is a map-backed cache.CacheRepository for session flow tests.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.items[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return val, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// fakeUserRepo is a mutex-guarded in-memory repository.UserRepository whose
// reset token handling mirrors the store-side conditional semantics,
// including the strictly-greater expiry comparison and compare-and-clear
// consumption.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*entity.User), nextID: 1}
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return "", repository.ErrDuplicateUsername
		}
		if u.Email == user.Email {
			return "", repository.ErrDuplicateEmail
		}
	}
	id := "user-" + strconv.Itoa(r.nextID)
	r.nextID++
	clone := *user
	clone.ID = id
	r.users[id] = &clone
	return id, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, userID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetToken = token
	exp := expiresAt
	u.ResetExpiresAt = &exp
	return nil
}

func (r *fakeUserRepo) FindByValidResetToken(_ context.Context, token string, now time.Time) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetToken == token && u.ResetToken != "" && u.ResetExpiresAt != nil && u.ResetExpiresAt.After(now) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) ConsumeResetToken(_ context.Context, token, passwordHash string, now time.Time) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ResetToken == token && u.ResetToken != "" && u.ResetExpiresAt != nil && u.ResetExpiresAt.After(now) {
			u.Password = passwordHash
			u.ResetToken = ""
			u.ResetExpiresAt = nil
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

// fakeCampgroundRepo backs the like-toggle tests with real conditional
// update semantics under a mutex.
type fakeCampgroundRepo struct {
	mu          sync.Mutex
	campgrounds map[string]*entity.Campground
}

func newFakeCampgroundRepo() *fakeCampgroundRepo {
	return &fakeCampgroundRepo{campgrounds: make(map[string]*entity.Campground)}
}

var _ repository.CampgroundRepository = (*fakeCampgroundRepo)(nil)

func (r *fakeCampgroundRepo) put(c *entity.Campground) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *c
	clone.Likes = append([]string(nil), c.Likes...)
	r.campgrounds[c.ID] = &clone
}

func (r *fakeCampgroundRepo) Create(_ context.Context, campground *entity.Campground) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := campground.ID
	if id == "" {
		id = "camp-1"
	}
	clone := *campground
	clone.ID = id
	r.campgrounds[id] = &clone
	return id, nil
}

func (r *fakeCampgroundRepo) GetByID(_ context.Context, id string) (*entity.Campground, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campgrounds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *c
	clone.Likes = append([]string(nil), c.Likes...)
	return &clone, nil
}

func (r *fakeCampgroundRepo) Update(_ context.Context, campground *entity.Campground) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campgrounds[campground.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *campground
	clone.Likes = append([]string(nil), campground.Likes...)
	r.campgrounds[campground.ID] = &clone
	return nil
}

func (r *fakeCampgroundRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campgrounds[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.campgrounds, id)
	return nil
}

func (r *fakeCampgroundRepo) List(_ context.Context, _ string, _, _ int) ([]*entity.Campground, int64, error) {
	return nil, 0, nil
}

func (r *fakeCampgroundRepo) FindByAuthorID(_ context.Context, _ string) ([]*entity.Campground, error) {
	return nil, nil
}

func (r *fakeCampgroundRepo) ToggleLike(_ context.Context, id, userID string) (*entity.Campground, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campgrounds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := false
	for i, uid := range c.Likes {
		if uid == userID {
			c.Likes = append(c.Likes[:i], c.Likes[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		c.Likes = append(c.Likes, userID)
	}
	clone := *c
	clone.Likes = append([]string(nil), c.Likes...)
	return &clone, nil
}
