package usecase

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/sd-owens/YelpCamp/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEscapeRegex(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain", "salmon creek", `salmon\ creek`},
		{"Dot", "a.b", `a\.b`},
		{"Metacharacters", "(a)*[b]?", `\(a\)\*\[b\]\?`},
		{"Anchors", "^camp$", `\^camp\$`},
		{"Backslash", `a\b`, `a\\b`},
		{"Empty", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, escapeRegex(tc.input))
		})
	}
}

// The escaped term must behave as a literal substring when compiled: "a.b"
// matches the name that literally contains "a.b" and not one where a
// wildcard dot would have matched.
func TestEscapeRegex_LiteralMatching(t *testing.T) {
	pattern, err := regexp.Compile("(?i)" + escapeRegex("a.b"))
	require.NoError(t, err)

	assert.True(t, pattern.MatchString("a.b ranch"))
	assert.True(t, pattern.MatchString("A.B RANCH"))
	assert.False(t, pattern.MatchString("axb creek"))
}

func newTestCampgroundUsecase(repo *MockCampgroundRepository, resolver *MockResolver) *CampgroundUsecase {
	return NewCampgroundUsecase(repo, nil, resolver, nil, nil, nil, nil, nil, testLogger())
}

func TestCampgroundUsecase_ListCampgrounds(t *testing.T) {
	ctx := context.Background()

	t.Run("EscapesSearchTerm", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)

		repo.On("List", ctx, `a\.b`, 1, campgroundPageSize).
			Return([]*entity.Campground{{ID: "c1", Name: "a.b ranch"}}, int64(1), nil).Once()

		out, err := uc.ListCampgrounds(ctx, "a.b", 1)
		require.NoError(t, err)
		assert.Len(t, out.Campgrounds, 1)
		assert.False(t, out.NoMatch)
		repo.AssertExpectations(t)
	})

	t.Run("PageBelowOneClampsToFirst", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)

		repo.On("List", ctx, "", 1, campgroundPageSize).
			Return([]*entity.Campground{}, int64(0), nil).Twice()

		out, err := uc.ListCampgrounds(ctx, "", 0)
		require.NoError(t, err)
		assert.Equal(t, 1, out.CurrentPage)

		out, err = uc.ListCampgrounds(ctx, "", -3)
		require.NoError(t, err)
		assert.Equal(t, 1, out.CurrentPage)
		repo.AssertExpectations(t)
	})

	t.Run("TotalPagesRoundsUp", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)

		// 17 matches at page size 8: the last page holds one item.
		repo.On("List", ctx, "", 3, campgroundPageSize).
			Return([]*entity.Campground{{ID: "c17"}}, int64(17), nil).Once()

		out, err := uc.ListCampgrounds(ctx, "", 3)
		require.NoError(t, err)
		assert.Equal(t, 3, out.TotalPages)
		assert.Equal(t, 3, out.CurrentPage)
		repo.AssertExpectations(t)
	})

	t.Run("ExactMultipleOfPageSize", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)

		repo.On("List", ctx, "", 1, campgroundPageSize).
			Return(make([]*entity.Campground, campgroundPageSize), int64(16), nil).Once()

		out, err := uc.ListCampgrounds(ctx, "", 1)
		require.NoError(t, err)
		assert.Equal(t, 2, out.TotalPages)
	})

	t.Run("NoMatchOnlyForSearches", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)

		repo.On("List", ctx, "nowhere", 1, campgroundPageSize).
			Return([]*entity.Campground{}, int64(0), nil).Once()
		repo.On("List", ctx, "", 1, campgroundPageSize).
			Return([]*entity.Campground{}, int64(0), nil).Once()

		out, err := uc.ListCampgrounds(ctx, "nowhere", 1)
		require.NoError(t, err)
		assert.True(t, out.NoMatch)
		assert.Equal(t, 0, out.TotalPages)

		out, err = uc.ListCampgrounds(ctx, "", 1)
		require.NoError(t, err)
		assert.False(t, out.NoMatch, "an empty collection without a search term is not a failed search")
	})
}

func TestCampgroundUsecase_CreateCampground(t *testing.T) {
	ctx := context.Background()
	principal := &entity.Principal{ID: "user-1", Username: "alice"}

	t.Run("Unauthenticated", func(t *testing.T) {
		uc := newTestCampgroundUsecase(new(MockCampgroundRepository), new(MockResolver))
		_, err := uc.CreateCampground(ctx, nil, CreateCampgroundInput{Name: "Camp", Location: "Yosemite"})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("UnresolvableAddress", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		resolver := new(MockResolver)
		uc := newTestCampgroundUsecase(repo, resolver)

		resolver.On("Resolve", ctx, "nowhere at all").
			Return(nil, errors.New("address not found")).Once()

		_, err := uc.CreateCampground(ctx, principal, CreateCampgroundInput{Name: "Camp", Location: "nowhere at all"})
		assert.ErrorIs(t, err, ErrInvalidAddress)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("SnapshotsAuthor", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		resolver := new(MockResolver)
		uc := newTestCampgroundUsecase(repo, resolver)

		resolver.On("Resolve", ctx, "Yosemite").
			Return(&entity.Location{Lat: 37.8, Lng: -119.5, FormattedAddress: "Yosemite National Park, CA"}, nil).Once()
		repo.On("Create", ctx, mock.AnythingOfType("*entity.Campground")).
			Return("camp-1", nil).Once()

		created, err := uc.CreateCampground(ctx, principal, CreateCampgroundInput{
			Name:     "Salmon Creek",
			Price:    12.5,
			Location: "Yosemite",
		})
		require.NoError(t, err)
		assert.Equal(t, "camp-1", created.ID)
		assert.Equal(t, "user-1", created.Author.ID)
		assert.Equal(t, "alice", created.Author.Username)
		assert.Equal(t, "Yosemite National Park, CA", created.Location)
		assert.Equal(t, 37.8, created.Lat)
		assert.Empty(t, created.Likes)
		repo.AssertExpectations(t)
		resolver.AssertExpectations(t)
	})
}

func TestCampgroundUsecase_OwnershipEnforcement(t *testing.T) {
	ctx := context.Background()
	owner := &entity.Principal{ID: "user-1", Username: "alice"}
	stranger := &entity.Principal{ID: "user-2", Username: "bob"}
	admin := &entity.Principal{ID: "user-3", Username: "carol", IsAdmin: true}

	stored := &entity.Campground{
		ID:     "camp-1",
		Name:   "Salmon Creek",
		Author: entity.Author{ID: "user-1", Username: "alice"},
	}

	newName := "Granite Falls"

	t.Run("StrangerCannotUpdate", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)
		repo.On("GetByID", ctx, "camp-1").Return(stored, nil).Once()

		_, err := uc.UpdateCampground(ctx, stranger, "camp-1", UpdateCampgroundInput{Name: &newName})
		assert.ErrorIs(t, err, ErrForbidden)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("StrangerCannotDelete", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)
		repo.On("GetByID", ctx, "camp-1").Return(stored, nil).Once()

		err := uc.DeleteCampground(ctx, stranger, "camp-1")
		assert.ErrorIs(t, err, ErrForbidden)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("OwnerCanUpdate", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)
		fresh := *stored
		repo.On("GetByID", ctx, "camp-1").Return(&fresh, nil).Once()
		repo.On("Update", ctx, mock.AnythingOfType("*entity.Campground")).Return(nil).Once()

		updated, err := uc.UpdateCampground(ctx, owner, "camp-1", UpdateCampgroundInput{Name: &newName})
		require.NoError(t, err)
		assert.Equal(t, "Granite Falls", updated.Name)
		// The author snapshot survives every update.
		assert.Equal(t, "user-1", updated.Author.ID)
		repo.AssertExpectations(t)
	})

	t.Run("AdminCanDeleteForeignCampground", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)
		repo.On("GetByID", ctx, "camp-1").Return(stored, nil).Once()
		repo.On("Delete", ctx, "camp-1").Return(nil).Once()

		err := uc.DeleteCampground(ctx, admin, "camp-1")
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("NilPrincipalCannotMutate", func(t *testing.T) {
		repo := new(MockCampgroundRepository)
		uc := newTestCampgroundUsecase(repo, nil)
		repo.On("GetByID", ctx, "camp-1").Return(stored, nil).Once()

		_, err := uc.UpdateCampground(ctx, nil, "camp-1", UpdateCampgroundInput{Name: &newName})
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func newToggleTestUsecase(repo *fakeCampgroundRepo) *CampgroundUsecase {
	return NewCampgroundUsecase(repo, nil, nil, nil, nil, nil, nil, nil, testLogger())
}

func TestCampgroundUsecase_ToggleLike(t *testing.T) {
	ctx := context.Background()
	principal := &entity.Principal{ID: "user-1", Username: "alice"}

	t.Run("Unauthenticated", func(t *testing.T) {
		uc := newToggleTestUsecase(newFakeCampgroundRepo())
		_, err := uc.ToggleLike(ctx, nil, "camp-1")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("UnknownCampground", func(t *testing.T) {
		uc := newToggleTestUsecase(newFakeCampgroundRepo())
		_, err := uc.ToggleLike(ctx, principal, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ToggleIsAnInvolution", func(t *testing.T) {
		repo := newFakeCampgroundRepo()
		repo.put(&entity.Campground{ID: "camp-1", Name: "Salmon Creek", Likes: []string{}})
		uc := newToggleTestUsecase(repo)

		liked, err := uc.ToggleLike(ctx, principal, "camp-1")
		require.NoError(t, err)
		assert.True(t, liked.LikedBy("user-1"))
		assert.Len(t, liked.Likes, 1)

		unliked, err := uc.ToggleLike(ctx, principal, "camp-1")
		require.NoError(t, err)
		assert.False(t, unliked.LikedBy("user-1"))
		assert.Empty(t, unliked.Likes)
	})

	t.Run("ConcurrentTogglesByDistinctUsers", func(t *testing.T) {
		repo := newFakeCampgroundRepo()
		repo.put(&entity.Campground{ID: "camp-1", Name: "Salmon Creek", Likes: []string{}})
		uc := newToggleTestUsecase(repo)

		const users = 16
		var wg sync.WaitGroup
		for i := 0; i < users; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				p := &entity.Principal{ID: "user-" + strconv.Itoa(n), Username: "u"}
				_, err := uc.ToggleLike(ctx, p, "camp-1")
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		final, err := repo.GetByID(ctx, "camp-1")
		require.NoError(t, err)
		assert.Len(t, final.Likes, users)

		seen := make(map[string]bool, users)
		for _, id := range final.Likes {
			assert.False(t, seen[id], "duplicate like entry for %s", id)
			seen[id] = true
		}
	})
}
