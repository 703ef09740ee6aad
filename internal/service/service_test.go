package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/mblog/internal/pkg/errors"
	"github.com/xxxsen/mblog/internal/pkg/validate"
	"github.com/xxxsen/mblog/internal/repo"
)

type fixedClock string

func (c fixedClock) Now() string {
	return string(c)
}

func setupServices(t *testing.T) (*AuthService, *PostService) {
	t.Helper()
	dir := t.TempDir()
	stores, err := repo.Open(filepath.Join(dir, "users.json"), filepath.Join(dir, "blogs.json"))
	require.NoError(t, err)
	auth := NewAuthService(repo.NewUserRepo(stores.Users))
	posts := NewPostService(repo.NewPostRepo(stores.Posts, nil), fixedClock("3/1/2026, 2:05:09 PM"))
	return auth, posts
}

func TestRegisterThenVerify(t *testing.T) {
	auth, _ := setupServices(t)
	ctx := context.Background()
	pairs := map[string]string{
		"a@x.com": "pw1",
		"b@x.com": "correct horse",
		"c@x.com": " spaced ",
	}
	for email, pw := range pairs {
		user, err := auth.Register(ctx, email, pw)
		require.NoError(t, err)
		require.Equal(t, email, user.Email)
		require.NotEqual(t, pw, user.PasswordHash)
	}
	for email, pw := range pairs {
		user, err := auth.Verify(ctx, email, pw)
		require.NoError(t, err)
		require.Equal(t, email, user.Email)

		_, err = auth.Verify(ctx, email, pw+"x")
		require.ErrorIs(t, err, appErr.ErrUnauthorized)
	}
}

func TestVerifyUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	auth, _ := setupServices(t)
	ctx := context.Background()
	_, err := auth.Register(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	_, unknownErr := auth.Verify(ctx, "nobody@x.com", "pw1")
	_, wrongErr := auth.Verify(ctx, "a@x.com", "nope")
	require.ErrorIs(t, unknownErr, appErr.ErrUnauthorized)
	require.ErrorIs(t, wrongErr, appErr.ErrUnauthorized)
	require.Equal(t, unknownErr, wrongErr)
}

func TestRegisterDuplicateEmailAlwaysFails(t *testing.T) {
	auth, _ := setupServices(t)
	ctx := context.Background()
	_, err := auth.Register(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	for _, pw := range []string{"pw1", "pw2", "", strings.Repeat("p", 73)} {
		_, err := auth.Register(ctx, "a@x.com", pw)
		require.ErrorIs(t, err, appErr.ErrConflict)
	}
	user, err := auth.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	verified, err := auth.Verify(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	require.Equal(t, user, verified)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	auth, _ := setupServices(t)
	ctx := context.Background()
	_, err := auth.Register(ctx, "long@x.com", strings.Repeat("p", 73))
	require.ErrorIs(t, err, appErr.ErrInvalid)
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, validate.FailurePasswordTooLong, verr.Failure)
	_, err = auth.FindByEmail(ctx, "long@x.com")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = auth.Register(ctx, "max@x.com", strings.Repeat("p", 72))
	require.NoError(t, err)
}

func TestConcurrentDistinctRegistrationsAllPersist(t *testing.T) {
	auth, _ := setupServices(t)
	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := auth.Register(context.Background(), fmt.Sprintf("user%d@x.com", i), "pw")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	users, err := auth.users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, n)
}

func TestCreatePostRoundTrip(t *testing.T) {
	_, posts := setupServices(t)
	ctx := context.Background()
	created, err := posts.Create(ctx, "T", "C", "a@x.com")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "a@x.com", created.Author)
	require.Equal(t, "3/1/2026, 2:05:09 PM", created.Date)

	got, err := posts.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)

	_, err = posts.GetByID(ctx, "unknown")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestListAllGrowsOnlyOnSuccessfulCreate(t *testing.T) {
	_, posts := setupServices(t)
	ctx := context.Background()

	count := func() int {
		list, err := posts.ListAll(ctx)
		require.NoError(t, err)
		return len(list)
	}

	require.Equal(t, 0, count())
	_, err := posts.Create(ctx, "first", "body", "a@x.com")
	require.NoError(t, err)
	require.Equal(t, 1, count())

	rejected := [][2]string{{"", "body"}, {"   ", "body"}, {"title", ""}, {"title", "\n\t "}}
	for _, in := range rejected {
		_, err := posts.Create(ctx, in[0], in[1], "a@x.com")
		require.ErrorIs(t, err, appErr.ErrInvalid)
		var verr *validate.Error
		require.ErrorAs(t, err, &verr)
		require.Equal(t, 1, count())
	}

	_, err = posts.Create(ctx, "second", "body", "a@x.com")
	require.NoError(t, err)
	list, err := posts.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "first", list[0].Title)
	require.Equal(t, "second", list[1].Title)
}

func TestConcurrentPostCreatesKeepDistinctIDs(t *testing.T) {
	_, posts := setupServices(t)
	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := posts.Create(context.Background(), fmt.Sprint("t", i), "c", "a@x.com")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	list, err := posts.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, list, n)
	ids := make(map[string]struct{}, n)
	for _, p := range list {
		ids[p.ID] = struct{}{}
	}
	require.Len(t, ids, n)
}
