package repo

import (
	"context"

	"github.com/xxxsen/mblog/internal/model"
	appErr "github.com/xxxsen/mblog/internal/pkg/errors"
	"github.com/xxxsen/mblog/internal/recordstore"
)

type UserRepo struct {
	store *recordstore.Store[model.User]
}

func NewUserRepo(store *recordstore.Store[model.User]) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.store.Load(ctx)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	users, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if idx := indexByEmail(users, email); idx >= 0 {
		user := users[idx]
		return &user, nil
	}
	return nil, appErr.ErrNotFound
}

// Create appends user unless the email is already taken. The uniqueness
// check and the write happen in the same store cycle.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	return r.store.Update(ctx, func(users []model.User) ([]model.User, error) {
		if indexByEmail(users, user.Email) >= 0 {
			return nil, appErr.ErrConflict
		}
		return append(users, *user), nil
	})
}

func indexByEmail(users []model.User, email string) int {
	for i := range users {
		if users[i].Email == email {
			return i
		}
	}
	return -1
}
