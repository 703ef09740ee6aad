package repo

import (
	"context"

	"github.com/xxxsen/mblog/internal/model"
	appErr "github.com/xxxsen/mblog/internal/pkg/errors"
	"github.com/xxxsen/mblog/internal/pkg/idgen"
	"github.com/xxxsen/mblog/internal/recordstore"
)

type PostRepo struct {
	store *recordstore.Store[model.Post]
	ids   *idgen.Generator
}

func NewPostRepo(store *recordstore.Store[model.Post], ids *idgen.Generator) *PostRepo {
	if ids == nil {
		ids = idgen.New()
	}
	return &PostRepo{store: store, ids: ids}
}

// List returns posts in insertion order.
func (r *PostRepo) List(ctx context.Context) ([]model.Post, error) {
	return r.store.Load(ctx)
}

func (r *PostRepo) GetByID(ctx context.Context, id string) (*model.Post, error) {
	posts, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].ID == id {
			post := posts[i]
			return &post, nil
		}
	}
	return nil, appErr.ErrNotFound
}

// Create assigns the next id to post and appends it. The id is drawn while
// the store is held, after every stored id has been observed, so it cannot
// collide with an existing record.
func (r *PostRepo) Create(ctx context.Context, post *model.Post) error {
	return r.store.Update(ctx, func(posts []model.Post) ([]model.Post, error) {
		for i := range posts {
			r.ids.Observe(posts[i].ID)
		}
		post.ID = r.ids.Next()
		return append(posts, *post), nil
	})
}
