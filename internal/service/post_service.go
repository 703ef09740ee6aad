package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mblog/internal/model"
	"github.com/xxxsen/mblog/internal/pkg/validate"
	"github.com/xxxsen/mblog/internal/repo"
)

// Clock supplies the display date stamped on new posts.
type Clock interface {
	Now() string
}

type PostService struct {
	posts *repo.PostRepo
	clock Clock
}

func NewPostService(posts *repo.PostRepo, clock Clock) *PostService {
	return &PostService{posts: posts, clock: clock}
}

func (s *PostService) ListAll(ctx context.Context) ([]model.Post, error) {
	return s.posts.List(ctx)
}

func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *PostService) Create(ctx context.Context, title, content, authorEmail string) (*model.Post, error) {
	input, err := validate.Post(title, content)
	if err != nil {
		return nil, err
	}
	post := &model.Post{
		Title:   input.Title,
		Content: input.Content,
		Author:  authorEmail,
		Date:    s.clock.Now(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("post created", zap.String("id", post.ID), zap.String("author", authorEmail))
	return post, nil
}
