package repo

import (
	"fmt"

	"github.com/xxxsen/mblog/internal/model"
	"github.com/xxxsen/mblog/internal/recordstore"
)

// Stores holds the two record files that make up the durable state.
type Stores struct {
	Users *recordstore.Store[model.User]
	Posts *recordstore.Store[model.Post]
}

func Open(usersPath, postsPath string) (*Stores, error) {
	users, err := recordstore.New[model.User](usersPath, recordstore.WithName("users"))
	if err != nil {
		return nil, fmt.Errorf("open users store: %w", err)
	}
	posts, err := recordstore.New[model.Post](postsPath, recordstore.WithName("posts"))
	if err != nil {
		return nil, fmt.Errorf("open posts store: %w", err)
	}
	return &Stores{Users: users, Posts: posts}, nil
}
