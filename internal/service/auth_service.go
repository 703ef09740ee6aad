package service

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mblog/internal/model"
	appErr "github.com/xxxsen/mblog/internal/pkg/errors"
	"github.com/xxxsen/mblog/internal/pkg/password"
	"github.com/xxxsen/mblog/internal/pkg/validate"
	"github.com/xxxsen/mblog/internal/repo"
)

type AuthService struct {
	users *repo.UserRepo

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users *repo.UserRepo) *AuthService {
	return &AuthService{users: users}
}

func (s *AuthService) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// Register creates an account for email. It fails with ErrConflict when the
// email is already registered, whatever the password.
func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (*model.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, appErr.ErrConflict
	} else if !appErr.IsNotFound(err) {
		return nil, err
	}
	if err := validate.PasswordLength(plainPassword); err != nil {
		return nil, err
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, err
	}
	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("user registered", zap.String("email", email))
	return user, nil
}

// Verify checks a login attempt. Unknown email and wrong password both yield
// ErrUnauthorized and cost one bcrypt comparison each.
func (s *AuthService) Verify(ctx context.Context, email, plainPassword string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			_ = password.Compare(s.fallbackHash(), plainPassword)
			return nil, appErr.ErrUnauthorized
		}
		return nil, err
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, appErr.ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := password.Hash("mblog-unknown-account")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
