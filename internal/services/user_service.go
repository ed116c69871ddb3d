package services

import (
	"context"
	"strings"

	"github.com/acmebank/mts-backend/internal/auth"
	"github.com/acmebank/mts-backend/internal/models"
	repo "github.com/acmebank/mts-backend/internal/repository"
)

// UserService handles API credential registration and login. It only issues
// identities; which accounts an identity may touch is the caller's concern.
type UserService struct {
	store repo.Store
	tm    *auth.TokenManager
}

func NewUserService(store repo.Store, tm *auth.TokenManager) *UserService {
	return &UserService{store: store, tm: tm}
}

func (s *UserService) Register(ctx context.Context, username, email, password string) (models.User, error) {
	u := models.User{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Role: "user"}
	if err := u.Validate(); err != nil {
		return models.User{}, models.NewDomainError(models.CodeInvalidArgument, "%s", err)
	}
	if len(password) < 8 {
		return models.User{}, models.NewDomainError(models.CodeInvalidArgument, "password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	return s.store.Repos().Users.Create(ctx, u.Username, u.Email, hash, u.Role)
}

// Login verifies credentials and returns an access/refresh token pair.
func (s *UserService) Login(ctx context.Context, email, password string) (auth.TokenPair, error) {
	u, err := s.store.Repos().Users.GetByEmail(ctx, email)
	if err != nil {
		return auth.TokenPair{}, models.NewDomainError(models.CodeInvalidArgument, "invalid credentials")
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		return auth.TokenPair{}, models.NewDomainError(models.CodeInvalidArgument, "invalid credentials")
	}
	return s.tm.GeneratePair(u.ID, u.Role)
}
