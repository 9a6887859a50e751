package auth

import (
	"context"
	"crypto/subtle"

	"github.com/go-playground/validator/v10"

	"github.com/udms-pro/udms/internal/shared"
	"github.com/udms-pro/udms/internal/store"
)

// Service wraps authentication business rules.
type Service struct {
	repo      Repository
	validator *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: validator.New()}
}

// Authenticate validates identifier/secret credentials. Unknown identifiers and
// wrong secrets are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (store.User, error) {
	if err := s.validator.Struct(creds); err != nil {
		return store.User{}, shared.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, creds.Identifier)
	if err != nil {
		return store.User{}, shared.ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(user.Secret), []byte(creds.Secret)) != 1 {
		return store.User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}
