package auth

import (
	"context"

	"github.com/udms-pro/udms/internal/store"
)

// Repository resolves accounts by login identifier.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (store.User, error)
}

// StoreRepository reads accounts from the entity store.
type StoreRepository struct {
	store *store.Store
}

// NewRepository wraps the entity store.
func NewRepository(s *store.Store) *StoreRepository {
	return &StoreRepository{store: s}
}

// FindByEmail matches case-insensitively on the trimmed identifier.
func (r *StoreRepository) FindByEmail(ctx context.Context, email string) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	return r.store.FindUserByEmail(email)
}
