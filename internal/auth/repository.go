package auth

import (
	"context"
	"errors"

	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

// Accounts are every record registered under one email. Missing roles are nil.
type Accounts struct {
	Client *models.Client
	Tasker *models.Tasker
	Admin  *models.Admin
}

func (a Accounts) Empty() bool {
	return a.Client == nil && a.Tasker == nil && a.Admin == nil
}

type Repository struct {
	stores store.Stores
}

func NewRepository(stores store.Stores) *Repository {
	return &Repository{stores: stores}
}

// FindByEmail collects the client, tasker and admin records sharing email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (Accounts, error) {
	return findByEmail(ctx, r.stores, email)
}

func findByEmail(ctx context.Context, s store.Stores, email string) (Accounts, error) {
	var out Accounts
	c, err := s.Clients.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return out, err
	}
	out.Client = c
	t, err := s.Taskers.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return out, err
	}
	out.Tasker = t
	a, err := s.Admins.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return out, err
	}
	out.Admin = a
	return out, nil
}
