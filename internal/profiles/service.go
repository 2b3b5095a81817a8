// Package profiles serves a user's own account: the records behind their
// identity, profile edits and tasker earnings.
package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/ledger"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

// Me is everything the caller holds under their login.
type Me struct {
	Identity models.Identity       `json:"identity"`
	Client   *models.ClientProfile `json:"client,omitempty"`
	Tasker   *models.TaskerProfile `json:"tasker,omitempty"`
	Admin    *models.AdminProfile  `json:"admin,omitempty"`
}

// Update is a partial profile edit; nil fields are left alone.
type Update struct {
	Name       *string `json:"name"`
	Phone      *string `json:"phone"`
	City       *string `json:"city"`
	Bio        *string `json:"bio"`
	HasLicense *bool   `json:"has_license"`
}

type Service interface {
	Me(ctx context.Context, actor models.Identity) (*Me, error)
	UpdateClient(ctx context.Context, actor models.Identity, u Update) (*models.ClientProfile, error)
	UpdateTasker(ctx context.Context, actor models.Identity, u Update) (*models.TaskerProfile, error)
	Earnings(ctx context.Context, actor models.Identity) (*ledger.Earnings, error)
}

type service struct {
	stores store.Stores
	ledger ledger.Service
}

func NewService(stores store.Stores, ledger ledger.Service) Service {
	return &service{stores: stores, ledger: ledger}
}

var _ Service = (*service)(nil)

func notFound(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("%s profile not found", what)
	}
	return err
}

func (s *service) Me(ctx context.Context, actor models.Identity) (*Me, error) {
	out := &Me{Identity: actor}
	if actor.ClientID != nil {
		c, err := s.stores.Clients.GetByID(ctx, *actor.ClientID)
		if err != nil {
			return nil, notFound(err, "client")
		}
		p := c.Profile()
		out.Client = &p
	}
	if actor.TaskerID != nil {
		tk, err := s.stores.Taskers.GetByID(ctx, *actor.TaskerID)
		if err != nil {
			return nil, notFound(err, "tasker")
		}
		p := tk.Profile()
		out.Tasker = &p
	}
	if actor.AdminID != nil {
		a, err := s.stores.Admins.GetByID(ctx, *actor.AdminID)
		if err != nil {
			return nil, notFound(err, "admin")
		}
		p := a.Profile()
		out.Admin = &p
	}
	return out, nil
}

// common applies the fields shared by client and tasker profiles.
func common(u Update, name, phone, city *string) error {
	if u.Name != nil {
		n := strings.TrimSpace(*u.Name)
		if n == "" {
			return apperr.Validation("name must not be empty")
		}
		*name = n
	}
	if u.Phone != nil {
		*phone = strings.TrimSpace(*u.Phone)
	}
	if u.City != nil {
		*city = strings.TrimSpace(*u.City)
	}
	return nil
}

func (s *service) UpdateClient(ctx context.Context, actor models.Identity, u Update) (*models.ClientProfile, error) {
	if actor.ClientID == nil {
		return nil, apperr.Permission("no client profile on this account")
	}
	if u.Bio != nil || u.HasLicense != nil {
		return nil, apperr.Validation("bio and has_license belong to the tasker profile")
	}
	c, err := s.stores.Clients.GetByID(ctx, *actor.ClientID)
	if err != nil {
		return nil, notFound(err, "client")
	}
	if err := common(u, &c.Name, &c.Phone, &c.City); err != nil {
		return nil, err
	}
	if err := s.stores.Clients.Update(ctx, c); err != nil {
		return nil, err
	}
	p := c.Profile()
	return &p, nil
}

func (s *service) UpdateTasker(ctx context.Context, actor models.Identity, u Update) (*models.TaskerProfile, error) {
	if actor.TaskerID == nil {
		return nil, apperr.Permission("no tasker profile on this account")
	}
	tk, err := s.stores.Taskers.GetByID(ctx, *actor.TaskerID)
	if err != nil {
		return nil, notFound(err, "tasker")
	}
	if err := common(u, &tk.Name, &tk.Phone, &tk.City); err != nil {
		return nil, err
	}
	if u.Bio != nil {
		tk.Bio = strings.TrimSpace(*u.Bio)
	}
	if u.HasLicense != nil {
		tk.HasLicense = *u.HasLicense
	}
	if err := s.stores.Taskers.Update(ctx, tk); err != nil {
		return nil, err
	}
	p := tk.Profile()
	return &p, nil
}

func (s *service) Earnings(ctx context.Context, actor models.Identity) (*ledger.Earnings, error) {
	if actor.TaskerID == nil {
		return nil, apperr.Permission("only taskers have earnings")
	}
	return s.ledger.EarningsFor(ctx, *actor.TaskerID)
}
