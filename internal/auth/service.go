package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mandadito/backend/internal/apperr"
	"github.com/mandadito/backend/internal/models"
	"github.com/mandadito/backend/internal/store"
)

const (
	ResetTokenTTL     = time.Hour
	MinPasswordLength = 8
)

var (
	// ErrDuplicateEmail is returned when the role is already registered under the email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrPasswordMismatch is returned when linking a second role with a different password.
	ErrPasswordMismatch = errors.New("email registered with a different password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

type RegisterInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	Bio        string `json:"bio"`
	HasLicense bool   `json:"has_license"`
}

type Service interface {
	RegisterClient(ctx context.Context, in RegisterInput) (*models.Client, models.Identity, error)
	RegisterTasker(ctx context.Context, in RegisterInput) (*models.Tasker, models.Identity, error)
	CreateAdmin(ctx context.Context, name, email, password string) (*models.Admin, error)
	Login(ctx context.Context, email, password string) (string, models.Identity, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ValidateToken(ctx context.Context, token string) (models.Identity, error)
}

type service struct {
	backend store.Backend
	repo    *Repository
	secret  []byte
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time
}

func NewService(backend store.Backend, secret []byte, ttl time.Duration, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{
		backend: backend,
		repo:    NewRepository(backend.Stores()),
		secret:  secret,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

// claims carry every role id held under the login email; Role is the default active role.
type claims struct {
	jwt.RegisteredClaims
	ClientID *int64      `json:"client_id,omitempty"`
	TaskerID *int64      `json:"tasker_id,omitempty"`
	AdminID  *int64      `json:"admin_id,omitempty"`
	Role     models.Role `json:"role"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkRegistration(in *RegisterInput) error {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Email == "" || !strings.Contains(in.Email, "@") {
		return apperr.Validation("name and a valid email are required")
	}
	if len(in.Password) < MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// linkableHash returns the password hash to store for a new role. When the
// email already holds the other role the password must match it, and the
// existing hash is reused so both records stay in sync.
func linkableHash(password string, existing string) (string, error) {
	if existing != "" {
		if bcrypt.CompareHashAndPassword([]byte(existing), []byte(password)) != nil {
			return "", apperr.Wrap(apperr.KindConflict, ErrPasswordMismatch, ErrPasswordMismatch.Error())
		}
		return existing, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *service) RegisterClient(ctx context.Context, in RegisterInput) (*models.Client, models.Identity, error) {
	if err := checkRegistration(&in); err != nil {
		return nil, models.Identity{}, err
	}
	var client *models.Client
	var accounts Accounts
	err := s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		if accounts, err = findByEmail(ctx, st, in.Email); err != nil {
			return err
		}
		if accounts.Client != nil {
			return apperr.Wrap(apperr.KindConflict, ErrDuplicateEmail, ErrDuplicateEmail.Error())
		}
		existing := ""
		if accounts.Tasker != nil {
			existing = accounts.Tasker.PasswordHash
		}
		hash, err := linkableHash(in.Password, existing)
		if err != nil {
			return err
		}
		client = &models.Client{Name: in.Name, Email: in.Email, Phone: in.Phone, City: in.City, PasswordHash: hash}
		if err := st.Clients.Create(ctx, client); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Wrap(apperr.KindConflict, ErrDuplicateEmail, ErrDuplicateEmail.Error())
			}
			return err
		}
		accounts.Client = client
		return nil
	})
	if err != nil {
		return nil, models.Identity{}, err
	}
	s.log.Info("client registered", "client_id", client.ID, "dual", accounts.Tasker != nil)
	return client, identityOf(in.Email, Accounts{Client: accounts.Client, Tasker: accounts.Tasker}).As(models.RoleClient), nil
}

func (s *service) RegisterTasker(ctx context.Context, in RegisterInput) (*models.Tasker, models.Identity, error) {
	if err := checkRegistration(&in); err != nil {
		return nil, models.Identity{}, err
	}
	var tasker *models.Tasker
	var accounts Accounts
	err := s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		var err error
		if accounts, err = findByEmail(ctx, st, in.Email); err != nil {
			return err
		}
		if accounts.Tasker != nil {
			return apperr.Wrap(apperr.KindConflict, ErrDuplicateEmail, ErrDuplicateEmail.Error())
		}
		existing := ""
		if accounts.Client != nil {
			existing = accounts.Client.PasswordHash
		}
		hash, err := linkableHash(in.Password, existing)
		if err != nil {
			return err
		}
		tasker = &models.Tasker{
			Name: in.Name, Email: in.Email, Phone: in.Phone, City: in.City,
			Bio: in.Bio, HasLicense: in.HasLicense, PasswordHash: hash,
		}
		if err := st.Taskers.Create(ctx, tasker); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Wrap(apperr.KindConflict, ErrDuplicateEmail, ErrDuplicateEmail.Error())
			}
			return err
		}
		accounts.Tasker = tasker
		return nil
	})
	if err != nil {
		return nil, models.Identity{}, err
	}
	s.log.Info("tasker registered", "tasker_id", tasker.ID, "dual", accounts.Client != nil)
	return tasker, identityOf(in.Email, Accounts{Client: accounts.Client, Tasker: accounts.Tasker}).As(models.RoleTasker), nil
}

func (s *service) CreateAdmin(ctx context.Context, name, email, password string) (*models.Admin, error) {
	in := RegisterInput{Name: name, Email: email, Password: password}
	if err := checkRegistration(&in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{Name: in.Name, Email: in.Email, PasswordHash: string(hash)}
	if err := s.backend.Stores().Admins.Create(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.KindConflict, ErrDuplicateEmail, ErrDuplicateEmail.Error())
		}
		return nil, err
	}
	s.log.Info("admin created", "admin_id", admin.ID)
	return admin, nil
}

func identityOf(email string, a Accounts) models.Identity {
	id := models.Identity{Email: email}
	if a.Client != nil {
		id.ClientID = models.Int64Ptr(a.Client.ID)
	}
	if a.Tasker != nil {
		id.TaskerID = models.Int64Ptr(a.Tasker.ID)
	}
	if a.Admin != nil {
		id.AdminID = models.Int64Ptr(a.Admin.ID)
	}
	id.ActiveRole = defaultRole(id)
	return id
}

func defaultRole(id models.Identity) models.Role {
	switch {
	case id.AdminID != nil:
		return models.RoleAdmin
	case id.ClientID != nil:
		return models.RoleClient
	default:
		return models.RoleTasker
	}
}

// Login accepts every record under email whose hash matches password.
func (s *service) Login(ctx context.Context, email, password string) (string, models.Identity, error) {
	email = normalizeEmail(email)
	found, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", models.Identity{}, err
	}
	matches := func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	var verified Accounts
	if found.Client != nil && matches(found.Client.PasswordHash) {
		verified.Client = found.Client
	}
	if found.Tasker != nil && matches(found.Tasker.PasswordHash) {
		verified.Tasker = found.Tasker
	}
	if found.Admin != nil && matches(found.Admin.PasswordHash) {
		verified.Admin = found.Admin
	}
	if verified.Empty() {
		return "", models.Identity{}, apperr.Wrap(apperr.KindUnauthorized, ErrInvalidCredentials, ErrInvalidCredentials.Error())
	}
	id := identityOf(email, verified)
	token, err := s.issueToken(id)
	if err != nil {
		return "", models.Identity{}, err
	}
	return token, id, nil
}

func (s *service) issueToken(id models.Identity) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		ClientID: id.ClientID,
		TaskerID: id.TaskerID,
		AdminID:  id.AdminID,
		Role:     id.ActiveRole,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (models.Identity, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return models.Identity{}, apperr.Wrap(apperr.KindUnauthorized, err, "invalid token")
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return models.Identity{}, apperr.Unauthorized("invalid token")
	}
	id := models.Identity{
		Email:      c.Subject,
		ClientID:   c.ClientID,
		TaskerID:   c.TaskerID,
		AdminID:    c.AdminID,
		ActiveRole: c.Role,
	}
	if !id.ActiveRole.Valid() || !id.Holds(id.ActiveRole) {
		return models.Identity{}, apperr.Unauthorized("invalid token")
	}
	return id, nil
}

// ForgotPassword issues a reset token and logs it. Unknown emails succeed
// silently so the endpoint does not reveal who is registered.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	found, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if found.Empty() {
		s.log.Info("password reset requested for unknown email")
		return nil
	}
	rt := &models.PasswordResetToken{
		Email:     email,
		Token:     uuid.NewString(),
		ExpiresAt: s.now().Add(ResetTokenTTL),
	}
	if err := s.backend.Stores().ResetTokens.Create(ctx, rt); err != nil {
		return err
	}
	s.log.Info("password reset token issued", "email", email, "token", rt.Token, "expires_at", rt.ExpiresAt)
	return nil
}

// ResetPassword consumes token and rewrites the hash of every record under its email.
func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	invalid := apperr.Wrap(apperr.KindValidation, ErrInvalidResetToken, ErrInvalidResetToken.Error())
	return s.backend.WithinTx(ctx, func(ctx context.Context, st store.Stores) error {
		rt, err := st.ResetTokens.GetByToken(ctx, token)
		if errors.Is(err, store.ErrNotFound) {
			return invalid
		}
		if err != nil {
			return err
		}
		now := s.now()
		if rt.UsedAt != nil || now.After(rt.ExpiresAt) {
			return invalid
		}
		found, err := findByEmail(ctx, st, rt.Email)
		if err != nil {
			return err
		}
		if found.Client != nil {
			found.Client.PasswordHash = string(hash)
			if err := st.Clients.Update(ctx, found.Client); err != nil {
				return err
			}
		}
		if found.Tasker != nil {
			found.Tasker.PasswordHash = string(hash)
			if err := st.Taskers.Update(ctx, found.Tasker); err != nil {
				return err
			}
		}
		rt.UsedAt = &now
		if err := st.ResetTokens.Update(ctx, rt); err != nil {
			return err
		}
		s.log.Info("password reset", "email", rt.Email)
		return nil
	})
}

func errMissing(msg string) error {
	return apperr.Validation("%s", msg)
}
