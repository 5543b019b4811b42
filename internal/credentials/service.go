// Package credentials owns the mapping from email address to user identity.
// It creates users with bcrypt password hashes and verifies logins without
// ever handing the stored hash back to callers.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/models"
	"github.com/rohits-web03/radiologix/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// Identity is the public view of a stored user.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the persistence the credential service needs.
//
// CreateUser must enforce email uniqueness atomically and return
// common.ErrAlreadyExists on conflict. Lookups return common.ErrNotFound
// on a miss.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	store     Store
	cost      int
	dummyHash []byte
	now       func() time.Time
}

type Option func(*Service)

// WithCost sets the bcrypt cost used for new hashes.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService builds a credential service on top of store.
func NewService(store Store, opts ...Option) (*Service, error) {
	s := &Service{
		store: store,
		cost:  bcrypt.DefaultCost,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Unknown emails are compared against this hash so that a miss costs the
	// same as a wrong password.
	filler, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}
	s.dummyHash, err = bcrypt.GenerateFromPassword([]byte(filler), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return s, nil
}

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user. It fails with common.ErrDuplicateCredential
// when the email is taken.
func (s *Service) Register(ctx context.Context, email, name, password string) (*Identity, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		ID:           utils.NewID(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrDuplicateCredential
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return toIdentity(u), nil
}

// VerifyLogin checks a password against the stored hash. An unknown email and
// a wrong password both yield common.ErrInvalidCredentials.
func (s *Service) VerifyLogin(ctx context.Context, email, password string) (*Identity, error) {
	u, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, common.ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	return toIdentity(u), nil
}

// FindByID resolves a user id. Unknown ids fail with common.ErrNotFound.
func (s *Service) FindByID(ctx context.Context, id string) (*Identity, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return toIdentity(u), nil
}

func toIdentity(u *models.User) *Identity {
	return &Identity{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", common.ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return fmt.Errorf("%w: email is invalid", common.ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", common.ErrValidation)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, maxPasswordBytes)
	}
	return nil
}
