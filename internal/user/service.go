package user

import (
	"context"
	"strings"
	"time"

	"github.com/savemedha/outreach-api/internal/session"
	"github.com/savemedha/outreach-api/internal/user/entity"
)

// Store is the account store plus the listing used by administration screens.
type Store interface {
	session.AccountStore
	List(ctx context.Context) ([]*entity.Account, error)
}

// UserService orchestrates authentication and account administration.
type UserService struct {
	store Store
	auth  *session.Authority
}

func NewUserService(store Store, auth *session.Authority) *UserService {
	return &UserService{store: store, auth: auth}
}

func (s *UserService) Register(ctx context.Context, in session.RegisterInput) (*entity.Account, string, error) {
	return s.auth.Register(ctx, in)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*entity.Account, string, error) {
	return s.auth.Login(ctx, email, password)
}

// List returns every account without password hashes.
func (s *UserService) List(ctx context.Context) ([]*entity.Account, error) {
	accounts, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		a.PasswordHash = ""
	}
	return accounts, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*entity.Account, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.PasswordHash = ""
	return a, nil
}

// Update applies patch to the account. The password is re-hashed only when the
// patch sets one; the token version is never touched.
func (s *UserService) Update(ctx context.Context, id string, patch entity.AccountPatch) (*entity.Account, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(a)
	if patch.Password != nil {
		digest, err := s.auth.HashPassword(ctx, *patch.Password)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = digest
	}
	a.UpdatedAt = time.Now().UTC()
	if err := s.store.Save(ctx, a); err != nil {
		return nil, err
	}
	a.PasswordHash = ""
	return a, nil
}

func validatePatch(p entity.AccountPatch) error {
	var blank []string
	for _, f := range []struct {
		name string
		val  *string
	}{
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"phoneNumber", p.PhoneNumber},
	} {
		if f.val != nil && strings.TrimSpace(*f.val) == "" {
			blank = append(blank, f.name)
		}
	}
	if len(blank) > 0 {
		return &session.ValidationError{Reason: "required fields cannot be empty", Fields: blank}
	}
	if p.Role != nil && !p.Role.Valid() {
		return &session.ValidationError{Reason: "unknown role", Fields: []string{"role"}}
	}
	if p.Password != nil {
		return session.ValidatePassword(*p.Password)
	}
	return nil
}
