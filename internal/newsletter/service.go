package newsletter

import (
	"context"
	"errors"

	"github.com/savemedha/outreach-api/internal/newsletter/entity"
	"github.com/savemedha/outreach-api/internal/newsletter/repo"
	"github.com/savemedha/outreach-api/internal/session"
)

var ErrInvalidEmail = errors.New("valid email is required")

// Store persists subscriptions. Implementations return repo.ErrNotFound and
// repo.ErrDuplicate.
type Store interface {
	Create(ctx context.Context, email string) (*entity.Subscription, error)
	FindByEmail(ctx context.Context, email string) (*entity.Subscription, error)
	FindByID(ctx context.Context, id string) (*entity.Subscription, error)
	List(ctx context.Context) ([]*entity.Subscription, error)
	UpdateEmail(ctx context.Context, id, email string) (*entity.Subscription, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func cleanEmail(raw string) (string, error) {
	email := session.NormalizeEmail(raw)
	if !session.ValidEmail(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Subscribe adds email to the list. The unique index backs up the lookup.
func (s *Service) Subscribe(ctx context.Context, raw string) (*entity.Subscription, error) {
	email, err := cleanEmail(raw)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, repo.ErrDuplicate
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	return s.store.Create(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]*entity.Subscription, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Subscription, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) UpdateEmail(ctx context.Context, id, raw string) (*entity.Subscription, error) {
	email, err := cleanEmail(raw)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateEmail(ctx, id, email)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}
