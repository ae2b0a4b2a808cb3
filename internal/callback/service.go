package callback

import (
	"context"
	"strings"

	"github.com/savemedha/outreach-api/internal/callback/entity"
	"github.com/savemedha/outreach-api/internal/session"
)

// Store persists callback requests. Implementations return repo.ErrNotFound.
type Store interface {
	Create(ctx context.Context, req *entity.Request) (*entity.Request, error)
	FindByID(ctx context.Context, id string) (*entity.Request, error)
	List(ctx context.Context) ([]*entity.Request, error)
	UpdateReview(ctx context.Context, id string, status entity.Status, comment string) (*entity.Request, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create files a new request in the pending state.
func (s *Service) Create(ctx context.Context, in entity.Request) (*entity.Request, error) {
	req := &entity.Request{
		FullName:    strings.TrimSpace(in.FullName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Description: strings.TrimSpace(in.Description),
		Status:      entity.StatusPending,
	}
	var missing []string
	if req.FullName == "" {
		missing = append(missing, "fullName")
	}
	if req.PhoneNumber == "" {
		missing = append(missing, "phoneNumber")
	}
	if len(missing) > 0 {
		return nil, &session.ValidationError{Reason: "full name and phone number are required", Fields: missing}
	}
	return s.store.Create(ctx, req)
}

func (s *Service) List(ctx context.Context) ([]*entity.Request, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Request, error) {
	return s.store.FindByID(ctx, id)
}

// Review sets the status and, when given, the admin comment. The status must
// be one of pending, not received or done.
func (s *Service) Review(ctx context.Context, id string, rv entity.Review) (*entity.Request, error) {
	if rv.Status == nil || !rv.Status.Valid() {
		return nil, &session.ValidationError{
			Reason: "invalid status, use pending, not received, or done",
			Fields: []string{"status"},
		}
	}
	cur, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comment := cur.AdminComment
	if rv.AdminComment != nil {
		comment = strings.TrimSpace(*rv.AdminComment)
	}
	return s.store.UpdateReview(ctx, id, *rv.Status, comment)
}
