package contact

import (
	"context"
	"strings"

	"github.com/savemedha/outreach-api/internal/contact/entity"
	"github.com/savemedha/outreach-api/internal/session"
)

// Store persists contact submissions. Implementations return repo.ErrNotFound.
type Store interface {
	Create(ctx context.Context, c *entity.Contact) (*entity.Contact, error)
	FindByID(ctx context.Context, id string) (*entity.Contact, error)
	List(ctx context.Context) ([]*entity.Contact, error)
	Save(ctx context.Context, c *entity.Contact) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func fullName(full, first, last string) string {
	if name := strings.TrimSpace(full); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// Submit stores a new form submission; every field is required.
func (s *Service) Submit(ctx context.Context, in entity.Submission) (*entity.Contact, error) {
	c := &entity.Contact{
		FullName: fullName(in.FullName, in.FirstName, in.LastName),
		Phone:    strings.TrimSpace(in.Phone),
		Email:    session.NormalizeEmail(in.Email),
		Comments: strings.TrimSpace(in.Comments),
	}
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"fullname", c.FullName}, {"phone", c.Phone}, {"email", c.Email}, {"comments", c.Comments},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, &session.ValidationError{Reason: "missing required fields", Fields: missing}
	}
	if !session.ValidEmail(c.Email) {
		return nil, &session.ValidationError{Reason: "invalid email", Fields: []string{"email"}}
	}
	return s.store.Create(ctx, c)
}

func (s *Service) List(ctx context.Context) ([]*entity.Contact, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*entity.Contact, error) {
	return s.store.FindByID(ctx, id)
}

// Update applies p; a provided field may not be blank.
func (s *Service) Update(ctx context.Context, id string, p entity.Patch) (*entity.Contact, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	var blank []string
	set := func(name string, v *string, dst *string) {
		if v == nil {
			return
		}
		if t := strings.TrimSpace(*v); t != "" {
			*dst = t
		} else {
			blank = append(blank, name)
		}
	}
	if p.FullName != nil || p.FirstName != nil || p.LastName != nil {
		name := fullName(deref(p.FullName), deref(p.FirstName), deref(p.LastName))
		set("fullname", &name, &c.FullName)
	}
	set("phone", p.Phone, &c.Phone)
	set("email", p.Email, &c.Email)
	set("comments", p.Comments, &c.Comments)
	if len(blank) > 0 {
		return nil, &session.ValidationError{Reason: "fields cannot be empty", Fields: blank}
	}
	c.Email = session.NormalizeEmail(c.Email)
	if !session.ValidEmail(c.Email) {
		return nil, &session.ValidationError{Reason: "invalid email", Fields: []string{"email"}}
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return s.store.FindByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
