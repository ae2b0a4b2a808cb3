package session

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/savemedha/outreach-api/internal/user/entity"
)

// memStore is an in-memory AccountStore. IncrementTokenVersion holds the lock
// for the whole read-modify-write, like a single-document $inc.
type memStore struct {
	mu       sync.Mutex
	byID     map[string]*entity.Account
	nextID   int
	findErr  error
	blocking bool
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*entity.Account{}}
}

func (s *memStore) wait(ctx context.Context) error {
	if !s.blocking {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *memStore) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *memStore) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, a *entity.Account) (*entity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.Email == a.Email {
			return nil, ErrEmailTaken
		}
	}
	s.nextID++
	cp := *a
	cp.ID = "acc-" + strconv.Itoa(s.nextID)
	s.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) IncrementTokenVersion(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return 0, ErrAccountNotFound
	}
	a.TokenVersion++
	return a.TokenVersion, nil
}

func (s *memStore) Save(_ context.Context, a *entity.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[a.ID]
	if !ok {
		return ErrAccountNotFound
	}
	version := cur.TokenVersion
	cp := *a
	cp.TokenVersion = version
	s.byID[a.ID] = &cp
	return nil
}

func (s *memStore) delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	fails bool
}

func (n *recordingNotifier) Notify(_ context.Context, address, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, address)
	if n.fails {
		return errors.New("smtp down")
	}
	return nil
}
