package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/savemedha/outreach-api/internal/contact/entity"
	"github.com/savemedha/outreach-api/internal/contact/repo"
	"github.com/savemedha/outreach-api/internal/session"
	"github.com/savemedha/outreach-api/pkg/utilities"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[string]*entity.Contact
	next    int
	listErr error
}

func newMemStore() *memStore { return &memStore{rows: map[string]*entity.Contact{}} }

func (m *memStore) Create(_ context.Context, c *entity.Contact) (*entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	cp := *c
	cp.ID = strconv.Itoa(m.next)
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	m.rows[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) List(_ context.Context) ([]*entity.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*entity.Contact{}
	for _, c := range m.rows {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, c *entity.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[c.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func strPtr(s string) *string { return &s }

var form = entity.Submission{
	FirstName: " Asha ", LastName: "Rao", Phone: "9000000000",
	Email: "Asha@Example.org", Comments: "Need a screening camp.",
}

func TestSubmit_JoinsNamesAndNormalizes(t *testing.T) {
	svc := NewService(newMemStore())
	c, err := svc.Submit(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", c.FullName)
	assert.Equal(t, "asha@example.org", c.Email)

	in := form
	in.FullName = "Dr. Asha Rao"
	c, err = svc.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Asha Rao", c.FullName)
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   entity.Submission
		want string
	}{
		{"empty", entity.Submission{}, "missing required fields: fullname, phone, email, comments"},
		{"blank comments", entity.Submission{FullName: "A", Phone: "1", Email: "a@b.org", Comments: "  "}, "missing required fields: comments"},
		{"bad email", entity.Submission{FullName: "A", Phone: "1", Email: "nope", Comments: "hi"}, "invalid email: email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			_, err := NewService(store).Submit(context.Background(), tt.in)
			require.ErrorIs(t, err, session.ErrValidation)
			assert.Equal(t, tt.want, err.Error())
			assert.Empty(t, store.rows)
		})
	}
}

func TestUpdate_PartialAndBlank(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	c, err := svc.Submit(context.Background(), form)
	require.NoError(t, err)

	got, err := svc.Update(context.Background(), c.ID, entity.Patch{Comments: strPtr("Follow-up call please")})
	require.NoError(t, err)
	assert.Equal(t, "Follow-up call please", got.Comments)
	assert.Equal(t, "Asha Rao", got.FullName)

	_, err = svc.Update(context.Background(), c.ID, entity.Patch{Phone: strPtr(" ")})
	require.ErrorIs(t, err, session.ErrValidation)
	assert.Equal(t, "fields cannot be empty: phone", err.Error())

	_, err = svc.Update(context.Background(), "missing", entity.Patch{})
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func newTestMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/contact", h.Submit)
	mux.HandleFunc("GET /api/contact", h.List)
	mux.HandleFunc("GET /api/contact/{id}", h.Get)
	mux.HandleFunc("PUT /api/contact/{id}", h.Update)
	mux.HandleFunc("DELETE /api/contact/{id}", h.Delete)
	return mux
}

func do(mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestHandler_Lifecycle(t *testing.T) {
	mux := newTestMux(NewHandler(NewService(newMemStore()), zap.NewNop().Sugar()))

	rec := do(mux, http.MethodPost, "/api/contact", form)
	require.Equal(t, http.StatusCreated, rec.Code)
	var c entity.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "Asha Rao", c.FullName)

	rec = do(mux, http.MethodPost, "/api/contact", map[string]string{"email": "a@b.org"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"missing required fields: fullname, phone, comments"}`, rec.Body.String())

	rec = do(mux, http.MethodPut, "/api/contact/"+c.ID, map[string]string{"phone": "9111111111"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"phone":"9111111111"`)

	rec = do(mux, http.MethodGet, "/api/contact", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []entity.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(mux, http.MethodDelete, "/api/contact/"+c.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"contact submission deleted"}`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/contact/"+c.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"contact submission not found"}`, rec.Body.String())
}

func TestHandler_StoreFailureLogsRequestContext(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	store := newMemStore()
	store.listErr = errors.New("connection reset")
	h := NewHandler(NewService(store), zap.New(core).Sugar())

	req := httptest.NewRequest(http.MethodGet, "/api/contact", nil)
	ctx := session.WithAccountID(utilities.WithRequestID(req.Context(), "req-7"), "acc-3")
	rec := httptest.NewRecorder()
	h.List(rec, req.WithContext(ctx))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to fetch contact submissions"}`, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-7", fields["request_id"])
	assert.Equal(t, "acc-3", fields["account_id"])
	assert.Equal(t, "/api/contact", fields["path"])
}
