package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/savemedha/outreach-api/internal/user/entity"
)

const testSecret = "test-signing-secret"

func newTestAuthority(t *testing.T, store AccountStore, codec TokenCodec, notifier Notifier) *Authority {
	t.Helper()
	cfg := Config{Secret: testSecret, BcryptCost: bcrypt.MinCost}
	return NewAuthority(store, BcryptHasher{Cost: bcrypt.MinCost}, codec, notifier, nil, cfg)
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		FirstName:   "Asha",
		LastName:    "Rao",
		PhoneNumber: "9000000000",
		Email:       email,
		Password:    "secret123",
	}
}

func mustRegister(t *testing.T, a *Authority, email string) *entity.Account {
	t.Helper()
	acc, _, err := a.Register(context.Background(), registerInput(email))
	require.NoError(t, err)
	return acc
}

func TestLoginThenVerify(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	created := mustRegister(t, a, "asha@example.org")

	acc, token, err := a.Login(context.Background(), "asha@example.org", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, acc.ID)
	assert.Empty(t, acc.PasswordHash)

	id, err := a.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	mustRegister(t, a, "Asha@Example.org")

	_, _, err := a.Login(context.Background(), "  ASHA@example.ORG ", "secret123")
	require.NoError(t, err)
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	mustRegister(t, a, "asha@example.org")
	ctx := context.Background()

	accA, tokenA, err := a.Login(ctx, "asha@example.org", "secret123")
	require.NoError(t, err)
	assert.EqualValues(t, 1, accA.TokenVersion)

	accB, tokenB, err := a.Login(ctx, "asha@example.org", "secret123")
	require.NoError(t, err)
	assert.EqualValues(t, 2, accB.TokenVersion)
	assert.NotEqual(t, tokenA, tokenB)

	_, err = a.Verify(ctx, tokenA)
	require.ErrorIs(t, err, ErrTokenSuperseded)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "token expired due to new login", PublicMessage(err))

	id, err := a.Verify(ctx, tokenB)
	require.NoError(t, err)
	assert.Equal(t, accB.ID, id)
}

func TestRegistrationTokenIsSupersededByLogin(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	ctx := context.Background()
	_, regToken, err := a.Register(ctx, registerInput("asha@example.org"))
	require.NoError(t, err)

	_, err = a.Verify(ctx, regToken)
	require.NoError(t, err)

	_, _, err = a.Login(ctx, "asha@example.org", "secret123")
	require.NoError(t, err)

	_, err = a.Verify(ctx, regToken)
	require.ErrorIs(t, err, ErrTokenSuperseded)
}

func TestVerify_ExpiredToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := newMemStore()
	a := newTestAuthority(t, store, NewJWTCodec(testSecret).WithClock(clock), nil)
	mustRegister(t, a, "asha@example.org")

	_, token, err := a.Login(context.Background(), "asha@example.org", "secret123")
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(DefaultTokenTTL + time.Second)
	mu.Unlock()

	// the version still matches; expiry alone must reject it
	_, err = a.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, "invalid or expired token", PublicMessage(err))
}

func TestLogin_UnknownEmailAndWrongPasswordAreIndistinguishable(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	mustRegister(t, a, "asha@example.org")
	ctx := context.Background()

	_, tok1, errWrong := a.Login(ctx, "asha@example.org", "wrong-password")
	_, tok2, errUnknown := a.Login(ctx, "nobody@example.org", "secret123")

	assert.Empty(t, tok1)
	assert.Empty(t, tok2)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestLogin_WrongPasswordDoesNotAdvanceVersion(t *testing.T) {
	store := newMemStore()
	a := newTestAuthority(t, store, nil, nil)
	acc := mustRegister(t, a, "asha@example.org")

	_, _, err := a.Login(context.Background(), "asha@example.org", "nope-nope")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	got, err := store.FindByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.TokenVersion)
}

func TestLogin_Validation(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	tests := []struct {
		name, email, password string
		fields                []string
	}{
		{"both missing", "", "", []string{"email", "password"}},
		{"no password", "a@b.co", "", []string{"password"}},
		{"blank email", "   ", "pw", []string{"email"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := a.Login(context.Background(), tc.email, tc.password)
			require.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.fields, ve.Fields)
		})
	}
}

func TestConcurrentLoginsNeverShareAVersion(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	mustRegister(t, a, "asha@example.org")

	const n = 16
	type result struct {
		version int64
		token   string
	}
	results := make([]result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acc, token, err := a.Login(context.Background(), "asha@example.org", "secret123")
			if err != nil {
				t.Errorf("login %d: %v", i, err)
				return
			}
			results[i] = result{acc.TokenVersion, token}
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	valid := 0
	for _, r := range results {
		require.False(t, seen[r.version], "version %d issued twice", r.version)
		seen[r.version] = true
		if _, err := a.Verify(context.Background(), r.token); err == nil {
			valid++
			assert.EqualValues(t, n, r.version)
		}
	}
	assert.Equal(t, 1, valid)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMemStore()
	a := newTestAuthority(t, store, nil, nil)
	mustRegister(t, a, "asha@example.org")

	acc, token, err := a.Register(context.Background(), registerInput("ASHA@example.org"))
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, ErrConflict)
	assert.Nil(t, acc)
	assert.Empty(t, token)
	assert.Equal(t, 1, store.count())
}

func TestRegister_StoreUniqueBackstop(t *testing.T) {
	store := newMemStore()
	a := newTestAuthority(t, store, nil, nil)
	mustRegister(t, a, "asha@example.org")

	// simulate a racing signup that passed the pre-check
	store.findErr = ErrAccountNotFound
	_, _, err := a.Register(context.Background(), registerInput("asha@example.org"))
	require.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, 1, store.count())
}

func TestRegister_IssuesVersionZeroAndNotifies(t *testing.T) {
	n := &recordingNotifier{}
	a := newTestAuthority(t, newMemStore(), nil, n)

	acc, token, err := a.Register(context.Background(), registerInput("Asha@Example.org"))
	require.NoError(t, err)
	assert.EqualValues(t, 0, acc.TokenVersion)
	assert.Equal(t, "asha@example.org", acc.Email)
	assert.Equal(t, entity.RoleAdmin, acc.Role)
	assert.Empty(t, acc.PasswordHash)
	assert.NotEmpty(t, token)
	assert.Equal(t, []string{"asha@example.org"}, n.sent)
}

func TestRegister_NotificationFailureIsNotFatal(t *testing.T) {
	n := &recordingNotifier{fails: true}
	a := newTestAuthority(t, newMemStore(), nil, n)

	_, token, err := a.Register(context.Background(), registerInput("asha@example.org"))
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Len(t, n.sent, 1)
}

func TestRegister_StoresHashNotPassword(t *testing.T) {
	store := newMemStore()
	a := newTestAuthority(t, store, nil, nil)
	acc := mustRegister(t, a, "asha@example.org")

	stored, err := store.FindByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.True(t, BcryptHasher{}.Verify("secret123", stored.PasswordHash))
}

func TestRegister_Validation(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		want   string
	}{
		{"missing names", func(in *RegisterInput) { in.FirstName, in.LastName = "", " " }, "missing required fields: firstName, lastName"},
		{"bad email", func(in *RegisterInput) { in.Email = "asha@localhost" }, "invalid email format: email"},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }, "must be at least 6 characters: password"},
		{"password over bcrypt limit", func(in *RegisterInput) { in.Password = strings.Repeat("p", 80) }, "must be at most 72 bytes: password"},
		{"unknown role", func(in *RegisterInput) { in.Role = "root" }, "unknown role: role"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := registerInput("asha@example.org")
			tc.mutate(&in)
			_, _, err := a.Register(context.Background(), in)
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestIssueToken_MissingSecret(t *testing.T) {
	a := NewAuthority(newMemStore(), nil, nil, nil, nil, Config{})
	_, err := a.IssueToken("acc-1", 0)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	_, err = a.Verify(context.Background(), "a.b.c")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestLogin_MissingSecretLeavesSessionsIntact(t *testing.T) {
	store := newMemStore()
	configured := newTestAuthority(t, store, nil, nil)
	acc := mustRegister(t, configured, "asha@example.org")
	_, token, err := configured.Login(context.Background(), "asha@example.org", "secret123")
	require.NoError(t, err)

	unconfigured := NewAuthority(store, BcryptHasher{Cost: bcrypt.MinCost}, nil, nil, nil, Config{})
	_, _, err = unconfigured.Login(context.Background(), "asha@example.org", "secret123")
	require.ErrorIs(t, err, ErrConfiguration)

	stored, err := store.FindByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.TokenVersion)
	_, err = configured.Verify(context.Background(), token)
	require.NoError(t, err)
}

func TestRegister_MissingSecretCreatesNothing(t *testing.T) {
	store := newMemStore()
	a := NewAuthority(store, BcryptHasher{Cost: bcrypt.MinCost}, nil, nil, nil, Config{})
	_, _, err := a.Register(context.Background(), registerInput("asha@example.org"))
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, 0, store.count())
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		pw      string
		wantErr bool
	}{
		{"too short", "12345", true},
		{"minimum", "123456", false},
		{"at bcrypt limit", strings.Repeat("x", 72), false},
		{"over bcrypt limit", strings.Repeat("x", 73), true},
		{"multibyte over limit", strings.Repeat("é", 37), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.pw)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestBcryptHasher_TooLongIsValidation(t *testing.T) {
	_, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(strings.Repeat("p", 80))
	require.ErrorIs(t, err, ErrValidation)
}

func TestVerify_DeletedAccount(t *testing.T) {
	store := newMemStore()
	a := newTestAuthority(t, store, nil, nil)
	acc, token, err := a.Register(context.Background(), registerInput("asha@example.org"))
	require.NoError(t, err)

	store.delete(acc.ID)
	_, err = a.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrUnknownTokenUser)
}

func TestVerify_GarbageToken(t *testing.T) {
	a := newTestAuthority(t, newMemStore(), nil, nil)
	_, err := a.Verify(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestStoreTimeoutSurfacesAsTransient(t *testing.T) {
	store := newMemStore()
	store.blocking = true
	a := NewAuthority(store, BcryptHasher{Cost: bcrypt.MinCost}, nil, nil, nil,
		Config{Secret: testSecret, OperationTimeout: 20 * time.Millisecond})

	_, _, err := a.Login(context.Background(), "asha@example.org", "secret123")
	require.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

type slowHasher struct{ delay time.Duration }

func (h slowHasher) Hash(string) (string, error) {
	time.Sleep(h.delay)
	return "digest", nil
}
func (h slowHasher) Verify(string, string) bool {
	time.Sleep(h.delay)
	return true
}

func TestHasherTimeout(t *testing.T) {
	a := NewAuthority(newMemStore(), slowHasher{delay: 200 * time.Millisecond}, nil, nil, nil,
		Config{Secret: testSecret, OperationTimeout: 20 * time.Millisecond})

	_, _, err := a.Register(context.Background(), registerInput("asha@example.org"))
	require.ErrorIs(t, err, ErrTimeout)
}
