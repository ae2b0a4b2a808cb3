package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/savemedha/outreach-api/internal/user/entity"
)

// AccountStore persists accounts. IncrementTokenVersion must be a single atomic
// update that returns the new value.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	Create(ctx context.Context, a *entity.Account) (*entity.Account, error)
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)
	Save(ctx context.Context, a *entity.Account) error
}

const (
	MinPasswordLength = 6
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength = 72
)

// ValidatePassword checks the length bounds a password must meet before hashing.
func ValidatePassword(p string) error {
	switch {
	case len(p) < MinPasswordLength:
		return &ValidationError{Reason: fmt.Sprintf("must be at least %d characters", MinPasswordLength), Fields: []string{"password"}}
	case len(p) > MaxPasswordLength:
		return &ValidationError{Reason: fmt.Sprintf("must be at most %d bytes", MaxPasswordLength), Fields: []string{"password"}}
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email has the shape local@domain.tld.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Authority issues and verifies session tokens. A login advances the account's
// token version, which invalidates every token issued before it.
type Authority struct {
	store    AccountStore
	hasher   PasswordHasher
	codec    TokenCodec
	notifier Notifier
	logger   *zap.SugaredLogger
	cfg      Config

	dummyOnce   sync.Once
	dummyDigest string
}

// NewAuthority wires an Authority. A nil hasher, codec or notifier falls back to
// bcrypt, an HS256 codec over cfg.Secret and a log-only notifier.
func NewAuthority(store AccountStore, hasher PasswordHasher, codec TokenCodec, notifier Notifier, logger *zap.SugaredLogger, cfg Config) *Authority {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: cfg.BcryptCost}
	}
	if codec == nil {
		codec = NewJWTCodec(cfg.Secret)
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Authority{store: store, hasher: hasher, codec: codec, notifier: notifier, logger: logger, cfg: cfg}
}

// ready fails with ErrConfiguration when tokens cannot be signed. Login and
// Register call it before touching the store or the hasher.
func (a *Authority) ready() error {
	if !a.codec.Configured() {
		return ErrConfiguration
	}
	return nil
}

// IssueToken signs a token for accountID at tokenVersion.
func (a *Authority) IssueToken(accountID string, tokenVersion int64) (string, error) {
	if err := a.ready(); err != nil {
		return "", err
	}
	return a.codec.Sign(Payload{AccountID: accountID, TokenVersion: tokenVersion}, a.cfg.TokenTTL)
}

// Login checks credentials, advances the token version and returns a token
// carrying the new version. Unknown email and wrong password are indistinguishable.
func (a *Authority) Login(ctx context.Context, email, password string) (*entity.Account, string, error) {
	if err := a.ready(); err != nil {
		return nil, "", err
	}
	email = NormalizeEmail(email)
	var missing []string
	if email == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, "", &ValidationError{Reason: "email and password are required", Fields: missing}
	}

	acc, err := a.findByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		// burn the same hashing time as a real mismatch
		_, _ = a.verifyPassword(ctx, password, a.dummy())
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	ok, err := a.verifyPassword(ctx, password, acc.PasswordHash)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}

	version, err := a.incrementTokenVersion(ctx, acc.ID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	token, err := a.IssueToken(acc.ID, version)
	if err != nil {
		return nil, "", err
	}
	acc.TokenVersion = version
	acc.PasswordHash = ""
	return acc, token, nil
}

// Verify returns the account id a token was issued to, provided the token is
// authentic, unexpired and carries the account's current token version.
func (a *Authority) Verify(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	p, err := a.codec.Parse(token)
	if errors.Is(err, ErrConfiguration) {
		return "", err
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()
	acc, err := a.store.FindByID(ctx, p.AccountID)
	if errors.Is(err, ErrAccountNotFound) {
		return "", ErrUnknownTokenUser
	}
	if err != nil {
		return "", wrapTimeout(err)
	}
	if p.TokenVersion != acc.TokenVersion {
		return "", fmt.Errorf("%w: token version %d, current %d", ErrTokenSuperseded, p.TokenVersion, acc.TokenVersion)
	}
	return acc.ID, nil
}

// RegisterInput holds the fields accepted when creating an account.
type RegisterInput struct {
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	PhoneNumber string      `json:"phoneNumber"`
	Email       string      `json:"email"`
	Address     string      `json:"address"`
	Designation string      `json:"designation"`
	Role        entity.Role `json:"role"`
	ImageURL    string      `json:"userImage"`
	Password    string      `json:"password"`
}

func (in RegisterInput) validate() error {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"phoneNumber", in.PhoneNumber},
		{"email", in.Email},
		{"password", in.Password},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Reason: "missing required fields", Fields: missing}
	}
	if !ValidEmail(in.Email) {
		return &ValidationError{Reason: "invalid email format", Fields: []string{"email"}}
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if in.Role != "" && !in.Role.Valid() {
		return &ValidationError{Reason: "unknown role", Fields: []string{"role"}}
	}
	return nil
}

// Register creates an account with token version 0 and returns a token for it.
func (a *Authority) Register(ctx context.Context, in RegisterInput) (*entity.Account, string, error) {
	if err := a.ready(); err != nil {
		return nil, "", err
	}
	in.Email = NormalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return nil, "", err
	}

	_, err := a.findByEmail(ctx, in.Email)
	if err == nil {
		return nil, "", ErrEmailTaken
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, "", err
	}

	digest, err := a.hashPassword(ctx, in.Password)
	if err != nil {
		return nil, "", err
	}
	role := in.Role
	if role == "" {
		role = entity.RoleAdmin
	}
	now := time.Now().UTC()
	acc := &entity.Account{
		Email:        in.Email,
		PasswordHash: digest,
		TokenVersion: 0,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Address:      strings.TrimSpace(in.Address),
		Designation:  strings.TrimSpace(in.Designation),
		Role:         role,
		ImageURL:     strings.TrimSpace(in.ImageURL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	cctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	created, err := a.store.Create(cctx, acc)
	cancel()
	if err != nil {
		return nil, "", wrapTimeout(err)
	}

	token, err := a.IssueToken(created.ID, created.TokenVersion)
	if err != nil {
		return nil, "", err
	}

	a.notifyRegistered(ctx, created)
	created.PasswordHash = ""
	return created, token, nil
}

func (a *Authority) notifyRegistered(ctx context.Context, acc *entity.Account) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()
	body := fmt.Sprintf("<p>Hello %s,</p><p>Your account has been created.</p>", acc.FirstName)
	if err := a.notifier.Notify(ctx, acc.Email, "Registration successful", body); err != nil {
		a.logger.Warnw("registration notification failed", "account_id", acc.ID, "err", err)
	}
}

// HashPassword hashes plain under the operation timeout.
func (a *Authority) HashPassword(ctx context.Context, plain string) (string, error) {
	return a.hashPassword(ctx, plain)
}

func (a *Authority) findByEmail(ctx context.Context, email string) (*entity.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()
	acc, err := a.store.FindByEmail(ctx, email)
	return acc, wrapTimeout(err)
}

func (a *Authority) incrementTokenVersion(ctx context.Context, id string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()
	v, err := a.store.IncrementTokenVersion(ctx, id)
	return v, wrapTimeout(err)
}

// hashing is CPU bound; run it on its own goroutine so the timeout can fire.
func (a *Authority) hashPassword(ctx context.Context, plain string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()
	type result struct {
		digest string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		d, err := a.hasher.Hash(plain)
		done <- result{d, err}
	}()
	select {
	case r := <-done:
		if errors.Is(r.err, ErrValidation) {
			return "", r.err
		}
		if r.err != nil {
			return "", fmt.Errorf("hash password: %w", r.err)
		}
		return r.digest, nil
	case <-ctx.Done():
		return "", wrapTimeout(ctx.Err())
	}
}

func (a *Authority) verifyPassword(ctx context.Context, plain, digest string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.OperationTimeout)
	defer cancel()
	done := make(chan bool, 1)
	go func() { done <- a.hasher.Verify(plain, digest) }()
	select {
	case ok := <-done:
		return ok, nil
	case <-ctx.Done():
		return false, wrapTimeout(ctx.Err())
	}
}

func (a *Authority) dummy() string {
	a.dummyOnce.Do(func() {
		d, err := a.hasher.Hash("not-a-real-password")
		if err != nil {
			a.logger.Warnw("dummy digest", "err", err)
			return
		}
		a.dummyDigest = d
	})
	return a.dummyDigest
}
