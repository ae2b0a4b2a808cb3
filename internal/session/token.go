package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Payload is what a session token carries.
type Payload struct {
	AccountID    string
	TokenVersion int64
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// TokenCodec signs and verifies bearer tokens.
type TokenCodec interface {
	Sign(p Payload, ttl time.Duration) (string, error)
	Parse(token string) (*Payload, error)
	// Configured reports whether the codec has key material to sign with.
	Configured() bool
}

type claims struct {
	jwt.RegisteredClaims
	TokenVersion int64 `json:"ver"`
}

// JWTCodec encodes payloads as HS256 JWTs.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
}

func NewJWTCodec(secret string) *JWTCodec {
	return &JWTCodec{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of c that reads the current time from now.
func (c *JWTCodec) WithClock(now func() time.Time) *JWTCodec {
	return &JWTCodec{secret: c.secret, now: now}
}

func (c *JWTCodec) Configured() bool { return len(c.secret) > 0 }

// Sign sets IssuedAt to now and ExpiresAt to now+ttl, ignoring any values in p.
func (c *JWTCodec) Sign(p Payload, ttl time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", ErrConfiguration
	}
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenVersion: p.TokenVersion,
	})
	return tok.SignedString(c.secret)
}

func (c *JWTCodec) Parse(token string) (*Payload, error) {
	if len(c.secret) == 0 {
		return nil, ErrConfiguration
	}
	cl := &claims{}
	tok, err := jwt.ParseWithClaims(token, cl, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid || cl.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	p := &Payload{AccountID: cl.Subject, TokenVersion: cl.TokenVersion}
	if cl.IssuedAt != nil {
		p.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		p.ExpiresAt = cl.ExpiresAt.Time
	}
	return p, nil
}
