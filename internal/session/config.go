package session

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultTokenTTL         = 7 * 24 * time.Hour
	DefaultOperationTimeout = 5 * time.Second
	DefaultBcryptCost       = 10
)

type Config struct {
	Secret           string
	TokenTTL         time.Duration
	OperationTimeout time.Duration
	BcryptCost       int
}

// ConfigFromEnv reads JWT_SECRET, TOKEN_TTL, AUTH_OP_TIMEOUT and BCRYPT_COST.
// An empty secret is kept as-is; token operations report ErrConfiguration.
func ConfigFromEnv() Config {
	cfg := Config{
		Secret:           os.Getenv("JWT_SECRET"),
		TokenTTL:         DefaultTokenTTL,
		OperationTimeout: DefaultOperationTimeout,
		BcryptCost:       DefaultBcryptCost,
	}
	if d, err := time.ParseDuration(os.Getenv("TOKEN_TTL")); err == nil && d > 0 {
		cfg.TokenTTL = d
	}
	if d, err := time.ParseDuration(os.Getenv("AUTH_OP_TIMEOUT")); err == nil && d > 0 {
		cfg.OperationTimeout = d
	}
	if n, err := strconv.Atoi(os.Getenv("BCRYPT_COST")); err == nil && n > 0 {
		cfg.BcryptCost = n
	}
	return cfg
}

func (c Config) withDefaults() Config {
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	if c.BcryptCost <= 0 {
		c.BcryptCost = DefaultBcryptCost
	}
	return c
}
