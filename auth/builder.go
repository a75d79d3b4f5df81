package auth

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/bozorapp/bozor/jwt"
	"github.com/bozorapp/bozor/mail"
	"github.com/bozorapp/bozor/password"
	"github.com/bozorapp/bozor/secrets"
)

// Builder assembles an Engine. Construction is allocation-only; no I/O
// happens until the first Engine method call.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	users  UserStore
	mailer mail.Sender
	logger *slog.Logger

	built bool
}

// New returns a Builder preloaded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the secret cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the credential store.
func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithMailer sets the reset-mail dispatcher.
func (b *Builder) WithMailer(sender mail.Sender) *Builder {
	b.mailer = sender
	return b
}

// WithLogger sets the operational logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration and wires the Engine. A Builder can
// build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	access, err := jwt.NewCodec(jwt.Config{Secret: cfg.AccessSecret, TTL: cfg.AccessTTL, Issuer: cfg.Issuer})
	if err != nil {
		return nil, err
	}
	refresh, err := jwt.NewCodec(jwt.Config{Secret: cfg.RefreshSecret, TTL: cfg.RefreshTTL, Issuer: cfg.Issuer})
	if err != nil {
		return nil, err
	}
	reset, err := jwt.NewCodec(jwt.Config{Secret: cfg.resetSecret(), TTL: cfg.ResetTTL, Issuer: cfg.Issuer})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(cfg.Password)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	b.built = true
	return &Engine{
		config:  cfg,
		access:  access,
		refresh: refresh,
		reset:   reset,
		hasher:  hasher,
		cache:   secrets.NewStore(b.redis, cfg.CachePrefix),
		users:   b.users,
		mailer:  b.mailer,
		logger:  logger,
	}, nil
}
