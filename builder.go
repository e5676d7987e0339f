package authcore

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eduportal/authcore/metrics"
	"github.com/eduportal/authcore/session"
	"github.com/eduportal/authcore/token"
)

// Builder assembles an [Engine]. Dependencies are injected explicitly; the
// engine never reaches for global state.
type Builder struct {
	config       Config
	redis        redis.UniversalClient
	userProvider UserProvider
	logger       zerolog.Logger
	registry     prometheus.Registerer

	built bool
}

// New returns a builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the default configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the key-value store client. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the user-record lookup. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetrics registers lifecycle collectors on reg. Metrics stay disabled
// when never called.
func (b *Builder) WithMetrics(reg prometheus.Registerer) *Builder {
	b.registry = reg
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if err := b.config.validate(); err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(b.config.JWT)
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if b.registry != nil {
		m = metrics.New(b.registry)
	}

	b.built = true
	return &Engine{
		config:    b.config,
		sessions:  session.NewStore(b.redis, b.config.RedisPrefix, b.config.Session, b.logger),
		tokens:    issuer,
		blacklist: token.NewBlacklist(b.redis, b.config.RedisPrefix, b.config.RevocationCheckTimeout, b.logger),
		users:     b.userProvider,
		metrics:   m,
		logger:    b.logger.With().Str("component", "authcore").Logger(),
	}, nil
}
