package goCred

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/codec"
	"github.com/MrEthical07/goCred/credential"
	"github.com/MrEthical07/goCred/grant"
	"github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/limiters"
	"github.com/MrEthical07/goCred/internal/otp"
	"github.com/MrEthical07/goCred/internal/reset"
	"github.com/MrEthical07/goCred/internal/stores"
	"github.com/MrEthical07/goCred/metrics"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/policy"
)

// Builder assembles an Engine. A Builder can build exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	storage    credential.Storage
	hasher     Hasher
	auditSink  AuditSink
	logger     *zap.Logger
	clock      Clock
	registerer prometheus.Registerer

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStorage sets the credential store. Required.
func (b *Builder) WithStorage(storage credential.Storage) *Builder {
	b.storage = storage
	return b
}

// WithHasher overrides the default Argon2id hasher.
func (b *Builder) WithHasher(hasher Hasher) *Builder {
	b.hasher = hasher
	return b
}

// WithRedis backs OTP challenges and reset request throttling with Redis.
// Without it challenges live in process memory and throttling is off.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the audit destination. Auditing must also be enabled in
// Config.Audit.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for internal failures. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the system clock.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithMetricsRegisterer sets where collectors are registered and enables
// metrics.
func (b *Builder) WithMetricsRegisterer(reg prometheus.Registerer) *Builder {
	b.registerer = reg
	b.config.Metrics.Enabled = true
	return b
}

// Build validates the configuration and returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.storage == nil {
		return nil, errors.New("credential storage required")
	}

	engine := &Engine{
		config:   cloneConfig(cfg),
		storage:  b.storage,
		logger:   b.logger,
		clock:    b.clock,
		age:      policy.NewAgePolicy(cfg.PasswordAge),
		lockout:  policy.NewLockoutPolicy(cfg.Lockout),
		history:  policy.NewHistoryGuard(cfg.History),
		strength: policy.NewStrengthPolicy(cfg.Strength),
		resets:   reset.NewManager(cfg.PasswordReset.TokenTTL),
	}
	if engine.logger == nil {
		engine.logger = zap.NewNop()
	}
	if engine.clock == nil {
		engine.clock = SystemClock{}
	}
	if replacer, ok := b.storage.(credential.PasswordReplacer); ok {
		engine.replacer = replacer
	}

	engine.hasher = b.hasher
	if engine.hasher == nil {
		ph, err := password.NewArgon2(password.Config{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,

			AcceptIdentityHashes: cfg.Password.AcceptIdentityHashes,
		})
		if err != nil {
			return nil, err
		}
		engine.hasher = ph
	}
	if cfg.Password.UpgradeOnLogin {
		if upgradable, ok := engine.hasher.(UpgradableHasher); ok {
			engine.upgrader = upgradable
		}
	}
	engine.decoyHash = newDecoyHash(engine.hasher)

	var otpStore otp.Store
	if b.redis != nil {
		otpStore = stores.NewRedisOTPChallengeStore(b.redis, cfg.OTP.RedisPrefix)
		if cfg.PasswordReset.EnableIdentifierThrottle || cfg.PasswordReset.EnableIPThrottle {
			engine.resetLimiter = limiters.NewResetRequestLimiter(b.redis, limiters.ResetRequestConfig{
				EnableIdentifierThrottle: cfg.PasswordReset.EnableIdentifierThrottle,
				EnableIPThrottle:         cfg.PasswordReset.EnableIPThrottle,
				Window:                   cfg.PasswordReset.Window,
				MaxRequests:              cfg.PasswordReset.MaxRequests,
			})
		}
	} else {
		otpStore = stores.NewMemoryOTPChallengeStore(engine.clock.Now)
	}
	engine.otp = otp.NewManager(otpStore, otp.Config{
		TTL:         cfg.OTP.TTL,
		MaxAttempts: cfg.OTP.MaxAttempts,
	})

	if len(cfg.Codec.Key) > 0 {
		c, err := codec.New(cfg.Codec.Key)
		if err != nil {
			return nil, err
		}
		engine.codec = c
	}

	if cfg.Grant.Enabled {
		gm, err := grant.NewManager(cfg.Grant.Config)
		if err != nil {
			return nil, err
		}
		engine.grants = gm
	}

	if cfg.Metrics.Enabled {
		m, err := metrics.New(metrics.Options{
			Registerer: b.registerer,
			Namespace:  cfg.Metrics.Namespace,
		})
		if err != nil {
			return nil, err
		}
		engine.metrics = m
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, engine.onAuditFailure)

	b.built = true

	return engine, nil
}
