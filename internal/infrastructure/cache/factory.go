package cache

import (
	"time"

	"github.com/storefront/backend/internal/domain/cart"
	"go.uber.org/zap"
)

// GuestStoreOption configures guest cart store creation
type GuestStoreOption func(*guestStoreOptions)

type guestStoreOptions struct {
	logger           *zap.Logger
	fallbackToMemory bool
	keyPrefix        string
}

// WithLogger sets the logger used during store creation
func WithLogger(logger *zap.Logger) GuestStoreOption {
	return func(o *guestStoreOptions) {
		o.logger = logger
	}
}

// WithInMemoryFallback falls back to an in-memory store when Redis is
// unreachable instead of failing startup. Guest carts then live only as
// long as the process.
func WithInMemoryFallback() GuestStoreOption {
	return func(o *guestStoreOptions) {
		o.fallbackToMemory = true
	}
}

// WithKeyPrefix overrides the Redis key prefix for guest carts
func WithKeyPrefix(prefix string) GuestStoreOption {
	return func(o *guestStoreOptions) {
		o.keyPrefix = prefix
	}
}

// NewGuestCartStore creates the cart.Store used for guest shoppers, backed
// by Redis with the configured TTL.
func NewGuestCartStore(cfg RedisConfig, ttl time.Duration, opts ...GuestStoreOption) (cart.Store, error) {
	options := &guestStoreOptions{
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	store, err := NewRedisCartStore(cfg, ttl)
	if err != nil {
		if options.fallbackToMemory {
			options.logger.Warn("Redis unavailable, using in-memory guest cart store",
				zap.Error(err))
			return NewInMemoryCartStore(), nil
		}
		return nil, err
	}
	if options.keyPrefix != "" {
		store.keyPrefix = options.keyPrefix
	}

	options.logger.Info("guest cart store connected to Redis",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Duration("ttl", ttl))
	return store, nil
}
