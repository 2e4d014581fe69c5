package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// cartDocument is the JSON shape of one guest cart in Redis
type cartDocument struct {
	Items []cartLine `json:"items"`
}

type cartLine struct {
	SKU       string    `json:"sku"`
	Quantity  int64     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Currency  string    `json:"currency"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisCartStore implements cart.Store for guest shoppers. Each owner's cart
// is one JSON document under a device-keyed entry with a sliding TTL, so
// abandoned guest carts expire on their own.
//
// Writes are read-modify-write on the whole document. That is safe here
// because every owner's writes are serialized by the session's single-writer
// queue; the store never sees concurrent writes for the same key.
type RedisCartStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisCartStore creates a Redis-backed guest cart store
func NewRedisCartStore(cfg RedisConfig, ttl time.Duration) (*RedisCartStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCartStoreWithClient(client, "", ttl), nil
}

// NewRedisCartStoreWithClient creates a store with an existing Redis client.
// Useful for testing or when sharing a client across components.
func NewRedisCartStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisCartStore {
	if keyPrefix == "" {
		keyPrefix = "cart:"
	}
	if ttl <= 0 {
		ttl = 720 * time.Hour
	}
	return &RedisCartStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisCartStore) key(ownerID string) string {
	return s.keyPrefix + ownerID
}

// Load returns the stored cart for an owner. A missing key is an empty cart.
func (s *RedisCartStore) Load(ctx context.Context, ownerID string) (*cart.Cart, error) {
	c, err := cart.NewCart(ownerID)
	if err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.key(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var doc cartDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt cart document: %w", err)
	}

	for _, line := range doc.Items {
		item, err := line.toDomain()
		if err != nil {
			return nil, err
		}
		c.Items = append(c.Items, item)
	}
	return c, nil
}

// WriteAdd upserts the line for the item's SKU
func (s *RedisCartStore) WriteAdd(ctx context.Context, ownerID string, item cart.Item) error {
	return s.mutate(ctx, ownerID, func(doc *cartDocument) {
		line := lineFromDomain(item)
		for i := range doc.Items {
			if doc.Items[i].SKU == item.SKU {
				doc.Items[i] = line
				return
			}
		}
		doc.Items = append(doc.Items, line)
	})
}

// WriteRemove deletes the line for a SKU
func (s *RedisCartStore) WriteRemove(ctx context.Context, ownerID string, sku string) error {
	return s.mutate(ctx, ownerID, func(doc *cartDocument) {
		for i := range doc.Items {
			if doc.Items[i].SKU == sku {
				doc.Items = append(doc.Items[:i], doc.Items[i+1:]...)
				return
			}
		}
	})
}

// WriteUpdateQuantity sets the quantity of an existing line
func (s *RedisCartStore) WriteUpdateQuantity(ctx context.Context, ownerID string, sku string, quantity int64) error {
	return s.mutate(ctx, ownerID, func(doc *cartDocument) {
		for i := range doc.Items {
			if doc.Items[i].SKU == sku {
				doc.Items[i].Quantity = quantity
				doc.Items[i].UpdatedAt = time.Now()
				return
			}
		}
	})
}

// WriteClear deletes the owner's cart entry
func (s *RedisCartStore) WriteClear(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, s.key(ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisCartStore) Close() error {
	return s.client.Close()
}

// mutate loads the document, applies fn and writes it back, refreshing the TTL
func (s *RedisCartStore) mutate(ctx context.Context, ownerID string, fn func(*cartDocument)) error {
	key := s.key(ownerID)

	var doc cartDocument
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("corrupt cart document: %w", err)
		}
	}

	fn(&doc)

	if len(doc.Items) == 0 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cart: %w", err)
	}
	return nil
}

func lineFromDomain(item cart.Item) cartLine {
	return cartLine{
		SKU:       item.SKU,
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice.Amount().String(),
		Currency:  string(item.UnitPrice.Currency()),
		AddedAt:   item.AddedAt,
		UpdatedAt: item.UpdatedAt,
	}
}

func (l cartLine) toDomain() (cart.Item, error) {
	amount, err := decimal.NewFromString(l.UnitPrice)
	if err != nil {
		return cart.Item{}, fmt.Errorf("corrupt unit price %q: %w", l.UnitPrice, err)
	}
	currency := valueobject.Currency(l.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	price, err := valueobject.NewMoney(amount, currency)
	if err != nil {
		return cart.Item{}, err
	}
	return cart.Item{
		SKU:       l.SKU,
		Quantity:  l.Quantity,
		UnitPrice: price,
		AddedAt:   l.AddedAt,
		UpdatedAt: l.UpdatedAt,
	}, nil
}

// Ensure RedisCartStore implements cart.Store
var _ cart.Store = (*RedisCartStore)(nil)
