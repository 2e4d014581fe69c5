package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdentityKind distinguishes guest devices from authenticated users
type IdentityKind string

const (
	IdentityGuest IdentityKind = "guest"
	IdentityUser  IdentityKind = "user"
)

// Identity names the owner of a cart session
type Identity struct {
	Kind IdentityKind
	ID   string
}

// NewGuestIdentity creates a guest identity from a device ID
func NewGuestIdentity(deviceID string) Identity {
	return Identity{Kind: IdentityGuest, ID: deviceID}
}

// NewUserIdentity creates an authenticated identity from a user ID
func NewUserIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, ID: userID}
}

// OwnerID returns the store key for this identity
func (i Identity) OwnerID() string {
	return fmt.Sprintf("%s:%s", i.Kind, i.ID)
}

// IsValid checks that the identity is fully specified
func (i Identity) IsValid() bool {
	return i.ID != "" && (i.Kind == IdentityGuest || i.Kind == IdentityUser)
}

// Manager owns cart sessions, one per identity, and routes each to the
// matching store: device-keyed for guests, server-backed for authenticated
// users. Sessions are created lazily on first access. The manager is an
// explicit construction-scoped dependency, not a package singleton.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	userStore  cart.Store
	guestStore cart.Store
	catalog    catalog.Lookup
	bus        shared.EventPublisher
	cfg        Config
	logger     *zap.Logger
}

// NewManager creates a session manager
func NewManager(userStore, guestStore cart.Store, lookup catalog.Lookup, bus shared.EventPublisher, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		sessions:   make(map[string]*Session),
		userStore:  userStore,
		guestStore: guestStore,
		catalog:    lookup,
		bus:        bus,
		cfg:        cfg,
		logger:     logger,
	}
}

// Session returns the session for an identity, opening one on first access
func (m *Manager) Session(ctx context.Context, identity Identity) (*Session, error) {
	if !identity.IsValid() {
		return nil, shared.NewDomainError("INVALID_IDENTITY", "Cart identity must have a kind and an ID")
	}

	ownerID := identity.OwnerID()

	m.mu.Lock()
	if s, ok := m.sessions[ownerID]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	s, err := Open(ctx, ownerID, m.storeFor(identity), m.catalog, m.bus, m.cfg, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[ownerID]; ok {
		// Lost the open race; keep the first session.
		s.Close()
		return existing, nil
	}
	m.sessions[ownerID] = s
	return s, nil
}

// Authenticate transitions a guest session to an authenticated user,
// applying the configured MergePolicy, and re-registers the session under
// the user identity. The guest registration is dropped.
func (m *Manager) Authenticate(ctx context.Context, guest Identity, user Identity) (*Session, error) {
	if guest.Kind != IdentityGuest || user.Kind != IdentityUser {
		return nil, shared.NewDomainError("INVALID_IDENTITY", "Authenticate requires a guest and a user identity")
	}

	s, err := m.Session(ctx, guest)
	if err != nil {
		return nil, err
	}

	if _, err := s.SwitchIdentity(ctx, user.OwnerID(), m.userStore); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, guest.OwnerID())
	if existing, ok := m.sessions[user.OwnerID()]; ok {
		// The user already had a live session elsewhere; drop the stale one
		// and hand back the merged session.
		existing.Close()
	}
	m.sessions[user.OwnerID()] = s
	return s, nil
}

// Close shuts down all sessions, draining their write queues
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (m *Manager) storeFor(identity Identity) cart.Store {
	if identity.Kind == IdentityUser {
		return m.userStore
	}
	return m.guestStore
}
