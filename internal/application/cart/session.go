package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/cart"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MergePolicy controls what happens to a guest cart when its owner signs in
type MergePolicy string

const (
	// MergePolicyMerge folds guest lines into the server cart, summing
	// quantities and clamping against current stock
	MergePolicyMerge MergePolicy = "merge"
	// MergePolicyReplace discards the guest cart; the server cart wins
	MergePolicyReplace MergePolicy = "replace"
	// MergePolicyAdopt overwrites the server cart with the guest cart
	MergePolicyAdopt MergePolicy = "adopt"
)

// IsValid checks if the policy is a valid MergePolicy
func (p MergePolicy) IsValid() bool {
	switch p {
	case MergePolicyMerge, MergePolicyReplace, MergePolicyAdopt:
		return true
	}
	return false
}

// Config holds reconciliation policies and tuning for a session
type Config struct {
	StockPolicy    cart.StockPolicy
	MergePolicy    MergePolicy
	WriteQueueSize int
	WriteTimeout   time.Duration
}

// DefaultConfig returns the storefront defaults: silent clamping, merge on
// sign-in, a modest write queue
func DefaultConfig() Config {
	return Config{
		StockPolicy:    cart.StockPolicyClamp,
		MergePolicy:    MergePolicyMerge,
		WriteQueueSize: 64,
		WriteTimeout:   5 * time.Second,
	}
}

type writeOp int

const (
	opAdd writeOp = iota
	opRemove
	opUpdateQuantity
	opClear
	opFlush
)

// writeJob is one queued persistence write. epoch ties the job to the local
// state it was derived from: jobs older than the last reload are discarded
// because their optimistic state has already been thrown away.
type writeJob struct {
	op       writeOp
	item     cart.Item
	sku      string
	quantity int64
	epoch    uint64
	ack      chan struct{}
}

// Session is the cart reconciliation core for a single owner.
//
// Mutations validate intent against the catalog, apply to local state
// immediately (optimistic), and enqueue the corresponding store write on a
// single-writer queue. The worker goroutine executes writes in issue order;
// on any write failure it reloads the authoritative cart from the store and
// replaces local state wholesale. No retry, no partial recovery: the store
// is always eventually authoritative and the local view is advisory.
type Session struct {
	mu      sync.RWMutex
	ownerID string
	state   *cart.Cart
	loading bool
	epoch   uint64

	store   cart.Store
	catalog catalog.Lookup
	bus     shared.EventPublisher
	cfg     Config
	logger  *zap.Logger

	subsMu sync.Mutex
	subs   []func(View)

	writes    chan writeJob
	workerWG  sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// Open creates a session and performs the initial load from the store.
// The load is blocking; the returned session is ready for mutations.
func Open(ctx context.Context, ownerID string, store cart.Store, lookup catalog.Lookup, bus shared.EventPublisher, cfg Config, logger *zap.Logger) (*Session, error) {
	if !cfg.StockPolicy.IsValid() {
		cfg.StockPolicy = cart.StockPolicyClamp
	}
	if !cfg.MergePolicy.IsValid() {
		cfg.MergePolicy = MergePolicyMerge
	}
	if cfg.WriteQueueSize <= 0 {
		cfg.WriteQueueSize = 64
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		ownerID: ownerID,
		loading: true,
		store:   store,
		catalog: lookup,
		bus:     bus,
		cfg:     cfg,
		logger:  logger.With(zap.String("owner_id", ownerID)),
		writes:  make(chan writeJob, cfg.WriteQueueSize),
		closed:  make(chan struct{}),
	}

	loaded, err := store.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.state = loaded
	s.loading = false

	s.workerWG.Add(1)
	go s.worker()

	return s, nil
}

// Close stops the write worker after draining queued writes. A caller still
// holding the session may keep mutating it; those mutations apply locally
// but their store writes are dropped.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.workerWG.Wait()
	})
}

// OwnerID returns the identity this session serves
func (s *Session) OwnerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID
}

// Snapshot returns the current cart view
func (s *Session) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newView(s.state, s.loading)
}

// IsInCart reports whether the SKU currently has a line. Pure read.
func (s *Session) IsInCart(sku string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Contains(sku)
}

// GetItem returns the current line for a SKU. Pure read.
func (s *Session) GetItem(sku string) (cart.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Item(sku)
}

// Subscribe registers a callback invoked with a fresh View after every state
// change, including reloads after failed writes
func (s *Session) Subscribe(fn func(View)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

// Add adds requested units of a SKU to the cart.
//
// Unknown or unavailable products are a silent no-op under the clamp policy
// (logged, current view returned); under the reject policy they surface an
// error. Quantities exceeding stock follow the configured StockPolicy.
func (s *Session) Add(ctx context.Context, sku string, quantity int64) (View, error) {
	if quantity <= 0 {
		quantity = 1
	}

	info, err := s.catalog.GetProduct(ctx, sku)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) && s.cfg.StockPolicy == cart.StockPolicyClamp {
			s.logger.Warn("add ignored: product not in catalog", zap.String("sku", sku))
			return s.Snapshot(), nil
		}
		return s.Snapshot(), err
	}

	stock := info.StockCount
	if !info.Available {
		stock = 0
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return View{Loading: true}, shared.ErrCartLoading
	}

	applied, err := s.state.AddItem(sku, quantity, info.Price, stock, s.cfg.StockPolicy)
	if err != nil {
		view := newView(s.state, false)
		s.mu.Unlock()
		return view, err
	}

	var job *writeJob
	if applied > 0 {
		item, _ := s.state.Item(sku)
		job = &writeJob{op: opAdd, item: item, epoch: s.epoch}
	}
	view, events := s.collect()
	s.mu.Unlock()

	s.afterMutation(ctx, view, events, job)
	return view, nil
}

// Remove deletes the line for a SKU. Removing an absent SKU is a no-op.
func (s *Session) Remove(ctx context.Context, sku string) (View, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return View{Loading: true}, shared.ErrCartLoading
	}

	removed := s.state.RemoveItem(sku)
	var job *writeJob
	if removed {
		job = &writeJob{op: opRemove, sku: sku, epoch: s.epoch}
	}
	view, events := s.collect()
	s.mu.Unlock()

	s.afterMutation(ctx, view, events, job)
	return view, nil
}

// UpdateQuantity sets the line quantity for a SKU.
// A quantity of zero or less behaves as Remove. Updating a SKU that is not in
// the cart is logged and ignored under the clamp policy, surfaced under the
// reject policy.
func (s *Session) UpdateQuantity(ctx context.Context, sku string, quantity int64) (View, error) {
	if quantity <= 0 {
		return s.Remove(ctx, sku)
	}

	info, err := s.catalog.GetProduct(ctx, sku)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) && s.cfg.StockPolicy == cart.StockPolicyClamp {
			s.logger.Warn("update ignored: product not in catalog", zap.String("sku", sku))
			return s.Snapshot(), nil
		}
		return s.Snapshot(), err
	}

	stock := info.StockCount
	if !info.Available {
		stock = 0
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return View{Loading: true}, shared.ErrCartLoading
	}

	hadLine := s.state.Contains(sku)
	err = s.state.UpdateItemQuantity(sku, quantity, stock, s.cfg.StockPolicy)
	if err != nil {
		view := newView(s.state, false)
		s.mu.Unlock()
		if errors.Is(err, shared.ErrNotFound) && s.cfg.StockPolicy == cart.StockPolicyClamp {
			s.logger.Warn("update ignored: SKU not in cart", zap.String("sku", sku))
			return view, nil
		}
		return view, err
	}

	var job *writeJob
	if hadLine {
		if item, ok := s.state.Item(sku); ok {
			job = &writeJob{op: opUpdateQuantity, sku: sku, quantity: item.Quantity, epoch: s.epoch}
		} else {
			// Clamped to zero: the line is gone.
			job = &writeJob{op: opRemove, sku: sku, epoch: s.epoch}
		}
	}
	view, events := s.collect()
	s.mu.Unlock()

	s.afterMutation(ctx, view, events, job)
	return view, nil
}

// Clear empties the cart
func (s *Session) Clear(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return View{Loading: true}, shared.ErrCartLoading
	}

	wasEmpty := s.state.IsEmpty()
	s.state.Clear()
	var job *writeJob
	if !wasEmpty {
		job = &writeJob{op: opClear, epoch: s.epoch}
	}
	view, events := s.collect()
	s.mu.Unlock()

	s.afterMutation(ctx, view, events, job)
	return view, nil
}

// Flush blocks until every write queued before the call has been executed,
// including any reload triggered by a failed write
func (s *Session) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case s.writes <- writeJob{op: opFlush, ack: ack}:
	case <-s.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-s.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SwitchIdentity transitions the session to a new owner and store, applying
// the configured MergePolicy. Pending writes for the old owner are drained
// first; mutations issued concurrently are rejected with ErrCartLoading while
// the transition is in flight.
func (s *Session) SwitchIdentity(ctx context.Context, newOwnerID string, newStore cart.Store) (View, error) {
	if err := s.Flush(ctx); err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return View{Loading: true}, shared.ErrCartLoading
	}
	s.loading = true
	guest := s.state.Clone()
	oldOwnerID := s.ownerID
	s.mu.Unlock()

	merged, err := s.reconcileIdentity(ctx, guest, newOwnerID, newStore)
	if err != nil {
		// Fall back to the authoritative server cart.
		s.logger.Error("identity merge failed, loading server cart", zap.Error(err))
		merged, err = newStore.Load(ctx, newOwnerID)
		if err != nil {
			s.mu.Lock()
			s.loading = false
			view := newView(s.state, false)
			s.mu.Unlock()
			return view, err
		}
	}

	merged.AddDomainEvent(cart.NewMergedEvent(merged, oldOwnerID))

	s.mu.Lock()
	s.ownerID = newOwnerID
	s.store = newStore
	s.state = merged
	s.loading = false
	s.epoch++
	view, events := s.collect()
	s.mu.Unlock()

	s.publish(ctx, events)
	s.notify(view)
	return view, nil
}

// reconcileIdentity builds the post-sign-in cart per the merge policy and
// persists it to the new store
func (s *Session) reconcileIdentity(ctx context.Context, guest *cart.Cart, newOwnerID string, newStore cart.Store) (*cart.Cart, error) {
	server, err := newStore.Load(ctx, newOwnerID)
	if err != nil {
		return nil, err
	}

	switch s.cfg.MergePolicy {
	case MergePolicyReplace:
		return server, nil

	case MergePolicyAdopt:
		if err := newStore.WriteClear(ctx, newOwnerID); err != nil {
			return nil, err
		}
		adopted, err := cart.NewCart(newOwnerID)
		if err != nil {
			return nil, err
		}
		for i := range guest.Items {
			line := guest.Items[i]
			if _, err := adopted.AddItem(line.SKU, line.Quantity, line.UnitPrice, line.Quantity, s.cfg.StockPolicy); err != nil {
				return nil, err
			}
			item, _ := adopted.Item(line.SKU)
			if err := newStore.WriteAdd(ctx, newOwnerID, item); err != nil {
				return nil, err
			}
		}
		adopted.ClearDomainEvents()
		return adopted, nil

	default: // MergePolicyMerge
		for i := range guest.Items {
			line := guest.Items[i]
			info, err := s.catalog.GetProduct(ctx, line.SKU)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					s.logger.Warn("merge skipped: product no longer in catalog", zap.String("sku", line.SKU))
					continue
				}
				return nil, err
			}
			stock := info.StockCount
			if !info.Available {
				stock = 0
			}
			applied, err := server.AddItem(line.SKU, line.Quantity, line.UnitPrice, stock, cart.StockPolicyClamp)
			if err != nil {
				return nil, err
			}
			if applied == 0 {
				continue
			}
			item, _ := server.Item(line.SKU)
			if err := newStore.WriteAdd(ctx, newOwnerID, item); err != nil {
				return nil, err
			}
		}
		server.ClearDomainEvents()
		return server, nil
	}
}

// collect builds a view and drains pending domain events. Callers must hold mu.
func (s *Session) collect() (View, []shared.DomainEvent) {
	view := newView(s.state, s.loading)
	events := s.state.GetDomainEvents()
	s.state.ClearDomainEvents()
	return view, events
}

// afterMutation publishes domain events, notifies subscribers and enqueues
// the persistence write
func (s *Session) afterMutation(ctx context.Context, view View, events []shared.DomainEvent, job *writeJob) {
	s.publish(ctx, events)
	s.notify(view)
	if job != nil {
		select {
		case s.writes <- *job:
		case <-s.closed:
		}
	}
}

func (s *Session) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.bus == nil || len(events) == 0 {
		return
	}
	if err := s.bus.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish cart events", zap.Error(err))
	}
}

func (s *Session) notify(view View) {
	s.subsMu.Lock()
	subs := make([]func(View), len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()
	for _, fn := range subs {
		fn(view)
	}
}

// worker executes queued writes one at a time, in issue order. A failed
// write triggers a reload from the store; jobs derived from the discarded
// optimistic state (older epoch) are skipped. On Close the worker finishes
// whatever is already queued, then exits. The writes channel is never
// closed, so a mutation racing Close can still enqueue safely.
func (s *Session) worker() {
	defer s.workerWG.Done()

	for {
		select {
		case job := <-s.writes:
			s.process(job)
		case <-s.closed:
			for {
				select {
				case job := <-s.writes:
					s.process(job)
				default:
					return
				}
			}
		}
	}
}

func (s *Session) process(job writeJob) {
	if job.op == opFlush {
		close(job.ack)
		return
	}

	s.mu.RLock()
	stale := job.epoch != s.epoch
	ownerID := s.ownerID
	store := s.store
	s.mu.RUnlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	err := s.execute(ctx, store, ownerID, job)
	cancel()
	if err != nil {
		s.logger.Error("cart store write failed, reloading authoritative state",
			zap.String("sku", job.sku),
			zap.Error(err),
		)
		s.reload(store, ownerID)
	}
}

func (s *Session) execute(ctx context.Context, store cart.Store, ownerID string, job writeJob) error {
	switch job.op {
	case opAdd:
		return store.WriteAdd(ctx, ownerID, job.item)
	case opRemove:
		return store.WriteRemove(ctx, ownerID, job.sku)
	case opUpdateQuantity:
		return store.WriteUpdateQuantity(ctx, ownerID, job.sku, job.quantity)
	case opClear:
		return store.WriteClear(ctx, ownerID)
	}
	return nil
}

// reload replaces local state with the store's authoritative cart and bumps
// the epoch so queued writes from the discarded state are dropped
func (s *Session) reload(store cart.Store, ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()

	authoritative, err := store.Load(ctx, ownerID)
	if err != nil {
		// The store is unreachable; keep the optimistic state rather than
		// presenting an empty cart. The next successful load resyncs.
		s.logger.Error("authoritative reload failed, keeping local state", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.ownerID != ownerID {
		// An identity transition won the race; its state is newer.
		s.mu.Unlock()
		return
	}
	s.state = authoritative
	s.epoch++
	view := newView(s.state, s.loading)
	s.mu.Unlock()

	s.notify(view)
}
