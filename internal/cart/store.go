package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"belajoia/backend/internal/domain"
	"belajoia/backend/internal/kv"
)

const eventsChannel = "belajoia:cart-events"

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// ProductRef is the product snapshot copied into a line item when it is
// first added.
type ProductRef struct {
	ID       string
	Title    string
	Price    float64
	PixPrice float64
	Image    string
}

// Event announces that a cart changed. Count is the new total quantity.
type Event struct {
	CartID string `json:"cart_id"`
	Count  int    `json:"count"`
}

type relayMessage struct {
	Origin string `json:"origin"`
	Event
}

// Store owns every cart snapshot. Each mutation rewrites the whole snapshot
// and notifies subscribers of that cart.
type Store struct {
	locksMu sync.Mutex
	locks   map[string]*cartLock
	backend kv.Store
	bus     kv.Broadcaster
	logger  *zap.Logger
	origin  string

	subsMu  sync.Mutex
	subs    map[string]map[uint64]chan Event
	nextSub uint64
}

func NewStore(backend kv.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		backend: backend,
		logger:  logger,
		origin:  uuid.NewString(),
		locks:   make(map[string]*cartLock),
		subs:    make(map[string]map[uint64]chan Event),
	}
	if bus, ok := backend.(kv.Broadcaster); ok {
		s.bus = bus
	}
	return s
}

func snapshotKey(cartID string) string {
	return "cart:" + cartID
}

// Load returns the current items. A missing, unreadable or corrupt snapshot
// yields an empty cart.
func (s *Store) Load(ctx context.Context, cartID string) []domain.CartLineItem {
	items, err := s.read(ctx, cartID)
	if err != nil {
		s.logger.Warn("cart snapshot read failed", zap.String("cart_id", cartID), zap.Error(err))
		return []domain.CartLineItem{}
	}
	return items
}

// read fails only when the backend does. A corrupt snapshot reads as empty so
// the next write replaces it.
func (s *Store) read(ctx context.Context, cartID string) ([]domain.CartLineItem, error) {
	raw, ok, err := s.backend.Get(ctx, snapshotKey(cartID))
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return []domain.CartLineItem{}, nil
	}

	var items []domain.CartLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("cart snapshot is corrupt", zap.String("cart_id", cartID), zap.Error(err))
		return []domain.CartLineItem{}, nil
	}

	kept := make([]domain.CartLineItem, 0, len(items))
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}

// Add increments the quantity of an existing line or appends a new one.
func (s *Store) Add(ctx context.Context, cartID string, product ProductRef) ([]domain.CartLineItem, error) {
	return s.mutate(ctx, cartID, func(items []domain.CartLineItem) []domain.CartLineItem {
		for i := range items {
			if items[i].ID == product.ID {
				items[i].Quantity++
				return items
			}
		}
		return append(items, domain.CartLineItem{
			ID:       product.ID,
			Title:    product.Title,
			Price:    product.Price,
			PixPrice: product.PixPrice,
			Image:    product.Image,
			Quantity: 1,
		})
	})
}

// UpdateQuantity sets the quantity of item id. Quantities below 1 are
// rejected and leave the cart unchanged.
func (s *Store) UpdateQuantity(ctx context.Context, cartID string, id string, quantity int) ([]domain.CartLineItem, error) {
	if quantity < 1 {
		return s.Load(ctx, cartID), ErrInvalidQuantity
	}
	return s.mutate(ctx, cartID, func(items []domain.CartLineItem) []domain.CartLineItem {
		for i := range items {
			if items[i].ID == id {
				items[i].Quantity = quantity
			}
		}
		return items
	})
}

func (s *Store) Remove(ctx context.Context, cartID string, id string) ([]domain.CartLineItem, error) {
	return s.mutate(ctx, cartID, func(items []domain.CartLineItem) []domain.CartLineItem {
		kept := items[:0]
		for _, item := range items {
			if item.ID != id {
				kept = append(kept, item)
			}
		}
		return kept
	})
}

func (s *Store) Clear(ctx context.Context, cartID string) ([]domain.CartLineItem, error) {
	return s.mutate(ctx, cartID, func(_ []domain.CartLineItem) []domain.CartLineItem {
		return []domain.CartLineItem{}
	})
}

func (s *Store) mutate(ctx context.Context, cartID string, apply func([]domain.CartLineItem) []domain.CartLineItem) ([]domain.CartLineItem, error) {
	unlock := s.lock(cartID)
	current, err := s.read(ctx, cartID)
	if err != nil {
		unlock()
		return nil, err
	}
	items := apply(current)
	payload, err := json.Marshal(items)
	if err != nil {
		unlock()
		return nil, err
	}
	if err := s.backend.Set(ctx, snapshotKey(cartID), string(payload)); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	s.notify(ctx, Event{CartID: cartID, Count: Count(items)})
	return items, nil
}

type cartLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes mutations of one cart. Entries are dropped once no caller
// holds or waits on them.
func (s *Store) lock(cartID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[cartID]
	if !ok {
		l = &cartLock{}
		s.locks[cartID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, cartID)
		}
		s.locksMu.Unlock()
	}
}

// Count is the total quantity across all lines.
func Count(items []domain.CartLineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
