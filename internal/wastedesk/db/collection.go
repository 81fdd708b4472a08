package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"github.com/gartstein/wastedesk/internal/wastedesk/models"
)

// Document keys of the domain collections.
const (
	KeyEntities    = "entities"
	KeyWasteTypes  = "waste_types"
	KeyAgreements  = "agreements"
	KeyOrderTypes  = "order_types"
	KeyOrders      = "orders"
	KeyAuditLog    = "audit_log"
	KeySeedVersion = "meta:seed_version"
	KeyOrderSeq    = "meta:order_seq"
)

// CollectionKeys lists the collection keys in seeding order.
var CollectionKeys = []string{KeyEntities, KeyWasteTypes, KeyAgreements, KeyOrderTypes, KeyOrders, KeyAuditLog}

// Collection is a typed view of one document holding a JSON array of T.
type Collection[T any] struct {
	store DocumentStore
	key   string
	mu    *sync.Mutex
}

// NewCollection binds key of store. Collections sharing mu serialise their writes.
func NewCollection[T any](store DocumentStore, key string, mu *sync.Mutex) *Collection[T] {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &Collection[T]{store: store, key: key, mu: mu}
}

// Key returns the document key.
func (c *Collection[T]) Key() string {
	return c.key
}

// List returns every record. A document that was never written reads as empty.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	data, err := c.store.Get(ctx, c.key)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", c.key, err)
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Update reads the collection, applies fn and writes the result back as one
// document. Concurrent updates through the same mutex never interleave.
func (c *Collection[T]) Update(ctx context.Context, fn func(items []T) ([]T, error)) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := fn(items)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		updated = []T{}
	}
	data, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", c.key, err)
	}
	if err := c.store.Put(ctx, c.key, data); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", c.key, err)
	}
	return updated, nil
}

// Sequence is a counter document that never moves backwards.
type Sequence struct {
	store DocumentStore
	key   string
}

func NewSequence(store DocumentStore, key string) *Sequence {
	return &Sequence{store: store, key: key}
}

// Next stores and returns the value following both the stored counter and
// floor. Callers serialise Next with the writes that consume its value.
func (q *Sequence) Next(ctx context.Context, floor int) (int, error) {
	current := 0
	data, err := q.store.Get(ctx, q.key)
	switch {
	case errors.Is(err, e.ErrNotFound):
	case err != nil:
		return 0, fmt.Errorf("failed to read %s: %w", q.key, err)
	default:
		if current, err = strconv.Atoi(string(data)); err != nil {
			return 0, fmt.Errorf("failed to decode %s: %w", q.key, err)
		}
	}
	next := max(current, floor) + 1
	if err := q.store.Put(ctx, q.key, []byte(strconv.Itoa(next))); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", q.key, err)
	}
	return next, nil
}

// AuditRecord is one entry of the audit log.
type AuditRecord struct {
	ID         string `json:"id"`
	EventType  string `json:"eventType"`
	ResourceID string `json:"resourceId"`
	OccurredAt string `json:"occurredAt"`
	Payload    string `json:"payload,omitempty"`
}

// Collections bundles the typed collections over one store.
type Collections struct {
	Entities   *Collection[models.Entity]
	WasteTypes *Collection[models.WasteType]
	Agreements *Collection[models.Agreement]
	OrderTypes *Collection[models.OrderType]
	Orders     *Collection[models.Order]
	AuditLog   *Collection[AuditRecord]
	OrderSeq   *Sequence
}

// NewCollections returns collections sharing one write lock.
func NewCollections(store DocumentStore) *Collections {
	mu := &sync.Mutex{}
	return &Collections{
		Entities:   NewCollection[models.Entity](store, KeyEntities, mu),
		WasteTypes: NewCollection[models.WasteType](store, KeyWasteTypes, mu),
		Agreements: NewCollection[models.Agreement](store, KeyAgreements, mu),
		OrderTypes: NewCollection[models.OrderType](store, KeyOrderTypes, mu),
		Orders:     NewCollection[models.Order](store, KeyOrders, mu),
		AuditLog:   NewCollection[AuditRecord](store, KeyAuditLog, mu),
		OrderSeq:   NewSequence(store, KeyOrderSeq),
	}
}
