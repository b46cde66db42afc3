// Package database implements the D-node: local-id issuance, the
// GlobalStock registry, and the order-result log (spec §4.3).
package database

import (
	"fmt"
	"sync"
	"time"

	"github.com/ferriscommerce/fabric/internal/model"
)

// OrderResultRecord is one entry of the D-node's append-only order-results
// log (spec §3 PendingDeliveries/OrderResults).
type OrderResultRecord struct {
	LocalID    uint16
	Order      model.Order
	Completed  bool
	RecordedAt time.Time
}

// Registry is the D-node's single source of truth: local-id allocation and
// the aggregate per-local stock snapshot. All methods are safe for
// concurrent use; per spec §4.3, ordering is only guaranteed within a
// single connection, which the connection handler enforces by processing
// each peer's messages serially.
type Registry struct {
	mu sync.Mutex

	lastLocalID uint16
	stock       map[uint16]model.Stock // GlobalStock
	results     []OrderResultRecord

	knownEcommerceIDs map[uint16]bool
}

// NewRegistry returns an empty D-node registry.
func NewRegistry() *Registry {
	return &Registry{
		stock:             make(map[uint16]model.Stock),
		knownEcommerceIDs: make(map[uint16]bool),
	}
}

// GetNewLocalID assigns and returns the next local-shop identifier.
// Guarantees the "unique local-id assignment" property of spec §8: every
// call under the same Registry returns a distinct value.
func (r *Registry) GetNewLocalID() uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLocalID++
	r.stock[r.lastLocalID] = make(model.Stock)
	return r.lastLocalID
}

// CheckLocalID reports whether local_id was previously issued by this
// registry (spec §3 GlobalStock invariant).
func (r *Registry) CheckLocalID(localID uint16) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stock[localID]
	return ok
}

// NoteEcommerceID records that an e-commerce node with this ss_id has
// introduced itself (TakeMyEcommerceId, spec §4.1). The spec defines no
// reply for this request; D-node bookkeeping only (see DESIGN.md).
func (r *Registry) NoteEcommerceID(ssID uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.knownEcommerceIDs[ssID] = true
}

// PostStockFromLocal overwrites the snapshot for local_id (spec §4.3). The
// local_id must have been previously issued.
func (r *Registry) PostStockFromLocal(localID uint16, stock model.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stock[localID]; !ok {
		return fmt.Errorf("database: unknown local_id %d", localID)
	}
	r.stock[localID] = stock.Clone()
	return nil
}

// GetProductQuantityFromAllLocals answers a stock query, returning 0 for
// locals with no entry for that product name (spec §4.3).
func (r *Registry) GetProductQuantityFromAllLocals(productName string) map[uint16]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint16]int, len(r.stock))
	for localID, s := range r.stock {
		out[localID] = s[productName]
	}
	return out
}

// ProductQuantityForLocal returns one local's quantity of productName,
// used by the cache-aside path to fill a single miss without recomputing
// the whole-registry snapshot.
func (r *Registry) ProductQuantityForLocal(localID uint16, productName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stock[localID][productName]
}

// LocalIDs returns every local-id issued so far, used by the connection
// handler to probe the read-through cache one local at a time.
func (r *Registry) LocalIDs() []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint16, 0, len(r.stock))
	for id := range r.stock {
		out = append(out, id)
	}
	return out
}

// PostOrderResult appends the result to the audit log and, for a completed
// order, decrements localID's per-product quantities by the order's line
// items. For a completed order every product must already exist (with
// sufficient quantity) on that local's snapshot, per spec §4.3's rejection
// rule; a cancelled order leaves the snapshot untouched.
func (r *Registry) PostOrderResult(localID uint16, order model.Order, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, ok := r.stock[localID]
	if !ok {
		return fmt.Errorf("database: unknown local_id %d", localID)
	}

	if completed {
		for _, p := range order.Products {
			if snapshot[p.Name] < p.Quantity {
				return fmt.Errorf("database: local %d snapshot has insufficient %q (have %d, order took %d)",
					localID, p.Name, snapshot[p.Name], p.Quantity)
			}
		}
		for _, p := range order.Products {
			snapshot[p.Name] -= p.Quantity
		}
	}

	r.results = append(r.results, OrderResultRecord{
		LocalID:    localID,
		Order:      order.Clone(),
		Completed:  completed,
		RecordedAt: time.Now(),
	})
	return nil
}

// Results returns a copy of the order-result log, newest last.
func (r *Registry) Results() []OrderResultRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OrderResultRecord, len(r.results))
	copy(out, r.results)
	return out
}
