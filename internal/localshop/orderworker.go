package localshop

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
)

// OrderWorker processes one order at a time against the shared Stock
// actor, mirroring the teacher's OrderWorkerActor state machine but
// expressed as a straight-line function instead of a chain of self-sent
// messages (spec §4.4-§4.5): a single worker never handles more than one
// order concurrently, so there is nothing to interleave.
type OrderWorker struct {
	ID    int
	stock *Stock
	log   *zap.Logger
}

// NewOrderWorker builds a worker bound to the shop's stock actor.
func NewOrderWorker(id int, stock *Stock, log *zap.Logger) *OrderWorker {
	return &OrderWorker{ID: id, stock: stock, log: log.With(zap.Int("worker_id", id))}
}

// Process runs order to completion and reports whether it was fulfilled.
// Local orders take stock directly and roll back via Restore on the first
// missing product. Web orders reserve every product first, then commit
// each reservation with a 60% probability per product (spec §4.5); the
// first rollback cancels every remaining untouched reservation but does
// not undo products already committed, matching the teacher's behavior.
func (w *OrderWorker) Process(order model.Order) bool {
	w.log.Info("handling new order", zap.Uint64("order_id", order.ID), zap.String("kind", order.Kind.String()))

	if order.IsWeb() {
		return w.processWeb(order.Products)
	}
	return w.processLocal(order.Products)
}

func (w *OrderWorker) processLocal(products []model.Product) bool {
	taken := make([]model.Product, 0, len(products))
	for _, p := range products {
		if _, err := w.stock.Take(p); err != nil {
			w.log.Info("stock missing, restoring taken products", zap.String("product", p.Name))
			for _, tp := range taken {
				w.stock.Restore(tp)
			}
			return false
		}
		taken = append(taken, p)
	}
	return true
}

func (w *OrderWorker) processWeb(products []model.Product) bool {
	reserved := make([]model.Product, 0, len(products))
	for _, p := range products {
		if err := w.stock.Reserve(p); err != nil {
			w.log.Info("stock missing, unreserving held products", zap.String("product", p.Name))
			for _, rp := range reserved {
				_ = w.stock.Unreserve(rp)
			}
			return false
		}
		reserved = append(reserved, p)
	}

	for i := len(reserved) - 1; i >= 0; i-- {
		p := reserved[i]
		if rand.Intn(10) >= 6 {
			w.log.Info("randomly not recalled, unreserving remaining products", zap.String("product", p.Name))
			for j := i; j >= 0; j-- {
				_ = w.stock.Unreserve(reserved[j])
			}
			return false
		}
		if _, err := w.stock.TakeReserved(p); err != nil {
			w.log.Error("take reserved failed unexpectedly", zap.Error(err))
			return false
		}
	}
	return true
}
