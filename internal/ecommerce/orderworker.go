package ecommerce

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
)

type resultNotification struct {
	order     model.Order
	completed bool
}

// OrderWorker drives one web order at a time through Requesting ->
// Choosing -> Dispatching -> AwaitingResult -> Done (spec §4.8). Each
// worker owns a small set of reply channels that the hub's single-actor
// loop posts into from NotifyStock/NotifyResult/NotifyNotTaken, since the
// worker itself runs on its own goroutine independent of the hub mailbox.
type OrderWorker struct {
	ID  uint16
	hub *Hub
	log *zap.Logger

	stockReplies  chan map[uint16]int
	resultReplies chan resultNotification
	notTaken      chan model.Order
}

// NewOrderWorker builds a worker bound to hub, identified by id.
func NewOrderWorker(id uint16, hub *Hub, log *zap.Logger) *OrderWorker {
	return &OrderWorker{
		ID:            id,
		hub:           hub,
		log:           log.With(zap.Uint16("worker_id", id)),
		stockReplies:  make(chan map[uint16]int, 1),
		resultReplies: make(chan resultNotification, 1),
		notTaken:      make(chan model.Order, 1),
	}
}

// NotifyStock delivers a stock query answer to this worker. Called from
// the hub's mailbox goroutine.
func (w *OrderWorker) NotifyStock(productName string, stock map[uint16]int) {
	select {
	case w.stockReplies <- stock:
	default:
	}
}

// NotifyResult delivers an order's settlement to this worker.
func (w *OrderWorker) NotifyResult(order model.Order, completed bool) {
	select {
	case w.resultReplies <- resultNotification{order: order, completed: completed}:
	default:
	}
}

// NotifyNotTaken tells this worker its chosen local could not be reached.
func (w *OrderWorker) NotifyNotTaken(order model.Order) {
	select {
	case w.notTaken <- order:
	default:
	}
}

// Run pulls orders from oh until ctx is cancelled.
func (w *OrderWorker) Run(ctx context.Context, oh *OrderHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case order := <-oh.Next():
			w.process(order)
		}
	}
}

func (w *OrderWorker) process(order model.Order) {
	order.StampOrigin(w.hub.ssID, w.ID)
	w.log.Info("requesting stock for order", zap.Uint64("order_id", order.ID))

	eligible, ok := w.resolveEligibleLocals(order)
	if !ok || len(eligible) == 0 {
		w.log.Warn("no local can fulfill order, dropping", zap.Uint64("order_id", order.ID))
		return
	}

	for {
		localID := smallest(eligible)
		order.AssignLocal(localID)
		w.log.Info("dispatching order", zap.Uint64("order_id", order.ID), zap.Uint16("local_id", localID))
		w.hub.dispatchOrder(order)

		select {
		case res := <-w.resultReplies:
			w.log.Info("order settled", zap.Uint64("order_id", order.ID), zap.Bool("completed", res.completed))
			return
		case <-w.notTaken:
			delete(eligible, localID)
			if len(eligible) == 0 {
				w.log.Warn("all eligible locals exhausted, order failed", zap.Uint64("order_id", order.ID))
				return
			}
		}
	}
}

// resolveEligibleLocals asks the connection handler for each product's
// per-local stock and intersects the locals that can satisfy every line
// (spec §4.8 Choosing phase).
func (w *OrderWorker) resolveEligibleLocals(order model.Order) (map[uint16]bool, bool) {
	var eligible map[uint16]bool

	for _, product := range order.Products {
		w.hub.askStockProduct(w.ID, product.Name)
		stock := <-w.stockReplies

		qualifying := make(map[uint16]bool)
		for localID, qty := range stock {
			if qty >= product.Quantity {
				qualifying[localID] = true
			}
		}

		if eligible == nil {
			eligible = qualifying
		} else {
			for id := range eligible {
				if !qualifying[id] {
					delete(eligible, id)
				}
			}
		}
		if len(eligible) == 0 {
			return eligible, true
		}
	}
	return eligible, true
}

func smallest(ids map[uint16]bool) uint16 {
	list := make([]uint16, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list[0]
}
