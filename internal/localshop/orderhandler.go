package localshop

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
)

// FinishedOrder is handed to the connection handler once a worker settles
// an order, so it can be relayed to the leader (LS OrderCompleted /
// OrderCancelled, spec §4.6). Cancelled local orders are dropped by the
// connection handler instead of being relayed.
type FinishedOrder struct {
	Order     model.Order
	Completed bool
}

// OrderHandler owns the shop's order queues and its pool of OrderWorkers,
// dispatching whichever queue is currently under-represented among busy
// workers so that local and web orders interleave roughly evenly (spec
// §4.6), generalizing the teacher's 50/50 get_order tie-break.
type OrderHandler struct {
	mu      sync.Mutex
	local   []model.Order
	web     []model.Order
	workers []*OrderWorker
	busy    map[int]model.Kind

	Finished chan FinishedOrder

	log *zap.Logger
}

// NewOrderHandler builds a handler over workerCount workers sharing stock,
// pre-seeded with the shop's local order backlog.
func NewOrderHandler(localOrders []model.Order, workerCount int, stock *Stock, log *zap.Logger) *OrderHandler {
	h := &OrderHandler{
		local:    append([]model.Order(nil), localOrders...),
		busy:     make(map[int]model.Kind),
		Finished: make(chan FinishedOrder, 64),
		log:      log,
	}
	for i := 0; i < workerCount; i++ {
		h.workers = append(h.workers, NewOrderWorker(i, stock, log))
	}
	return h
}

// AddWebOrder enqueues a web order delegated by the leader.
func (h *OrderHandler) AddWebOrder(order model.Order) {
	h.mu.Lock()
	h.web = append(h.web, order)
	h.mu.Unlock()
	h.dispatch()
}

// Start kicks off dispatch once worker goroutines may begin pulling
// orders, in response to the console "s" command (spec §6).
func (h *OrderHandler) Start() {
	h.dispatch()
}

// dispatch hands queued orders to any idle worker, preferring whichever
// order kind is currently under-represented among busy workers.
func (h *OrderHandler) dispatch() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, w := range h.workers {
		if _, ok := h.busy[w.ID]; ok {
			continue
		}
		order, ok := h.nextOrderLocked()
		if !ok {
			return
		}
		h.busy[w.ID] = order.Kind
		go h.run(w, order)
	}
}

func (h *OrderHandler) nextOrderLocked() (model.Order, bool) {
	var localBusy, webBusy float64
	for _, k := range h.busy {
		if k == model.Local {
			localBusy++
		} else {
			webBusy++
		}
	}

	localFirst := true
	if localBusy+webBusy > 0 {
		localFirst = localBusy/(localBusy+webBusy) < 0.5
	}

	if localFirst {
		if len(h.local) > 0 {
			return h.pop(&h.local), true
		}
		if len(h.web) > 0 {
			return h.pop(&h.web), true
		}
		return model.Order{}, false
	}
	if len(h.web) > 0 {
		return h.pop(&h.web), true
	}
	if len(h.local) > 0 {
		return h.pop(&h.local), true
	}
	return model.Order{}, false
}

func (h *OrderHandler) pop(queue *[]model.Order) model.Order {
	n := len(*queue)
	order := (*queue)[n-1]
	*queue = (*queue)[:n-1]
	return order
}

func (h *OrderHandler) run(w *OrderWorker, order model.Order) {
	completed := w.Process(order)

	h.mu.Lock()
	delete(h.busy, w.ID)
	h.mu.Unlock()

	h.Finished <- FinishedOrder{Order: order, Completed: completed}
	h.dispatch()
}
