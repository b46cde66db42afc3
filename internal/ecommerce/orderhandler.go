package ecommerce

import "github.com/ferriscommerce/fabric/internal/model"

// OrderHandler is the E-node's web order queue (spec §4.8): a single FIFO
// backlog that idle OrderWorkers pull from, generalizing the L-node's
// dual-queue OrderHandler to the E-node's single web-only queue.
type OrderHandler struct {
	orders chan model.Order
}

// NewOrderHandler builds a queue with the given backlog capacity.
func NewOrderHandler(capacity int) *OrderHandler {
	return &OrderHandler{orders: make(chan model.Order, capacity)}
}

// Add enqueues a freshly-ingested web order.
func (oh *OrderHandler) Add(order model.Order) {
	oh.orders <- order
}

// Next returns the queue's receive channel; a receive from it blocks until
// an order is available.
func (oh *OrderHandler) Next() <-chan model.Order {
	return oh.orders
}
