package localshop

import (
	"testing"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
)

func newTestHandler(local, web int) *OrderHandler {
	localOrders := make([]model.Order, local)
	for i := range localOrders {
		localOrders[i] = model.Order{ID: uint64(i), Kind: model.Local}
	}
	h := NewOrderHandler(localOrders, 0, nil, zap.NewNop())
	for i := 0; i < web; i++ {
		h.web = append(h.web, model.Order{ID: uint64(100 + i), Kind: model.Web})
	}
	return h
}

func TestNextOrderPrefersLocalWhenNoneBusy(t *testing.T) {
	h := newTestHandler(1, 1)

	order, ok := h.nextOrderLocked()
	if !ok {
		t.Fatal("expected an order")
	}
	if order.Kind != model.Local {
		t.Fatalf("want local order first, got %s", order.Kind)
	}
}

func TestNextOrderPrefersUnderrepresentedKind(t *testing.T) {
	h := newTestHandler(1, 1)
	h.busy[0] = model.Local
	h.busy[1] = model.Local

	order, ok := h.nextOrderLocked()
	if !ok {
		t.Fatal("expected an order")
	}
	if order.Kind != model.Web {
		t.Fatalf("want web order since local is over-represented, got %s", order.Kind)
	}
}

func TestNextOrderFallsBackWhenPreferredQueueEmpty(t *testing.T) {
	h := newTestHandler(0, 1)

	order, ok := h.nextOrderLocked()
	if !ok {
		t.Fatal("expected an order")
	}
	if order.Kind != model.Web {
		t.Fatalf("want the only available order (web), got %s", order.Kind)
	}
}

func TestNextOrderReturnsFalseWhenAllQueuesEmpty(t *testing.T) {
	h := newTestHandler(0, 0)
	if _, ok := h.nextOrderLocked(); ok {
		t.Fatal("expected no order available")
	}
}
