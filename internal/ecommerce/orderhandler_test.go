package ecommerce

import (
	"testing"
	"time"

	"github.com/ferriscommerce/fabric/internal/model"
)

func TestOrderHandlerAddThenNextDeliversSameOrder(t *testing.T) {
	oh := NewOrderHandler(4)
	order := model.Order{ID: 1, Kind: model.Web}
	oh.Add(order)

	select {
	case got := <-oh.Next():
		if got.ID != order.ID {
			t.Fatalf("want order id %d, got %d", order.ID, got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for order")
	}
}

func TestOrderHandlerPreservesFIFOOrder(t *testing.T) {
	oh := NewOrderHandler(4)
	oh.Add(model.Order{ID: 1})
	oh.Add(model.Order{ID: 2})

	first := <-oh.Next()
	second := <-oh.Next()
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("expected FIFO order, got %d then %d", first.ID, second.ID)
	}
}
