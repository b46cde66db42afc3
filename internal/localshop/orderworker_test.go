package localshop

import (
	"testing"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
)

func TestProcessLocalSucceedsWithSufficientStock(t *testing.T) {
	stock := NewStock(model.Stock{"pen": 5}, zap.NewNop())
	defer stock.Stop()

	w := NewOrderWorker(0, stock, zap.NewNop())
	order := model.Order{ID: 1, Kind: model.Local, Products: []model.Product{{Name: "pen", Quantity: 2}}}

	if !w.Process(order) {
		t.Fatal("expected order to succeed")
	}
	if snap := stock.AskAllStock(); snap["pen"] != 3 {
		t.Fatalf("want 3 remaining, got %d", snap["pen"])
	}
}

func TestProcessLocalRollsBackOnMissingProduct(t *testing.T) {
	stock := NewStock(model.Stock{"pen": 5, "ink": 0}, zap.NewNop())
	defer stock.Stop()

	w := NewOrderWorker(0, stock, zap.NewNop())
	order := model.Order{
		ID:   1,
		Kind: model.Local,
		Products: []model.Product{
			{Name: "pen", Quantity: 2},
			{Name: "ink", Quantity: 1},
		},
	}

	if w.Process(order) {
		t.Fatal("expected order to fail")
	}
	if snap := stock.AskAllStock(); snap["pen"] != 5 {
		t.Fatalf("stock conservation violated: want pen restored to 5, got %d", snap["pen"])
	}
}

func TestProcessWebRollsBackAllReservationsOnMissingProduct(t *testing.T) {
	stock := NewStock(model.Stock{"pen": 5, "ink": 0}, zap.NewNop())
	defer stock.Stop()

	w := NewOrderWorker(0, stock, zap.NewNop())
	order := model.Order{
		ID:   1,
		Kind: model.Web,
		Products: []model.Product{
			{Name: "pen", Quantity: 2},
			{Name: "ink", Quantity: 1},
		},
	}

	if w.Process(order) {
		t.Fatal("expected order to fail")
	}
	if snap := stock.AskAllStock(); snap["pen"] != 5 {
		t.Fatalf("stock conservation violated: want pen restored to 5, got %d", snap["pen"])
	}
}
