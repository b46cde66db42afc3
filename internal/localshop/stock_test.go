package localshop

import (
	"testing"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
)

func TestTakeInsufficientReturnsErrNoStock(t *testing.T) {
	s := NewStock(model.Stock{"pen": 1}, zap.NewNop())
	defer s.Stop()

	if _, err := s.Take(model.Product{Name: "pen", Quantity: 2}); err != ErrNoStock {
		t.Fatalf("want ErrNoStock, got %v", err)
	}
}

func TestReserveThenUnreserveRoundTripsToOriginalStock(t *testing.T) {
	s := NewStock(model.Stock{"pen": 5}, zap.NewNop())
	defer s.Stop()

	if err := s.Reserve(model.Product{Name: "pen", Quantity: 3}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := s.Unreserve(model.Product{Name: "pen", Quantity: 3}); err != nil {
		t.Fatalf("unreserve: %v", err)
	}

	snap := s.AskAllStock()
	if snap["pen"] != 5 {
		t.Fatalf("want stock restored to 5, got %d", snap["pen"])
	}
}

func TestReserveThenTakeReservedRemovesStockPermanently(t *testing.T) {
	s := NewStock(model.Stock{"pen": 5}, zap.NewNop())
	defer s.Stop()

	if err := s.Reserve(model.Product{Name: "pen", Quantity: 3}); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := s.TakeReserved(model.Product{Name: "pen", Quantity: 3}); err != nil {
		t.Fatalf("take reserved: %v", err)
	}

	snap := s.AskAllStock()
	if snap["pen"] != 2 {
		t.Fatalf("want 2 left live, got %d", snap["pen"])
	}
}

func TestRestoreGivesBackTakenStock(t *testing.T) {
	s := NewStock(model.Stock{"pen": 5}, zap.NewNop())
	defer s.Stop()

	if _, err := s.Take(model.Product{Name: "pen", Quantity: 2}); err != nil {
		t.Fatalf("take: %v", err)
	}
	s.Restore(model.Product{Name: "pen", Quantity: 2})

	snap := s.AskAllStock()
	if snap["pen"] != 5 {
		t.Fatalf("want stock restored to 5, got %d", snap["pen"])
	}
}

func TestAskAllStockDoesNotLeakReservedQuantities(t *testing.T) {
	s := NewStock(model.Stock{"pen": 5}, zap.NewNop())
	defer s.Stop()

	if err := s.Reserve(model.Product{Name: "pen", Quantity: 2}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	snap := s.AskAllStock()
	if snap["pen"] != 3 {
		t.Fatalf("reserved stock must not appear as available: got %d", snap["pen"])
	}
}
