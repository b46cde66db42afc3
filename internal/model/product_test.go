package model

import "testing"

func TestStockTakeInsufficient(t *testing.T) {
	s := Stock{"pen": 1}
	if err := s.Take("pen", 2); err == nil {
		t.Fatal("expected error taking more than available")
	}
	if s["pen"] != 1 {
		t.Fatalf("failed take must not mutate stock: got %d", s["pen"])
	}
}

func TestStockTakeSufficient(t *testing.T) {
	s := Stock{"pen": 5}
	if err := s.Take("pen", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s["pen"] != 2 {
		t.Fatalf("want 2 remaining, got %d", s["pen"])
	}
}

func TestStockAddThenTakeRoundTrip(t *testing.T) {
	s := Stock{}
	s.Add("pen", 4)
	if err := s.Take("pen", 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s["pen"] != 0 {
		t.Fatalf("want 0 remaining, got %d", s["pen"])
	}
}

func TestStockCloneIndependence(t *testing.T) {
	s := Stock{"pen": 1}
	clone := s.Clone()
	clone["pen"] = 99
	if s["pen"] != 1 {
		t.Fatalf("clone mutated original: got %d", s["pen"])
	}
}
