package ecommerce

import "testing"

func TestSmallestPicksMinimumID(t *testing.T) {
	ids := map[uint16]bool{5: true, 2: true, 9: true}
	if got := smallest(ids); got != 2 {
		t.Fatalf("want 2, got %d", got)
	}
}

func TestSmallestSingleEntry(t *testing.T) {
	ids := map[uint16]bool{7: true}
	if got := smallest(ids); got != 7 {
		t.Fatalf("want 7, got %d", got)
	}
}
