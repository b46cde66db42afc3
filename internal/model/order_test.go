package model

import "testing"

func TestOrderCloneDoesNotAliasProducts(t *testing.T) {
	orig := Order{ID: 1, Kind: Web, Products: []Product{{Name: "pen", Quantity: 2}}}
	clone := orig.Clone()

	clone.Products[0].Quantity = 99

	if orig.Products[0].Quantity != 2 {
		t.Fatalf("clone mutated original: got %d", orig.Products[0].Quantity)
	}
}

func TestIsWeb(t *testing.T) {
	if (Order{Kind: Local}).IsWeb() {
		t.Fatal("local order reported as web")
	}
	if !(Order{Kind: Web}).IsWeb() {
		t.Fatal("web order not reported as web")
	}
}

func TestStampOriginAndAssignLocal(t *testing.T) {
	o := Order{Kind: Web}
	o.StampOrigin(7, 2)
	o.AssignLocal(5)

	if o.OriginatingSSID != 7 || o.OriginatingWorkerID != 2 {
		t.Fatalf("origin not stamped: %+v", o)
	}
	if o.AssignedLocalID != 5 {
		t.Fatalf("local not assigned: %+v", o)
	}
}

func TestKindString(t *testing.T) {
	if Local.String() != "local" {
		t.Fatalf("Local.String() = %q", Local.String())
	}
	if Web.String() != "web" {
		t.Fatalf("Web.String() = %q", Web.String())
	}
}
