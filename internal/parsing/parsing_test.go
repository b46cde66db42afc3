package parsing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ferriscommerce/fabric/internal/model"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestParseStockFile(t *testing.T) {
	path := writeTemp(t, "stock.txt", "pen:5\nink:0\n\n")

	stock, err := ParseStockFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock["pen"] != 5 || stock["ink"] != 0 {
		t.Fatalf("unexpected stock: %+v", stock)
	}
}

func TestParseStockFileRejectsMalformedLine(t *testing.T) {
	path := writeTemp(t, "stock.txt", "pen-5\n")
	if _, err := ParseStockFile(path); err == nil {
		t.Fatal("expected error on malformed line")
	}
}

func TestParseOrdersFile(t *testing.T) {
	path := writeTemp(t, "orders.txt", "pen:2;ink:1\npen:1\n")

	orders, err := ParseOrdersFile(path, model.Web)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("want 2 orders, got %d", len(orders))
	}
	if orders[0].ID != 1 || orders[1].ID != 2 {
		t.Fatalf("expected sequential ids, got %d and %d", orders[0].ID, orders[1].ID)
	}
	if len(orders[0].Products) != 2 {
		t.Fatalf("want 2 products on first order, got %d", len(orders[0].Products))
	}
	if orders[0].Kind != model.Web {
		t.Fatalf("want kind stamped Web, got %s", orders[0].Kind)
	}
}

func TestParseOrdersFileRejectsEmptyLine(t *testing.T) {
	path := writeTemp(t, "orders.txt", ";\n")
	if _, err := ParseOrdersFile(path, model.Local); err == nil {
		t.Fatal("expected error on empty order line")
	}
}
