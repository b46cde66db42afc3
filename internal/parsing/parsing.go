// Package parsing implements the text-file parsers spec.md §1 treats as
// external collaborators: they hand typed records to the core and are not
// themselves part of the coordination-plane subject matter.
package parsing

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ferriscommerce/fabric/internal/model"
)

// ParseOrdersFile reads one order per line. Each line is a list of
// "name:quantity" products separated by ";". Blank lines are skipped.
func ParseOrdersFile(path string, kind model.Kind) ([]model.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parsing: open orders file %s: %w", path, err)
	}
	defer f.Close()

	var orders []model.Order
	var id uint64
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		products, err := parseProducts(line)
		if err != nil {
			return nil, fmt.Errorf("parsing: orders file %s: %w", path, err)
		}
		id++
		orders = append(orders, model.Order{ID: id, Kind: kind, Products: products})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parsing: read orders file %s: %w", path, err)
	}
	return orders, nil
}

func parseProducts(line string) ([]model.Product, error) {
	parts := strings.Split(line, ";")
	products := make([]model.Product, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name, qty, err := parseProduct(p)
		if err != nil {
			return nil, err
		}
		products = append(products, model.Product{Name: name, Quantity: qty})
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("empty order line %q", line)
	}
	return products, nil
}

func parseProduct(entry string) (string, int, error) {
	name, qtyStr, ok := strings.Cut(entry, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed product %q, want name:quantity", entry)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(qtyStr))
	if err != nil {
		return "", 0, fmt.Errorf("malformed quantity in %q: %w", entry, err)
	}
	return strings.TrimSpace(name), qty, nil
}

// ParseStockFile reads one "name:quantity" line at a time into a stock map.
func ParseStockFile(path string) (model.Stock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parsing: open stock file %s: %w", path, err)
	}
	defer f.Close()

	stock := make(model.Stock)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		name, qty, err := parseProduct(line)
		if err != nil {
			return nil, fmt.Errorf("parsing: stock file %s: %w", path, err)
		}
		stock[name] = qty
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parsing: read stock file %s: %w", path, err)
	}
	return stock, nil
}
