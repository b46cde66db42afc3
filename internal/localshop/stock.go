// Package localshop implements the L-node: the stock actor, order worker
// state machines, order dispatch, and the connection handler that talks to
// the e-commerce leader (spec §4.4-§4.7).
package localshop

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
	"github.com/ferriscommerce/fabric/internal/telemetry"
)

// ErrNoStock is returned when a requested quantity is unavailable.
var ErrNoStock = errors.New("localshop: insufficient stock")

// simulatedLatency mirrors the teacher's stock handler, which sleeps before
// answering every stock operation to model a slow physical inventory check.
const simulatedLatency = 1500 * time.Millisecond

type stockRequest struct {
	op     func(s *stockState) (model.Product, error)
	result chan<- stockResult
}

type stockResult struct {
	product model.Product
	err     error
}

type stockState struct {
	stock    model.Stock
	reserved model.Stock
}

// Stock is the L-node's single-goroutine stock actor. All operations are
// processed serially in arrival order, matching the teacher's SyncContext
// actor (one worker thread per actor, no internal concurrency).
type Stock struct {
	reqs    chan stockRequest
	snap    chan chan model.Stock
	done    chan struct{}
	log     *zap.Logger
	metrics *telemetry.NodeMetrics
}

// SetMetrics wires an optional prometheus metric set; nil leaves every
// increment below a no-op.
func (s *Stock) SetMetrics(m *telemetry.NodeMetrics) {
	s.metrics = m
}

func (s *Stock) countOp(op string) {
	if s.metrics != nil {
		s.metrics.StockOperations.WithLabelValues(op).Inc()
	}
}

// NewStock starts a stock actor seeded with the given initial inventory.
func NewStock(initial model.Stock, log *zap.Logger) *Stock {
	s := &Stock{
		reqs: make(chan stockRequest),
		snap: make(chan chan model.Stock),
		done: make(chan struct{}),
		log:  log,
	}
	state := &stockState{stock: initial.Clone(), reserved: make(model.Stock)}
	go s.run(state)
	return s
}

func (s *Stock) run(state *stockState) {
	for {
		select {
		case req := <-s.reqs:
			p, err := req.op(state)
			req.result <- stockResult{product: p, err: err}
		case reply := <-s.snap:
			time.Sleep(simulatedLatency)
			reply <- state.stock.Clone()
		case <-s.done:
			return
		}
	}
}

// Stop terminates the actor's goroutine.
func (s *Stock) Stop() { close(s.done) }

func (s *Stock) call(op func(*stockState) (model.Product, error)) (model.Product, error) {
	result := make(chan stockResult, 1)
	s.reqs <- stockRequest{op: op, result: result}
	r := <-result
	return r.product, r.err
}

// Take removes quantity units of product from the live stock, simulating
// the teacher's 1.5s inventory-check latency. Returns ErrNoStock if the
// shop does not carry enough of the product (spec §4.4).
func (s *Stock) Take(product model.Product) (model.Product, error) {
	s.countOp("take")
	return s.call(func(state *stockState) (model.Product, error) {
		time.Sleep(simulatedLatency)
		if state.stock[product.Name] < product.Quantity {
			s.log.Debug("stock: no product to take", zap.String("product", product.Name))
			return model.Product{}, ErrNoStock
		}
		state.stock[product.Name] -= product.Quantity
		s.log.Info("stock: took product", zap.String("product", product.Name), zap.Int("qty", product.Quantity))
		return product, nil
	})
}

// Reserve moves quantity units from live stock to the reservation pool,
// without giving them to anyone yet (spec §4.4). Mirrors the teacher's
// ReserveProduct handler.
func (s *Stock) Reserve(product model.Product) error {
	s.countOp("reserve")
	_, err := s.call(func(state *stockState) (model.Product, error) {
		time.Sleep(simulatedLatency)
		if state.stock[product.Name] < product.Quantity {
			s.log.Debug("stock: no product to reserve", zap.String("product", product.Name))
			return model.Product{}, ErrNoStock
		}
		state.stock[product.Name] -= product.Quantity
		state.reserved[product.Name] += product.Quantity
		s.log.Info("stock: reserved product", zap.String("product", product.Name), zap.Int("qty", product.Quantity))
		return product, nil
	})
	return err
}

// TakeReserved converts a previously reserved quantity into a committed
// take. The reservation must already exist; per the teacher, going
// negative here indicates a coordination bug upstream, not a normal
// rejection, so it is logged as an error rather than returned as
// ErrNoStock.
func (s *Stock) TakeReserved(product model.Product) (model.Product, error) {
	s.countOp("take_reserved")
	return s.call(func(state *stockState) (model.Product, error) {
		time.Sleep(simulatedLatency)
		if state.reserved[product.Name] < product.Quantity {
			s.log.Error("stock: taking more than was reserved", zap.String("product", product.Name),
				zap.Int("reserved", state.reserved[product.Name]), zap.Int("qty", product.Quantity))
		}
		state.reserved[product.Name] -= product.Quantity
		s.log.Info("stock: took reserved product", zap.String("product", product.Name), zap.Int("qty", product.Quantity))
		return product, nil
	})
}

// Unreserve gives a previously reserved quantity back to live stock,
// rolling back a reservation that will not be committed (spec §4.5
// rollback semantics).
func (s *Stock) Unreserve(product model.Product) error {
	s.countOp("unreserve")
	_, err := s.call(func(state *stockState) (model.Product, error) {
		time.Sleep(simulatedLatency)
		state.reserved[product.Name] -= product.Quantity
		state.stock[product.Name] += product.Quantity
		s.log.Info("stock: unreserved product", zap.String("product", product.Name), zap.Int("qty", product.Quantity))
		return product, nil
	})
	return err
}

// Restore gives a quantity back to live stock directly, used to roll back
// a plain Take (not a reservation).
func (s *Stock) Restore(product model.Product) {
	s.countOp("restore")
	_, _ = s.call(func(state *stockState) (model.Product, error) {
		time.Sleep(simulatedLatency)
		state.stock[product.Name] += product.Quantity
		s.log.Info("stock: restored product", zap.String("product", product.Name), zap.Int("qty", product.Quantity))
		return product, nil
	})
}

// AskAllStock returns a snapshot of the live (non-reserved) stock, used to
// answer AskAllStock from the leader and to populate PostStockFromLocal.
func (s *Stock) AskAllStock() model.Stock {
	reply := make(chan model.Stock, 1)
	s.snap <- reply
	return <-reply
}
