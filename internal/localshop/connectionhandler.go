package localshop

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/netactor"
	"github.com/ferriscommerce/fabric/internal/wire"
)

// ConnectionHandler owns the L-node's single connection to the e-commerce
// node at the configured leader address: it performs the AskLeaderMessage
// handshake, registers or logs the shop back in, relays AskAllStock and
// WorkNewOrder, and queues finished orders while disconnected so nothing
// is lost across a reconnect (spec §4.7). It only ever dials that one
// address: the leader SL id carried by LeaderMessage is not checked, so the
// shop does not move to another e-commerce node when the one it dialed is
// not the leader.
type ConnectionHandler struct {
	leaderAddr string
	stock      *Stock
	orders     *OrderHandler
	log        *zap.Logger

	mu       sync.Mutex
	localID  uint16
	haveID   bool
	mm       *netactor.Middleman
	stopped  bool
	pending  []FinishedOrder

	reconnect chan struct{}
}

// NewConnectionHandler builds the handler. leaderAddr is the e-commerce
// SL listen address to dial.
func NewConnectionHandler(leaderAddr string, stock *Stock, orders *OrderHandler, log *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		leaderAddr: leaderAddr,
		stock:      stock,
		orders:     orders,
		log:        log,
		reconnect:  make(chan struct{}, 1),
	}
}

// Run dials the leader and retries until ctx is cancelled, draining
// finished orders from the order handler in the background.
func (h *ConnectionHandler) Run(ctx context.Context) {
	go h.drainFinished(ctx)

	for {
		h.mu.Lock()
		stopped := h.stopped
		h.mu.Unlock()
		if stopped {
			return
		}

		if err := h.connectOnce(ctx); err != nil {
			h.log.Warn("connection to leader failed, retrying", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-h.reconnect:
		case <-time.After(2 * time.Second):
		}
	}
}

func (h *ConnectionHandler) connectOnce(ctx context.Context) error {
	conn, err := net.DialTimeout("tcp", h.leaderAddr, 5*time.Second)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	var mm *netactor.Middleman
	mm = netactor.New(conn, h.log, func(env wire.Envelope) {
		h.dispatch(mm, env)
	}, func(err error) {
		done <- err
	})

	h.mu.Lock()
	h.mm = mm
	h.mu.Unlock()

	mm.Start()
	if err := mm.Send(wire.AskLeaderMessage, wire.AskLeaderMessagePayload{}); err != nil {
		return err
	}

	select {
	case err := <-done:
		h.mu.Lock()
		h.mm = nil
		h.mu.Unlock()
		return err
	case <-ctx.Done():
		mm.Close()
		return nil
	}
}

func (h *ConnectionHandler) dispatch(mm *netactor.Middleman, env wire.Envelope) {
	switch env.Type {
	case wire.LeaderMessage:
		h.mu.Lock()
		haveID, localID := h.haveID, h.localID
		h.mu.Unlock()
		if haveID {
			_ = mm.Send(wire.LoginLocal, wire.LoginLocalPayload{LocalID: localID})
		} else {
			_ = mm.Send(wire.RegisterLocal, wire.RegisterLocalPayload{})
		}

	case wire.LocalSuccessfullyRegistered:
		var p wire.LocalSuccessfullyRegisteredPayload
		if err := env.Into(&p); err != nil {
			h.log.Error("bad LocalSuccessfullyRegistered payload", zap.Error(err))
			return
		}
		h.mu.Lock()
		h.localID = p.LocalID
		h.haveID = true
		h.mu.Unlock()
		h.log.Info("registered with leader", zap.Uint16("local_id", p.LocalID))
		h.flushPending()

	case wire.LocalSuccessfullyLoggedIn:
		h.log.Info("logged back in with leader")
		h.flushPending()

	case wire.AskAllStock:
		snapshot := h.stock.AskAllStock()
		_ = mm.Send(wire.Stock, wire.StockPayload{Stock: snapshot})

	case wire.WorkNewOrder:
		var p wire.WorkNewOrderPayload
		if err := env.Into(&p); err != nil {
			h.log.Error("bad WorkNewOrder payload", zap.Error(err))
			return
		}
		h.orders.AddWebOrder(p.Order)

	default:
		h.log.Warn("unexpected message from leader", zap.String("type", string(env.Type)))
	}
}

// drainFinished forwards settled orders to the leader, queuing them
// locally whenever the connection is down or the shop has no local id
// yet (spec §4.7 back-up semantics).
func (h *ConnectionHandler) drainFinished(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fo := <-h.orders.Finished:
			h.trySend(fo)
		}
	}
}

func (h *ConnectionHandler) trySend(fo FinishedOrder) {
	h.mu.Lock()
	mm, haveID, localID := h.mm, h.haveID, h.localID
	h.mu.Unlock()

	if mm == nil || !haveID {
		h.mu.Lock()
		h.pending = append(h.pending, fo)
		h.mu.Unlock()
		return
	}

	order := fo.Order
	order.AssignLocal(localID)

	if !order.IsWeb() && !fo.Completed {
		return
	}

	var err error
	if fo.Completed {
		err = mm.Send(wire.OrderCompleted, wire.OrderCompletedPayload{Order: order})
	} else {
		err = mm.Send(wire.OrderCancelled, wire.OrderCancelledPayload{Order: order})
	}
	if err != nil {
		h.log.Warn("send finished order failed, queuing for retry", zap.Error(err))
		h.mu.Lock()
		h.pending = append(h.pending, fo)
		h.mu.Unlock()
	}
}

func (h *ConnectionHandler) flushPending() {
	h.mu.Lock()
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	for _, fo := range pending {
		h.trySend(fo)
	}
}

// Stop implements console.Controller.
func (h *ConnectionHandler) Stop() {
	h.mu.Lock()
	h.stopped = true
	mm := h.mm
	h.mu.Unlock()
	if mm != nil {
		mm.Close()
	}
}

// StartProcessing implements console.Controller.
func (h *ConnectionHandler) StartProcessing() {
	h.orders.Start()
}

// CloseConnections implements console.Controller.
func (h *ConnectionHandler) CloseConnections() {
	h.mu.Lock()
	mm := h.mm
	h.mu.Unlock()
	if mm != nil {
		mm.Close()
	}
}

// Reconnect implements console.Controller.
func (h *ConnectionHandler) Reconnect() {
	select {
	case h.reconnect <- struct{}{}:
	default:
	}
}
