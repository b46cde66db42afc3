package ecommerce

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
	"github.com/ferriscommerce/fabric/internal/netactor"
	"github.com/ferriscommerce/fabric/internal/wire"
)

// connectDB dials the database once this node becomes leader. It retries
// in the background without blocking the hub's mailbox loop, mirroring
// the original's dynamic (re)connection on demand rather than at boot
// (spec section C.3 / db_communicator.rs AddDBMiddlemanAddr).
func (h *Hub) connectDB() {
	if h.dbMM != nil {
		return
	}
	go h.dialDBLoop()
}

func (h *Hub) dialDBLoop() {
	for {
		if !h.isLeaderUnsynced() {
			return
		}
		conn, err := net.DialTimeout("tcp", h.dbAddr, 5*time.Second)
		if err != nil {
			h.log.Warn("db dial failed, retrying", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}
		var mm *netactor.Middleman
		mm = netactor.New(conn, h.log, func(env wire.Envelope) {
			h.enqueue(func() { h.onDBEnvelope(env) })
		}, func(err error) {
			h.enqueue(func() {
				if h.dbMM == mm {
					h.dbMM = nil
				}
				if h.isLeaderUnsynced() {
					go h.dialDBLoop()
				}
			})
		})
		mm.Start()
		h.enqueue(func() {
			h.dbMM = mm
			_ = mm.Send(wire.TakeMyEcommerceID, wire.TakeMyEcommerceIDPayload{SSID: h.ssID})
		})
		return
	}
}

// pendingLocalRegistration tracks a local waiting on GetNewLocalId; DB
// connection ordering (spec §5) guarantees replies arrive in request
// order, so a FIFO queue is enough to match them back up.
type pendingLocalRegistration struct {
	mm *netactor.Middleman
}

func (h *Hub) requestNewLocalID(mm *netactor.Middleman) {
	h.pendingRegistrations = append(h.pendingRegistrations, pendingLocalRegistration{mm: mm})
	if h.dbMM == nil {
		h.log.Warn("database unreachable, local registration stalled")
		return
	}
	_ = h.dbMM.Send(wire.GetNewLocalID, wire.GetNewLocalIDPayload{})
}

func (h *Hub) postStockFromLocal(localID uint16, stock model.Stock) {
	if h.dbMM == nil {
		h.log.Warn("database unreachable, stock post stalled", zap.Uint16("local_id", localID))
		return
	}
	_ = h.dbMM.Send(wire.PostStockFromLocal, wire.PostStockFromLocalPayload{LocalID: localID, Stock: stock})
}

func (h *Hub) postOrderResult(localID uint16, order model.Order, completed bool) {
	if h.dbMM == nil {
		h.log.Warn("database unreachable, order result stalled", zap.Uint64("order_id", order.ID))
		return
	}
	_ = h.dbMM.Send(wire.PostOrderResult, wire.PostOrderResultPayload{LocalID: localID, Order: order, Completed: completed})
}

func (h *Hub) askProductQuantity(requestorSSID, requestorWorkerID uint16, productName string) {
	if h.dbMM == nil {
		h.log.Warn("database unreachable, stock query stalled", zap.String("product", productName))
		return
	}
	_ = h.dbMM.Send(wire.GetProductQuantityFromAllLocals, wire.GetProductQuantityFromAllLocalsPayload{
		SSID:        requestorSSID,
		WorkerID:    requestorWorkerID,
		ProductName: productName,
	})
}

func (h *Hub) onDBEnvelope(env wire.Envelope) {
	switch env.Type {
	case wire.NewLocalID:
		var p wire.NewLocalIDPayload
		if err := env.Into(&p); err != nil || len(h.pendingRegistrations) == 0 {
			return
		}
		pending := h.pendingRegistrations[0]
		h.pendingRegistrations = h.pendingRegistrations[1:]
		h.locals[p.LocalID] = &localPeer{localID: p.LocalID, mm: pending.mm}
		h.reportLocalsRegistered()
		_ = pending.mm.Send(wire.LocalSuccessfullyRegistered, wire.LocalSuccessfullyRegisteredPayload{LocalID: p.LocalID})
		_ = pending.mm.Send(wire.AskAllStock, wire.AskAllStockPayload{})

	case wire.ProductQuantityFromAllLocals:
		var p wire.ProductQuantityFromAllLocalsPayload
		if err := env.Into(&p); err != nil {
			return
		}
		h.routeStockAnswer(p)

	default:
		h.log.Warn("unexpected DB message", zap.String("type", string(env.Type)))
	}
}
