package ecommerce

import (
	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/netactor"
	"github.com/ferriscommerce/fabric/internal/wire"
)

// onSLEnvelope dispatches a message arriving on a local-shop connection
// (spec §4.9.3). Locals are tracked by local_id once known; before that
// they are identified only by their middleman pointer.
func (h *Hub) onSLEnvelope(mm *netactor.Middleman, env wire.Envelope) {
	switch env.Type {
	case wire.AskLeaderMessage:
		if h.IsLeader() {
			_ = mm.Send(wire.LeaderMessage, wire.LeaderMessagePayload{LeaderSLID: h.slID})
			return
		}
		if h.haveLeader {
			_ = mm.Send(wire.LeaderMessage, wire.LeaderMessagePayload{LeaderSLID: h.leaderSL})
			return
		}
		h.log.Warn("AskLeaderMessage with no known leader yet, ignoring")

	case wire.RegisterLocal:
		if !h.IsLeader() {
			h.log.Warn("RegisterLocalMessage received while not leader, dropping")
			mm.Close()
			return
		}
		h.requestNewLocalID(mm)

	case wire.LoginLocal:
		var p wire.LoginLocalPayload
		if err := env.Into(&p); err != nil {
			h.log.Error("bad LoginLocalMessage payload", zap.Error(err))
			return
		}
		if !h.IsLeader() {
			h.log.Warn("LoginLocalMessage received while not leader, dropping")
			mm.Close()
			return
		}
		h.locals[p.LocalID] = &localPeer{localID: p.LocalID, mm: mm}
		h.reportLocalsRegistered()
		_ = mm.Send(wire.LocalSuccessfullyLoggedIn, wire.LoginLocalPayload{LocalID: p.LocalID})
		_ = mm.Send(wire.AskAllStock, wire.AskAllStockPayload{})

	case wire.Stock:
		var p wire.StockPayload
		if err := env.Into(&p); err != nil {
			h.log.Error("bad Stock payload", zap.Error(err))
			return
		}
		localID, ok := h.localIDFor(mm)
		if !ok {
			return
		}
		h.postStockFromLocal(localID, p.Stock)

	case wire.OrderCompleted:
		var p wire.OrderCompletedPayload
		if err := env.Into(&p); err != nil {
			h.log.Error("bad OrderCompleted payload", zap.Error(err))
			return
		}
		h.handleOrderResult(p.Order, true)

	case wire.OrderCancelled:
		var p wire.OrderCancelledPayload
		if err := env.Into(&p); err != nil {
			h.log.Error("bad OrderCancelled payload", zap.Error(err))
			return
		}
		h.handleOrderResult(p.Order, false)

	default:
		h.log.Warn("unexpected SL message", zap.String("type", string(env.Type)))
	}
}

func (h *Hub) localIDFor(mm *netactor.Middleman) (uint16, bool) {
	for id, l := range h.locals {
		if l.mm == mm {
			return id, true
		}
	}
	return 0, false
}

func (h *Hub) onSLDisconnect(mm *netactor.Middleman) {
	localID, ok := h.localIDFor(mm)
	if !ok {
		return
	}
	delete(h.locals, localID)
	h.reportLocalsRegistered()
	h.log.Info("local disconnected", zap.Uint16("local_id", localID))
}

func (h *Hub) reportLocalsRegistered() {
	if h.metrics == nil {
		return
	}
	h.metrics.LocalsRegistered.Set(float64(len(h.locals)))
}
