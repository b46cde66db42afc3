package ecommerce

import (
	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/netactor"
	"github.com/ferriscommerce/fabric/internal/wire"
)

// onSSEnvelope dispatches a message arriving on a peer e-commerce
// connection. The very first message on any SS connection must be
// TakeMyId (spec §4.9.1); everything else assumes the peer is already
// registered.
func (h *Hub) onSSEnvelope(mm *netactor.Middleman, env wire.Envelope) {
	if env.Type == wire.TakeMyID {
		var p wire.TakeMyIDPayload
		if err := env.Into(&p); err != nil {
			h.log.Error("bad TakeMyId payload", zap.Error(err))
			mm.Close()
			return
		}
		h.registerPeer(p.SSID, p.SLID, mm)
		return
	}

	ssID, ok := h.peerIDFor(mm)
	if !ok {
		h.log.Warn("message from unregistered peer, dropping", zap.String("type", string(env.Type)))
		mm.Close()
		return
	}

	switch env.Type {
	case wire.ElectLeader:
		h.runElection()
	case wire.SelectedLeader:
		var p wire.SelectedLeaderPayload
		if err := env.Into(&p); err == nil {
			h.adoptLeader(p.LeaderSSID, p.LeaderSLID)
		}
	case wire.DelegateAskForStockProductToLeader:
		var p wire.DelegateAskForStockProductToLeaderPayload
		if err := env.Into(&p); err == nil {
			h.handleDelegatedStockQuery(p)
		}
	case wire.SolvedAskForStockProduct:
		var p wire.SolvedAskForStockProductPayload
		if err := env.Into(&p); err == nil {
			h.handleSolvedStockQuery(p)
		}
	case wire.DelegateOrderToLeader:
		var p wire.DelegateOrderToLeaderPayload
		if err := env.Into(&p); err == nil {
			h.routeOrder(p.Order)
		}
	case wire.SolvedPreviouslyDelegatedOrder:
		var p wire.SolvedPreviouslyDelegatedOrderPayload
		if err := env.Into(&p); err == nil {
			h.handleSolvedDelegatedOrder(p)
		}
	case wire.CannotDispatchPreviouslyDelegatedOrder:
		var p wire.CannotDispatchPreviouslyDelegatedOrderPayload
		if err := env.Into(&p); err == nil {
			h.handleOrderNotTaken(p.Order)
		}
	default:
		h.log.Warn("unexpected SS message", zap.String("type", string(env.Type)), zap.Uint16("ss_id", ssID))
	}
}

func (h *Hub) registerPeer(ssID, slID uint16, mm *netactor.Middleman) {
	h.peers[ssID] = &ssPeer{ssID: ssID, slID: slID, mm: mm}
	h.log.Info("registered peer", zap.Uint16("ss_id", ssID))
	h.replayBackupQueues(ssID)
}

func (h *Hub) peerIDFor(mm *netactor.Middleman) (uint16, bool) {
	for id, p := range h.peers {
		if p.mm == mm {
			return id, true
		}
	}
	return 0, false
}

func (h *Hub) onSSDisconnect(mm *netactor.Middleman) {
	ssID, ok := h.peerIDFor(mm)
	if !ok {
		return
	}
	delete(h.peers, ssID)
	h.log.Info("peer disconnected", zap.Uint16("ss_id", ssID))

	if h.haveLeader && h.leaderSS == ssID {
		h.haveLeader = false
		h.runElection()
	}
}

// runElection implements the bully procedure of spec §4.9.2: defer to any
// live peer with a higher ss_id, otherwise declare self leader.
func (h *Hub) runElection() {
	if h.metrics != nil {
		h.metrics.ElectionsRun.Inc()
	}
	highest := h.ssID
	var highestPeer *ssPeer
	for id, p := range h.peers {
		if id > highest {
			highest = id
			highestPeer = p
		}
	}

	if highestPeer != nil {
		h.log.Info("deferring election to higher peer", zap.Uint16("peer_ss_id", highest))
		_ = highestPeer.mm.Send(wire.ElectLeader, wire.ElectLeaderPayload{RequestorID: h.ssID})
		return
	}

	h.log.Info("declaring self leader", zap.Uint16("ss_id", h.ssID))
	h.adoptLeader(h.ssID, h.slID)
	for _, p := range h.peers {
		_ = p.mm.Send(wire.SelectedLeader, wire.SelectedLeaderPayload{LeaderSSID: h.ssID, LeaderSLID: h.slID})
	}
}

func (h *Hub) adoptLeader(ssID, slID uint16) {
	wasLeader := h.haveLeader && h.leaderSS == h.ssID
	h.haveLeader = true
	h.leaderSS = ssID
	h.leaderSL = slID
	h.log.Info("leader set", zap.Uint16("leader_ss_id", ssID))

	isLeaderNow := ssID == h.ssID
	h.isLeader.Store(isLeaderNow)
	if isLeaderNow && !wasLeader {
		h.connectDB()
	}
	if !isLeaderNow {
		// A new leader took over: any SL sessions routed through the prior
		// leader must reconnect, so close them and let locals re-handshake.
		for id, l := range h.locals {
			l.mm.Close()
			delete(h.locals, id)
		}
		h.reportLocalsRegistered()
	}
}

// IsLeader reports whether this node currently believes itself the
// leader. Only safe to call from the mailbox goroutine.
func (h *Hub) IsLeader() bool {
	return h.haveLeader && h.leaderSS == h.ssID
}

// isLeaderUnsynced is IsLeader's cross-goroutine-safe counterpart, for
// dialDBLoop which runs outside the mailbox and cannot read haveLeader/
// leaderSS directly.
func (h *Hub) isLeaderUnsynced() bool {
	return h.isLeader.Load()
}
