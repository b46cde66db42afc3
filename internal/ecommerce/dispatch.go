package ecommerce

import (
	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
	"github.com/ferriscommerce/fabric/internal/wire"
)

// dispatchOrder is called by an own OrderWorker once it has stamped and
// assigned a web order (spec §4.9.4). If this node is leader, route
// straight to the target local; otherwise forward to the leader over SS.
func (h *Hub) dispatchOrder(order model.Order) {
	h.enqueue(func() { h.routeOrder(order) })
}

func (h *Hub) routeOrder(order model.Order) {
	if !h.IsLeader() {
		if !h.haveLeader {
			h.log.Warn("no leader known, cannot forward order", zap.Uint64("order_id", order.ID))
			return
		}
		peer, ok := h.peers[h.leaderSS]
		if !ok {
			h.log.Warn("leader peer not connected, cannot forward order", zap.Uint64("order_id", order.ID))
			return
		}
		_ = peer.mm.Send(wire.DelegateOrderToLeader, wire.DelegateOrderToLeaderPayload{Order: order})
		return
	}

	local, ok := h.locals[order.AssignedLocalID]
	if !ok {
		h.sendCannotDispatch(order)
		return
	}
	if err := local.mm.Send(wire.WorkNewOrder, wire.WorkNewOrderPayload{Order: order}); err != nil {
		h.sendCannotDispatch(order)
	}
}

func (h *Hub) sendCannotDispatch(order model.Order) {
	if order.OriginatingSSID == h.ssID {
		h.handleOrderNotTaken(order)
		return
	}
	peer, ok := h.peers[order.OriginatingSSID]
	if !ok {
		h.orderNotTakenToForward[order.OriginatingSSID] = append(h.orderNotTakenToForward[order.OriginatingSSID], order)
		h.reportBackupDepth("not_taken", len(h.orderNotTakenToForward[order.OriginatingSSID]))
		return
	}
	if err := peer.mm.Send(wire.CannotDispatchPreviouslyDelegatedOrder, wire.CannotDispatchPreviouslyDelegatedOrderPayload{Order: order}); err != nil {
		h.orderNotTakenToForward[order.OriginatingSSID] = append(h.orderNotTakenToForward[order.OriginatingSSID], order)
		h.reportBackupDepth("not_taken", len(h.orderNotTakenToForward[order.OriginatingSSID]))
	}
}

// reportBackupDepth sets one backup queue's depth gauge; the gauge is a
// point-in-time snapshot of a single peer's pending slice, not a sum
// across peers.
func (h *Hub) reportBackupDepth(queue string, depth int) {
	if h.metrics == nil {
		return
	}
	h.metrics.BackupQueueDepth.WithLabelValues(queue).Set(float64(depth))
}

func (h *Hub) handleOrderNotTaken(order model.Order) {
	if h.metrics != nil {
		kind := "local"
		if order.IsWeb() {
			kind = "web"
		}
		h.metrics.OrdersDispatched.WithLabelValues(kind, "not_taken").Inc()
	}
	for _, w := range h.workers {
		if w.ID == order.OriginatingWorkerID {
			w.NotifyNotTaken(order)
			return
		}
	}
	h.log.Warn("order-not-taken for unknown worker", zap.Uint16("worker_id", order.OriginatingWorkerID))
}

// handleOrderResult applies an SL OrderCompleted/OrderCancelled (spec
// §4.9.5): always posted to D, then routed back to whichever worker
// originated it, locally or over SS.
func (h *Hub) handleOrderResult(order model.Order, completed bool) {
	if h.metrics != nil {
		kind, result := "local", "cancelled"
		if order.IsWeb() {
			kind = "web"
		}
		if completed {
			result = "completed"
		}
		h.metrics.OrdersDispatched.WithLabelValues(kind, result).Inc()
	}
	h.postOrderResult(order.AssignedLocalID, order, completed)

	if !order.IsWeb() {
		return
	}

	if order.OriginatingSSID == h.ssID {
		for _, w := range h.workers {
			if w.ID == order.OriginatingWorkerID {
				w.NotifyResult(order, completed)
				return
			}
		}
		return
	}

	payload := wire.SolvedPreviouslyDelegatedOrderPayload{Order: order, WasCompleted: completed}
	peer, ok := h.peers[order.OriginatingSSID]
	if !ok {
		h.orderResultsToForward[order.OriginatingSSID] = append(h.orderResultsToForward[order.OriginatingSSID], payload)
		h.reportBackupDepth("results", len(h.orderResultsToForward[order.OriginatingSSID]))
		return
	}
	if err := peer.mm.Send(wire.SolvedPreviouslyDelegatedOrder, payload); err != nil {
		h.orderResultsToForward[order.OriginatingSSID] = append(h.orderResultsToForward[order.OriginatingSSID], payload)
		h.reportBackupDepth("results", len(h.orderResultsToForward[order.OriginatingSSID]))
	}
}

func (h *Hub) handleSolvedDelegatedOrder(p wire.SolvedPreviouslyDelegatedOrderPayload) {
	for _, w := range h.workers {
		if w.ID == p.Order.OriginatingWorkerID {
			w.NotifyResult(p.Order, p.WasCompleted)
			return
		}
	}
	h.log.Warn("solved delegated order for unknown worker", zap.Uint16("worker_id", p.Order.OriginatingWorkerID))
}

// askStockProduct is called by an own OrderWorker (spec §4.9.6): if
// leader, ask D directly; otherwise delegate over SS.
func (h *Hub) askStockProduct(requestorWorkerID uint16, productName string) {
	h.enqueue(func() {
		if h.IsLeader() {
			h.askProductQuantity(h.ssID, requestorWorkerID, productName)
			return
		}
		if !h.haveLeader {
			h.log.Warn("no leader known, cannot ask stock", zap.String("product", productName))
			return
		}
		peer, ok := h.peers[h.leaderSS]
		if !ok {
			h.log.Warn("leader peer not connected, cannot ask stock", zap.String("product", productName))
			return
		}
		_ = peer.mm.Send(wire.DelegateAskForStockProductToLeader, wire.DelegateAskForStockProductToLeaderPayload{
			RequestorSSID:     h.ssID,
			RequestorWorkerID: requestorWorkerID,
			ProductName:       productName,
		})
	})
}

func (h *Hub) handleDelegatedStockQuery(p wire.DelegateAskForStockProductToLeaderPayload) {
	if !h.IsLeader() {
		h.log.Warn("delegated stock query received while not leader, dropping")
		return
	}
	h.askProductQuantity(p.RequestorSSID, p.RequestorWorkerID, p.ProductName)
}

func (h *Hub) routeStockAnswer(p wire.ProductQuantityFromAllLocalsPayload) {
	solved := wire.SolvedAskForStockProductPayload{
		RequestorSSID:     p.SSID,
		RequestorWorkerID: p.WorkerID,
		ProductName:       p.ProductName,
		Stock:             p.Stock,
	}

	if p.SSID == h.ssID {
		h.handleSolvedStockQuery(solved)
		return
	}

	peer, ok := h.peers[p.SSID]
	if !ok {
		h.solvedStockQueryToForward[p.SSID] = append(h.solvedStockQueryToForward[p.SSID], solved)
		h.reportBackupDepth("stock", len(h.solvedStockQueryToForward[p.SSID]))
		return
	}
	if err := peer.mm.Send(wire.SolvedAskForStockProduct, solved); err != nil {
		h.solvedStockQueryToForward[p.SSID] = append(h.solvedStockQueryToForward[p.SSID], solved)
		h.reportBackupDepth("stock", len(h.solvedStockQueryToForward[p.SSID]))
	}
}

func (h *Hub) handleSolvedStockQuery(p wire.SolvedAskForStockProductPayload) {
	for _, w := range h.workers {
		if w.ID == p.RequestorWorkerID {
			w.NotifyStock(p.ProductName, p.Stock)
			return
		}
	}
	h.log.Warn("solved stock query for unknown worker", zap.Uint16("worker_id", p.RequestorWorkerID))
}

// replayBackupQueues drains the three back-up queues for a peer that just
// (re)connected, in insertion order (spec §4.9.7).
func (h *Hub) replayBackupQueues(ssID uint16) {
	peer, ok := h.peers[ssID]
	if !ok {
		return
	}

	for _, order := range h.orderNotTakenToForward[ssID] {
		_ = peer.mm.Send(wire.CannotDispatchPreviouslyDelegatedOrder, wire.CannotDispatchPreviouslyDelegatedOrderPayload{Order: order})
	}
	delete(h.orderNotTakenToForward, ssID)
	h.reportBackupDepth("not_taken", 0)

	for _, payload := range h.orderResultsToForward[ssID] {
		_ = peer.mm.Send(wire.SolvedPreviouslyDelegatedOrder, payload)
	}
	delete(h.orderResultsToForward, ssID)
	h.reportBackupDepth("results", 0)

	for _, payload := range h.solvedStockQueryToForward[ssID] {
		_ = peer.mm.Send(wire.SolvedAskForStockProduct, payload)
	}
	delete(h.solvedStockQueryToForward, ssID)
	h.reportBackupDepth("stock", 0)
}
