package database

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/analytics"
	"github.com/ferriscommerce/fabric/internal/cache"
	"github.com/ferriscommerce/fabric/internal/netactor"
	"github.com/ferriscommerce/fabric/internal/telemetry"
	"github.com/ferriscommerce/fabric/internal/wire"
)

// ConnectionHandler is the D-node's connection handler (spec §4.3): it
// accepts connections from e-commerce leaders, routes each DB request to
// the registry in arrival order, and sends back the matching response.
// There is no ordering guarantee across different connections (spec §5).
type ConnectionHandler struct {
	registry   *Registry
	log        *zap.Logger
	publisher  *analytics.Publisher
	stockCache *cache.StockCache
	metrics    *telemetry.NodeMetrics
}

// NewConnectionHandler builds a D-node connection handler over the given
// registry. publisher and stockCache may both be nil (analytics/caching
// disabled); the registry stays authoritative either way.
func NewConnectionHandler(registry *Registry, log *zap.Logger, publisher *analytics.Publisher, stockCache *cache.StockCache) *ConnectionHandler {
	return &ConnectionHandler{registry: registry, log: log, publisher: publisher, stockCache: stockCache}
}

// SetMetrics wires an optional prometheus metric set; nil leaves every
// increment below a no-op.
func (h *ConnectionHandler) SetMetrics(m *telemetry.NodeMetrics) {
	h.metrics = m
}

// Listen binds addr and accepts connections until ctx is cancelled.
func (h *ConnectionHandler) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	h.log.Info("db listener started", zap.String("addr", addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				h.log.Error("accept error", zap.Error(err))
				continue
			}
		}
		h.handleConn(conn)
	}
}

func (h *ConnectionHandler) handleConn(conn net.Conn) {
	log := h.log.With(zap.String("peer", conn.RemoteAddr().String()))
	var mm *netactor.Middleman
	mm = netactor.New(conn, log, func(env wire.Envelope) {
		h.dispatch(mm, env, log)
	}, func(err error) {
		log.Info("db peer connection closed", zap.Error(err))
	})
	mm.Start()
}

func (h *ConnectionHandler) dispatch(mm *netactor.Middleman, env wire.Envelope, log *zap.Logger) {
	switch env.Type {
	case wire.TakeMyEcommerceID:
		var p wire.TakeMyEcommerceIDPayload
		if err := env.Into(&p); err != nil {
			log.Error("bad TakeMyEcommerceId payload", zap.Error(err))
			return
		}
		h.registry.NoteEcommerceID(p.SSID)

	case wire.GetNewLocalID:
		newID := h.registry.GetNewLocalID()
		if err := mm.Send(wire.NewLocalID, wire.NewLocalIDPayload{LocalID: newID}); err != nil {
			log.Error("send NewLocalId failed", zap.Error(err))
		}

	case wire.CheckLocalID:
		var p wire.CheckLocalIDPayload
		if err := env.Into(&p); err != nil {
			log.Error("bad CheckLocalId payload", zap.Error(err))
			return
		}
		log.Info("checked local id", zap.Uint16("local_id", p.LocalID), zap.Bool("valid", h.registry.CheckLocalID(p.LocalID)))

	case wire.PostStockFromLocal:
		var p wire.PostStockFromLocalPayload
		if err := env.Into(&p); err != nil {
			log.Error("bad PostStockFromLocal payload", zap.Error(err))
			return
		}
		if err := h.registry.PostStockFromLocal(p.LocalID, p.Stock); err != nil {
			log.Error("PostStockFromLocal failed", zap.Error(err))
			return
		}
		if h.stockCache != nil {
			names := make([]string, 0, len(p.Stock))
			for name := range p.Stock {
				names = append(names, name)
			}
			h.stockCache.InvalidateLocal(context.Background(), p.LocalID, names)
		}

	case wire.GetProductQuantityFromAllLocals:
		var p wire.GetProductQuantityFromAllLocalsPayload
		if err := env.Into(&p); err != nil {
			log.Error("bad GetProductQuantityFromAllLocals payload", zap.Error(err))
			return
		}
		qty := h.queryProductQuantity(p.ProductName)
		resp := wire.ProductQuantityFromAllLocalsPayload{
			SSID:        p.SSID,
			WorkerID:    p.WorkerID,
			ProductName: p.ProductName,
			Stock:       qty,
		}
		if err := mm.Send(wire.ProductQuantityFromAllLocals, resp); err != nil {
			log.Error("send ProductQuantityFromAllLocals failed", zap.Error(err))
		}

	case wire.PostOrderResult:
		var p wire.PostOrderResultPayload
		if err := env.Into(&p); err != nil {
			log.Error("bad PostOrderResult payload", zap.Error(err))
			return
		}
		if err := h.registry.PostOrderResult(p.LocalID, p.Order, p.Completed); err != nil {
			log.Error("PostOrderResult failed", zap.Error(err))
			return
		}
		if h.metrics != nil {
			kind, result := "local", "cancelled"
			if p.Order.IsWeb() {
				kind = "web"
			}
			if p.Completed {
				result = "completed"
			}
			h.metrics.OrdersDispatched.WithLabelValues(kind, result).Inc()
		}
		if h.stockCache != nil && p.Completed {
			names := make([]string, 0, len(p.Order.Products))
			for _, prod := range p.Order.Products {
				names = append(names, prod.Name)
			}
			h.stockCache.InvalidateLocal(context.Background(), p.LocalID, names)
		}
		if h.publisher != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := h.publisher.Publish(ctx, p.LocalID, p.Order, p.Completed, time.Now()); err != nil {
					log.Warn("analytics publish failed", zap.Error(err))
				}
			}()
		}

	default:
		log.Error("unknown DB message type, dropping connection", zap.String("type", string(env.Type)))
		mm.Close()
	}
}

// queryProductQuantity answers a GetProductQuantityFromAllLocals request,
// consulting the read-through cache per local before falling back to the
// registry (spec §B cache-aside: a miss or disabled cache always resolves
// from the authoritative GlobalStock registry).
func (h *ConnectionHandler) queryProductQuantity(productName string) map[uint16]int {
	if h.stockCache == nil {
		return h.registry.GetProductQuantityFromAllLocals(productName)
	}

	ctx := context.Background()
	out := make(map[uint16]int)
	for _, localID := range h.registry.LocalIDs() {
		if qty, ok := h.stockCache.Get(ctx, localID, productName); ok {
			out[localID] = qty
			continue
		}
		qty := h.registry.ProductQuantityForLocal(localID, productName)
		h.stockCache.Set(ctx, localID, productName, qty)
		out[localID] = qty
	}
	return out
}
