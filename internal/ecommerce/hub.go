// Package ecommerce implements the E-node: the bully-elected leader hub
// that is the single point of contact between e-commerce peers (SS),
// local shops (SL), and the database (DB), plus the order workers that
// drive web orders through it (spec §4.8-4.9).
package ecommerce

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
	"github.com/ferriscommerce/fabric/internal/netactor"
	"github.com/ferriscommerce/fabric/internal/telemetry"
	"github.com/ferriscommerce/fabric/internal/wire"
)

// ssPeer is a known e-commerce peer: its SL listen id and the middleman
// currently connected to it, if any.
type ssPeer struct {
	ssID uint16
	slID uint16
	mm   *netactor.Middleman
}

// localPeer is a local shop registered with this node while it is leader.
type localPeer struct {
	localID uint16
	mm      *netactor.Middleman
}

// Hub is the E-node connection handler: a single actor, expressed as a
// goroutine draining a mailbox of closures so every state mutation below
// runs serially with no locking (spec §5's "single-actor serial event
// loop"), the same pattern as internal/localshop's Stock actor.
type Hub struct {
	ssID uint16
	slID uint16

	mailbox chan func()
	done    chan struct{}

	peers  map[uint16]*ssPeer
	locals map[uint16]*localPeer

	haveLeader bool
	leaderSS   uint16
	leaderSL   uint16
	// isLeader mirrors haveLeader&&leaderSS==ssID so dialDBLoop, which
	// runs on its own goroutine outside the mailbox, can poll leadership
	// without racing the fields above (those are mailbox-goroutine-only).
	isLeader atomic.Bool

	dbAddr string
	dbMM   *netactor.Middleman

	pendingRegistrations []pendingLocalRegistration

	orderNotTakenToForward    map[uint16][]model.Order
	orderResultsToForward     map[uint16][]wire.SolvedPreviouslyDelegatedOrderPayload
	solvedStockQueryToForward map[uint16][]wire.SolvedAskForStockProductPayload

	workers []*OrderWorker
	orders  *OrderHandler

	awaitingStockReply map[uint16]chan map[uint16]int // worker id -> reply channel, leader-local queries only

	log     *zap.Logger
	metrics *telemetry.NodeMetrics

	mu      sync.Mutex
	running bool
}

// SetMetrics wires an optional prometheus metric set; nil leaves every
// increment below a no-op. Must be called before Run if used at all.
func (h *Hub) SetMetrics(m *telemetry.NodeMetrics) {
	h.metrics = m
}

// New builds an idle hub. ssID/slID are this node's own identities;
// dbAddr is the database's listen address, dialed only once this node
// becomes leader.
func New(ssID, slID uint16, dbAddr string, log *zap.Logger) *Hub {
	return &Hub{
		ssID:                      ssID,
		slID:                      slID,
		mailbox:                   make(chan func(), 256),
		done:                      make(chan struct{}),
		peers:                     make(map[uint16]*ssPeer),
		locals:                    make(map[uint16]*localPeer),
		dbAddr:                    dbAddr,
		orderNotTakenToForward:    make(map[uint16][]model.Order),
		orderResultsToForward:     make(map[uint16][]wire.SolvedPreviouslyDelegatedOrderPayload),
		solvedStockQueryToForward: make(map[uint16][]wire.SolvedAskForStockProductPayload),
		awaitingStockReply:        make(map[uint16]chan map[uint16]int),
		log:                       log,
	}
}

// SetOrderHandler wires the order queue/worker pool; must be called
// before Run.
func (h *Hub) SetOrderHandler(oh *OrderHandler, workers []*OrderWorker) {
	h.orders = oh
	h.workers = workers
}

// Run enqueues the initial election (spec §4.9.2: "triggered at boot") and
// then processes the mailbox until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.enqueue(func() { h.runElection() })
	for {
		select {
		case fn := <-h.mailbox:
			fn()
		case <-ctx.Done():
			close(h.done)
			return
		}
	}
}

func (h *Hub) enqueue(fn func()) {
	select {
	case h.mailbox <- fn:
	case <-h.done:
	}
}

// DialPeer connects to another e-commerce node's SS listener and performs
// the TakeMyId introduction used for peer discovery and election.
func (h *Hub) DialPeer(addr string) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		h.log.Debug("dial peer failed", zap.String("addr", addr), zap.Error(err))
		return
	}
	h.adoptSSConn(conn)
}

// ListenSS accepts peer e-commerce connections.
func (h *Hub) ListenSS(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() { <-ctx.Done(); ln.Close() }()
	h.log.Info("ss listener started", zap.String("addr", addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				continue
			}
		}
		h.adoptSSConn(conn)
	}
}

// ListenSL accepts local-shop connections.
func (h *Hub) ListenSL(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() { <-ctx.Done(); ln.Close() }()
	h.log.Info("sl listener started", zap.String("addr", addr))
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				continue
			}
		}
		h.adoptSLConn(conn)
	}
}

func (h *Hub) adoptSSConn(conn net.Conn) {
	log := h.log.With(zap.String("peer", conn.RemoteAddr().String()))
	var mm *netactor.Middleman
	mm = netactor.New(conn, log, func(env wire.Envelope) {
		h.enqueue(func() { h.onSSEnvelope(mm, env) })
	}, func(err error) {
		h.enqueue(func() { h.onSSDisconnect(mm) })
	})
	mm.Start()
	_ = mm.Send(wire.TakeMyID, wire.TakeMyIDPayload{SSID: h.ssID, SLID: h.slID})
}

func (h *Hub) adoptSLConn(conn net.Conn) {
	log := h.log.With(zap.String("peer", conn.RemoteAddr().String()))
	var mm *netactor.Middleman
	mm = netactor.New(conn, log, func(env wire.Envelope) {
		h.enqueue(func() { h.onSLEnvelope(mm, env) })
	}, func(err error) {
		h.enqueue(func() { h.onSLDisconnect(mm) })
	})
	mm.Start()
}
