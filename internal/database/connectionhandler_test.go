package database

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/model"
	"github.com/ferriscommerce/fabric/internal/netactor"
	"github.com/ferriscommerce/fabric/internal/wire"
)

func newTestHandler() (*ConnectionHandler, *Registry) {
	registry := NewRegistry()
	return NewConnectionHandler(registry, zap.NewNop(), nil, nil), registry
}

func newPipedMiddleman(t *testing.T, h *ConnectionHandler) (*netactor.Middleman, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	var mm *netactor.Middleman
	mm = netactor.New(serverConn, zap.NewNop(), func(env wire.Envelope) {
		h.dispatch(mm, env, zap.NewNop())
	}, func(error) {})
	mm.Start()
	t.Cleanup(func() { mm.Close(); clientConn.Close() })
	return mm, clientConn
}

func sendFrom(t *testing.T, conn net.Conn, ty wire.Type, payload any) {
	t.Helper()
	line, err := wire.Encode(ty, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	line = append(line, '\n')
	if _, err := conn.Write(line); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEnvelope(t *testing.T, conn net.Conn) wire.Envelope {
	t.Helper()
	sc := wire.NewLineReader(conn)
	if !sc.Scan() {
		t.Fatalf("expected a line, scan error: %v", sc.Err())
	}
	env, err := wire.Decode(sc.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestDispatchGetNewLocalIDRepliesWithIssuedID(t *testing.T) {
	h, _ := newTestHandler()
	_, clientConn := newPipedMiddleman(t, h)

	sendFrom(t, clientConn, wire.GetNewLocalID, wire.GetNewLocalIDPayload{})

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	env := readEnvelope(t, clientConn)
	if env.Type != wire.NewLocalID {
		t.Fatalf("want NewLocalId reply, got %s", env.Type)
	}
	var p wire.NewLocalIDPayload
	if err := env.Into(&p); err != nil {
		t.Fatalf("into: %v", err)
	}
	if p.LocalID != 1 {
		t.Fatalf("want first issued id 1, got %d", p.LocalID)
	}
}

func TestDispatchPostOrderResultAppliesToRegistry(t *testing.T) {
	h, registry := newTestHandler()
	localID := registry.GetNewLocalID()
	if err := registry.PostStockFromLocal(localID, model.Stock{"pen": 5}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	_, clientConn := newPipedMiddleman(t, h)
	order := model.Order{ID: 1, Products: []model.Product{{Name: "pen", Quantity: 2}}}
	sendFrom(t, clientConn, wire.PostOrderResult, wire.PostOrderResultPayload{LocalID: localID, Order: order, Completed: true})

	time.Sleep(100 * time.Millisecond)

	if got := registry.ProductQuantityForLocal(localID, "pen"); got != 3 {
		t.Fatalf("want 3 remaining after order result, got %d", got)
	}
	if len(registry.Results()) != 1 {
		t.Fatalf("want 1 audit record, got %d", len(registry.Results()))
	}
}

func TestDispatchUnknownTypeClosesConnection(t *testing.T) {
	h, _ := newTestHandler()
	mm, clientConn := newPipedMiddleman(t, h)

	sendFrom(t, clientConn, wire.Type("BogusMessage"), struct{}{})

	time.Sleep(100 * time.Millisecond)
	if err := mm.Send(wire.GetNewLocalID, wire.GetNewLocalIDPayload{}); err == nil {
		t.Fatal("expected middleman to be closed after unknown message type")
	}
}
