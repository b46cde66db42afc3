package netactor

import (
	"net"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/wire"
)

func TestMiddlemanDeliversDecodedMessages(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	received := make(chan wire.Envelope, 1)
	mm := New(serverConn, zap.NewNop(), func(env wire.Envelope) {
		received <- env
	}, func(error) {})
	mm.Start()
	defer mm.Close()

	line, err := wire.Encode(wire.AskLeaderMessage, wire.AskLeaderMessagePayload{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	line = append(line, '\n')
	if _, err := clientConn.Write(line); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case env := <-received:
		if env.Type != wire.AskLeaderMessage {
			t.Fatalf("want type %s, got %s", wire.AskLeaderMessage, env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMiddlemanOnDoneFiresExactlyOnce(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	var mu sync.Mutex
	count := 0
	mm := New(serverConn, zap.NewNop(), func(wire.Envelope) {}, func(error) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	mm.Start()

	mm.Close()
	mm.Close()
	clientConn.Close()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("want onDone called once, got %d", count)
	}
}

func TestMiddlemanSendAfterCloseFails(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	mm := New(serverConn, zap.NewNop(), func(wire.Envelope) {}, func(error) {})
	mm.Start()
	mm.Close()

	if err := mm.Send(wire.AskLeaderMessage, wire.AskLeaderMessagePayload{}); err == nil {
		t.Fatal("expected error sending on closed middleman")
	}
}
