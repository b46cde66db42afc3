package ecommerce

import (
	"net"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/netactor"
	"github.com/ferriscommerce/fabric/internal/wire"
)

func TestRunElectionSelfLeaderWhenNoPeers(t *testing.T) {
	h := New(5, 5500, "", zap.NewNop())
	h.runElection()

	if !h.IsLeader() {
		t.Fatal("expected self-declared leader with no peers")
	}
}

func TestRunElectionDefersToHigherPeer(t *testing.T) {
	h := New(5, 5500, "", zap.NewNop())

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	received := make(chan wire.Envelope, 1)
	mm := netactor.New(serverConn, zap.NewNop(), func(env wire.Envelope) {
		received <- env
	}, func(error) {})
	mm.Start()
	defer mm.Close()

	h.peers[9] = &ssPeer{ssID: 9, slID: 9500, mm: mm}

	go func() {
		sc := wire.NewLineReader(clientConn)
		for sc.Scan() {
		}
	}()

	h.runElection()

	if h.IsLeader() {
		t.Fatal("expected to defer to higher peer, not self-declare")
	}
}

func TestAdoptLeaderClosesLocalsWhenSomeoneElseBecomesLeader(t *testing.T) {
	h := New(5, 5500, "", zap.NewNop())

	serverConn, clientConn := net.Pipe()
	mm := netactor.New(serverConn, zap.NewNop(), func(wire.Envelope) {}, func(error) {})
	mm.Start()

	closed := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		clientConn.Read(buf) //nolint:errcheck
		close(closed)
	}()

	h.locals[1] = &localPeer{localID: 1, mm: mm}
	h.adoptLeader(9, 9500)

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("expected local connection to be closed when leadership moves away")
	}

	if len(h.locals) != 0 {
		t.Fatalf("expected locals map cleared, got %d entries", len(h.locals))
	}
	if h.IsLeader() {
		t.Fatal("should not be leader")
	}
}

func TestOnSSDisconnectOfLeaderTriggersReElection(t *testing.T) {
	h := New(5, 5500, "", zap.NewNop())

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()
	mm := netactor.New(serverConn, zap.NewNop(), func(wire.Envelope) {}, func(error) {})
	mm.Start()
	defer mm.Close()

	h.peers[9] = &ssPeer{ssID: 9, slID: 9500, mm: mm}
	h.haveLeader = true
	h.leaderSS = 9

	h.onSSDisconnect(mm)

	if !h.IsLeader() {
		t.Fatal("expected self-election after losing the only (leader) peer")
	}
}
