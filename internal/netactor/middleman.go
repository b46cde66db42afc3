// Package netactor implements the connection middleman: the actor that owns
// exactly one TCP connection, translates bytes to/from typed wire messages,
// and never retries or reconnects itself (spec §4.2, §5, §9).
package netactor

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ferriscommerce/fabric/internal/wire"
)

// Middleman owns one net.Conn. Construct it with the peer connection and two
// callbacks: one invoked per parsed inbound message, one invoked once when
// the connection dies (read EOF, read error, parse error, or a failed
// write). It never calls either callback concurrently with itself more than
// once, and never reconnects.
type Middleman struct {
	conn   net.Conn
	log    *zap.Logger
	onMsg  func(wire.Envelope)
	onDone func(error)

	writeMu  sync.Mutex
	closed   atomic.Bool
	doneOnce sync.Once
}

// New constructs a middleman. Call Start to begin reading.
func New(conn net.Conn, log *zap.Logger, onMsg func(wire.Envelope), onDone func(error)) *Middleman {
	return &Middleman{
		conn:   conn,
		log:    log,
		onMsg:  onMsg,
		onDone: onDone,
	}
}

// Start launches the inbound read loop in its own goroutine. It returns
// immediately; the loop runs until the connection closes or a parse error
// occurs.
func (m *Middleman) Start() {
	go m.readLoop()
}

func (m *Middleman) readLoop() {
	scanner := wire.NewLineReader(m.conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		env, err := wire.Decode(line)
		if err != nil {
			m.log.Error("parse error, dropping connection", zap.Error(err))
			m.finish(err)
			return
		}
		m.onMsg(env)
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	m.finish(err)
}

// Send serializes t/payload as one line and writes it under the write
// mutex, appending "\n". This is the middleman's sole outbound operation
// (spec §4.2); ordering across calls is FIFO because of the mutex.
func (m *Middleman) Send(t wire.Type, payload any) error {
	if m.closed.Load() {
		return errors.New("netactor: middleman closed")
	}
	line, err := wire.Encode(t, payload)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if _, err := m.conn.Write(line); err != nil {
		go m.finish(fmt.Errorf("netactor: write failed: %w", err))
		return err
	}
	return nil
}

// Close terminates the underlying connection. Safe to call more than once.
func (m *Middleman) Close() error {
	m.finish(nil)
	return m.conn.Close()
}

func (m *Middleman) finish(err error) {
	if !m.closed.CompareAndSwap(false, true) {
		return
	}
	m.conn.Close()
	m.doneOnce.Do(func() {
		if m.onDone != nil {
			m.onDone(err)
		}
	})
}

// RemoteAddr exposes the underlying connection's remote address for logging.
func (m *Middleman) RemoteAddr() string {
	if m.conn == nil {
		return ""
	}
	return m.conn.RemoteAddr().String()
}
