package wsserver

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/pricesim/feedsim/internal/simcore"
)

// sinkSendBuffer bounds the per-sink outbound queue. A slow subscriber
// fills its own buffer without ever blocking the Broadcaster's fan-out
// pass across other sinks (spec §5 backpressure).
const sinkSendBuffer = 256

const (
	writeWait  = 5 * time.Second
	pingPeriod = 50 * time.Second
)

// wsSink adapts a raw WebSocket connection to simcore.Sink. It owns the
// session's write pump and read pump; on termination it removes itself
// from the registry (spec §4.8).
type wsSink struct {
	id       string
	conn     net.Conn
	send     chan []byte
	logger   *zap.Logger
	registry *simcore.Registry

	mu     sync.Mutex
	closed bool
}

func newWSSink(conn net.Conn, registry *simcore.Registry, logger *zap.Logger) *wsSink {
	return &wsSink{
		id:       conn.RemoteAddr().String(),
		conn:     conn,
		send:     make(chan []byte, sinkSendBuffer),
		logger:   logger,
		registry: registry,
	}
}

func (s *wsSink) ID() string { return s.id }

// Send enqueues frame for delivery. It never blocks: if the sink's buffer
// is full, the write is reported as failed rather than stalling the
// Broadcaster's fan-out pass. Send and close share s.mu so a concurrent
// disconnect can never close s.send while Send is enqueueing onto it —
// without that, a broadcast racing a client disconnect would panic on a
// send to a closed channel and take the ticker loop down with it.
func (s *wsSink) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSinkClosed
	}

	select {
	case s.send <- frame:
		return nil
	default:
		return errSinkBufferFull
	}
}

// start launches the read and write pumps. Call once per accepted
// connection, after the sink has been registered and its subscription
// ack enqueued.
func (s *wsSink) start() {
	go s.writePump()
	go s.readPump()
}

func (s *wsSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// readPump discards all inbound bytes (spec §4.6: clients are
// receive-only) and terminates the session on any read error or a client
// close frame, removing the sink from the registry (spec §4.8).
func (s *wsSink) readPump() {
	defer func() {
		s.registry.Remove(s)
		s.close()
		s.conn.Close()
	}()

	for {
		header, err := ws.ReadHeader(s.conn)
		if err != nil {
			return
		}

		payload := make([]byte, header.Length)
		if _, err := io.ReadFull(s.conn, payload); err != nil {
			return
		}
		if header.Masked {
			ws.Cipher(payload, header.Mask, 0)
		}

		if header.OpCode == ws.OpClose {
			return
		}
	}
}

// writePump serializes all writes to the connection: enqueued price
// frames and periodic pings. It exits, closing the connection, once the
// send channel is closed by readPump or a write fails.
func (s *wsSink) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.Write(ws.CompiledClose)
				return
			}
			if err := wsutil.WriteServerText(s.conn, frame); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsutil.WriteServerMessage(s.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
