package interview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/parleylabs/interviewd/pkg/interview/protocol"
)

// WSConn is the slice of *websocket.Conn the outbound pump needs. Tests
// substitute a recording fake.
type WSConn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type ConnConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	QueueSize    int
}

// Conn wraps one live connection with a single-writer discipline: all frames
// funnel through one pump goroutine, so concurrent pushes from the
// orchestrator and the reconciler are serialized and never interleave.
//
// Priority frames (final responses, errors, terminal messages) are written
// ahead of queued drafts and fillers.
type Conn struct {
	ws     WSConn
	logger *slog.Logger
	cfg    ConnConfig

	ctx    context.Context
	cancel context.CancelFunc

	priority chan []byte
	normal   chan []byte

	closeOnce sync.Once
	done      chan struct{}

	mu      sync.Mutex
	pumpErr error
}

func NewConn(ws WSConn, cfg ConnConfig, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:       ws,
		logger:   logger,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		priority: make(chan []byte, 8),
		normal:   make(chan []byte, cfg.QueueSize),
		done:     make(chan struct{}),
	}
	go c.pump()
	return c
}

// Send queues a normal-priority frame. It never blocks: a full queue means
// the client cannot keep up, which is reported as a lost connection.
func (c *Conn) Send(msg protocol.ServerMessage) error {
	return c.enqueue(c.normal, msg)
}

// SendPriority queues a frame the pump writes ahead of any queued normal
// frames.
func (c *Conn) SendPriority(msg protocol.ServerMessage) error {
	return c.enqueue(c.priority, msg)
}

func (c *Conn) enqueue(ch chan []byte, msg protocol.ServerMessage) error {
	data, err := protocol.EncodeServerMessage(msg)
	if err != nil {
		return err
	}
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}
	select {
	case ch <- data:
		return nil
	default:
		return ErrConnectionLost
	}
}

// Close delivers an optional terminal frame, flushes queued priority frames,
// writes a websocket close message, and tears the pump down. Idempotent.
func (c *Conn) Close(terminal *protocol.ServerMessage) {
	c.closeOnce.Do(func() {
		if terminal != nil {
			if data, err := protocol.EncodeServerMessage(*terminal); err == nil {
				select {
				case c.priority <- data:
				default:
				}
			}
		}
		c.cancel()
		wait := 200 * time.Millisecond
		if c.cfg.WriteTimeout > 0 && c.cfg.WriteTimeout < wait {
			wait = c.cfg.WriteTimeout
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-c.done:
		case <-timer.C:
		}
	})
}

// Done is closed when the pump has exited.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err reports why the pump stopped, nil for a clean shutdown.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pumpErr
}

func (c *Conn) pump() {
	defer close(c.done)

	pingTicker := time.NewTicker(c.cfg.PingInterval)
	defer pingTicker.Stop()

	fail := func(err error) {
		c.mu.Lock()
		c.pumpErr = err
		c.mu.Unlock()
		c.cancel()
		_ = c.ws.Close()
	}

	for {
		select {
		case <-c.ctx.Done():
			c.flushPriorityOnShutdown()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteTimeout))
			_ = c.ws.Close()
			return
		default:
		}

		// Priority frames preempt anything queued on the normal channel.
		select {
		case data := <-c.priority:
			if err := c.writeFrame(data); err != nil {
				fail(err)
				return
			}
			continue
		default:
		}

		select {
		case <-c.ctx.Done():
			continue
		case <-pingTicker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				fail(err)
				return
			}
		case data := <-c.priority:
			if err := c.writeFrame(data); err != nil {
				fail(err)
				return
			}
		case data := <-c.normal:
			if err := c.writeFrame(data); err != nil {
				fail(err)
				return
			}
		}
	}
}

func (c *Conn) flushPriorityOnShutdown() {
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	for i := 0; i < 8 && time.Now().Before(deadline); i++ {
		select {
		case data := <-c.priority:
			_ = c.writeFrame(data)
		default:
			return
		}
	}
}

func (c *Conn) writeFrame(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
