package httpengine

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/logger"
)

// wsConn implements engine.Conn over a gorilla connection. Writes are serialized;
// the reader goroutine is the one running serve.
type wsConn struct {
	id        uint64
	ws        *websocket.Conn
	rt        *route
	writeWait time.Duration
	logger    *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	reason    atomic.Pointer[string]

	lastMessage atomic.Int64
	lastPong    atomic.Int64
}

var _ engine.Conn = (*wsConn)(nil)

func newWSConn(id uint64, ws *websocket.Conn, rt *route, writeWait time.Duration, l *slog.Logger) *wsConn {
	now := time.Now().UnixNano()
	c := &wsConn{
		id:        id,
		ws:        ws,
		rt:        rt,
		writeWait: writeWait,
		logger:    l.With(logger.Component("httpengine"), logger.ConnID(id)),
		done:      make(chan struct{}),
	}
	c.lastMessage.Store(now)
	c.lastPong.Store(now)
	return c
}

func (c *wsConn) ID() uint64 { return c.id }

func (c *wsConn) Send(text string) error {
	return c.write(websocket.TextMessage, []byte(text))
}

func (c *wsConn) SendBinary(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

// Close sends a normal close frame and tears the connection down. The disconnect
// event carries reason unless another close happened first.
func (c *wsConn) Close(reason string) error {
	if reason == "" {
		reason = engine.ReasonServerClosed
	}
	return c.closeWith(reason, websocket.CloseNormalClosure)
}

func (c *wsConn) write(typ int, data []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(typ, data)
}

func (c *wsConn) closeWith(reason string, code int) error {
	err := ErrConnClosed
	c.closeOnce.Do(func() {
		c.reason.Store(&reason)
		close(c.done)

		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) closeReason() string {
	if r := c.reason.Load(); r != nil {
		return *r
	}
	return engine.ReasonClientClosed
}

// serve runs the read loop until the connection ends, then reports the disconnect.
func (c *wsConn) serve() {
	cfg := c.rt.wsCfg
	if cfg.MaxMessageSize > 0 {
		c.ws.SetReadLimit(cfg.MaxMessageSize)
	}
	c.ws.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now().UnixNano())
		return c.extendDeadline()
	})
	_ = c.extendDeadline()

	if cfg.HeartbeatInterval > 0 {
		go c.heartbeat(cfg.HeartbeatInterval)
	}

	key := strconv.FormatUint(c.id, 10)
	ctx := context.Background()

	for {
		typ, data, err := c.ws.ReadMessage()
		if err != nil {
			reason, code := c.readFailure(err)
			_ = c.closeWith(reason, code)
			break
		}

		c.lastMessage.Store(time.Now().UnixNano())
		_ = c.extendDeadline()

		if c.rt.limiter != nil {
			res, err := c.rt.limiter.Allow(ctx, key)
			if err == nil && !res.Allowed() {
				_ = c.closeWith(engine.ReasonRateLimited, websocket.ClosePolicyViolation)
				break
			}
		}

		switch typ {
		case websocket.TextMessage:
			c.rt.ws.OnMessage(c.id, string(data))
		case websocket.BinaryMessage:
			c.rt.ws.OnBinary(c.id, data)
		}
	}

	if c.rt.limiter != nil {
		_ = c.rt.limiter.Reset(ctx, key)
	}

	reason := c.closeReason()
	c.logger.Debug("websocket closed", logger.Reason(reason))
	c.rt.ws.OnDisconnect(c.id, reason)
}

// readFailure maps a read error to a disconnect reason and close code.
func (c *wsConn) readFailure(err error) (string, int) {
	select {
	case <-c.done:
		return c.closeReason(), websocket.CloseNormalClosure
	default:
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		return engine.ReasonMessageTooBig, websocket.CloseMessageTooBig
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return engine.ReasonClientClosed, websocket.CloseNormalClosure
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		idle := c.rt.wsCfg.IdleTimeout
		if idle > 0 && time.Since(time.Unix(0, c.lastMessage.Load())) >= idle {
			return engine.ReasonIdleTimeout, websocket.CloseGoingAway
		}
		return engine.ReasonHeartbeatLost, websocket.CloseGoingAway
	}

	c.logger.Debug("websocket read failed", logger.Error(err))
	return engine.ReasonReadError, websocket.CloseInternalServerErr
}

// extendDeadline sets the read deadline to the earliest of the idle and heartbeat limits.
func (c *wsConn) extendDeadline() error {
	cfg := c.rt.wsCfg

	var deadline time.Time
	if cfg.IdleTimeout > 0 {
		deadline = time.Unix(0, c.lastMessage.Load()).Add(cfg.IdleTimeout)
	}
	if cfg.HeartbeatInterval > 0 {
		// A pong must arrive within two ping periods.
		hb := time.Unix(0, c.lastPong.Load()).Add(2 * cfg.HeartbeatInterval)
		if deadline.IsZero() || hb.Before(deadline) {
			deadline = hb
		}
	}
	return c.ws.SetReadDeadline(deadline)
}

func (c *wsConn) heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				return
			}
		}
	}
}
