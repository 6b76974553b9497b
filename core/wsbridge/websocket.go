package wsbridge

import (
	"context"
	"errors"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/scheduler"
	"github.com/dmitrymomot/enginekit/pkg/mailbox"
)

// State is the lifecycle state of a connection.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// MessageType distinguishes text and binary frames.
type MessageType int

const (
	TextMessage MessageType = iota + 1
	BinaryMessage
)

// Message is one inbound frame.
type Message struct {
	Type MessageType
	Data []byte
}

// Text returns the payload as a string.
func (m Message) Text() string { return string(m.Data) }

// WebSocket is the handler-facing view of one live connection.
type WebSocket struct {
	conn    engine.Conn
	header  http.Header
	cookies []*http.Cookie
	inbox   *mailbox.Mailbox[Message]

	state     atomic.Int32
	eofSent   atomic.Bool
	closeOnce sync.Once

	mu     sync.Mutex
	reason string

	life *lifecycle
	loop *scheduler.Loop
}

func newWebSocket(conn engine.Conn, header http.Header, cookies []*http.Cookie) *WebSocket {
	if header == nil {
		header = http.Header{}
	}
	ws := &WebSocket{
		conn:    conn,
		header:  header,
		cookies: cookies,
		inbox:   mailbox.New[Message](),
	}
	ws.state.Store(int32(StateConnecting))
	return ws
}

// ID returns the engine-assigned connection ID.
func (ws *WebSocket) ID() uint64 { return ws.conn.ID() }

// State returns the current lifecycle state.
func (ws *WebSocket) State() State { return State(ws.state.Load()) }

// Header returns the handshake request headers.
func (ws *WebSocket) Header() http.Header { return ws.header }

// Cookies returns the handshake request cookies.
func (ws *WebSocket) Cookies() []*http.Cookie { return ws.cookies }

// Cookie returns the named handshake cookie or http.ErrNoCookie.
func (ws *WebSocket) Cookie(name string) (*http.Cookie, error) {
	for _, c := range ws.cookies {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, http.ErrNoCookie
}

// CloseReason returns the reason reported on disconnect, if any.
func (ws *WebSocket) CloseReason() string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.reason
}

// Send writes a text frame.
func (ws *WebSocket) Send(text string) error {
	if ws.State() != StateOpen {
		return ErrNotOpen
	}
	return ws.conn.Send(text)
}

// SendBinary writes a binary frame.
func (ws *WebSocket) SendBinary(data []byte) error {
	if ws.State() != StateOpen {
		return ErrNotOpen
	}
	return ws.conn.SendBinary(data)
}

// Close asks the engine to close the connection. The stream ends once the engine
// reports the disconnect. Calling Close more than once is a no-op.
func (ws *WebSocket) Close(reason string) error {
	var err error
	ws.closeOnce.Do(func() {
		if !ws.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
			ws.state.CompareAndSwap(int32(StateConnecting), int32(StateClosing))
		}
		if reason == "" {
			reason = engine.ReasonServerClosed
		}
		err = ws.conn.Close(reason)
	})
	return err
}

// Receive blocks until the next message arrives. At end-of-stream it returns io.EOF
// exactly once and ErrStreamClosed on every later call.
func (ws *WebSocket) Receive(ctx context.Context) (Message, error) {
	msg, err := ws.inbox.Pop(ctx)
	if err == nil {
		return msg, nil
	}
	if errors.Is(err, mailbox.ErrClosed) {
		if ws.eofSent.CompareAndSwap(false, true) {
			return Message{}, io.EOF
		}
		return Message{}, ErrStreamClosed
	}
	return Message{}, err
}

// ReceiveText is Receive returning the payload as a string.
func (ws *WebSocket) ReceiveText(ctx context.Context) (string, error) {
	msg, err := ws.Receive(ctx)
	if err != nil {
		return "", err
	}
	return msg.Text(), nil
}

// Messages iterates over inbound messages until end-of-stream or ctx is done.
// A receive error ends the iteration.
func (ws *WebSocket) Messages(ctx context.Context) iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for {
			msg, err := ws.Receive(ctx)
			if err != nil {
				return
			}
			if !yield(msg) {
				return
			}
		}
	}
}

func (ws *WebSocket) open() {
	ws.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// deliver enqueues msg. It reports false once the stream has ended.
func (ws *WebSocket) deliver(msg Message) bool {
	return ws.inbox.Push(msg) == nil
}

// disconnected marks the connection closed and ends the stream.
func (ws *WebSocket) disconnected(reason string) {
	ws.mu.Lock()
	ws.reason = reason
	ws.mu.Unlock()

	ws.state.Store(int32(StateClosed))
	ws.inbox.Close()
}
