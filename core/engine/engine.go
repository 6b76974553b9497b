package engine

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Request is the read-only view of one inbound HTTP request as delivered by the engine.
type Request interface {
	Method() string
	Path() string
	Header() http.Header
	Query() url.Values
	Body() []byte
	Cookies() []*http.Cookie
}

// Reply is the (body, status, headers) triple handed back to the engine.
type Reply struct {
	Status int
	Header http.Header
	Body   []byte
}

// DispatchFunc handles a request on the delivering goroutine and returns the reply.
type DispatchFunc func(ctx context.Context, req Request) Reply

// AsyncDispatchFunc handles a request without blocking the delivering goroutine.
// done is called exactly once with the final reply, possibly from another goroutine.
type AsyncDispatchFunc func(ctx context.Context, req Request, done func(Reply))

// Conn is the engine side of one live WebSocket connection.
// Implementations must be safe for concurrent use.
type Conn interface {
	ID() uint64
	Send(text string) error
	SendBinary(data []byte) error
	Close(reason string) error
}

// ConnHandler receives per-connection events. The engine may call any method
// from any goroutine, but events of a single connection are delivered in order.
type ConnHandler interface {
	OnConnect(ctx context.Context, conn Conn, header http.Header, cookies []*http.Cookie)
	OnMessage(connID uint64, text string)
	OnBinary(connID uint64, data []byte)
	OnDisconnect(connID uint64, reason string)
}

// WebSocketConfig carries per-route limits enforced by the engine.
// Zero values disable the corresponding limit.
type WebSocketConfig struct {
	// MaxMessageSize is the largest accepted inbound message in bytes.
	MaxMessageSize int64 `env:"WS_MAX_MESSAGE_SIZE" envDefault:"0"`
	// RateLimit is the number of inbound messages allowed per second.
	RateLimit int `env:"WS_RATE_LIMIT" envDefault:"0"`
	// HeartbeatInterval is the period between server pings.
	HeartbeatInterval time.Duration `env:"WS_HEARTBEAT_INTERVAL" envDefault:"0s"`
	// IdleTimeout closes connections without inbound traffic for this long.
	IdleTimeout time.Duration `env:"WS_IDLE_TIMEOUT" envDefault:"0s"`
}

// Engine is the registration surface of the native network engine.
type Engine interface {
	RegisterRoute(method, pattern string, fn DispatchFunc) error
	RegisterAsyncRoute(method, pattern string, fn AsyncDispatchFunc) error
	RegisterWebSocketRoute(pattern string, h ConnHandler, cfg WebSocketConfig) error
}

// Disconnect reasons reported by engines through ConnHandler.OnDisconnect.
const (
	ReasonClientClosed   = "client closed"
	ReasonServerClosed   = "server closed"
	ReasonMessageTooBig  = "message too large"
	ReasonRateLimited    = "rate limit exceeded"
	ReasonIdleTimeout    = "idle timeout"
	ReasonHeartbeatLost  = "heartbeat timeout"
	ReasonReadError      = "read error"
	ReasonEngineShutdown = "engine shutdown"
)

// StaticRequest is a Request backed by plain values.
// Engines that already buffered the request and tests use it directly.
type StaticRequest struct {
	MethodValue  string
	PathValue    string
	HeaderValue  http.Header
	QueryValue   url.Values
	BodyValue    []byte
	CookiesValue []*http.Cookie
}

func (r *StaticRequest) Method() string { return r.MethodValue }
func (r *StaticRequest) Path() string   { return r.PathValue }
func (r *StaticRequest) Body() []byte   { return r.BodyValue }

func (r *StaticRequest) Header() http.Header {
	if r.HeaderValue == nil {
		r.HeaderValue = http.Header{}
	}
	return r.HeaderValue
}

func (r *StaticRequest) Query() url.Values {
	if r.QueryValue == nil {
		r.QueryValue = url.Values{}
	}
	return r.QueryValue
}

func (r *StaticRequest) Cookies() []*http.Cookie { return r.CookiesValue }

// NewRequest builds a StaticRequest from a method and a target such as "/user/42?x=1".
func NewRequest(method, target string, body []byte) *StaticRequest {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: target}
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return &StaticRequest{
		MethodValue: method,
		PathValue:   path,
		HeaderValue: http.Header{},
		QueryValue:  u.Query(),
		BodyValue:   body,
	}
}
