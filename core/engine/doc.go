// Package engine declares the narrow contract between enginekit and the native
// network engine that owns sockets, HTTP parsing, route matching and WebSocket framing.
//
// The engine calls into enginekit through three shapes:
//
//   - DispatchFunc for blocking routes: the handler runs on the delivering goroutine.
//   - AsyncDispatchFunc for cooperative routes: the engine passes a completion callback
//     and must not assume the reply is ready when the call returns.
//   - ConnHandler for WebSocket routes: OnConnect, OnMessage, OnBinary and OnDisconnect
//     may arrive on arbitrary goroutines.
//
// Limits such as message size, rate, heartbeats and idle timeouts are enforced by the
// engine and only surface as the reason string passed to OnDisconnect.
//
// The httpengine subpackage provides a net/http and gorilla/websocket implementation.
package engine
