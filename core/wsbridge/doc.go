// Package wsbridge adapts engine WebSocket events to handler-facing connections.
//
// The engine reports connect, message and disconnect events from its own goroutines.
// The bridge keeps a registry of live connections. The handler runs once per
// connection as a task on a scheduler loop, taken from the connect context or from a
// shared background loop. Each message is posted to that loop, which pushes it into a
// per-connection mailbox, so a handler reading with Receive observes messages in the
// order the engine delivered them. If the loop refuses a post, the connection is closed.
//
//	b := wsbridge.New(func(ctx context.Context, ws *wsbridge.WebSocket) error {
//		for msg := range ws.Messages(ctx) {
//			if err := ws.Send("echo: " + msg.Text()); err != nil {
//				return err
//			}
//		}
//		return nil
//	})
//
// When the engine reports the disconnect, Receive returns io.EOF once and
// ErrStreamClosed afterwards. A handler that returns while the connection is still
// open causes the bridge to close it.
package wsbridge
