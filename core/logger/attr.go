package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Helpers that take optional input return the empty Attr for nil or "", which
// slog handlers drop. Call sites can pass them unconditionally.

// Error logs err under "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors logs the non-nil errors of errs as a group keyed by position.
func Errors(errs ...error) slog.Attr {
	var attrs []slog.Attr
	for i, err := range errs {
		if err != nil {
			attrs = append(attrs, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(attrs) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(attrs...)}
}

// Panic logs a recovered panic value.
func Panic(v any) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	return slog.Any("panic", v)
}

// StackBytes logs a stack captured at a recover point.
func StackBytes(stack []byte) slog.Attr {
	if len(stack) == 0 {
		return slog.Attr{}
	}
	return slog.String("stack", string(stack))
}

func Component(name string) slog.Attr { return slog.String("component", name) }
func Event(name string) slog.Attr     { return slog.String("event", name) }
func Method(method string) slog.Attr  { return slog.String("method", method) }
func Path(path string) slog.Attr      { return slog.String("path", path) }
func Pattern(p string) slog.Attr      { return slog.String("pattern", p) }
func StatusCode(code int) slog.Attr   { return slog.Int("status_code", code) }
func BytesOut(n int64) slog.Attr      { return slog.Int64("bytes_out", n) }

// Duration logs d under "duration".
func Duration(d time.Duration) slog.Attr { return slog.Duration("duration", d) }

// Count logs a counter under key.
func Count(key string, n int) slog.Attr { return slog.Int(key, n) }

// RequestID logs the request id, or nothing when id is empty.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// ConnID logs an engine-assigned WebSocket connection id.
func ConnID(id uint64) slog.Attr { return slog.Uint64("conn_id", id) }

// Reason logs a close or disconnect reason, or nothing when empty.
func Reason(reason string) slog.Attr {
	if reason == "" {
		return slog.Attr{}
	}
	return slog.String("reason", reason)
}
