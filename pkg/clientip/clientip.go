package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var headers = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP returns the client IP from h, or the host part of fallback when no header
// carries a valid address. It returns "" when neither does.
func GetIP(h http.Header, fallback string) string {
	for _, name := range headers {
		v := h.Get(name)
		if v == "" {
			continue
		}
		if name == "X-Forwarded-For" {
			v, _, _ = strings.Cut(v, ",")
		}
		if ip, ok := parse(v); ok {
			return ip
		}
	}

	if fallback == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(fallback)
	if err != nil {
		host = fallback
	}
	if ip, ok := parse(host); ok {
		return ip
	}
	return host
}

func parse(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || addr.IsUnspecified() {
		return "", false
	}
	return addr.Unmap().String(), true
}
