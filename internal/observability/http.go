package observability

import (
	"net"
	"net/http"
	"strings"
)

// DeviceIDFromRequest reads the device identifier clients send on the
// websocket upgrade request. Empty when the client does not send one.
func DeviceIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Device-Id")
}

// RequestIDFromRequest reads the correlation id assigned by the edge proxy.
func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get("X-Request-Id")
}

// IPFromRequest resolves the peer address for audit events, preferring the
// first hop of X-Forwarded-For when the gateway sits behind a proxy.
func IPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
