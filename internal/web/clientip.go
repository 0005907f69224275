package web

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the originating client address for a request: the first
// hop of X-Forwarded-For when present, otherwise the connection's remote
// address with the port stripped.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
