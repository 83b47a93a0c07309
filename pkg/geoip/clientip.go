package geoip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP extracts the visitor address from r. Proxy headers are consulted
// only when trustProxy is set; the first public address found wins.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
			if ip, ok := publicAddr(part); ok {
				return ip
			}
		}
		for _, h := range []string{"X-Real-IP", "CF-Connecting-IP"} {
			if ip, ok := publicAddr(r.Header.Get(h)); ok {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		return addr.Unmap().String()
	}
	return host
}

func publicAddr(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || !IsPublic(addr) {
		return "", false
	}
	return addr.Unmap().String(), true
}
