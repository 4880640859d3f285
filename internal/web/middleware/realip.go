package middleware

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/JonMunkholm/coursetrack/internal/core"
)

// ClientIP resolves the caller address and stores it in the request context
// (core.ClientIPFromContext). X-Real-IP and X-Forwarded-For are honoured only
// when the connection comes from one of the trusted proxy prefixes, so an
// untrusted client cannot spoof its address past the rate limiter or into
// run history.
func ClientIP(trustedProxies []string) func(http.Handler) http.Handler {
	trusted := parsePrefixes(trustedProxies)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := remoteAddr(r.RemoteAddr)
			if ip.IsValid() && isTrusted(ip, trusted) {
				if fwd, ok := forwardedFor(r); ok {
					ip = fwd
				}
			}

			client := r.RemoteAddr
			if ip.IsValid() {
				client = ip.String()
			}
			ctx := core.ContextWithClientIP(r.Context(), client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parsePrefixes accepts CIDRs or bare addresses; bad entries are skipped.
func parsePrefixes(values []string) []netip.Prefix {
	var out []netip.Prefix
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if p, err := netip.ParsePrefix(v); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			slog.Warn("realip: invalid trusted proxy, skipping", "value", v, "error", err)
			continue
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out
}

func remoteAddr(addr string) netip.Addr {
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap()
	}
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return netip.Addr{}
	}
	return a.Unmap()
}

// forwardedFor prefers X-Real-IP, then the first X-Forwarded-For hop.
func forwardedFor(r *http.Request) (netip.Addr, bool) {
	if v := r.Header.Get("X-Real-IP"); v != "" {
		a, err := netip.ParseAddr(strings.TrimSpace(v))
		return a.Unmap(), err == nil
	}
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		first, _, _ := strings.Cut(v, ",")
		a, err := netip.ParseAddr(strings.TrimSpace(first))
		return a.Unmap(), err == nil
	}
	return netip.Addr{}, false
}

func isTrusted(ip netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}
