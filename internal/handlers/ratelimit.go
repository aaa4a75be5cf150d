package handlers

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RateLimiter guards the session endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// TrustedProxies lists the peers whose forwarding headers are believed.
type TrustedProxies []netip.Prefix

func (t TrustedProxies) contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func allowRequest(limiter RateLimiter, proxies TrustedProxies, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(rateLimitKey(r, proxies, scope))
}

// rateLimitKey buckets callers per endpoint scope and client address.
func rateLimitKey(r *http.Request, proxies TrustedProxies, scope string) string {
	ip := clientIP(r, proxies)
	if scope == "" {
		return ip
	}
	return scope + ":" + ip
}

// clientIP returns the connection's remote host unless that host is a trusted
// proxy. Behind a trusted proxy it walks X-Forwarded-For from the right and
// returns the first hop that is not itself trusted, then tries X-Real-IP.
func clientIP(r *http.Request, proxies TrustedProxies) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil || host == "" {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	remote, err := netip.ParseAddr(host)
	if err != nil || !proxies.contains(remote) {
		return host
	}

	if forwarded := r.Header.Values("X-Forwarded-For"); len(forwarded) > 0 {
		hops := strings.Split(strings.Join(forwarded, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !proxies.contains(hop) {
				return hop.Unmap().String()
			}
		}
	}
	if real, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return real.Unmap().String()
	}
	return remote.Unmap().String()
}
