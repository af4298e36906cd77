package metadata

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"certverify/pkg/requestcontext"
)

// ClientMetadata extracts client IP address and User-Agent from the request,
// parses the User-Agent, and adds all of it to the context for log lines.
// This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		userAgent := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, userAgent, ParseUserAgent(userAgent))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseUserAgent summarizes a User-Agent header. Empty input yields the zero value.
func ParseUserAgent(header string) requestcontext.ClientInfo {
	if header == "" {
		return requestcontext.ClientInfo{}
	}
	ua := useragent.New(header)
	browser, _ := ua.Browser()
	return requestcontext.ClientInfo{
		Browser:  browser,
		Platform: ua.OS(),
		Mobile:   ua.Mobile(),
		Bot:      ua.Bot(),
	}
}

// ClientIPFromRequest extracts the real client IP from the request, handling proxies and load balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs (client, proxy1, proxy2, ...)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" or "[::1]:port"
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
