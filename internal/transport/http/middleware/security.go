package middleware

import (
	"net/http"
	"strings"
)

// contentSecurityPolicy admits the map's own assets, OSM tiles, the
// geocoder and direct media uploads.
var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"img-src 'self' data: blob: https://*.tile.openstreetmap.org https:",
	"media-src 'self' blob: https:",
	"connect-src 'self' ws: wss: https://nominatim.openstreetmap.org https://*.r2.cloudflarestorage.com",
	"style-src 'self' 'unsafe-inline'",
	"script-src 'self'",
	"frame-ancestors 'none'",
}, "; ")

// SecurityHeaders sets browser hardening headers on every response except
// WebSocket upgrades on wsPath.
func SecurityHeaders(wsPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != wsPath {
				h := w.Header()
				h.Set("Content-Security-Policy", contentSecurityPolicy)
				h.Set("X-Content-Type-Options", "nosniff")
				h.Set("X-Frame-Options", "DENY")
				h.Set("Referrer-Policy", "no-referrer")
				if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
					h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
