package middleware

import (
	"net/http"
	"strings"
)

// CORSMiddleware answers preflights and echoes allowed origins
type CORSMiddleware struct {
	allowAll bool
	origins  map[string]struct{}
}

func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	m := &CORSMiddleware{origins: make(map[string]struct{}, len(allowedOrigins))}
	for _, origin := range allowedOrigins {
		if origin == "*" {
			m.allowAll = true
			continue
		}
		m.origins[strings.TrimRight(origin, "/")] = struct{}{}
	}
	return m
}

// AllowOrigin reports whether a browser origin may call the API.
// Requests without an Origin header are not cross-origin.
func (m *CORSMiddleware) AllowOrigin(origin string) bool {
	if origin == "" || m.allowAll {
		return true
	}
	_, ok := m.origins[origin]
	return ok
}

// CheckOrigin has the signature websocket.Upgrader expects
func (m *CORSMiddleware) CheckOrigin(r *http.Request) bool {
	return m.AllowOrigin(r.Header.Get("Origin"))
}

func (m *CORSMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		origin := req.Header.Get("Origin")
		if origin != "" && m.AllowOrigin(origin) {
			if m.allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Last-Event-ID")
		}

		if req.Method == http.MethodOptions {
			if origin != "" && !m.AllowOrigin(origin) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, req)
	})
}
