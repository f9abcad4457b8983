package api

import (
	"net/http"
	"strings"

	"github.com/dragonchu/agentpollen/internal/config"
	"github.com/dragonchu/agentpollen/internal/session"
	"github.com/dragonchu/agentpollen/internal/ws"
)

// NewRouter creates the HTTP router with all routes.
func NewRouter(sessions *session.Manager, hub *ws.Hub, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	handler := NewHandler(sessions, hub, cfg)

	mux.HandleFunc("GET /health", handler.Health)

	mux.HandleFunc("GET /api/worlds", handler.ListWorlds)
	mux.HandleFunc("POST /api/worlds", handler.CreateWorld)
	mux.HandleFunc("GET /api/worlds/{id}", handler.GetWorld)
	mux.HandleFunc("POST /api/worlds/{id}/start", handler.StartWorld)
	mux.HandleFunc("GET /api/worlds/{id}/state", handler.GetWorldState)

	mux.HandleFunc("GET /ws/world/{id}", handler.WebSocket)

	if cfg.Dev.Enabled {
		mux.HandleFunc("POST /api/dev/worlds/{id}/stop", handler.StopWorld)
	}

	return corsMiddleware(cfg.Server.CORSOrigins, mux)
}

// corsMiddleware adds CORS headers allowing the configured origin list.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
