package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/dragonchu/agentpollen/internal/config"
	"github.com/dragonchu/agentpollen/internal/session"
	"github.com/dragonchu/agentpollen/internal/ws"
)

// Handler contains HTTP handler methods.
type Handler struct {
	sessions  *session.Manager
	hub       *ws.Hub
	wsHandler *ws.Handler
	cfg       *config.Config
}

// NewHandler creates a new API handler.
func NewHandler(sessions *session.Manager, hub *ws.Hub, cfg *config.Config) *Handler {
	h := &Handler{
		sessions: sessions,
		hub:      hub,
		cfg:      cfg,
	}
	h.wsHandler = ws.NewHandler(hub, sessions)
	return h
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListWorlds returns all running arena sessions.
func (h *Handler) ListWorlds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.ListSessions())
}

// CreateWorld creates a new arena session.
func (h *Handler) CreateWorld(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.CreateSession()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	state := sess.World.GetWorldState()
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":    sess.ID,
		"tick":  state.Tick,
		"phase": state.Phase,
	})
}

// GetWorld returns world summary details.
func (h *Handler) GetWorld(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	state := sess.World.GetWorldState()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":           sess.ID,
		"tick":         state.Tick,
		"phase":        state.Phase,
		"aliveCount":   state.AliveCount,
		"shrinkBorder": state.ShrinkBorder,
		"viewerCount":  h.hub.SessionClientCount(sess.ID),
	})
}

// StartWorld unpauses a session that was created paused (dev mode).
func (h *Handler) StartWorld(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.StartSession(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// GetWorldState returns the full current world state.
func (h *Handler) GetWorldState(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.World.GetFullSync(nil))
}

// WebSocket upgrades the connection and subscribes it to a session.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := h.sessions.GetSession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.wsHandler.ServeWS(w, r, sessionID)
}

// StopWorld stops a running session (dev only).
func (h *Handler) StopWorld(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.StopSession(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
