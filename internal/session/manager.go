// Package session ties together one arena World, its decision backend, its
// Publisher, and the shared WebSocket hub into a running game instance, and
// lets the API layer create, list, and stop many of them concurrently.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dragonchu/agentpollen/internal/arena"
	"github.com/dragonchu/agentpollen/internal/config"
	"github.com/dragonchu/agentpollen/internal/db"
	"github.com/dragonchu/agentpollen/internal/decision"
	"github.com/dragonchu/agentpollen/internal/llm"
	"github.com/dragonchu/agentpollen/internal/pubsub"
	"github.com/dragonchu/agentpollen/internal/thinking"
	"github.com/dragonchu/agentpollen/internal/ws"
)

// ErrSessionNotFound is returned when a session ID has no running session.
var ErrSessionNotFound = errors.New("session not found")

const tickTimeout = 800 * time.Millisecond

// Session is one running arena instance plus its publisher and the
// goroutine driving its tick loop.
type Session struct {
	ID        string
	World     *arena.World
	Publisher *pubsub.Publisher

	started atomic.Bool
	cancel  context.CancelFunc
}

// Start unpauses a session's tick loop; CreateSession sessions start
// paused when the Manager was built with pauseByDefault.
func (s *Session) Start() {
	s.started.Store(true)
}

// Info is a summary of a session, returned by ListSessions.
type Info struct {
	ID         string      `json:"id"`
	Tick       int         `json:"tick"`
	Phase      arena.Phase `json:"phase"`
	AgentCount int         `json:"agentCount"`
	Viewers    int         `json:"viewers"`
}

// Manager owns every running Session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg            *config.Config
	hub            *ws.Hub
	postgres       *db.Postgres
	redis          *db.Redis
	pauseByDefault bool
}

// NewManager creates a Manager. cfg supplies the default arena/LLM
// configuration for new sessions; postgres and redis may be disconnected
// instances (their methods degrade to no-ops).
func NewManager(cfg *config.Config, hub *ws.Hub, postgres *db.Postgres, redis *db.Redis) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		hub:      hub,
		postgres: postgres,
		redis:    redis,
	}
	hub.OnUnregister = m.onDisconnect
	return m
}

// SetPauseByDefault controls whether new sessions start paused, requiring
// an explicit StartSession call before the tick loop advances.
func (m *Manager) SetPauseByDefault(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseByDefault = paused
}

// OnConnect implements ws.InboundHandler: it dispatches to the session
// named by client.SessionID.
func (m *Manager) OnConnect(client *ws.Client) {
	sess, err := m.GetSession(client.SessionID)
	if err != nil {
		log.Printf("session: connect for unknown session %s", client.SessionID)
		return
	}
	sess.Publisher.OnConnect(client)
}

// HandleInbound implements ws.InboundHandler.
func (m *Manager) HandleInbound(client *ws.Client, message []byte) {
	sess, err := m.GetSession(client.SessionID)
	if err != nil {
		return
	}
	sess.Publisher.HandleInbound(client, message)
}

func (m *Manager) onDisconnect(client *ws.Client) {
	sess, err := m.GetSession(client.SessionID)
	if err != nil {
		return
	}
	sess.Publisher.OnDisconnect(client)
}

func (m *Manager) buildBackend() decision.Backend {
	ruleBased := decision.NewRuleBased()
	if m.cfg.Arena.Backend != "llm" {
		return ruleBased
	}

	var client decision.ChatClient
	if m.cfg.LLM.APIKey == "" {
		client = llm.NewMockClient()
	} else {
		client = llm.NewClient(m.cfg.LLM.APIKey, m.cfg.LLM.Model, m.cfg.LLM.BaseURL, m.cfg.LLM.Timeout)
	}
	maxConcurrency := m.cfg.LLM.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return decision.NewLLM(client, ruleBased, maxConcurrency)
}

func (m *Manager) buildThinkingStore() thinking.Store {
	if m.cfg.Arena.ThinkingStorage == "null" {
		return thinking.NullStore{}
	}
	return thinking.NewMemoryStore()
}

// CreateSession builds a new arena world with a fresh session ID and starts
// its tick loop.
func (m *Manager) CreateSession() (*Session, error) {
	if m.cfg.Arena.AgentCount < 1 {
		return nil, arena.ErrNoAgents
	}

	sessionID := uuid.New().String()

	worldCfg := arena.Config{
		GridSize:            m.cfg.Arena.GridSize,
		AgentCount:          m.cfg.Arena.AgentCount,
		TickInterval:        m.cfg.Arena.TickInterval,
		VotingWindow:        m.cfg.Arena.VotingWindow,
		ShrinkIntervalTicks: m.cfg.Arena.ShrinkIntervalTicks,
		ObstacleDensity:     m.cfg.Arena.ObstacleDensity,
		ObstacleSeed:        m.cfg.Arena.ObstacleSeed,
		VisionRange:         m.cfg.Arena.VisionRange,
		MinBorder:           m.cfg.Arena.MinBorder,
	}

	backend := m.buildBackend()
	store := m.buildThinkingStore()
	world := arena.NewWorld(worldCfg, backend, store, sessionID)
	publisher := pubsub.NewPublisher(world, m.hub, store, sessionID, pubsub.ModeDelta)

	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{ID: sessionID, World: world, Publisher: publisher, cancel: cancel}

	m.mu.Lock()
	pauseByDefault := m.pauseByDefault
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	if !pauseByDefault {
		sess.started.Store(true)
	}

	go m.runTickLoop(ctx, sess, worldCfg.TickInterval)

	return sess, nil
}

// StartSession unpauses a previously paused session.
func (m *Manager) StartSession(id string) error {
	sess, err := m.GetSession(id)
	if err != nil {
		return err
	}
	if sess.World.GetWorldState().Phase == arena.PhaseFinished {
		return arena.ErrWorldNotRunning
	}
	sess.Start()
	return nil
}

func (m *Manager) runTickLoop(ctx context.Context, sess *Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !sess.started.Load() {
				continue
			}
			tickCtx, cancel := context.WithTimeout(ctx, tickTimeout)
			events := sess.World.Tick(tickCtx)
			cancel()

			sess.Publisher.PublishTick(events)

			state := sess.World.GetWorldState()
			if m.postgres.IsConnected() {
				if err := m.postgres.LogTickEvents(ctx, sess.ID, state.Tick, events); err != nil {
					log.Printf("session %s: failed to log tick events: %v", sess.ID, err)
				}
			}
			if m.redis.IsConnected() {
				full := sess.World.GetFullSync(nil)
				if err := m.redis.SetSnapshot(ctx, sess.ID, full, 5*time.Minute); err != nil {
					log.Printf("session %s: failed to cache snapshot: %v", sess.ID, err)
				}
			}

			if state.Phase == arena.PhaseFinished {
				log.Printf("session %s: finished at tick %d", sess.ID, state.Tick)
				return
			}
		}
	}
}

// GetSession returns the session by ID.
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// ListSessions returns a summary of every running session.
func (m *Manager) ListSessions() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Info, 0, len(m.sessions))
	for id, sess := range m.sessions {
		state := sess.World.GetWorldState()
		out = append(out, Info{
			ID:         id,
			Tick:       state.Tick,
			Phase:      state.Phase,
			AgentCount: len(sess.World.AllAgents()),
			Viewers:    m.hub.SessionClientCount(id),
		})
	}
	return out
}

// StopSession cancels a session's tick loop and removes it.
func (m *Manager) StopSession(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if sess.World.GetWorldState().Phase == arena.PhaseFinished {
		sess.cancel()
		return arena.ErrWorldNotRunning
	}
	sess.cancel()
	return nil
}

// StopAll cancels every running session's tick loop.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		sess.cancel()
		delete(m.sessions, id)
	}
}
