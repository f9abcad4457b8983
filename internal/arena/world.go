package arena

import (
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dragonchu/agentpollen/internal/decision"
	"github.com/dragonchu/agentpollen/internal/thinking"
	"github.com/dragonchu/agentpollen/internal/vote"
	"github.com/dragonchu/agentpollen/internal/world"
)

// Phase is the lifecycle state of a World.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

const (
	itemSpawnIntervalTicks = 10
	itemSpawnBatch         = 3
	zoneDamage             = 10
	reflectEveryTicks      = 5
)

// Config holds the tunables read at World construction time.
type Config struct {
	GridSize            int
	AgentCount          int
	TickInterval        time.Duration
	VotingWindow        time.Duration
	ShrinkIntervalTicks int
	ObstacleDensity     float64
	ObstacleSeed        int64
	VisionRange         int
	MinBorder           int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		GridSize:            20,
		AgentCount:          10,
		TickInterval:        time.Second,
		VotingWindow:        30 * time.Second,
		ShrinkIntervalTicks: 30,
		ObstacleDensity:     0.15,
		VisionRange:         4,
		MinBorder:           6,
	}
}

// World owns all live arena state and drives the tick loop. All mutation
// happens on the single owner that calls Tick; decision.Backend.Decide
// calls are the only step allowed to fan out concurrently.
type World struct {
	mu sync.RWMutex

	cfg Config

	tileMap *world.TileMap
	agents  map[string]*Agent
	items   map[string]*Item

	tick         int
	phase        Phase
	winner       string
	zoneCenter   Point
	shrinkBorder int

	pendingEvents []Event
	agentPaths    map[string][]Point
	fingerprints  map[string]Fingerprint
	itemSeq       int

	voteManager     *vote.Manager
	decisionBackend decision.Backend
	thinkingStore   thinking.Store
	sessionID       string

	rng *rand.Rand
}

// NewWorld builds a world of cfg.GridSize x cfg.GridSize, scatters
// obstacles, spawns cfg.AgentCount agents at random passable tiles, and
// wires the given decision backend and thinking store.
func NewWorld(cfg Config, backend decision.Backend, store thinking.Store, sessionID string) *World {
	tm := world.CreateEmpty(cfg.GridSize, cfg.GridSize)
	world.AddBorderWalls(tm)
	world.AddRandomObstacles(tm, cfg.ObstacleDensity, cfg.ObstacleSeed)

	w := &World{
		cfg:             cfg,
		tileMap:         tm,
		agents:          make(map[string]*Agent),
		items:           make(map[string]*Item),
		phase:           PhaseActive,
		zoneCenter:      Point{X: cfg.GridSize / 2, Y: cfg.GridSize / 2},
		shrinkBorder:    cfg.GridSize,
		agentPaths:      make(map[string][]Point),
		fingerprints:    make(map[string]Fingerprint),
		decisionBackend: backend,
		thinkingStore:   store,
		sessionID:       sessionID,
		rng:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	w.voteManager = vote.NewManager(cfg.VotingWindow, w.applyVoteResolutions)

	personalities := []string{"aggressive", "cautious", "treacherous", "resourceful", "brave", "strategic"}
	for i := 0; i < cfg.AgentCount; i++ {
		pos := w.randomPassableTile()
		personality := personalities[i%len(personalities)]
		tmpl := Template{
			Name:        agentName(i),
			Personality: personality,
			Description: personalityDescription(personality),
			BaseHP:      DefaultMaxHP,
			BaseAttack:  DefaultAttack,
			BaseDefense: DefaultDefense,
		}
		a := NewAgent(uuid.NewString(), tmpl, pos, w.rng)
		w.agents[a.ID] = a
	}

	return w
}

func agentName(i int) string {
	names := []string{"Astra", "Brix", "Coral", "Dune", "Ember", "Flint", "Gale", "Harbor", "Ivy", "Jet"}
	if i < len(names) {
		return names[i]
	}
	return names[i%len(names)]
}

func personalityDescription(personality string) string {
	return personality + " competitor in the arena"
}

// nextItemID returns the next item id, strictly increasing within this
// world's lifetime. Single-writer: called only from the tick owner.
func (w *World) nextItemID() string {
	w.itemSeq++
	return strconv.Itoa(w.itemSeq)
}

func (w *World) randomPassableTile() Point {
	for attempt := 0; attempt < 2*w.cfg.GridSize*w.cfg.GridSize; attempt++ {
		x := w.rng.Intn(w.cfg.GridSize)
		y := w.rng.Intn(w.cfg.GridSize)
		if w.tileMap.IsPassable(x, y) {
			return Point{X: x, Y: y}
		}
	}
	log.Printf("%v: falling back to map center", ErrSpawnInfeasible)
	return Point{X: w.cfg.GridSize / 2, Y: w.cfg.GridSize / 2}
}

// applyVoteResolutions is the vote.Manager resolver: for each resolution it
// delivers the winning action to the agent as inner voice and records a
// Vote event. Runs synchronously from within Tick's VoteManager.Tick call.
func (w *World) applyVoteResolutions(resolutions []vote.Resolution) {
	for _, r := range resolutions {
		a, ok := w.agents[r.AgentID]
		if !ok || !a.IsAlive() {
			continue
		}
		a.HearInnerVoice(string(r.Action))
		w.pendingEvents = append(w.pendingEvents, Event{
			Type: EventVote, Tick: w.tick, AgentID: r.AgentID, Detail: string(r.Action),
		})
	}
}

// SubmitVote forwards a player's vote to the VoteManager.
func (w *World) SubmitVote(agentID, playerID string, action vote.Action) {
	w.voteManager.SubmitVote(agentID, playerID, action)
}

// AgentByID returns the agent, or nil if unknown.
func (w *World) AgentByID(id string) *Agent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.agents[id]
}

func (w *World) liveAgents() []*Agent {
	out := make([]*Agent, 0, len(w.agents))
	for _, a := range w.agents {
		if a.IsAlive() {
			out = append(out, a)
		}
	}
	return out
}

func manhattan(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
