// Package arena owns all live battle-royale state: agents, items, the tile
// map, and the tick loop that drives perceive/decide/act.
package arena

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dragonchu/agentpollen/internal/decision"
	"github.com/dragonchu/agentpollen/internal/memory"
	"github.com/dragonchu/agentpollen/internal/pathfind"
	"github.com/dragonchu/agentpollen/internal/world"
)

// Point is a grid coordinate, mirroring pathfind.Point so arena callers
// don't need to import the pathfind package directly for storage types.
type Point = pathfind.Point

const (
	DefaultMaxHP   = 100
	DefaultAttack  = 10
	DefaultDefense = 5
	innerVoiceTTL  = 30 * time.Second

	hpJitter      = 5
	attackJitter  = 2
	defenseJitter = 2
)

// Agent is one combatant in the arena.
type Agent struct {
	mu sync.RWMutex

	ID          string
	Name        string
	Personality string
	Description string

	Position  Point
	HP        int
	MaxHP     int
	Attack    int
	Defense   int
	Weapon    string
	KillCount int
	Alive     bool

	ActionState string // human-readable label of the last executed decision

	allies  map[string]bool
	enemies map[string]bool

	currentDecision decision.Decision
	thinking        string

	path    []Point
	pathIdx int

	memory *memory.Stream

	innerVoice     string
	innerVoiceSeen time.Time
}

// Template is the archetype a group of agents is spawned from: a name,
// personality, flavor description, and base stats. NewAgent jitters
// instance stats around these so agents sharing a template aren't
// identical.
type Template struct {
	Name        string
	Personality string
	Description string
	BaseHP      int
	BaseAttack  int
	BaseDefense int
}

// NewAgent creates a live agent from tmpl at pos, jittering its instance
// stats by small random offsets drawn from rng, and seeds its memory with
// an identity observation at importance 8.
func NewAgent(id string, tmpl Template, pos Point, rng *rand.Rand) *Agent {
	hp := jitterStat(rng, tmpl.BaseHP, hpJitter)
	a := &Agent{
		ID:          id,
		Name:        tmpl.Name,
		Personality: tmpl.Personality,
		Description: tmpl.Description,
		Position:    pos,
		HP:          hp,
		MaxHP:       hp,
		Attack:      jitterStat(rng, tmpl.BaseAttack, attackJitter),
		Defense:     jitterStat(rng, tmpl.BaseDefense, defenseJitter),
		Alive:       true,
		allies:      make(map[string]bool),
		enemies:     make(map[string]bool),
		memory:      memory.NewStream(),
	}
	a.memory.Add(
		fmt.Sprintf("I am %s, a %s %s.", tmpl.Name, tmpl.Personality, tmpl.Description),
		8, memory.Observation,
	)
	return a
}

// jitterStat adds a random offset in [-spread, spread] to base, floored at 1.
func jitterStat(rng *rand.Rand, base, spread int) int {
	if spread <= 0 {
		return base
	}
	v := base + rng.Intn(2*spread+1) - spread
	if v < 1 {
		v = 1
	}
	return v
}

func (a *Agent) GetPosition() Point {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Position
}

func (a *Agent) SetPosition(p Point) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Position = p
}

func (a *Agent) IsAlive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.Alive
}

// TakeDamage subtracts dmg from HP, clamped at 0, and marks the agent dead
// at zero. Returns true if this call killed the agent.
func (a *Agent) TakeDamage(dmg int) (killed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.Alive {
		return false
	}
	a.HP -= dmg
	if a.HP <= 0 {
		a.HP = 0
		a.Alive = false
		return true
	}
	return false
}

// Heal adds amount to HP, clamped at MaxHP.
func (a *Agent) Heal(amount int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.HP += amount
	if a.HP > a.MaxHP {
		a.HP = a.MaxHP
	}
}

// GainWeaponBonus increments attack by bonus and records weapon as the
// agent's current weapon, applied when an item is looted.
func (a *Agent) GainWeaponBonus(weapon string, bonus int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Attack += bonus
	a.Weapon = weapon
}

// IncrementKillCount increments the agent's kill count, applied to the
// attacker (not the victim) whenever one of its attacks kills.
func (a *Agent) IncrementKillCount() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.KillCount++
}

// IsAllyOf reports whether otherID is in this agent's alliance set.
func (a *Agent) IsAllyOf(otherID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.allies[otherID]
}

// IsEnemyOf reports whether otherID is in this agent's enemy set.
func (a *Agent) IsEnemyOf(otherID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enemies[otherID]
}

func (a *Agent) AddAlly(otherID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.allies[otherID] = true
	delete(a.enemies, otherID)
}

func (a *Agent) AddEnemy(otherID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enemies[otherID] = true
	delete(a.allies, otherID)
}

// RemoveRelation purges otherID from both alliance and enemy sets, used
// when otherID dies.
func (a *Agent) RemoveRelation(otherID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.allies, otherID)
	delete(a.enemies, otherID)
}

func (a *Agent) AllyIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.allies))
	for id := range a.allies {
		out = append(out, id)
	}
	return out
}

func (a *Agent) EnemyIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.enemies))
	for id := range a.enemies {
		out = append(out, id)
	}
	return out
}

// SetPath installs a fresh path; FollowPath advances one waypoint per call.
func (a *Agent) SetPath(waypoints []Point) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.path = waypoints
	a.pathIdx = 0
}

func (a *Agent) ClearPath() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.path = nil
	a.pathIdx = 0
}

func (a *Agent) CurrentPath() []Point {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Point, len(a.path))
	copy(out, a.path)
	return out
}

// FollowPath advances the agent one step along its stored path, if any
// waypoints remain beyond the current position.
func (a *Agent) FollowPath() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pathIdx+1 >= len(a.path) {
		return
	}
	a.pathIdx++
	a.Position = a.path[a.pathIdx]
}

// MoveToward steps one Manhattan unit toward target (x first, then y),
// clamped to [0,gridSize) and committed only if the destination tile is
// Passable; otherwise the agent stays put.
func (a *Agent) MoveToward(target Point, gridSize int, tm *world.TileMap) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := clampPoint(stepToward(a.Position, target), gridSize)
	if tm.IsPassable(next.X, next.Y) {
		a.Position = next
	}
}

// MoveAwayFrom steps one Manhattan unit away from origin per axis (the
// opposite sign of stepping toward it; a zero sign defaults to +1),
// clamped to [0,gridSize) and committed only if the destination tile is
// Passable; otherwise the agent stays put.
func (a *Agent) MoveAwayFrom(origin Point, gridSize int, tm *world.TileMap) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.Position
	if origin.X > a.Position.X {
		next.X--
	} else {
		next.X++
	}
	if origin.Y > a.Position.Y {
		next.Y--
	} else {
		next.Y++
	}
	next = clampPoint(next, gridSize)
	if tm.IsPassable(next.X, next.Y) {
		a.Position = next
	}
}

// clampPoint clamps p to the [0,gridSize) square.
func clampPoint(p Point, gridSize int) Point {
	switch {
	case p.X < 0:
		p.X = 0
	case p.X >= gridSize:
		p.X = gridSize - 1
	}
	switch {
	case p.Y < 0:
		p.Y = 0
	case p.Y >= gridSize:
		p.Y = gridSize - 1
	}
	return p
}

func stepToward(from, to Point) Point {
	next := from
	switch {
	case from.X < to.X:
		next.X++
	case from.X > to.X:
		next.X--
	}
	if next.X == from.X {
		switch {
		case from.Y < to.Y:
			next.Y++
		case from.Y > to.Y:
			next.Y--
		}
	}
	return next
}

func (a *Agent) SetCurrentDecision(d decision.Decision) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentDecision = d
	a.thinking = d.Thinking
}

func (a *Agent) CurrentDecision() decision.Decision {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentDecision
}

func (a *Agent) SetActionState(state string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ActionState = state
}

// HearInnerVoice records the crowd's chosen action as the agent's inner
// voice, timestamped so it expires after innerVoiceTTL.
func (a *Agent) HearInnerVoice(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.innerVoice = text
	a.innerVoiceSeen = time.Now()
	a.memory.Add("A voice in my head says: "+text, 6, memory.InnerVoice)
}

// ActiveInnerVoice returns the current inner voice text with its bracketed
// prefix stripped, or "" if none was heard within innerVoiceTTL.
func (a *Agent) ActiveInnerVoice() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.innerVoice == "" || time.Since(a.innerVoiceSeen) > innerVoiceTTL {
		return ""
	}
	return stripBracketPrefix(a.innerVoice)
}

func stripBracketPrefix(s string) string {
	if strings.HasPrefix(s, "[") {
		if end := strings.Index(s, "]"); end != -1 {
			return strings.TrimSpace(s[end+1:])
		}
	}
	return s
}

func (a *Agent) Memory() *memory.Stream {
	return a.memory
}

// Fingerprint is the (x,y,hp,alive,actionState) tuple used for delta
// change detection between ticks.
type Fingerprint struct {
	X, Y        int
	HP          int
	Alive       bool
	ActionState string
}

func (a *Agent) Fingerprint() Fingerprint {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Fingerprint{
		X: a.Position.X, Y: a.Position.Y,
		HP: a.HP, Alive: a.Alive,
		ActionState: a.ActionState,
	}
}

// Snapshot is the serializable full-state view of an agent.
type Snapshot struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Personality string   `json:"personality"`
	Description string   `json:"description"`
	Position    Point    `json:"position"`
	HP          int      `json:"hp"`
	MaxHP       int      `json:"maxHp"`
	Attack      int      `json:"attack"`
	Defense     int      `json:"defense"`
	Weapon      string   `json:"weapon,omitempty"`
	KillCount   int      `json:"killCount"`
	Alive       bool     `json:"alive"`
	ActionState string   `json:"actionState"`
	Allies      []string `json:"allies"`
	Enemies     []string `json:"enemies"`
	Thinking    string   `json:"thinking,omitempty"`
}

func (a *Agent) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	allies := make([]string, 0, len(a.allies))
	for id := range a.allies {
		allies = append(allies, id)
	}
	enemies := make([]string, 0, len(a.enemies))
	for id := range a.enemies {
		enemies = append(enemies, id)
	}
	return Snapshot{
		ID:          a.ID,
		Name:        a.Name,
		Personality: a.Personality,
		Description: a.Description,
		Position:    a.Position,
		HP:          a.HP,
		MaxHP:       a.MaxHP,
		Attack:      a.Attack,
		Defense:     a.Defense,
		Weapon:      a.Weapon,
		KillCount:   a.KillCount,
		Alive:       a.Alive,
		ActionState: a.ActionState,
		Allies:      allies,
		Enemies:     enemies,
		Thinking:    a.thinking,
	}
}
