// Package decision implements the DecisionBackend contract: a rule-based
// variant and an LLM-backed variant that falls back to it.
package decision

import "context"

// ActionType enumerates the actions a Decision can carry.
type ActionType string

const (
	Attack  ActionType = "attack"
	Flee    ActionType = "flee"
	Ally    ActionType = "ally"
	Betray  ActionType = "betray"
	Loot    ActionType = "loot"
	Explore ActionType = "explore"
	Rest    ActionType = "rest"
)

// Decision is the outcome of one decide() call.
type Decision struct {
	Type     ActionType
	TargetID string
	Reason   string
	Thinking string
}

// NearbyAgent is a visible agent relative to the deciding agent.
type NearbyAgent struct {
	ID       string
	Name     string
	HP       int
	MaxHP    int
	IsAlly   bool
	IsEnemy  bool
	Distance int
}

// NearbyItem is a visible item relative to the deciding agent.
type NearbyItem struct {
	ID       string
	Type     string
	Distance int
}

// Self describes the deciding agent's own state.
type Self struct {
	ID          string
	Name        string
	Personality string
	HP          int
	MaxHP       int
	Attack      int
	Defense     int
	Allies      []string
	Enemies     []string
}

// WorldStats summarizes world-level stats exposed to decision contexts.
type WorldStats struct {
	Tick        int
	AliveCount  int
	ShrinkBorder int
}

// Context is the full input to decide()/reflect().
type Context struct {
	Self           Self
	NearbyAgents   []NearbyAgent
	NearbyItems    []NearbyItem
	World          WorldStats
	RecentMemories []string
	InnerVoice     string // empty if none applicable
}

// Backend is the DecisionBackend contract. Implementations must be safe
// for concurrent use across agents.
type Backend interface {
	Decide(ctx context.Context, dctx Context) (Decision, error)
	Reflect(ctx context.Context, dctx Context) (string, error)
}
