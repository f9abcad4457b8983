// Package vote implements the windowed per-agent vote aggregation described
// for the arena's crowd-voting mechanic.
package vote

import (
	"sort"
	"sync"
	"time"
)

// Action is the free-form action text a player votes for.
type Action string

// ballotKey identifies one pending vote: a single player may have at most
// one open vote per agent.
type ballotKey struct {
	AgentID  string
	PlayerID string
}

// Resolution is the outcome for one agent once its vote window closes.
type Resolution struct {
	AgentID string
	Action  Action
}

// Resolver is invoked once per resolved window with the winning action of
// every agent that received votes in it.
type Resolver func(resolutions []Resolution)

// ActionCount is one ranked entry in a VoteState.
type ActionCount struct {
	Action Action
	Count  int
}

// VoteState is the public snapshot of the current ballot, ranked per agent.
type VoteState struct {
	WindowID    int
	WindowEnds  time.Time
	PerAgent    map[string][]ActionCount
}

// Manager aggregates votes within a fixed window and resolves them on tick.
type Manager struct {
	mu sync.Mutex

	windowDuration time.Duration
	windowID       int
	windowStart    time.Time

	ballot map[ballotKey]Action
	// order preserves first-seen order of (agentId, playerId) ballots within
	// the current window, used to break count ties deterministically.
	order []orderedVote

	resolver Resolver
	now      func() time.Time
}

type orderedVote struct {
	agentID  string
	playerID string
}

// NewManager creates a Manager with the given window duration. The resolver
// is invoked synchronously from Tick when a window closes.
func NewManager(windowDuration time.Duration, resolver Resolver) *Manager {
	return &Manager{
		windowDuration: windowDuration,
		ballot:         make(map[ballotKey]Action),
		resolver:       resolver,
		now:            time.Now,
		windowStart:    time.Now(),
	}
}

// SubmitVote records a player's vote for an agent's next action. Idempotent
// per (agentId, playerId): a new vote from the same player overwrites any
// pending vote within the current window.
func (m *Manager) SubmitVote(agentID, playerID string, action Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := ballotKey{AgentID: agentID, PlayerID: playerID}
	if _, exists := m.ballot[key]; !exists {
		m.order = append(m.order, orderedVote{agentID: agentID, playerID: playerID})
	}
	m.ballot[key] = action
}

// Tick resolves the window if its duration has elapsed, invoking the
// resolver with the winning action per agent (most votes; ties break by
// insertion order of the action within the window). The ballot is then
// cleared and a new window begins.
func (m *Manager) Tick() {
	m.mu.Lock()

	if m.now().Sub(m.windowStart) < m.windowDuration {
		m.mu.Unlock()
		return
	}

	counts := m.tallyLocked()
	resolutions := make([]Resolution, 0, len(counts))

	// iterate agents in first-seen order for determinism.
	seenAgents := make([]string, 0, len(counts))
	seenSet := make(map[string]bool)
	for _, ov := range m.order {
		if !seenSet[ov.agentID] {
			seenSet[ov.agentID] = true
			seenAgents = append(seenAgents, ov.agentID)
		}
	}

	for _, agentID := range seenAgents {
		tally := counts[agentID]
		if len(tally) == 0 {
			continue
		}
		winner := pickWinnerLocked(tally)
		resolutions = append(resolutions, Resolution{AgentID: agentID, Action: winner})
	}

	m.windowID++
	m.windowStart = m.now()
	m.ballot = make(map[ballotKey]Action)
	m.order = nil
	resolver := m.resolver

	m.mu.Unlock()

	if resolver != nil && len(resolutions) > 0 {
		resolver(resolutions)
	}
}

// tallyLocked counts votes per agent per action, preserving first-seen
// action order for each agent (m.mu must already be held).
func (m *Manager) tallyLocked() map[string][]ActionCount {
	counts := make(map[string]map[Action]int)
	order := make(map[string][]Action)

	for _, ov := range m.order {
		byAction, ok := counts[ov.agentID]
		if !ok {
			byAction = make(map[Action]int)
			counts[ov.agentID] = byAction
		}
		action := m.ballot[ballotKey{AgentID: ov.agentID, PlayerID: ov.playerID}]
		if _, seen := byAction[action]; !seen {
			order[ov.agentID] = append(order[ov.agentID], action)
		}
		byAction[action]++
	}

	out := make(map[string][]ActionCount, len(counts))
	for agentID, byAction := range counts {
		list := make([]ActionCount, 0, len(byAction))
		for _, action := range order[agentID] {
			list = append(list, ActionCount{Action: action, Count: byAction[action]})
		}
		out[agentID] = list
	}
	return out
}

// pickWinnerLocked returns the highest-count action, breaking ties by the
// action's position in tally (its first-seen order within the window).
func pickWinnerLocked(tally []ActionCount) Action {
	best := tally[0]
	for _, ac := range tally[1:] {
		if ac.Count > best.Count {
			best = ac
		}
	}
	return best.Action
}

// GetState returns the current ballot as a ranked VoteState snapshot.
func (m *Manager) GetState() VoteState {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := m.tallyLocked()
	perAgent := make(map[string][]ActionCount, len(counts))
	for agentID, list := range counts {
		ranked := make([]ActionCount, len(list))
		copy(ranked, list)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Count > ranked[j].Count
		})
		perAgent[agentID] = ranked
	}

	return VoteState{
		WindowID:   m.windowID,
		WindowEnds: m.windowStart.Add(m.windowDuration),
		PerAgent:   perAgent,
	}
}
