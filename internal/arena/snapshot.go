package arena

import (
	"encoding/json"
	"time"

	"github.com/dragonchu/agentpollen/internal/vote"
	"github.com/dragonchu/agentpollen/internal/world"
)

const maxSnapshotEvents = 20

// WorldState is the lightweight per-tick summary.
type WorldState struct {
	Tick         int   `json:"tick"`
	AliveCount   int   `json:"aliveCount"`
	ShrinkBorder int   `json:"shrinkBorder"`
	Phase        Phase `json:"phase"`
	ZoneCenter   Point `json:"zoneCenter"`
}

// GetWorldState returns the lightweight per-tick summary.
func (w *World) GetWorldState() WorldState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.worldStateLocked()
}

func (w *World) worldStateLocked() WorldState {
	return WorldState{
		Tick:         w.tick,
		AliveCount:   len(w.liveAgents()),
		ShrinkBorder: w.shrinkBorder,
		Phase:        w.phase,
		ZoneCenter:   w.zoneCenter,
	}
}

// ItemSnapshot is the serializable view of an item.
type ItemSnapshot struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Position Point  `json:"position"`
	Bonus    int    `json:"bonus"`
}

// FullSync is the complete state sent to a newly connected subscriber.
type FullSync struct {
	World     WorldState          `json:"world"`
	Agents    []Snapshot          `json:"agents"`
	Items     []ItemSnapshot      `json:"items"`
	VoteState vote.VoteState      `json:"voteState"`
	Events    []Event             `json:"events"`
	TileMap   []byte              `json:"tileMap"`
}

// GetFullSync returns world state plus every agent (full form), items,
// vote state, the last ≤20 events, and the binary-encoded tile map.
func (w *World) GetFullSync(recentEvents []Event) FullSync {
	w.mu.RLock()
	defer w.mu.RUnlock()

	agents := make([]Snapshot, 0, len(w.agents))
	for _, a := range w.agents {
		agents = append(agents, a.Snapshot())
	}

	items := make([]ItemSnapshot, 0, len(w.items))
	for _, it := range w.items {
		items = append(items, ItemSnapshot{ID: it.ID, Type: it.Type, Position: it.Position, Bonus: it.Bonus})
	}

	events := recentEvents
	if len(events) > maxSnapshotEvents {
		events = events[len(events)-maxSnapshotEvents:]
	}

	return FullSync{
		World:     w.worldStateLocked(),
		Agents:    agents,
		Items:     items,
		VoteState: w.voteManager.GetState(),
		Events:    events,
		TileMap:   world.Serialize(w.tileMap),
	}
}

// AgentPaths returns a copy of the current per-agent published paths.
func (w *World) AgentPaths() map[string][]Point {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string][]Point, len(w.agentPaths))
	for id, path := range w.agentPaths {
		cp := make([]Point, len(path))
		copy(cp, path)
		out[id] = cp
	}
	return out
}

// ComputeAgentDelta returns only agents whose (x,y,hp,alive,actionState)
// tuple changed since the last call, updating the stored fingerprints.
func (w *World) ComputeAgentDelta() []Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]Snapshot, 0)
	for id, a := range w.agents {
		fp := a.Fingerprint()
		if prev, ok := w.fingerprints[id]; ok && prev == fp {
			continue
		}
		w.fingerprints[id] = fp
		changed = append(changed, a.Snapshot())
	}
	return changed
}

// AllAgents returns every agent's full snapshot, for full (non-delta)
// broadcast mode.
func (w *World) AllAgents() []Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Snapshot, 0, len(w.agents))
	for _, a := range w.agents {
		out = append(out, a.Snapshot())
	}
	return out
}

func (w *World) VoteState() vote.VoteState {
	return w.voteManager.GetState()
}

// serializedWorld is the versioned, opaque persistence format returned by
// Serialize; field names are load-bearing across versions.
type serializedWorld struct {
	Version   int            `json:"version"`
	Tick      int            `json:"tick"`
	State     WorldState     `json:"state"`
	Agents    []Snapshot     `json:"agents"`
	Items     []ItemSnapshot `json:"items"`
	Timestamp time.Time      `json:"timestamp"`
}

// Serialize returns opaque JSON bytes suitable for a future persistence
// layer; the format is versioned so it can evolve independently of the
// live in-memory representation.
func (w *World) Serialize() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	agents := make([]Snapshot, 0, len(w.agents))
	for _, a := range w.agents {
		agents = append(agents, a.Snapshot())
	}
	items := make([]ItemSnapshot, 0, len(w.items))
	for _, it := range w.items {
		items = append(items, ItemSnapshot{ID: it.ID, Type: it.Type, Position: it.Position, Bonus: it.Bonus})
	}

	return json.Marshal(serializedWorld{
		Version:   1,
		Tick:      w.tick,
		State:     w.worldStateLocked(),
		Agents:    agents,
		Items:     items,
		Timestamp: time.Now(),
	})
}
