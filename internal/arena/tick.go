package arena

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dragonchu/agentpollen/internal/decision"
	"github.com/dragonchu/agentpollen/internal/memory"
)

// decideTimeout bounds each agent's decide/reflect call; must stay below
// the configured tick interval so a stalled backend can't stall the loop.
const decideTimeout = 800 * time.Millisecond

// Tick advances the world by one step: zone shrink, item spawn, vote
// resolution, the agent decide/act pass, and the win check. It returns the
// events emitted during this tick, in occurrence order.
func (w *World) Tick(ctx context.Context) []Event {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++
	w.pendingEvents = nil

	w.zoneShrinkLocked()
	w.itemSpawnLocked()
	w.voteManager.Tick()
	w.agentPassLocked(ctx)
	w.winCheckLocked()

	return w.pendingEvents
}

func (w *World) zoneShrinkLocked() {
	if w.cfg.ShrinkIntervalTicks <= 0 || w.tick%w.cfg.ShrinkIntervalTicks != 0 {
		return
	}
	if w.shrinkBorder <= w.cfg.MinBorder {
		return
	}
	w.shrinkBorder--
	w.pendingEvents = append(w.pendingEvents, Event{Type: EventZoneShrink, Tick: w.tick, Amount: w.shrinkBorder})

	half := w.shrinkBorder / 2
	for _, a := range w.liveAgents() {
		pos := a.GetPosition()
		if manhattanAxisOutside(pos, w.zoneCenter, half) {
			w.damageAgentLocked(a, zoneDamage, "")
		}
	}
}

// manhattanAxisOutside reports whether pos lies outside the axis-aligned
// square of given half-width centered at center.
func manhattanAxisOutside(pos, center Point, half int) bool {
	dx := pos.X - center.X
	if dx < 0 {
		dx = -dx
	}
	dy := pos.Y - center.Y
	if dy < 0 {
		dy = -dy
	}
	return dx > half || dy > half
}

func (w *World) itemSpawnLocked() {
	if w.tick%itemSpawnIntervalTicks != 0 {
		return
	}
	maxAttempts := 2 * w.cfg.GridSize * w.cfg.GridSize
	for i := 0; i < itemSpawnBatch; i++ {
		kind := itemTypes[w.rng.Intn(len(itemTypes))]
		for attempt := 0; attempt < maxAttempts; attempt++ {
			x := w.rng.Intn(w.cfg.GridSize)
			y := w.rng.Intn(w.cfg.GridSize)
			if !w.tileMap.IsPassable(x, y) {
				continue
			}
			item := NewItem(w.nextItemID(), kind.name, kind.bonus, Point{X: x, Y: y})
			w.items[item.ID] = item
			break
		}
	}
}

// agentPassLocked constructs a decision context for every live agent,
// fans decide() out across an errgroup (one goroutine per agent, with no
// limit of its own; any bound comes from the backend's concurrency gate),
// applies results in randomized order, and every reflectEveryTicks also
// runs reflect().
func (w *World) agentPassLocked(ctx context.Context) {
	live := w.liveAgents()
	w.rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })

	decisions := make([]decision.Decision, len(live))
	contexts := make([]decision.Context, len(live))
	for i, a := range live {
		contexts[i] = w.buildDecisionContextLocked(a)
	}

	group, gctx := errgroup.WithContext(ctx)
	for i := range live {
		i, dctx := i, contexts[i]
		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, decideTimeout)
			defer cancel()
			d, err := w.decisionBackend.Decide(callCtx, dctx)
			if err != nil {
				d = decision.Decision{Type: decision.Explore, Reason: "decision backend error"}
			}
			decisions[i] = d
			return nil
		})
	}
	_ = group.Wait()

	for i, a := range live {
		d := decisions[i]
		a.SetCurrentDecision(d)
		if d.Thinking != "" {
			w.thinkingStore.Store(w.sessionID, a.ID, d.Thinking)
		}
		w.executeDecisionLocked(a, d)
	}

	if reflectEveryTicks > 0 && w.tick%reflectEveryTicks == 0 {
		for _, a := range live {
			dctx := w.buildDecisionContextLocked(a)
			callCtx, cancel := context.WithTimeout(ctx, decideTimeout)
			reflection, err := w.decisionBackend.Reflect(callCtx, dctx)
			cancel()
			if err == nil && reflection != "" {
				a.Memory().Add(reflection, 7, memory.Reflection)
			}
		}
	}
}

func (w *World) buildDecisionContextLocked(a *Agent) decision.Context {
	pos := a.GetPosition()
	nearbyAgents := make([]decision.NearbyAgent, 0)
	for _, other := range w.agents {
		if other.ID == a.ID || !other.IsAlive() {
			continue
		}
		dist := manhattan(pos, other.GetPosition())
		if dist > w.cfg.VisionRange {
			continue
		}
		nearbyAgents = append(nearbyAgents, decision.NearbyAgent{
			ID: other.ID, Name: other.Name,
			HP: other.HP, MaxHP: other.MaxHP,
			IsAlly: a.IsAllyOf(other.ID), IsEnemy: a.IsEnemyOf(other.ID),
			Distance: dist,
		})
	}

	nearbyItems := make([]decision.NearbyItem, 0)
	for _, it := range w.items {
		dist := manhattan(pos, it.Position)
		if dist > w.cfg.VisionRange {
			continue
		}
		nearbyItems = append(nearbyItems, decision.NearbyItem{ID: it.ID, Type: it.Type, Distance: dist})
	}

	recent := a.Memory().GetRecent(10)
	memTexts := make([]string, len(recent))
	for i, m := range recent {
		memTexts[i] = m.Text
	}

	return decision.Context{
		Self: decision.Self{
			ID: a.ID, Name: a.Name, Personality: a.Personality,
			HP: a.HP, MaxHP: a.MaxHP, Attack: a.Attack, Defense: a.Defense,
			Allies: a.AllyIDs(), Enemies: a.EnemyIDs(),
		},
		NearbyAgents:   nearbyAgents,
		NearbyItems:    nearbyItems,
		World:          decision.WorldStats{Tick: w.tick, AliveCount: len(w.liveAgents()), ShrinkBorder: w.shrinkBorder},
		RecentMemories: memTexts,
		InnerVoice:     a.ActiveInnerVoice(),
	}
}

func (w *World) winCheckLocked() {
	if w.phase == PhaseFinished {
		return
	}
	live := w.liveAgents()
	if len(live) <= 1 {
		w.phase = PhaseFinished
		if len(live) == 1 {
			w.winner = live[0].ID
		}
		w.pendingEvents = append(w.pendingEvents, Event{Type: EventGameOver, Tick: w.tick, AgentID: w.winner})
	}
}

func (w *World) damageAgentLocked(a *Agent, dmg int, by string) {
	killed := a.TakeDamage(dmg)
	a.SetActionState("damaged")
	w.pendingEvents = append(w.pendingEvents, Event{Type: EventCombat, Tick: w.tick, AgentID: by, TargetID: a.ID, Amount: dmg})
	if killed {
		w.onAgentKilledLocked(a, by)
	}
}

func (w *World) onAgentKilledLocked(victim *Agent, killerID string) {
	w.pendingEvents = append(w.pendingEvents, Event{Type: EventKill, Tick: w.tick, AgentID: killerID, TargetID: victim.ID})
	if killer, ok := w.agents[killerID]; ok {
		killer.IncrementKillCount()
	}
	for _, other := range w.agents {
		other.RemoveRelation(victim.ID)
	}
	victim.ClearPath()
	delete(w.agentPaths, victim.ID)
}

// randIntn reproduces the `rand[0,n)` style jitter used in combat damage,
// drawn from the world's own rng so ticks stay reproducible under a seeded
// source.
func (w *World) randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return w.rng.Intn(n)
}
