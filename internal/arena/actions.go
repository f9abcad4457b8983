package arena

import (
	"github.com/dragonchu/agentpollen/internal/decision"
	"github.com/dragonchu/agentpollen/internal/pathfind"
)

// executeDecisionLocked applies a's resolved decision to world state. Must
// be called with w.mu held (invoked only from the tick owner).
func (w *World) executeDecisionLocked(a *Agent, d decision.Decision) {
	switch d.Type {
	case decision.Attack:
		w.executeAttackLocked(a, d.TargetID)
	case decision.Ally:
		w.executeAllyLocked(a, d.TargetID)
	case decision.Betray:
		w.executeBetrayLocked(a, d.TargetID)
	case decision.Loot:
		w.executeLootLocked(a, d.TargetID)
	case decision.Flee:
		w.executeFleeLocked(a)
	case decision.Explore, decision.Rest:
		fallthrough
	default:
		w.moveRandomLocked(a)
		a.ClearPath()
		a.SetActionState(string(d.Type))
	}
}

// moveRandomLocked tries up to 8 random {dx,dy} ∈ {-1,0,1}² offsets and
// steps onto the first Passable one; if none of the 8 trials lands on a
// Passable tile, the agent stays put.
func (w *World) moveRandomLocked(a *Agent) {
	pos := a.GetPosition()
	for i := 0; i < 8; i++ {
		x := pos.X + w.rng.Intn(3) - 1
		y := pos.Y + w.rng.Intn(3) - 1
		if w.tileMap.IsPassable(x, y) {
			a.SetPosition(Point{X: x, Y: y})
			return
		}
	}
}

func (w *World) executeAttackLocked(a *Agent, targetID string) {
	target := w.agents[targetID]
	if target == nil || !target.IsAlive() {
		a.SetActionState("attack-miss")
		return
	}

	if manhattan(a.GetPosition(), target.GetPosition()) <= 1 {
		dmg := a.Attack - target.Defense/2 + w.randIntn(5)
		if dmg < 1 {
			dmg = 1
		}
		a.AddEnemy(target.ID)
		target.AddEnemy(a.ID)
		w.damageAgentLocked(target, dmg, a.ID)
		a.SetActionState("attack")
		return
	}

	w.moveAgentTowardLocked(a, target.GetPosition())
	a.SetActionState("approaching")
}

func (w *World) executeAllyLocked(a *Agent, targetID string) {
	target := w.agents[targetID]
	if target == nil || !target.IsAlive() {
		a.SetActionState("ally-miss")
		return
	}

	if manhattan(a.GetPosition(), target.GetPosition()) <= 2 {
		accepted := !target.IsEnemyOf(a.ID) && w.rng.Float64() < 0.6
		if accepted {
			a.AddAlly(target.ID)
			target.AddAlly(a.ID)
			w.pendingEvents = append(w.pendingEvents, Event{Type: EventAlliance, Tick: w.tick, AgentID: a.ID, TargetID: target.ID})
			a.SetActionState("allied")
			return
		}
		a.SetActionState("ally-rejected")
		return
	}

	w.moveAgentTowardLocked(a, target.GetPosition())
	a.SetActionState("approaching")
}

func (w *World) executeBetrayLocked(a *Agent, targetID string) {
	target := w.agents[targetID]
	if target == nil || !target.IsAlive() {
		a.SetActionState("betray-miss")
		return
	}

	a.RemoveRelation(target.ID)
	target.RemoveRelation(a.ID)
	a.AddEnemy(target.ID)
	target.AddEnemy(a.ID)

	dmg := a.Attack + 5 - target.Defense/2
	if dmg < 1 {
		dmg = 1
	}
	w.pendingEvents = append(w.pendingEvents, Event{Type: EventBetrayal, Tick: w.tick, AgentID: a.ID, TargetID: target.ID})
	w.damageAgentLocked(target, dmg, a.ID)
	a.SetActionState("betrayed")
}

func (w *World) executeLootLocked(a *Agent, itemID string) {
	item := w.items[itemID]
	if item == nil {
		a.SetActionState("loot-miss")
		return
	}

	if manhattan(a.GetPosition(), item.Position) <= 1 {
		a.GainWeaponBonus(item.Type, item.Bonus)
		delete(w.items, itemID)
		w.pendingEvents = append(w.pendingEvents, Event{Type: EventLoot, Tick: w.tick, AgentID: a.ID, Detail: item.Type})
		a.SetActionState("looted")
		return
	}

	w.moveAgentTowardLocked(a, item.Position)
	a.SetActionState("approaching")
}

func (w *World) executeFleeLocked(a *Agent) {
	pos := a.GetPosition()
	centroid, count := Point{}, 0
	for _, other := range w.agents {
		if other.ID == a.ID || !other.IsAlive() {
			continue
		}
		op := other.GetPosition()
		if manhattan(pos, op) > w.cfg.VisionRange {
			continue
		}
		centroid.X += op.X
		centroid.Y += op.Y
		count++
	}

	if count > 0 {
		centroid.X /= count
		centroid.Y /= count
		a.MoveAwayFrom(centroid, w.cfg.GridSize, w.tileMap)
	} else {
		w.moveRandomLocked(a)
	}
	a.ClearPath()
	a.SetActionState("fleeing")
}

// moveAgentTowardLocked requests a path from the pathfinder; on success it
// installs and advances it one step, publishing agentPaths; on failure it
// falls back to a direct step and clears any stored path.
func (w *World) moveAgentTowardLocked(a *Agent, target Point) {
	p := pathfind.FindPath(w.tileMap, a.GetPosition(), target)
	if p == nil || len(p.Waypoints) < 2 {
		a.MoveToward(target, w.cfg.GridSize, w.tileMap)
		a.ClearPath()
		delete(w.agentPaths, a.ID)
		return
	}

	a.SetPath(p.Waypoints)
	a.FollowPath()
	w.agentPaths[a.ID] = a.CurrentPath()
}
