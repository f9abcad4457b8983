package decision

import (
	"context"
	"math/rand"
	"strings"
)

// RuleBased is the default DecisionBackend: a fixed priority list, no
// external calls. With a nil rng it draws from math/rand's package-level
// source, which is goroutine-safe, so it is safe for concurrent use; a
// *rand.Rand set in rng is not goroutine-safe.
type RuleBased struct {
	rng *rand.Rand
}

// NewRuleBased creates a rule-based backend using the package-level rand
// source. Tests set the rng field to a seeded *rand.Rand for determinism.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

func (b *RuleBased) float64() float64 {
	if b.rng != nil {
		return b.rng.Float64()
	}
	return rand.Float64()
}

// Decide implements the fixed priority list: inner voice, then loot, then
// flee-on-low-hp, then a personality branch, then explore.
func (b *RuleBased) Decide(_ context.Context, dctx Context) (Decision, error) {
	if d, ok := parseInnerVoice(dctx.InnerVoice, dctx.NearbyAgents); ok {
		return d, nil
	}

	if len(dctx.NearbyItems) > 0 {
		item := dctx.NearbyItems[0]
		return Decision{Type: Loot, TargetID: item.ID, Reason: "nearby item"}, nil
	}

	if dctx.Self.HP < 3*dctx.Self.MaxHP/10 && len(dctx.NearbyAgents) > 0 {
		return Decision{Type: Flee, Reason: "low hp"}, nil
	}

	if d, ok := b.personalityDecision(dctx); ok {
		return d, nil
	}

	return Decision{Type: Explore, Reason: "nothing better to do"}, nil
}

// personalityDecision implements the personality-driven branch. Returns
// ok=false when the personality is not recognized or its branch finds no
// suitable nearby target, in which case the caller falls through to Explore.
func (b *RuleBased) personalityDecision(dctx Context) (Decision, bool) {
	isAllyOf := func(a NearbyAgent) bool { return a.IsAlly }
	isEnemyOf := func(a NearbyAgent) bool { return a.IsEnemy }
	isNeutral := func(a NearbyAgent) bool { return !a.IsAlly && !a.IsEnemy }

	switch personalityGroup(dctx.Self.Personality) {
	case aggressiveGroup:
		if target, ok := weakestMatching(dctx.NearbyAgents, func(a NearbyAgent) bool { return !isAllyOf(a) }); ok {
			return Decision{Type: Attack, TargetID: target.ID, Reason: "aggressive instinct"}, true
		}
	case cautiousGroup:
		allyCount, enemyCount := countMatching(dctx.NearbyAgents, isAllyOf), countMatching(dctx.NearbyAgents, isEnemyOf)
		if allyCount < enemyCount {
			if target, ok := firstMatching(dctx.NearbyAgents, isNeutral); ok {
				return Decision{Type: Ally, TargetID: target.ID, Reason: "seeking safety in numbers"}, true
			}
		}
		if allyCount+1 > enemyCount {
			if target, ok := weakestMatching(dctx.NearbyAgents, isEnemyOf); ok {
				return Decision{Type: Attack, TargetID: target.ID, Reason: "numbers favor us"}, true
			}
		}
	case treacherousGroup:
		if b.float64() < 0.2 {
			if target, ok := firstMatching(dctx.NearbyAgents, func(a NearbyAgent) bool { return isAllyOf(a) && a.HP < 40 }); ok {
				return Decision{Type: Betray, TargetID: target.ID, Reason: "opportunity"}, true
			}
		}
		if target, ok := firstMatching(dctx.NearbyAgents, isNeutral); ok {
			return Decision{Type: Attack, TargetID: target.ID, Reason: "cunning opportunism"}, true
		}
	case resourcefulGroup:
		if target, ok := firstMatching(dctx.NearbyAgents, isNeutral); ok {
			return Decision{Type: Ally, TargetID: target.ID, Reason: "resourceful alliance-building"}, true
		}
	}
	return Decision{}, false
}

type group int

const (
	noGroup group = iota
	aggressiveGroup
	cautiousGroup
	treacherousGroup
	resourcefulGroup
)

func personalityGroup(p string) group {
	switch strings.ToLower(p) {
	case "aggressive", "brave", "impulsive":
		return aggressiveGroup
	case "cautious", "strategic", "loyal":
		return cautiousGroup
	case "treacherous", "cunning":
		return treacherousGroup
	case "resourceful":
		return resourcefulGroup
	default:
		return noGroup
	}
}

func weakestMatching(agents []NearbyAgent, pred func(NearbyAgent) bool) (NearbyAgent, bool) {
	var best NearbyAgent
	found := false
	for _, a := range agents {
		if !pred(a) {
			continue
		}
		if !found || a.HP < best.HP {
			best = a
			found = true
		}
	}
	return best, found
}

func firstMatching(agents []NearbyAgent, pred func(NearbyAgent) bool) (NearbyAgent, bool) {
	for _, a := range agents {
		if pred(a) {
			return a, true
		}
	}
	return NearbyAgent{}, false
}

func countMatching(agents []NearbyAgent, pred func(NearbyAgent) bool) int {
	n := 0
	for _, a := range agents {
		if pred(a) {
			n++
		}
	}
	return n
}

// Reflect returns a themed reflection based on recent memory content, or
// "" when nothing warrants one.
func (b *RuleBased) Reflect(_ context.Context, dctx Context) (string, error) {
	combatMentions, allianceMentions := 0, 0
	for _, m := range dctx.RecentMemories {
		lower := strings.ToLower(m)
		if strings.Contains(lower, "damage") || strings.Contains(lower, "attack") {
			combatMentions++
		}
		if strings.Contains(lower, "alliance") || strings.Contains(lower, "ally") {
			allianceMentions++
		}
	}

	switch {
	case combatMentions >= 3:
		return "The fighting has been relentless; I need to be more careful about who I engage.", nil
	case allianceMentions >= 2:
		return "My alliances are shaping how this is going; I should lean on them more.", nil
	case dctx.Self.MaxHP > 0 && dctx.Self.HP < 4*dctx.Self.MaxHP/10:
		return "I'm badly hurt and need to find a way to recover before pushing forward.", nil
	default:
		return "", nil
	}
}

// parseInnerVoice parses a crowd-vote inner voice string of the form
// "<verb> [target]" into a Decision, matching the target by substring
// against nearby agent names. Returns ok=false if the verb isn't
// attack/flee/ally or no target can be resolved when one is required.
func parseInnerVoice(voice string, nearby []NearbyAgent) (Decision, bool) {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return Decision{}, false
	}

	fields := strings.Fields(voice)
	verb := strings.ToLower(fields[0])
	rest := strings.ToLower(strings.Join(fields[1:], " "))

	switch verb {
	case "flee":
		return Decision{Type: Flee, Reason: "crowd voted to flee"}, true
	case "attack", "ally":
		actionType := Attack
		if verb == "ally" {
			actionType = Ally
		}
		if rest == "" {
			return Decision{}, false
		}
		for _, a := range nearby {
			if strings.Contains(strings.ToLower(a.Name), rest) {
				return Decision{Type: actionType, TargetID: a.ID, Reason: "crowd voted"}, true
			}
		}
		return Decision{}, false
	default:
		return Decision{}, false
	}
}
