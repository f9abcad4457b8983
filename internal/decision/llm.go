package decision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"
)

// ChatClient is the minimal remote completion contract the LLM backend
// needs; internal/llm's OpenAI-compatible Client and its MockClient
// implement it.
type ChatClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

const (
	defaultMaxConcurrency = 10
	decideMaxTokens       = 150
	decideTemperature     = 0.7
	reflectMaxTokens      = 100
)

// LLM is the remote-backed DecisionBackend. It gates concurrent calls with
// a counted semaphore and falls back to a rule-based delegate on any
// error: network failure, rate limiting, or an unparseable response.
type LLM struct {
	client   ChatClient
	fallback Backend
	gate     *semaphore.Weighted
}

// NewLLM creates an LLM backend with the given maxConcurrency (0 uses the
// default of 10) backed by client, falling back to fallback on any error.
func NewLLM(client ChatClient, fallback Backend, maxConcurrency int64) *LLM {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	return &LLM{
		client:   client,
		fallback: fallback,
		gate:     semaphore.NewWeighted(maxConcurrency),
	}
}

// Decide acquires the concurrency gate, builds a prompt from dctx, and
// parses the remote response. Any error — acquire failure, request
// failure, or parse failure — falls back to the rule-based delegate with
// the same context.
func (b *LLM) Decide(ctx context.Context, dctx Context) (Decision, error) {
	if err := b.gate.Acquire(ctx, 1); err != nil {
		return b.fallback.Decide(ctx, dctx)
	}

	raw, err := b.client.Complete(ctx, buildDecidePrompt(dctx), decideMaxTokens, decideTemperature)
	b.gate.Release(1)
	if err != nil {
		slog.Warn("llm decide failed, falling back to rule-based", "agent_id", dctx.Self.ID, "error", err)
		return b.fallback.Decide(ctx, dctx)
	}

	d, ok := parseDecisionResponse(raw, dctx.NearbyAgents, dctx.NearbyItems)
	if !ok {
		slog.Warn("llm decide response unparseable, falling back", "agent_id", dctx.Self.ID, "raw", raw)
		return b.fallback.Decide(ctx, dctx)
	}
	d.Thinking = raw
	return d, nil
}

// Reflect follows the same gate-and-fallback pattern as Decide, with a
// smaller token budget.
func (b *LLM) Reflect(ctx context.Context, dctx Context) (string, error) {
	if err := b.gate.Acquire(ctx, 1); err != nil {
		return b.fallback.Reflect(ctx, dctx)
	}

	raw, err := b.client.Complete(ctx, buildReflectPrompt(dctx), reflectMaxTokens, decideTemperature)
	b.gate.Release(1)
	if err != nil {
		slog.Warn("llm reflect failed, falling back to rule-based", "agent_id", dctx.Self.ID, "error", err)
		return b.fallback.Reflect(ctx, dctx)
	}
	return strings.TrimSpace(raw), nil
}

func buildDecidePrompt(dctx Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, an agent in a survival arena. HP: %d/%d. Attack: %d. Defense: %d.\n",
		dctx.Self.Name, dctx.Self.HP, dctx.Self.MaxHP, dctx.Self.Attack, dctx.Self.Defense)
	fmt.Fprintf(&sb, "Personality: %s.\n", dctx.Self.Personality)

	if len(dctx.Self.Allies) > 0 {
		fmt.Fprintf(&sb, "Allies: %s.\n", strings.Join(dctx.Self.Allies, ", "))
	}
	if len(dctx.Self.Enemies) > 0 {
		fmt.Fprintf(&sb, "Enemies: %s.\n", strings.Join(dctx.Self.Enemies, ", "))
	}

	if len(dctx.NearbyAgents) > 0 {
		sb.WriteString("Nearby agents:\n")
		for _, a := range dctx.NearbyAgents {
			fmt.Fprintf(&sb, "- %s (hp %d/%d, distance %d)\n", a.Name, a.HP, a.MaxHP, a.Distance)
		}
	}
	if len(dctx.NearbyItems) > 0 {
		sb.WriteString("Nearby items:\n")
		for _, it := range dctx.NearbyItems {
			fmt.Fprintf(&sb, "- %s (distance %d)\n", it.Type, it.Distance)
		}
	}
	if len(dctx.RecentMemories) > 0 {
		sb.WriteString("Recent memories:\n")
		for _, m := range dctx.RecentMemories {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
	}
	if dctx.InnerVoice != "" {
		fmt.Fprintf(&sb, "A voice in your head urges: %s\n", dctx.InnerVoice)
	}
	fmt.Fprintf(&sb, "World: tick %d, %d alive, zone border %d.\n", dctx.World.Tick, dctx.World.AliveCount, dctx.World.ShrinkBorder)

	sb.WriteString("Respond with exactly two lines:\nACTION: <verb> [target or item]\nREASON: <one sentence>\n")
	return sb.String()
}

func buildReflectPrompt(dctx Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s. Reflect briefly on your recent experience.\n", dctx.Self.Name)
	for _, m := range dctx.RecentMemories {
		fmt.Fprintf(&sb, "- %s\n", m)
	}
	sb.WriteString("Respond with a single short reflective sentence, or nothing if there is nothing worth noting.")
	return sb.String()
}

// parseDecisionResponse tolerantly parses an "ACTION: ...\nREASON: ..."
// response. Verb matching is case-insensitive; targets are matched by
// substring against nearby agent names (or item types for loot). An
// unmatched verb falls through to Explore with the given reason.
func parseDecisionResponse(raw string, nearbyAgents []NearbyAgent, nearbyItems []NearbyItem) (Decision, bool) {
	lines := strings.Split(raw, "\n")
	var actionLine, reasonLine string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToUpper(line), "ACTION:"):
			actionLine = strings.TrimSpace(line[len("ACTION:"):])
		case strings.HasPrefix(strings.ToUpper(line), "REASON:"):
			reasonLine = strings.TrimSpace(line[len("REASON:"):])
		}
	}
	if actionLine == "" {
		return Decision{}, false
	}

	fields := strings.Fields(actionLine)
	verb := strings.ToLower(fields[0])
	targetText := strings.ToLower(strings.Join(fields[1:], " "))

	d := Decision{Reason: reasonLine}

	switch verb {
	case "attack":
		d.Type = Attack
		if target, ok := matchAgent(targetText, nearbyAgents); ok {
			d.TargetID = target
		}
	case "flee":
		d.Type = Flee
	case "ally":
		d.Type = Ally
		if target, ok := matchAgent(targetText, nearbyAgents); ok {
			d.TargetID = target
		}
	case "betray":
		d.Type = Betray
		if target, ok := matchAgent(targetText, nearbyAgents); ok {
			d.TargetID = target
		}
	case "loot":
		d.Type = Loot
		if target, ok := matchItem(targetText, nearbyItems); ok {
			d.TargetID = target
		}
	case "rest":
		d.Type = Rest
	case "explore":
		d.Type = Explore
	default:
		d.Type = Explore
	}

	return d, true
}

func matchAgent(text string, agents []NearbyAgent) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, a := range agents {
		if strings.Contains(text, strings.ToLower(a.Name)) {
			return a.ID, true
		}
	}
	return "", false
}

func matchItem(text string, items []NearbyItem) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, it := range items {
		if strings.Contains(text, strings.ToLower(it.Type)) {
			return it.ID, true
		}
	}
	return "", false
}
