package decision

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecideInnerVoiceAttackTakesPriority(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{
		Self:         Self{HP: 100, MaxHP: 100},
		InnerVoice:   "attack Bob",
		NearbyAgents: []NearbyAgent{{ID: "a2", Name: "Bob"}},
		NearbyItems:  []NearbyItem{{ID: "item-1"}},
	}
	d, err := b.Decide(context.Background(), dctx)
	require.NoError(t, err)
	require.Equal(t, Attack, d.Type)
	require.Equal(t, "a2", d.TargetID)
}

func TestDecideLootsWhenItemsNearby(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{
		Self:        Self{HP: 100, MaxHP: 100},
		NearbyItems: []NearbyItem{{ID: "item-1"}, {ID: "item-2"}},
	}
	d, err := b.Decide(context.Background(), dctx)
	require.NoError(t, err)
	require.Equal(t, Loot, d.Type)
	require.Equal(t, "item-1", d.TargetID)
}

func TestDecideFleesWhenLowHPAndAgentsNearby(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{
		Self:         Self{HP: 10, MaxHP: 100},
		NearbyAgents: []NearbyAgent{{ID: "a2", Name: "Bob"}},
	}
	d, err := b.Decide(context.Background(), dctx)
	require.NoError(t, err)
	require.Equal(t, Flee, d.Type)
}

func TestDecideAggressivePersonalityAttacksWeakestNonAlly(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{
		Self: Self{HP: 100, MaxHP: 100, Personality: "aggressive"},
		NearbyAgents: []NearbyAgent{
			{ID: "ally-1", Name: "Friend", HP: 5, IsAlly: true},
			{ID: "enemy-1", Name: "Foe", HP: 50},
			{ID: "enemy-2", Name: "Weaker", HP: 20},
		},
	}
	d, err := b.Decide(context.Background(), dctx)
	require.NoError(t, err)
	require.Equal(t, Attack, d.Type)
	require.Equal(t, "enemy-2", d.TargetID, "attacks the weakest non-ally")
}

func TestDecideCautiousAlliesWhenOutnumbered(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{
		Self: Self{HP: 100, MaxHP: 100, Personality: "cautious"},
		NearbyAgents: []NearbyAgent{
			{ID: "enemy-1", Name: "Foe1", IsEnemy: true},
			{ID: "enemy-2", Name: "Foe2", IsEnemy: true},
			{ID: "neutral-1", Name: "Stranger"},
		},
	}
	d, err := b.Decide(context.Background(), dctx)
	require.NoError(t, err)
	require.Equal(t, Ally, d.Type)
	require.Equal(t, "neutral-1", d.TargetID)
}

func TestDecideTreacherousBetraysWeakAllyWhenRollSucceeds(t *testing.T) {
	b := &RuleBased{rng: rand.New(rand.NewSource(1))}
	// find a seed draw below 0.2 deterministically using this rng stream
	var d Decision
	var err error
	dctx := Context{
		Self: Self{HP: 100, MaxHP: 100, Personality: "treacherous"},
		NearbyAgents: []NearbyAgent{
			{ID: "ally-weak", Name: "Weak Ally", HP: 30, IsAlly: true},
			{ID: "neutral-1", Name: "Stranger"},
		},
	}
	for i := 0; i < 50; i++ {
		d, err = b.Decide(context.Background(), dctx)
		require.NoError(t, err)
		if d.Type == Betray {
			break
		}
	}
	require.Equal(t, Betray, d.Type)
	require.Equal(t, "ally-weak", d.TargetID)
}

func TestDecideResourcefulPrefersAlliance(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{
		Self: Self{HP: 100, MaxHP: 100, Personality: "resourceful"},
		NearbyAgents: []NearbyAgent{
			{ID: "neutral-1", Name: "Stranger"},
		},
	}
	d, err := b.Decide(context.Background(), dctx)
	require.NoError(t, err)
	require.Equal(t, Ally, d.Type)
}

func TestDecideFallsBackToExplore(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{Self: Self{HP: 100, MaxHP: 100}}
	d, err := b.Decide(context.Background(), dctx)
	require.NoError(t, err)
	require.Equal(t, Explore, d.Type)
}

func TestReflectCombatThemed(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{
		Self: Self{HP: 100, MaxHP: 100},
		RecentMemories: []string{
			"took damage from an attack",
			"attacked a stranger",
			"suffered more damage",
		},
	}
	r, err := b.Reflect(context.Background(), dctx)
	require.NoError(t, err)
	require.NotEmpty(t, r)
}

func TestReflectReturnsEmptyWhenNothingWarrantsIt(t *testing.T) {
	b := NewRuleBased()
	dctx := Context{Self: Self{HP: 100, MaxHP: 100}}
	r, err := b.Reflect(context.Background(), dctx)
	require.NoError(t, err)
	require.Empty(t, r)
}

func TestParseInnerVoiceFlee(t *testing.T) {
	d, ok := parseInnerVoice("flee", nil)
	require.True(t, ok)
	require.Equal(t, Flee, d.Type)
}

func TestParseInnerVoiceUnmatchedVerb(t *testing.T) {
	_, ok := parseInnerVoice("dance", nil)
	require.False(t, ok)
}

func TestParseInnerVoiceAttackNoMatchingTarget(t *testing.T) {
	_, ok := parseInnerVoice("attack Nobody", []NearbyAgent{{ID: "a1", Name: "Someone"}})
	require.False(t, ok)
}
