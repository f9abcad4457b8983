package arena

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dragonchu/agentpollen/internal/world"
)

// noJitterRNG returns a fixed-seed source so tests get reproducible (if not
// jitter-free) stat rolls.
func noJitterRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// testAgent builds an agent directly from a minimal template, bypassing
// World construction, for tests that only care about Agent behavior.
func testAgent(name, personality string, pos Point) *Agent {
	tmpl := Template{
		Name:        name,
		Personality: personality,
		Description: "test subject",
		BaseHP:      DefaultMaxHP,
		BaseAttack:  DefaultAttack,
		BaseDefense: DefaultDefense,
	}
	return NewAgent(name, tmpl, pos, noJitterRNG())
}

func TestNewAgentSeedsIdentityMemory(t *testing.T) {
	a := testAgent("Test", "aggressive", Point{0, 0})
	recent := a.Memory().GetRecent(1)
	require.Len(t, recent, 1)
	require.Equal(t, 8, recent[0].Importance)
	require.Contains(t, recent[0].Text, "Test")
}

func TestTakeDamageKillsAtZero(t *testing.T) {
	a := testAgent("Test", "aggressive", Point{0, 0})
	a.HP = 5
	killed := a.TakeDamage(10)
	require.True(t, killed)
	require.False(t, a.IsAlive())
	require.Equal(t, 0, a.HP)
}

func TestTakeDamageOnDeadAgentIsNoop(t *testing.T) {
	a := testAgent("Test", "aggressive", Point{0, 0})
	a.TakeDamage(1000)
	require.False(t, a.TakeDamage(5))
}

func TestHealClampsToMaxHP(t *testing.T) {
	a := testAgent("Test", "aggressive", Point{0, 0})
	a.HP = a.MaxHP - 5
	a.Heal(50)
	require.Equal(t, a.MaxHP, a.HP)
}

func TestGainWeaponBonusIncrementsAttackAndSetsWeapon(t *testing.T) {
	a := testAgent("Test", "aggressive", Point{0, 0})
	startAttack := a.Attack
	a.GainWeaponBonus("blade", 10)
	require.Equal(t, startAttack+10, a.Attack)
	require.Equal(t, "blade", a.Weapon)
}

func TestIncrementKillCount(t *testing.T) {
	a := testAgent("Test", "aggressive", Point{0, 0})
	a.IncrementKillCount()
	a.IncrementKillCount()
	require.Equal(t, 2, a.KillCount)
}

func TestAddAllyRemovesFromEnemies(t *testing.T) {
	a := testAgent("A", "cautious", Point{0, 0})
	a.AddEnemy("b")
	require.True(t, a.IsEnemyOf("b"))
	a.AddAlly("b")
	require.True(t, a.IsAllyOf("b"))
	require.False(t, a.IsEnemyOf("b"))
}

func TestRemoveRelationPurgesBothSets(t *testing.T) {
	a := testAgent("A", "cautious", Point{0, 0})
	a.AddAlly("b")
	a.RemoveRelation("b")
	require.False(t, a.IsAllyOf("b"))
	require.False(t, a.IsEnemyOf("b"))
}

func TestMoveTowardStepsOneManhattanUnit(t *testing.T) {
	a := testAgent("A", "cautious", Point{0, 0})
	tm := world.CreateEmpty(10, 10)
	a.MoveToward(Point{5, 5}, 10, tm)
	require.Equal(t, 1, manhattan(Point{0, 0}, a.GetPosition()))
}

func TestMoveTowardStaysPutWhenDestinationBlocked(t *testing.T) {
	a := testAgent("A", "cautious", Point{0, 0})
	tm := world.CreateEmpty(10, 10)
	tm.Set(1, 0, world.Tile{Type: world.Blocked})
	a.MoveToward(Point{5, 0}, 10, tm)
	require.Equal(t, Point{0, 0}, a.GetPosition())
}

func TestMoveAwayFromStepsAwayAndClampsAtBounds(t *testing.T) {
	a := testAgent("A", "cautious", Point{0, 0})
	tm := world.CreateEmpty(10, 10)
	a.MoveAwayFrom(Point{5, 5}, 10, tm)
	pos := a.GetPosition()
	require.True(t, pos.X <= 0 && pos.Y <= 0, "clamped to the grid edge rather than going negative")
}

func TestMoveAwayFromDefaultsToPositiveOnZeroSign(t *testing.T) {
	a := testAgent("A", "cautious", Point{5, 5})
	tm := world.CreateEmpty(10, 10)
	a.MoveAwayFrom(Point{5, 5}, 10, tm)
	require.Equal(t, Point{6, 6}, a.GetPosition())
}

func TestFollowPathAdvancesOneWaypointPerCall(t *testing.T) {
	a := testAgent("A", "cautious", Point{0, 0})
	a.SetPath([]Point{{0, 0}, {1, 0}, {2, 0}})
	a.FollowPath()
	require.Equal(t, Point{1, 0}, a.GetPosition())
	a.FollowPath()
	require.Equal(t, Point{2, 0}, a.GetPosition())
	a.FollowPath()
	require.Equal(t, Point{2, 0}, a.GetPosition(), "stays at the last waypoint once exhausted")
}

func TestHearInnerVoiceExpiresAfterTTL(t *testing.T) {
	a := testAgent("A", "cautious", Point{0, 0})
	a.HearInnerVoice("attack Bob")
	require.Equal(t, "attack Bob", a.ActiveInnerVoice())

	a.innerVoiceSeen = a.innerVoiceSeen.Add(-innerVoiceTTL - 1)
	require.Empty(t, a.ActiveInnerVoice())
}

func TestStripBracketPrefix(t *testing.T) {
	require.Equal(t, "attack Bob", stripBracketPrefix("[crowd] attack Bob"))
	require.Equal(t, "attack Bob", stripBracketPrefix("attack Bob"))
}

func TestFingerprintChangesOnMutation(t *testing.T) {
	a := testAgent("A", "cautious", Point{0, 0})
	fp1 := a.Fingerprint()
	a.SetPosition(Point{1, 0})
	fp2 := a.Fingerprint()
	require.NotEqual(t, fp1, fp2)
}
