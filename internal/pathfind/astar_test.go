package pathfind

import (
	"testing"

	"github.com/dragonchu/agentpollen/internal/world"
	"github.com/stretchr/testify/require"
)

func TestFindPathTrivialSameTile(t *testing.T) {
	m := world.NewTileMap(3, 3)
	p := FindPath(m, Point{0, 0}, Point{0, 0})
	require.NotNil(t, p)
	require.Equal(t, []Point{{0, 0}}, p.Waypoints)
	require.Equal(t, 0, p.Cost)
}

func TestFindPathTrivialBlockedStartGoal(t *testing.T) {
	m := world.NewTileMap(3, 3)
	m.Set(1, 1, world.Tile{Type: world.Blocked})
	p := FindPath(m, Point{1, 1}, Point{1, 1})
	require.NotNil(t, p, "trivial start==goal branch returns a path without a passability check")
}

func TestFindPathStraightLine(t *testing.T) {
	m := world.NewTileMap(5, 5)
	p := FindPath(m, Point{0, 0}, Point{4, 0})
	require.NotNil(t, p)
	require.Equal(t, 4, p.Cost)
	require.Equal(t, Point{0, 0}, p.Waypoints[0])
	require.Equal(t, Point{4, 0}, p.Waypoints[len(p.Waypoints)-1])
}

func TestFindPathBlockedEndpoint(t *testing.T) {
	m := world.NewTileMap(3, 3)
	m.Set(2, 2, world.Tile{Type: world.Blocked})
	require.Nil(t, FindPath(m, Point{0, 0}, Point{2, 2}))
}

func TestFindPathOutOfBounds(t *testing.T) {
	m := world.NewTileMap(3, 3)
	require.Nil(t, FindPath(m, Point{-1, 0}, Point{1, 1}))
	require.Nil(t, FindPath(m, Point{0, 0}, Point{5, 5}))
}

func TestFindPathNoRoute(t *testing.T) {
	m := world.NewTileMap(3, 3)
	for y := 0; y < 3; y++ {
		m.Set(1, y, world.Tile{Type: world.Blocked})
	}
	require.Nil(t, FindPath(m, Point{0, 0}, Point{2, 0}))
}

func TestFindPathDetourAroundWall(t *testing.T) {
	// 5x5 map, column x=2 blocked except at (2,4)
	m := world.NewTileMap(5, 5)
	for y := 0; y < 5; y++ {
		if y == 4 {
			continue
		}
		m.Set(2, y, world.Tile{Type: world.Blocked})
	}

	p := FindPath(m, Point{0, 0}, Point{4, 0})
	require.NotNil(t, p)

	for _, wp := range p.Waypoints {
		require.True(t, m.IsPassable(wp.X, wp.Y))
	}
	for i := 1; i < len(p.Waypoints); i++ {
		a, b := p.Waypoints[i-1], p.Waypoints[i]
		dx := a.X - b.X
		dy := a.Y - b.Y
		if dx < 0 {
			dx = -dx
		}
		if dy < 0 {
			dy = -dy
		}
		require.Equal(t, 1, dx+dy, "waypoints must be 4-adjacent")
	}

	manhattanDist := 4
	require.GreaterOrEqual(t, p.Cost, manhattanDist)
	require.Equal(t, manhattanDist+2*4, p.Cost, "cost = manhattan + 2*detourSteps for the forced detour down and back up")
}

func TestFindPathRespectsWeights(t *testing.T) {
	m := world.NewTileMap(3, 1)
	m.Set(1, 0, world.Tile{Type: world.Passable, Weight: 5})
	p := FindPath(m, Point{0, 0}, Point{2, 0})
	require.NotNil(t, p)
	require.Equal(t, 1+5, p.Cost)
}

func TestFindPathDeterministic(t *testing.T) {
	m := world.NewTileMap(10, 10)
	AddTestObstacles(m)

	p1 := FindPath(m, Point{0, 0}, Point{9, 9})
	p2 := FindPath(m, Point{0, 0}, Point{9, 9})
	require.Equal(t, p1, p2)
}

// AddTestObstacles is a small fixed obstacle pattern shared by determinism tests.
func AddTestObstacles(m *world.TileMap) {
	for _, p := range []Point{{3, 0}, {3, 1}, {3, 2}, {3, 3}, {3, 4}, {3, 5}, {3, 6}, {3, 7}, {3, 8}} {
		m.Set(p.X, p.Y, world.Tile{Type: world.Blocked})
	}
}
