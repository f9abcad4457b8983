// Package pathfind implements A* search over a world.TileMap.
package pathfind

import (
	"container/heap"

	"github.com/dragonchu/agentpollen/internal/world"
)

// Point is an integer grid coordinate.
type Point struct {
	X, Y int
}

// Path is an ordered sequence of waypoints plus its total integer cost.
// Waypoints[0] is the start, Waypoints[len-1] is the goal.
type Path struct {
	Waypoints []Point
	Cost      int
}

// FindPath runs A* with a Manhattan heuristic from start to goal on a
// 4-connected grid, honoring per-tile weights (default 1). Returns nil if
// either endpoint is out of bounds or Blocked (except the trivial
// start==goal case, which returns a zero-cost single-point path without a
// passability check — matching the upstream behavior this spec pins down),
// or if no passable path exists.
func FindPath(m *world.TileMap, start, goal Point) *Path {
	if start == goal {
		return &Path{Waypoints: []Point{start}, Cost: 0}
	}

	if !m.InBounds(start.X, start.Y) || !m.IsPassable(start.X, start.Y) {
		return nil
	}
	if !m.InBounds(goal.X, goal.Y) || !m.IsPassable(goal.X, goal.Y) {
		return nil
	}

	open := &openSet{}
	heap.Init(open)
	heap.Push(open, &node{pt: start, g: 0, h: manhattan(start, goal)})

	gScore := map[Point]int{start: 0}
	cameFrom := map[Point]Point{}
	closed := map[Point]bool{}
	// insertion order breaks ties deterministically among equal f-scores.
	order := 0
	seq := map[Point]int{start: order}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*node)
		if closed[cur.pt] {
			continue
		}
		closed[cur.pt] = true

		if cur.pt == goal {
			return reconstruct(cameFrom, start, goal, gScore[goal])
		}

		for _, nb := range neighbors(cur.pt) {
			if !m.InBounds(nb.X, nb.Y) || !m.IsPassable(nb.X, nb.Y) {
				continue
			}
			if closed[nb] {
				continue
			}

			step := m.Get(nb.X, nb.Y).EffectiveWeight()
			tentativeG := gScore[cur.pt] + step

			existing, seen := gScore[nb]
			if !seen || tentativeG < existing {
				gScore[nb] = tentativeG
				cameFrom[nb] = cur.pt
				order++
				seq[nb] = order
				heap.Push(open, &node{
					pt:  nb,
					g:   tentativeG,
					h:   manhattan(nb, goal),
					seq: seq[nb],
				})
			}
		}
	}

	return nil
}

func reconstruct(cameFrom map[Point]Point, start, goal Point, cost int) *Path {
	waypoints := []Point{goal}
	cur := goal
	for cur != start {
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		waypoints = append(waypoints, prev)
		cur = prev
	}
	// reverse
	for i, j := 0, len(waypoints)-1; i < j; i, j = i+1, j-1 {
		waypoints[i], waypoints[j] = waypoints[j], waypoints[i]
	}
	return &Path{Waypoints: waypoints, Cost: cost}
}

func manhattan(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

func neighbors(p Point) [4]Point {
	return [4]Point{
		{X: p.X + 1, Y: p.Y},
		{X: p.X - 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X, Y: p.Y - 1},
	}
}

// node is an open-set entry ordered by f = g + h, tie-broken by insertion
// order (seq) so results are deterministic given identical inputs.
type node struct {
	pt  Point
	g   int
	h   int
	seq int
}

func (n *node) f() int { return n.g + n.h }

type openSet []*node

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].f() != s[j].f() {
		return s[i].f() < s[j].f()
	}
	return s[i].seq < s[j].seq
}
func (s openSet) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x interface{}) {
	*s = append(*s, x.(*node))
}
func (s *openSet) Pop() interface{} {
	old := *s
	n := len(old)
	item := old[n-1]
	*s = old[:n-1]
	return item
}
