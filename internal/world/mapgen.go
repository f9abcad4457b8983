package world

// lcg is the deterministic linear congruential generator the spec pins for
// seeded obstacle placement: s <- (s*9301 + 49297) mod 233280.
type lcg struct {
	state int64
}

func newLCG(seed int64) *lcg {
	return &lcg{state: seed}
}

// next returns a float64 in [0,1).
func (g *lcg) next() float64 {
	g.state = (g.state*9301 + 49297) % 233280
	if g.state < 0 {
		g.state += 233280
	}
	return float64(g.state) / 233280.0
}

// CreateEmpty returns a new all-Passable map of the given size.
func CreateEmpty(width, height int) *TileMap {
	return NewTileMap(width, height)
}

// AddRandomObstacles independently marks each tile Blocked with probability
// density. When seed is non-zero it drives the spec's LCG for determinism;
// seed == 0 falls back to math/rand for non-reproducible generation.
func AddRandomObstacles(m *TileMap, density float64, seed int64) {
	if density <= 0 {
		return
	}
	if density > 1 {
		density = 1
	}

	if seed != 0 {
		gen := newLCG(seed)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				if gen.next() < density {
					m.Set(x, y, Tile{Type: Blocked})
				}
			}
		}
		return
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if randFloat64() < density {
				m.Set(x, y, Tile{Type: Blocked})
			}
		}
	}
}

// AddBorderWalls blocks every tile on the outer ring of the map.
func AddBorderWalls(m *TileMap) {
	for x := 0; x < m.Width; x++ {
		m.Set(x, 0, Tile{Type: Blocked})
		m.Set(x, m.Height-1, Tile{Type: Blocked})
	}
	for y := 0; y < m.Height; y++ {
		m.Set(0, y, Tile{Type: Blocked})
		m.Set(m.Width-1, y, Tile{Type: Blocked})
	}
}

// AddRectangle blocks a w x h rectangle with top-left corner (x,y), clipped
// to the map bounds.
func AddRectangle(m *TileMap, x, y, w, h int) {
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			px, py := x+dx, y+dy
			if m.InBounds(px, py) {
				m.Set(px, py, Tile{Type: Blocked})
			}
		}
	}
}

// IsPassable reports whether (x,y) is in-bounds and Passable. Mirrors
// TileMap.IsPassable for callers that only have a *TileMap in hand from
// generation code.
func IsPassable(m *TileMap, x, y int) bool {
	return m.IsPassable(x, y)
}

// AddNoiseObstacles uses fractal OpenSimplex noise (rather than the
// independent per-tile LCG roll of AddRandomObstacles) to carve out
// organic-looking blocked regions: tiles where octave noise exceeds the
// given threshold become Blocked. Offered as an alternative obstacle
// generator; no configuration option selects it and NewWorld always uses
// AddRandomObstacles. It does not change the other generator's determinism
// guarantee.
func AddNoiseObstacles(m *TileMap, seed int64, threshold float64) {
	gen := NewNoiseGenerator(seed)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := gen.Octave2D(float64(x), float64(y), 3, 0.08, 0.5)
			if v > threshold {
				m.Set(x, y, Tile{Type: Blocked})
			}
		}
	}
}
