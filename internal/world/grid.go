package world

import (
	"math"

	"github.com/l1jgo/arena/internal/core/ecs"
)

// Grid is a uniform spatial hash of entities by position. Systems rebuild it
// each frame and ask it for candidates near a point; callers do the exact
// distance test. Accessed only from the update loop goroutine, no locks.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]ecs.Entity
	n        int
}

type cellKey struct {
	cx, cy int32
}

// NewGrid returns an empty grid. A non-positive cellSize falls back to 1.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]ecs.Entity),
	}
}

func (g *Grid) coord(v float64) int32 {
	return int32(math.Floor(v / g.cellSize))
}

// Reset empties every cell but keeps their backing arrays.
func (g *Grid) Reset() {
	for k, c := range g.cells {
		g.cells[k] = c[:0]
	}
	g.n = 0
}

// Insert places e in the cell containing (x, y).
func (g *Grid) Insert(e ecs.Entity, x, y float64) {
	k := cellKey{cx: g.coord(x), cy: g.coord(y)}
	g.cells[k] = append(g.cells[k], e)
	g.n++
}

// Len returns how many entities were inserted since the last Reset.
func (g *Grid) Len() int { return g.n }

// Nearby appends to dst every entity in the cells overlapping the square of
// half-width radius around (x, y). Cells are visited in row order.
func (g *Grid) Nearby(x, y, radius float64, dst []ecs.Entity) []ecs.Entity {
	if radius < 0 {
		return dst
	}
	minX, maxX := g.coord(x-radius), g.coord(x+radius)
	minY, maxY := g.coord(y-radius), g.coord(y+radius)
	for cy := minY; cy <= maxY; cy++ {
		for cx := minX; cx <= maxX; cx++ {
			dst = append(dst, g.cells[cellKey{cx: cx, cy: cy}]...)
		}
	}
	return dst
}
