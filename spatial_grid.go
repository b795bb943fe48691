package main

import "math"

// cellKey uniquely identifies a grid cell
type cellKey struct {
	cx, cy int
}

// gridEntry holds a reference to a food item or trail segment in a cell
type gridEntry struct {
	foodID   string
	playerID string
	segIdx   int
	x, y     float64
}

// SpatialGrid is a hash grid for fast proximity queries within one session.
// It is rebuilt each tick after movement.
type SpatialGrid struct {
	cells    map[cellKey][]gridEntry
	cellSize float64
}

// NewSpatialGrid creates an empty spatial grid
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	return &SpatialGrid{
		cells:    make(map[cellKey][]gridEntry),
		cellSize: cellSize,
	}
}

// Clear resets all cells
func (g *SpatialGrid) Clear() {
	g.cells = make(map[cellKey][]gridEntry)
}

func (g *SpatialGrid) keyFor(x, y float64) cellKey {
	return cellKey{
		cx: int(math.Floor(x / g.cellSize)),
		cy: int(math.Floor(y / g.cellSize)),
	}
}

// InsertFood adds a food item to the grid
func (g *SpatialGrid) InsertFood(f *FoodItem) {
	k := g.keyFor(f.X, f.Y)
	g.cells[k] = append(g.cells[k], gridEntry{foodID: f.ID, x: f.X, y: f.Y})
}

// InsertTrail adds a player's trail segments to the grid, skipping the head.
// The head is index 0 and is exempt from contact kills, so it never needs to
// be queryable.
func (g *SpatialGrid) InsertTrail(p *Player) {
	for i := 1; i < len(p.Trail); i++ {
		seg := p.Trail[i]
		k := g.keyFor(seg.X, seg.Y)
		g.cells[k] = append(g.cells[k], gridEntry{
			playerID: p.ID,
			segIdx:   i,
			x:        seg.X,
			y:        seg.Y,
		})
	}
}

// NearbyFood returns food IDs within radius of (x,y)
func (g *SpatialGrid) NearbyFood(x, y, radius float64) []string {
	results := []string{}
	minCX := int(math.Floor((x - radius) / g.cellSize))
	maxCX := int(math.Floor((x + radius) / g.cellSize))
	minCY := int(math.Floor((y - radius) / g.cellSize))
	maxCY := int(math.Floor((y + radius) / g.cellSize))

	r2 := radius * radius
	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			for _, e := range g.cells[cellKey{cx, cy}] {
				if e.foodID == "" {
					continue
				}
				dx := e.x - x
				dy := e.y - y
				if dx*dx+dy*dy <= r2 {
					results = append(results, e.foodID)
				}
			}
		}
	}
	return results
}

// NearbyTrail returns trail segment entries within radius of (x,y), excluding
// segments owned by excludeID. Team filtering is the caller's concern.
func (g *SpatialGrid) NearbyTrail(x, y, radius float64, excludeID string) []gridEntry {
	results := []gridEntry{}
	minCX := int(math.Floor((x - radius) / g.cellSize))
	maxCX := int(math.Floor((x + radius) / g.cellSize))
	minCY := int(math.Floor((y - radius) / g.cellSize))
	maxCY := int(math.Floor((y + radius) / g.cellSize))

	r2 := radius * radius
	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			for _, e := range g.cells[cellKey{cx, cy}] {
				if e.playerID == "" || e.playerID == excludeID {
					continue
				}
				dx := e.x - x
				dy := e.y - y
				if dx*dx+dy*dy <= r2 {
					results = append(results, e)
				}
			}
		}
	}
	return results
}
