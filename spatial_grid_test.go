package main

import "testing"

func TestNearbyFoodRespectsRadius(t *testing.T) {
	g := NewSpatialGrid(GridCellSize)
	g.InsertFood(&FoodItem{ID: "close", X: 10, Y: 10})
	g.InsertFood(&FoodItem{ID: "edge-of-cell", X: 90, Y: 0})
	g.InsertFood(&FoodItem{ID: "far", X: 500, Y: 500})

	got := g.NearbyFood(0, 0, FoodPickupRadius)
	if len(got) != 1 || got[0] != "close" {
		t.Fatalf("nearby = %v, want [close]", got)
	}
}

func TestNearbyFoodCrossesCellBoundaries(t *testing.T) {
	g := NewSpatialGrid(GridCellSize)
	// Neighboring cell, but within pickup range of a head at the cell edge.
	g.InsertFood(&FoodItem{ID: "next-cell", X: 105, Y: 0})

	got := g.NearbyFood(95, 0, FoodPickupRadius)
	if len(got) != 1 {
		t.Fatalf("nearby = %v, want the item one cell over", got)
	}
}

func TestInsertTrailSkipsHead(t *testing.T) {
	g := NewSpatialGrid(GridCellSize)
	p := testPlayerAt("p1", TeamGreen, 0, 0)
	p.Trail = []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0}}
	g.InsertTrail(p)

	hits := g.NearbyTrail(0, 0, TrailContactRadius, "other")
	for _, h := range hits {
		if h.segIdx == 0 {
			t.Fatal("head segment was indexed")
		}
	}
	if len(hits) == 0 {
		t.Fatal("body segments not indexed")
	}
}

func TestNearbyTrailExcludesOwner(t *testing.T) {
	g := NewSpatialGrid(GridCellSize)
	p := testPlayerAt("p1", TeamGreen, 0, 0)
	p.Trail = []Point{{X: 0, Y: 0}, {X: 5, Y: 0}}
	g.InsertTrail(p)

	if hits := g.NearbyTrail(0, 0, TrailContactRadius, "p1"); len(hits) != 0 {
		t.Fatalf("own trail returned: %v", hits)
	}
}

func TestClearEmptiesGrid(t *testing.T) {
	g := NewSpatialGrid(GridCellSize)
	g.InsertFood(&FoodItem{ID: "f1", X: 0, Y: 0})
	g.Clear()

	if got := g.NearbyFood(0, 0, FoodPickupRadius); len(got) != 0 {
		t.Fatalf("grid not cleared: %v", got)
	}
}
