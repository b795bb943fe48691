package main

import (
	"fmt"
	"math"
	"math/rand"
)

// FoodItem is a collectible dot worth one score point.
type FoodItem struct {
	ID string
	X  float64
	Y  float64
}

var foodCounter int

func newFoodID() string {
	foodCounter++
	return fmt.Sprintf("f%d", foodCounter)
}

// NewFoodItem creates a food item at a uniformly random position inside the
// spawn circle (kept off the boundary so it is reachable without dying).
func NewFoodItem() *FoodItem {
	x, y := randomCirclePoint(FoodSpawnRadius)
	return &FoodItem{ID: newFoodID(), X: x, Y: y}
}

// GenerateFood creates the initial food allocation for a new session.
func GenerateFood(count int) []*FoodItem {
	food := make([]*FoodItem, count)
	for i := range food {
		food[i] = NewFoodItem()
	}
	return food
}

// ScatterFoodAt creates DeathFoodDrops items spread around a death point.
// Items may land slightly outside the arena; they are still collectible by a
// player skimming the boundary and get replaced by the replenish floor.
func ScatterFoodAt(x, y float64) []*FoodItem {
	food := make([]*FoodItem, DeathFoodDrops)
	for i := range food {
		food[i] = &FoodItem{
			ID: newFoodID(),
			X:  x + (rand.Float64()-0.5)*DeathFoodScatter,
			Y:  y + (rand.Float64()-0.5)*DeathFoodScatter,
		}
	}
	return food
}

// ToDTO converts the food item to its serializable form.
func (f *FoodItem) ToDTO() FoodDTO {
	return FoodDTO{ID: f.ID, X: roundTo1(f.X), Y: roundTo1(f.Y)}
}

// DistanceTo returns the distance from the food item to a point.
func (f *FoodItem) DistanceTo(x, y float64) float64 {
	dx := f.X - x
	dy := f.Y - y
	return math.Sqrt(dx*dx + dy*dy)
}

// randomCirclePoint returns a uniformly random point inside an origin-centered
// circle. Uses polar coordinates with sqrt(r) for uniform area distribution.
func randomCirclePoint(radius float64) (float64, float64) {
	r := radius * math.Sqrt(rand.Float64())
	angle := rand.Float64() * 2 * math.Pi
	return r * math.Cos(angle), r * math.Sin(angle)
}
