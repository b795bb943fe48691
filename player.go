package main

import "math"

// Point is a 2D coordinate
type Point struct {
	X float64
	Y float64
}

// Player represents one participant (human or bot) inside a session.
// Humans are keyed by their connection handle; bots by a generated id.
type Player struct {
	ID        string
	UserID    string // stable external identity, empty for bots and guests
	Name      string
	X, Y      float64
	Trail     []Point // index 0 = head; always mirrors (X, Y) after a tick
	DirX      float64 // unit direction; heading only, magnitude is not speed
	DirY      float64
	Score     int
	Color     string
	Team      string
	Alive     bool
	IsBot     bool
	Connected bool
	BetAmount int
	Ping      int
}

// MaxTrailLength is the score-derived cap on the trail. It only ever grows
// over a player's lifetime because score is monotone.
func (p *Player) MaxTrailLength() int {
	return BaseTrailLength + p.Score/2
}

// Move advances the player one tick along its current heading, pushes the new
// head onto the trail and truncates the tail to the score-derived cap.
// Returns true if the new head crossed the arena boundary.
func (p *Player) Move() bool {
	p.X += p.DirX * PlayerSpeed
	p.Y += p.DirY * PlayerSpeed

	p.Trail = append([]Point{{X: p.X, Y: p.Y}}, p.Trail...)
	if max := p.MaxTrailLength(); len(p.Trail) > max {
		p.Trail = p.Trail[:max]
	}

	return p.X*p.X+p.Y*p.Y > ArenaRadius*ArenaRadius
}

// SetDirection normalizes (x, y) and applies it as the new heading.
// A zero vector is ignored so a malformed update cannot stall the player.
func (p *Player) SetDirection(x, y float64) {
	mag := math.Sqrt(x*x + y*y)
	if mag == 0 {
		return
	}
	p.DirX = x / mag
	p.DirY = y / mag
}

// DistFromCenter returns the head's distance from the arena origin.
func (p *Player) DistFromCenter() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// DistTo returns the distance between this player's head and another's.
func (p *Player) DistTo(o *Player) float64 {
	dx := o.X - p.X
	dy := o.Y - p.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// ToDTO converts the player to its serializable public view.
// Trail segments are encoded as flat [x,y] pairs to minimize JSON size.
func (p *Player) ToDTO() PlayerDTO {
	segs := make([][2]float64, len(p.Trail))
	for i, pt := range p.Trail {
		segs[i] = [2]float64{roundTo1(pt.X), roundTo1(pt.Y)}
	}
	return PlayerDTO{
		ID:        p.ID,
		Username:  p.Name,
		X:         roundTo1(p.X),
		Y:         roundTo1(p.Y),
		Segments:  segs,
		Direction: Vec2{X: p.DirX, Y: p.DirY},
		Score:     p.Score,
		Color:     p.Color,
		Alive:     p.Alive,
		Team:      p.Team,
		IsBot:     p.IsBot,
		Ping:      p.Ping,
	}
}

// roundTo1 rounds a float64 to 1 decimal place to save protocol bytes.
func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}
