package maze

// Direction is a single grid step.
type Direction int

// Directions a player can move in.
const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "none"
	}
}

// Apply returns p moved one cell in direction d.
func (d Direction) Apply(p Point) Point {
	switch d {
	case Up:
		p.Y--
	case Down:
		p.Y++
	case Left:
		p.X--
	case Right:
		p.X++
	}
	return p
}

// DirectionFrom folds a key-state intent into one direction. Opposing keys
// cancel; vertical movement wins over horizontal.
func DirectionFrom(up, down, left, right bool) Direction {
	switch {
	case up && !down:
		return Up
	case down && !up:
		return Down
	case left && !right:
		return Left
	case right && !left:
		return Right
	default:
		return None
	}
}

// Step moves from p in direction d for up to n cells, stopping before the
// first wall. It returns the final position and the number of cells moved.
func (g Grid) Step(p Point, d Direction, n int) (Point, int) {
	if d == None {
		return p, 0
	}
	moved := 0
	for moved < n {
		next := d.Apply(p)
		if !g.Open(next) {
			break
		}
		p = next
		moved++
	}
	return p, moved
}

// Within reports whether a and b are at most r cells apart on both axes.
func Within(a, b Point, r int) bool {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx <= r && dy <= r
}
