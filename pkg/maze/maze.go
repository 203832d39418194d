// Package maze generates level grids and moves a player through them.
package maze

import "math/rand/v2"

// Cell values in a Grid.
const (
	Floor = 0
	Wall  = 1
)

// Size bounds for generated levels. Dimensions are always odd.
const (
	MinSize     = 11
	MaxSize     = 41
	growthStep  = 4
	heightRatio = 2 // height shrinks by growthStep/heightRatio per level
)

// Point is a cell coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is a row-major maze; Grid[y][x] is Floor or Wall.
type Grid [][]int

// Level is one generated maze with its spawn and pickup positions.
type Level struct {
	Grid   Grid
	Start  Point
	Coin   Point
	Width  int
	Height int
}

// Open reports whether p is inside the grid and not a wall.
func (g Grid) Open(p Point) bool {
	if p.Y < 0 || p.Y >= len(g) {
		return false
	}
	row := g[p.Y]
	if p.X < 0 || p.X >= len(row) {
		return false
	}
	return row[p.X] == Floor
}

// SizeForLevel returns the grid dimensions for a 1-based level number.
func SizeForLevel(level int) (width, height int) {
	if level < 1 {
		level = 1
	}
	width = MinSize + growthStep*(level-1)
	height = MinSize + growthStep/heightRatio*(level-1)
	width = clampOdd(width)
	height = clampOdd(height)
	return width, height
}

func clampOdd(n int) int {
	if n < MinSize {
		n = MinSize
	}
	if n > MaxSize {
		n = MaxSize
	}
	if n%2 == 0 {
		n--
	}
	return n
}

// Generate carves a perfect maze with a randomized depth-first walk starting
// at (1,1). The coin is placed on the floor cell farthest from the start.
func Generate(width, height int, rng *rand.Rand) Level {
	width, height = clampOdd(width), clampOdd(height)

	grid := make(Grid, height)
	for y := range grid {
		grid[y] = make([]int, width)
		for x := range grid[y] {
			grid[y][x] = Wall
		}
	}

	start := Point{X: 1, Y: 1}
	grid[start.Y][start.X] = Floor
	stack := []Point{start}
	dirs := [4][2]int{{0, 2}, {0, -2}, {2, 0}, {-2, 0}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		order := rng.Perm(len(dirs))

		carved := false
		for _, i := range order {
			d := dirs[i]
			next := Point{X: cur.X + d[0], Y: cur.Y + d[1]}
			if next.X <= 0 || next.X >= width-1 || next.Y <= 0 || next.Y >= height-1 {
				continue
			}
			if grid[next.Y][next.X] != Wall {
				continue
			}
			grid[cur.Y+d[1]/2][cur.X+d[0]/2] = Floor
			grid[next.Y][next.X] = Floor
			stack = append(stack, next)
			carved = true
			break
		}
		if !carved {
			stack = stack[:len(stack)-1]
		}
	}

	return Level{
		Grid:   grid,
		Start:  start,
		Coin:   farthest(grid, start),
		Width:  width,
		Height: height,
	}
}

// farthest returns the floor cell with the longest shortest path from start.
func farthest(g Grid, start Point) Point {
	dist := map[Point]int{start: 0}
	queue := []Point{start}
	best := start

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if dist[cur] > dist[best] {
			best = cur
		}
		for _, d := range []Direction{Up, Down, Left, Right} {
			next := d.Apply(cur)
			if _, seen := dist[next]; seen || !g.Open(next) {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return best
}
