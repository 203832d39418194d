package game

import (
	"github.com/google/uuid"

	"github.com/tecu23/maze-server/pkg/maze"
)

// DashDistance is how many cells a dash covers at most.
const DashDistance = 4

// Player is the solo runner inside one session.
type Player struct {
	ID         uuid.UUID
	Skin       string
	Position   maze.Point
	Facing     maze.Direction
	Gems       int
	Features   map[string]bool
	Checkpoint *maze.Point
}

func newPlayer(id uuid.UUID, skin string) *Player {
	return &Player{
		ID:       id,
		Skin:     skin,
		Facing:   maze.Right,
		Features: make(map[string]bool),
	}
}

// Has reports whether the player owns the feature unlocked by item id.
func (p *Player) Has(id string) bool {
	return p.Features[id]
}

// placeAt moves the player to a fresh level's spawn. Checkpoints do not
// carry over between levels.
func (p *Player) placeAt(start maze.Point) {
	p.Position = start
	p.Checkpoint = nil
}
