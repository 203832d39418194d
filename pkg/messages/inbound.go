package messages

import (
	"encoding/json"
	"time"

	"github.com/tecu23/maze-server/pkg/game"
	"github.com/tecu23/maze-server/pkg/maze"
)

// Inbound message types.
const (
	TypeSelectGameMode            = "selectGameMode"
	TypeMovement                  = "movement"
	TypeCheckpoint                = "checkpoint"
	TypeShopPurchase              = "shopPurchase"
	TypePlayerReadyToContinueShop = "playerReadyToContinueShop"
	TypeValidateShop              = "validateShop"
	TypeSaveSoloResults           = "saveSoloResults"
	TypeGetSoloBestSplits         = "getSoloBestSplits"
	TypeGetSoloLeaderboard        = "getSoloLeaderboard"
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SelectGameModePayload starts a new run
type SelectGameModePayload struct {
	Mode         string        `json:"mode"`
	PlayerSkin   string        `json:"playerSkin,omitempty"`
	CustomConfig *CustomConfig `json:"customConfig,omitempty"`
}

// CustomConfig overrides the server's run settings. Omitted fields keep the
// server default.
type CustomConfig struct {
	MaxLevel     *int   `json:"maxLevel,omitempty"`
	ShopLevels   []int  `json:"shopLevels"`
	CountdownMs  *int64 `json:"countdownMs,omitempty"`
	ShopMs       *int64 `json:"shopMs,omitempty"`
	TransitionMs *int64 `json:"transitionMs,omitempty"`
}

// Apply returns base with the fields set in c replaced.
func (c CustomConfig) Apply(base game.Settings) game.Settings {
	s := base
	s.ShopLevels = append([]int(nil), base.ShopLevels...)
	if c.MaxLevel != nil {
		s.MaxLevel = *c.MaxLevel
	}
	if c.ShopLevels != nil {
		s.ShopLevels = append([]int(nil), c.ShopLevels...)
	}
	if c.CountdownMs != nil {
		s.CountdownDuration = time.Duration(*c.CountdownMs) * time.Millisecond
	}
	if c.ShopMs != nil {
		s.ShopDuration = time.Duration(*c.ShopMs) * time.Millisecond
	}
	if c.TransitionMs != nil {
		s.TransitionDuration = time.Duration(*c.TransitionMs) * time.Millisecond
	}
	return s
}

// MovementPayload carries the pressed direction keys
type MovementPayload struct {
	Up    bool `json:"up"`
	Down  bool `json:"down"`
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Direction resolves the pressed keys into one direction.
func (p MovementPayload) Direction() maze.Direction {
	return maze.DirectionFrom(p.Up, p.Down, p.Left, p.Right)
}

// CheckpointPayload requests one checkpoint ability
type CheckpointPayload struct {
	SetCheckpoint      bool `json:"setCheckpoint"`
	TeleportCheckpoint bool `json:"teleportCheckpoint"`
	Dash               bool `json:"dash"`
}

// Actions lists the requested abilities in a fixed order.
func (p CheckpointPayload) Actions() []game.CheckpointAction {
	var actions []game.CheckpointAction
	if p.SetCheckpoint {
		actions = append(actions, game.ActionSetCheckpoint)
	}
	if p.TeleportCheckpoint {
		actions = append(actions, game.ActionTeleportCheckpoint)
	}
	if p.Dash {
		actions = append(actions, game.ActionDash)
	}
	return actions
}

// ShopPurchasePayload buys one shop item
type ShopPurchasePayload struct {
	ItemID string `json:"itemId"`
}

// SaveSoloResultsPayload asks the server to persist the finished run. When
// SplitTimes is empty the server's own splits are used.
type SaveSoloResultsPayload struct {
	SplitTimes []float64 `json:"splitTimes,omitempty"`
}
