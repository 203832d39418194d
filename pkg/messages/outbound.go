package messages

import (
	"time"

	"github.com/tecu23/maze-server/pkg/game"
	"github.com/tecu23/maze-server/pkg/maze"
	"github.com/tecu23/maze-server/pkg/repository"
)

// Outbound event names.
const (
	EventConnected        = "connected"
	EventSoloGameState    = "soloGameState"
	EventGameFinished     = "gameFinished"
	EventSoloResultsSaved = "soloResultsSaved"
	EventSoloLeaderboard  = "soloLeaderboard"
	EventSoloBestSplits   = "soloBestSplits"
	EventError            = "error"
)

// OutboundMessage is how we wrap responses before sending
// them to the client
type OutboundMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// ConnectedPayload greets a new connection
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// PhasePayload describes a timed window. Times are in milliseconds; StartTime
// is a Unix timestamp and null while the window is inactive.
type PhasePayload struct {
	Active    bool   `json:"active"`
	Duration  int64  `json:"duration" jsonschema:"description=Window length in milliseconds"`
	StartTime *int64 `json:"startTime" jsonschema:"description=Unix milliseconds when the window opened; null while inactive"`
	Elapsed   int64  `json:"elapsed" jsonschema:"description=Milliseconds since the window opened, capped at duration"`
}

// ShopItemPayload is one catalog entry as seen by the player
type ShopItemPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int    `json:"price"`
	Owned       bool   `json:"owned"`
	Affordable  bool   `json:"affordable"`
}

// ShopPayload is the shop window plus its catalog
type ShopPayload struct {
	PhasePayload
	Items []ShopItemPayload `json:"items"`
}

// PlayerPayload is the runner as shown to the client
type PlayerPayload struct {
	ID         string      `json:"id"`
	Skin       string      `json:"skin"`
	Position   maze.Point  `json:"position"`
	Gems       int         `json:"gems"`
	Features   []string    `json:"features"`
	Checkpoint *maze.Point `json:"checkpoint"`
}

// SoloGameStatePayload is pushed after every change to a solo session
type SoloGameStatePayload struct {
	SessionID        string        `json:"sessionId"`
	State            string        `json:"state"`
	Player           PlayerPayload `json:"player"`
	CurrentLevel     int           `json:"currentLevel"`
	MaxLevel         int           `json:"maxLevel"`
	IsGameFinished   bool          `json:"isGameFinished"`
	RunTotalTime     float64       `json:"runTotalTime"`
	CurrentLevelTime float64       `json:"currentLevelTime"`
	SplitTimes       []float64     `json:"splitTimes"`
	Countdown        PhasePayload  `json:"countdown"`
	Shop             ShopPayload   `json:"shop"`
	Transition       PhasePayload  `json:"transition"`
	Map              maze.Grid     `json:"map"`
	Coin             maze.Point    `json:"coin"`
}

// GameFinishedPayload is sent once when a validated run completes
type GameFinishedPayload struct {
	TotalTime  float64   `json:"totalTime" jsonschema:"description=Run time in seconds with shop time excluded"`
	SplitTimes []float64 `json:"splitTimes" jsonschema:"description=Seconds spent on each level in order"`
}

// SoloResultsSavedPayload acknowledges a save request
type SoloResultsSavedPayload struct {
	Saved  bool   `json:"saved"`
	RunID  string `json:"runId,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// LeaderboardEntry is one ranked run
type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	RunID      string    `json:"runId"`
	PlayerID   string    `json:"playerId"`
	PlayerSkin string    `json:"playerSkin"`
	TotalTime  float64   `json:"totalTime"`
	SplitTimes []float64 `json:"splitTimes"`
	FinalLevel int       `json:"finalLevel"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SoloLeaderboardPayload lists the fastest runs
type SoloLeaderboardPayload struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// BestSplitEntry is the fastest time recorded for one level
type BestSplitEntry struct {
	Level         int     `json:"level"`
	BestSplitTime float64 `json:"bestSplitTime"`
	PlayerSkin    string  `json:"playerSkin"`
}

// SoloBestSplitsPayload lists the best split of every level
type SoloBestSplitsPayload struct {
	Splits []BestSplitEntry `json:"splits"`
}

// ErrorPayload reports a request the server could not serve
type ErrorPayload struct {
	Message string `json:"message"`
}

func phasePayload(p game.PhaseSnapshot) PhasePayload {
	out := PhasePayload{
		Active:   p.Active,
		Duration: p.Duration.Milliseconds(),
		Elapsed:  p.Elapsed.Milliseconds(),
	}
	if p.StartTime != nil {
		ms := p.StartTime.UnixMilli()
		out.StartTime = &ms
	}
	return out
}

// NewSoloGameState converts a session snapshot into its wire form.
func NewSoloGameState(s game.Snapshot) SoloGameStatePayload {
	items := make([]ShopItemPayload, 0, len(s.ShopItems))
	for _, offer := range s.ShopItems {
		items = append(items, ShopItemPayload{
			ID:          offer.ID,
			Name:        offer.Name,
			Description: offer.Description,
			Price:       offer.Price,
			Owned:       offer.Owned,
			Affordable:  offer.Affordable,
		})
	}

	splits := s.SplitTimes
	if splits == nil {
		splits = []float64{}
	}

	return SoloGameStatePayload{
		SessionID: s.SessionID.String(),
		State:     s.State.String(),
		Player: PlayerPayload{
			ID:         s.Player.ID.String(),
			Skin:       s.Player.Skin,
			Position:   s.Player.Position,
			Gems:       s.Player.Gems,
			Features:   s.Player.Features,
			Checkpoint: s.Player.Checkpoint,
		},
		CurrentLevel:     s.CurrentLevel,
		MaxLevel:         s.MaxLevel,
		IsGameFinished:   s.IsGameFinished,
		RunTotalTime:     s.RunTotalTime,
		CurrentLevelTime: s.CurrentLevelTime,
		SplitTimes:       splits,
		Countdown:        phasePayload(s.Countdown),
		Shop:             ShopPayload{PhasePayload: phasePayload(s.Shop), Items: items},
		Transition:       phasePayload(s.Transition),
		Map:              s.Map,
		Coin:             s.Coin,
	}
}

// NewLeaderboard ranks runs in the order given.
func NewLeaderboard(runs []repository.Run) SoloLeaderboardPayload {
	entries := make([]LeaderboardEntry, 0, len(runs))
	for i, r := range runs {
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			RunID:      r.ID.String(),
			PlayerID:   r.PlayerID.String(),
			PlayerSkin: r.PlayerSkin,
			TotalTime:  r.TotalTime,
			SplitTimes: r.SplitTimes,
			FinalLevel: r.FinalLevel,
			CreatedAt:  r.CreatedAt,
		})
	}
	return SoloLeaderboardPayload{Entries: entries}
}

// NewBestSplits converts stored best splits.
func NewBestSplits(best []repository.BestSplit) SoloBestSplitsPayload {
	splits := make([]BestSplitEntry, 0, len(best))
	for _, b := range best {
		splits = append(splits, BestSplitEntry{
			Level:         b.Level,
			BestSplitTime: b.BestSplitTime,
			PlayerSkin:    b.PlayerSkin,
		})
	}
	return SoloBestSplitsPayload{Splits: splits}
}
