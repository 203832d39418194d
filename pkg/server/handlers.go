package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/maze-server/internal/skin"
	"github.com/tecu23/maze-server/pkg/events"
	"github.com/tecu23/maze-server/pkg/game"
	"github.com/tecu23/maze-server/pkg/jobs"
	"github.com/tecu23/maze-server/pkg/messages"
	"github.com/tecu23/maze-server/pkg/repository"
	"github.com/tecu23/maze-server/pkg/validation"
)

// handleInbound routes one decoded client message.
func (c *Connection) handleInbound(msg messages.InboundMessage) {
	switch msg.Type {
	case messages.TypeSelectGameMode:
		var payload messages.SelectGameModePayload
		if !c.decode(msg, &payload) {
			return
		}
		c.selectGameMode(payload)

	case messages.TypeMovement:
		var payload messages.MovementPayload
		if !c.decode(msg, &payload) || c.session == nil {
			return
		}
		res := c.session.Move(payload.Direction())
		if res.Moved || res.LevelFinished {
			c.afterChange(res.LevelFinished)
		}

	case messages.TypeCheckpoint:
		var payload messages.CheckpointPayload
		if !c.decode(msg, &payload) || c.session == nil {
			return
		}
		levelFinished := false
		for _, action := range payload.Actions() {
			if c.session.UseAbility(action).LevelFinished {
				levelFinished = true
			}
		}
		c.afterChange(levelFinished)

	case messages.TypeShopPurchase:
		var payload messages.ShopPurchasePayload
		if !c.decode(msg, &payload) || c.session == nil {
			return
		}
		if err := c.session.Purchase(payload.ItemID); err != nil {
			c.logger.Debug("purchase refused", zap.String("item", payload.ItemID), zap.Error(err))
			if !errors.Is(err, game.ErrShopClosed) {
				c.broadcaster.Error(c, err.Error())
			}
			return
		}
		c.afterChange(false)

	case messages.TypePlayerReadyToContinueShop, messages.TypeValidateShop:
		if c.session == nil {
			return
		}
		if c.session.CloseShop() {
			c.afterChange(false)
		}

	case messages.TypeSaveSoloResults:
		var payload messages.SaveSoloResultsPayload
		if len(msg.Payload) > 0 && !c.decode(msg, &payload) {
			return
		}
		c.saveResults(payload)

	case messages.TypeGetSoloLeaderboard:
		c.queryLeaderboard()

	case messages.TypeGetSoloBestSplits:
		c.queryBestSplits()

	default:
		c.logger.Debug("unknown message type", zap.String("type", msg.Type))
		c.broadcaster.Error(c, "Unknown message type")
	}
}

func (c *Connection) decode(msg messages.InboundMessage, v interface{}) bool {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		c.logger.Debug("invalid payload", zap.String("type", msg.Type), zap.Error(err))
		c.broadcaster.Error(c, "Invalid "+msg.Type+" payload")
		return false
	}
	return true
}

func (c *Connection) selectGameMode(payload messages.SelectGameModePayload) {
	if payload.Mode != game.ModeSolo {
		c.logger.Debug("unsupported mode", zap.String("mode", payload.Mode))
		c.broadcaster.Error(c, game.ErrUnknownMode.Error()+": "+payload.Mode)
		return
	}

	settings := c.svc.Settings
	custom := payload.CustomConfig != nil
	if custom {
		settings = payload.CustomConfig.Apply(settings)
	}

	session, err := c.svc.Manager.CreateSession(game.CreateSessionParams{
		PlayerID:     c.PlayerID,
		ConnectionID: c.ID,
		Skin:         skin.Normalize(payload.PlayerSkin).String(),
		Settings:     settings,
		Custom:       custom,
	}, c.newRand())
	if err != nil {
		c.logger.Debug("session refused", zap.Error(err))
		c.broadcaster.Error(c, err.Error())
		return
	}

	c.session = session
	c.finishedSent = false
	c.saveInFlight = false
	c.savedRunID = uuid.Nil
	c.pushState()
}

func (c *Connection) newRand() *rand.Rand {
	if c.svc.NewRand != nil {
		return c.svc.NewRand()
	}
	return nil
}

// tick resolves expired phases and keeps the client's timers fresh.
func (c *Connection) tick() {
	if c.session == nil {
		return
	}
	changed := c.session.Tick()
	if changed || !c.session.Finished() {
		c.pushState()
	}
}

// afterChange pushes the new state after a mutating event.
func (c *Connection) afterChange(levelFinished bool) {
	if levelFinished {
		c.svc.Publisher.Publish(events.Event{
			Type:      events.EventLevelFinished,
			SessionID: c.session.ID.String(),
		})
	}
	c.pushState()
}

func (c *Connection) pushState() {
	c.broadcaster.State(c, c.session.Snapshot())
	c.maybeSendFinished()
}

// maybeSendFinished sends gameFinished once per session, and only for a
// run whose own splits pass validation.
func (c *Connection) maybeSendFinished() {
	if c.finishedSent || !c.session.Finished() {
		return
	}
	c.finishedSent = true

	total, splits, err := c.session.Result()
	if err != nil {
		return
	}
	if err := validation.Validate(splits, c.session.Settings().MaxLevel, total); err != nil {
		c.logger.Warn("finished run failed validation",
			zap.String("session_id", c.session.ID.String()),
			zap.String("rule", string(validation.RuleOf(err))),
			zap.Error(err),
		)
		return
	}

	c.broadcaster.Send(c, messages.EventGameFinished, messages.GameFinishedPayload{
		TotalTime:  total,
		SplitTimes: splits,
	})
	c.svc.Publisher.Publish(events.Event{
		Type:      events.EventRunFinished,
		SessionID: c.session.ID.String(),
		Payload:   total,
	})
}

func (c *Connection) ackSave(saved bool, runID uuid.UUID, reason string) {
	payload := messages.SoloResultsSavedPayload{Saved: saved, Reason: reason}
	if runID != uuid.Nil {
		payload.RunID = runID.String()
	}
	c.broadcaster.Send(c, messages.EventSoloResultsSaved, payload)
}

// saveResults validates the finished run and persists it on the job pool.
// The session is never touched by the job itself; its outcome is applied
// back on the Serve goroutine, and dropped if the session is gone by then.
//
// Splits sent by the client are only checked against the server's total.
// The stored splits are always the server's own.
func (c *Connection) saveResults(payload messages.SaveSoloResultsPayload) {
	if c.savedRunID != uuid.Nil {
		c.ackSave(true, c.savedRunID, "")
		return
	}

	session := c.session
	switch {
	case session == nil || !session.Finished():
		c.ackSave(false, uuid.Nil, "run not finished")
		return
	case session.Custom:
		c.ackSave(false, uuid.Nil, "custom runs are not ranked")
		return
	case c.saveInFlight:
		return
	}

	total, serverSplits, err := session.Result()
	if err != nil {
		c.ackSave(false, uuid.Nil, "run not finished")
		return
	}

	maxLevel := session.Settings().MaxLevel
	if len(payload.SplitTimes) > 0 {
		if err := validation.Validate(payload.SplitTimes, maxLevel, total); err != nil {
			c.rejectRun(session, err)
			return
		}
	}
	if err := validation.Validate(serverSplits, maxLevel, total); err != nil {
		c.rejectRun(session, err)
		return
	}

	run := repository.Run{
		ID:         uuid.New(),
		PlayerID:   session.PlayerID(),
		PlayerSkin: session.Skin(),
		TotalTime:  total,
		SplitTimes: serverSplits,
		FinalLevel: maxLevel,
		CreatedAt:  c.svc.Clock.Now(),
	}

	c.saveInFlight = true
	err = c.svc.Jobs.Submit(jobs.Job{
		Name: "save_run",
		Run: func(ctx context.Context) error {
			return c.svc.Store.SaveRun(ctx, run)
		},
		Done: func(err error) {
			c.post(func() { c.applySave(session, run, err) })
		},
	})
	if err != nil {
		c.saveInFlight = false
		c.logger.Error("could not queue run save", zap.Error(err))
		c.ackSave(false, uuid.Nil, "could not save results")
	}
}

func (c *Connection) rejectRun(session *game.Session, err error) {
	rule := validation.RuleOf(err)
	c.logger.Warn("run rejected",
		zap.String("session_id", session.ID.String()),
		zap.String("rule", string(rule)),
		zap.Error(err),
	)
	c.svc.Publisher.Publish(events.Event{
		Type:      events.EventRunRejected,
		SessionID: session.ID.String(),
		Payload:   string(rule),
	})
	c.ackSave(false, uuid.Nil, "validation failed: "+string(rule))
}

func (c *Connection) applySave(session *game.Session, run repository.Run, err error) {
	if c.session != session || session.Terminated() {
		c.logger.Debug("discarding save result for a stale session",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
		return
	}
	c.saveInFlight = false

	if err != nil {
		c.logger.Error("saving run failed",
			zap.String("session_id", session.ID.String()),
			zap.Error(err),
		)
		c.ackSave(false, uuid.Nil, "could not save results")
		return
	}

	session.MarkSaved()
	c.savedRunID = run.ID
	c.logger.Info("run saved",
		zap.String("run_id", run.ID.String()),
		zap.Float64("total_time", run.TotalTime),
	)
	c.svc.Publisher.Publish(events.Event{
		Type:      events.EventRunSaved,
		SessionID: session.ID.String(),
		Payload:   run.ID.String(),
	})
	c.ackSave(true, run.ID, "")

	// A saved run is over; the session is destroyed and only its run id is
	// kept to answer repeated saves.
	c.session = nil
	c.svc.Manager.RemoveSession(session.ID)
}

func (c *Connection) queryLeaderboard() {
	limit := c.svc.LeaderboardSize
	var runs []repository.Run
	c.submitQuery("top_runs",
		func(ctx context.Context) (err error) {
			runs, err = c.svc.Store.TopRuns(ctx, limit)
			return err
		},
		func() {
			c.broadcaster.Send(c, messages.EventSoloLeaderboard, messages.NewLeaderboard(runs))
		},
	)
}

func (c *Connection) queryBestSplits() {
	var best []repository.BestSplit
	c.submitQuery("best_splits",
		func(ctx context.Context) (err error) {
			best, err = c.svc.Store.BestSplits(ctx)
			return err
		},
		func() {
			c.broadcaster.Send(c, messages.EventSoloBestSplits, messages.NewBestSplits(best))
		},
	)
}

// submitQuery runs a read on the job pool and replies from the Serve
// goroutine. Replies for a closed connection are dropped.
func (c *Connection) submitQuery(name string, run func(ctx context.Context) error, reply func()) {
	err := c.svc.Jobs.Submit(jobs.Job{
		Name: name,
		Run:  run,
		Done: func(err error) {
			c.post(func() {
				if err != nil {
					c.logger.Error("query failed", zap.String("query", name), zap.Error(err))
					c.broadcaster.Error(c, "could not load "+name)
					return
				}
				reply()
			})
		},
	})
	if err != nil {
		c.logger.Error("could not queue query", zap.String("query", name), zap.Error(err))
		c.broadcaster.Error(c, "could not load "+name)
	}
}
