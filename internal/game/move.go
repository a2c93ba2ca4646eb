package game

import (
	"context"
	"encoding/json"

	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/protocol"
)

// MoveTrain processes a MOVE command. playerID is empty for observed games,
// which skips the ownership check. An accepted move replaces any move that
// was queued for the train earlier.
func (g *Game) MoveTrain(playerID string, trainIdx, speed, lineIdx int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	train, ok := g.trains[trainIdx]
	if !ok {
		return errNotFound("train index not found, index: %d", trainIdx)
	}
	lineTo, ok := g.world.Lines[lineIdx]
	if !ok {
		return errNotFound("line index not found, index: %d", lineIdx)
	}
	if !g.observed && train.PlayerID != playerID {
		return errAccessDenied("train's owner mismatch")
	}
	if train.Cooldown > 0 {
		return errBadCommand("the train is under cooldown, cooldown: %d", train.Cooldown)
	}

	lineFrom := g.world.Lines[train.LineIdx]
	switch {
	// Stop, reverse or resume on the current line.
	case speed == 0 || train.LineIdx == lineIdx:
		train.Speed = speed
		delete(g.nextMoves, trainIdx)

	// Standing at an endpoint: re-anchor onto the new line right away.
	case train.Speed == 0:
		var from int
		switch train.Position {
		case lineFrom.Length:
			from = lineFrom.Points[1]
		case 0:
			from = lineFrom.Points[0]
		default:
			return errBadCommand(
				"the train is standing on the line between its points, " +
					"player has to continue run the train")
		}
		if !lineTo.Touches(from) {
			return errBadCommand(
				"the train's line is not connected to the next line, "+
					"train's line: %d, next line: %d", lineFrom.Idx, lineTo.Idx)
		}
		train.LineIdx = lineIdx
		train.Speed = speed
		if from == lineTo.Points[0] {
			train.Position = 0
		} else {
			train.Position = lineTo.Length
		}
		delete(g.nextMoves, trainIdx)

	// Moving toward an endpoint shared with the target line: queue the
	// switch for arrival.
	default:
		var possible bool
		switch {
		case train.Speed > 0 && speed > 0:
			possible = lineFrom.Points[1] == lineTo.Points[0]
		case train.Speed > 0 && speed < 0:
			possible = lineFrom.Points[1] == lineTo.Points[1]
		case train.Speed < 0 && speed > 0:
			possible = lineFrom.Points[0] == lineTo.Points[0]
		case train.Speed < 0 && speed < 0:
			possible = lineFrom.Points[0] == lineTo.Points[1]
		}
		if !possible {
			return errBadCommand(
				"the train is not able to switch the current line to the next line, "+
					"or new speed is incorrect, train's line: %d, next line: %d, "+
					"train's speed: %d, new speed: %d",
				lineFrom.Idx, lineTo.Idx, train.Speed, speed)
		}
		g.nextMoves[trainIdx] = deferredMove{speed: speed, lineIdx: lineIdx}
	}

	g.recordMove(trainIdx, speed, lineIdx)
	return nil
}

func (g *Game) recordMove(trainIdx, speed, lineIdx int) {
	if g.replay == nil {
		return
	}
	data, _ := json.Marshal(map[string]int{
		"train_idx": trainIdx, "speed": speed, "line_idx": lineIdx,
	})
	g.record(context.Background(), protocol.ActionMove, string(data))
}

// applyDeferredMove runs when a train reaches a point. Without a queued move
// the train simply stops there; with one, it is carried onto the new line.
func (g *Game) applyDeferredMove(train *model.Train) {
	next, ok := g.nextMoves[train.Idx]
	if !ok {
		train.Speed = 0
		return
	}
	delete(g.nextMoves, train.Idx)

	if next.lineIdx == train.LineIdx {
		line := g.world.Lines[train.LineIdx]
		if (train.Speed > 0 && train.Position == line.Length) ||
			(train.Speed < 0 && train.Position == 0) {
			train.Speed = 0
		}
		return
	}

	train.Speed = next.speed
	train.LineIdx = next.lineIdx
	line := g.world.Lines[train.LineIdx]
	if train.Speed > 0 {
		train.Position = 0
	} else if train.Speed < 0 {
		train.Position = line.Length
	}
}
