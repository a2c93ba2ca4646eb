package game

import (
	"github.com/railforge/railforge/internal/model"
)

// trainAtPoint resolves the point a train currently stands at, if any.
func (g *Game) trainAtPoint(train *model.Train) (int, bool) {
	line := g.world.Lines[train.LineIdx]
	return line.EndpointAt(train.Position)
}

// trainAtPost resolves the post a train currently stands at, if any.
func (g *Game) trainAtPost(train *model.Train) (*model.Post, bool) {
	pointIdx, ok := g.trainAtPoint(train)
	if !ok {
		return nil, false
	}
	return g.world.PostAtPoint(pointIdx)
}

// handleCollisions finds colliding train pairs and sends both members of
// each pair home.
func (g *Game) handleCollisions(tick int) {
	if !g.rules.CollisionsEnabled {
		return
	}

	trains := g.orderedTrains()
	var pairs [][2]*model.Train
	for i, first := range trains {
		firstPoint, firstAtPoint := g.trainAtPoint(first)
		for _, second := range trains[i+1:] {
			secondPoint, secondAtPoint := g.trainAtPoint(second)

			if firstAtPoint && secondAtPoint && firstPoint == secondPoint {
				// Meeting inside a town is safe; anywhere else is a crash.
				if post, ok := g.world.PostAtPoint(firstPoint); ok && post.Type == model.PostTown {
					continue
				}
				pairs = append(pairs, [2]*model.Train{first, second})
				continue
			}

			if first.LineIdx != second.LineIdx {
				continue
			}
			if first.Position == second.Position {
				pairs = append(pairs, [2]*model.Train{first, second})
				continue
			}
			if first.Speed == 0 || second.Speed == 0 {
				continue
			}
			dist := first.Position - second.Position
			if dist < 0 {
				dist = -dist
			}
			// Adjacent and moving toward each other means they swap cells
			// next tick, passing through one another.
			if dist == 1 && sign(first.Speed)+sign(second.Speed) == 0 {
				pairs = append(pairs, [2]*model.Train{first, second})
			}
		}
	}

	for _, pair := range pairs {
		g.collide(pair[0], pair[1], tick)
	}
}

func (g *Game) collide(first, second *model.Train, tick int) {
	g.log.Info("trains collision", "train_1", first.Idx, "train_2", second.Idx)
	g.putTrainHome(first, true, true)
	g.putTrainHome(second, true, true)
	first.AddEvent(model.CollisionEvent(tick, second.Idx))
	second.AddEvent(model.CollisionEvent(tick, first.Idx))
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
