package game

import (
	"context"
	"encoding/json"

	"github.com/railforge/railforge/internal/model"
	"github.com/railforge/railforge/internal/protocol"
)

// Upgrade levels up the given towns and trains in one atomic request paid
// from the player's town armor. Any failed check leaves every entity
// untouched.
func (g *Game) Upgrade(playerID string, postIDs, trainIDs []int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	player, ok := g.players[playerID]
	if !ok {
		return errAccessDenied("player is not part of this game")
	}

	posts := make([]*model.Post, 0, len(postIDs))
	for _, postID := range postIDs {
		post, found := g.world.Posts[postID]
		if !found {
			return errNotFound("post index not found, index: %d", postID)
		}
		if post.Type != model.PostTown {
			return errBadCommand("the post is not a town, post: %d", postID)
		}
		if !g.observed && post.PlayerID != playerID {
			return errAccessDenied("town's owner mismatch")
		}
		posts = append(posts, post)
	}

	trains := make([]*model.Train, 0, len(trainIDs))
	for _, trainID := range trainIDs {
		train, found := g.trains[trainID]
		if !found {
			return errNotFound("train index not found, index: %d", trainID)
		}
		if !g.observed && train.PlayerID != playerID {
			return errAccessDenied("train's owner mismatch")
		}
		trains = append(trains, train)
	}

	for _, post := range posts {
		if !g.rules.HasNextTownLevel(post.Level) {
			return errBadCommand("not all entities requested for upgrade have next levels")
		}
	}
	for _, train := range trains {
		if !g.rules.HasNextTrainLevel(train.Level) {
			return errBadCommand("not all entities requested for upgrade have next levels")
		}
	}

	cost := 0
	for _, post := range posts {
		cost += post.NextLevelPrice
	}
	for _, train := range trains {
		cost += train.NextLevelPrice
	}
	town := g.town(player)
	if town.Armor < cost {
		return errBadCommand(
			"not enough armor resource for upgrade, player's armor: %d, "+
				"armor needed to upgrade: %d", town.Armor, cost)
	}

	for _, train := range trains {
		post, atPost := g.trainAtPost(train)
		if !atPost || post.Idx != town.Idx {
			return errBadCommand("the train is not in town now, train: %d", train.Idx)
		}
	}

	for _, post := range posts {
		town.Armor -= post.NextLevelPrice
		post.Level++
		post.ApplyLevel(g.rules.TownLevels[post.Level])
		g.log.Info("post upgraded", "post", post.Idx, "level", post.Level)
	}
	for _, train := range trains {
		town.Armor -= train.NextLevelPrice
		train.Level++
		train.ApplyLevel(g.rules.TrainLevels[train.Level])
		g.log.Info("train upgraded", "train", train.Idx, "level", train.Level)
	}

	g.recordUpgrade(postIDs, trainIDs)
	return nil
}

func (g *Game) recordUpgrade(postIDs, trainIDs []int) {
	if g.replay == nil {
		return
	}
	if postIDs == nil {
		postIDs = []int{}
	}
	if trainIDs == nil {
		trainIDs = []int{}
	}
	data, _ := json.Marshal(map[string][]int{"post": postIDs, "train": trainIDs})
	g.record(context.Background(), protocol.ActionUpgrade, string(data))
}
