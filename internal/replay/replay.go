// Package replay records games as append-only action logs and serves them
// back for observer playback.
package replay

import (
	"context"
	"time"

	"github.com/railforge/railforge/internal/protocol"
)

// TimeFormat is the wire representation of replay timestamps.
const TimeFormat = "Jan 02 2006 03:04:05.000000"

// GameRecord describes one recorded game. Length counts the TURN actions in
// its log, which equals the number of ticks the replay covers.
type GameRecord struct {
	Idx        int64  `json:"idx"`
	Name       string `json:"name"`
	Date       string `json:"date"`
	Map        string `json:"map"`
	Length     int    `json:"length"`
	NumPlayers int    `json:"num_players"`
}

// ActionRecord is one logged client action.
type ActionRecord struct {
	Code    protocol.Action `json:"code"`
	Message string          `json:"message"`
	Date    string          `json:"date"`
}

// Log is an append-only game action log.
//
// AddAction may buffer; Flush forces buffered actions out. A game must be
// flushed before its record is complete enough to observe.
type Log interface {
	AddGame(ctx context.Context, name, mapName string, numPlayers int) (int64, error)
	AddAction(ctx context.Context, gameID int64, code protocol.Action, message string) error
	Games(ctx context.Context) ([]GameRecord, error)
	Actions(ctx context.Context, gameID int64) ([]ActionRecord, error)
	Flush(ctx context.Context) error
	Close()
}

func formatTime(t time.Time) string {
	return t.Format(TimeFormat)
}
