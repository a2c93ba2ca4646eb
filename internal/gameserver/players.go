package gameserver

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/railforge/railforge/internal/game"
	"github.com/railforge/railforge/internal/model"
)

// PlayerRegistry maps player names to stable identities so a player keeps
// their uuid, town and trains across reconnects. The security key offered on
// first login is bound to the name; later logins must present the same key.
type PlayerRegistry struct {
	mu      sync.Mutex
	players map[string]*identity
}

type identity struct {
	player  *model.Player
	keyHash []byte // nil when the name was registered without a key
}

// NewPlayerRegistry returns an empty registry.
func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{players: make(map[string]*identity)}
}

// Resolve returns the player registered under name, creating the identity on
// first login.
func (r *PlayerRegistry) Resolve(name, securityKey string) (*model.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.players[name]
	if !ok {
		var hash []byte
		if securityKey != "" {
			var err error
			hash, err = bcrypt.GenerateFromPassword([]byte(securityKey), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hashing security key: %w", err)
			}
		}
		player := model.NewPlayer(uuid.NewString(), name)
		r.players[name] = &identity{player: player, keyHash: hash}
		return player, nil
	}

	if id.keyHash == nil {
		if securityKey != "" {
			return nil, &game.Error{Kind: game.KindAccessDenied, Msg: "security key mismatch"}
		}
		return id.player, nil
	}
	if bcrypt.CompareHashAndPassword(id.keyHash, []byte(securityKey)) != nil {
		return nil, &game.Error{Kind: game.KindAccessDenied, Msg: "security key mismatch"}
	}
	return id.player, nil
}

// Len reports the number of registered identities.
func (r *PlayerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}
