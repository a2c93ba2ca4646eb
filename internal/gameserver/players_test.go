package gameserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railforge/railforge/internal/game"
)

func TestPlayerRegistry_FirstLoginBindsKey(t *testing.T) {
	r := NewPlayerRegistry()

	alice, err := r.Resolve("alice", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, alice.Idx)

	again, err := r.Resolve("alice", "s3cret")
	require.NoError(t, err)
	assert.Same(t, alice, again)

	_, err = r.Resolve("alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, game.KindAccessDenied, game.KindOf(err))

	_, err = r.Resolve("alice", "")
	require.Error(t, err, "omitting a bound key is a mismatch")
}

func TestPlayerRegistry_KeylessName(t *testing.T) {
	r := NewPlayerRegistry()

	bob, err := r.Resolve("bob", "")
	require.NoError(t, err)

	again, err := r.Resolve("bob", "")
	require.NoError(t, err)
	assert.Same(t, bob, again)

	_, err = r.Resolve("bob", "late-key")
	require.Error(t, err, "a key cannot be attached after the fact")
	assert.Equal(t, game.KindAccessDenied, game.KindOf(err))
}

func TestPlayerRegistry_DistinctNames(t *testing.T) {
	r := NewPlayerRegistry()

	alice, err := r.Resolve("alice", "")
	require.NoError(t, err)
	bob, err := r.Resolve("bob", "")
	require.NoError(t, err)

	assert.NotEqual(t, alice.Idx, bob.Idx)
	assert.Equal(t, 2, r.Len())
}
