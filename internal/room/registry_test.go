package room

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playsquare/gameroom-backend/internal/apperror"
	"github.com/playsquare/gameroom-backend/internal/entity"
)

func testRegistry() *Registry {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRegistryWithPicker(logger, pickFirst)
}

func TestRegistry_Join(t *testing.T) {
	t.Run("Creates a room lazily on first join", func(t *testing.T) {
		// Given: an empty registry
		registry := testRegistry()

		// When: an identity joins an unseen room
		result, err := registry.Join("room-1", "alice", "conn-1")
		require.NoError(t, err)

		// Then: the room exists with a fresh board and alice as admin X
		assert.Equal(t, entity.MarkX, result.Assignment.Mark)
		assert.True(t, result.Assignment.IsAdmin)
		assert.Len(t, registry.rooms, 1)
	})

	t.Run("Joins to the same room share state", func(t *testing.T) {
		// Given: a registry with one occupied room
		registry := testRegistry()
		_, err := registry.Join("room-1", "alice", "conn-1")
		require.NoError(t, err)

		// When: a second identity joins the same room ID
		result, err := registry.Join("room-1", "bob", "conn-2")
		require.NoError(t, err)

		// Then: both participants live in one room
		assert.Len(t, result.State.Participants, 2)
		assert.Len(t, registry.rooms, 1)
	})

	t.Run("Distinct rooms are independent", func(t *testing.T) {
		// Given: two rooms with a game going in the first
		registry := testRegistry()
		_, err := registry.Join("room-1", "alice", "conn-1")
		require.NoError(t, err)
		_, err = registry.Join("room-1", "bob", "conn-2")
		require.NoError(t, err)
		_, err = registry.Move("room-1", "alice", 0)
		require.NoError(t, err)

		// When: an identity joins a second room
		result, err := registry.Join("room-2", "carol", "conn-3")
		require.NoError(t, err)

		// Then: the second room starts from an empty board
		assert.Equal(t, entity.Board{}, result.State.Board)
		assert.Len(t, registry.rooms, 2)
	})
}

func TestRegistry_Operations(t *testing.T) {
	t.Run("Operations on an unknown room are rejected", func(t *testing.T) {
		// Given: an empty registry
		registry := testRegistry()

		// When/Then: every operation misses
		_, err := registry.Move("ghost", "alice", 0)
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
		_, err = registry.Reset("ghost", "alice")
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
		_, err = registry.Cheat("ghost", "alice", CheatForceDraw, "")
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
		_, err = registry.Leave("ghost", "alice")
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRegistry_Teardown(t *testing.T) {
	t.Run("Last leave removes the registry entry", func(t *testing.T) {
		// Given: a room with one participant
		registry := testRegistry()
		_, err := registry.Join("room-1", "alice", "conn-1")
		require.NoError(t, err)

		// When: the participant leaves
		result, err := registry.Leave("room-1", "alice")
		require.NoError(t, err)

		// Then: the room and all its state are gone
		assert.True(t, result.Destroyed)
		assert.Empty(t, registry.rooms)
	})

	t.Run("Rejoining a destroyed room starts from scratch", func(t *testing.T) {
		// Given: a room torn down after a scored game
		registry := testRegistry()
		_, err := registry.Join("room-1", "alice", "conn-1")
		require.NoError(t, err)
		_, err = registry.Cheat("room-1", "alice", CheatForceWin, entity.MarkX)
		require.NoError(t, err)
		_, err = registry.Leave("room-1", "alice")
		require.NoError(t, err)

		// When: the same identity joins the same room ID again
		result, err := registry.Join("room-1", "alice", "conn-2")
		require.NoError(t, err)

		// Then: no memory of the old scores or outcome remains
		assert.Equal(t, map[string]int{"alice": 0}, result.State.Scores)
		assert.Empty(t, result.State.Winner)
		assert.Equal(t, entity.Board{}, result.State.Board)
	})

	t.Run("An operation racing the destroy is refused", func(t *testing.T) {
		// Given: a room fetched before its last participant left
		registry := testRegistry()
		_, err := registry.Join("room-1", "alice", "conn-1")
		require.NoError(t, err)

		stale, err := registry.get("room-1")
		require.NoError(t, err)

		result, err := registry.Leave("room-1", "alice")
		require.NoError(t, err)
		require.True(t, result.Destroyed)

		// When: the stale pointer is used after the destroy
		_, err = stale.Cheat("alice", CheatForceDraw, "")

		// Then: the operation is refused instead of mutating a dead room
		assert.ErrorIs(t, err, apperror.ErrRoomClosed)
		_, err = stale.Reset("alice")
		assert.ErrorIs(t, err, apperror.ErrRoomClosed)
	})

	t.Run("A join racing the destroy lands in a fresh room", func(t *testing.T) {
		// Given: a room closed by its last leave but not yet removed
		registry := testRegistry()
		_, err := registry.Join("room-1", "alice", "conn-1")
		require.NoError(t, err)

		closed := registry.rooms["room-1"]
		result, err := closed.Leave("alice")
		require.NoError(t, err)
		require.True(t, result.Destroyed)

		// When: a late join arrives before the registry removal
		joined, err := registry.Join("room-1", "bob", "conn-2")
		require.NoError(t, err)

		// Then: it gets a fresh room, not the closed one
		assert.NotSame(t, closed, registry.rooms["room-1"])
		assert.True(t, joined.Assignment.IsAdmin)

		// And: the stale removal leaves the fresh room alone
		registry.remove("room-1", closed)
		assert.Contains(t, registry.rooms, "room-1")
	})
}

func TestRegistry_ConcurrentJoins(t *testing.T) {
	t.Run("Concurrent first joins keep the seat invariants", func(t *testing.T) {
		// Given: five identities joining one room at once
		registry := testRegistry()
		ids := []string{"p1", "p2", "p3", "p4", "p5"}

		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func(identity string) {
				defer wg.Done()
				_, err := registry.Join("room-1", identity, "conn-"+identity)
				assert.NoError(t, err)
			}(id)
		}
		wg.Wait()

		// When: inspecting the settled room
		existing, err := registry.get("room-1")
		require.NoError(t, err)
		state := func() *Snapshot {
			existing.mu.Lock()
			defer existing.mu.Unlock()
			return existing.snapshot()
		}()

		// Then: exactly one X, one O, the rest spectate, and the admin joined first
		marks := map[string]int{}
		for _, view := range state.Participants {
			marks[view.Mark]++
		}
		assert.Equal(t, 1, marks[entity.MarkX])
		assert.Equal(t, 1, marks[entity.MarkO])
		assert.Equal(t, 3, marks[entity.EmptyCell])
		assert.Equal(t, state.Participants[0].ID, existing.adminID)
	})
}
