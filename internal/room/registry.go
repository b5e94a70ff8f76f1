package room

import (
	"errors"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/playsquare/gameroom-backend/internal/apperror"
)

// Registry owns every live room, keyed by the opaque room identifier that
// clients join with. Rooms are created lazily on first join and removed the
// moment their last participant leaves.
type Registry struct {
	logger   *slog.Logger
	pickCell func(n int) int

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRegistry(logger *slog.Logger) *Registry {
	return NewRegistryWithPicker(logger, rand.Intn)
}

// NewRegistryWithPicker injects the random-cell choice used by the
// fill-random override, so tests can supply a deterministic one.
func NewRegistryWithPicker(logger *slog.Logger, pickCell func(n int) int) *Registry {
	return &Registry{
		logger:   logger.With("component", "room-registry"),
		pickCell: pickCell,
		rooms:    make(map[string]*Room),
	}
}

// Join adds identity to roomID, creating the room when it does not exist
// yet. A room closed by a concurrent last-leave is retried, so a late join
// lands in a fresh room rather than a destroyed one.
func (that *Registry) Join(roomID, identity, connID string) (*JoinResult, error) {
	for {
		result, err := that.ensure(roomID).Join(identity, connID)
		if errors.Is(err, apperror.ErrRoomClosed) {
			continue
		}
		return result, err
	}
}

func (that *Registry) Move(roomID, identity string, cell int) (*Snapshot, error) {
	existing, err := that.get(roomID)
	if err != nil {
		return nil, err
	}

	return existing.Move(identity, cell)
}

func (that *Registry) Reset(roomID, identity string) (*ResetResult, error) {
	existing, err := that.get(roomID)
	if err != nil {
		return nil, err
	}

	return existing.Reset(identity)
}

func (that *Registry) Cheat(roomID, identity, action, mark string) (*Snapshot, error) {
	existing, err := that.get(roomID)
	if err != nil {
		return nil, err
	}

	return existing.Cheat(identity, action, mark)
}

// Leave removes identity from roomID and destroys the room when it empties.
func (that *Registry) Leave(roomID, identity string) (*LeaveResult, error) {
	existing, err := that.get(roomID)
	if err != nil {
		return nil, err
	}

	result, err := existing.Leave(identity)
	if err != nil {
		return nil, err
	}

	if result.Destroyed {
		that.remove(roomID, existing)
		that.logger.Debug("room destroyed", "roomID", roomID)
	}

	return result, nil
}

// DropConnection forwards a transport disconnect to the room, if it still
// exists. It never removes the participant.
func (that *Registry) DropConnection(roomID, identity, connID string) {
	existing, err := that.get(roomID)
	if err != nil {
		return
	}

	existing.DropConnection(identity, connID)
}

func (that *Registry) ensure(roomID string) *Room {
	that.mu.Lock()
	defer that.mu.Unlock()

	existing, ok := that.rooms[roomID]
	if ok && !existing.isClosed() {
		return existing
	}

	existing = newRoom(roomID, that.pickCell)
	that.rooms[roomID] = existing
	that.logger.Debug("room created", "roomID", roomID)

	return existing
}

func (that *Registry) get(roomID string) (*Room, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	existing, ok := that.rooms[roomID]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return existing, nil
}

// remove deletes roomID only while it still maps to the closed room; a
// fresh room created for the same ID in the meantime is left alone.
func (that *Registry) remove(roomID string, closed *Room) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.rooms[roomID]; ok && current == closed {
		delete(that.rooms, roomID)
	}
}
