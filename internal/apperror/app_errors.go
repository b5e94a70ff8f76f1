package apperror

import "errors"

var (
	ErrGameFinished   = errors.New("game is already finished")
	ErrNotYourTurn    = errors.New("it's not your turn")
	ErrCellOccupied   = errors.New("cell is already occupied")
	ErrInvalidCell    = errors.New("invalid cell index")
	ErrNotAdmin       = errors.New("action requires room admin")
	ErrNotParticipant = errors.New("identity is not in the room")
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomClosed     = errors.New("room is closed")
	ErrUnknownCheat   = errors.New("unknown cheat action")
)

// IsRejection reports whether err is one of the guarded no-op conditions:
// an unauthorized action, an illegal transition, or a target that no longer
// exists. The transport drops these without a broadcast or an error reply.
func IsRejection(err error) bool {
	for _, rejection := range []error{
		ErrGameFinished,
		ErrNotYourTurn,
		ErrCellOccupied,
		ErrInvalidCell,
		ErrNotAdmin,
		ErrNotParticipant,
		ErrRoomNotFound,
		ErrRoomClosed,
		ErrUnknownCheat,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}

	return false
}
