package room

import (
	"sync"

	"github.com/playsquare/gameroom-backend/internal/apperror"
	"github.com/playsquare/gameroom-backend/internal/entity"
)

// Cheat actions available to the room admin.
const (
	CheatForceWin    = "force_win"
	CheatForceDraw   = "force_draw"
	CheatClearScores = "clear_scores"
	CheatSkipTurn    = "skip_turn"
	CheatClearBoard  = "clear_board"
	CheatFillRandom  = "fill_random"
)

// Room owns the authoritative state of one game session. Every operation
// locks the room for its full validate-mutate-project cycle, so concurrent
// events against the same room apply one at a time; distinct rooms never
// share a lock.
type Room struct {
	id       string
	pickCell func(n int) int

	mu     sync.Mutex
	closed bool

	board   entity.Board
	turn    string
	winner  string // empty while in progress, MarkX/MarkO, or ResultTie
	winLine []int  // set only for a line win

	participants map[string]*entity.Participant
	joinOrder    []string
	adminID      string

	scores map[string]int // wins per identity, entries survive a leave
	draws  int
}

func newRoom(id string, pickCell func(n int) int) *Room {
	return &Room{
		id:           id,
		pickCell:     pickCell,
		turn:         entity.MarkX,
		participants: make(map[string]*entity.Participant),
		scores:       make(map[string]int),
	}
}

// Join adds identity to the room or, when the identity is already known,
// records its new connection. First joiner takes X and becomes admin, the
// second takes O, everyone after that spectates. Returns ErrRoomClosed when
// the room was destroyed by a concurrent last-leave; the registry retries
// against a fresh room.
func (that *Room) Join(identity, connID string) (*JoinResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, apperror.ErrRoomClosed
	}

	participant, ok := that.participants[identity]
	if ok {
		participant.ConnID = connID
	} else {
		participant = &entity.Participant{ID: identity, Mark: that.freeMark(), ConnID: connID}
		that.participants[identity] = participant
		that.joinOrder = append(that.joinOrder, identity)

		if that.adminID == "" {
			that.adminID = identity
		}

		if _, ok = that.scores[identity]; !ok {
			that.scores[identity] = 0
		}
	}

	return &JoinResult{
		Assignment: Assignment{
			ID:      identity,
			Mark:    participant.Mark,
			IsAdmin: that.adminID == identity,
			ConnID:  connID,
		},
		State: that.snapshot(),
	}, nil
}

// Move places the mover's mark on cell. Rejected unless the mover holds an
// active mark, the game is in progress, the cell is free and it is the
// mover's turn.
func (that *Room) Move(identity string, cell int) (*Snapshot, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, apperror.ErrRoomClosed
	}

	participant, ok := that.participants[identity]
	if !ok || !participant.IsPlayer() {
		return nil, apperror.ErrNotParticipant
	}

	if that.winner != "" {
		return nil, apperror.ErrGameFinished
	}

	if cell < 0 || cell >= len(that.board) {
		return nil, apperror.ErrInvalidCell
	}

	if that.board[cell] != entity.EmptyCell {
		return nil, apperror.ErrCellOccupied
	}

	if that.turn != participant.Mark {
		return nil, apperror.ErrNotYourTurn
	}

	that.board[cell] = participant.Mark
	that.settle(participant.Mark)

	return that.snapshot(), nil
}

// Reset clears the board for a new game. Admin only. After a decisive win
// with both seats taken the winner keeps X and the loser takes O; a draw or
// a short-handed room keeps its seats.
func (that *Room) Reset(identity string) (*ResetResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, apperror.ErrRoomClosed
	}

	if that.adminID == "" || identity != that.adminID {
		return nil, apperror.ErrNotAdmin
	}

	that.rotateRoles()
	that.clearBoard()

	return &ResetResult{State: that.snapshot(), Assignments: that.assignments()}, nil
}

// Leave removes identity from the room. An admin leaving hands the role to
// the first remaining participant in join order. Removing the last
// participant closes the room; the registry then drops it, scoreboard
// included.
func (that *Room) Leave(identity string) (*LeaveResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, apperror.ErrRoomClosed
	}

	if _, ok := that.participants[identity]; !ok {
		return nil, apperror.ErrNotParticipant
	}

	delete(that.participants, identity)
	for i, id := range that.joinOrder {
		if id == identity {
			that.joinOrder = append(that.joinOrder[:i], that.joinOrder[i+1:]...)
			break
		}
	}

	if len(that.participants) == 0 {
		// closed under the same lock that emptied the room, so a racing
		// Join cannot resurrect state the registry is about to drop
		that.closed = true
		that.adminID = ""
		return &LeaveResult{Destroyed: true}, nil
	}

	if that.adminID == identity {
		that.adminID = that.joinOrder[0]
	}

	return &LeaveResult{State: that.snapshot(), Assignments: that.assignments()}, nil
}

// Cheat applies an admin-only override outside the normal move rules.
func (that *Room) Cheat(identity, action, mark string) (*Snapshot, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return nil, apperror.ErrRoomClosed
	}

	if that.adminID == "" || identity != that.adminID {
		return nil, apperror.ErrNotAdmin
	}

	switch action {
	case CheatForceWin:
		if mark != entity.MarkX && mark != entity.MarkO {
			return nil, apperror.ErrUnknownCheat
		}
		that.winner = mark
		that.winLine = nil
		that.turn = ""
		if holder := that.playerByMark(mark); holder != nil {
			that.scores[holder.ID]++
		}

	case CheatForceDraw:
		that.winner = entity.ResultTie
		that.winLine = nil
		that.turn = ""
		that.draws++

	case CheatClearScores:
		for id := range that.scores {
			that.scores[id] = 0
		}
		that.draws = 0

	case CheatSkipTurn:
		if that.winner != "" {
			return nil, apperror.ErrGameFinished
		}
		that.turn = entity.ToggleMark(that.turn)

	case CheatClearBoard:
		that.clearBoard()

	case CheatFillRandom:
		if that.winner != "" {
			return nil, apperror.ErrGameFinished
		}
		empty := that.board.EmptyCells()
		if len(empty) == 0 {
			return nil, apperror.ErrInvalidCell
		}
		mover := that.turn
		that.board[empty[that.pickCell(len(empty))]] = mover
		that.settle(mover)

	default:
		return nil, apperror.ErrUnknownCheat
	}

	return that.snapshot(), nil
}

// DropConnection clears the stored connection for identity when connID is
// still the current one. The participant keeps its seat, admin role and
// score: a transport disconnect is not a leave.
func (that *Room) DropConnection(identity, connID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if participant, ok := that.participants[identity]; ok && participant.ConnID == connID {
		participant.ConnID = ""
	}
}

func (that *Room) isClosed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.closed
}

// settle evaluates the board after mark was placed and applies the result.
func (that *Room) settle(mark string) {
	switch result, line := that.board.Evaluate(); result {
	case entity.MarkX, entity.MarkO:
		that.winner = result
		that.winLine = line
		that.turn = ""
		if holder := that.playerByMark(result); holder != nil {
			that.scores[holder.ID]++
		}
	case entity.ResultTie:
		that.winner = entity.ResultTie
		that.turn = ""
		that.draws++
	default:
		that.turn = entity.ToggleMark(mark)
	}
}

// rotateRoles applies "winner stays X" after a decisive win; anything else
// leaves the seats alone.
func (that *Room) rotateRoles() {
	if that.winner != entity.MarkX && that.winner != entity.MarkO {
		return
	}

	winner := that.playerByMark(that.winner)
	loser := that.playerByMark(entity.ToggleMark(that.winner))
	if winner == nil || loser == nil {
		return
	}

	winner.Mark = entity.MarkX
	loser.Mark = entity.MarkO
}

func (that *Room) clearBoard() {
	that.board = entity.Board{}
	that.turn = entity.MarkX
	that.winner = ""
	that.winLine = nil
}

// freeMark returns the first unclaimed player mark, or the empty spectator
// mark when both seats are taken.
func (that *Room) freeMark() string {
	taken := make(map[string]bool, len(that.participants))
	for _, participant := range that.participants {
		taken[participant.Mark] = true
	}

	switch {
	case !taken[entity.MarkX]:
		return entity.MarkX
	case !taken[entity.MarkO]:
		return entity.MarkO
	default:
		return entity.EmptyCell
	}
}

func (that *Room) playerByMark(mark string) *entity.Participant {
	for _, id := range that.joinOrder {
		if participant := that.participants[id]; participant.Mark == mark {
			return participant
		}
	}
	return nil
}
