package room

import "github.com/playsquare/gameroom-backend/internal/entity"

// Snapshot is the room-wide view broadcast after every applied transition.
// It is built from fully-mutated state under the room lock and copied out,
// so later transitions never show through a snapshot already handed to the
// transport.
type Snapshot struct {
	Board        entity.Board      `json:"board"`
	Turn         string            `json:"turn,omitempty"`
	Winner       string            `json:"winner,omitempty"`
	WinLine      []int             `json:"win_line,omitempty"`
	Participants []ParticipantView `json:"participants"`
	Scores       map[string]int    `json:"scores"`
	Draws        int               `json:"draws"`
}

// ParticipantView is the public slice of a participant: identity and mark,
// no connection detail.
type ParticipantView struct {
	ID   string `json:"id"`
	Mark string `json:"mark,omitempty"`
}

// Assignment is the private view of one participant's seat, sent only to
// that participant's connection.
type Assignment struct {
	ID      string `json:"id"`
	Mark    string `json:"mark,omitempty"`
	IsAdmin bool   `json:"is_admin"`
	ConnID  string `json:"-"`
}

type JoinResult struct {
	Assignment Assignment
	State      *Snapshot
}

type ResetResult struct {
	State       *Snapshot
	Assignments []Assignment
}

type LeaveResult struct {
	State       *Snapshot // nil when the room was destroyed
	Assignments []Assignment
	Destroyed   bool
}

// snapshot projects the current state. Callers must hold the room lock.
func (that *Room) snapshot() *Snapshot {
	views := make([]ParticipantView, 0, len(that.joinOrder))
	for _, id := range that.joinOrder {
		participant := that.participants[id]
		views = append(views, ParticipantView{ID: participant.ID, Mark: participant.Mark})
	}

	scores := make(map[string]int, len(that.scores))
	for id, wins := range that.scores {
		scores[id] = wins
	}

	var line []int
	if that.winLine != nil {
		line = append([]int(nil), that.winLine...)
	}

	return &Snapshot{
		Board:        that.board,
		Turn:         that.turn,
		Winner:       that.winner,
		WinLine:      line,
		Participants: views,
		Scores:       scores,
		Draws:        that.draws,
	}
}

// assignments builds the per-participant seat views in join order. Callers
// must hold the room lock.
func (that *Room) assignments() []Assignment {
	out := make([]Assignment, 0, len(that.joinOrder))
	for _, id := range that.joinOrder {
		participant := that.participants[id]
		out = append(out, Assignment{
			ID:      participant.ID,
			Mark:    participant.Mark,
			IsAdmin: that.adminID == participant.ID,
			ConnID:  participant.ConnID,
		})
	}
	return out
}
