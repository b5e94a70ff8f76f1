package entity

// Participant is one user joined to a room. ConnID holds the most recent
// transport connection for the identity; it churns on reconnect while the
// identity, mark and score stay put.
type Participant struct {
	ID     string `json:"id"`
	Mark   string `json:"mark,omitempty"`
	ConnID string `json:"-"`
}

// IsPlayer reports whether the participant holds an active mark rather than
// spectating.
func (that *Participant) IsPlayer() bool {
	return that.Mark == MarkX || that.Mark == MarkO
}
