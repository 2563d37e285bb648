package store

import "time"

// ResumeFrame is a saved turn position pushed when a tangent is entered.
type ResumeFrame struct {
	Topic       string    `json:"topic"`
	Depth       int       `json:"depth"`
	TriggerSeq  int       `json:"trigger_seq"`
	TargetIndex int       `json:"target_index"`
	Phase       string    `json:"phase"`
	StartSeq    int       `json:"start_seq"`
	Chunks      []string  `json:"chunks"`
	ChunkIndex  int       `json:"chunk_index"`
	EnteredAt   time.Time `json:"entered_at"`
}

// TangentProposal is a detected tangent awaiting the user's accept/decline.
type TangentProposal struct {
	Topic string `json:"topic"`
	Depth int    `json:"depth"`
}

// SessionSnapshot is the connection-bound state of a live session kept in memory
// between a disconnect and a reconnect. It is never written to the database.
type SessionSnapshot struct {
	SessionID string `json:"session_id"`

	// Turn position
	TargetIndex int    `json:"target_index"`
	Phase       string `json:"phase"`
	StartSeq    int    `json:"start_seq"`

	// Streaming buffer of the last assistant turn
	Chunks         []string `json:"chunks"`
	ChunkIndex     int      `json:"chunk_index"`
	StreamComplete bool     `json:"stream_complete"`

	// Tangent state
	Stack    []ResumeFrame    `json:"stack"`
	Proposal *TangentProposal `json:"proposal,omitempty"`

	SavedAt time.Time `json:"saved_at"`
}
