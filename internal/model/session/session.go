package session

import "time"

// Status tracks the session lifecycle. Transitions only move forward:
// created -> active -> complete, with complete terminal.
type Status string

const (
	StatusCreated  Status = "created"
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
)

var statusRank = map[Status]int{
	StatusCreated:  0,
	StatusActive:   1,
	StatusComplete: 2,
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only lifecycle. Staying in the same state is allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return statusRank[next] >= statusRank[s]
}

// Session is the persisted record of one mentor conversation.
type Session struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Transcript string    `json:"transcript"`
	Profile    string    `json:"profile"`
	Duration   int       `json:"duration"` // whole seconds, finalized on completion
	Status     Status    `json:"status"`
	Tags       []string  `json:"tags"`
	Title      string    `json:"title"`
}

// Patch describes a partial session update. Nil fields are left untouched.
type Patch struct {
	Transcript *string    `json:"transcript,omitempty"`
	Duration   *int       `json:"duration,omitempty"`
	Profile    *string    `json:"profile,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Status     *Status    `json:"status,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	Title      *string    `json:"title,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Transcript == nil && p.Duration == nil && p.Profile == nil &&
		p.Timestamp == nil && p.Status == nil && p.Tags == nil && p.Title == nil
}
