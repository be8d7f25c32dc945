package store

import (
	"context"
	"errors"

	"github.com/echomentor/backend/internal/model/session"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrAlreadyExists  = errors.New("session already exists")
	ErrInvalidSession = errors.New("invalid session")
	// ErrStatusRegression is returned when an update would move a session
	// backwards in its lifecycle, including any mutation of a completed one.
	ErrStatusRegression = errors.New("session status cannot move backwards")
)

// SessionStore persists session records.
type SessionStore interface {
	Create(ctx context.Context, s session.Session) (session.Session, error)
	Get(ctx context.Context, id string) (session.Session, error)
	List(ctx context.Context) ([]session.Session, error)
	// ListCompletedSince returns completed sessions whose timestamp is at or
	// after the cutoff, newest first. Backs the weekly summary.
	ListCompletedSince(ctx context.Context, cutoff int64) ([]session.Session, error)
	Update(ctx context.Context, id string, patch session.Patch) (session.Session, error)
	Delete(ctx context.Context, id string) error
}
