package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/echomentor/backend/internal/model/session"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore err: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAppliesDefaults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.Create(ctx, session.Session{ID: "s1", Profile: "Kai"})
	if err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if rec.Status != session.StatusCreated {
		t.Fatalf("expected created status, got %s", rec.Status)
	}
	if rec.Title != "Untitled Session" {
		t.Fatalf("expected default title, got %q", rec.Title)
	}
	if rec.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Profile != "Kai" {
		t.Fatalf("unexpected profile: %q", got.Profile)
	}
	if len(got.Tags) != 0 {
		t.Fatalf("expected empty tags, got %v", got.Tags)
	}
}

func TestCreateRequiresID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(context.Background(), session.Session{}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, session.Session{ID: "dup"}); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if _, err := s.Create(ctx, session.Session{ID: "dup"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, session.Session{ID: "s1", Profile: "Aria"}); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	transcript := "<user>hello</user>"
	active := session.StatusActive
	got, err := s.Update(ctx, "s1", session.Patch{Transcript: &transcript, Status: &active})
	if err != nil {
		t.Fatalf("Update err: %v", err)
	}
	if got.Transcript != transcript {
		t.Fatalf("unexpected transcript: %q", got.Transcript)
	}
	if got.Status != session.StatusActive {
		t.Fatalf("unexpected status: %s", got.Status)
	}
	// Untouched fields survive.
	if got.Profile != "Aria" {
		t.Fatalf("profile should be untouched, got %q", got.Profile)
	}
}

func TestUpdateRejectsStatusRegression(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, session.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	complete := session.StatusComplete
	if _, err := s.Update(ctx, "s1", session.Patch{Status: &complete}); err != nil {
		t.Fatalf("complete err: %v", err)
	}

	active := session.StatusActive
	if _, err := s.Update(ctx, "s1", session.Patch{Status: &active}); !errors.Is(err, ErrStatusRegression) {
		t.Fatalf("expected ErrStatusRegression, got %v", err)
	}

	// A completed session is immutable even without a status field.
	transcript := "tampered"
	if _, err := s.Update(ctx, "s1", session.Patch{Transcript: &transcript}); !errors.Is(err, ErrStatusRegression) {
		t.Fatalf("expected ErrStatusRegression for completed mutation, got %v", err)
	}

	// Tag/title backfill arrives with status=complete and is allowed.
	title := "A Short Title"
	if _, err := s.Update(ctx, "s1", session.Patch{Status: &complete, Title: &title, Tags: []string{"work"}}); err != nil {
		t.Fatalf("backfill err: %v", err)
	}
}

func TestListCompletedSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	complete := session.StatusComplete
	for _, c := range []struct {
		id  string
		ts  time.Time
		end bool
	}{
		{"old", now.Add(-14 * 24 * time.Hour), true},
		{"recent", now.Add(-2 * 24 * time.Hour), true},
		{"open", now.Add(-time.Hour), false},
	} {
		if _, err := s.Create(ctx, session.Session{ID: c.id, Timestamp: c.ts}); err != nil {
			t.Fatalf("Create err: %v", err)
		}
		if c.end {
			if _, err := s.Update(ctx, c.id, session.Patch{Status: &complete}); err != nil {
				t.Fatalf("Update err: %v", err)
			}
		}
	}

	got, err := s.ListCompletedSince(ctx, now.Add(-7*24*time.Hour).Unix())
	if err != nil {
		t.Fatalf("ListCompletedSince err: %v", err)
	}
	if len(got) != 1 || got[0].ID != "recent" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, session.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	if err := s.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if err := s.Delete(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBestEffortUpdaterRetries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, session.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	u := NewBestEffortUpdater(s)
	u.backoff = time.Millisecond

	transcript := "<user>hi</user>"
	u.Update("s1", session.Patch{Transcript: &transcript})
	u.Wait()

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Transcript != transcript {
		t.Fatalf("best-effort update not applied: %q", got.Transcript)
	}
}

func TestBestEffortUpdaterSwallowsErrors(t *testing.T) {
	s := newTestStore(t)

	u := NewBestEffortUpdater(s)
	u.backoff = time.Millisecond

	// Missing session: the write fails, the caller is never told.
	transcript := "x"
	u.Update("ghost", session.Patch{Transcript: &transcript})
	u.Wait()
}

// stallingStore delays the first Update so a later patch for the same
// session could land first if writes were not serialized per id.
type stallingStore struct {
	SessionStore
	mu      sync.Mutex
	stalled bool
	delay   time.Duration
}

func (s *stallingStore) Update(ctx context.Context, id string, patch session.Patch) (session.Session, error) {
	s.mu.Lock()
	first := !s.stalled
	s.stalled = true
	s.mu.Unlock()
	if first {
		time.Sleep(s.delay)
	}
	return s.SessionStore.Update(ctx, id, patch)
}

func TestBestEffortUpdaterKeepsWriteOrderPerSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, session.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	u := NewBestEffortUpdater(&stallingStore{SessionStore: s, delay: 150 * time.Millisecond})
	u.backoff = time.Millisecond

	userOnly := "<user>hi</user>"
	full := "<user>hi</user><assistant>hello</assistant>"
	u.Update("s1", session.Patch{Transcript: &userOnly})
	u.Update("s1", session.Patch{Transcript: &full})
	u.Wait()

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Transcript != full {
		t.Fatalf("final transcript = %q, want the later patch to win", got.Transcript)
	}
}

func TestBestEffortUpdaterCreateThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := NewBestEffortUpdater(s)
	u.backoff = time.Millisecond

	st := session.StatusActive
	u.Create(session.Session{ID: "s1"})
	u.Update("s1", session.Patch{Status: &st})
	u.Wait()

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Status != session.StatusActive {
		t.Fatalf("status = %q, want the update queued behind the create to apply", got.Status)
	}
}

// notFoundOnceStore reports the row missing on the first Update attempt.
type notFoundOnceStore struct {
	SessionStore
	mu     sync.Mutex
	misses int
}

func (s *notFoundOnceStore) Update(ctx context.Context, id string, patch session.Patch) (session.Session, error) {
	s.mu.Lock()
	miss := s.misses > 0
	s.misses--
	s.mu.Unlock()
	if miss {
		return session.Session{}, ErrNotFound
	}
	return s.SessionStore.Update(ctx, id, patch)
}

func TestBestEffortUpdaterRetriesNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, session.Session{ID: "s1"}); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	u := NewBestEffortUpdater(&notFoundOnceStore{SessionStore: s, misses: 1})
	u.backoff = time.Millisecond

	transcript := "<user>still here</user>"
	u.Update("s1", session.Patch{Transcript: &transcript})
	u.Wait()

	got, err := s.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Transcript != transcript {
		t.Fatalf("transcript = %q, want the retried update applied", got.Transcript)
	}
}
