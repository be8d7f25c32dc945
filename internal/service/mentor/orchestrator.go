// Package mentor sequences one voice conversation: it owns the session
// lifecycle, appends turns to the transcript, masks backend latency with
// filler audio, and persists progress as it goes.
package mentor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echomentor/backend/internal/model/persona"
	"github.com/echomentor/backend/internal/model/session"
	speechmodel "github.com/echomentor/backend/internal/model/speech"
	"github.com/echomentor/backend/internal/service/playback"
)

const (
	defaultTitle   = "Untitled Session"
	errPlaceholder = "Sorry, I'm having trouble responding right now. Please try again."

	finalizeTimeout = 30 * time.Second
)

// Backend generates mentor replies and session metadata.
type Backend interface {
	ProcessText(ctx context.Context, input, variantName string) (string, error)
	GenerateTitle(ctx context.Context, transcript string) (string, error)
	GenerateTags(ctx context.Context, transcript string) ([]string, error)
}

// Synthesizer turns reply text into playable audio.
type Synthesizer interface {
	SynthesizeText(ctx context.Context, sessionID, text, variant string) (*speechmodel.SynthesizeResponse, error)
}

// Persister applies background session writes. Calls return immediately;
// the conversation never waits on storage.
type Persister interface {
	Create(rec session.Session)
	Update(id string, patch session.Patch)
}

// Notifier surfaces user-facing, non-fatal notifications.
type Notifier interface {
	Notify(title, message string)
}

// Indexer makes completed sessions searchable.
type Indexer interface {
	IndexSession(rec session.Session) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string) {}

// Orchestrator drives the turn protocol for a single conversation. It is
// safe for concurrent use; a turn that arrives while an earlier one is
// still in flight supersedes it, and the superseded turn's late reply is
// discarded.
type Orchestrator struct {
	personas persona.Store
	backend  Backend
	speech   Synthesizer
	persist  Persister
	player   *playback.Player
	notifier Notifier
	index    Indexer

	now func() time.Time

	mu          sync.Mutex
	id          string
	status      session.Status
	transcript  session.Transcript
	personaName string
	startedAt   time.Time
	turnSeq     uint64
	answered    uint64
	response    string

	wg sync.WaitGroup
}

// Snapshot is a point-in-time view of the conversation for transport to
// the client.
type Snapshot struct {
	SessionID  string         `json:"sessionId"`
	Status     session.Status `json:"status"`
	Persona    string         `json:"persona"`
	Transcript string         `json:"transcript"`
	Response   string         `json:"response"`
}

// NewOrchestrator builds an orchestrator and immediately initializes its
// first session record. speech, notifier, and index may be nil: replies
// are then text-only, notifications are dropped, and completed sessions
// are not indexed.
func NewOrchestrator(personas persona.Store, backend Backend, speech Synthesizer, persist Persister, sink playback.Sink, notifier Notifier, index Indexer) *Orchestrator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	o := &Orchestrator{
		personas: personas,
		backend:  backend,
		speech:   speech,
		persist:  persist,
		player:   playback.NewPlayer(sink),
		notifier: notifier,
		index:    index,
		now:      time.Now,
	}
	o.mu.Lock()
	o.resetLocked()
	o.mu.Unlock()
	return o
}

// resetLocked starts a fresh session record. Caller holds o.mu.
func (o *Orchestrator) resetLocked() {
	o.id = uuid.NewString()
	o.status = session.StatusCreated
	o.transcript = ""
	o.startedAt = o.now()
	o.turnSeq = 0
	o.answered = 0
	o.response = ""

	o.persist.Create(session.Session{
		ID:        o.id,
		Timestamp: o.startedAt,
		Profile:   o.personaName,
		Status:    session.StatusCreated,
		Tags:      []string{},
		Title:     defaultTitle,
	})
	log.Printf("[mentor] session initialized id=%s persona=%q", o.id, o.personaName)
}

// SessionID returns the identifier of the conversation in progress.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.id
}

// Snapshot returns the current conversation state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		SessionID:  o.id,
		Status:     o.status,
		Persona:    o.personaName,
		Transcript: o.transcript.String(),
		Response:   o.response,
	}
}

// Interrupt silences any playing audio without touching session state.
// Called when the user starts speaking again.
func (o *Orchestrator) Interrupt() {
	o.player.Stop()
}

// SetPersona switches the active persona. While the session is still
// created or active the new profile is persisted immediately; recorded
// turns are never rewritten.
func (o *Orchestrator) SetPersona(name string) error {
	if _, ok := o.personas.FindByName(name); !ok {
		return fmt.Errorf("unknown persona %q", name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.personaName = name
	if o.status == session.StatusCreated || o.status == session.StatusActive {
		o.persist.Update(o.id, session.Patch{Profile: &name})
	}
	return nil
}

// ProcessTurn runs one user turn through the protocol: barge-in, append
// and persist the user message, speak a filler unless the input is a
// greeting, ask the backend, then append, persist, and speak the reply.
// A backend failure leaves the session active with only the user turn
// recorded.
func (o *Orchestrator) ProcessTurn(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	// New input always interrupts whatever is playing.
	o.player.Stop()

	o.mu.Lock()
	o.turnSeq++
	seq := o.turnSeq

	if o.status == session.StatusCreated {
		o.status = session.StatusActive
		st := session.StatusActive
		o.persist.Update(o.id, session.Patch{Status: &st})
	}

	o.transcript = o.transcript.AppendUser(text)
	tr := o.transcript.String()
	o.persist.Update(o.id, session.Patch{Transcript: &tr})

	id := o.id
	variant := o.personas.ResolveVariant(o.personaName)
	o.mu.Unlock()

	if !isGreeting(text) {
		go o.speakFiller(ctx, id, seq, variant)
	}

	reply, err := o.backend.ProcessText(ctx, text, variant)
	if err != nil {
		log.Printf("[mentor] backend failed session=%s: %v", id, err)
		o.mu.Lock()
		if seq == o.turnSeq {
			o.response = errPlaceholder
		}
		o.mu.Unlock()
		o.notifier.Notify("Mentor Unavailable", "Could not generate a response. Please try again.")
		return
	}

	o.mu.Lock()
	if seq != o.turnSeq {
		o.mu.Unlock()
		log.Printf("[mentor] discarding stale reply session=%s turn=%d", id, seq)
		return
	}
	o.answered = seq
	o.transcript = o.transcript.AppendAssistant(reply)
	tr = o.transcript.String()
	o.response = reply
	o.persist.Update(id, session.Patch{Transcript: &tr})
	o.mu.Unlock()

	o.speakReply(ctx, id, seq, reply, variant)
}

// speakFiller synthesizes and plays a random filler phrase for turn seq,
// unless the real reply has already landed by the time the audio is ready.
func (o *Orchestrator) speakFiller(ctx context.Context, id string, seq uint64, variant string) {
	if o.speech == nil {
		return
	}

	phrase := randomFiller()
	res, err := o.speech.SynthesizeText(ctx, id, phrase, variant)
	if err != nil {
		log.Printf("[mentor] filler synthesis failed session=%s: %v", id, err)
		return
	}

	o.mu.Lock()
	stale := seq != o.turnSeq || o.answered >= seq
	o.mu.Unlock()
	if stale {
		return
	}

	o.player.Play(playback.Clip{
		SessionID: id,
		Kind:      playback.KindFiller,
		Data:      res.AudioContent,
		Format:    res.Format,
	})
}

// speakReply voices the assistant reply, silencing any filler still in
// the slot. Synthesis failure degrades to a text-only reply.
func (o *Orchestrator) speakReply(ctx context.Context, id string, seq uint64, reply, variant string) {
	if o.speech == nil {
		o.player.Stop()
		return
	}

	res, err := o.speech.SynthesizeText(ctx, id, reply, variant)
	if err != nil {
		log.Printf("[mentor] reply synthesis failed session=%s: %v", id, err)
		o.player.Stop()
		o.notifier.Notify("Audio Unavailable", "The reply could not be spoken, but the text is available.")
		return
	}

	o.mu.Lock()
	stale := seq != o.turnSeq
	o.mu.Unlock()
	if stale {
		return
	}

	o.player.Play(playback.Clip{
		SessionID: id,
		Kind:      playback.KindReply,
		Data:      res.AudioContent,
		Format:    res.Format,
	})
}

// completeLocked persists the final patch for the current session and
// returns its ended record. Caller holds o.mu.
func (o *Orchestrator) completeLocked() session.Session {
	ended := session.Session{
		ID:         o.id,
		Timestamp:  o.startedAt,
		Transcript: o.transcript.String(),
		Profile:    o.personaName,
		Duration:   int(o.now().Sub(o.startedAt).Seconds()),
		Status:     session.StatusComplete,
		Title:      defaultTitle,
	}

	st := session.StatusComplete
	tr := ended.Transcript
	o.persist.Update(ended.ID, session.Patch{
		Transcript: &tr,
		Duration:   &ended.Duration,
		Status:     &st,
	})
	o.status = session.StatusComplete
	log.Printf("[mentor] session ended id=%s duration=%ds", ended.ID, ended.Duration)
	return ended
}

// queueFinalize kicks off background tag/title generation and indexing for
// an ended session. Sessions without user turns skip it.
func (o *Orchestrator) queueFinalize(ended session.Session) {
	if session.Transcript(ended.Transcript).UserTurnCount() == 0 {
		return
	}
	o.wg.Add(1)
	go o.finalize(ended)
}

// End completes the current session with its final transcript and a
// whole-second duration, kicks off tag/title generation in the background,
// and immediately starts a fresh session.
func (o *Orchestrator) End() Snapshot {
	o.player.Stop()

	o.mu.Lock()
	ended := o.completeLocked()
	o.resetLocked()
	snap := Snapshot{
		SessionID:  o.id,
		Status:     o.status,
		Persona:    o.personaName,
		Transcript: o.transcript.String(),
		Response:   o.response,
	}
	o.mu.Unlock()

	o.queueFinalize(ended)
	return snap
}

// Teardown completes the current session without starting a replacement.
// Called when the owning connection goes away so that a client dropping
// mid-conversation still leaves a finished record behind. Idempotent: a
// session already completed by a previous Teardown is left alone.
func (o *Orchestrator) Teardown() {
	o.player.Stop()

	o.mu.Lock()
	if o.status == session.StatusComplete {
		o.mu.Unlock()
		return
	}
	ended := o.completeLocked()
	o.mu.Unlock()

	o.queueFinalize(ended)
}

// finalize fills in tags and title for a completed session and indexes it
// for search. Runs off the turn path; failures are logged only.
func (o *Orchestrator) finalize(ended session.Session) {
	defer o.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	patch := session.Patch{}
	if title, err := o.backend.GenerateTitle(ctx, ended.Transcript); err != nil {
		log.Printf("[mentor] title generation failed session=%s: %v", ended.ID, err)
	} else {
		patch.Title = &title
		ended.Title = title
	}
	if tags, err := o.backend.GenerateTags(ctx, ended.Transcript); err != nil {
		log.Printf("[mentor] tag generation failed session=%s: %v", ended.ID, err)
	} else if len(tags) > 0 {
		patch.Tags = tags
		ended.Tags = tags
	}
	if !patch.Empty() {
		o.persist.Update(ended.ID, patch)
	}

	if o.index != nil {
		if err := o.index.IndexSession(ended); err != nil {
			log.Printf("[mentor] indexing failed session=%s: %v", ended.ID, err)
		}
	}
}

// Close stops playback and waits for background finalization to drain.
func (o *Orchestrator) Close() {
	o.player.Stop()
	o.wg.Wait()
}
