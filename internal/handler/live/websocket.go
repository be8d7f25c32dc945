// Package live runs a voice session over a WebSocket: audio chunks and
// text in, amplitude levels, transcripts, replies, and synthesized audio
// out.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/echomentor/backend/internal/audio"
	"github.com/echomentor/backend/internal/model/persona"
	speechmodel "github.com/echomentor/backend/internal/model/speech"
	"github.com/echomentor/backend/internal/service/mentor"
	"github.com/echomentor/backend/internal/service/playback"
)

const (
	readDeadline = 60 * time.Second
	pingInterval = 54 * time.Second
)

// SpeechService covers the speech round-trips the live loop needs.
type SpeechService interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, mimeType string) (*speechmodel.TranscribeResponse, error)
	SynthesizeText(ctx context.Context, sessionID, text, variant string) (*speechmodel.SynthesizeResponse, error)
}

// Handler upgrades live-session connections and wires each one to its own
// orchestrator.
type Handler struct {
	personas  persona.Store
	backend   mentor.Backend
	speechSvc SpeechService
	persist   mentor.Persister
	index     mentor.Indexer
	upgrader  websocket.Upgrader
}

func New(personas persona.Store, backend mentor.Backend, speechSvc SpeechService, persist mentor.Persister, index mentor.Indexer) *Handler {
	return &Handler{
		personas:  personas,
		backend:   backend,
		speechSvc: speechSvc,
		persist:   persist,
		index:     index,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/live/{sessionID}", h.handleLive)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type audioMessage struct {
	AudioData []byte `json:"audioData"`
	MimeType  string `json:"mimeType"`
	IsFinal   bool   `json:"isFinal"`
}

type textMessage struct {
	Text string `json:"text"`
}

type personaMessage struct {
	Persona string `json:"persona"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// liveConn serializes writes to the underlying connection and doubles as
// the orchestrator's playback sink and notifier.
type liveConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *liveConn) send(msgType, sessionID string, data any) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[live] write failed type=%s: %v", msgType, err)
	}
}

func (c *liveConn) sendError(message string) {
	c.send("error", "", map[string]string{"message": message})
}

func (c *liveConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Play delivers synthesized audio to the client. The clip is sent whole;
// cancellation between clips is handled by the player before Play is
// called again.
func (c *liveConn) Play(ctx context.Context, clip playback.Clip) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.send("tts", clip.SessionID, map[string]any{
		"audioData": base64.StdEncoding.EncodeToString(clip.Data),
		"format":    clip.Format,
		"kind":      string(clip.Kind),
	})
	return nil
}

// Notify surfaces a user-facing notification.
func (c *liveConn) Notify(title, message string) {
	c.send("notice", "", map[string]string{"title": title, "message": message})
}

// remoteMic stands in for the microphone that actually lives in the
// browser. By the time chunks arrive here, access has been granted on the
// client side.
type remoteMic struct{}

func (remoteMic) RequestAccess(ctx context.Context) error { return nil }

// liveState is the per-connection conversation state.
type liveState struct {
	orch     *mentor.Orchestrator
	recorder *audio.Recorder
	mimeType string
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "sessionID")
	if clientID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[live] new connection client=%s", clientID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &liveConn{conn: conn}

	orch := mentor.NewOrchestrator(h.personas, h.backend, h.speechSvc, h.persist, c, c, h.index)
	// A client can vanish without sending "end"; finalize whatever session
	// is in progress so it never lingers as active with no duration.
	defer func() {
		orch.Teardown()
		orch.Close()
	}()

	state := &liveState{
		orch:     orch,
		recorder: audio.NewRecorder(remoteMic{}, "", 0),
	}
	defer state.recorder.Stop()

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	go h.pingLoop(ctx, c)

	c.send("connected", orch.SessionID(), orch.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[live] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(readDeadline))
			h.handleMessage(ctx, c, state, &msg)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *liveConn, state *liveState, msg *inboundMessage) {
	switch msg.Type {
	case "start":
		h.handleStart(ctx, c, state)
	case "audio":
		h.handleAudio(ctx, c, state, msg.Data)
	case "text":
		h.handleText(ctx, c, state.orch, msg.Data)
	case "persona":
		h.handlePersona(c, state.orch, msg.Data)
	case "end":
		snap := state.orch.End()
		c.send("session", snap.SessionID, snap)
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *Handler) handleStart(ctx context.Context, c *liveConn, state *liveState) {
	// The user speaking is a barge-in: cut any playing audio right away.
	state.orch.Interrupt()

	if !state.recorder.Granted() {
		if err := state.recorder.RequestPermission(ctx); err != nil {
			c.Notify("Microphone Unavailable", "Microphone access was denied. You can still type your message.")
			return
		}
	}

	sessionID := state.orch.SessionID()
	if err := state.recorder.Start(func(level float64) {
		c.send("level", sessionID, map[string]float64{"level": level})
	}); err != nil {
		log.Printf("[live] recorder start failed: %v", err)
		c.sendError("recording already in progress")
		return
	}

	c.send("recording", sessionID, map[string]bool{"active": true})
}

func (h *Handler) handleAudio(ctx context.Context, c *liveConn, state *liveState, raw json.RawMessage) {
	var am audioMessage
	if err := json.Unmarshal(raw, &am); err != nil {
		c.sendError("invalid audio payload")
		return
	}

	if am.MimeType != "" {
		state.mimeType = am.MimeType
	}
	if len(am.AudioData) > 0 {
		state.recorder.Write(am.AudioData)
	}
	if !am.IsFinal {
		return
	}

	payload := state.recorder.Stop()
	c.send("recording", state.orch.SessionID(), map[string]bool{"active": false})
	if payload.Empty() {
		return
	}
	if h.speechSvc == nil {
		c.Notify("Transcription Unavailable", "Speech recognition is not configured. You can still type your message.")
		return
	}

	mimeType := state.mimeType
	if mimeType == "" {
		mimeType = payload.MimeType
	}

	sessionID := state.orch.SessionID()
	resp, err := h.speechSvc.TranscribeBuffer(ctx, sessionID, payload.Data, mimeType)
	if err != nil {
		log.Printf("[live] transcription failed session=%s: %v", sessionID, err)
		c.Notify("Transcription Failed", "Could not transcribe the recording. Please try again.")
		return
	}
	if resp.NoSpeech {
		c.Notify("No Speech Detected", "Please try again and speak clearly.")
		return
	}

	c.send("transcript", sessionID, map[string]any{
		"text":       resp.Transcript,
		"confidence": resp.Confidence,
	})

	h.runTurn(ctx, c, state.orch, resp.Transcript)
}

func (h *Handler) handleText(ctx context.Context, c *liveConn, orch *mentor.Orchestrator, raw json.RawMessage) {
	var tm textMessage
	if err := json.Unmarshal(raw, &tm); err != nil {
		c.sendError("invalid text payload")
		return
	}
	if tm.Text == "" {
		return
	}
	h.runTurn(ctx, c, orch, tm.Text)
}

// runTurn drives one turn in the background so the read loop keeps
// servicing barge-in input while the backend thinks.
func (h *Handler) runTurn(ctx context.Context, c *liveConn, orch *mentor.Orchestrator, text string) {
	go func() {
		orch.ProcessTurn(ctx, text)
		snap := orch.Snapshot()
		c.send("state", snap.SessionID, snap)
	}()
}

func (h *Handler) handlePersona(c *liveConn, orch *mentor.Orchestrator, raw json.RawMessage) {
	var pm personaMessage
	if err := json.Unmarshal(raw, &pm); err != nil {
		c.sendError("invalid persona payload")
		return
	}
	if err := orch.SetPersona(pm.Persona); err != nil {
		c.sendError(err.Error())
		return
	}
	snap := orch.Snapshot()
	c.send("persona", snap.SessionID, map[string]string{"persona": snap.Persona})
}

func (h *Handler) pingLoop(ctx context.Context, c *liveConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
