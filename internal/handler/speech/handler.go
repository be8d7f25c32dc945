package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	speechmodel "github.com/echomentor/backend/internal/model/speech"
	"github.com/echomentor/backend/pkg/utils"
)

// SpeechService abstracts the speech round-trips so the handler can be
// tested against a fake.
type SpeechService interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, mimeType string) (*speechmodel.TranscribeResponse, error)
	SynthesizeText(ctx context.Context, sessionID, text, variant string) (*speechmodel.SynthesizeResponse, error)
}

// Handler serves the speech-to-text and text-to-speech endpoints.
type Handler struct {
	speechSvc SpeechService
}

func New(speechSvc SpeechService) *Handler {
	return &Handler{speechSvc: speechSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/speech-to-text", h.handleSpeechToText)
	r.Post("/text-to-speech", h.handleTextToSpeech)
}

type speechToTextRequest struct {
	SessionID    string `json:"sessionId"`
	AudioContent string `json:"audioContent"`
	MimeType     string `json:"mimeType"`
}

func (h *Handler) handleSpeechToText(w http.ResponseWriter, r *http.Request) {
	var req speechToTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AudioContent == "" {
		utils.RespondError(w, http.StatusBadRequest, "audioContent is required")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioContent)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audioContent is not valid base64")
		return
	}

	resp, err := h.speechSvc.TranscribeBuffer(r.Context(), req.SessionID, audio, req.MimeType)
	if err != nil {
		log.Printf("[speech] transcription failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "speech recognition failed")
		return
	}

	if resp.NoSpeech {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"transcript": "",
			"error":      "No speech detected",
		})
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"transcript": resp.Transcript,
		"confidence": resp.Confidence,
	})
}

type textToSpeechRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	Variant   string `json:"variant"`
}

func (h *Handler) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req textToSpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	resp, err := h.speechSvc.SynthesizeText(r.Context(), req.SessionID, req.Text, req.Variant)
	if err != nil {
		log.Printf("[speech] synthesis failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "speech synthesis failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"audioContent": base64.StdEncoding.EncodeToString(resp.AudioContent),
		"format":       resp.Format,
		"voice":        resp.Voice,
	})
}
