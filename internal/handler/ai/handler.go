package ai

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/echomentor/backend/pkg/utils"
)

// AIService abstracts text generation so the handler can be tested
// against a fake.
type AIService interface {
	ProcessText(ctx context.Context, input, variantName string) (string, error)
	GenerateTitle(ctx context.Context, transcript string) (string, error)
	GenerateTags(ctx context.Context, transcript string) ([]string, error)
}

// Handler serves the mentor-reply and metadata-generation endpoints.
type Handler struct {
	aiSvc AIService
}

func New(aiSvc AIService) *Handler {
	return &Handler{aiSvc: aiSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/process-text", h.handleProcessText)
	r.Post("/generate-tags", h.handleGenerateTags)
	r.Post("/generate-title", h.handleGenerateTitle)
}

type processTextRequest struct {
	Input       string `json:"input"`
	VariantName string `json:"variantName"`
}

func (h *Handler) handleProcessText(w http.ResponseWriter, r *http.Request) {
	var req processTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		utils.RespondError(w, http.StatusBadRequest, "input is required")
		return
	}

	output, err := h.aiSvc.ProcessText(r.Context(), req.Input, req.VariantName)
	if err != nil {
		log.Printf("[ai] process-text failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate response")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"output": output})
}

type generateRequest struct {
	Input string `json:"input"`
}

func (h *Handler) handleGenerateTags(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		utils.RespondError(w, http.StatusBadRequest, "input is required")
		return
	}

	tags, err := h.aiSvc.GenerateTags(r.Context(), req.Input)
	if err != nil {
		log.Printf("[ai] generate-tags failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate tags")
		return
	}
	if tags == nil {
		tags = []string{}
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (h *Handler) handleGenerateTitle(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Input) == "" {
		utils.RespondError(w, http.StatusBadRequest, "input is required")
		return
	}

	title, err := h.aiSvc.GenerateTitle(r.Context(), req.Input)
	if err != nil {
		log.Printf("[ai] generate-title failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "failed to generate title")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"title": title})
}
