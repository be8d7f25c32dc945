package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

type fakeAIService struct {
	gotInput   string
	gotVariant string
	reply      string
	title      string
	tags       []string
	err        error
}

func (f *fakeAIService) ProcessText(ctx context.Context, input, variantName string) (string, error) {
	f.gotInput = input
	f.gotVariant = variantName
	return f.reply, f.err
}

func (f *fakeAIService) GenerateTitle(ctx context.Context, transcript string) (string, error) {
	f.gotInput = transcript
	return f.title, f.err
}

func (f *fakeAIService) GenerateTags(ctx context.Context, transcript string) ([]string, error) {
	f.gotInput = transcript
	return f.tags, f.err
}

func newTestRouter(svc AIService) http.Handler {
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestProcessTextPassesVariant(t *testing.T) {
	fakeSvc := &fakeAIService{reply: "One step at a time."}
	router := newTestRouter(fakeSvc)

	rr := postJSON(t, router, "/process-text", map[string]string{
		"input":       "I'm overwhelmed with work",
		"variantName": "variant_comfort",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if fakeSvc.gotInput != "I'm overwhelmed with work" || fakeSvc.gotVariant != "variant_comfort" {
		t.Fatalf("service received input=%q variant=%q", fakeSvc.gotInput, fakeSvc.gotVariant)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["output"] != "One step at a time." {
		t.Fatalf("output = %q", resp["output"])
	}
}

func TestProcessTextRequiresInput(t *testing.T) {
	router := newTestRouter(&fakeAIService{})

	rr := postJSON(t, router, "/process-text", map[string]string{"input": "  "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestProcessTextServiceError(t *testing.T) {
	router := newTestRouter(&fakeAIService{err: errors.New("model overloaded")})

	rr := postJSON(t, router, "/process-text", map[string]string{"input": "hello"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestGenerateTags(t *testing.T) {
	fakeSvc := &fakeAIService{tags: []string{"career", "stress"}}
	router := newTestRouter(fakeSvc)

	rr := postJSON(t, router, "/generate-tags", map[string]string{
		"input": "<user>my job is stressful</user>",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp["tags"]) != 2 || resp["tags"][0] != "career" {
		t.Fatalf("tags = %v", resp["tags"])
	}
}

func TestGenerateTagsNilBecomesEmptyArray(t *testing.T) {
	router := newTestRouter(&fakeAIService{tags: nil})

	rr := postJSON(t, router, "/generate-tags", map[string]string{"input": "<user>hi</user>"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"tags":[]`)) {
		t.Fatalf("body = %s, want empty tags array", rr.Body.String())
	}
}

func TestGenerateTitle(t *testing.T) {
	fakeSvc := &fakeAIService{title: "Navigating Work Stress"}
	router := newTestRouter(fakeSvc)

	rr := postJSON(t, router, "/generate-title", map[string]string{
		"input": "<user>my job is stressful</user>",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["title"] != "Navigating Work Stress" {
		t.Fatalf("title = %q", resp["title"])
	}
}
