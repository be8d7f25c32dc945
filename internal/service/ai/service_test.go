package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/echomentor/backend/internal/config"
)

// fakeBackend serves the OpenAI-compatible chat completions shape, echoing
// back a canned reply and recording the last request.
type fakeBackend struct {
	reply       string
	lastSystem  string
	lastUser    string
	lastModel   string
	statusCode  int
	requestSeen bool
}

func (f *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.requestSeen = true
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.lastModel = req.Model
		for _, m := range req.Messages {
			switch m.Role {
			case "system":
				f.lastSystem = m.Content
			case "user":
				f.lastUser = m.Content
			}
		}

		if f.statusCode != 0 {
			w.WriteHeader(f.statusCode)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": f.reply}},
			},
		})
	}
}

func newTestService(t *testing.T, backend *fakeBackend) *Service {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	svc, err := NewService(config.AIConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1",
		Model:          "test-model",
		MaxReplyTokens: 100,
		MaxTitleTokens: 25,
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}
	return svc
}

func TestNewServiceRequiresKey(t *testing.T) {
	if _, err := NewService(config.AIConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestProcessTextUsesVariantPrompt(t *testing.T) {
	backend := &fakeBackend{reply: "Take one thing off your plate today."}
	svc := newTestService(t, backend)

	out, err := svc.ProcessText(context.Background(), "I'm overwhelmed with work", "variant_comfort")
	if err != nil {
		t.Fatalf("ProcessText err: %v", err)
	}
	if out != "Take one thing off your plate today." {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(backend.lastSystem, "gentle") {
		t.Fatalf("comfort variant prompt not applied: %q", backend.lastSystem)
	}
	if backend.lastUser != "I'm overwhelmed with work" {
		t.Fatalf("unexpected user message: %q", backend.lastUser)
	}
}

func TestProcessTextUnknownVariantFallsBack(t *testing.T) {
	backend := &fakeBackend{reply: "ok"}
	svc := newTestService(t, backend)

	if _, err := svc.ProcessText(context.Background(), "hello", "variant_bogus"); err != nil {
		t.Fatalf("ProcessText err: %v", err)
	}
	if !strings.Contains(backend.lastSystem, "balanced personal mentor") {
		t.Fatalf("expected base prompt fallback, got: %q", backend.lastSystem)
	}
}

func TestProcessTextEmptyInput(t *testing.T) {
	svc := newTestService(t, &fakeBackend{})
	if _, err := svc.ProcessText(context.Background(), "  ", "variant_base"); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestProcessTextBackendFailure(t *testing.T) {
	backend := &fakeBackend{statusCode: http.StatusInternalServerError}
	svc := newTestService(t, backend)

	if _, err := svc.ProcessText(context.Background(), "hello", "variant_base"); err == nil {
		t.Fatal("expected error on backend failure")
	}
}

func TestGenerateTitleStripsQuotes(t *testing.T) {
	backend := &fakeBackend{reply: `"Workload Pressure Relief"`}
	svc := newTestService(t, backend)

	title, err := svc.GenerateTitle(context.Background(), "<user>work stuff</user>")
	if err != nil {
		t.Fatalf("GenerateTitle err: %v", err)
	}
	if title != "Workload Pressure Relief" {
		t.Fatalf("unexpected title: %q", title)
	}
}

func TestGenerateTagsSendsOnlyUserTurns(t *testing.T) {
	backend := &fakeBackend{reply: `["stress","career"]`}
	svc := newTestService(t, backend)

	tags, err := svc.GenerateTags(context.Background(), "<user>career stress</user><assistant>noted</assistant>")
	if err != nil {
		t.Fatalf("GenerateTags err: %v", err)
	}
	if len(tags) != 2 || tags[0] != "stress" || tags[1] != "career" {
		t.Fatalf("unexpected tags: %v", tags)
	}
	if strings.Contains(backend.lastUser, "noted") {
		t.Fatalf("assistant turn leaked into tag prompt: %q", backend.lastUser)
	}
}

func TestGenerateTagsNoUserTurns(t *testing.T) {
	backend := &fakeBackend{reply: "[]"}
	svc := newTestService(t, backend)

	tags, err := svc.GenerateTags(context.Background(), "")
	if err != nil {
		t.Fatalf("GenerateTags err: %v", err)
	}
	if len(tags) != 0 {
		t.Fatalf("expected no tags, got %v", tags)
	}
	if backend.requestSeen {
		t.Fatal("no backend call expected for empty transcript")
	}
}

func TestParseTags(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`["Stress", "Work"]`, []string{"stress", "work"}},
		{`stress, work , `, []string{"stress", "work"}},
		{`"focus"`, []string{"focus"}},
		{``, []string{}},
		{`[not json`, []string{"[not json"}},
	}

	for _, c := range cases {
		got := parseTags(c.in)
		if len(got) != len(c.want) {
			t.Errorf("parseTags(%q) = %v, want %v", c.in, got, c.want)
			continue
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("parseTags(%q) = %v, want %v", c.in, got, c.want)
				break
			}
		}
	}
}

func TestRequestTimeoutAbortsSlowBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "too late"}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	svc, err := NewService(config.AIConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1",
		Model:          "test-model",
		RequestTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewService err: %v", err)
	}

	start := time.Now()
	if _, err := svc.ProcessText(context.Background(), "hello there", "variant_base"); err == nil {
		t.Fatal("expected the slow backend call to fail")
	}
	if elapsed := time.Since(start); elapsed >= 500*time.Millisecond {
		t.Fatalf("call waited out the backend (%v), timeout never applied", elapsed)
	}
}
