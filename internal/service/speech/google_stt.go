package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/echomentor/backend/internal/config"
	speechmodel "github.com/echomentor/backend/internal/model/speech"
)

// GoogleSTTClient calls the Cloud Speech-to-Text recognize endpoint.
type GoogleSTTClient struct {
	cfg        config.SpeechConfig
	httpClient *http.Client
}

// NewGoogleSTTClient creates the recognition client.
func NewGoogleSTTClient(cfg config.SpeechConfig) *GoogleSTTClient {
	return &GoogleSTTClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
	Model           string `json:"model"`
	UseEnhanced     bool   `json:"useEnhanced"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *googleAPIError `json:"error"`
}

type googleAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// encodingForMimeType maps the capture mime type onto a recognition
// encoding and sample rate. Unknown types fall back to WEBM_OPUS, which is
// what browser MediaRecorder produces.
func encodingForMimeType(mimeType string) (string, int) {
	switch {
	case strings.Contains(mimeType, "wav"):
		return "LINEAR16", 16000
	case strings.Contains(mimeType, "ogg"):
		return "OGG_OPUS", 48000
	default:
		return "WEBM_OPUS", 48000
	}
}

// Transcribe recognizes speech in one audio payload. An empty result set is
// not an error: the response carries NoSpeech so callers can tell the user
// to speak up rather than report a failure.
func (c *GoogleSTTClient) Transcribe(ctx context.Context, req *speechmodel.TranscribeRequest) (*speechmodel.TranscribeResponse, error) {
	if len(req.AudioContent) == 0 {
		return nil, fmt.Errorf("audio content is required")
	}

	encoding, sampleRate := encodingForMimeType(req.MimeType)

	body, err := json.Marshal(recognizeRequest{
		Config: recognizeConfig{
			Encoding:        encoding,
			SampleRateHertz: sampleRate,
			LanguageCode:    c.cfg.Language,
			Model:           "latest_short",
			UseEnhanced:     true,
		},
		Audio: recognizeAudio{Content: base64.StdEncoding.EncodeToString(req.AudioContent)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode recognize request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/speech:recognize?key=%s", strings.TrimRight(c.cfg.STTBaseURL, "/"), c.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build recognize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("recognize request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read recognize response: %w", err)
	}

	var decoded recognizeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode recognize response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return nil, fmt.Errorf("recognize failed: %s (%s)", decoded.Error.Message, decoded.Error.Status)
		}
		return nil, fmt.Errorf("recognize failed with status %d", resp.StatusCode)
	}

	if len(decoded.Results) == 0 {
		log.Printf("[stt] no speech detected session=%s encoding=%s", req.SessionID, encoding)
		return &speechmodel.TranscribeResponse{SessionID: req.SessionID, NoSpeech: true}, nil
	}

	var parts []string
	var confidence float64
	for _, result := range decoded.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		parts = append(parts, result.Alternatives[0].Transcript)
		if result.Alternatives[0].Confidence > confidence {
			confidence = result.Alternatives[0].Confidence
		}
	}

	transcript := strings.TrimSpace(strings.Join(parts, "\n"))
	if transcript == "" {
		return &speechmodel.TranscribeResponse{SessionID: req.SessionID, NoSpeech: true}, nil
	}

	log.Printf("[stt] transcribed session=%s chars=%d took=%s", req.SessionID, len(transcript), time.Since(start).Round(time.Millisecond))
	return &speechmodel.TranscribeResponse{
		SessionID:  req.SessionID,
		Transcript: transcript,
		Confidence: confidence,
	}, nil
}
