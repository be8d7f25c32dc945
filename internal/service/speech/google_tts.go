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

	"github.com/echomentor/backend/internal/config"
	"github.com/echomentor/backend/internal/model/persona"
	speechmodel "github.com/echomentor/backend/internal/model/speech"
)

// GoogleTTSClient calls the Cloud Text-to-Speech synthesize endpoint.
type GoogleTTSClient struct {
	cfg        config.SpeechConfig
	httpClient *http.Client
}

// NewGoogleTTSClient creates the synthesis client.
func NewGoogleTTSClient(cfg config.SpeechConfig) *GoogleTTSClient {
	return &GoogleTTSClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string          `json:"audioContent"`
	Error        *googleAPIError `json:"error"`
}

// variantVoices is built once from the persona definitions, which own the
// variant-to-voice table.
var variantVoices = func() map[string]string {
	m := make(map[string]string, 5)
	for _, p := range persona.Seed() {
		m[p.Variant] = p.VoiceID
	}
	return m
}()

// VoiceForVariant maps a variant identifier onto a synthesis voice. Unknown
// variants fall back to the default voice; a literal "voice=<name>" variant
// selects that voice directly (escape hatch the dashboard uses for
// previews).
func VoiceForVariant(variant string) string {
	if voice, ok := variantVoices[variant]; ok {
		return voice
	}
	if idx := strings.Index(variant, "voice="); idx >= 0 {
		if name := strings.TrimSpace(variant[idx+len("voice="):]); name != "" {
			return name
		}
	}
	return persona.DefaultVoice
}

// Synthesize turns reply text into MP3 audio using the variant's voice.
func (c *GoogleTTSClient) Synthesize(ctx context.Context, req *speechmodel.SynthesizeRequest) (*speechmodel.SynthesizeResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	voice := VoiceForVariant(req.Variant)

	var body synthesizeRequest
	body.Input.Text = req.Text
	body.Voice.LanguageCode = c.cfg.Language
	body.Voice.Name = voice
	body.Voice.SSMLGender = "FEMALE"
	body.AudioConfig.AudioEncoding = "MP3"
	body.AudioConfig.SpeakingRate = c.cfg.SpeakingRate

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesize request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text:synthesize?key=%s", strings.TrimRight(c.cfg.TTSBaseURL, "/"), c.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build synthesize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesize request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesize response: %w", err)
	}

	var decoded synthesizeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode synthesize response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Error != nil {
			return nil, fmt.Errorf("synthesize failed: %s (%s)", decoded.Error.Message, decoded.Error.Status)
		}
		return nil, fmt.Errorf("synthesize failed with status %d", resp.StatusCode)
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("synthesize returned empty audio")
	}

	log.Printf("[tts] synthesized session=%s voice=%s bytes=%d", req.SessionID, voice, len(audio))
	return &speechmodel.SynthesizeResponse{
		SessionID:    req.SessionID,
		AudioContent: audio,
		Format:       "mp3",
		Voice:        voice,
	}, nil
}
