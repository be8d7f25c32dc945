// Package speech wraps the external speech collaborators behind one
// service: recognition of captured audio and synthesis of mentor replies.
package speech

import (
	"context"

	"github.com/echomentor/backend/internal/config"
	speechmodel "github.com/echomentor/backend/internal/model/speech"
)

// Service bundles the recognition and synthesis clients.
type Service struct {
	cfg       config.SpeechConfig
	sttClient *GoogleSTTClient
	ttsClient *GoogleTTSClient
}

// NewService creates the speech service from configuration.
func NewService(cfg config.SpeechConfig) *Service {
	return &Service{
		cfg:       cfg,
		sttClient: NewGoogleSTTClient(cfg),
		ttsClient: NewGoogleTTSClient(cfg),
	}
}

// Transcribe recognizes one captured audio payload.
func (s *Service) Transcribe(ctx context.Context, req *speechmodel.TranscribeRequest) (*speechmodel.TranscribeResponse, error) {
	return s.sttClient.Transcribe(ctx, req)
}

// TranscribeBuffer recognizes a raw byte payload.
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, mimeType string) (*speechmodel.TranscribeResponse, error) {
	return s.Transcribe(ctx, &speechmodel.TranscribeRequest{
		SessionID:    sessionID,
		AudioContent: audio,
		MimeType:     mimeType,
	})
}

// Synthesize produces spoken audio for reply text.
func (s *Service) Synthesize(ctx context.Context, req *speechmodel.SynthesizeRequest) (*speechmodel.SynthesizeResponse, error) {
	return s.ttsClient.Synthesize(ctx, req)
}

// SynthesizeText produces spoken audio for text with the given variant's
// voice.
func (s *Service) SynthesizeText(ctx context.Context, sessionID, text, variant string) (*speechmodel.SynthesizeResponse, error) {
	return s.Synthesize(ctx, &speechmodel.SynthesizeRequest{
		SessionID: sessionID,
		Text:      text,
		Variant:   variant,
	})
}
