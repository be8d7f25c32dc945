package speech

// TranscribeRequest carries one captured audio payload for recognition.
// AudioContent is the raw audio; MimeType decides the recognition encoding.
type TranscribeRequest struct {
	SessionID    string `json:"sessionId,omitempty"`
	AudioContent []byte `json:"-"`
	MimeType     string `json:"mimeType"`
}

// SynthesizeRequest carries reply text for synthesis. Variant selects the
// voice; an empty variant uses the default voice.
type SynthesizeRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text"`
	Variant   string `json:"variant"`
}
