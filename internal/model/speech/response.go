package speech

// TranscribeResponse is the outcome of one recognition call. An empty
// Transcript with NoSpeech set means the audio contained no usable speech;
// that is guidance for the user, not a failure.
type TranscribeResponse struct {
	SessionID  string  `json:"sessionId,omitempty"`
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence,omitempty"`
	NoSpeech   bool    `json:"-"`
}

// SynthesizeResponse holds the synthesized audio for one reply.
type SynthesizeResponse struct {
	SessionID    string `json:"sessionId,omitempty"`
	AudioContent []byte `json:"-"`
	Format       string `json:"format"` // always "mp3" for the Google client
	Voice        string `json:"voice,omitempty"`
}
