package persona

// Persona captures one mentor style exposed to the frontend: a display name
// mapped to a backend variant identifier and a synthesis voice.
type Persona struct {
	Name        string `json:"name"`
	Variant     string `json:"variant"`
	VoiceID     string `json:"voiceId"`
	Title       string `json:"title"`
	Tone        string `json:"tone"`
	PromptHint  string `json:"promptHint"`
	Description string `json:"description,omitempty"`
}

// Variant identifiers understood by the mentor backend.
const (
	VariantBase        = "variant_base"
	VariantComfort     = "variant_comfort"
	VariantSolutions   = "variant_solutions"
	VariantInspiration = "variant_inspiration"
	VariantTough       = "variant_tough"
)

// DefaultVariant and DefaultVoice are used whenever a persona name or
// variant is not recognized. Resolution is total: an unknown name never
// fails, it falls back to the base mentor.
const (
	DefaultVariant = VariantBase
	DefaultVoice   = "en-US-Chirp3-HD-Aoede"
)

// Seed provides the five fixed mentor personas.
func Seed() []Persona {
	return []Persona{
		{
			Name:        "Aria",
			Variant:     VariantBase,
			VoiceID:     "en-US-Chirp3-HD-Aoede",
			Title:       "Balanced Guide",
			Tone:        "warm, steady, curious",
			PromptHint:  "Listen first, reflect back what you heard, then offer one concrete next step.",
			Description: "The default mentor: even-keeled guidance for everyday check-ins.",
		},
		{
			Name:        "Kai",
			Variant:     VariantComfort,
			VoiceID:     "en-US-Chirp3-HD-Leda",
			Title:       "Gentle Support",
			Tone:        "soft, validating, unhurried",
			PromptHint:  "Prioritize emotional validation over advice; never rush to solutions.",
			Description: "For overwhelmed moments: comfort before problem-solving.",
		},
		{
			Name:        "Miles",
			Variant:     VariantSolutions,
			VoiceID:     "en-US-Chirp3-HD-Orus",
			Title:       "Pragmatic Coach",
			Tone:        "direct, structured, practical",
			PromptHint:  "Turn every concern into a short, prioritized action list.",
			Description: "Cuts through noise and hands back a plan.",
		},
		{
			Name:        "Nova",
			Variant:     VariantInspiration,
			VoiceID:     "en-US-Chirp3-HD-Kore",
			Title:       "Creative Spark",
			Tone:        "energetic, expansive, encouraging",
			PromptHint:  "Reframe problems as opportunities; suggest one unexpected angle.",
			Description: "For when the user needs momentum, not sympathy.",
		},
		{
			Name:        "Rex",
			Variant:     VariantTough,
			VoiceID:     "en-US-Chirp3-HD-Charon",
			Title:       "Straight Talker",
			Tone:        "blunt, challenging, respectful",
			PromptHint:  "Name the avoidance you hear and push for commitment to a deadline.",
			Description: "Accountability without cruelty.",
		},
	}
}
