package models

// Message roles shared by every backend's unified representation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Generation defaults applied when the caller leaves a knob unset.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 1.0
	DefaultMaxTokens   = 2048
)

// Message represents a single conversational turn in the unified schema.
type Message struct {
	Role    string
	Content string
}

// GenerationParams carries the provider-agnostic generation knobs for one
// chat request. Temperature and TopP pass through untranslated; each adapter
// maps them to its own wire field names.
type GenerationParams struct {
	Temperature       *float64
	TopP              *float64
	MaxTokens         int
	Model             string
	PreferredProvider string
	DisableFallback   bool
}

// WithDefaults returns a copy with unset generation knobs filled in.
func (p GenerationParams) WithDefaults() GenerationParams {
	if p.Temperature == nil {
		v := DefaultTemperature
		p.Temperature = &v
	}
	if p.TopP == nil {
		v := DefaultTopP
		p.TopP = &v
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = DefaultMaxTokens
	}
	return p
}

// Usage records token accounting information. Not every backend reports it,
// so results carry it as a pointer and leave it nil when absent.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResult captures one adapter's normalized successful response. Failures
// travel as ordinary errors alongside it, so exactly one of the pair is set.
type ChatResult struct {
	Content string
	Model   string
	Usage   *Usage
}
