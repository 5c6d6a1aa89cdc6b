package translation

import "context"

// Provider translates free-form text between languages. Batch invocation
// sends one request covering several units and returns the provider's raw
// multi-line reply; ParseBatchReply recovers per-unit translations from it.
type Provider interface {
	Translate(ctx context.Context, req Request) (*Response, error)
	TranslateBatch(ctx context.Context, req BatchRequest) (string, error)
	Name() string
	SupportedLanguages() []string
}

// Request describes one translation request.
type Request struct {
	Text       string
	SourceLang string // ISO 639-1 (for example: "zh", "en")
	TargetLang string
}

// Response contains translated text and provider metadata.
type Response struct {
	Text         string
	SourceLang   string
	TargetLang   string
	ProviderName string
	LatencyMs    int64
}

// BatchRequest describes one multi-unit translation request. Texts keep the
// caller's window order; the reply tags each line with its 1-based position.
type BatchRequest struct {
	Texts      []string
	SourceLang string
	TargetLang string
}
