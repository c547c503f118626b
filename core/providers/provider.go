package providers

import "context"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of context passed to a model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Completion is the result of a text generation call.
type Completion struct {
	Text       string
	TokensUsed int
}

// CompletionOptions tune a single completion call. Zero values fall back
// to the provider's configured defaults.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// CompletionService generates text and structured output from a model.
type CompletionService interface {
	// Complete generates a reply to the conversation, steered by the
	// system prompt.
	Complete(ctx context.Context, systemPrompt string, messages []Message, opts CompletionOptions) (*Completion, error)

	// CompleteStructured asks the model to answer as an object matching
	// the given JSON schema and returns the parsed object.
	CompleteStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error)
}

// EmbeddingService converts text into dense vectors.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// ProviderType identifies a model provider backend.
type ProviderType string

const (
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
)
