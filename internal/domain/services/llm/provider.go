package llm

import (
	"context"
)

// Provider defines the interface every model backend implements. Generation
// is request/response only; nothing is streamed.
type Provider interface {
	// Generate sends one request and returns the model's text.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Name returns the provider name (e.g., "anthropic", "lorem")
	Name() string

	// SupportsModel returns true if the provider supports the given model.
	SupportsModel(model string) bool
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// GenerateRequest contains the parameters for one generation call.
type GenerateRequest struct {
	// Model is the model identifier (e.g., "claude-haiku-4-5-20251001")
	Model string

	// System is the system prompt. Empty means none.
	System string

	// Messages is the conversation, oldest first. The last message is from the user.
	Messages []Message

	// MaxTokens caps the output. Zero uses the provider default.
	MaxTokens int

	// Temperature is optional; nil uses the provider default.
	Temperature *float64
}

// Message is one turn of the conversation.
type Message struct {
	Role  Role
	Parts []Part
}

// Part is either text or inline binary data. Data is base64 and requires MimeType.
type Part struct {
	Text     string
	Data     string
	MimeType string
}

// IsBinary reports whether the part carries inline data.
func (p Part) IsBinary() bool {
	return p.Data != ""
}

// TextPart builds a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// DataPart builds an inline data part.
func DataPart(mimeType, base64Data string) Part {
	return Part{Data: base64Data, MimeType: mimeType}
}

// UserMessage builds a user message from parts.
func UserMessage(parts ...Part) Message {
	return Message{Role: RoleUser, Parts: parts}
}

// GenerateResponse contains the provider's reply.
type GenerateResponse struct {
	// Text is the concatenated text output
	Text string

	// Model is the model that was used (may differ from request if aliased)
	Model string

	InputTokens  int
	OutputTokens int

	// StopReason indicates why generation stopped (e.g., "end_turn", "max_tokens")
	StopReason string
}

// Resolver maps a model string to a provider and the provider's model name.
// An empty model resolves to the configured default.
type Resolver interface {
	Resolve(model string) (Provider, string, error)
}
