package adapters

import (
	"context"
	"fmt"
	"strings"

	llmprovider "github.com/haowjy/meridian-llm-go"
	"github.com/haowjy/meridian-llm-go/providers/lorem"

	domainllm "neurostudy/internal/domain/services/llm"
)

const blockTypeText = "text"

// LoremAdapter wraps the library's Lorem provider so the app can run without
// an API key. Its output is placeholder text.
type LoremAdapter struct {
	provider llmprovider.Provider
}

// NewLoremAdapter creates a new Lorem adapter using the library's provider.
func NewLoremAdapter() *LoremAdapter {
	return NewLoremAdapterWithProvider(lorem.NewProvider())
}

// NewLoremAdapterWithProvider creates a new Lorem adapter from an existing provider.
func NewLoremAdapterWithProvider(provider llmprovider.Provider) *LoremAdapter {
	return &LoremAdapter{
		provider: provider,
	}
}

// Name returns the provider name.
func (a *LoremAdapter) Name() string {
	return a.provider.Name().String()
}

// SupportsModel returns true if this provider supports the given model.
func (a *LoremAdapter) SupportsModel(model string) bool {
	return a.provider.SupportsModel(model)
}

// Generate generates a response from the Lorem provider.
func (a *LoremAdapter) Generate(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	libResp, err := a.provider.GenerateResponse(ctx, toLibraryRequest(req))
	if err != nil {
		return nil, fmt.Errorf("lorem: %w", err)
	}
	return fromLibraryResponse(libResp), nil
}

// toLibraryRequest converts a request to the library format. Binary parts are
// described by their mime type since the library only carries text blocks.
func toLibraryRequest(req *domainllm.GenerateRequest) *llmprovider.GenerateRequest {
	messages := make([]llmprovider.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, libraryMessage(string(domainllm.RoleUser), req.System))
	}

	for _, msg := range req.Messages {
		blocks := make([]*llmprovider.Block, 0, len(msg.Parts))
		for i, part := range msg.Parts {
			text := part.Text
			if part.IsBinary() {
				text = "[attachment " + part.MimeType + "]"
			}
			blocks = append(blocks, &llmprovider.Block{
				BlockType:   blockTypeText,
				Sequence:    i,
				TextContent: &text,
			})
		}
		messages = append(messages, llmprovider.Message{
			Role:   string(msg.Role),
			Blocks: blocks,
		})
	}

	return &llmprovider.GenerateRequest{
		Messages: messages,
		Model:    req.Model,
	}
}

func libraryMessage(role, text string) llmprovider.Message {
	return llmprovider.Message{
		Role: role,
		Blocks: []*llmprovider.Block{{
			BlockType:   blockTypeText,
			TextContent: &text,
		}},
	}
}

// fromLibraryResponse joins the text blocks of a library response.
func fromLibraryResponse(resp *llmprovider.GenerateResponse) *domainllm.GenerateResponse {
	var sb strings.Builder
	for _, block := range resp.Blocks {
		if block.BlockType == blockTypeText && block.TextContent != nil {
			sb.WriteString(*block.TextContent)
		}
	}

	return &domainllm.GenerateResponse{
		Text:         sb.String(),
		Model:        resp.Model,
		InputTokens:  resp.InputTokens,
		OutputTokens: resp.OutputTokens,
		StopReason:   resp.StopReason,
	}
}
