package anthropic

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"neurostudy/internal/domain"
	domainllm "neurostudy/internal/domain/services/llm"
)

// convertToAnthropicMessages converts domain messages to Anthropic SDK format.
// PDFs become document blocks and images become image blocks; other binary
// types are rejected.
func convertToAnthropicMessages(messages []domainllm.Message) ([]anthropic.MessageParam, error) {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for i, msg := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))

		for _, part := range msg.Parts {
			block, err := convertPart(part)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			blocks = append(blocks, block)
		}

		if len(blocks) == 0 {
			return nil, fmt.Errorf("message %d: no content", i)
		}

		var message anthropic.MessageParam
		switch msg.Role {
		case domainllm.RoleUser:
			message = anthropic.NewUserMessage(blocks...)
		case domainllm.RoleAssistant:
			message = anthropic.NewAssistantMessage(blocks...)
		default:
			return nil, fmt.Errorf("message %d: unsupported role '%s'", i, msg.Role)
		}

		result = append(result, message)
	}

	return result, nil
}

func convertPart(part domainllm.Part) (anthropic.ContentBlockParamUnion, error) {
	if !part.IsBinary() {
		return anthropic.NewTextBlock(part.Text), nil
	}

	mimeType := strings.ToLower(part.MimeType)
	switch {
	case mimeType == "application/pdf":
		return anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: part.Data}), nil
	case isSupportedImage(mimeType):
		return anthropic.NewImageBlockBase64(mimeType, part.Data), nil
	default:
		return anthropic.ContentBlockParamUnion{}, fmt.Errorf("%w: media type %q is not supported by this model", domain.ErrValidation, part.MimeType)
	}
}

func isSupportedImage(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

// convertFromAnthropicResponse joins the text content of a response.
func convertFromAnthropicResponse(msg *anthropic.Message) *domainllm.GenerateResponse {
	var sb strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}

	return &domainllm.GenerateResponse{
		Text:         sb.String(),
		Model:        string(msg.Model),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		StopReason:   string(msg.StopReason),
	}
}
