package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"neurostudy/internal/config"
	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/domain/services/generation"
	domainllm "neurostudy/internal/domain/services/llm"
)

const (
	maxAssistTextLength = 20000
	emptyChatReply      = "No response."
)

// Refine rewrites a piece of study text: a simpler explanation, an example or
// a mnemonic.
func (g *Generator) Refine(ctx context.Context, req *generation.RefineRequest) (*generation.RefineResponse, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Text, validation.Required, validation.Length(1, maxAssistTextLength)),
		validation.Field(&req.Task, validation.Required, validation.By(func(value interface{}) error {
			if t, _ := value.(generation.RefineTask); !t.Valid() {
				return fmt.Errorf("must be one of simplify, example, mnemonic")
			}
			return nil
		})),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	mc, err := g.resolve()
	if err != nil {
		return nil, err
	}
	msg, err := g.prompt("refine_"+string(req.Task), map[string]any{"Text": strings.TrimSpace(req.Text)})
	if err != nil {
		return nil, err
	}
	text, err := g.complete(ctx, mc, msg)
	if err != nil {
		return nil, err
	}

	return &generation.RefineResponse{Text: strings.TrimSpace(text)}, nil
}

// Diagram asks the model for a node/edge layout of description and renders it.
func (g *Generator) Diagram(ctx context.Context, req *generation.DiagramRequest) (*generation.DiagramResponse, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Description, validation.Required, validation.Length(1, maxAssistTextLength)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	mc, err := g.resolve()
	if err != nil {
		return nil, err
	}
	dataURI, spec, err := g.drawDiagram(ctx, mc, req.Description)
	if err != nil {
		return nil, err
	}

	return &generation.DiagramResponse{DataURI: dataURI, Spec: *spec}, nil
}

func (g *Generator) drawDiagram(ctx context.Context, mc *modelCall, description string) (string, *models.DiagramSpec, error) {
	if g.renderer == nil {
		return "", nil, &domain.UnavailableError{Message: "diagram rendering is not configured"}
	}

	req, err := g.prompt(promptDiagram, map[string]any{"Description": strings.TrimSpace(description)})
	if err != nil {
		return "", nil, err
	}
	r, err := g.generateJSON(ctx, mc, req)
	if err != nil {
		return "", nil, err
	}
	spec, err := parseDiagram(r)
	if err != nil {
		return "", nil, mc.upstream(err)
	}

	png, err := g.renderer.RenderPNG(spec)
	if err != nil {
		return "", nil, fmt.Errorf("render diagram: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), spec, nil
}

// Chat answers one tutoring turn. Only the last ChatHistoryWindow history
// messages are sent. When StudyID is set the study's guide grounds the answer.
func (g *Generator) Chat(ctx context.Context, userID string, req *generation.ChatRequest) (*models.ChatMessage, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Message, validation.Required, validation.Length(1, maxAssistTextLength)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	data := map[string]any{"Subject": "", "Overview": "", "Missions": ""}
	if req.StudyID != nil && *req.StudyID != "" {
		study, err := g.studies.GetStudy(ctx, userID, *req.StudyID)
		if err != nil {
			return nil, err
		}
		if guide := study.Guide; guide != nil {
			missions := make([]string, 0, len(guide.Checkpoints))
			for _, cp := range guide.Checkpoints {
				missions = append(missions, cp.Mission)
			}
			data["Subject"] = guide.Subject
			data["Overview"] = guide.Overview
			data["Missions"] = strings.Join(missions, ", ")
		}
	}

	mc, err := g.resolve()
	if err != nil {
		return nil, err
	}
	system, err := g.prompts.render(promptChatSystem, data)
	if err != nil {
		return nil, err
	}

	temp := chatTemperature
	text, err := g.complete(ctx, mc, &domainllm.GenerateRequest{
		System:      system,
		Messages:    chatMessages(req.History, req.Message),
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = emptyChatReply
	}
	return &models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.ChatRoleModel,
		Text:      text,
		Timestamp: time.Now(),
	}, nil
}

// chatMessages keeps the tail of history and appends the new user message.
func chatMessages(history []models.ChatMessage, message string) []domainllm.Message {
	if len(history) > config.ChatHistoryWindow {
		history = history[len(history)-config.ChatHistoryWindow:]
	}

	msgs := make([]domainllm.Message, 0, len(history)+1)
	for _, m := range history {
		role := domainllm.RoleUser
		if m.Role == models.ChatRoleModel {
			role = domainllm.RoleAssistant
		}
		msgs = append(msgs, domainllm.Message{
			Role:  role,
			Parts: []domainllm.Part{domainllm.TextPart(m.Text)},
		})
	}
	return append(msgs, domainllm.UserMessage(domainllm.TextPart(message)))
}
