package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/domain/services/generation"
	domainllm "neurostudy/internal/domain/services/llm"
)

func TestRefine(t *testing.T) {
	tests := []struct {
		name     string
		req      *generation.RefineRequest
		wantErr  error
		wantText string
	}{
		{"simplify", &generation.RefineRequest{Text: "Entropy", Task: generation.RefineSimplify}, nil, "like I'm five"},
		{"example", &generation.RefineRequest{Text: "Entropy", Task: generation.RefineExample}, nil, "ONE short, real-world example"},
		{"mnemonic", &generation.RefineRequest{Text: "Entropy", Task: generation.RefineMnemonic}, nil, "ONE creative mnemonic"},
		{"unknown task", &generation.RefineRequest{Text: "Entropy", Task: "poem"}, domain.ErrValidation, ""},
		{"empty text", &generation.RefineRequest{Task: generation.RefineSimplify}, domain.ErrValidation, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(req *domainllm.GenerateRequest) (string, error) {
				return "  Disorder grows.  ", nil
			})

			got, err := env.gen.Refine(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Refine: %v", err)
			}
			if got.Text != "Disorder grows." {
				t.Errorf("text = %q", got.Text)
			}
			prompt := promptText(env.provider.calls()[0])
			if !strings.Contains(prompt, tt.wantText) || !strings.Contains(prompt, "Answer in English") {
				t.Errorf("prompt = %s", prompt)
			}
		})
	}
}

func TestRefine_MissingCredential(t *testing.T) {
	env := newTestEnv(t, func(req *domainllm.GenerateRequest) (string, error) {
		return "x", nil
	})
	env.resolver.err = &domain.UnavailableError{Message: "no key"}

	_, err := env.gen.Refine(context.Background(), &generation.RefineRequest{Text: "x", Task: generation.RefineSimplify})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestDiagram(t *testing.T) {
	env := newTestEnv(t, func(req *domainllm.GenerateRequest) (string, error) {
		return `Here you go: {"title": "Cell", "nodes": [{"id": "n1", "label": "Nucleus"}], "edges": []}`, nil
	})

	got, err := env.gen.Diagram(context.Background(), &generation.DiagramRequest{Description: "parts of a cell"})
	if err != nil {
		t.Fatalf("Diagram: %v", err)
	}
	if got.DataURI != "data:image/png;base64,cG5n" {
		t.Errorf("data uri = %q", got.DataURI)
	}
	if got.Spec.Title != "Cell" || len(got.Spec.Nodes) != 1 {
		t.Errorf("spec = %+v", got.Spec)
	}

	if _, err := env.gen.Diagram(context.Background(), &generation.DiagramRequest{}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty description: expected ErrValidation, got %v", err)
	}
}

func TestChat_SendsLastTenMessages(t *testing.T) {
	env := newTestEnv(t, func(req *domainllm.GenerateRequest) (string, error) {
		return "What do you think?", nil
	})

	var history []models.ChatMessage
	for i := 0; i < 14; i++ {
		role := models.ChatRoleUser
		if i%2 == 1 {
			role = models.ChatRoleModel
		}
		history = append(history, models.ChatMessage{Role: role, Text: fmt.Sprintf("m%d", i)})
	}

	got, err := env.gen.Chat(context.Background(), testUser, &generation.ChatRequest{
		History: history,
		Message: "Why is the sky blue?",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.Role != models.ChatRoleModel || got.Text != "What do you think?" || got.ID == "" {
		t.Errorf("reply = %+v", got)
	}

	req := env.provider.calls()[0]
	if len(req.Messages) != 11 {
		t.Fatalf("messages = %d, want 10 history + 1", len(req.Messages))
	}
	if first := req.Messages[0]; first.Parts[0].Text != "m4" || first.Role != domainllm.RoleUser {
		t.Errorf("first message = %+v, want m4 from user", first)
	}
	if req.Messages[1].Role != domainllm.RoleAssistant {
		t.Errorf("model turn not mapped to assistant")
	}
	if last := req.Messages[10]; last.Parts[0].Text != "Why is the sky blue?" {
		t.Errorf("last message = %+v", last)
	}
	if req.Temperature == nil || *req.Temperature != chatTemperature {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if strings.Contains(req.System, "is studying") {
		t.Errorf("system prompt has study context without a study:\n%s", req.System)
	}
}

func TestChat_UsesStudyGuide(t *testing.T) {
	env := newTestEnv(t, func(req *domainllm.GenerateRequest) (string, error) {
		return "", nil
	})
	s := env.mustStudyWithGuide(t, models.ModeNormal)

	got, err := env.gen.Chat(context.Background(), testUser, &generation.ChatRequest{
		StudyID: &s.ID,
		Message: "Help",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.Text != emptyChatReply {
		t.Errorf("empty reply = %q, want %q", got.Text, emptyChatReply)
	}

	sys := env.provider.calls()[0].System
	for _, want := range []string{"Mitochondria", "How cells make energy.", "Read the intro, Study the diagram"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt lacks %q:\n%s", want, sys)
		}
	}
}

func TestChat_UnknownStudy(t *testing.T) {
	env := newTestEnv(t, func(req *domainllm.GenerateRequest) (string, error) {
		return "x", nil
	})
	missing := "nope"

	_, err := env.gen.Chat(context.Background(), testUser, &generation.ChatRequest{StudyID: &missing, Message: "hi"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
