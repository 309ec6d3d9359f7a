package generation

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	models "neurostudy/internal/domain/models/study"
	domainllm "neurostudy/internal/domain/services/llm"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/repository/memory"
	studyService "neurostudy/internal/service/study"
)

const testUser = "user-1"

// mockProvider answers with reply and records every request.
type mockProvider struct {
	mu       sync.Mutex
	requests []*domainllm.GenerateRequest
	reply    func(req *domainllm.GenerateRequest) (string, error)
}

func (m *mockProvider) Generate(ctx context.Context, req *domainllm.GenerateRequest) (*domainllm.GenerateResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	text, err := m.reply(req)
	if err != nil {
		return nil, err
	}
	return &domainllm.GenerateResponse{Text: text, Model: req.Model}, nil
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) SupportsModel(string) bool { return true }

func (m *mockProvider) calls() []*domainllm.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domainllm.GenerateRequest(nil), m.requests...)
}

type mockResolver struct {
	provider domainllm.Provider
	err      error
}

func (r *mockResolver) Resolve(model string) (domainllm.Provider, string, error) {
	if r.err != nil {
		return nil, "", r.err
	}
	return r.provider, "mock-model", nil
}

type mockBibliography struct {
	meta *models.DOIMetadata
	err  error
}

func (b *mockBibliography) LookupDOI(ctx context.Context, doi string) (*models.DOIMetadata, error) {
	return b.meta, b.err
}

type mockRenderer struct {
	mu    sync.Mutex
	specs []*models.DiagramSpec
}

func (r *mockRenderer) RenderPNG(spec *models.DiagramSpec) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, spec)
	return []byte("png"), nil
}

type testEnv struct {
	studies  studySvc.StudyService
	gen      *Generator
	provider *mockProvider
	resolver *mockResolver
	bib      *mockBibliography
	renderer *mockRenderer
}

func newTestEnv(t *testing.T, reply func(req *domainllm.GenerateRequest) (string, error)) *testEnv {
	t.Helper()

	store := memory.NewStore()
	folderRepo := memory.NewFolderRepository(store)
	sessionRepo := memory.NewSessionRepository(store)
	txManager := memory.NewTransactionManager(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	viewState := studyService.NewViewStateService(sessionRepo)
	folders := studyService.NewFolderService(folderRepo, sessionRepo, txManager, viewState, logger)
	if err := folders.EnsureDefaults(context.Background(), testUser); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	env := &testEnv{
		studies:  studyService.NewStudyService(folderRepo, sessionRepo, txManager, viewState, logger),
		provider: &mockProvider{reply: reply},
		bib:      &mockBibliography{},
		renderer: &mockRenderer{},
	}
	env.resolver = &mockResolver{provider: env.provider}

	gen, err := NewGenerator(env.studies, env.resolver, memory.NewGuard(), env.bib, nil, env.renderer, Settings{
		Language: "English",
	}, logger)
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	env.gen = gen
	return env
}

// mustStudy creates a study in the default folder with one source.
func (e *testEnv) mustStudy(t *testing.T, mode models.Mode, src *studySvc.AddSourceRequest) *models.Session {
	t.Helper()
	ctx := context.Background()

	s, err := e.studies.CreateStudy(ctx, testUser, &studySvc.CreateStudyRequest{
		FolderID: models.DefaultFolderID,
		Title:    "Cell biology",
		Mode:     mode,
	})
	if err != nil {
		t.Fatalf("create study: %v", err)
	}
	if src != nil {
		if s, err = e.studies.AddSource(ctx, testUser, s.ID, src); err != nil {
			t.Fatalf("add source: %v", err)
		}
	}
	return s
}

// mustStudyWithGuide creates a study whose guide is already stored.
func (e *testEnv) mustStudyWithGuide(t *testing.T, mode models.Mode) *models.Session {
	t.Helper()
	s := e.mustStudy(t, mode, nil)
	s, err := e.studies.UpdateGuide(context.Background(), testUser, s.ID, sampleGuide())
	if err != nil {
		t.Fatalf("update guide: %v", err)
	}
	return s
}

func sampleGuide() *models.Guide {
	return &models.Guide{
		Subject:  "Mitochondria",
		Overview: "How cells make energy.",
		CoreConcepts: []models.CoreConcept{
			{Concept: "ATP", Definition: "Energy currency"},
		},
		Checkpoints: []models.Checkpoint{
			{Mission: "Read the intro", NoteExactly: "ATP is made in mitochondria", DrawLabel: models.DrawNone},
			{Mission: "Study the diagram", DrawExactly: "Krebs cycle", DrawLabel: models.DrawEssential},
		},
	}
}

const guideJSON = "```json\n" + `{
  "subject": "Photosynthesis",
  "overview": "Plants turn light into sugar.",
  "coreConcepts": [{"concept": "Chlorophyll", "definition": "Green pigment"}],
  "checkpoints": [
    {"mission": "Watch the intro", "timestamp": "00:00-05:00", "lookFor": "the equation",
     "noteExactly": "6CO2 + 6H2O -> C6H12O6 + 6O2", "drawExactly": "", "drawLabel": "none",
     "question": "What are the inputs?"}
  ]
}` + "\n```"

// promptText joins the text parts of every message in req.
func promptText(req *domainllm.GenerateRequest) string {
	var sb strings.Builder
	for _, m := range req.Messages {
		for _, p := range m.Parts {
			sb.WriteString(p.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
