package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"neurostudy/internal/config"
	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/domain/services/generation"
	domainllm "neurostudy/internal/domain/services/llm"
	studySvc "neurostudy/internal/domain/services/study"
	"neurostudy/internal/utils"
)

const (
	guideTemperature = 0.4
	chatTemperature  = 0.7

	defaultQuizQuestions = 6
)

// Processing artifact names.
const (
	artifactGuide      = "guide"
	artifactSlides     = "slides"
	artifactQuiz       = "quiz"
	artifactFlashcards = "flashcards"
	artifactAll        = "artifacts"
	artifactDiagram    = "diagram"
)

// Settings tunes model calls.
type Settings struct {
	// Model is a "provider/model" string. Empty uses the registry default.
	Model string

	// Timeout bounds a single model call. Zero means no limit beyond the request context.
	Timeout time.Duration

	// Language is the output language written into every prompt.
	Language string
}

// Generator runs model generation for studies and the stateless assist calls.
type Generator struct {
	studies   studySvc.StudyService
	providers domainllm.Resolver
	guard     generation.Guard
	bib       generation.Bibliography
	pages     generation.PageFetcher
	renderer  generation.DiagramRenderer
	prompts   *promptSet
	settings  Settings
	logger    *slog.Logger
}

var (
	_ generation.Service       = (*Generator)(nil)
	_ generation.AssistService = (*Generator)(nil)
)

// NewGenerator creates a generator. bib and pages may be nil; DOI and URL
// sources then fall back to prompts that rely on the model's own knowledge.
func NewGenerator(
	studies studySvc.StudyService,
	providers domainllm.Resolver,
	guard generation.Guard,
	bib generation.Bibliography,
	pages generation.PageFetcher,
	renderer generation.DiagramRenderer,
	settings Settings,
	logger *slog.Logger,
) (*Generator, error) {
	prompts, err := loadPrompts(settings.Language)
	if err != nil {
		return nil, err
	}
	return &Generator{
		studies:   studies,
		providers: providers,
		guard:     guard,
		bib:       bib,
		pages:     pages,
		renderer:  renderer,
		prompts:   prompts,
		settings:  settings,
		logger:    logger,
	}, nil
}

// modelCall is the provider and model resolved for one operation.
type modelCall struct {
	provider domainllm.Provider
	model    string
}

func (mc *modelCall) upstream(err error) error {
	return &domain.UpstreamError{Service: mc.provider.Name(), Err: err}
}

// GenerateGuide builds the guide from the study's latest source. A requested
// mode is used for the prompt and stored together with the new guide.
func (g *Generator) GenerateGuide(ctx context.Context, userID, studyID string, req *generation.GuideRequest) (*models.Session, error) {
	var mode *models.Mode
	if req != nil && req.Mode != nil {
		if !req.Mode.Valid() {
			return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, *req.Mode)
		}
		mode = req.Mode
	}

	release, err := g.acquire(ctx, userID, studyID)
	if err != nil {
		return nil, err
	}
	defer release()

	return g.run(ctx, userID, studyID, artifactGuide, false, func(ctx context.Context, study *models.Session, mc *modelCall) error {
		effective := study.Mode
		if mode != nil {
			effective = *mode
		}

		src := study.LatestSource()
		if src == nil {
			return fmt.Errorf("%w: study has no sources", domain.ErrValidation)
		}

		step := models.StepAnalyzing
		if src.Type == models.SourceVideo {
			step = models.StepTranscribing
		}
		g.setStep(ctx, userID, studyID, artifactGuide, step, "")

		system, err := g.guideSystemPrompt(effective, src)
		if err != nil {
			return err
		}
		msg, err := g.guideInput(ctx, src)
		if err != nil {
			return err
		}

		g.setStep(ctx, userID, studyID, artifactGuide, models.StepGenerating, "")
		temp := guideTemperature
		r, err := g.generateJSON(ctx, mc, &domainllm.GenerateRequest{
			System:      system,
			Messages:    []domainllm.Message{msg},
			Temperature: &temp,
		})
		if err != nil {
			return err
		}
		guide, err := parseGuide(r)
		if err != nil {
			return mc.upstream(err)
		}

		_, err = g.studies.UpdateArtifacts(ctx, userID, studyID, &studySvc.ArtifactsUpdate{Mode: mode, Guide: guide})
		return err
	})
}

// GenerateSlides builds the slide deck from the stored guide.
func (g *Generator) GenerateSlides(ctx context.Context, userID, studyID string) (*models.Session, error) {
	return g.generateArtifacts(ctx, userID, studyID, artifactSlides, artifactSet{slides: true}, nil)
}

// GenerateQuiz builds a quiz from the stored guide.
func (g *Generator) GenerateQuiz(ctx context.Context, userID, studyID string, cfg *generation.QuizConfig) (*models.Session, error) {
	return g.generateArtifacts(ctx, userID, studyID, artifactQuiz, artifactSet{quiz: true}, cfg)
}

// GenerateFlashcards builds flashcards from the stored guide.
func (g *Generator) GenerateFlashcards(ctx context.Context, userID, studyID string) (*models.Session, error) {
	return g.generateArtifacts(ctx, userID, studyID, artifactFlashcards, artifactSet{flashcards: true}, nil)
}

// GenerateArtifacts builds the selected guide-derived artifacts concurrently.
// Nothing is stored unless every selected artifact succeeds.
func (g *Generator) GenerateArtifacts(ctx context.Context, userID, studyID string, req *generation.ArtifactsRequest) (*models.Session, error) {
	want := artifactSet{slides: true, quiz: true, flashcards: true}
	var cfg *generation.QuizConfig
	if req != nil {
		if req.Slides || req.Quiz || req.Flashcards {
			want = artifactSet{slides: req.Slides, quiz: req.Quiz, flashcards: req.Flashcards}
		}
		cfg = req.QuizConfig
	}
	return g.generateArtifacts(ctx, userID, studyID, artifactAll, want, cfg)
}

type artifactSet struct {
	slides, quiz, flashcards bool
}

func (g *Generator) generateArtifacts(ctx context.Context, userID, studyID, artifact string, want artifactSet, cfg *generation.QuizConfig) (*models.Session, error) {
	if want.quiz {
		if err := validateQuizConfig(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}

	release, err := g.acquire(ctx, userID, studyID)
	if err != nil {
		return nil, err
	}
	defer release()

	return g.run(ctx, userID, studyID, artifact, true, func(ctx context.Context, study *models.Session, mc *modelCall) error {
		g.setStep(ctx, userID, studyID, artifact, models.StepGenerating, "")

		var (
			slides []models.Slide
			quiz   []models.QuizQuestion
			cards  []models.Flashcard
		)
		eg, egCtx := errgroup.WithContext(ctx)
		if want.slides {
			eg.Go(func() error {
				var err error
				slides, err = g.slidesFor(egCtx, mc, study.Guide)
				return err
			})
		}
		if want.quiz {
			eg.Go(func() error {
				var err error
				quiz, err = g.quizFor(egCtx, mc, study.Guide, study.Mode, cfg)
				return err
			})
		}
		if want.flashcards {
			eg.Go(func() error {
				var err error
				cards, err = g.flashcardsFor(egCtx, mc, study.Guide)
				return err
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}

		_, err := g.studies.UpdateArtifacts(ctx, userID, studyID, &studySvc.ArtifactsUpdate{
			Slides:     slides,
			Quiz:       quiz,
			Flashcards: cards,
		})
		return err
	})
}

// GenerateCheckpointDiagram draws the checkpoint's sketch (or its mission when
// there is none) and stores the PNG data URI as the checkpoint image.
func (g *Generator) GenerateCheckpointDiagram(ctx context.Context, userID, studyID string, index int) (*models.Session, error) {
	release, err := g.acquire(ctx, userID, studyID)
	if err != nil {
		return nil, err
	}
	defer release()

	return g.run(ctx, userID, studyID, artifactDiagram, true, func(ctx context.Context, study *models.Session, mc *modelCall) error {
		if index < 0 || index >= len(study.Guide.Checkpoints) {
			return fmt.Errorf("checkpoint %d: %w", index, domain.ErrNotFound)
		}
		cp := study.Guide.Checkpoints[index]
		description := cp.DrawExactly
		if strings.TrimSpace(description) == "" {
			description = cp.Mission
		}

		g.setStep(ctx, userID, studyID, artifactDiagram, models.StepGenerating, "")
		dataURI, _, err := g.drawDiagram(ctx, mc, description)
		if err != nil {
			return err
		}

		_, err = g.studies.UpdateCheckpoint(ctx, userID, studyID, index, &studySvc.UpdateCheckpointRequest{ImageURL: &dataURI})
		return err
	})
}

// run loads the study, resolves the provider and executes fn. Upstream failures
// are recorded on the study's processing state. A missing provider credential
// fails before anything is recorded.
func (g *Generator) run(
	ctx context.Context,
	userID, studyID, artifact string,
	needGuide bool,
	fn func(ctx context.Context, study *models.Session, mc *modelCall) error,
) (*models.Session, error) {
	study, err := g.studies.GetStudy(ctx, userID, studyID)
	if err != nil {
		return nil, err
	}
	if needGuide && study.Guide == nil {
		return nil, fmt.Errorf("%w: study has no guide yet", domain.ErrValidation)
	}

	mc, err := g.resolve()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := fn(ctx, study, mc); err != nil {
		if errors.Is(err, domain.ErrUpstream) {
			g.setStep(context.WithoutCancel(ctx), userID, studyID, artifact, models.StepError, err.Error())
		}
		g.logger.Warn("generation failed",
			"study_id", studyID,
			"artifact", artifact,
			"provider", mc.provider.Name(),
			"error", err,
		)
		return nil, err
	}

	g.setStep(ctx, userID, studyID, artifact, models.StepDone, "")
	g.logger.Info("generation finished",
		"study_id", studyID,
		"artifact", artifact,
		"model", mc.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return g.studies.GetStudy(ctx, userID, studyID)
}

func (g *Generator) acquire(ctx context.Context, userID, studyID string) (func(), error) {
	return g.guard.Acquire(ctx, userID+":"+studyID)
}

func (g *Generator) resolve() (*modelCall, error) {
	provider, model, err := g.providers.Resolve(g.settings.Model)
	if err != nil {
		return nil, err
	}
	return &modelCall{provider: provider, model: model}, nil
}

func (g *Generator) setStep(ctx context.Context, userID, studyID, artifact string, step models.ProcessingStep, message string) {
	err := g.studies.SetProcessing(ctx, userID, studyID, &models.ProcessingState{
		Artifact: artifact,
		Step:     step,
		Error:    message,
	})
	if err != nil {
		g.logger.Warn("failed to record processing state",
			"study_id", studyID,
			"step", step,
			"error", err,
		)
	}
}

// complete sends req to the resolved model and returns its text.
func (g *Generator) complete(ctx context.Context, mc *modelCall, req *domainllm.GenerateRequest) (string, error) {
	req.Model = mc.model
	if g.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.settings.Timeout)
		defer cancel()
	}

	resp, err := mc.provider.Generate(ctx, req)
	if err != nil {
		return "", mc.upstream(err)
	}

	g.logger.Debug("model call complete",
		"provider", mc.provider.Name(),
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"stop_reason", resp.StopReason,
	)
	return resp.Text, nil
}

func (g *Generator) generateJSON(ctx context.Context, mc *modelCall, req *domainllm.GenerateRequest) (gjson.Result, error) {
	text, err := g.complete(ctx, mc, req)
	if err != nil {
		return gjson.Result{}, err
	}
	r, err := extractJSON(text)
	if err != nil {
		return gjson.Result{}, mc.upstream(err)
	}
	return r, nil
}

// prompt renders a single-message request from a catalog prompt.
func (g *Generator) prompt(name string, data map[string]any) (*domainllm.GenerateRequest, error) {
	text, err := g.prompts.render(name, data)
	if err != nil {
		return nil, err
	}
	return &domainllm.GenerateRequest{
		Messages: []domainllm.Message{domainllm.UserMessage(domainllm.TextPart(text))},
	}, nil
}

func (g *Generator) guideSystemPrompt(mode models.Mode, src *models.Source) (string, error) {
	modeText, err := g.prompts.render(modePromptFor(mode), nil)
	if err != nil {
		return "", err
	}
	contentText, err := g.prompts.render(contentPromptFor(src), nil)
	if err != nil {
		return "", err
	}
	return g.prompts.render(promptGuideSystem, map[string]any{
		"ModeInstructions":    modeText,
		"ContentInstructions": contentText,
	})
}

// guideInput builds the user message carrying the source material.
func (g *Generator) guideInput(ctx context.Context, src *models.Source) (domainllm.Message, error) {
	var (
		text string
		err  error
	)
	kind, ref := classifySource(src)
	switch kind {
	case inputBinary:
		text, err = g.prompts.render(promptGuideBinary, nil)
		if err != nil {
			return domainllm.Message{}, err
		}
		return domainllm.UserMessage(
			domainllm.DataPart(src.EffectiveMimeType(), src.Content),
			domainllm.TextPart(text),
		), nil
	case inputDOI:
		text, err = g.doiPrompt(ctx, ref)
	case inputURL:
		text, err = g.urlPrompt(ctx, ref)
	default:
		text, err = g.prompts.render(promptGuideText, map[string]any{"Content": src.Content})
	}
	if err != nil {
		return domainllm.Message{}, err
	}
	return domainllm.UserMessage(domainllm.TextPart(text)), nil
}

func (g *Generator) doiPrompt(ctx context.Context, doi string) (string, error) {
	if g.bib != nil {
		meta, err := g.bib.LookupDOI(ctx, doi)
		switch {
		case err != nil:
			g.logger.Warn("doi lookup failed, using fallback prompt", "doi", doi, "error", err)
		case meta != nil:
			abstract := meta.Abstract
			if abstract == "" {
				abstract = "abstract unavailable"
			}
			return g.prompts.render(promptGuideDOI, map[string]any{
				"DOI":      doi,
				"Title":    meta.Title,
				"Abstract": abstract,
			})
		}
	}
	return g.prompts.render(promptGuideDOIFallback, map[string]any{"DOI": doi})
}

func (g *Generator) urlPrompt(ctx context.Context, url string) (string, error) {
	if g.pages != nil {
		page, err := g.pages.FetchMarkdown(ctx, url)
		if err == nil && strings.TrimSpace(page) != "" {
			return g.prompts.render(promptGuideURL, map[string]any{
				"URL":     url,
				"Content": utils.TruncateRunes(page, config.PromptContextMaxChars),
			})
		}
		g.logger.Warn("page fetch failed, using fallback prompt", "url", url, "error", err)
	}
	return g.prompts.render(promptGuideURLFallback, map[string]any{"URL": url})
}

func (g *Generator) slidesFor(ctx context.Context, mc *modelCall, guide *models.Guide) ([]models.Slide, error) {
	req, err := g.prompt(promptSlides, map[string]any{"Context": slidesContext(guide)})
	if err != nil {
		return nil, err
	}
	r, err := g.generateJSON(ctx, mc, req)
	if err != nil {
		return nil, err
	}
	slides, err := parseSlides(r)
	if err != nil {
		return nil, mc.upstream(err)
	}
	return slides, nil
}

func (g *Generator) quizFor(ctx context.Context, mc *modelCall, guide *models.Guide, mode models.Mode, cfg *generation.QuizConfig) ([]models.QuizQuestion, error) {
	count := quizCount(mode, cfg)
	difficulty, err := g.difficultyInstructions(mode, cfg)
	if err != nil {
		return nil, err
	}

	req, err := g.prompt(promptQuiz, map[string]any{
		"Count":                  count,
		"DifficultyInstructions": difficulty,
		"Context":                quizContext(guide),
	})
	if err != nil {
		return nil, err
	}
	r, err := g.generateJSON(ctx, mc, req)
	if err != nil {
		return nil, err
	}
	quiz, err := parseQuiz(r)
	if err != nil {
		return nil, mc.upstream(err)
	}
	if len(quiz) > count {
		quiz = quiz[:count]
	}
	return quiz, nil
}

func (g *Generator) flashcardsFor(ctx context.Context, mc *modelCall, guide *models.Guide) ([]models.Flashcard, error) {
	req, err := g.prompt(promptFlashcards, map[string]any{"Context": flashcardsContext(guide)})
	if err != nil {
		return nil, err
	}
	r, err := g.generateJSON(ctx, mc, req)
	if err != nil {
		return nil, err
	}
	cards, err := parseFlashcards(r)
	if err != nil {
		return nil, mc.upstream(err)
	}
	return cards, nil
}

func (g *Generator) difficultyInstructions(mode models.Mode, cfg *generation.QuizConfig) (string, error) {
	if cfg != nil && cfg.Difficulty != "" && cfg.Difficulty != models.DifficultyMixed {
		return g.prompts.render(promptQuizFixed, map[string]any{
			"Difficulty": strings.ToUpper(string(cfg.Difficulty)),
		})
	}

	distribution, err := g.prompts.render("quiz_mix_"+strings.ToLower(string(mode)), nil)
	if err != nil {
		distribution, err = g.prompts.render("quiz_mix_normal", nil)
		if err != nil {
			return "", err
		}
	}
	return g.prompts.render(promptQuizMixed, map[string]any{
		"Mode":         string(mode),
		"Distribution": distribution,
	})
}

// quizCount is the requested quantity, or 6. Without any config SURVIVAL asks
// for 3 and TURBO for 10.
func quizCount(mode models.Mode, cfg *generation.QuizConfig) int {
	if cfg == nil {
		switch mode {
		case models.ModeSurvival:
			return 3
		case models.ModeTurbo:
			return 10
		}
		return defaultQuizQuestions
	}
	if cfg.Quantity > 0 {
		return cfg.Quantity
	}
	return defaultQuizQuestions
}

func validateQuizConfig(cfg *generation.QuizConfig) error {
	if cfg == nil {
		return nil
	}
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Quantity, validation.Min(0), validation.Max(config.MaxQuizQuestions)),
		validation.Field(&cfg.Difficulty, validation.In(
			models.DifficultyEasy,
			models.DifficultyMedium,
			models.DifficultyHard,
			models.DifficultyMixed,
		)),
	)
}

type keyPoint struct {
	Mission string `json:"mission"`
	Note    string `json:"note"`
}

func slidesContext(g *models.Guide) string {
	notes := make([]string, 0, len(g.Checkpoints))
	for _, cp := range g.Checkpoints {
		notes = append(notes, cp.NoteExactly)
	}
	return marshalContext(struct {
		Subject  string               `json:"subject"`
		Overview string               `json:"overview"`
		Concepts []models.CoreConcept `json:"concepts"`
		Notes    []string             `json:"notes"`
	}{g.Subject, g.Overview, g.CoreConcepts, notes})
}

func quizContext(g *models.Guide) string {
	points := make([]keyPoint, 0, len(g.Checkpoints))
	for _, cp := range g.Checkpoints {
		points = append(points, keyPoint{Mission: cp.Mission, Note: cp.NoteExactly})
	}
	return marshalContext(struct {
		Subject   string               `json:"subject"`
		Overview  string               `json:"overview"`
		Concepts  []models.CoreConcept `json:"concepts"`
		KeyPoints []keyPoint           `json:"keyPoints"`
	}{g.Subject, g.Overview, g.CoreConcepts, points})
}

func flashcardsContext(g *models.Guide) string {
	notes := make([]string, 0, len(g.Checkpoints))
	for _, cp := range g.Checkpoints {
		notes = append(notes, cp.NoteExactly)
	}
	return marshalContext(struct {
		Subject  string               `json:"subject"`
		Concepts []models.CoreConcept `json:"concepts"`
		Notes    []string             `json:"checkpoints"`
	}{g.Subject, g.CoreConcepts, notes})
}

// marshalContext serializes v and caps it at PromptContextMaxChars characters.
func marshalContext(v any) string {
	b, _ := json.Marshal(v)
	return utils.TruncateRunes(string(b), config.PromptContextMaxChars)
}
