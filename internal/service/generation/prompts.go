package generation

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/catalog.yaml
var catalogYAML []byte

// Prompt names in the catalog.
const (
	promptGuideSystem      = "guide_system"
	promptGuideBinary      = "guide_binary"
	promptGuideText        = "guide_text"
	promptGuideDOI         = "guide_doi"
	promptGuideDOIFallback = "guide_doi_fallback"
	promptGuideURL         = "guide_url"
	promptGuideURLFallback = "guide_url_fallback"
	promptSlides           = "slides"
	promptQuiz             = "quiz"
	promptQuizFixed        = "quiz_fixed"
	promptQuizMixed        = "quiz_mixed"
	promptFlashcards       = "flashcards"
	promptChatSystem       = "chat_system"
	promptDiagram          = "diagram"
)

// promptSet holds the parsed templates and the output language they are rendered with.
type promptSet struct {
	language  string
	templates map[string]*template.Template
}

// loadPrompts parses the embedded catalog.
func loadPrompts(language string) (*promptSet, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(catalogYAML, &raw); err != nil {
		return nil, fmt.Errorf("parse prompt catalog: %w", err)
	}

	ps := &promptSet{
		language:  language,
		templates: make(map[string]*template.Template, len(raw)),
	}
	for name, text := range raw {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", name, err)
		}
		ps.templates[name] = tmpl
	}
	return ps, nil
}

// render executes the named prompt. data must be a map; Language is added.
func (p *promptSet) render(name string, data map[string]any) (string, error) {
	tmpl, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt %q", name)
	}

	vars := make(map[string]any, len(data)+1)
	for k, v := range data {
		vars[k] = v
	}
	vars["Language"] = p.language

	var sb strings.Builder
	if err := tmpl.Execute(&sb, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), nil
}
