package generation

import (
	"regexp"
	"strings"

	models "neurostudy/internal/domain/models/study"
)

var (
	doiPattern = regexp.MustCompile(`(?i)\b(10\.\d{4,9}/[-._;()/:A-Z0-9]+)\b`)
	urlPattern = regexp.MustCompile(`^(http|https)://[^ "]+$`)

	doiPrefixes = []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"}
)

// inputKind says how a source reaches the guide prompt.
type inputKind int

const (
	inputText inputKind = iota
	inputBinary
	inputDOI
	inputURL
)

// classifySource decides how src is presented to the model. For DOI and URL
// inputs it also returns the cleaned identifier.
func classifySource(src *models.Source) (inputKind, string) {
	if src.Type.IsBinary() {
		return inputBinary, ""
	}

	content := strings.TrimSpace(src.Content)
	switch src.Type {
	case models.SourceDOI:
		if doi := findDOI(content); doi != "" {
			return inputDOI, doi
		}
		return inputDOI, cleanDOI(content)
	case models.SourceURL:
		return inputURL, normalizeURL(content)
	}

	// Free text that is just an identifier is treated as one.
	if !strings.ContainsAny(content, " \n\t") {
		if isURL(content) {
			return inputURL, normalizeURL(content)
		}
		if doi := findDOI(content); doi != "" && strings.HasSuffix(cleanDOI(content), doi) {
			return inputDOI, doi
		}
	}
	return inputText, ""
}

// cleanDOI strips doi: and resolver prefixes.
func cleanDOI(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range doiPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

func findDOI(s string) string {
	m := doiPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

func isURL(s string) bool {
	return urlPattern.MatchString(s) || strings.HasPrefix(strings.ToLower(s), "www.")
}

func normalizeURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), "www.") {
		return "https://" + s
	}
	return s
}

// contentPromptFor picks the material instructions for the guide system prompt.
func contentPromptFor(src *models.Source) string {
	switch src.Type {
	case models.SourceVideo:
		return "content_video"
	case models.SourceImage:
		return "content_image"
	case models.SourcePDF:
		return "content_document"
	default:
		return "content_text"
	}
}

func modePromptFor(mode models.Mode) string {
	switch mode {
	case models.ModeTurbo:
		return "mode_turbo"
	case models.ModeSurvival:
		return "mode_survival"
	default:
		return "mode_normal"
	}
}
