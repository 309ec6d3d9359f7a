package study

import (
	"fmt"
	"strings"
	"time"
)

// SourceType classifies study material.
type SourceType string

const (
	SourceText  SourceType = "TEXT"
	SourcePDF   SourceType = "PDF"
	SourceDOI   SourceType = "DOI"
	SourceVideo SourceType = "VIDEO"
	SourceURL   SourceType = "URL"
	SourceImage SourceType = "IMAGE"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceText, SourcePDF, SourceDOI, SourceVideo, SourceURL, SourceImage:
		return true
	}
	return false
}

// IsBinary reports whether content holds base64-encoded bytes rather than text.
func (t SourceType) IsBinary() bool {
	return t == SourcePDF || t == SourceVideo || t == SourceImage
}

// ParseSourceType parses a source type name (case-insensitive).
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown source type %q", s)
	}
	return t, nil
}

// SourceTypeForMIME maps an upload's mime type to a source type.
// Anything that is not a PDF, audio/video or image is treated as text.
func SourceTypeForMIME(mimeType string) SourceType {
	mt := strings.ToLower(mimeType)
	switch {
	case mt == "application/pdf":
		return SourcePDF
	case strings.HasPrefix(mt, "video/"), strings.HasPrefix(mt, "audio/"):
		return SourceVideo
	case strings.HasPrefix(mt, "image/"):
		return SourceImage
	default:
		return SourceText
	}
}

// Source is one piece of material attached to a session. Immutable once added.
type Source struct {
	ID        string     `json:"id"`
	Type      SourceType `json:"type"`
	Name      string     `json:"name"`
	Content   string     `json:"content"`
	MimeType  string     `json:"mime_type,omitempty"`
	DateAdded time.Time  `json:"date_added"`
}

// EffectiveMimeType returns the declared mime type or a default for the source type.
func (s *Source) EffectiveMimeType() string {
	if s.MimeType != "" {
		return s.MimeType
	}
	switch s.Type {
	case SourcePDF:
		return "application/pdf"
	case SourceImage:
		return "image/png"
	case SourceVideo:
		return "video/mp4"
	default:
		return "text/plain"
	}
}
