package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/utils"
)

// Line markers shared by the writer and the parser.
const (
	headingOrganizer   = "## Advance Organizer"
	headingConcepts    = "## Core Concepts"
	headingCheckpoints = "## Checkpoints"

	fieldTime     = "> **Time**: "
	fieldLookFor  = "- **Look for**: "
	fieldNote     = "- **Note**: "
	fieldQuestion = "- **Question**: "
	drawPrefix    = "- **Draw ("
	drawSuffix    = ")**: "
	imagePrefix   = "![Diagram]("

	doneMark = " [x]"
	openMark = " [ ]"

	continuation = "  "
	footer       = "*Generated by NeuroStudy*"
)

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Headings and inline labels cannot span lines, so line breaks in them are
// written as \n and a literal backslash as \\.
var (
	lineEscaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	lineUnescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

// frontmatter is the YAML header of an exported guide.
type frontmatter struct {
	Tags     []string `yaml:"tags,flow"`
	Subject  string   `yaml:"subject"`
	Date     string   `yaml:"date"`
	Status   string   `yaml:"status"`
	Progress string   `yaml:"progress"`
	Mode     string   `yaml:"mode,omitempty"`
}

// Markdown renders guide as an Obsidian-style note. Multi-line values are
// continued on lines indented by two spaces, and single-line values are
// escaped, so ParseMarkdown restores every exported field exactly.
func Markdown(guide *models.Guide, mode models.Mode, now time.Time) ([]byte, error) {
	if guide == nil {
		return nil, fmt.Errorf("no guide to export")
	}

	completed, total := guide.Progress()
	status := "active"
	if total > 0 && completed == total {
		status = "done"
	}
	meta := frontmatter{
		Tags:     []string{"study", "neurostudy"},
		Subject:  guide.Subject,
		Date:     now.Format("2006-01-02"),
		Status:   status,
		Progress: fmt.Sprintf("%d/%d", completed, total),
		Mode:     string(mode),
	}
	if tag := strings.ToLower(nonAlnum.ReplaceAllString(guide.Subject, "")); tag != "" {
		meta.Tags = append(meta.Tags, tag)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n# %s\n\n", escapeLine(guide.Subject))

	b.WriteString(headingOrganizer + "\n")
	b.WriteString(strings.TrimSpace(guide.Overview) + "\n\n")

	b.WriteString(headingConcepts + "\n")
	for _, c := range guide.CoreConcepts {
		b.WriteString("- **" + escapeLine(c.Concept) + "**: " + indent(c.Definition) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(headingCheckpoints + "\n\n")
	for i, cp := range guide.Checkpoints {
		mark := openMark
		if cp.Completed {
			mark = doneMark
		}
		fmt.Fprintf(&b, "### %d. %s%s\n", i+1, escapeLine(cp.Mission), mark)
		b.WriteString(fieldTime + escapeLine(cp.Timestamp) + "\n\n")
		b.WriteString(fieldLookFor + indent(cp.LookFor) + "\n")
		b.WriteString(fieldNote + indent(cp.NoteExactly) + "\n")
		if cp.DrawExactly != "" {
			b.WriteString(drawPrefix + string(cp.DrawLabel.Normalize()) + drawSuffix + indent(cp.DrawExactly) + "\n")
		}
		if cp.ImageURL != "" {
			b.WriteString(imagePrefix + cp.ImageURL + ")\n")
		}
		b.WriteString(fieldQuestion + indent(cp.Question) + "\n\n")
	}

	b.WriteString("---\n" + footer + "\n")

	return utils.FormatFrontmatter(meta, b.String())
}

// Filename is the download name for a guide's export.
func Filename(subject string) string {
	base := strings.ToLower(nonAlnum.ReplaceAllString(strings.TrimSpace(subject), "_"))
	if base == "" {
		base = "study"
	}
	return base + "_obsidian.md"
}

func escapeLine(s string) string {
	return lineEscaper.Replace(s)
}

func unescapeLine(s string) string {
	return lineUnescaper.Replace(s)
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n"+continuation)
}
