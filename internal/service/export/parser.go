package export

import (
	"fmt"
	"regexp"
	"strings"

	"neurostudy/internal/domain"
	models "neurostudy/internal/domain/models/study"
	"neurostudy/internal/utils"
)

var checkpointHeading = regexp.MustCompile(`^### \d+\. (.*)$`)

type section int

const (
	sectionNone section = iota
	sectionOrganizer
	sectionConcepts
	sectionCheckpoints
	sectionFooter
)

// ParseMarkdown restores a guide from the output of Markdown. Checkpoint
// completion times are not part of the export and come back empty.
func ParseMarkdown(data []byte) (*models.Guide, error) {
	var meta frontmatter
	body, err := utils.ParseFrontmatter(data, &meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	p := &parser{guide: &models.Guide{
		Subject:      meta.Subject,
		CoreConcepts: []models.CoreConcept{},
		Checkpoints:  []models.Checkpoint{},
	}}
	for _, line := range strings.Split(body, "\n") {
		p.line(strings.TrimRight(line, "\r"))
	}
	p.guide.Overview = strings.TrimSpace(strings.Join(p.overview, "\n"))

	if p.guide.Subject == "" {
		return nil, fmt.Errorf("%w: markdown has no subject", domain.ErrValidation)
	}
	return p.guide, nil
}

type parser struct {
	guide    *models.Guide
	section  section
	overview []string

	// target receives continuation lines; nil when the last line was not a field.
	target *string
}

func (p *parser) line(line string) {
	switch line {
	case headingOrganizer:
		p.enter(sectionOrganizer)
		return
	case headingConcepts:
		p.enter(sectionConcepts)
		return
	case headingCheckpoints:
		p.enter(sectionCheckpoints)
		return
	}

	if p.section == sectionOrganizer {
		p.overview = append(p.overview, line)
		return
	}

	if strings.HasPrefix(line, continuation) && p.target != nil {
		*p.target += "\n" + line[len(continuation):]
		return
	}
	p.target = nil

	switch p.section {
	case sectionNone:
		if p.guide.Subject == "" && strings.HasPrefix(line, "# ") {
			p.guide.Subject = unescapeLine(strings.TrimSpace(line[2:]))
		}
	case sectionConcepts:
		p.concept(line)
	case sectionCheckpoints:
		p.checkpoint(line)
	}
}

func (p *parser) enter(s section) {
	p.section = s
	p.target = nil
}

func (p *parser) concept(line string) {
	rest, ok := strings.CutPrefix(line, "- **")
	if !ok {
		return
	}
	name, def, ok := strings.Cut(rest, "**: ")
	if !ok {
		name, ok = strings.CutSuffix(rest, "**:")
		if !ok {
			return
		}
	}
	p.guide.CoreConcepts = append(p.guide.CoreConcepts, models.CoreConcept{Concept: unescapeLine(name), Definition: def})
	p.target = &p.guide.CoreConcepts[len(p.guide.CoreConcepts)-1].Definition
}

func (p *parser) checkpoint(line string) {
	if line == "---" {
		p.enter(sectionFooter)
		return
	}

	if m := checkpointHeading.FindStringSubmatch(line); m != nil {
		mission, completed := m[1], false
		if s, ok := strings.CutSuffix(mission, doneMark); ok {
			mission, completed = s, true
		} else if s, ok := strings.CutSuffix(mission, openMark); ok {
			mission = s
		}
		p.guide.Checkpoints = append(p.guide.Checkpoints, models.Checkpoint{
			Mission:   unescapeLine(mission),
			DrawLabel: models.DrawNone,
			Completed: completed,
		})
		return
	}

	n := len(p.guide.Checkpoints)
	if n == 0 {
		return
	}
	cp := &p.guide.Checkpoints[n-1]

	field := func(prefix string, dst *string) bool {
		v, ok := strings.CutPrefix(line, prefix)
		if !ok {
			if line != strings.TrimRight(prefix, " ") {
				return false
			}
			v = ""
		}
		*dst = v
		p.target = dst
		return true
	}

	switch {
	case field(fieldTime, &cp.Timestamp):
		cp.Timestamp = unescapeLine(cp.Timestamp)
		p.target = nil
	case field(fieldLookFor, &cp.LookFor):
	case field(fieldNote, &cp.NoteExactly):
	case field(fieldQuestion, &cp.Question):
	case strings.HasPrefix(line, drawPrefix):
		label, value, ok := strings.Cut(line[len(drawPrefix):], drawSuffix)
		if !ok {
			return
		}
		cp.DrawLabel = models.DrawLabel(label).Normalize()
		cp.DrawExactly = value
		p.target = &cp.DrawExactly
	case strings.HasPrefix(line, imagePrefix) && strings.HasSuffix(line, ")"):
		cp.ImageURL = line[len(imagePrefix) : len(line)-1]
	}
}
