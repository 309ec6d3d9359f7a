package study

import "time"

// DrawLabel grades how much a checkpoint depends on its drawing.
type DrawLabel string

const (
	DrawEssential  DrawLabel = "essential"
	DrawSuggestion DrawLabel = "suggestion"
	DrawNone       DrawLabel = "none"
)

// Normalize maps unknown or empty labels to DrawNone.
func (l DrawLabel) Normalize() DrawLabel {
	switch l {
	case DrawEssential, DrawSuggestion:
		return l
	}
	return DrawNone
}

// Guide is the active study script generated from a source.
type Guide struct {
	Subject      string        `json:"subject"`
	Overview     string        `json:"overview"`
	CoreConcepts []CoreConcept `json:"core_concepts"`
	Checkpoints  []Checkpoint  `json:"checkpoints"`
}

type CoreConcept struct {
	Concept    string `json:"concept"`
	Definition string `json:"definition"`
}

// Checkpoint is one step of the study script. NoteExactly, DrawExactly and
// Completed are user-editable; everything else only changes on regeneration.
type Checkpoint struct {
	Mission     string     `json:"mission"`
	Timestamp   string     `json:"timestamp"`
	LookFor     string     `json:"look_for"`
	NoteExactly string     `json:"note_exactly"`
	DrawExactly string     `json:"draw_exactly"`
	DrawLabel   DrawLabel  `json:"draw_label"`
	Question    string     `json:"question"`
	ImageURL    string     `json:"image_url,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Progress returns the number of completed checkpoints and the total.
func (g *Guide) Progress() (completed, total int) {
	for _, cp := range g.Checkpoints {
		if cp.Completed {
			completed++
		}
	}
	return completed, len(g.Checkpoints)
}

// Clone returns a deep copy of the guide.
func (g *Guide) Clone() *Guide {
	if g == nil {
		return nil
	}
	c := *g
	if g.CoreConcepts != nil {
		c.CoreConcepts = make([]CoreConcept, len(g.CoreConcepts))
		copy(c.CoreConcepts, g.CoreConcepts)
	}
	if g.Checkpoints != nil {
		c.Checkpoints = make([]Checkpoint, len(g.Checkpoints))
		for i, cp := range g.Checkpoints {
			if cp.CompletedAt != nil {
				t := *cp.CompletedAt
				cp.CompletedAt = &t
			}
			c.Checkpoints[i] = cp
		}
	}
	return &c
}
