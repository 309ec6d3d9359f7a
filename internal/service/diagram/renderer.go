package diagram

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	models "neurostudy/internal/domain/models/study"
)

const (
	nodeWidth  = 220.0
	nodeHeight = 84.0
	gapX       = 48.0
	gapY       = 72.0
	margin     = 40.0
	titleSpace = 56.0
	minWidth   = 640.0

	labelSize = 16.0
	titleSize = 24.0
	edgeSize  = 13.0
)

var (
	background = color.White
	nodeFill   = color.NRGBA{R: 0xEE, G: 0xF3, B: 0xFB, A: 0xFF}
	nodeStroke = color.NRGBA{R: 0x2B, G: 0x4C, B: 0x7E, A: 0xFF}
	edgeColor  = color.NRGBA{R: 0x55, G: 0x55, B: 0x55, A: 0xFF}
	textColor  = color.NRGBA{R: 0x1A, G: 0x1A, B: 0x1A, A: 0xFF}
)

// Renderer draws diagram specs as layered box-and-arrow PNGs on a white
// background. Safe for concurrent use.
type Renderer struct {
	font *truetype.Font
}

// NewRenderer parses the embedded Go font.
func NewRenderer() (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return &Renderer{font: f}, nil
}

func (r *Renderer) face(size float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

type point struct{ x, y float64 }

// RenderPNG lays nodes out in rows by their distance from the roots and
// returns the encoded image.
func (r *Renderer) RenderPNG(spec *models.DiagramSpec) ([]byte, error) {
	if spec == nil || len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("diagram has no nodes")
	}

	rows := layers(spec)
	widest := 0
	for _, row := range rows {
		widest = max(widest, len(row))
	}

	width := math.Max(minWidth, 2*margin+float64(widest)*nodeWidth+float64(widest-1)*gapX)
	height := 2*margin + titleSpace + float64(len(rows))*nodeHeight + float64(len(rows)-1)*gapY

	dc := gg.NewContext(int(width), int(height))
	dc.SetColor(background)
	dc.DrawRectangle(0, 0, width, height)
	dc.Fill()

	if spec.Title != "" {
		dc.SetFontFace(r.face(titleSize))
		dc.SetColor(textColor)
		dc.DrawStringAnchored(spec.Title, width/2, margin+titleSpace/2-8, 0.5, 0.5)
	}

	centers := make(map[string]point, len(spec.Nodes))
	for i, row := range rows {
		rowWidth := float64(len(row))*nodeWidth + float64(len(row)-1)*gapX
		x0 := (width - rowWidth) / 2
		y := margin + titleSpace + float64(i)*(nodeHeight+gapY) + nodeHeight/2
		for j, idx := range row {
			centers[spec.Nodes[idx].ID] = point{x: x0 + float64(j)*(nodeWidth+gapX) + nodeWidth/2, y: y}
		}
	}

	dc.SetFontFace(r.face(edgeSize))
	for _, e := range spec.Edges {
		from, okFrom := centers[e.From]
		to, okTo := centers[e.To]
		if !okFrom || !okTo || e.From == e.To {
			continue
		}
		drawEdge(dc, from, to, e.Label)
	}

	dc.SetFontFace(r.face(labelSize))
	for _, n := range spec.Nodes {
		c := centers[n.ID]
		x, y := c.x-nodeWidth/2, c.y-nodeHeight/2

		dc.DrawRoundedRectangle(x, y, nodeWidth, nodeHeight, 10)
		dc.SetColor(nodeFill)
		dc.FillPreserve()
		dc.SetColor(nodeStroke)
		dc.SetLineWidth(2)
		dc.Stroke()

		dc.SetColor(textColor)
		dc.DrawStringWrapped(n.Label, c.x, c.y, 0.5, 0.5, nodeWidth-20, 1.3, gg.AlignCenter)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawEdge draws an arrow from the border of the source box to the border of
// the target box.
func drawEdge(dc *gg.Context, from, to point, label string) {
	start := clipToBox(from, to)
	end := clipToBox(to, from)

	dc.SetColor(edgeColor)
	dc.SetLineWidth(1.5)
	dc.DrawLine(start.x, start.y, end.x, end.y)
	dc.Stroke()

	angle := math.Atan2(end.y-start.y, end.x-start.x)
	const head = 10.0
	dc.MoveTo(end.x, end.y)
	dc.LineTo(end.x-head*math.Cos(angle-math.Pi/7), end.y-head*math.Sin(angle-math.Pi/7))
	dc.LineTo(end.x-head*math.Cos(angle+math.Pi/7), end.y-head*math.Sin(angle+math.Pi/7))
	dc.ClosePath()
	dc.Fill()

	if label != "" {
		mx, my := (start.x+end.x)/2, (start.y+end.y)/2
		w, h := dc.MeasureString(label)
		dc.SetColor(background)
		dc.DrawRectangle(mx-w/2-3, my-h/2-3, w+6, h+6)
		dc.Fill()
		dc.SetColor(edgeColor)
		dc.DrawStringAnchored(label, mx, my, 0.5, 0.35)
	}
}

// clipToBox moves c toward other until it leaves c's node box.
func clipToBox(c, other point) point {
	dx, dy := other.x-c.x, other.y-c.y
	if dx == 0 && dy == 0 {
		return c
	}
	sx, sy := math.Inf(1), math.Inf(1)
	if dx != 0 {
		sx = (nodeWidth / 2) / math.Abs(dx)
	}
	if dy != 0 {
		sy = (nodeHeight / 2) / math.Abs(dy)
	}
	s := math.Min(sx, sy)
	return point{x: c.x + dx*s, y: c.y + dy*s}
}

// layers assigns each node the length of the longest edge path reaching it,
// capped at len(nodes)-1 so cycles terminate, and groups node indices by it.
func layers(spec *models.DiagramSpec) [][]int {
	n := len(spec.Nodes)
	index := make(map[string]int, n)
	for i, node := range spec.Nodes {
		index[node.ID] = i
	}

	level := make([]int, n)
	for pass := 0; pass < n; pass++ {
		changed := false
		for _, e := range spec.Edges {
			from, okFrom := index[e.From]
			to, okTo := index[e.To]
			if !okFrom || !okTo || from == to {
				continue
			}
			if next := level[from] + 1; next < n && level[to] < next {
				level[to] = next
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	var rows [][]int
	for i, l := range level {
		for len(rows) <= l {
			rows = append(rows, nil)
		}
		rows[l] = append(rows[l], i)
	}

	// drop empty rows left by capped cycles
	compact := rows[:0]
	for _, row := range rows {
		if len(row) > 0 {
			compact = append(compact, row)
		}
	}
	return compact
}
