package export

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/archtrace/pkg/graph"
	"github.com/vanderheijden86/archtrace/pkg/layout"
	"github.com/vanderheijden86/archtrace/pkg/metrics"
	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"
)

// DiagramOptions controls diagram export.
type DiagramOptions struct {
	Path      string // Output path; format inferred from extension when Format empty
	Format    string // "svg", "png" or "mmd" (case-insensitive). If empty, inferred from Path.
	Title     string // Optional title; defaults to the architecture title
	Arch      model.Architecture
	Selected  string          // Node to trace from; empty for none
	Milestone model.Milestone // Milestone mode when valid; suppresses the trace
	Trace     trace.Options   // Zero value means trace.DefaultOptions()
	Keep      func(model.Node) bool
}

// SaveDiagram renders the architecture table (SVG, PNG or Mermaid) with the trace of
// the selected node drawn on top. The trace is computed against the export
// layout, so connectors line up with the rendered cards.
func SaveDiagram(opts DiagramOptions) error {
	format, path, err := resolveFormat(opts.Format, opts.Path)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if len(opts.Arch.Layers) == 0 {
		return fmt.Errorf("no layers to export")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteDiagram(file, format, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// WriteDiagram renders to w in the given format ("svg", "png" or "mmd").
func WriteDiagram(w io.Writer, format string, opts DiagramOptions) error {
	defer metrics.Timer(metrics.DiagramExport)()

	d := buildDiagram(opts)
	switch strings.ToLower(format) {
	case "svg":
		return renderSVG(w, d)
	case "png":
		return renderPNG(w, d)
	case "mmd", "mermaid":
		return renderMermaid(w, d)
	default:
		return fmt.Errorf("unsupported format %q (want svg, png or mmd)", format)
	}
}

func resolveFormat(format, path string) (string, string, error) {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			f = "svg"
		case ".png":
			f = "png"
		case ".mmd", ".mermaid":
			f = "mmd"
		default:
			f = "svg"
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	if f == "mermaid" {
		f = "mmd"
	}
	if f != "svg" && f != "png" && f != "mmd" {
		return "", "", fmt.Errorf("unsupported format %q (want svg, png or mmd)", f)
	}
	return f, path, nil
}

// --- model -----------------------------------------------------------------

const (
	headerHeight = 96.0
	footerHeight = 24.0
	badgeW       = 40.0
	badgeH       = 18.0
	arrowLen     = 10.0
	arrowHalf    = 3.5
)

type diagram struct {
	title     string
	subtitle  string
	layout    *layout.Layout
	result    trace.Result
	milestone model.Milestone
	curve     float64
	width     int
	height    int
}

func buildDiagram(opts DiagramOptions) diagram {
	lay := layout.Compute(opts.Arch, layout.DefaultConfig(), opts.Keep)
	traceOpts := opts.Trace
	if traceOpts == (trace.Options{}) {
		traceOpts = trace.DefaultOptions()
	}

	engine := trace.NewEngine(graph.New(opts.Arch), traceOpts)
	result := engine.Trace(trace.Input{
		Selected:      opts.Selected,
		MilestoneMode: opts.Milestone.IsValid(),
		Scale:         1,
		Geometry:      lay.Geometry(1, trace.Point{}),
	})

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = opts.Arch.Title
	}
	if strings.TrimSpace(title) == "" {
		title = "Architecture"
	}

	return diagram{
		title:     title,
		subtitle:  opts.Arch.Subtitle,
		layout:    lay,
		result:    result,
		milestone: opts.Milestone,
		curve:     traceOpts.CurveOffset,
		width:     int(lay.Width),
		height:    int(headerHeight + lay.Height + footerHeight),
	}
}

// cardStyle is the visual state of one card.
type cardStyle struct {
	fill    color.RGBA
	stroke  color.RGBA
	width   float64
	opacity float64
	badge   string // "Source" / "Dest" under the card
}

func (d diagram) styleFor(n model.Node) cardStyle {
	if d.milestone.IsValid() {
		if !n.Milestone.Matches(d.milestone) {
			return cardStyle{fill: colorDimFill, stroke: colorDimStroke, width: 1, opacity: 0.2}
		}
		return cardStyle{fill: colorCardFill, stroke: colorMilestone, width: 2, opacity: 1}
	}
	if n.ID == d.result.Selected && d.result.Selected != "" {
		return cardStyle{fill: colorSelectedFill, stroke: colorSelected, width: 3, opacity: 1}
	}
	switch d.result.Status(n.ID) {
	case trace.StatusSource:
		return cardStyle{fill: colorSourceFill, stroke: colorSource, width: 2, opacity: 1, badge: "Source"}
	case trace.StatusTarget:
		return cardStyle{fill: colorTargetFill, stroke: colorTarget, width: 2, opacity: 1, badge: "Dest"}
	}
	s := cardStyle{fill: colorCardFill, stroke: colorCardStroke, width: 1, opacity: 1}
	switch n.Type {
	case model.TypeNew:
		s.stroke = colorNewStroke
	case model.TypeCore:
		s.stroke = colorCoreStroke
	}
	return s
}

// --- colours ---------------------------------------------------------------

var (
	colorBackdrop     = color.RGBA{0xf8, 0xfa, 0xfc, 0xff}
	colorText         = color.RGBA{0x33, 0x41, 0x55, 0xff}
	colorSubtle       = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	colorCardFill     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorCardStroke   = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	colorNewStroke    = color.RGBA{0xa7, 0xf3, 0xd0, 0xff}
	colorCoreStroke   = color.RGBA{0xbf, 0xdb, 0xfe, 0xff}
	colorDimFill      = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorDimStroke    = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorSelected     = color.RGBA{0x3b, 0x82, 0xf6, 0xff}
	colorSelectedFill = color.RGBA{0xef, 0xf6, 0xff, 0xff}
	colorSource       = color.RGBA{0xfb, 0xbf, 0x24, 0xff}
	colorSourceFill   = color.RGBA{0xff, 0xfb, 0xeb, 0xff}
	colorSourceText   = color.RGBA{0x92, 0x40, 0x0e, 0xff}
	colorTarget       = color.RGBA{0x34, 0xd3, 0x99, 0xff}
	colorTargetFill   = color.RGBA{0xec, 0xfd, 0xf5, 0xff}
	colorTargetText   = color.RGBA{0x06, 0x5f, 0x46, 0xff}
	colorNewBadge     = color.RGBA{0x10, 0xb9, 0x81, 0xff}
	colorCoreBadge    = color.RGBA{0x25, 0x63, 0xeb, 0xff}
	colorMilestone    = color.RGBA{0x4f, 0x46, 0xe5, 0xff}
	colorWhite        = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// groupColors maps the palette names used in architecture files.
var groupColors = map[string]color.RGBA{
	"slate":  {0x64, 0x74, 0x8b, 0xff},
	"purple": {0xa8, 0x55, 0xf7, 0xff},
	"green":  {0x22, 0xc5, 0x5e, 0xff},
	"blue":   {0x3b, 0x82, 0xf6, 0xff},
	"indigo": {0x63, 0x66, 0xf1, 0xff},
	"orange": {0xf9, 0x73, 0x16, 0xff},
	"rose":   {0xf4, 0x3f, 0x5e, 0xff},
}

func groupColor(name string) color.RGBA {
	if c, ok := groupColors[strings.ToLower(name)]; ok {
		return c
	}
	return colorSubtle
}

func connectorColors(dir trace.Direction) (line, text color.RGBA, label string) {
	if dir == trace.Downstream {
		return colorTarget, colorTargetText, "Target"
	}
	return colorSource, colorSourceText, "Source"
}

type legendEntry struct {
	fill   color.RGBA
	stroke color.RGBA
	label  string
}

var legendEntries = []legendEntry{
	{colorCardFill, colorCardStroke, "Existing / planned"},
	{colorNewBadge, colorNewBadge, "New"},
	{colorSource, colorSource, "Source"},
	{colorTarget, colorTarget, "Dest"},
}

// --- SVG -------------------------------------------------------------------

func renderSVG(w io.Writer, d diagram) error {
	canvas := svg.New(w)
	canvas.Start(d.width, d.height)
	canvas.Rect(0, 0, d.width, d.height, fmt.Sprintf("fill:%s", css(colorBackdrop)))

	canvas.Text(d.width/2, 36, d.title, fmt.Sprintf("fill:%s;font-size:22px;font-family:sans-serif;font-weight:bold;text-anchor:middle", css(colorText)))
	if d.subtitle != "" {
		canvas.Text(d.width/2, 58, d.subtitle, fmt.Sprintf("fill:%s;font-size:13px;font-family:sans-serif;text-anchor:middle", css(colorSubtle)))
	}
	if d.milestone.IsValid() {
		canvas.Text(d.width/2, 82, fmt.Sprintf("%s: %s", d.milestone.Label(), d.milestone.Description()),
			fmt.Sprintf("fill:%s;font-size:13px;font-family:sans-serif;font-weight:bold;text-anchor:middle", css(colorMilestone)))
	} else {
		drawLegendSVG(canvas, d)
	}

	canvas.Gtransform(fmt.Sprintf("translate(0,%d)", int(headerHeight)))
	for _, col := range d.layout.Columns {
		canvas.Text(int(col.Box.X+col.Box.W/2), int(col.Box.Y+24), col.Layer.Title,
			fmt.Sprintf("fill:%s;font-size:15px;font-family:sans-serif;font-weight:bold;text-anchor:middle", css(colorText)))
	}
	for _, g := range d.layout.Groups {
		c := groupColor(g.Group.Color)
		b := g.Box
		canvas.Roundrect(int(b.X), int(b.Y), int(b.W), int(b.H), 12, 12,
			fmt.Sprintf("fill:%s;fill-opacity:0.06;stroke:%s;stroke-opacity:0.4;stroke-width:1", css(c), css(c)))
		if g.Group.Name != "" {
			canvas.Text(int(b.X+12), int(b.Y+28), g.Group.Name,
				fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif;font-weight:bold", css(c)))
		}
	}

	for _, c := range d.result.Connectors {
		drawConnectorSVG(canvas, c, d.curve)
	}
	for _, card := range d.layout.Cards {
		drawCardSVG(canvas, card, d.styleFor(card.Node), d.milestone)
	}
	for _, c := range d.result.Connectors {
		drawBadgeSVG(canvas, c)
	}
	canvas.Gend()

	canvas.End()
	return nil
}

func drawLegendSVG(canvas *svg.SVG, d diagram) {
	const itemW = 150
	x := d.width/2 - itemW*len(legendEntries)/2
	for i, e := range legendEntries {
		ix := x + i*itemW
		canvas.Roundrect(ix, 72, 12, 12, 3, 3, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:1", css(e.fill), css(e.stroke)))
		canvas.Text(ix+18, 82, e.label, fmt.Sprintf("fill:%s;font-size:12px;font-family:sans-serif", css(colorSubtle)))
	}
}

func drawConnectorSVG(canvas *svg.SVG, c trace.Connector, curve float64) {
	line, _, _ := connectorColors(c.Direction)
	path := c.Path(curve)
	canvas.Path(path, fmt.Sprintf("fill:none;stroke:%s;stroke-width:6;stroke-opacity:0.3", css(line)))
	canvas.Path(path, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2.5", css(line)))
	canvas.Path(path, "fill:none;stroke:#ffffff;stroke-width:2;stroke-dasharray:4,8;stroke-linecap:round;stroke-opacity:0.9")

	xs, ys := arrowHead(c.End, curve)
	canvas.Polygon(xs, ys, fmt.Sprintf("fill:%s", css(line)))
}

func drawBadgeSVG(canvas *svg.SVG, c trace.Connector) {
	line, text, label := connectorColors(c.Direction)
	mid := c.Midpoint()
	canvas.Roundrect(int(mid.X-badgeW/2), int(mid.Y-badgeH/2), int(badgeW), int(badgeH), 9, 9,
		fmt.Sprintf("fill:#ffffff;stroke:%s;stroke-width:1.5", css(line)))
	canvas.Text(int(mid.X), int(mid.Y+3), label,
		fmt.Sprintf("fill:%s;font-size:9px;font-family:sans-serif;font-weight:bold;text-anchor:middle", css(text)))
}

func drawCardSVG(canvas *svg.SVG, card layout.Card, s cardStyle, milestone model.Milestone) {
	b := card.Box
	x, y, w, h := int(b.X), int(b.Y), int(b.W), int(b.H)
	canvas.Group(fmt.Sprintf("opacity:%.2f", s.opacity), fmt.Sprintf(`id="%s"`, svgID(card.Node.ID)))
	canvas.Roundrect(x, y, w, h, 8, 8, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(s.fill), css(s.stroke), s.width))
	canvas.Text(x+w/2, y+h/2-4, card.Node.Name,
		fmt.Sprintf("fill:%s;font-size:14px;font-family:sans-serif;font-weight:bold;text-anchor:middle", css(colorText)))
	if card.Node.SubLabel != "" {
		canvas.Text(x+w/2, y+h/2+16, card.Node.SubLabel,
			fmt.Sprintf("fill:%s;font-size:10px;font-family:sans-serif;text-anchor:middle", css(colorSubtle)))
	}

	switch card.Node.Type {
	case model.TypeNew:
		typeBadgeSVG(canvas, x+w-44, y-8, "NEW", colorNewBadge)
	case model.TypeCore:
		typeBadgeSVG(canvas, x+w-44, y-8, "CORE", colorCoreBadge)
	}
	if milestone.IsValid() && card.Node.Milestone.Matches(milestone) {
		typeBadgeSVG(canvas, x+4, y+4, "V"+card.Node.Milestone.String(), colorMilestone)
	}
	if s.badge != "" {
		c := colorSource
		if s.badge == "Dest" {
			c = colorTarget
		}
		typeBadgeSVG(canvas, x+w/2-20, y+h-8, s.badge, c)
	}
	canvas.Gend()
}

func typeBadgeSVG(canvas *svg.SVG, x, y int, label string, c color.RGBA) {
	canvas.Roundrect(x, y, 40, 16, 8, 8, fmt.Sprintf("fill:%s", css(c)))
	canvas.Text(x+20, y+11, label, "fill:#ffffff;font-size:9px;font-family:sans-serif;font-weight:bold;text-anchor:middle")
}

// --- PNG -------------------------------------------------------------------

func renderPNG(w io.Writer, d diagram) error {
	dc := gg.NewContext(d.width, d.height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(colorText)
	dc.DrawStringAnchored(d.title, float64(d.width)/2, 36, 0.5, 0.5)
	if d.milestone.IsValid() {
		dc.SetColor(colorMilestone)
		dc.DrawStringAnchored(fmt.Sprintf("%s: %s", d.milestone.Label(), d.milestone.Description()), float64(d.width)/2, 78, 0.5, 0.5)
	} else {
		drawLegendPNG(dc, d)
	}

	dc.Push()
	dc.Translate(0, headerHeight)
	for _, col := range d.layout.Columns {
		dc.SetColor(colorText)
		dc.DrawStringAnchored(string(col.Layer.ID), col.Box.X+col.Box.W/2, col.Box.Y+20, 0.5, 0.5)
	}
	for _, g := range d.layout.Groups {
		c := groupColor(g.Group.Color)
		dc.SetColor(color.RGBA{c.R, c.G, c.B, 0x66})
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(g.Box.X, g.Box.Y, g.Box.W, g.Box.H, 12)
		dc.Stroke()
	}

	for _, c := range d.result.Connectors {
		drawConnectorPNG(dc, c, d.curve)
	}
	for _, card := range d.layout.Cards {
		drawCardPNG(dc, card, d.styleFor(card.Node))
	}
	for _, c := range d.result.Connectors {
		drawBadgePNG(dc, c)
	}
	dc.Pop()

	return dc.EncodePNG(w)
}

func drawLegendPNG(dc *gg.Context, d diagram) {
	const itemW = 150.0
	x := float64(d.width)/2 - itemW*float64(len(legendEntries))/2
	for i, e := range legendEntries {
		ix := x + float64(i)*itemW
		dc.SetColor(e.fill)
		dc.DrawRoundedRectangle(ix, 72, 12, 12, 3)
		dc.Fill()
		dc.SetColor(e.stroke)
		dc.DrawRoundedRectangle(ix, 72, 12, 12, 3)
		dc.Stroke()
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(e.label, ix+18, 78, 0, 0.5)
	}
}

func drawConnectorPNG(dc *gg.Context, c trace.Connector, curve float64) {
	line, _, _ := connectorColors(c.Direction)
	dc.SetColor(line)
	dc.SetLineWidth(2.5)
	dc.MoveTo(c.Start.X, c.Start.Y)
	dc.CubicTo(c.Start.X+curve, c.Start.Y, c.End.X-curve, c.End.Y, c.End.X, c.End.Y)
	dc.Stroke()

	xs, ys := arrowHead(c.End, curve)
	dc.NewSubPath()
	dc.MoveTo(float64(xs[0]), float64(ys[0]))
	dc.LineTo(float64(xs[1]), float64(ys[1]))
	dc.LineTo(float64(xs[2]), float64(ys[2]))
	dc.ClosePath()
	dc.Fill()
}

func drawBadgePNG(dc *gg.Context, c trace.Connector) {
	line, text, label := connectorColors(c.Direction)
	mid := c.Midpoint()
	dc.SetColor(colorWhite)
	dc.DrawRoundedRectangle(mid.X-badgeW/2, mid.Y-badgeH/2, badgeW, badgeH, 9)
	dc.Fill()
	dc.SetColor(line)
	dc.SetLineWidth(1.5)
	dc.DrawRoundedRectangle(mid.X-badgeW/2, mid.Y-badgeH/2, badgeW, badgeH, 9)
	dc.Stroke()
	dc.SetColor(text)
	dc.DrawStringAnchored(label, mid.X, mid.Y, 0.5, 0.5)
}

func drawCardPNG(dc *gg.Context, card layout.Card, s cardStyle) {
	b := card.Box
	alpha := uint8(255 * s.opacity)
	dc.SetColor(withAlpha(s.fill, alpha))
	dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, 8)
	dc.Fill()
	dc.SetColor(withAlpha(s.stroke, alpha))
	dc.SetLineWidth(s.width)
	dc.DrawRoundedRectangle(b.X, b.Y, b.W, b.H, 8)
	dc.Stroke()

	// basicfont only covers ASCII, so the id stands in for non-Latin names.
	dc.SetColor(withAlpha(colorText, alpha))
	dc.DrawStringAnchored(truncate(asciiLabel(card.Node), int(b.W/7)-2), b.X+b.W/2, b.Y+b.H/2-6, 0.5, 0.5)
	dc.SetColor(withAlpha(colorSubtle, alpha))
	dc.DrawStringAnchored(string(card.Node.Type)+" "+card.Node.Milestone.Label(), b.X+b.W/2, b.Y+b.H/2+12, 0.5, 0.5)
	if s.badge != "" {
		dc.DrawStringAnchored(s.badge, b.X+b.W/2, b.Y+b.H-8, 0.5, 0.5)
	}
}

// arrowHead returns the triangle at the end of a curve. The curve arrives
// horizontally (its last control point sits curve units to the left), so
// the head points along +x, or -x for a negative curve offset.
func arrowHead(end trace.Point, curve float64) ([]int, []int) {
	dir := 1.0
	if curve < 0 {
		dir = -1
	}
	back := end.X - dir*arrowLen
	return []int{int(end.X), int(back), int(back)},
		[]int{int(end.Y), int(end.Y - arrowHalf), int(end.Y + arrowHalf)}
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func asciiLabel(n model.Node) string {
	for _, r := range n.Name {
		if r > 0x7e {
			return n.ID
		}
	}
	if n.Name == "" {
		return n.ID
	}
	return n.Name
}

func withAlpha(c color.RGBA, a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// svgID makes a node id safe for use as an element id.
func svgID(id string) string {
	var b strings.Builder
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return "card-" + b.String()
}
