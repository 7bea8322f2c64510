package export

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"unicode"

	"github.com/vanderheijden86/archtrace/pkg/model"
	"github.com/vanderheijden86/archtrace/pkg/trace"
)

// renderMermaid writes the architecture as a Mermaid flowchart: one
// subgraph per layer and group, traced edges drawn bold in their
// direction's colour.
func renderMermaid(w io.Writer, d diagram) error {
	var sb strings.Builder
	ids := newMermaidIDs()

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", mermaidText(d.title, 80))
	sb.WriteString("---\n")
	sb.WriteString("flowchart LR\n")

	fmt.Fprintf(&sb, "    classDef selected fill:%s,stroke:%s,stroke-width:3px\n", css(colorSelectedFill), css(colorSelected))
	fmt.Fprintf(&sb, "    classDef source fill:%s,stroke:%s,stroke-width:2px\n", css(colorSourceFill), css(colorSource))
	fmt.Fprintf(&sb, "    classDef target fill:%s,stroke:%s,stroke-width:2px\n", css(colorTargetFill), css(colorTarget))
	fmt.Fprintf(&sb, "    classDef match fill:%s,stroke:%s,stroke-width:2px\n", css(colorCardFill), css(colorMilestone))
	fmt.Fprintf(&sb, "    classDef dim fill:%s,stroke:%s,color:%s\n", css(colorDimFill), css(colorDimStroke), css(colorSubtle))
	fmt.Fprintf(&sb, "    classDef new stroke:%s\n", css(colorNewStroke))
	fmt.Fprintf(&sb, "    classDef core stroke:%s\n", css(colorCoreStroke))
	sb.WriteString("\n")

	for li, col := range d.layout.Columns {
		fmt.Fprintf(&sb, "    subgraph L%d[\"%s\"]\n", li, mermaidText(col.Layer.Title, 40))
		sb.WriteString("        direction TB\n")
		for gi, g := range d.layout.Groups {
			if g.Layer != li {
				continue
			}
			label := mermaidText(g.Group.Name, 40)
			if label == "" {
				label = " "
			}
			fmt.Fprintf(&sb, "        subgraph L%dG%d[\"%s\"]\n", li, gi, label)
			for _, card := range d.layout.Cards {
				if card.Group != gi {
					continue
				}
				n := card.Node
				text := mermaidText(n.Name, 40)
				if sub := mermaidText(n.SubLabel, 40); sub != "" {
					text += "<br/>" + sub
				}
				fmt.Fprintf(&sb, "            %s[\"%s\"]\n", ids.get(n.ID), text)
			}
			sb.WriteString("        end\n")
		}
		sb.WriteString("    end\n")
	}
	sb.WriteString("\n")

	for _, card := range d.layout.Cards {
		if class := d.mermaidClass(card.Node); class != "" {
			fmt.Fprintf(&sb, "    class %s %s\n", ids.get(card.Node.ID), class)
		}
	}

	// Mermaid styles links by declaration index.
	var styles []string
	link := 0
	for _, card := range d.layout.Cards {
		seen := make(map[string]bool, len(card.Node.Targets))
		for _, to := range card.Node.Targets {
			if _, ok := d.layout.Card(to); !ok || seen[to] {
				continue
			}
			seen[to] = true
			arrow := "-->"
			if c, ok := d.result.Connector(trace.EdgeID(card.Node.ID, to)); ok {
				arrow = "==>"
				line, _, _ := connectorColors(c.Direction)
				styles = append(styles, fmt.Sprintf("    linkStyle %d stroke:%s,stroke-width:2px", link, css(line)))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", ids.get(card.Node.ID), arrow, ids.get(to))
			link++
		}
	}
	for _, s := range styles {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (d diagram) mermaidClass(n model.Node) string {
	if d.milestone.IsValid() {
		if n.Milestone.Matches(d.milestone) {
			return "match"
		}
		return "dim"
	}
	if d.result.Selected != "" && n.ID == d.result.Selected {
		return "selected"
	}
	switch d.result.Status(n.ID) {
	case trace.StatusSource:
		return "source"
	case trace.StatusTarget:
		return "target"
	}
	switch n.Type {
	case model.TypeNew:
		return "new"
	case model.TypeCore:
		return "core"
	}
	return ""
}

// mermaidIDs hands out deterministic, collision-free node ids. The prefix
// keeps ids such as "end" clear of Mermaid keywords.
type mermaidIDs struct {
	byNode map[string]string
	used   map[string]bool
}

func newMermaidIDs() *mermaidIDs {
	return &mermaidIDs{byNode: make(map[string]string), used: make(map[string]bool)}
}

func (m *mermaidIDs) get(id string) string {
	if safe, ok := m.byNode[id]; ok {
		return safe
	}
	var b strings.Builder
	b.WriteString("n_")
	for _, r := range id {
		if r < 0x80 && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	safe := b.String()
	if m.used[safe] {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		safe = fmt.Sprintf("%s_%x", safe, h.Sum32())
	}
	m.used[safe] = true
	m.byNode[id] = safe
	return safe
}

// mermaidText makes s safe inside a quoted Mermaid label.
func mermaidText(s string, max int) string {
	replacer := strings.NewReplacer(
		"\"", "'",
		"<", "&lt;",
		">", "&gt;",
		"`", "'",
		"\n", " ",
		"\r", "",
	)
	s = replacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return truncate(strings.TrimSpace(s), max)
}
