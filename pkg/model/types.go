// Package model defines the architecture data: layers, groups, and the
// system nodes whose declared targets form the data-flow graph.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SystemType classifies a system card.
type SystemType string

const (
	TypeExisting SystemType = "EXISTING"
	TypeNew      SystemType = "NEW"
	TypeCore     SystemType = "CORE"
)

// IsValid returns true if the type is one of the known values.
func (t SystemType) IsValid() bool {
	switch t {
	case TypeExisting, TypeNew, TypeCore:
		return true
	}
	return false
}

// LayerType identifies one of the four architecture layers.
type LayerType string

const (
	LayerSource       LayerType = "SOURCE"
	LayerIntegration  LayerType = "INTEGRATION"
	LayerIntelligence LayerType = "INTELLIGENCE"
	LayerApplication  LayerType = "APPLICATION"
)

// Milestone is the maturity stage a system belongs to (1..4).
type Milestone int

const (
	MilestoneNone Milestone = iota
	MilestoneV1             // manual / analog
	MilestoneV2             // process / self-service
	MilestoneV3             // integrated / digital
	MilestoneV4             // predictive / hyper-connected
)

// Milestones lists the selectable milestones in order.
var Milestones = []Milestone{MilestoneV1, MilestoneV2, MilestoneV3, MilestoneV4}

// IsValid returns true for milestones 1 through 4.
func (m Milestone) IsValid() bool {
	return m >= MilestoneV1 && m <= MilestoneV4
}

// String renders the milestone the way the data files spell it ("3.0").
func (m Milestone) String() string {
	if !m.IsValid() {
		return ""
	}
	return fmt.Sprintf("%d.0", int(m))
}

// Label returns the display label, e.g. "Airport 4.0".
func (m Milestone) Label() string {
	if !m.IsValid() {
		return ""
	}
	return "Airport " + m.String()
}

// Description returns the short stage description shown on the selector bar.
func (m Milestone) Description() string {
	switch m {
	case MilestoneV1:
		return "Manual"
	case MilestoneV2:
		return "Automated"
	case MilestoneV3:
		return "Digitally integrated"
	case MilestoneV4:
		return "Predictive"
	}
	return ""
}

// Matches reports whether a node at milestone m is highlighted when
// selected is active. Matching is inclusive: earlier stages stay lit.
func (m Milestone) Matches(selected Milestone) bool {
	if !selected.IsValid() || !m.IsValid() {
		return false
	}
	return m <= selected
}

// ParseMilestone accepts "3", "3.0", "v3" or "Airport 3.0".
func ParseMilestone(s string) (Milestone, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "airport")
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimSuffix(v, ".0")
	switch v {
	case "1":
		return MilestoneV1, nil
	case "2":
		return MilestoneV2, nil
	case "3":
		return MilestoneV3, nil
	case "4":
		return MilestoneV4, nil
	}
	return MilestoneNone, fmt.Errorf("invalid milestone %q (want 1-4)", s)
}

// UnmarshalText lets milestones be written as "2.0" in YAML and JSON.
func (m *Milestone) UnmarshalText(text []byte) error {
	parsed, err := ParseMilestone(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalText writes the "2.0" form.
func (m Milestone) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Node is a single system card. Nodes are immutable configuration data.
type Node struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	SubLabel    string     `json:"sub_label,omitempty" yaml:"sub_label,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Type        SystemType `json:"type" yaml:"type"`
	Milestone   Milestone  `json:"milestone" yaml:"milestone"`
	Category    string     `json:"category,omitempty" yaml:"category,omitempty"`
	ColSpan     int        `json:"col_span,omitempty" yaml:"col_span,omitempty"`
	Targets     []string   `json:"targets,omitempty" yaml:"targets,omitempty"`
}

// Span returns the number of grid columns the card occupies (1 or 2).
func (n Node) Span() int {
	if n.ColSpan >= 2 {
		return 2
	}
	return 1
}

// HasTarget reports whether id is one of the declared targets.
func (n Node) HasTarget(id string) bool {
	for _, t := range n.Targets {
		if t == id {
			return true
		}
	}
	return false
}

// Direction controls the card grid inside a group.
type Direction string

const (
	DirectionRow Direction = "row" // two-column grid (default)
	DirectionCol Direction = "col" // single column
)

// Group is a named, coloured cluster of systems inside a layer.
type Group struct {
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	Color     string    `json:"color" yaml:"color"`
	Direction Direction `json:"direction,omitempty" yaml:"direction,omitempty"`
	Systems   []Node    `json:"systems" yaml:"systems"`
}

// Columns returns how many grid columns the group lays out.
func (g Group) Columns() int {
	if g.Direction == DirectionCol {
		return 1
	}
	return 2
}

// Layer is one column of the architecture table.
type Layer struct {
	ID     LayerType `json:"id" yaml:"id"`
	Title  string    `json:"title" yaml:"title"`
	Groups []Group   `json:"groups" yaml:"groups"`
}

// Architecture is the whole document: title plus ordered layers.
type Architecture struct {
	Title    string  `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle string  `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Layers   []Layer `json:"layers" yaml:"layers"`
}

// Nodes flattens layers and groups into declaration order.
func (a Architecture) Nodes() []Node {
	var out []Node
	for _, layer := range a.Layers {
		for _, group := range layer.Groups {
			out = append(out, group.Systems...)
		}
	}
	return out
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// ChatMessage is one entry of the assistant conversation log.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
