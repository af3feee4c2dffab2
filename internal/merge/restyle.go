package merge

import (
	"fmt"
	"os"
	"sort"

	"github.com/jonathan/monitoring-deck/internal/schemas"
	"github.com/jonathan/monitoring-deck/internal/skeleton"
	schemafiles "github.com/jonathan/monitoring-deck/schemas"
	"gopkg.in/yaml.v3"
)

// Restyle is the styling reapplied at one output position.
type Restyle struct {
	Rule skeleton.Rule
	// Background overrides the title background for title_background rules.
	Background string
}

// RestyleTable maps 1-based output slide positions to restyle rules.
type RestyleTable map[int]Restyle

// restyleEntry is one item of a restyle file.
type restyleEntry struct {
	Position   int    `json:"position" yaml:"position"`
	Rule       string `json:"rule" yaml:"rule"`
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
}

type restyleFile struct {
	Rules []restyleEntry `json:"rules" yaml:"rules"`
}

// DefaultRestyleTable is the layout used for the standard topic set: five
// content slides around one title slide with its own background at position 4.
func DefaultRestyleTable() RestyleTable {
	return RestyleTable{
		1: {Rule: skeleton.RuleContent},
		2: {Rule: skeleton.RuleContent},
		3: {Rule: skeleton.RuleContent},
		4: {Rule: skeleton.RuleTitleBackground},
		5: {Rule: skeleton.RuleContent},
		6: {Rule: skeleton.RuleContent},
	}
}

// TopicRestyleTable derives a restyle table from per-deck slide counts, in
// merge order. The first slide of every multi-slide deck is restyled as a
// title slide with background; every other slide gets the content style.
func TopicRestyleTable(slideCounts []int) RestyleTable {
	t := RestyleTable{}
	pos := 1
	for _, n := range slideCounts {
		for i := 0; i < n; i++ {
			rule := skeleton.RuleContent
			if i == 0 && n > 1 {
				rule = skeleton.RuleTitleBackground
			}
			t[pos] = Restyle{Rule: rule}
			pos++
		}
	}
	return t
}

// Positions returns the table's positions in ascending order.
func (t RestyleTable) Positions() []int {
	out := make([]int, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// LoadRestyleTable reads a YAML or JSON restyle file of the form
// {"rules": [{"position": 4, "rule": "title_background"}]}.
func LoadRestyleTable(path string) (RestyleTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read restyle file %s: %w", path, err)
	}
	return ParseRestyleTable(data)
}

// ParseRestyleTable parses restyle file content. A position listed twice
// is an error.
func ParseRestyleTable(data []byte) (RestyleTable, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse restyle table: %w", err)
	}
	if err := schemas.ValidateValue(schemafiles.Restyle, raw); err != nil {
		return nil, fmt.Errorf("invalid restyle table: %w", err)
	}

	var f restyleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse restyle table: %w", err)
	}

	t := make(RestyleTable, len(f.Rules))
	for _, e := range f.Rules {
		rule, err := skeleton.ParseRule(e.Rule)
		if err != nil {
			return nil, err
		}
		if _, dup := t[e.Position]; dup {
			return nil, fmt.Errorf("restyle position %d listed twice", e.Position)
		}
		t[e.Position] = Restyle{Rule: rule, Background: e.Background}
	}
	return t, nil
}
