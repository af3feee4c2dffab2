// Package merge concatenates independently built decks into one deck and
// restyles slides by their position in the output.
package merge

import (
	"fmt"

	"github.com/jonathan/monitoring-deck/internal/deck"
	"github.com/jonathan/monitoring-deck/internal/pptx"
	"github.com/jonathan/monitoring-deck/internal/skeleton"
	"go.uber.org/zap"
)

// Merger merges decks in a fixed order.
type Merger struct {
	Restyle RestyleTable
	Style   skeleton.Resolved
	// PreserveBackground copies each source slide's background fill. By
	// default merged slides start on the layout background.
	PreserveBackground bool
	Logger             *zap.Logger
}

// NewMerger returns a merger using the default restyle table.
func NewMerger(style skeleton.Resolved, logger *zap.Logger) *Merger {
	return &Merger{Restyle: DefaultRestyleTable(), Style: style, Logger: logger}
}

// Input is one serialized deck to merge.
type Input struct {
	Name string
	Data []byte
}

// Report summarizes a merge.
type Report struct {
	Slides   int
	Restyled []int
	// Untitled lists restyle positions whose slide had no title to restyle.
	Untitled []int
	Skipped  []Skipped
}

// Skipped is an input that could not be read and was left out.
type Skipped struct {
	Name string
	Err  error
}

func (m *Merger) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// Merge copies every slide of every deck, in order, onto fresh slides of a
// new deck. Output slides are numbered from 1; positions found in the
// restyle table get skeleton styling reapplied over the copied shapes.
// Inputs are never modified.
func (m *Merger) Merge(decks ...*deck.Deck) (*deck.Deck, Report) {
	out := &deck.Deck{}
	var report Report
	index := 1

	for _, d := range decks {
		if d == nil {
			continue
		}
		for _, src := range d.Slides {
			s := &deck.Slide{Index: index}
			if m.PreserveBackground {
				s.Background = src.Background
			}
			for _, sh := range src.Shapes {
				s.Add(sh.Clone())
			}

			if r, ok := m.Restyle[index]; ok {
				if skeleton.Restyle(s, r.Rule, index, m.Style, r.Background) {
					report.Restyled = append(report.Restyled, index)
				} else {
					report.Untitled = append(report.Untitled, index)
					m.logger().Debug("restyle skipped, slide has no title",
						zap.Int("position", index), zap.String("rule", string(r.Rule)))
				}
			}

			out.Append(s)
			index++
		}
	}

	report.Slides = out.Len()
	return out, report
}

// MergeBytes decodes each input and merges the readable ones. Inputs that
// fail to decode are skipped and listed in the report; the merge itself
// only fails when the output cannot be encoded.
func (m *Merger) MergeBytes(inputs []Input) ([]byte, Report, error) {
	decks := make([]*deck.Deck, 0, len(inputs))
	var skipped []Skipped
	for _, in := range inputs {
		d, err := pptx.Decode(in.Data)
		if err != nil {
			m.logger().Warn("skipping unreadable deck", zap.String("deck", in.Name), zap.Error(err))
			skipped = append(skipped, Skipped{Name: in.Name, Err: err})
			continue
		}
		decks = append(decks, d)
	}

	merged, report := m.Merge(decks...)
	report.Skipped = skipped

	data, err := pptx.Encode(merged)
	if err != nil {
		return nil, report, fmt.Errorf("failed to encode merged deck: %w", err)
	}
	m.logger().Info("merged decks",
		zap.Int("inputs", len(inputs)),
		zap.Int("skipped", len(skipped)),
		zap.Int("slides", report.Slides),
		zap.Ints("restyled", report.Restyled))
	return data, report, nil
}
