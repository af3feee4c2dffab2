// Package observability provides logging setup and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jonathan/monitoring-deck/internal/merge"
	"github.com/jonathan/monitoring-deck/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out      io.Writer
	renderer *lipgloss.Renderer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, renderer: lipgloss.NewRenderer(out)}
}

var bandColors = map[types.Band]lipgloss.Color{
	types.BandGreen:        lipgloss.Color("#00A000"),
	types.BandAmber:        lipgloss.Color("#FFBF00"),
	types.BandRed:          lipgloss.Color("#E53935"),
	types.BandUnclassified: lipgloss.Color("#9E9E9E"),
}

// Badge renders band as a colored label. Writers without color support
// get the plain band name.
func (p *Printer) Badge(b types.Band) string {
	style := p.renderer.NewStyle().Bold(true).Foreground(bandColors[b])
	return style.Render(string(b))
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		// Truncate long lines
		if lipgloss.Width(line) > boxWidth-4 {
			line = truncate(line, boxWidth-7) + "..."
		}
		pad := boxWidth - 4 - lipgloss.Width(line)
		fmt.Fprintf(p.out, "│ %s%s │\n", line, strings.Repeat(" ", max(pad, 0)))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// PrintClassification outputs one classified value and the thresholds used.
func (p *Printer) PrintClassification(metricType string, value float64, cfg *types.ThresholdConfig, source string, band types.Band) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Metric:  %s\n", metricType))
	sb.WriteString(fmt.Sprintf("Value:   %s\n", types.FormatFloat(value)))
	if cfg != nil {
		sb.WriteString(fmt.Sprintf("Green:   > %s\n", types.FormatFloat(cfg.Green)))
		sb.WriteString(fmt.Sprintf("Amber:   (%s, %s]\n", types.FormatFloat(cfg.AmberLower), types.FormatFloat(cfg.AmberUpper)))
		sb.WriteString(fmt.Sprintf("Red:     <= %s\n", types.FormatFloat(cfg.Red)))
		if source != "" {
			sb.WriteString(fmt.Sprintf("Source:  %s\n", source))
		}
		if err := cfg.Validate(); err != nil {
			sb.WriteString(fmt.Sprintf("Warning: %v\n", err))
		}
	} else {
		sb.WriteString("Thresholds: none\n")
	}
	sb.WriteString(fmt.Sprintf("Band:    %s", p.Badge(band)))

	p.printBox("CLASSIFICATION", sb.String())
}

// TopicSummary is what PrintTopicDeck shows for one topic.
type TopicSummary struct {
	Topic      types.TopicID
	Title      string
	Slides     int
	Band       types.Band
	Classified bool
	Warnings   []string
}

// PrintTopicDeck outputs a summary of one built topic deck.
func (p *Printer) PrintTopicDeck(s TopicSummary) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic:   %s\n", s.Topic))
	sb.WriteString(fmt.Sprintf("Title:   %s\n", s.Title))
	sb.WriteString(fmt.Sprintf("Slides:  %d\n", s.Slides))
	if s.Classified {
		sb.WriteString(fmt.Sprintf("Band:    %s", p.Badge(s.Band)))
	} else {
		sb.WriteString("Band:    target cell missing or not numeric")
	}
	if len(s.Warnings) > 0 {
		sb.WriteString("\n\nWarnings:\n")
		count := min(len(s.Warnings), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", s.Warnings[i]))
		}
		if len(s.Warnings) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(s.Warnings)-maxItemsToShow))
		}
	}

	p.printBox("TOPIC DECK", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMergeReport outputs the result of a merge.
func (p *Printer) PrintMergeReport(report merge.Report, missing []types.TopicID) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Slides:    %d\n", report.Slides))
	if len(report.Restyled) > 0 {
		sb.WriteString(fmt.Sprintf("Restyled:  %s\n", joinInts(report.Restyled)))
	}
	if len(report.Untitled) > 0 {
		sb.WriteString(fmt.Sprintf("No title:  %s\n", joinInts(report.Untitled)))
	}
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		sb.WriteString(fmt.Sprintf("Not run:   %s\n", strings.Join(names, ", ")))
	}
	for _, s := range report.Skipped {
		sb.WriteString(fmt.Sprintf("Skipped:   %s (%v)\n", s.Name, s.Err))
	}

	p.printBox("MERGED DECK", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDeckOutline outputs slide titles and shape counts of a deck.
func (p *Printer) PrintDeckOutline(name string, slides []SlideOutline) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Slides: %d\n", len(slides)))
	for _, s := range slides {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		sb.WriteString(fmt.Sprintf("\n#%d  %s\n", s.Index, title))
		sb.WriteString(fmt.Sprintf("    placeholders %d, pictures %d, other %d", s.Placeholders, s.Pictures, s.Generic))
		if s.Background != "" {
			sb.WriteString(fmt.Sprintf(", background #%s", s.Background))
		}
		sb.WriteString("\n")
	}
	p.printBox(strings.ToUpper(name), strings.TrimSuffix(sb.String(), "\n"))
}

// SlideOutline is one line of PrintDeckOutline.
type SlideOutline struct {
	Index        int
	Title        string
	Background   string
	Placeholders int
	Pictures     int
	Generic      int
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
