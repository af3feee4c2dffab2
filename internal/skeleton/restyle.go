package skeleton

import (
	"fmt"

	"github.com/jonathan/monitoring-deck/internal/deck"
)

// Rule names a restyle applied to an existing slide.
type Rule string

const (
	RuleContent         Rule = "content"
	RuleTitle           Rule = "title"
	RuleTitleBackground Rule = "title_background"
)

// ParseRule validates a rule name.
func ParseRule(s string) (Rule, error) {
	switch r := Rule(s); r {
	case RuleContent, RuleTitle, RuleTitleBackground:
		return r, nil
	default:
		return "", fmt.Errorf("unknown restyle rule %q", s)
	}
}

// Restyle reapplies skeleton styling to a slide that already has content.
// The title placeholder is repositioned and reformatted in place and the
// ribbon (plus logo for content slides) is added on top of what is there.
// background overrides the title background color for RuleTitleBackground.
// Slides without a title are left untouched and Restyle reports false.
func Restyle(s *deck.Slide, rule Rule, index int, r Resolved, background string) bool {
	title := s.Title()
	if title == nil {
		return false
	}

	switch rule {
	case RuleContent:
		styleContentTitle(title, r)
		s.Add(splitRibbon(index, r)...)
		s.Add(contentLogoPicture(r))
	case RuleTitle, RuleTitleBackground:
		if rule == RuleTitleBackground {
			s.Background = r.BackgroundColor
			if c, ok := NormalizeColor(background); ok {
				s.Background = c
			}
		}
		s.Add(fullRibbon(index, r))
		styleTitleSlideTitle(title, r)
	default:
		return false
	}
	return true
}
