package components

import (
	"fmt"
	"strings"

	"github.com/abhisek/quizdeck/internal/ui/theme"
)

// ChoiceList renders the options of a multiple-choice question. Cursor is
// the highlighted row; Chosen is the option text currently recorded as the
// answer, matched exactly.
type ChoiceList struct {
	Options   []string
	Cursor    int
	Chosen    string
	HasChosen bool
}

// Move shifts the cursor by delta, saturating at both ends.
func (c ChoiceList) Move(delta int) ChoiceList {
	if len(c.Options) == 0 {
		return c
	}
	c.Cursor = max(0, min(c.Cursor+delta, len(c.Options)-1))
	return c
}

// Current returns the option under the cursor.
func (c ChoiceList) Current() (string, bool) {
	if c.Cursor < 0 || c.Cursor >= len(c.Options) {
		return "", false
	}
	return c.Options[c.Cursor], true
}

// View renders one numbered line per option.
func (c ChoiceList) View() string {
	var b strings.Builder
	for i, opt := range c.Options {
		prefix := "  "
		if i == c.Cursor {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d) %s", prefix, i+1, opt)
		switch {
		case c.HasChosen && opt == c.Chosen:
			line = theme.Chosen.Render(line + "  ✓")
		case i == c.Cursor:
			line = theme.Selected.Render(line)
		default:
			line = theme.Body.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
