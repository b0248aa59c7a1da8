package take

import "github.com/abhisek/quizdeck/internal/suggest"

// tickMsg fires once per second while the attempt is active. gen ties it to
// the countdown loop that scheduled it.
type tickMsg struct{ gen int }

// tickedMsg reports a countdown step, which may have auto-submitted.
type tickedMsg struct {
	gen int
	err error
}

// submittedMsg reports a manual submission.
type submittedMsg struct{ err error }

type suggestionMsg struct {
	s   suggest.Suggestion
	err error
}
