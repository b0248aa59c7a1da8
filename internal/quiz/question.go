package quiz

import (
	"encoding/json"
	"fmt"
)

// Kind is the discriminant of a question variant.
type Kind string

const (
	KindMultipleChoice Kind = "multiple-choice"
	KindShortAnswer    Kind = "short-answer"
)

// Body holds the variant-specific part of a question. The set of
// implementations is closed: MultipleChoice and ShortAnswer.
type Body interface {
	Kind() Kind
	isBody()
}

// MultipleChoice is a question answered by picking one of Options.
type MultipleChoice struct {
	Options []string
}

func (MultipleChoice) Kind() Kind { return KindMultipleChoice }
func (MultipleChoice) isBody()    {}

// ShortAnswer is a question answered with free text.
type ShortAnswer struct{}

func (ShortAnswer) Kind() Kind { return KindShortAnswer }
func (ShortAnswer) isBody()    {}

// Question is a single gradable item of a quiz.
type Question struct {
	ID            string `validate:"required"`
	Text          string `validate:"required"`
	CorrectAnswer string `validate:"required"`
	Points        int    `validate:"gt=0"`
	Body          Body
}

// Kind returns the question's variant discriminant, or "" if Body is unset.
func (q Question) Kind() Kind {
	if q.Body == nil {
		return ""
	}
	return q.Body.Kind()
}

// Options returns the choices of a multiple-choice question, nil otherwise.
func (q Question) Options() []string {
	if mc, ok := q.Body.(MultipleChoice); ok {
		return mc.Options
	}
	return nil
}

// questionJSON is the flat wire form shared by bundles and the store.
type questionJSON struct {
	ID            string   `json:"id"`
	Type          Kind     `json:"type"`
	Text          string   `json:"text"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Points        int      `json:"points"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	out := questionJSON{
		ID:            q.ID,
		Type:          q.Kind(),
		Text:          q.Text,
		CorrectAnswer: q.CorrectAnswer,
		Points:        q.Points,
	}
	switch b := q.Body.(type) {
	case MultipleChoice:
		out.Options = b.Options
	case ShortAnswer:
	case nil:
		return nil, &ValidationError{Field: "type", Message: fmt.Sprintf("question %q has no body", q.ID)}
	}
	return json.Marshal(out)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var in questionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	q.ID = in.ID
	q.Text = in.Text
	q.CorrectAnswer = in.CorrectAnswer
	q.Points = in.Points

	switch in.Type {
	case KindMultipleChoice:
		q.Body = MultipleChoice{Options: in.Options}
	case KindShortAnswer:
		if len(in.Options) > 0 {
			return &ValidationError{Field: "options", Message: fmt.Sprintf("short-answer question %q must not carry options", in.ID)}
		}
		q.Body = ShortAnswer{}
	default:
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown question type %q", in.Type)}
	}
	return nil
}
