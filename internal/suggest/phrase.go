package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/quizdeck/internal/llm"
	"github.com/abhisek/quizdeck/internal/quiz"
)

const phrasePurpose = "suggestion"

var messageSchema = &llm.Schema{
	Name:        "suggestion-message",
	Description: "A short encouraging message for a student",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Two sentences at most, addressed to the student",
			},
		},
		"required":             []string{"message"},
		"additionalProperties": false,
	},
}

const phraseSystem = `You write short, warm feedback for students who just finished a quiz.
Keep every fact you are given. Never recommend a different quiz or difficulty than the one named.
Reply with at most two sentences.`

// Phraser rewrites a Suggestion's message with an LLM.
type Phraser struct {
	Provider  llm.Provider
	MaxTokens int
}

func NewPhraser(p llm.Provider) *Phraser {
	return &Phraser{Provider: p, MaxTokens: 200}
}

// Phrase returns s with a reworded Message. On any provider failure s is
// returned unchanged together with the error, so callers can warn and carry
// on. Only Message ever differs from s.
func (p *Phraser) Phrase(ctx context.Context, s Suggestion, q quiz.Quiz) (Suggestion, error) {
	if p == nil || p.Provider == nil {
		return s, nil
	}
	resp, err := p.Provider.Generate(llm.WithPurpose(ctx, phrasePurpose), llm.Request{
		System:      phraseSystem,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt(s, q)}},
		Schema:      messageSchema,
		MaxTokens:   p.MaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return s, fmt.Errorf("phrase suggestion: %w", err)
	}

	var out struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return s, fmt.Errorf("phrase suggestion: %w", err)
	}
	msg := strings.TrimSpace(out.Message)
	if msg == "" {
		return s, fmt.Errorf("phrase suggestion: empty message")
	}
	s.Message = msg
	return s, nil
}

func prompt(s Suggestion, q quiz.Quiz) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quiz: %q (%s)\n", q.Title, q.Difficulty)
	fmt.Fprintf(&b, "Score: %d%%\n", s.Percentage)
	fmt.Fprintf(&b, "Outcome: %s\n", s.Outcome)
	if s.NextQuiz != nil {
		fmt.Fprintf(&b, "Recommended next quiz: %q (%s)\n", s.NextQuiz.Title, s.NextQuiz.Difficulty)
	}
	fmt.Fprintf(&b, "Draft message: %s\n", s.Message)
	return b.String()
}
