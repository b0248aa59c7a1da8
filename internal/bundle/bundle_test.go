package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/quizdeck/internal/quiz"
	"github.com/abhisek/quizdeck/internal/store"
)

const sample = `{
  "formatVersion": "1.2.0",
  "quizzes": [
    {
      "id": "js-basics",
      "courseId": "js-101",
      "title": "JavaScript basics",
      "difficulty": "Beginner",
      "durationMinutes": 5,
      "createdAt": "2026-01-05T10:00:00Z",
      "questions": [
        {"id": "q1", "type": "multiple-choice", "text": "Block-scoped constant?", "options": ["var", "const"], "correctAnswer": "const", "points": 10},
        {"id": "q2", "type": "short-answer", "text": "typeof null", "correctAnswer": "object", "points": 10}
      ]
    },
    {
      "courseId": "js-101",
      "title": "Closures",
      "difficulty": "Intermediate",
      "questions": []
    }
  ]
}`

func TestDecode(t *testing.T) {
	b, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, b.Quizzes, 2)

	first := b.Quizzes[0]
	assert.Equal(t, "js-basics", first.ID)
	assert.Equal(t, 20, first.TotalPoints())
	assert.Equal(t, []string{"var", "const"}, first.Questions[0].Options())
	assert.True(t, first.CreatedAt.Equal(time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)))

	_, err = uuid.Parse(b.Quizzes[1].ID)
	assert.NoError(t, err, "missing id should be assigned a uuid")
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"not json", `{"formatVersion":`, ""},
		{"missing quizzes", `{"formatVersion":"1.0.0"}`, "/"},
		{"zero points", strings.Replace(sample, `"points": 10}`, `"points": 0}`, 1), "/quizzes/0/questions/0/points"},
		{"bad difficulty", strings.Replace(sample, `"Beginner"`, `"Expert"`, 1), "/quizzes/0/difficulty"},
		{"unknown type", strings.Replace(sample, `"short-answer"`, `"essay"`, 1), "/quizzes/0/questions/1/type"},
		{"major version", strings.Replace(sample, `"1.2.0"`, `"2.0.0"`, 1), "formatVersion"},
		{"not semver", strings.Replace(sample, `"1.2.0"`, `"latest"`, 1), "formatVersion"},
		{"answer not an option", strings.Replace(sample, `"correctAnswer": "const"`, `"correctAnswer": "let"`, 1), "quizzes[0].questions[0].correctAnswer"},
		{"duplicate question", strings.Replace(sample, `"id": "q2"`, `"id": "q1"`, 1), "quizzes[0].questions[1].id"},
		{"short answer with options", strings.Replace(sample, `"type": "short-answer",`, `"type": "short-answer", "options": ["x"],`, 1), "options"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			var v *quiz.ValidationError
			require.True(t, errors.As(err, &v), "got %v", err)
			assert.Contains(t, v.Field, tt.field)
		})
	}
}

func TestDecodeDuplicateQuizIDs(t *testing.T) {
	doc := strings.Replace(sample, `"title": "Closures",`, `"title": "Closures", "id": "js-basics",`, 1)
	_, err := Decode(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate quiz id")
}

func TestEncodeDecodeKeepsQuizzes(t *testing.T) {
	in, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, Encode(&buf, in.Quizzes, at))
	assert.Contains(t, buf.String(), `"formatVersion": "1.0.0"`)

	out, err := Decode(&buf)
	require.NoError(t, err)
	assert.True(t, out.ExportedAt.Equal(at))
	require.Len(t, out.Quizzes, 2)
	assert.Equal(t, in.Quizzes[0].Questions, out.Quizzes[0].Questions)
	assert.Equal(t, in.Quizzes[1].ID, out.Quizzes[1].ID)
}

func TestEncodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil, time.Now()))
	b, err := Decode(&buf)
	require.NoError(t, err)
	assert.Empty(t, b.Quizzes)
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.DriverSQLite,
		fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestImportExport(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	b, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	res, err := Import(ctx, s.Quizzes(), b)
	require.NoError(t, err)
	assert.Len(t, res.Created, 2)
	assert.Empty(t, res.Updated)

	b.Quizzes[0].Title = "JavaScript fundamentals"
	res, err = Import(ctx, s.Quizzes(), Bundle{FormatVersion: FormatVersion, Quizzes: b.Quizzes[:1]})
	require.NoError(t, err)
	assert.Equal(t, []string{"js-basics"}, res.Updated)

	all, err := Export(ctx, s.Quizzes())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := Export(ctx, s.Quizzes(), "js-basics")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "JavaScript fundamentals", one[0].Title)

	_, err = Export(ctx, s.Quizzes(), "missing")
	assert.True(t, errors.Is(err, quiz.ErrNotFound), "got %v", err)
}
