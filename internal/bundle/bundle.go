// Package bundle reads and writes quiz bundles: versioned JSON documents
// carrying one or more quizzes between quizdeck installations.
package bundle

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"

	"github.com/abhisek/quizdeck/internal/quiz"
)

// FormatVersion is written by Encode. Decode accepts any version with the
// same major.
const FormatVersion = "1.0.0"

//go:embed bundle.schema.json
var schemaJSON []byte

type Bundle struct {
	FormatVersion string      `json:"formatVersion"`
	ExportedAt    time.Time   `json:"exportedAt,omitzero"`
	Quizzes       []quiz.Quiz `json:"quizzes"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("bundle schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("bundle.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("bundle schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile("bundle.schema.json")
	})
	return schema, schemaErr
}

// Decode reads a bundle, checks it against the bundle schema and its format
// version, and validates every quiz. Quizzes without an id get a fresh one.
// Malformed content is reported as a *quiz.ValidationError.
func Decode(r io.Reader) (Bundle, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Bundle{}, fmt.Errorf("read bundle: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return Bundle{}, &quiz.ValidationError{Message: fmt.Sprintf("bundle is not JSON: %v", err)}
	}
	sch, err := compiled()
	if err != nil {
		return Bundle{}, err
	}
	if err := sch.Validate(doc); err != nil {
		return Bundle{}, schemaError(err)
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		var v *quiz.ValidationError
		if errors.As(err, &v) {
			return Bundle{}, v
		}
		return Bundle{}, &quiz.ValidationError{Message: err.Error()}
	}
	if err := checkVersion(b.FormatVersion); err != nil {
		return Bundle{}, err
	}

	seen := make(map[string]bool, len(b.Quizzes))
	for i := range b.Quizzes {
		q := &b.Quizzes[i]
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if seen[q.ID] {
			return Bundle{}, &quiz.ValidationError{Field: fmt.Sprintf("quizzes[%d].id", i), Message: fmt.Sprintf("duplicate quiz id %q", q.ID)}
		}
		seen[q.ID] = true
		if err := q.Validate(); err != nil {
			return Bundle{}, prefixed(err, fmt.Sprintf("quizzes[%d]", i))
		}
	}
	return b, nil
}

// Encode writes quizzes as an indented bundle stamped with at.
func Encode(w io.Writer, quizzes []quiz.Quiz, at time.Time) error {
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Bundle{FormatVersion: FormatVersion, ExportedAt: at.UTC(), Quizzes: quizzes}); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	return nil
}

func checkVersion(v string) error {
	canon := v
	if !strings.HasPrefix(canon, "v") {
		canon = "v" + canon
	}
	if !semver.IsValid(canon) {
		return &quiz.ValidationError{Field: "formatVersion", Message: fmt.Sprintf("%q is not a semantic version", v)}
	}
	if semver.Major(canon) != semver.Major("v"+FormatVersion) {
		return &quiz.ValidationError{Field: "formatVersion", Message: fmt.Sprintf("unsupported bundle version %s (want %s.x)", v, semver.Major("v"+FormatVersion))}
	}
	return nil
}

func prefixed(err error, prefix string) error {
	var v *quiz.ValidationError
	if !errors.As(err, &v) {
		return err
	}
	field := prefix
	if v.Field != "" {
		field += "." + v.Field
	}
	return &quiz.ValidationError{Field: field, Message: v.Message}
}

// schemaError reports the first leaf cause of a schema failure.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &quiz.ValidationError{Message: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	msg := strings.Join(strings.Fields(ve.Error()), " ")
	return &quiz.ValidationError{Field: "/" + strings.Join(ve.InstanceLocation, "/"), Message: msg}
}

// Result lists the quiz ids an import wrote.
type Result struct {
	Created []string
	Updated []string
}

// Import stores every quiz in b. Quizzes whose id already exists are
// replaced. It stops at the first failing write.
func Import(ctx context.Context, repo quiz.QuizRepo, b Bundle) (Result, error) {
	var res Result
	for _, q := range b.Quizzes {
		_, err := repo.GetQuiz(ctx, q.ID)
		exists := err == nil
		if err != nil && !errors.Is(err, quiz.ErrNotFound) {
			return res, &quiz.PersistenceError{Op: "get quiz", Err: err}
		}
		if err := repo.PutQuiz(ctx, q); err != nil {
			if quiz.IsValidation(err) {
				return res, err
			}
			return res, &quiz.PersistenceError{Op: "put quiz", Err: err}
		}
		if exists {
			res.Updated = append(res.Updated, q.ID)
		} else {
			res.Created = append(res.Created, q.ID)
		}
	}
	return res, nil
}

// Export loads the named quizzes, or every quiz when ids is empty.
func Export(ctx context.Context, repo quiz.QuizRepo, ids ...string) ([]quiz.Quiz, error) {
	if len(ids) == 0 {
		qs, err := repo.ListQuizzes(ctx)
		if err != nil {
			return nil, &quiz.PersistenceError{Op: "list quizzes", Err: err}
		}
		return qs, nil
	}
	out := make([]quiz.Quiz, 0, len(ids))
	for _, id := range ids {
		q, err := repo.GetQuiz(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}
