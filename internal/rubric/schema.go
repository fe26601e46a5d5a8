package rubric

import (
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"essaygrader/internal/apperrors"
)

// Per-key JSON Schemas. Fixed mode keys hold a bare integer; flexible keys hold an object.
const (
	fixedValueSchema = `{"type": "integer", "minimum": 0, "maximum": 3}`

	flexibleValueSchema = `{
  "type": "object",
  "required": ["score"],
  "properties": {"score": {"type": "integer", "minimum": 0, "maximum": 3}}
}`

	quotedValueSchema = `{
  "type": "object",
  "required": ["score", "quote"],
  "properties": {
    "score": {"type": "integer", "minimum": 0, "maximum": 3},
    "quote": {"type": "string"}
  }
}`
)

var (
	fixedValue    = jsonschema.MustCompileString("fixed.json", fixedValueSchema)
	flexibleValue = jsonschema.MustCompileString("flexible.json", flexibleValueSchema)
	quotedValue   = jsonschema.MustCompileString("quoted.json", quotedValueSchema)
)

// CategoryScore is one validated category result.
type CategoryScore struct {
	Score int     `json:"score"`
	Quote *string `json:"quote,omitempty"`
}

// Result maps each requested key to its validated score. Keys the model added
// on its own are not carried over.
type Result map[string]CategoryScore

// Ints flattens r to key -> score, the fixed mode wire shape.
func (r Result) Ints() map[string]int {
	out := make(map[string]int, len(r))
	for k, v := range r {
		out[k] = v.Score
	}
	return out
}

// Schema checks a decoded model response against the keys of one Spec.
type Schema struct {
	mode   Mode
	keys   []string
	value  *jsonschema.Schema
	quotes bool
}

func newSchema(s *Spec) *Schema {
	value := fixedValue
	if s.Mode == ModeFlexible {
		value = flexibleValue
		if s.Quotes {
			value = quotedValue
		}
	}
	return &Schema{
		mode:   s.Mode,
		keys:   s.Keys(),
		value:  value,
		quotes: s.Mode == ModeFlexible && s.Quotes,
	}
}

// Validate checks every requested key in order and stops at the first problem,
// returning an *apperrors.ValidationError naming that key.
func (sc *Schema) Validate(doc map[string]any) (Result, error) {
	out := make(Result, len(sc.keys))
	for _, key := range sc.keys {
		v, ok := doc[key]
		if !ok {
			return nil, &apperrors.ValidationError{Key: key, Reason: "missing"}
		}
		if err := sc.value.Validate(v); err != nil {
			return nil, &apperrors.ValidationError{Key: key, Reason: schemaReason(err)}
		}
		cs, err := sc.decode(v)
		if err != nil {
			return nil, &apperrors.ValidationError{Key: key, Reason: err.Error()}
		}
		out[key] = cs
	}
	return out, nil
}

func (sc *Schema) decode(v any) (CategoryScore, error) {
	if sc.mode == ModeFixed {
		n, err := toInt(v)
		return CategoryScore{Score: n}, err
	}
	obj := v.(map[string]any)
	n, err := toInt(obj["score"])
	if err != nil {
		return CategoryScore{}, err
	}
	cs := CategoryScore{Score: n}
	if sc.quotes {
		quote := obj["quote"].(string)
		if words := len(strings.Fields(quote)); words > MaxQuoteWords {
			return CategoryScore{}, fmt.Errorf("quote has %d words, at most %d allowed", words, MaxQuoteWords)
		}
		cs.Quote = &quote
	}
	return cs, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("score is %T, not an integer", v)
	}
}

// schemaReason reduces a jsonschema error to its innermost message.
func schemaReason(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve.Message
}
