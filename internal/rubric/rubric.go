// Package rubric builds scoring instructions for the model and the schema its
// answer is checked against. Both come from the same Spec so the prompt and the
// validator always agree on the response shape.
package rubric

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"essaygrader/internal/apperrors"
)

const (
	MinScore      = 0
	MaxScore      = 3
	MaxQuoteWords = 25

	MinNameLen        = 2
	MaxNameLen        = 40
	MaxDescriptionLen = 200

	DefaultFixedTextLimit    = 5000
	DefaultFlexibleTextLimit = 6000

	defaultDescription = "No description provided; use general judgment."
)

type Mode string

const (
	ModeFixed    Mode = "fixed"
	ModeFlexible Mode = "flexible"
)

// Fixed rubric keys, in prompt order.
const (
	KeyArgumentation = "argumentation"
	KeyWriting       = "writing"
	KeyCreativity    = "creativity"
)

const fixedRubric = `RUBRIC (0–3):
argumentation: 0=none, 1=basic, 2=clear, 3=advanced
writing: 0=errors, 1=some errors, 2=clear, 3=polished
creativity: 0=generic, 1=some originality, 2=unique voice, 3=novel insight
`

const (
	fixedShape           = `{"argumentation":0-3, "writing":0-3, "creativity":0-3}`
	fixedSystemPrompt    = "You are an assistant that scores student work. Output JSON only."
	fixedRepairPrompt    = "Fix invalid JSON to match: keys argumentation, writing, creativity as integers 0..3. Output JSON only."
	flexibleSystemPrompt = "You are an assistant that scores student work against a rubric. Output JSON only."
)

// Category is one caller-supplied rubric line. Name is the literal response key.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Spec describes one scoring request: which keys the model must return and how.
type Spec struct {
	Mode       Mode
	Categories []Category
	Quotes     bool
	// TextLimit is the number of characters of essay text placed in the prompt.
	TextLimit int

	schema *Schema
}

// Fixed returns the three-category rubric.
func Fixed() *Spec {
	s := &Spec{
		Mode: ModeFixed,
		Categories: []Category{
			{Name: KeyArgumentation},
			{Name: KeyWriting},
			{Name: KeyCreativity},
		},
		TextLimit: DefaultFixedTextLimit,
	}
	s.schema = newSchema(s)
	return s
}

// Flexible returns a rubric built from caller categories. Names are normalized
// and must be unique afterwards.
func Flexible(categories []Category, quotes bool) (*Spec, error) {
	cats, err := NormalizeCategories(categories)
	if err != nil {
		return nil, err
	}
	s := &Spec{
		Mode:       ModeFlexible,
		Categories: cats,
		Quotes:     quotes,
		TextLimit:  DefaultFlexibleTextLimit,
	}
	s.schema = newSchema(s)
	return s, nil
}

// Build returns the category instruction lines and the expected response shape
// for a flexible rubric.
func Build(categories []Category, quotes bool) (instructions, shape string, err error) {
	s, err := Flexible(categories, quotes)
	if err != nil {
		return "", "", err
	}
	return s.Instructions(), s.Shape(), nil
}

// NormalizeName lowercases name and joins its words with underscores.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// NormalizeCategories checks length limits and returns the categories with
// normalized names, rejecting duplicates.
func NormalizeCategories(categories []Category) ([]Category, error) {
	if len(categories) == 0 {
		return nil, &apperrors.BadRequestError{Field: "categories", Message: "at least one category is required"}
	}
	out := make([]Category, 0, len(categories))
	for i, c := range categories {
		field := fmt.Sprintf("categories[%d]", i)
		name := NormalizeName(c.Name)
		if n := utf8.RuneCountInString(name); n < MinNameLen || n > MaxNameLen {
			return nil, &apperrors.BadRequestError{
				Field:   field + ".name",
				Message: fmt.Sprintf("must be %d-%d characters", MinNameLen, MaxNameLen),
			}
		}
		desc := strings.TrimSpace(c.Description)
		if utf8.RuneCountInString(desc) > MaxDescriptionLen {
			return nil, &apperrors.BadRequestError{
				Field:   field + ".description",
				Message: fmt.Sprintf("must be at most %d characters", MaxDescriptionLen),
			}
		}
		out = append(out, Category{Name: name, Description: desc})
	}
	if dups := lo.FindDuplicatesBy(out, func(c Category) string { return c.Name }); len(dups) > 0 {
		return nil, &apperrors.BadRequestError{
			Field:   "categories",
			Message: fmt.Sprintf("duplicate category %q", dups[0].Name),
		}
	}
	return out, nil
}

// Keys returns the response keys in prompt order.
func (s *Spec) Keys() []string {
	return lo.Map(s.Categories, func(c Category, _ int) string { return c.Name })
}

// Schema returns the validator matching this rubric.
func (s *Spec) Schema() *Schema { return s.schema }

// Instructions renders one "- name: description" line per category.
func (s *Spec) Instructions() string {
	if s.Mode == ModeFixed {
		return fixedRubric
	}
	var b strings.Builder
	for _, c := range s.Categories {
		desc := c.Description
		if desc == "" {
			desc = defaultDescription
		}
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, desc)
	}
	return b.String()
}

// Shape is the literal JSON template the model is asked to fill in.
func (s *Spec) Shape() string {
	if s.Mode == ModeFixed {
		return fixedShape
	}
	value := `{"score": 0-3}`
	if s.Quotes {
		value = fmt.Sprintf(`{"score": 0-3, "quote": "≤%d words"}`, MaxQuoteWords)
	}
	parts := lo.Map(s.Categories, func(c Category, _ int) string {
		return fmt.Sprintf("%q: %s", c.Name, value)
	})
	return "{" + strings.Join(parts, ", ") + "}"
}

// SystemPrompt is the instruction message for the scoring call.
func (s *Spec) SystemPrompt() string {
	if s.Mode == ModeFixed {
		return fixedSystemPrompt
	}
	return flexibleSystemPrompt
}

// UserPrompt embeds text, cut to TextLimit characters, with the rubric and task.
func (s *Spec) UserPrompt(text string) string {
	text = Truncate(text, s.TextLimit)
	if s.Mode == ModeFixed {
		return fmt.Sprintf("Text:\n\"\"\"%s\"\"\"\n\n%s\nTask:\nReturn JSON: %s. No extra text.", text, fixedRubric, fixedShape)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Text:\n\"\"\"%s\"\"\"\n\n", text)
	fmt.Fprintf(&b, "RUBRIC (each category scored %d–%d):\n%s\n", MinScore, MaxScore, s.Instructions())
	b.WriteString("Task:\n")
	fmt.Fprintf(&b, "Return JSON exactly in this shape: %s.\n", s.Shape())
	fmt.Fprintf(&b, "Use these keys exactly. Scores are integers %d-%d.\n", MinScore, MaxScore)
	if s.Quotes {
		fmt.Fprintf(&b, "Each quote is a verbatim excerpt from the text of at most %d words supporting the score.\n", MaxQuoteWords)
	}
	b.WriteString("No extra text.")
	return b.String()
}

// RepairSystemPrompt asks the model to coerce its own output into the expected shape.
func (s *Spec) RepairSystemPrompt() string {
	if s.Mode == ModeFixed {
		return fixedRepairPrompt
	}
	return fmt.Sprintf("Fix invalid JSON to match this shape: %s. Scores are integers %d..%d. Output JSON only.",
		s.Shape(), MinScore, MaxScore)
}

// Truncate keeps at most limit characters of text. A non-positive limit keeps everything.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}
