package rubric

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"essaygrader/internal/apperrors"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Clarity Of Thought":     "clarity_of_thought",
		"  evidence  ":           "evidence",
		"Use\tof \n  Sources":    "use_of_sources",
		"already_normalized":     "already_normalized",
		"MIXED case  Two Spaces": "mixed_case_two_spaces",
	}
	for in, want := range tests {
		require.Equal(t, want, NormalizeName(in), in)
	}
}

func TestFlexibleRejectsBadCategories(t *testing.T) {
	tests := []struct {
		name  string
		cats  []Category
		field string
	}{
		{"none", nil, "categories"},
		{"too short", []Category{{Name: "a"}}, "categories[0].name"},
		{"too long", []Category{{Name: "ok"}, {Name: strings.Repeat("x", 41)}}, "categories[1].name"},
		{"long description", []Category{{Name: "clarity", Description: strings.Repeat("d", 201)}}, "categories[0].description"},
		{"duplicate after normalization", []Category{{Name: "Clarity Of Thought"}, {Name: "clarity  of thought"}}, "categories"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Flexible(tt.cats, false)
			var br *apperrors.BadRequestError
			require.ErrorAs(t, err, &br)
			require.Equal(t, tt.field, br.Field)
		})
	}
}

func TestBuildFlexible(t *testing.T) {
	req := require.New(t)

	instructions, shape, err := Build([]Category{
		{Name: "Clarity Of Thought", Description: ""},
		{Name: "evidence", Description: "Uses sources to back claims"},
	}, false)
	req.NoError(err)
	req.Equal("- clarity_of_thought: "+defaultDescription+"\n- evidence: Uses sources to back claims\n", instructions)
	req.Equal(`{"clarity_of_thought": {"score": 0-3}, "evidence": {"score": 0-3}}`, shape)

	_, quoted, err := Build([]Category{{Name: "evidence"}}, true)
	req.NoError(err)
	req.Equal(`{"evidence": {"score": 0-3, "quote": "≤25 words"}}`, quoted)
}

func TestFixedPrompt(t *testing.T) {
	req := require.New(t)
	s := Fixed()

	req.Equal([]string{"argumentation", "writing", "creativity"}, s.Keys())
	prompt := s.UserPrompt("My essay.")
	req.True(strings.HasPrefix(prompt, "Text:\n\"\"\"My essay.\"\"\"\n\nRUBRIC (0–3):\n"))
	req.Contains(prompt, "creativity: 0=generic, 1=some originality, 2=unique voice, 3=novel insight\n\nTask:\n")
	req.True(strings.HasSuffix(prompt, `Return JSON: {"argumentation":0-3, "writing":0-3, "creativity":0-3}. No extra text.`))
	req.Contains(s.RepairSystemPrompt(), "argumentation, writing, creativity")
}

func TestUserPromptTruncates(t *testing.T) {
	req := require.New(t)

	fixed := Fixed()
	text := strings.Repeat("é", 5000) + "TAIL"
	req.NotContains(fixed.UserPrompt(text), "TAIL")
	req.Contains(fixed.UserPrompt(text), strings.Repeat("é", 5000))

	flex, err := Flexible([]Category{{Name: "clarity"}}, false)
	req.NoError(err)
	long := strings.Repeat("a", 5500) + "TAIL"
	req.NotContains(fixed.UserPrompt(long), "TAIL")
	req.Contains(flex.UserPrompt(long), "TAIL")
	req.NotContains(flex.UserPrompt(strings.Repeat("a", 6000)+"TAIL"), "TAIL")

	flex.TextLimit = 10
	req.Contains(flex.UserPrompt("0123456789XYZ"), `"""0123456789"""`)
}

func TestFlexiblePromptEmbedsShape(t *testing.T) {
	s, err := Flexible([]Category{{Name: "Voice"}, {Name: "Structure", Description: "Paragraphs flow"}}, true)
	require.NoError(t, err)

	prompt := s.UserPrompt("text")
	require.Contains(t, prompt, s.Shape())
	require.Contains(t, prompt, "- structure: Paragraphs flow\n")
	require.Contains(t, prompt, "at most 25 words")
	require.Contains(t, s.RepairSystemPrompt(), s.Shape())
}

func TestFixedSchema(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
	}{
		{"missing writing", `{"argumentation":2,"creativity":1}`, "writing"},
		{"out of range", `{"argumentation":4,"writing":1,"creativity":1}`, "argumentation"},
		{"negative", `{"argumentation":1,"writing":-1,"creativity":1}`, "writing"},
		{"fractional", `{"argumentation":1,"writing":1,"creativity":1.5}`, "creativity"},
		{"string score", `{"argumentation":"2","writing":1,"creativity":1}`, "argumentation"},
		{"null score", `{"argumentation":1,"writing":null,"creativity":1}`, "writing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fixed().Schema().Validate(decode(t, tt.raw))
			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.wantKey, ve.Key)
		})
	}
}

func TestFixedSchemaAcceptsExtras(t *testing.T) {
	got, err := Fixed().Schema().Validate(decode(t, `{"argumentation":2,"writing":3,"creativity":0,"comment":"nice"}`))
	require.NoError(t, err)
	want := map[string]int{"argumentation": 2, "writing": 3, "creativity": 0}
	if diff := cmp.Diff(want, got.Ints()); diff != "" {
		t.Errorf("scores (-want +got):\n%s", diff)
	}
}

func TestFlexibleSchema(t *testing.T) {
	cats := []Category{{Name: "Clarity Of Thought"}, {Name: "evidence"}}

	t.Run("scores only", func(t *testing.T) {
		s, err := Flexible(cats, false)
		require.NoError(t, err)
		got, err := s.Schema().Validate(decode(t, `{"clarity_of_thought":{"score":2,"quote":"ignored"},"evidence":{"score":0},"extra":{"score":3}}`))
		require.NoError(t, err)
		want := Result{"clarity_of_thought": {Score: 2}, "evidence": {Score: 0}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("result (-want +got):\n%s", diff)
		}
	})

	t.Run("unnormalized key is missing", func(t *testing.T) {
		s, err := Flexible(cats, false)
		require.NoError(t, err)
		_, err = s.Schema().Validate(decode(t, `{"Clarity Of Thought":{"score":2},"evidence":{"score":1}}`))
		var ve *apperrors.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Equal(t, "clarity_of_thought", ve.Key)
	})

	t.Run("bare integer rejected", func(t *testing.T) {
		s, err := Flexible(cats, false)
		require.NoError(t, err)
		_, err = s.Schema().Validate(decode(t, `{"clarity_of_thought":2,"evidence":{"score":1}}`))
		var ve *apperrors.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Equal(t, "clarity_of_thought", ve.Key)
	})

	t.Run("quotes", func(t *testing.T) {
		s, err := Flexible(cats, true)
		require.NoError(t, err)
		got, err := s.Schema().Validate(decode(t, `{"clarity_of_thought":{"score":3,"quote":"a clear thesis"},"evidence":{"score":1,"quote":""}}`))
		require.NoError(t, err)
		require.Equal(t, "a clear thesis", *got["clarity_of_thought"].Quote)
		require.Equal(t, "", *got["evidence"].Quote)
	})

	t.Run("quote too long", func(t *testing.T) {
		s, err := Flexible(cats, true)
		require.NoError(t, err)
		long := strings.TrimSpace(strings.Repeat("word ", 26))
		_, err = s.Schema().Validate(map[string]any{
			"clarity_of_thought": map[string]any{"score": float64(1), "quote": "fine"},
			"evidence":           map[string]any{"score": float64(1), "quote": long},
		})
		var ve *apperrors.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Equal(t, "evidence", ve.Key)
	})

	t.Run("quote of exactly 25 words", func(t *testing.T) {
		s, err := Flexible([]Category{{Name: "evidence"}}, true)
		require.NoError(t, err)
		_, err = s.Schema().Validate(map[string]any{
			"evidence": map[string]any{"score": float64(1), "quote": strings.Repeat("w ", 25)},
		})
		require.NoError(t, err)
	})

	t.Run("quote missing when requested", func(t *testing.T) {
		s, err := Flexible(cats, true)
		require.NoError(t, err)
		_, err = s.Schema().Validate(decode(t, `{"clarity_of_thought":{"score":1},"evidence":{"score":1,"quote":"x"}}`))
		var ve *apperrors.ValidationError
		require.ErrorAs(t, err, &ve)
		require.Equal(t, "clarity_of_thought", ve.Key)
	})
}
