package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"essaygrader/config"
	"essaygrader/internal/apperrors"
	"essaygrader/internal/llm/llmtest"
	"essaygrader/internal/redact"
	"essaygrader/models"
)

func newTestService(t *testing.T, fake *llmtest.Scripted) *ScoringService {
	t.Helper()
	cfg := config.Defaults()
	cfg.LLM.OpenAIAPIKey = "sk-test"
	return NewScoringService(cfg, fake, nil)
}

func TestScoreTextTokensEstimateUsesRedactedText(t *testing.T) {
	req := require.New(t)
	fake := llmtest.New(`{"argumentation":2,"writing":3,"creativity":1}`)
	svc := newTestService(t, fake)

	// "Jane Doe" collapses into a single token after redaction.
	text := "Homework by Jane Doe helps students learn."
	resp, err := svc.ScoreText(context.Background(), models.ScoreTextRequest{Text: text})
	req.NoError(err)

	req.Equal(models.DefaultTitle, resp.Title)
	req.Equal(map[string]int{"argumentation": 2, "writing": 3, "creativity": 1}, resp.Scores)
	req.Equal(len(strings.Fields(redact.Text(text))), resp.TokensEstimate)
	req.Equal(6, resp.TokensEstimate)
	req.Equal("gpt-4o-mini", resp.ModelVersion)
	req.Empty(resp.Filename)
}

func TestScoreTextRejectsBlank(t *testing.T) {
	fake := llmtest.New()
	_, err := newTestService(t, fake).ScoreText(context.Background(), models.ScoreTextRequest{Text: " \n\t"})

	var br *apperrors.BadRequestError
	require.ErrorAs(t, err, &br)
	require.Equal(t, "text", br.Field)
	require.Empty(t, fake.Calls())
}

func TestScoreUploadPlainText(t *testing.T) {
	req := require.New(t)
	fake := llmtest.New(`{"argumentation":1,"writing":1,"creativity":1}`)

	resp, err := newTestService(t, fake).ScoreUpload(context.Background(), "My Essay", "essay.txt",
		[]byte("Contact me at kid@example.com about this essay."))
	req.NoError(err)
	req.Equal("essay.txt", resp.Filename)
	req.Equal("My Essay", resp.Title)
	req.NotContains(fake.Calls()[0].User, "kid@example.com")
}

func TestScoreUploadEmptyFile(t *testing.T) {
	fake := llmtest.New()
	_, err := newTestService(t, fake).ScoreUpload(context.Background(), "", "empty.txt", []byte("   "))

	var br *apperrors.BadRequestError
	require.ErrorAs(t, err, &br)
	require.Equal(t, "file", br.Field)
}

func TestScoreUploadBadPDF(t *testing.T) {
	_, err := newTestService(t, llmtest.New()).ScoreUpload(context.Background(), "", "essay.pdf", []byte("plain words"))
	require.Equal(t, apperrors.KindExtraction, apperrors.Kind(err))
}

func TestScoreFlexibleUsesNormalizedKeys(t *testing.T) {
	req := require.New(t)
	fake := llmtest.New(`{"clarity_of_thought":{"score":2,"quote":"Homework helps"}}`)

	resp, err := newTestService(t, fake).ScoreFlexible(context.Background(), models.ScoreFlexRequest{
		Title:      "t",
		Text:       "Homework helps students.",
		Categories: []models.CategoryInput{{Name: "Clarity Of Thought"}},
		Quotes:     true,
	})
	req.NoError(err)
	req.Contains(resp.Scores, "clarity_of_thought")
	req.Equal("Homework helps", *resp.Scores["clarity_of_thought"].Quote)
	req.Contains(fake.Calls()[0].User, `"clarity_of_thought"`)
}

func TestScoreFlexibleLimitFromConfig(t *testing.T) {
	fake := llmtest.New(`{"voice":{"score":1}}`)
	cfg := config.Defaults()
	cfg.LLM.OpenAIAPIKey = "sk-test"
	cfg.Scoring.FlexibleTextLimit = 12
	svc := NewScoringService(cfg, fake, nil)

	_, err := svc.ScoreFlexible(context.Background(), models.ScoreFlexRequest{
		Text:       "twelve chars and then some",
		Categories: []models.CategoryInput{{Name: "voice"}},
	})
	require.NoError(t, err)
	require.Contains(t, fake.Calls()[0].User, `"""twelve chars"""`)
}

func TestScoreFlexibleDuplicateCategories(t *testing.T) {
	fake := llmtest.New()
	_, err := newTestService(t, fake).ScoreFlexible(context.Background(), models.ScoreFlexRequest{
		Text:       "text",
		Categories: []models.CategoryInput{{Name: "Voice"}, {Name: "voice"}},
	})
	require.Equal(t, apperrors.KindBadRequest, apperrors.Kind(err))
	require.Empty(t, fake.Calls())
}
