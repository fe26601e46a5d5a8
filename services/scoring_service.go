package services

import (
	"context"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/samber/lo"

	"essaygrader/config"
	"essaygrader/internal/apperrors"
	"essaygrader/internal/extract"
	"essaygrader/internal/llm"
	"essaygrader/internal/metrics"
	"essaygrader/internal/redact"
	"essaygrader/internal/rubric"
	"essaygrader/internal/scoring"
	"essaygrader/models"
)

// ScoringService runs extract -> redact -> rubric -> score for each route.
type ScoringService struct {
	cfg       *config.Config
	extractor *extract.Extractor
	scorer    *scoring.Scorer
}

func NewScoringService(cfg *config.Config, completer llm.Completer, m *metrics.Metrics) *ScoringService {
	return &ScoringService{
		cfg:       cfg,
		extractor: extract.New(cfg.ExtractConfig()),
		scorer:    scoring.New(completer, m),
	}
}

// Model is the configured model identifier.
func (s *ScoringService) Model() string { return s.cfg.ModelName() }

// ScoreUpload extracts text from an uploaded document and scores it against
// the fixed rubric.
func (s *ScoringService) ScoreUpload(ctx context.Context, title, filename string, data []byte) (*models.FixedScoreResponse, error) {
	res, err := s.extractor.Extract(ctx, data, filename)
	if err != nil {
		return nil, err
	}
	clog.FromContext(ctx).Info("score.upload.extracted",
		"format", res.Format, "mime", res.MIME, "pages", res.Pages, "chars", len(res.Text))
	if strings.TrimSpace(res.Text) == "" {
		return nil, &apperrors.BadRequestError{Field: "file", Message: "no extractable text"}
	}

	resp, err := s.scoreFixed(ctx, title, res.Text)
	if err != nil {
		return nil, err
	}
	resp.Filename = filename
	return resp, nil
}

// ScoreText scores raw essay text against the fixed rubric.
func (s *ScoringService) ScoreText(ctx context.Context, req models.ScoreTextRequest) (*models.FixedScoreResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &apperrors.BadRequestError{Field: "text", Message: "must not be empty"}
	}
	return s.scoreFixed(ctx, req.Title, req.Text)
}

// ScoreFlexible scores text against caller-supplied categories.
func (s *ScoringService) ScoreFlexible(ctx context.Context, req models.ScoreFlexRequest) (*models.FlexScoreResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &apperrors.BadRequestError{Field: "text", Message: "must not be empty"}
	}
	cats := lo.Map(req.Categories, func(c models.CategoryInput, _ int) rubric.Category {
		return rubric.Category{Name: c.Name, Description: c.Description}
	})
	spec, err := rubric.Flexible(cats, req.Quotes)
	if err != nil {
		return nil, err
	}
	spec.TextLimit = s.cfg.Scoring.FlexibleTextLimit

	redacted := redact.Text(req.Text)
	out, err := s.scorer.Score(ctx, spec, redacted)
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, spec, redacted, out)
	return &models.FlexScoreResponse{
		Title:          titleOrDefault(req.Title),
		Scores:         out.Scores,
		TokensEstimate: tokensEstimate(redacted),
		ModelVersion:   s.Model(),
		Repaired:       out.Repaired,
	}, nil
}

func (s *ScoringService) scoreFixed(ctx context.Context, title, text string) (*models.FixedScoreResponse, error) {
	spec := rubric.Fixed()
	spec.TextLimit = s.cfg.Scoring.FixedTextLimit

	redacted := redact.Text(text)
	out, err := s.scorer.Score(ctx, spec, redacted)
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, spec, redacted, out)
	return &models.FixedScoreResponse{
		Title:          titleOrDefault(title),
		Scores:         out.Scores.Ints(),
		TokensEstimate: tokensEstimate(redacted),
		ModelVersion:   s.Model(),
		Repaired:       out.Repaired,
	}, nil
}

func (s *ScoringService) logDone(ctx context.Context, spec *rubric.Spec, redacted string, out *scoring.Outcome) {
	clog.FromContext(ctx).Info("score.done",
		"mode", spec.Mode,
		"categories", len(spec.Categories),
		"chars", len(redacted),
		"repaired", out.Repaired)
}

// tokensEstimate is a whitespace word count, not a tokenizer count.
func tokensEstimate(redacted string) int {
	return len(strings.Fields(redacted))
}

func titleOrDefault(title string) string {
	if title == "" {
		return models.DefaultTitle
	}
	return title
}
