package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"essaygrader/config"
	"essaygrader/internal/extract"
	"essaygrader/internal/llm"
	"essaygrader/internal/metrics"
	"essaygrader/internal/redact"
	"essaygrader/internal/rubric"
	"essaygrader/models"
	"essaygrader/services"
)

func ExtractAction(c *cli.Context) error {
	res, err := extractArg(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, res.Text)
	return err
}

func RedactAction(c *cli.Context) error {
	res, err := extractArg(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, redact.Text(res.Text))
	return err
}

func ScoreAction(c *cli.Context) error {
	ctx := contextOf(c)
	path := c.Args().First()
	if path == "" {
		return cli.Exit("score: FILE is required", 2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(ctx, c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("max-pages") {
		cfg.Scoring.PDFMaxPages = c.Int("max-pages")
	}
	completer, err := llm.New(ctx, cfg.LLMClientConfig(), nil)
	if err != nil {
		return err
	}
	svc := services.NewScoringService(cfg, completer, metrics.New(nil))

	specs := c.StringSlice("category")
	if len(specs) == 0 {
		resp, err := svc.ScoreUpload(ctx, c.String("title"), filepath.Base(path), data)
		if err != nil {
			return err
		}
		rows := lo.MapToSlice(resp.Scores, func(k string, v int) []string {
			return []string{k, strconv.Itoa(v), ""}
		})
		return renderScores(c.App.Writer, resp.Title, rows, resp.TokensEstimate, resp.ModelVersion, resp.Repaired)
	}

	res, err := extract.New(cfg.ExtractConfig()).Extract(ctx, data, path)
	if err != nil {
		return err
	}
	resp, err := svc.ScoreFlexible(ctx, models.ScoreFlexRequest{
		Title:      c.String("title"),
		Text:       res.Text,
		Categories: lo.Map(specs, func(s string, _ int) models.CategoryInput { return parseCategory(s) }),
		Quotes:     c.Bool("quotes"),
	})
	if err != nil {
		return err
	}
	rows := lo.MapToSlice(resp.Scores, func(k string, v rubric.CategoryScore) []string {
		return []string{k, strconv.Itoa(v.Score), lo.FromPtr(v.Quote)}
	})
	return renderScores(c.App.Writer, resp.Title, rows, resp.TokensEstimate, resp.ModelVersion, resp.Repaired)
}

func extractArg(c *cli.Context) (extract.Result, error) {
	path := c.Args().First()
	if path == "" {
		return extract.Result{}, cli.Exit(c.Command.Name+": FILE is required", 2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return extract.Result{}, err
	}
	return extract.New(extract.Config{MaxPages: c.Int("max-pages")}).Extract(contextOf(c), data, path)
}

func contextOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

// parseCategory splits "name:description" on the first colon.
func parseCategory(s string) models.CategoryInput {
	name, desc, _ := strings.Cut(s, ":")
	return models.CategoryInput{Name: strings.TrimSpace(name), Description: strings.TrimSpace(desc)}
}

func renderScores(w io.Writer, title string, rows [][]string, tokens int, model string, repaired bool) error {
	slices.SortFunc(rows, func(a, b []string) int { return strings.Compare(a[0], b[0]) })

	if _, err := fmt.Fprintf(w, "%s (model %s, ~%d words, repaired=%t)\n", title, model, tokens, repaired); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Category", "Score", "Quote"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
	return nil
}
