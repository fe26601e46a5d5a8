// Package scoring turns a model reply into a validated rubric.Result.
//
// A reply goes through a small state machine:
//
//	Received -> Parsed -> Validated
//	Received -> ParseFailed -> RepairRequested -> RepairParsed -> Validated
//
// Any path may end in Rejected. There is exactly one repair call.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"

	"essaygrader/internal/apperrors"
	"essaygrader/internal/llm"
	"essaygrader/internal/metrics"
	"essaygrader/internal/redact"
	"essaygrader/internal/rubric"
)

type State int

const (
	Received State = iota
	Parsed
	ParseFailed
	RepairRequested
	RepairParsed
	Validated
	Rejected
)

func (s State) String() string {
	switch s {
	case Received:
		return "RECEIVED"
	case Parsed:
		return "PARSED"
	case ParseFailed:
		return "PARSE_FAILED"
	case RepairRequested:
		return "REPAIR_REQUESTED"
	case RepairParsed:
		return "REPAIR_PARSED"
	case Validated:
		return "VALIDATED"
	case Rejected:
		return "REJECTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is a successful scoring run.
type Outcome struct {
	Scores rubric.Result
	// Repaired is set when the first reply did not parse and the repair call was used.
	Repaired bool
	// Trace lists the states visited, ending in Validated.
	Trace []State
}

type Scorer struct {
	completer llm.Completer
	metrics   *metrics.Metrics
}

func New(c llm.Completer, m *metrics.Metrics) *Scorer {
	return &Scorer{completer: c, metrics: m}
}

// Score asks the model to grade text against spec. The text is redacted before
// it is placed in the prompt.
func (s *Scorer) Score(ctx context.Context, spec *rubric.Spec, text string) (*Outcome, error) {
	prompt := llm.Prompt{
		System: spec.SystemPrompt(),
		User:   spec.UserPrompt(redact.Text(text)),
	}
	raw, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, spec, raw)
}

// run drives the state machine from a first reply.
func (s *Scorer) run(ctx context.Context, spec *rubric.Spec, raw string) (*Outcome, error) {
	log := clog.FromContext(ctx).With("mode", spec.Mode)

	var (
		state   = Received
		trace   []State
		doc     map[string]any
		result  rubric.Result
		failure error
	)
	for {
		trace = append(trace, state)
		switch state {
		case Received:
			parsed, err := parseObject(raw)
			if err != nil {
				log.Info("scoring.parse_failed", "reply_chars", len(raw), "error", err)
				state = ParseFailed
				continue
			}
			doc, state = parsed, Parsed

		case ParseFailed:
			state = RepairRequested

		case RepairRequested:
			log.Info("scoring.repair.requested")
			fixed, err := s.completer.Complete(ctx, llm.Prompt{
				System: spec.RepairSystemPrompt(),
				User:   raw,
			})
			if err != nil {
				s.metrics.Repair(metrics.RepairFailed)
				failure, state = err, Rejected
				continue
			}
			parsed, err := parseObject(fixed)
			if err != nil {
				s.metrics.Repair(metrics.RepairFailed)
				failure = &apperrors.MalformedResponseError{Raw: fixed, Cause: err}
				state = Rejected
				continue
			}
			s.metrics.Repair(metrics.RepairSucceeded)
			doc, state = parsed, RepairParsed

		case Parsed, RepairParsed:
			res, err := spec.Schema().Validate(doc)
			if err != nil {
				failure, state = err, Rejected
				continue
			}
			result, state = res, Validated

		case Validated:
			return &Outcome{
				Scores:   result,
				Repaired: slices.Contains(trace, RepairParsed),
				Trace:    trace,
			}, nil

		case Rejected:
			log.Warn("scoring.rejected", "trace", fmt.Sprint(trace), "error", failure)
			return nil, failure

		default:
			return nil, fmt.Errorf("scoring: unknown state %v", state)
		}
	}
}

// parseObject decodes raw as exactly one JSON object. Surrounding prose,
// code fences and non-object values are rejected.
func parseObject(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty reply")
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("reply is not a JSON object")
	}
	return doc, nil
}
