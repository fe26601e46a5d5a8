package models

import "essaygrader/internal/rubric"

const DefaultTitle = "untitled"

// ScoreTextRequest is the body of POST /score-text.
type ScoreTextRequest struct {
	Title string `json:"title"`
	Text  string `json:"text" binding:"required"`
}

// CategoryInput is one caller-defined rubric category.
type CategoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// ScoreFlexRequest is the body of POST /score-text-flex.
type ScoreFlexRequest struct {
	Title      string          `json:"title"`
	Text       string          `json:"text" binding:"required"`
	Categories []CategoryInput `json:"categories" binding:"required,min=1,dive"`
	Quotes     bool            `json:"quotes"`
}

// FixedScoreResponse is returned by /score and /score-text. Filename is only
// set for uploads.
type FixedScoreResponse struct {
	Title          string         `json:"title"`
	Filename       string         `json:"filename,omitempty"`
	Scores         map[string]int `json:"scores"`
	TokensEstimate int            `json:"tokens_estimate"`
	ModelVersion   string         `json:"model_version"`
	Repaired       bool           `json:"repaired"`
}

// FlexScoreResponse is returned by /score-text-flex.
type FlexScoreResponse struct {
	Title          string        `json:"title"`
	Scores         rubric.Result `json:"scores"`
	TokensEstimate int           `json:"tokens_estimate"`
	ModelVersion   string        `json:"model_version"`
	Repaired       bool          `json:"repaired"`
}

type HealthResponse struct {
	OK    bool   `json:"ok"`
	Model string `json:"model"`
}

// ErrorResponse wraps every non-2xx body.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Key names the category that failed validation.
	Key    string       `json:"key,omitempty"`
	Fields []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}
