package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"essaygrader/internal/apperrors"
	"essaygrader/internal/metrics"
	"essaygrader/models"
	"essaygrader/services"
)

type ScoreController struct {
	svc            *services.ScoringService
	metrics        *metrics.Metrics
	maxUploadBytes int64
}

func NewScoreController(svc *services.ScoringService, m *metrics.Metrics, maxUploadBytes int64) *ScoreController {
	useJSONFieldNames()
	return &ScoreController{svc: svc, metrics: m, maxUploadBytes: maxUploadBytes}
}

// Health reports liveness and the configured model.
func (sc *ScoreController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{OK: true, Model: sc.svc.Model()})
}

// ScoreUpload handles a multipart upload with a required "file" part and an
// optional "title" field.
func (sc *ScoreController) ScoreUpload(c *gin.Context) {
	if sc.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, sc.maxUploadBytes)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			sc.abort(c, KindTooLarge, models.ErrorDetail{
				Kind:    KindTooLarge,
				Message: "upload exceeds the size limit",
			}, err)
			return
		}
		sc.respondError(c, &apperrors.BadRequestError{Field: "file", Message: "a file upload is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		sc.respondError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		sc.respondError(c, err)
		return
	}

	resp, err := sc.svc.ScoreUpload(c.Request.Context(), c.PostForm("title"), fh.Filename, data)
	if err != nil {
		sc.respondError(c, err)
		return
	}
	sc.metrics.Request(c.FullPath(), "ok")
	c.JSON(http.StatusOK, resp)
}

// ScoreText scores a JSON body against the fixed rubric.
func (sc *ScoreController) ScoreText(c *gin.Context) {
	var req models.ScoreTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sc.respondBindError(c, err)
		return
	}

	resp, err := sc.svc.ScoreText(c.Request.Context(), req)
	if err != nil {
		sc.respondError(c, err)
		return
	}
	sc.metrics.Request(c.FullPath(), "ok")
	c.JSON(http.StatusOK, resp)
}

// ScoreTextFlex scores a JSON body against caller-supplied categories.
func (sc *ScoreController) ScoreTextFlex(c *gin.Context) {
	var req models.ScoreFlexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sc.respondBindError(c, err)
		return
	}

	resp, err := sc.svc.ScoreFlexible(c.Request.Context(), req)
	if err != nil {
		sc.respondError(c, err)
		return
	}
	sc.metrics.Request(c.FullPath(), "ok")
	c.JSON(http.StatusOK, resp)
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
