package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"essaygrader/internal/apperrors"
	"essaygrader/models"
)

// KindTooLarge is the error kind for uploads over the size cap.
const KindTooLarge = "payload_too_large"

var registerTagNames sync.Once

// useJSONFieldNames makes validator report json names ("text") instead of Go
// field names ("Text").
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func statusFor(kind string) int {
	switch kind {
	case apperrors.KindBadRequest:
		return http.StatusBadRequest
	case apperrors.KindExtraction:
		return http.StatusUnprocessableEntity
	case apperrors.KindUpstream, apperrors.KindMalformedResponse, apperrors.KindValidation:
		return http.StatusBadGateway
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the structured error body for err and counts the outcome.
func (sc *ScoreController) respondError(c *gin.Context, err error) {
	kind := apperrors.Kind(err)
	detail := models.ErrorDetail{Kind: kind, Message: err.Error()}

	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		detail.Key = ve.Key
	}
	if kind == apperrors.KindInternal {
		detail.Message = "internal error"
	}
	sc.abort(c, kind, detail, err)
}

// respondBindError reports a request body that failed to decode or validate.
func (sc *ScoreController) respondBindError(c *gin.Context, err error) {
	detail := models.ErrorDetail{Kind: apperrors.KindBadRequest, Message: "invalid request body"}

	var (
		verrs  validator.ValidationErrors
		syntax *json.SyntaxError
		typ    *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &verrs):
		detail.Message = "request failed validation"
		for _, fe := range verrs {
			detail.Fields = append(detail.Fields, models.FieldError{Field: fieldPath(fe), Rule: fe.Tag()})
		}
	case errors.As(err, &syntax):
		detail.Message = "request body is not valid JSON"
	case errors.As(err, &typ):
		detail.Message = "field " + typ.Field + " has the wrong type"
	}
	sc.abort(c, apperrors.KindBadRequest, detail, err)
}

func (sc *ScoreController) abort(c *gin.Context, kind string, detail models.ErrorDetail, err error) {
	status := statusFor(kind)
	log := clog.FromContext(c.Request.Context()).With("kind", kind, "status", status)
	if status >= http.StatusInternalServerError {
		log.Error("score.failed", "error", err)
	} else {
		log.Warn("score.rejected", "error", err)
	}
	sc.metrics.Request(c.FullPath(), kind)
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: detail})
}

// fieldPath drops the top-level struct name: "ScoreFlexRequest.categories[0].name"
// becomes "categories[0].name".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}
