package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DTOs
// ══════════════════════════════════════════════════════════════════════════════

type startSessionRequest struct {
	StartPosition float64 `json:"startPosition" validate:"gte=0"`
}

type endSessionRequest struct {
	EndPosition float64 `json:"endPosition" validate:"gte=0"`
	Completed   bool    `json:"completed"`
}

type recordProgressRequest struct {
	WatchTime       float64 `json:"watchTime" validate:"gte=0"`
	TotalDuration   float64 `json:"totalDuration" validate:"gt=0"`
	CurrentPosition float64 `json:"currentPosition" validate:"gte=0"`
}

type rateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type bookmarkRequest struct {
	Bookmarked *bool `json:"bookmarked" validate:"required"`
}

type engagementRequest struct {
	AttentionLevel  int    `json:"attentionLevel" validate:"min=1,max=5"`
	EnjoymentLevel  int    `json:"enjoymentLevel" validate:"min=1,max=5"`
	ConfidenceLevel int    `json:"confidenceLevel" validate:"min=1,max=5"`
	Notes           string `json:"notes" validate:"max=1000"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Decoding and validation
// ─────────────────────────────────────────────────────────────────────────────

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// requestError is a decode or validation failure.
type requestError struct {
	status int
	api    *APIError
}

func (e *requestError) Error() string { return e.api.Message }

// decodeRequest reads a JSON body into dst and validates it.
// An empty body is accepted when allowEmpty is set.
func decodeRequest(r *http.Request, dst any, allowEmpty bool) *requestError {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return &requestError{
				status: http.StatusBadRequest,
				api:    &APIError{Code: "malformed_body", Message: "request body must be valid JSON"},
			}
		}
	}

	if err := getValidator().Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &requestError{
				status: http.StatusUnprocessableEntity,
				api:    &APIError{Code: "validation_error", Message: err.Error()},
			}
		}
		fields := make(map[string]string, len(verrs))
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msg := translateFieldError(fe)
			fields[fe.Field()] = msg
			messages = append(messages, msg)
		}
		return &requestError{
			status: http.StatusUnprocessableEntity,
			api:    &APIError{Code: "validation_error", Message: strings.Join(messages, "; "), Fields: fields},
		}
	}
	return nil
}

func translateFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
