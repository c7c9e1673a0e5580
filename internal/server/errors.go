package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	carddomain "github.com/smallbiznis/punchcard/internal/card/domain"
	checkindomain "github.com/smallbiznis/punchcard/internal/checkin/domain"
	customerdomain "github.com/smallbiznis/punchcard/internal/customer/domain"
	merchantdomain "github.com/smallbiznis/punchcard/internal/merchant/domain"
	moderationdomain "github.com/smallbiznis/punchcard/internal/moderation/domain"
	redemptiondomain "github.com/smallbiznis/punchcard/internal/redemption/domain"
	"github.com/smallbiznis/punchcard/internal/shield"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, shield.ErrBanned):
		// The client shows this text verbatim.
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "You cannot check in at this business.",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, checkindomain.ErrUndoExpired):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "undo_window_expired",
			Message: "the undo window for this check-in has passed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, checkindomain.ErrInvalidPoints),
		errors.Is(err, customerdomain.ErrInvalidPhone),
		errors.Is(err, customerdomain.ErrFirstNameRequired),
		errors.Is(err, merchantdomain.ErrInvalidName),
		errors.Is(err, merchantdomain.ErrInvalidTimezone),
		errors.Is(err, merchantdomain.ErrInvalidStampsRequired),
		errors.Is(err, merchantdomain.ErrInvalidRewardText),
		errors.Is(err, merchantdomain.ErrTierThresholdOrder),
		errors.Is(err, merchantdomain.ErrInvalidCustomerID),
		errors.Is(err, merchantdomain.ErrInvalidID),
		errors.Is(err, carddomain.ErrInvalidID),
		errors.Is(err, carddomain.ErrInvalidReason),
		errors.Is(err, moderationdomain.ErrInvalidID),
		errors.Is(err, redemptiondomain.ErrInvalidTier):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, checkindomain.ErrUnknownScanCode),
		errors.Is(err, checkindomain.ErrVisitNotFound),
		errors.Is(err, merchantdomain.ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, carddomain.ErrNotFound),
		errors.Is(err, moderationdomain.ErrVisitNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, redemptiondomain.ErrNotUnlocked),
		errors.Is(err, redemptiondomain.ErrAlreadyRedeemed),
		errors.Is(err, merchantdomain.ErrScanCodeAlreadyInUse),
		errors.Is(err, carddomain.ErrConflict):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, redemptiondomain.ErrNotUnlocked):
		return "reward is not unlocked"
	case errors.Is(err, redemptiondomain.ErrAlreadyRedeemed):
		return "reward was already redeemed"
	case errors.Is(err, merchantdomain.ErrScanCodeAlreadyInUse):
		return "scan code already in use"
	default:
		return "conflict"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "first_name_required":
		return "first name is required"
	default:
		return "invalid value"
	}
}
