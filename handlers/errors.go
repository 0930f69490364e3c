package handlers

import (
	"errors"

	"ze-club/logging"
	"ze-club/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Error codes returned in the "code" field.
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeOutOfStock          = "OUT_OF_STOCK"
	CodeRevertBlocked       = "REVERT_BLOCKED"
	CodeRewardLocked        = "REWARD_LOCKED"
	CodeDuplicateSubmission = "DUPLICATE_SUBMISSION"
	CodeMissionClosed       = "MISSION_CLOSED"
	CodeInternal            = "INTERNAL_ERROR"
)

const internalMessage = "An internal error occurred. Please try again later."

// APIError is the JSON body of every error response.
type APIError struct {
	Status  int                    `json:"-"`
	Message string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

var kindMap = []struct {
	kind   error
	status int
	code   string
}{
	{services.ErrUnauthorized, fiber.StatusUnauthorized, CodeUnauthorized},
	{services.ErrForbidden, fiber.StatusForbidden, CodeForbidden},
	{services.ErrValidation, fiber.StatusBadRequest, CodeValidation},
	{services.ErrNotFound, fiber.StatusNotFound, CodeNotFound},
	{services.ErrInvalidState, fiber.StatusConflict, CodeInvalidState},
	{services.ErrInsufficientBalance, fiber.StatusConflict, CodeInsufficientBalance},
	{services.ErrOutOfStock, fiber.StatusConflict, CodeOutOfStock},
	{services.ErrRevertBlocked, fiber.StatusConflict, CodeRevertBlocked},
	{services.ErrRewardLocked, fiber.StatusForbidden, CodeRewardLocked},
	{services.ErrDuplicateSubmission, fiber.StatusConflict, CodeDuplicateSubmission},
	{services.ErrMissionClosed, fiber.StatusConflict, CodeMissionClosed},
}

// MapError converts service errors into API errors. Unknown errors become a sanitized 500.
func MapError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var serr *services.SettlementError
	if errors.As(err, &serr) {
		for _, k := range kindMap {
			if errors.Is(serr.Kind, k.kind) {
				return &APIError{Status: k.status, Message: serr.Message, Code: k.code, Details: serr.Details}
			}
		}
	}
	for _, k := range kindMap {
		if errors.Is(err, k.kind) {
			return &APIError{Status: k.status, Message: err.Error(), Code: k.code}
		}
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code := CodeInternal
		switch {
		case ferr.Code == fiber.StatusNotFound:
			code = CodeNotFound
		case ferr.Code == fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case ferr.Code == fiber.StatusRequestEntityTooLarge:
			code = "PAYLOAD_TOO_LARGE"
		case ferr.Code < 500:
			code = "BAD_REQUEST"
		}
		if ferr.Code < 500 {
			return &APIError{Status: ferr.Code, Message: ferr.Message, Code: code}
		}
	}

	return &APIError{Status: fiber.StatusInternalServerError, Message: internalMessage, Code: CodeInternal}
}

// ErrorHandler is the app-wide fiber error handler.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		apiErr := MapError(err)
		l := logging.FromContext(c.UserContext(), log)
		if apiErr.Status >= fiber.StatusInternalServerError {
			l.Error("internal error", zap.Error(err))
		} else {
			l.Info("API error response",
				zap.Int("status_code", apiErr.Status),
				zap.String("error_code", apiErr.Code),
				zap.String("error_message", apiErr.Message),
			)
		}
		return c.Status(apiErr.Status).JSON(apiErr)
	}
}
