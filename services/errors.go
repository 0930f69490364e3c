package services

import (
	"errors"
	"fmt"

	"ze-club/utils"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidState        = errors.New("invalid state")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOutOfStock          = errors.New("out of stock")
	ErrRevertBlocked       = errors.New("revert blocked by active redemptions")
	ErrRewardLocked        = errors.New("reward locked")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrMissionClosed       = errors.New("mission closed")
	ErrForbidden           = errors.New("forbidden")
)

// SettlementError is a business-rule violation that carries a client-facing message
// and, optionally, a details payload. Unwrap yields the sentinel that classifies it.
type SettlementError struct {
	Kind    error
	Message string
	Details map[string]interface{}
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *SettlementError) Unwrap() error { return e.Kind }

func newSettlementError(kind error, msg string, details map[string]interface{}) *SettlementError {
	return &SettlementError{Kind: kind, Message: msg, Details: details}
}

func notFound(what string) *SettlementError {
	return newSettlementError(ErrNotFound, what+" not found", nil)
}

// validateInput runs the struct validator and reports failures per JSON field.
func validateInput(v interface{}) error {
	err := utils.ValidateStruct(v)
	if err == nil {
		return nil
	}
	details := map[string]interface{}{}
	for field, rule := range utils.ValidationDetails(err) {
		details[field] = rule
	}
	return newSettlementError(ErrValidation, "invalid request", details)
}

// ParseBody decodes JSON or form bodies into dst and validates it.
func ParseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return newSettlementError(ErrValidation, "invalid request body", nil)
	}
	return validateInput(dst)
}
