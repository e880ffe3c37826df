package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	// Validation class.

	ErrInvalidDuration = errors.New("duration outside configured limits")

	ErrInvalidAmount = errors.New("principal must be greater than zero")

	ErrInvalidRate = errors.New("interest rate must be greater than zero")

	// Authorization class.

	ErrNotCollateralOwner = errors.New("caller does not own the collateral token")

	ErrNotBorrower = errors.New("caller is not the borrower")

	ErrNotLender = errors.New("caller is not the lender")

	ErrNotOwner = errors.New("caller is not the protocol owner")

	// Approval class.

	ErrCollateralNotApproved = errors.New("escrow is not approved to transfer the collateral")

	// State-conflict class.

	ErrLoanNotFound = errors.New("loan does not exist")

	ErrLoanAlreadyFunded = errors.New("loan is already funded or closed")

	ErrLoanNotActive = errors.New("loan is not active")

	ErrLoanNotExpired = errors.New("loan has not expired yet")

	// Settlement class.

	ErrTransferFailed = errors.New("asset transfer rejected")

	// Policy class.

	ErrFeeTooHigh = errors.New("platform fee exceeds maximum")
)

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {

	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}
