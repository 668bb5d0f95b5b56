package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by storage when a record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed user input. The flow re-sends the current
// prompt with Message and keeps the state.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s", e.Field)
}

// Code returns a stable identifier for logs.
func (e *ValidationError) Code() string { return "validation" }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// EligibilityReason explains why a flow was refused.
type EligibilityReason string

const (
	ReasonDuplicate        EligibilityReason = "duplicate"
	ReasonCapacityFull     EligibilityReason = "capacity_full"
	ReasonInactive         EligibilityReason = "inactive"
	ReasonDeadlinePassed   EligibilityReason = "deadline_passed"
	ReasonAlreadyProcessed EligibilityReason = "already_processed"
	ReasonNotFound         EligibilityReason = "not_found"
)

// EligibilityError terminates a flow with an explanatory message.
type EligibilityError struct {
	Reason EligibilityReason
	// Current is the status already held when Reason is already_processed.
	Current string
}

func (e *EligibilityError) Error() string {
	if e.Current != "" {
		return fmt.Sprintf("not eligible: %s (%s)", e.Reason, e.Current)
	}
	return "not eligible: " + string(e.Reason)
}

// Code returns a stable identifier for logs.
func (e *EligibilityError) Code() string { return "eligibility." + string(e.Reason) }

// Message returns the user-facing explanation.
func (e *EligibilityError) Message() string {
	switch e.Reason {
	case ReasonDuplicate:
		return "ℹ️ شما قبلاً برای این رویداد ثبت‌نام کرده‌اید."
	case ReasonCapacityFull:
		return "❌ ظرفیت این رویداد تکمیل شده است."
	case ReasonInactive:
		return "❌ این رویداد فعال نیست."
	case ReasonDeadlinePassed:
		return "⏱️ مهلت ثبت‌نام این رویداد به پایان رسیده است."
	case ReasonAlreadyProcessed:
		return fmt.Sprintf("⚠️ این مورد قبلاً پردازش شده (وضعیت فعلی: %s). عملیات لغو شد.", e.Current)
	case ReasonNotFound:
		return "❌ مورد مورد نظر پیدا نشد."
	}
	return "❌ امکان ادامه این عملیات وجود ندارد."
}

// Ineligible builds an EligibilityError.
func Ineligible(reason EligibilityReason) error {
	return &EligibilityError{Reason: reason}
}

// IsReason reports whether err is an EligibilityError with reason r.
func IsReason(err error, r EligibilityReason) bool {
	var e *EligibilityError
	return errors.As(err, &e) && e.Reason == r
}

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// Code returns a stable identifier for logs.
func (e *StorageError) Code() string { return "storage" }

// Storage wraps err as a StorageError. Domain errors pass through unchanged.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ee *EligibilityError
		ve *ValidationError
		se *StorageError
	)
	if errors.As(err, &ee) || errors.As(err, &ve) || errors.As(err, &se) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// DeliveryError reports a message that could not reach a third party. It is
// recorded and never rolls back committed state.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Code returns a stable identifier for logs.
func (e *DeliveryError) Code() string { return "delivery" }
