package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindForbidden         ErrorKind = "forbidden"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindNotFound          ErrorKind = "not_found"
	KindConflict          ErrorKind = "conflict"
	// KindUnavailable marks retryable persistence failures (CAS retry
	// exhaustion, connectivity), distinct from business rejections.
	KindUnavailable ErrorKind = "unavailable"
)

// Error is the business error carried across engine boundaries. Details
// hold the structured context the client needs to render a specific
// message (offending product id, current vs requested status, ...).
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]interface{}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

func NewValidation(message string, details map[string]interface{}) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func NewInsufficientStock(productID uuid.UUID, variantKey string, requested int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: "insufficient stock",
		Details: map[string]interface{}{
			"product_id":  productID.String(),
			"variant_key": variantKey,
			"requested":   requested,
		},
	}
}

func NewForbidden(message string, details map[string]interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: message, Details: details}
}

func NewInvalidTransition(current, requested string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: "invalid status transition",
		Details: map[string]interface{}{
			"current_status":   current,
			"requested_status": requested,
		},
	}
}

func NewNotFound(resource string, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: resource + " not found",
		Details: map[string]interface{}{"id": id},
	}
}

func NewConflict(message string, details map[string]interface{}) *Error {
	return &Error{Kind: KindConflict, Message: message, Details: details}
}

func NewUnavailable(message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message}
}
