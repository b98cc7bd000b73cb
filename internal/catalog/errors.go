package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Compare with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrNotDeleted = errors.New("product is not deleted, cannot restore")
	ErrDatabase   = errors.New("database failure")
	ErrExternal   = errors.New("external service failure")
)

// Conflict fields reported for unique violations
const (
	FieldProductURL = "product_url"
	FieldSKU        = "sku"
	FieldImageURL   = "image.url"
	FieldUnknown    = "unknown"
)

// Error carries the operation, the entity and the offending field so both a
// log line and a caller-facing message can be built from it.
type Error struct {
	Kind      error
	Op        string
	ProductID uint
	Field     string
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.ProductID != 0 {
		fmt.Fprintf(&b, " (product %d)", e.ProductID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " [%s]", e.Field)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validationError(op, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Msg: msg}
}

func notFound(op string, id uint) error {
	return &Error{Kind: ErrNotFound, Op: op, ProductID: id}
}

func dbError(op string, id uint, err error) error {
	return &Error{Kind: ErrDatabase, Op: op, ProductID: id, Err: err}
}

// ValidationError builds a validation failure for packages outside catalog
func ValidationError(op, msg string) error {
	return validationError(op, msg)
}

// ExternalError wraps a collaborator failure (downloads, Telegram)
func ExternalError(op string, id uint, err error) error {
	return &Error{Kind: ErrExternal, Op: op, ProductID: id, Err: err}
}

// ConflictField returns the field named by a conflict error, or "".
func ConflictField(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind == ErrConflict {
		return ce.Field
	}
	return ""
}
