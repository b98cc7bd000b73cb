package catalog

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// uniqueViolationField inspects a driver error and, when it is a unique
// violation, returns the conflicting field. Postgres reports the constraint
// (index) name; SQLite reports "UNIQUE constraint failed: table.column".
func uniqueViolationField(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return fieldFromIdentifier(pgErr.ConstraintName + " " + pgErr.Detail), true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "duplicate key value"):
		return fieldFromIdentifier(msg), true
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return FieldUnknown, true
	}
	return "", false
}

func fieldFromIdentifier(s string) string {
	s = strings.ToLower(s)
	switch {
	// images first: "idx_images_url" also contains "url"
	case strings.Contains(s, "idx_images_url"), strings.Contains(s, "images.url"):
		return FieldImageURL
	case strings.Contains(s, "sku"):
		return FieldSKU
	case strings.Contains(s, "product_url"):
		return FieldProductURL
	}
	return FieldUnknown
}

// translateWriteError maps a failed write to a conflict or a database error
func translateWriteError(op string, id uint, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	if field, ok := uniqueViolationField(err); ok {
		return &Error{Kind: ErrConflict, Op: op, ProductID: id, Field: field, Err: err}
	}
	return dbError(op, id, err)
}
