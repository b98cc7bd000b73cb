package catalog

import (
	"errors"
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateWriteError(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name  string
		err   error
		kind  error
		field string
	}{{
		name:  "postgres sku index",
		err:   &pgconn.PgError{Code: "23505", ConstraintName: "idx_products_sku_active"},
		kind:  ErrConflict,
		field: FieldSKU,
	}, {
		name:  "postgres image url index",
		err:   fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "idx_images_url"}),
		kind:  ErrConflict,
		field: FieldImageURL,
	}, {
		name:  "postgres product url",
		err:   &pgconn.PgError{Code: "23505", ConstraintName: "products_product_url_key"},
		kind:  ErrConflict,
		field: FieldProductURL,
	}, {
		name: "postgres other error",
		err:  &pgconn.PgError{Code: "23503", ConstraintName: "fk_images_product"},
		kind: ErrDatabase,
	}, {
		name:  "sqlite unique",
		err:   errors.New("constraint failed: UNIQUE constraint failed: images.url (2067)"),
		kind:  ErrConflict,
		field: FieldImageURL,
	}, {
		name:  "unknown unique",
		err:   errors.New("duplicate key value violates unique constraint \"weird\""),
		kind:  ErrConflict,
		field: FieldUnknown,
	}, {
		name: "connection lost",
		err:  errors.New("connection reset by peer"),
		kind: ErrDatabase,
	}}

	for _, test := range tests {
		c.Run(test.name, func(c *qt.C) {
			err := translateWriteError("op", 7, test.err)
			c.Assert(errors.Is(err, test.kind), qt.IsTrue, qt.Commentf("got %v", err))
			c.Assert(errors.Is(err, test.err), qt.IsTrue)
			c.Assert(ConflictField(err), qt.Equals, test.field)
		})
	}
}

func TestTranslateWriteErrorKeepsCatalogErrors(t *testing.T) {
	c := qt.New(t)

	orig := notFound("restore_product", 3)
	c.Assert(translateWriteError("tx", 3, orig), qt.Equals, orig)
}

func TestErrorMessage(t *testing.T) {
	c := qt.New(t)

	err := &Error{Kind: ErrConflict, Op: "create_product", ProductID: 5, Field: FieldSKU, Err: errors.New("boom")}
	c.Assert(err.Error(), qt.Equals, "create_product: conflict (product 5) [sku]: boom")
	c.Assert(errors.Is(err, ErrConflict), qt.IsTrue)
	c.Assert(errors.Is(err, ErrNotFound), qt.IsFalse)
}
