package catalog

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/xelth-com/catalogbot/internal/models"
)

type productComparator func(a, b *models.Product) int

// sortableFields is the closed list of fields ListProducts can order by
var sortableFields = map[string]productComparator{
	"id":   func(a, b *models.Product) int { return cmp.Compare(a.ID, b.ID) },
	"name": func(a, b *models.Product) int { return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) },
	"sku": func(a, b *models.Product) int {
		return strings.Compare(strValue(a.SKU), strValue(b.SKU))
	},
	"price": func(a, b *models.Product) int {
		return compareOptional(a.Price, b.Price, func(x, y float64) int { return cmp.Compare(x, y) })
	},
	"created_at": func(a, b *models.Product) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"deleted_at": func(a, b *models.Product) int {
		return compareTimes(a.DeletedAt.Valid, a.DeletedAt.Time, b.DeletedAt.Valid, b.DeletedAt.Time)
	},
	"telegram_posted_at": func(a, b *models.Product) int {
		var at, bt time.Time
		if a.TelegramPostedAt != nil {
			at = *a.TelegramPostedAt
		}
		if b.TelegramPostedAt != nil {
			bt = *b.TelegramPostedAt
		}
		return compareTimes(a.TelegramPostedAt != nil, at, b.TelegramPostedAt != nil, bt)
	},
}

// SortableFields lists accepted sort keys in stable order
func SortableFields() []string {
	keys := make([]string, 0, len(sortableFields))
	for k := range sortableFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ListOptions filters and orders ListProducts
type ListOptions struct {
	IncludeDeleted bool
	SortBy         string // empty means id
	Desc           bool
}

// ListProducts returns products with their children. Unknown sort keys are
// rejected before the database is queried.
func (s *Service) ListProducts(ctx context.Context, opts ListOptions) ([]models.Product, error) {
	const op = "list_products"
	key := opts.SortBy
	if key == "" {
		key = "id"
	}
	compare, ok := sortableFields[key]
	if !ok {
		return nil, validationError(op, fmt.Sprintf("cannot sort by %q, allowed: %s", key, strings.Join(SortableFields(), ", ")))
	}

	q := preloadChildren(s.db.WithContext(ctx), opts.IncludeDeleted)
	if opts.IncludeDeleted {
		q = q.Unscoped()
	}
	var products []models.Product
	if err := q.Order("id").Find(&products).Error; err != nil {
		return nil, s.fail(op, 0, err)
	}

	slices.SortStableFunc(products, func(a, b models.Product) int {
		if opts.Desc {
			return compare(&b, &a)
		}
		return compare(&a, &b)
	})
	return products, nil
}

// compareOptional orders missing values last
func compareOptional[T any](a, b *T, f func(x, y T) int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return f(*a, *b)
}

func compareTimes(aSet bool, a time.Time, bSet bool, b time.Time) int {
	switch {
	case !aSet && !bSet:
		return 0
	case !aSet:
		return 1
	case !bSet:
		return -1
	}
	return a.Compare(b)
}
