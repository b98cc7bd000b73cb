package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/xelth-com/catalogbot/internal/models"
)

// MatchType tells which natural key found an existing product
type MatchType string

const (
	MatchNone MatchType = "none"
	MatchURL  MatchType = "url"
	MatchSKU  MatchType = "sku"
)

// Match is the result of FindExistingMatch. Product is nil for MatchNone.
type Match struct {
	Product *models.Product
	Type    MatchType
}

// Found reports whether a product matched
func (m *Match) Found() bool { return m != nil && m.Product != nil }

// FindExistingMatch looks a product up by URL first and, only when nothing
// matched and sku is non-empty, by SKU. At most one product is returned.
// Active images and sizes are preloaded so the result can go straight to Compare.
func (s *Service) FindExistingMatch(ctx context.Context, url, sku string, includeDeleted bool) (*Match, error) {
	const op = "find_existing_match"
	url, sku = strings.TrimSpace(url), strings.TrimSpace(sku)

	if p, err := s.firstMatch(ctx, "product_url = ?", url, includeDeleted); err != nil {
		return nil, dbError(op, 0, err)
	} else if p != nil {
		return &Match{Product: p, Type: MatchURL}, nil
	}

	if sku != "" {
		if p, err := s.firstMatch(ctx, "sku = ?", sku, includeDeleted); err != nil {
			return nil, dbError(op, 0, err)
		} else if p != nil {
			return &Match{Product: p, Type: MatchSKU}, nil
		}
	}

	return &Match{Type: MatchNone}, nil
}

func (s *Service) firstMatch(ctx context.Context, cond string, value string, includeDeleted bool) (*models.Product, error) {
	q := s.db.WithContext(ctx).Preload("Images").Preload("Sizes")
	if includeDeleted {
		q = q.Unscoped()
	}
	var p models.Product
	err := q.Where(cond, value).
		Order("CASE WHEN deleted_at IS NULL THEN 0 ELSE 1 END").
		Order("id").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FieldChange is one scalar field that differs between stored and incoming data
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// SetChanges splits two label sets into additions, removals and the overlap
type SetChanges struct {
	ToAdd    []string `json:"to_add"`
	ToRemove []string `json:"to_remove"`
	Existing []string `json:"existing"`
}

// Diff is advisory; nothing is written until UpdateWithDiff applies it
type Diff struct {
	FieldChanges []FieldChange `json:"field_changes"`
	Images       SetChanges    `json:"image_changes"`
	Sizes        SetChanges    `json:"size_changes"`
	// ExistingHashes are file hashes of the active images, used for content dedup
	ExistingHashes []string `json:"-"`
}

// HasChanges is true when any field differs or any image/size is added or removed
func (d *Diff) HasChanges() bool {
	return len(d.FieldChanges) > 0 ||
		len(d.Images.ToAdd) > 0 || len(d.Images.ToRemove) > 0 ||
		len(d.Sizes.ToAdd) > 0 || len(d.Sizes.ToRemove) > 0
}

// Compare diffs an existing product against incoming data. Soft-deleted
// images and sizes are invisible to it, so a deleted image whose URL comes
// back is reported as an addition.
//
// Only simple-shape sizes are diffed. A combination grid is not compared;
// changing it means replacing the size record outside the diff path.
func Compare(existing *models.Product, incoming *ProductPayload) *Diff {
	d := &Diff{}

	if c, ok := compareString("name", existing.Name, incoming.Name); ok {
		d.FieldChanges = append(d.FieldChanges, c)
	}
	if c, ok := comparePrice(existing.Price, incoming.Price); ok {
		d.FieldChanges = append(d.FieldChanges, c)
	}
	for _, f := range []struct {
		name     string
		old      string
		incoming *string
	}{
		{"currency", existing.Currency, incoming.Currency},
		{"availability", existing.Availability, incoming.Availability},
		{"color", existing.Color, incoming.Color},
		{"composition", existing.Composition, incoming.Composition},
		{"item", existing.Item, incoming.Item},
		{"comment", existing.Comment, incoming.Comment},
	} {
		if c, ok := compareString(f.name, f.old, f.incoming); ok {
			d.FieldChanges = append(d.FieldChanges, c)
		}
	}

	var activeURLs []string
	for _, img := range existing.ActiveImages() {
		activeURLs = append(activeURLs, img.URL)
		if img.FileHash != nil && *img.FileHash != "" {
			d.ExistingHashes = append(d.ExistingHashes, *img.FileHash)
		}
	}
	d.Images = diffSets(activeURLs, incoming.ImageURLs)

	if incoming.SizeCombinations == nil {
		var labels []string
		for _, sz := range existing.ActiveSizes() {
			if sz.SizeType == models.SizeTypeSimple && sz.SizeValue != nil {
				labels = append(labels, *sz.SizeValue)
			}
		}
		d.Sizes = diffSets(labels, incoming.AvailableSizes)
	}

	return d
}

// compareString ignores whitespace-only differences
func compareString(field, old string, incoming *string) (FieldChange, bool) {
	if incoming == nil || old == *incoming {
		return FieldChange{}, false
	}
	if strings.TrimSpace(old) == strings.TrimSpace(*incoming) {
		return FieldChange{}, false
	}
	return FieldChange{Field: field, Old: old, New: *incoming}, true
}

func comparePrice(old, incoming *float64) (FieldChange, bool) {
	if incoming == nil {
		return FieldChange{}, false
	}
	o, n := formatPrice(old), formatPrice(incoming)
	if o == n {
		return FieldChange{}, false
	}
	return FieldChange{Field: "price", Old: o, New: n}, true
}

func formatPrice(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// diffSets keeps first-seen order and collapses duplicates
func diffSets(existing, incoming []string) SetChanges {
	have := make(map[string]bool, len(existing))
	for _, v := range existing {
		have[v] = true
	}
	want := make(map[string]bool, len(incoming))
	var c SetChanges
	for _, v := range incoming {
		if want[v] {
			continue
		}
		want[v] = true
		if have[v] {
			c.Existing = append(c.Existing, v)
		} else {
			c.ToAdd = append(c.ToAdd, v)
		}
	}
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		if !want[v] && !seen[v] {
			c.ToRemove = append(c.ToRemove, v)
		}
		seen[v] = true
	}
	return c
}
