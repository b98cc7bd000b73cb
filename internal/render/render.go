// Package render fills user-authored post templates with product data.
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xelth-com/catalogbot/internal/catalog"
	"github.com/xelth-com/catalogbot/internal/models"
	"github.com/xelth-com/catalogbot/internal/pricing"
)

const (
	unnamedProduct = "Unnamed Product"
	noSKU          = "No SKU"
	zeroPrice      = "0.00"
)

// Placeholders is the closed vocabulary a template may use
var Placeholders = []string{
	"id", "name", "sku", "product_url",
	"price", "sell_price", "currency",
	"availability", "color", "composition", "item", "comment",
	"sizes", "sizes_inline", "images_count",
	"date", "time", "datetime",
}

var (
	known         = make(map[string]bool, len(Placeholders))
	placeholderRe = regexp.MustCompile(`\{([^{}\s]+)\}`)
)

func init() {
	for _, p := range Placeholders {
		known[p] = true
	}
}

// Renderer substitutes placeholders. It is safe for concurrent use.
type Renderer struct {
	pricing  pricing.Policy
	now      func() time.Time
	location *time.Location
}

// New creates a renderer using policy for {sell_price}
func New(policy pricing.Policy) *Renderer {
	return &Renderer{pricing: policy, now: time.Now, location: time.UTC}
}

// WithClock sets the time source and zone used for {date} and {time}
func (r *Renderer) WithClock(now func() time.Time, loc *time.Location) *Renderer {
	r.now = now
	if loc != nil {
		r.location = loc
	}
	return r
}

// Validate fails when content uses placeholders outside the vocabulary.
// The error lists every offending token once, in order of appearance.
func (r *Renderer) Validate(content string) error {
	var invalid []string
	seen := map[string]bool{}
	for _, m := range placeholderRe.FindAllStringSubmatch(content, -1) {
		if known[m[1]] || seen[m[0]] {
			continue
		}
		seen[m[0]] = true
		invalid = append(invalid, m[0])
	}
	if len(invalid) > 0 {
		return catalog.ValidationError("render_template",
			fmt.Sprintf("unknown placeholders: %s", strings.Join(invalid, ", ")))
	}
	return nil
}

// Render validates content and replaces each placeholder once; substituted
// values are never scanned again.
func (r *Renderer) Render(content string, p *models.Product) (string, error) {
	if err := r.Validate(content); err != nil {
		return "", err
	}
	if p == nil {
		return "", catalog.ValidationError("render_template", "product is required")
	}

	values := r.Values(p)
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(content), nil
}

// Values builds the flat substitution map for a product
func (r *Renderer) Values(p *models.Product) map[string]string {
	now := r.now().In(r.location)

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = unnamedProduct
	}
	sku := noSKU
	if p.SKU != nil && strings.TrimSpace(*p.SKU) != "" {
		sku = *p.SKU
	}
	price := zeroPrice
	if p.Price != nil {
		price = strconv.FormatFloat(*p.Price, 'f', 2, 64)
	}

	sizes := p.ActiveSizes()
	return map[string]string{
		"id":           strconv.FormatUint(uint64(p.ID), 10),
		"name":         name,
		"sku":          sku,
		"product_url":  p.ProductURL,
		"price":        price,
		"sell_price":   r.sellPrice(p),
		"currency":     p.Currency,
		"availability": p.Availability,
		"color":        p.Color,
		"composition":  p.Composition,
		"item":         p.Item,
		"comment":      p.Comment,
		"sizes":        FormatSizes(sizes),
		"sizes_inline": FormatSizesInline(sizes),
		"images_count": strconv.Itoa(len(p.ActiveImages())),
		"date":         now.Format("02.01.2006"),
		"time":         now.Format("15:04"),
		"datetime":     now.Format("02.01.2006 15:04"),
	}
}

// sellPrice never fails; a price that cannot be derived renders as "0"
func (r *Renderer) sellPrice(p *models.Product) string {
	v, err := r.pricing.SellPrice(p.Price)
	if err != nil {
		return "0"
	}
	return pricing.Format(v)
}
