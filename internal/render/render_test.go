package render

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/xelth-com/catalogbot/internal/catalog"
	"github.com/xelth-com/catalogbot/internal/models"
	"github.com/xelth-com/catalogbot/internal/pricing"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

func newRenderer(policy pricing.Policy) *Renderer {
	return New(policy).WithClock(func() time.Time { return fixedNow }, time.UTC)
}

func shirt() *models.Product {
	price := 10.0
	sku := "SH-1"
	return &models.Product{
		ID:         7,
		Name:       "Shirt",
		SKU:        &sku,
		Price:      &price,
		Currency:   "EUR",
		ProductURL: "https://shop.example/shirt",
		Images:     []models.Image{{URL: "a.jpg"}, {URL: "b.jpg"}},
		Sizes:      []models.Size{models.NewSimpleSize(7, "S"), models.NewSimpleSize(7, "M")},
	}
}

func TestRenderBasic(t *testing.T) {
	c := qt.New(t)

	out, err := newRenderer(pricing.Default()).Render("{name} - {price}", shirt())
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "Shirt - 10.00")
}

func TestRenderAllPlaceholders(t *testing.T) {
	c := qt.New(t)

	content := "#{id} {name} [{sku}] {price} {currency} sizes: {sizes} ({images_count} photos) {date} {time}"
	out, err := newRenderer(pricing.Default()).Render(content, shirt())
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "#7 Shirt [SH-1] 10.00 EUR sizes: S, M (2 photos) 17.05.2024 09:30")
}

func TestRenderDefaults(t *testing.T) {
	c := qt.New(t)

	out, err := newRenderer(pricing.Default()).Render("{name}|{sku}|{price}|{sell_price}|{color}", &models.Product{})
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "Unnamed Product|No SKU|0.00|0|")
}

func TestRenderUnknownPlaceholder(t *testing.T) {
	c := qt.New(t)

	_, err := newRenderer(pricing.Default()).Render("{name} {unknown_field} {unknown_field} {bogus}", shirt())
	c.Assert(errors.Is(err, catalog.ErrValidation), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `.*unknown placeholders: \{unknown_field\}, \{bogus\}`)
}

func TestRenderDoesNotExpandSubstitutedValues(t *testing.T) {
	c := qt.New(t)

	p := shirt()
	p.Name = "{price}"
	out, err := newRenderer(pricing.Default()).Render("{name}/{price}", p)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "{price}/10.00")
}

func TestRenderIgnoresNonPlaceholderBraces(t *testing.T) {
	c := qt.New(t)

	out, err := newRenderer(pricing.Default()).Render("{ not a token } {name}", shirt())
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "{ not a token } Shirt")
}

func TestRenderSellPrice(t *testing.T) {
	c := qt.New(t)

	policy := pricing.Policy{Multiplier: 2.5, RoundingThreshold: 100, RoundingStep: 10}
	p := shirt()
	out, err := newRenderer(policy).Render("{sell_price}", p)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "25")

	p.Price = nil
	out, err = newRenderer(policy).Render("{sell_price}", p)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "0")
}

func TestRenderSkipsDeletedChildren(t *testing.T) {
	c := qt.New(t)

	p := shirt()
	p.Images[0].DeletedAt.Valid = true
	p.Sizes[1].DeletedAt.Valid = true
	out, err := newRenderer(pricing.Default()).Render("{images_count} {sizes}", p)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.Equals, "1 S")
}

func TestRenderNilProduct(t *testing.T) {
	c := qt.New(t)

	_, err := newRenderer(pricing.Default()).Render("{name}", nil)
	c.Assert(errors.Is(err, catalog.ErrValidation), qt.IsTrue)
}
