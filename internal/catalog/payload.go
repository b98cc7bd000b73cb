package catalog

import (
	"fmt"
	"math"
	"strings"
)

// SizeCombinations is the structured two-axis size grid of a product,
// e.g. Band/Cup with {"34": ["B", "C"]}.
type SizeCombinations struct {
	Size1Type    string              `json:"size1_type"`
	Size2Type    string              `json:"size2_type"`
	Combinations map[string][]string `json:"combinations"`
}

// ProductPayload is incoming product data, usually from a scraper.
// Nil optional fields mean "not provided".
type ProductPayload struct {
	ProductURL   string   `json:"product_url"`
	SKU          string   `json:"sku"`
	Name         *string  `json:"name,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Currency     *string  `json:"currency,omitempty"`
	Availability *string  `json:"availability,omitempty"`
	Color        *string  `json:"color,omitempty"`
	Composition  *string  `json:"composition,omitempty"`
	Item         *string  `json:"item,omitempty"`
	Comment      *string  `json:"comment,omitempty"`

	ImageURLs        []string          `json:"image_urls,omitempty"`
	AvailableSizes   []string          `json:"available_sizes,omitempty"`
	SizeCombinations *SizeCombinations `json:"size_combinations,omitempty"`
}

// withTrimmedKeys returns a copy whose match keys are stored the way Create
// stores them
func (p *ProductPayload) withTrimmedKeys() *ProductPayload {
	out := *p
	out.ProductURL = strings.TrimSpace(p.ProductURL)
	out.SKU = strings.TrimSpace(p.SKU)
	return &out
}

// Validate checks business rules that must hold before any database write
func (p *ProductPayload) Validate() error {
	const op = "validate_product"
	if p == nil {
		return validationError(op, "payload is required")
	}
	if strings.TrimSpace(p.ProductURL) == "" {
		return validationError(op, "product_url is required")
	}
	if strings.TrimSpace(p.SKU) == "" {
		return validationError(op, "sku is required")
	}
	if p.Price != nil {
		if math.IsNaN(*p.Price) || math.IsInf(*p.Price, 0) {
			return validationError(op, "price must be a finite number")
		}
		if *p.Price < 0 {
			return validationError(op, "price must not be negative")
		}
	}
	for i, u := range p.ImageURLs {
		if strings.TrimSpace(u) == "" {
			return validationError(op, fmt.Sprintf("image_urls[%d] is empty", i))
		}
	}
	for i, s := range p.AvailableSizes {
		if strings.TrimSpace(s) == "" {
			return validationError(op, fmt.Sprintf("available_sizes[%d] is empty", i))
		}
	}
	if sc := p.SizeCombinations; sc != nil {
		if strings.TrimSpace(sc.Size1Type) == "" || strings.TrimSpace(sc.Size2Type) == "" {
			return validationError(op, "size_combinations requires size1_type and size2_type")
		}
		if len(sc.Combinations) == 0 {
			return validationError(op, "size_combinations.combinations is empty")
		}
		for k, values := range sc.Combinations {
			if strings.TrimSpace(k) == "" {
				return validationError(op, "size_combinations has an empty first-axis value")
			}
			if len(values) == 0 {
				return validationError(op, fmt.Sprintf("size_combinations[%q] has no values", k))
			}
		}
	}
	return nil
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
