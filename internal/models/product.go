package models

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Size shapes stored in sizes.size_type
const (
	SizeTypeSimple      = "simple"
	SizeTypeCombination = "combination"
)

// Product is a catalog entry scraped from a shop page.
// SKU is unique among active rows only (partial index on deleted_at IS NULL).
type Product struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProductURL       string         `gorm:"not null;index" json:"product_url"`
	SKU              *string        `gorm:"uniqueIndex:idx_products_sku_active,where:deleted_at IS NULL" json:"sku"`
	Name             string         `json:"name"`
	Price            *float64       `json:"price"`
	Currency         string         `json:"currency"`
	Availability     string         `json:"availability"`
	Color            string         `json:"color"`
	Composition      string         `gorm:"type:text" json:"composition"`
	Item             string         `json:"item"`
	Comment          string         `gorm:"type:text" json:"comment"`
	CreatedAt        time.Time      `gorm:"<-:create" json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	TelegramPostedAt *time.Time     `json:"telegram_posted_at,omitempty"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Images []Image `gorm:"foreignKey:ProductID" json:"images,omitempty"`
	Sizes  []Size  `gorm:"foreignKey:ProductID" json:"sizes,omitempty"`
}

func (Product) TableName() string { return "products" }

// IsDeleted reports whether the product is soft-deleted
func (p *Product) IsDeleted() bool { return p.DeletedAt.Valid }

// ActiveImages returns the loaded images that are not soft-deleted
func (p *Product) ActiveImages() []Image {
	active := make([]Image, 0, len(p.Images))
	for _, img := range p.Images {
		if !img.DeletedAt.Valid {
			active = append(active, img)
		}
	}
	return active
}

// ActiveSizes returns the loaded sizes that are not soft-deleted
func (p *Product) ActiveSizes() []Size {
	active := make([]Size, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		if !s.DeletedAt.Valid {
			active = append(active, s)
		}
	}
	return active
}

// Image is a product picture. URL is either an external http(s) address or the
// name of a local file under the images directory.
type Image struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	URL       string         `gorm:"not null;uniqueIndex:idx_images_url" json:"url"`
	FileHash  *string        `gorm:"type:varchar(64);index" json:"file_hash,omitempty"`
	FileSize  *int64         `json:"file_size,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Image) TableName() string { return "images" }

// Size holds either one simple label or a whole combination grid
type Size struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ProductID       uint           `gorm:"not null;index" json:"product_id"`
	SizeType        string         `gorm:"type:varchar(20);not null;default:'simple'" json:"size_type"`
	SizeValue       *string        `json:"size_value,omitempty"`
	Size1Type       *string        `json:"size1_type,omitempty"`
	Size2Type       *string        `json:"size2_type,omitempty"`
	CombinationData datatypes.JSON `json:"combination_data,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Size) TableName() string { return "sizes" }

// IsCombination reports whether the row uses the two-axis shape
func (s Size) IsCombination() bool { return s.SizeType == SizeTypeCombination }

// Combinations decodes CombinationData. A NULL or empty column yields an empty map.
func (s Size) Combinations() (map[string][]string, error) {
	out := map[string][]string{}
	if len(s.CombinationData) == 0 || string(s.CombinationData) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(s.CombinationData, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewSimpleSize builds a simple-shape row
func NewSimpleSize(productID uint, label string) Size {
	value := label
	return Size{
		ProductID: productID,
		SizeType:  SizeTypeSimple,
		SizeValue: &value,
	}
}

// NewCombinationSize builds the single combination-shape row of a product
func NewCombinationSize(productID uint, size1Type, size2Type string, combinations map[string][]string) (Size, error) {
	data, err := json.Marshal(combinations)
	if err != nil {
		return Size{}, err
	}
	t1, t2 := size1Type, size2Type
	return Size{
		ProductID:       productID,
		SizeType:        SizeTypeCombination,
		Size1Type:       &t1,
		Size2Type:       &t2,
		CombinationData: datatypes.JSON(data),
	}, nil
}

// SortedAxisValues orders first-axis values numerically when every key is a
// number (band sizes), lexically otherwise.
func SortedAxisValues(combinations map[string][]string) []string {
	keys := make([]string, 0, len(combinations))
	numeric := true
	for k := range combinations {
		keys = append(keys, k)
		if _, err := strconv.ParseFloat(k, 64); err != nil {
			numeric = false
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if numeric {
			a, _ := strconv.ParseFloat(keys[i], 64)
			b, _ := strconv.ParseFloat(keys[j], 64)
			if a != b {
				return a < b
			}
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ImageMetadata describes an image already saved to the local images directory
type ImageMetadata struct {
	ID   string `json:"id"` // file name: <uuid><ext>
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// Template is a user-authored post body with {placeholder} tokens
type Template struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Template) TableName() string { return "templates" }

// All returns every model managed by schema migration
func All() []interface{} {
	return []interface{}{
		&Product{},
		&Image{},
		&Size{},
		&Template{},
	}
}
