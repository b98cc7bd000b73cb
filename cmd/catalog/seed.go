package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/xelth-com/catalogbot/internal/catalog"
)

func strPtr(s string) *string { return &s }
func floatPtr(f float64) *float64 { return &f }

// demoProducts covers simple sizes, a combination grid and an unpriced item
var demoProducts = []catalog.ProductPayload{
	{
		ProductURL:     "https://demo.shop/p/linen-shirt",
		SKU:            "DEMO-SHIRT-01",
		Name:           strPtr("Linen Shirt"),
		Price:          floatPtr(39.9),
		Currency:       strPtr("EUR"),
		Availability:   strPtr("in stock"),
		Color:          strPtr("White"),
		Composition:    strPtr("100% linen"),
		Item:           strPtr("Shirt"),
		AvailableSizes: []string{"S", "M", "L", "XL"},
	},
	{
		ProductURL:   "https://demo.shop/p/lace-bra",
		SKU:          "DEMO-BRA-02",
		Name:         strPtr("Lace Bra"),
		Price:        floatPtr(54),
		Currency:     strPtr("EUR"),
		Availability: strPtr("in stock"),
		Color:        strPtr("Black"),
		Item:         strPtr("Bra"),
		SizeCombinations: &catalog.SizeCombinations{
			Size1Type: "Band",
			Size2Type: "Cup",
			Combinations: map[string][]string{
				"70": {"A", "B"},
				"75": {"B", "C", "D"},
				"80": {"C", "D"},
			},
		},
	},
	{
		ProductURL: "https://demo.shop/p/gift-card",
		SKU:        "DEMO-GIFT-03",
		Name:       strPtr("Gift Card"),
		Comment:    strPtr("Price set at checkout"),
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest a few demo products",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		svc := catalog.NewService(db, catalog.WithLogger(newLogger()), catalog.WithImagesDir(cfg.ImagesDir))

		log.Println("📦 Creating demo products...")
		for i := range demoProducts {
			res, err := svc.Ingest(cmd.Context(), &demoProducts[i], catalog.IngestOptions{})
			if err != nil {
				log.Printf("⚠️  Failed to ingest %s: %v", demoProducts[i].SKU, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "   ✓ %s #%d %s\n", res.Action, res.Product.ID, demoProducts[i].SKU)
		}
		log.Println("✅ Demo data ready")
		return nil
	},
}
