package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xelth-com/catalogbot/internal/catalog"
	"github.com/xelth-com/catalogbot/internal/pricing"
	"github.com/xelth-com/catalogbot/internal/render"
)

var (
	renderTemplate string
	renderFile     string
	renderProduct  uint
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a template for a product and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer closeDB(db)

		svc := catalog.NewService(db, catalog.WithLogger(newLogger()))

		content := renderTemplate
		switch {
		case renderFile != "":
			raw, err := os.ReadFile(renderFile)
			if err != nil {
				return err
			}
			content = string(raw)
		case content != "":
			// a stored template name wins over literal content
			if t, err := svc.GetTemplate(cmd.Context(), content); err == nil {
				content = t.Content
			}
		default:
			return fmt.Errorf("--template or --file is required")
		}

		p, err := svc.GetProduct(cmd.Context(), renderProduct, false)
		if err != nil {
			return err
		}
		text, err := render.New(pricing.FromConfig(cfg.Pricing)).Render(content, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderTemplate, "template", "", "Stored template name or literal template content")
	renderCmd.Flags().StringVar(&renderFile, "file", "", "Read template content from a file")
	renderCmd.Flags().UintVar(&renderProduct, "product", 0, "Product ID")
	renderCmd.MarkFlagRequired("product")
}
