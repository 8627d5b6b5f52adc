package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/example/meubles-dor/internal/bootstrap"
	"github.com/example/meubles-dor/internal/command"
	"github.com/example/meubles-dor/internal/config"
	"github.com/example/meubles-dor/internal/domain/category"
	"github.com/example/meubles-dor/internal/domain/product"
	"github.com/example/meubles-dor/internal/query"
	"github.com/spf13/cobra"
)

var (
	productSearch   string
	productCategory string
	productStock    string
	attachImage     bool
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Inspect the catalogue",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), false, func(cfg *config.Config, s *bootstrap.Services) error {
			views := s.Queries.ListProductViews(cmd.Context(), product.Filter{
				Search:     productSearch,
				CategoryID: productCategory,
				Stock:      product.StockFilter(productStock),
			})
			writeProducts(cmd.OutOrStdout(), views, cfg.Store.Currency)
			return nil
		})
	},
}

func writeProducts(out io.Writer, views []query.ProductView, currency string) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDISCOUNT\tSTOCK")
	for _, v := range views {
		discount := "-"
		if v.DiscountPercent > 0 {
			discount = fmt.Sprintf("-%d%%", v.DiscountPercent)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%d\n", v.ID, v.Name, v.Price.StringFixed(2), currency, discount, v.Stock)
	}
	tw.Flush()
	fmt.Fprintf(out, "%d product(s)\n", len(views))
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Inspect categories",
}

var categoriesTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print root categories with their subcategories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(cmd.Context(), false, func(_ *config.Config, s *bootstrap.Services) error {
			writeTree(cmd.OutOrStdout(), s.Queries.CategoryTree(cmd.Context()))
			return nil
		})
	},
}

func writeTree(out io.Writer, tree []category.Node) {
	if len(tree) == 0 {
		fmt.Fprintln(out, "(no categories)")
		return
	}
	for _, node := range tree {
		fmt.Fprintf(out, "%s  [%s]\n", node.Name, node.ID)
		for _, sub := range node.Subcategories {
			fmt.Fprintf(out, "  └─ %s  [%s]\n", sub.Name, sub.ID)
		}
	}
}

var uploadImageCmd = &cobra.Command{
	Use:   "upload-image PRODUCT_ID FILE",
	Short: "Upload a product image and print its public URL",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, path := args[0], args[1]
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		return withServices(cmd.Context(), false, func(_ *config.Config, s *bootstrap.Services) error {
			url, err := s.Commands.UploadProductImage(cmd.Context(), command.UploadProductImage{
				ProductID:   productID,
				Filename:    filepath.Base(path),
				ContentType: contentTypeFor(path),
				Size:        info.Size(),
				Body:        f,
				Attach:      attachImage,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		})
	},
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func init() {
	productsListCmd.Flags().StringVar(&productSearch, "search", "", "Filter by name")
	productsListCmd.Flags().StringVar(&productCategory, "category", "", "Filter by category id")
	productsListCmd.Flags().StringVar(&productStock, "stock", "all", "all, inStock, outOfStock or lowStock")
	productsCmd.AddCommand(productsListCmd)
	rootCmd.AddCommand(productsCmd)

	categoriesCmd.AddCommand(categoriesTreeCmd)
	rootCmd.AddCommand(categoriesCmd)

	uploadImageCmd.Flags().BoolVar(&attachImage, "attach", true, "Append the URL to the product's images")
	rootCmd.AddCommand(uploadImageCmd)
}
