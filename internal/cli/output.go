package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/sagargautam500/storefront/internal/cartsync"
	"github.com/sagargautam500/storefront/pkg/cartclient"
)

type cartView interface {
	Mode() cartsync.Mode
	Items() []cartsync.Line
	Total() decimal.Decimal
	ItemsCount() int
}

type cartJSON struct {
	Mode  string          `json:"mode"`
	Items []cartsync.Line `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func printCart(w io.Writer, cart cartView, asJSON bool) error {
	lines := cart.Items()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cartJSON{
			Mode:  cart.Mode().String(),
			Items: lines,
			Count: cart.ItemsCount(),
			Total: cart.Total(),
		})
	}

	fmt.Fprintf(w, "cart (%s)\n", cart.Mode())
	if len(lines) == 0 {
		fmt.Fprintln(w, "  empty")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tVARIANT\tQTY\tPRICE\tSUBTOTAL")
	for _, line := range lines {
		name, price := line.ProductID, "-"
		if line.Snapshot != nil {
			name = line.Snapshot.Name
			price = line.Snapshot.Price.StringFixed(2)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			line.ID, name, variantLabel(line.Variant), line.Quantity, price, line.Subtotal().StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d item(s), total %s\n", cart.ItemsCount(), cart.Total().StringFixed(2))
	return nil
}

func variantLabel(v *cartsync.Variant) string {
	if v == nil {
		return "-"
	}
	parts := make([]string, 0, 2)
	if v.Size != "" {
		parts = append(parts, v.Size)
	}
	if v.Color != "" {
		parts = append(parts, v.Color)
	}
	return strings.Join(parts, "/")
}

func printProduct(w io.Writer, p *cartclient.Product) {
	fmt.Fprintf(w, "%s  %s\n", p.Name, p.Price.StringFixed(2))
	fmt.Fprintf(w, "  id: %s\n  category: %s\n  in stock: %d\n", p.ID, p.Category, p.Stock)
	for _, v := range p.Variants {
		fmt.Fprintf(w, "  - %s: %d\n", variantLabel(cartsync.NewVariant(v.Size, v.Color)), v.Stock)
	}
}

func printCatalog(w io.Writer, page *cartclient.ProductPage, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for _, p := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, p.Category, p.Price.StringFixed(2), p.Stock)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if page.Cursor != "" {
		fmt.Fprintf(w, "more: --cursor %s\n", page.Cursor)
	}
	return nil
}
