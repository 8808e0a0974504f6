package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Additional-Code/catalog/internal/dto"
)

// WriteTable prints lines as an aligned console table followed by the total.
func WriteTable(out io.Writer, lines []dto.OrderLine) error {
	if len(lines) == 0 {
		_, err := fmt.Fprintln(out, "No orders to display.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tPRICE\tQTY\tDATE\tCUSTOMER\tSUPPLIER")
	for _, line := range lines {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
			line.Order.ID,
			truncate(line.Product.Name, 28),
			line.Product.Price.StringFixed(2),
			line.Order.Quantity,
			line.Order.OrderDate,
			truncate(line.Order.CustomerName, 18),
			truncate(line.Supplier.Name, 18),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%s\nTotal orders: %d\n", strings.Repeat("-", 60), len(lines))
	return err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
