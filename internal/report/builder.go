package report

import (
	"fmt"

	"github.com/Additional-Code/catalog/internal/dto"
)

const (
	Title          = "Orders report"
	NoOrdersText   = "No orders to export."
	totalOrdersFmt = "Total orders: %d"
)

// Build lays out the order report: a heading, a total and one paragraph per
// line. An empty input still yields the heading and an explicit no-orders
// paragraph.
func Build(lines []dto.OrderLine) *Document {
	doc := &Document{}
	doc.Heading(Title, 1)

	if len(lines) == 0 {
		doc.Paragraph(NoOrdersText)
		return doc
	}

	doc.Paragraph(fmt.Sprintf(totalOrdersFmt, len(lines)))
	for _, line := range lines {
		doc.Paragraph(LineText(line))
	}
	return doc
}

// LineText formats a single order line.
func LineText(line dto.OrderLine) string {
	return fmt.Sprintf("Order #%d: %s (price: %s) quantity: %d date: %s customer: %s supplier: %s",
		line.Order.ID,
		line.Product.Name,
		line.Product.Price.StringFixed(2),
		line.Order.Quantity,
		line.Order.OrderDate,
		line.Order.CustomerName,
		line.Supplier.Name,
	)
}
