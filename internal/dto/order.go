package dto

import (
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/catalog/internal/entity"
)

// OrderLine is one joined row: an order with its product and that product's supplier.
type OrderLine struct {
	Order    entity.Order    `json:"order"`
	Product  entity.Product  `json:"product"`
	Supplier entity.Supplier `json:"supplier"`
}

// OrderLineResponse is the flattened order line exposed via transport layers.
type OrderLineResponse struct {
	ID           int64           `json:"id"`
	Quantity     int             `json:"quantity"`
	OrderDate    entity.Date     `json:"order_date"`
	CustomerName string          `json:"customer_name"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"category,omitempty"`
	SupplierID   int64           `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
}

// NewOrderLineResponse flattens a joined line.
func NewOrderLineResponse(line OrderLine) OrderLineResponse {
	return OrderLineResponse{
		ID:           line.Order.ID,
		Quantity:     line.Order.Quantity,
		OrderDate:    line.Order.OrderDate,
		CustomerName: line.Order.CustomerName,
		ProductID:    line.Product.ID,
		ProductName:  line.Product.Name,
		Price:        line.Product.Price,
		Category:     line.Product.Category,
		SupplierID:   line.Supplier.ID,
		SupplierName: line.Supplier.Name,
	}
}

// CreateOrderRequest is the payload for creating an order.
type CreateOrderRequest struct {
	ProductID    int64  `json:"product_id"`
	Quantity     int    `json:"quantity"`
	OrderDate    string `json:"order_date"`
	CustomerName string `json:"customer_name"`
}
