package entity

import "github.com/uptrace/bun"

// Order is an immutable purchase of a product by a customer.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID           int64  `bun:",pk,autoincrement" json:"id"`
	ProductID    int64  `bun:"product_id,notnull" json:"product_id"`
	Quantity     int    `bun:"quantity,notnull" json:"quantity"`
	OrderDate    Date   `bun:"order_date,type:varchar(10),notnull" json:"order_date"`
	CustomerName string `bun:"customer_name,notnull" json:"customer_name"`
}
