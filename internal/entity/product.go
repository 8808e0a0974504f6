package entity

import (
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Product is a catalog item offered by exactly one supplier.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID         int64           `bun:",pk,autoincrement" json:"id"`
	Name       string          `bun:"name,notnull" json:"name"`
	Price      decimal.Decimal `bun:"price,type:decimal(12,2),notnull" json:"price"`
	Category   string          `bun:"category,nullzero" json:"category,omitempty"`
	SupplierID int64           `bun:"supplier_id,notnull" json:"supplier_id"`
}
