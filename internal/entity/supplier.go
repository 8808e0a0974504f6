package entity

import "github.com/uptrace/bun"

// Supplier is a vendor whose listings populate the catalog.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers"`

	ID      int64  `bun:",pk,autoincrement" json:"id"`
	Name    string `bun:"name,notnull" json:"name"`
	Contact string `bun:"contact,nullzero" json:"contact,omitempty"`
	Website string `bun:"website,nullzero" json:"website,omitempty"`
}
