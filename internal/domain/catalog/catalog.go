package catalog

import (
	"context"
	"strings"
)

type Category struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type Item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Service is the external catalog collaborator.
type Service interface {
	Categories(ctx context.Context) ([]Category, error)
	Items(ctx context.Context, category string) ([]Item, error)
}

const UnknownItemName = "Unknown"

// ResolveItem applies the catalog's pricing fallback: price, then sales, then zero.
// Zero prices count as absent.
func ResolveItem(name string, price, sales *float64) Item {
	it := Item{Name: strings.TrimSpace(name)}
	if it.Name == "" {
		it.Name = UnknownItemName
	}
	switch {
	case price != nil && *price != 0:
		it.Price = *price
	case sales != nil && *sales != 0:
		it.Price = *sales
	}
	return it
}
