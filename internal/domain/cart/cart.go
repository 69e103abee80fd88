package cart

import (
	"math"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
)

// Per-line bounds keep totals finite and representable.
const (
	MaxQuantity  = 1_000_000
	MaxUnitPrice = 1e9
)

// Line is one item-name-keyed entry of a cart.
type Line struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

func (l Line) Subtotal() float64 { return float64(l.Quantity) * l.UnitPrice }

// Cart keeps lines in insertion order with at most one line per name.
type Cart struct {
	Lines []Line `json:"lines"`
}

// Add merges quantity into the line named name, or appends a new line.
// It returns the resulting quantity and whether a line was created.
// An existing line keeps the unit price it was first added with.
func (c *Cart) Add(name string, quantity int, unitPrice float64) (int, bool, error) {
	name = strings.TrimSpace(name)
	var problems []shoperr.FieldError
	if name == "" {
		problems = append(problems, shoperr.FieldError{Field: "name", Message: "is required"})
	}
	switch {
	case quantity <= 0:
		problems = append(problems, shoperr.FieldError{Field: "quantity", Message: "must be greater than zero"})
	case quantity > MaxQuantity:
		problems = append(problems, shoperr.FieldError{Field: "quantity", Message: "must be at most " + strconv.Itoa(MaxQuantity)})
	}
	switch {
	case math.IsNaN(unitPrice) || math.IsInf(unitPrice, 0):
		problems = append(problems, shoperr.FieldError{Field: "price", Message: "must be a finite number"})
	case unitPrice <= 0:
		problems = append(problems, shoperr.FieldError{Field: "price", Message: "must be greater than zero"})
	case unitPrice > MaxUnitPrice:
		problems = append(problems, shoperr.FieldError{Field: "price", Message: "is too large"})
	}
	if len(problems) > 0 {
		return 0, false, shoperr.Validation(problems...)
	}

	for i := range c.Lines {
		if c.Lines[i].Name == name {
			if c.Lines[i].Quantity > MaxQuantity-quantity {
				return 0, false, shoperr.Validation(shoperr.FieldError{
					Field:   "quantity",
					Message: "line quantity would exceed " + strconv.Itoa(MaxQuantity),
				})
			}
			c.Lines[i].Quantity += quantity
			return c.Lines[i].Quantity, false, nil
		}
	}
	c.Lines = append(c.Lines, Line{Name: name, Quantity: quantity, UnitPrice: unitPrice})
	return quantity, true, nil
}

func (c *Cart) Clear() { c.Lines = nil }

func (c *Cart) Empty() bool { return c == nil || len(c.Lines) == 0 }

func (c *Cart) Clone() *Cart {
	if c == nil {
		return &Cart{}
	}
	return &Cart{Lines: append([]Line(nil), c.Lines...)}
}

// ViewLine is a cart line with its computed subtotal.
type ViewLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
}

type View struct {
	Lines []ViewLine
	Total float64
	Empty bool
}

// View returns the ordered lines with subtotals and the grand total.
func (c *Cart) View() View {
	if c.Empty() {
		return View{Empty: true}
	}
	v := View{Lines: make([]ViewLine, 0, len(c.Lines))}
	for _, l := range c.Lines {
		sub := l.Subtotal()
		v.Lines = append(v.Lines, ViewLine{Name: l.Name, Quantity: l.Quantity, Price: l.UnitPrice, Subtotal: sub})
		v.Total += sub
	}
	return v
}
