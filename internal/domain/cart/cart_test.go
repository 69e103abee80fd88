package cart

import (
	"math"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd_MergesRepeatedNames(t *testing.T) {
	var c Cart
	qty, created, err := c.Add("Apple", 2, 120)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, qty)

	qty, created, err = c.Add("Apple", 1, 999)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 3, qty)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, Line{Name: "Apple", Quantity: 3, UnitPrice: 120}, c.Lines[0])
}

func TestAdd_QuantityIsSumOfAdds(t *testing.T) {
	var c Cart
	adds := []int{1, 4, 2, 7}
	sum := 0
	for _, q := range adds {
		_, _, err := c.Add("Milk", q, 80)
		require.NoError(t, err)
		sum += q
	}
	require.Len(t, c.Lines, 1)
	assert.Equal(t, sum, c.Lines[0].Quantity)
}

func TestAdd_RejectsInvalidInput(t *testing.T) {
	var c Cart
	_, _, err := c.Add("", 0, -1)
	require.ErrorIs(t, err, shoperr.ErrValidation)
	assert.Equal(t, []string{"name", "quantity", "price"}, shoperr.FieldsOf(err))
	assert.True(t, c.Empty())
}

func TestAdd_RejectsNonFinitePrices(t *testing.T) {
	var c Cart
	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), MaxUnitPrice * 2} {
		_, _, err := c.Add("Apple", 1, price)
		require.ErrorIs(t, err, shoperr.ErrValidation, "price %v", price)
		assert.Equal(t, []string{"price"}, shoperr.FieldsOf(err))
	}
	assert.True(t, c.Empty())
}

func TestAdd_QuantityCannotOverflow(t *testing.T) {
	var c Cart
	_, _, err := c.Add("Apple", math.MaxInt, 120)
	require.ErrorIs(t, err, shoperr.ErrValidation)

	_, _, err = c.Add("Apple", MaxQuantity, 120)
	require.NoError(t, err)

	_, _, err = c.Add("Apple", 1, 120)
	require.ErrorIs(t, err, shoperr.ErrValidation)
	assert.Equal(t, []string{"quantity"}, shoperr.FieldsOf(err))
	assert.Equal(t, MaxQuantity, c.Lines[0].Quantity)
}

func TestView(t *testing.T) {
	var c Cart
	assert.True(t, c.View().Empty)

	_, _, _ = c.Add("Apple", 3, 120)
	_, _, _ = c.Add("Bread", 1, 95.5)
	v := c.View()
	assert.False(t, v.Empty)
	assert.Equal(t, []ViewLine{
		{Name: "Apple", Quantity: 3, Price: 120, Subtotal: 360},
		{Name: "Bread", Quantity: 1, Price: 95.5, Subtotal: 95.5},
	}, v.Lines)
	assert.InDelta(t, 455.5, v.Total, 1e-9)
}

func TestClone_IsIndependent(t *testing.T) {
	var c Cart
	_, _, _ = c.Add("Apple", 1, 10)
	cl := c.Clone()
	_, _, _ = cl.Add("Apple", 1, 10)
	assert.Equal(t, 1, c.Lines[0].Quantity)
	assert.Equal(t, 2, cl.Lines[0].Quantity)
}
