package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2023-01-15 ")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2023, time.January, 15), d)
	assert.Equal(t, "2023-01-15", d.String())

	_, err = ParseDate("15.01.2023")
	assert.Error(t, err)
}

func TestDateScan(t *testing.T) {
	t.Run("text column", func(t *testing.T) {
		var d Date
		require.NoError(t, d.Scan("2023-01-16"))
		assert.Equal(t, "2023-01-16", d.String())
	})

	t.Run("bytes", func(t *testing.T) {
		var d Date
		require.NoError(t, d.Scan([]byte("2023-01-17")))
		assert.Equal(t, "2023-01-17", d.String())
	})

	t.Run("timestamp string from date-typed column", func(t *testing.T) {
		var d Date
		require.NoError(t, d.Scan("2023-01-17T00:00:00Z"))
		assert.Equal(t, "2023-01-17", d.String())
	})

	t.Run("time value", func(t *testing.T) {
		var d Date
		require.NoError(t, d.Scan(time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC)))
		assert.Equal(t, "2024-02-29", d.String())
	})

	t.Run("null", func(t *testing.T) {
		d := NewDate(2023, 1, 1)
		require.NoError(t, d.Scan(nil))
		assert.True(t, d.IsZero())
	})

	t.Run("unsupported type", func(t *testing.T) {
		var d Date
		assert.Error(t, d.Scan(42))
	})
}

func TestDateValue(t *testing.T) {
	v, err := NewDate(2023, time.January, 15).Value()
	require.NoError(t, err)
	assert.Equal(t, "2023-01-15", v)

	v, err = Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDateJSON(t *testing.T) {
	order := Order{ID: 1, ProductID: 2, Quantity: 3, OrderDate: NewDate(2023, time.January, 15), CustomerName: "J. Doe"}

	raw, err := json.Marshal(order)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"order_date":"2023-01-15"`)

	var decoded Order
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, order.OrderDate, decoded.OrderDate)
}
