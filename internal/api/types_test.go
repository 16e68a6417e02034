package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_UnmarshalJSON(t *testing.T) {
	testCases := []struct {
		in   string
		want Price
	}{
		{`12.5`, 12.5},
		{`"7.25"`, 7.25},
		{`" 3 "`, 3},
		{`null`, 0},
		{`"abc"`, 0},
		{`{}`, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			var p Price
			require.NoError(t, json.Unmarshal([]byte(tc.in), &p))
			assert.Equal(t, tc.want, p)
		})
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var row CartRow
	require.NoError(t, json.Unmarshal([]byte(`{"id":101,"product_id":"7","name":"Tea","price":null}`), &row))

	assert.Equal(t, ID("101"), row.ID)
	assert.Equal(t, ID("7"), row.ProductID)
	assert.Equal(t, Price(0), row.Price)

	var bad ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &bad))
}

func TestOrder_UnmarshalJSON(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want int64
	}{
		{name: "order_id", in: `{"order_id":5}`, want: 5},
		{name: "id alias", in: `{"id":"6"}`, want: 6},
		{name: "order_id wins", in: `{"order_id":7,"id":8}`, want: 7},
		{name: "none", in: `{"message":"x"}`, want: 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var o Order
			require.NoError(t, json.Unmarshal([]byte(tc.in), &o))
			assert.Equal(t, tc.want, o.ID)
		})
	}
}

func TestOrder_UnmarshalJSON_TolerantLines(t *testing.T) {
	// given
	in := `{"order_id":9,"lines":[{"product_id":1,"price":"10","quantity":"2"},{"product_id":"2","price":5,"quantity":"many"}]}`

	// when
	var o Order
	err := json.Unmarshal([]byte(in), &o)

	// then
	require.NoError(t, err)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, OrderLine{ProductID: "1", Price: 10, Quantity: 2}, o.Lines[0])
	assert.Equal(t, Quantity(0), o.Lines[1].Quantity)
}

func TestDecodeData(t *testing.T) {
	var products []Product
	require.NoError(t, decodeData([]byte(`[{"id":1}]`), &products))
	assert.Len(t, products, 1)

	var token tokenResponse
	require.NoError(t, decodeData([]byte(`{"user_token":"t"}`), &token))
	assert.Equal(t, "t", token.UserToken)

	var empty []CartRow
	require.NoError(t, decodeData([]byte(`{"data":null}`), &empty))
	assert.Empty(t, empty)
}
