package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID is an identifier the API may encode as a JSON string or a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Price tolerates numbers, numeric strings and null. Anything else decodes to 0.
type Price float64

func (p *Price) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*p = Price(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*p = Price(f)
			return nil
		}
	}
	*p = 0
	return nil
}

// Quantity decodes numbers and numeric strings. Anything else decodes to 0.
type Quantity int

func (q *Quantity) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*q = Quantity(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*q = Quantity(n)
			return nil
		}
	}
	*q = 0
	return nil
}

// Product is a catalog entry. Read-only on the client.
type Product struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Price       Price  `json:"price"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

// CartRow is one unit of a product in the server-side cart.
// The API reports one row per unit, so a product added twice yields two rows.
type CartRow struct {
	ID          ID     `json:"id"`
	ProductID   ID     `json:"product_id"`
	Name        string `json:"name"`
	Price       Price  `json:"price"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

// OrderLine is a product/quantity pair of a placed order.
type OrderLine struct {
	ProductID ID       `json:"product_id"`
	Name      string   `json:"name,omitempty"`
	Price     Price    `json:"price"`
	Quantity  Quantity `json:"quantity"`
}

// Order is a placed order as reported by the API.
type Order struct {
	ID       int64       `json:"order_id"`
	Lines    []OrderLine `json:"lines,omitempty"`
	Products []ID        `json:"products,omitempty"`
	Total    Price       `json:"order_price,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// UnmarshalJSON accepts both "order_id" and "id" for the order identifier.
func (o *Order) UnmarshalJSON(b []byte) error {
	type plain Order
	var raw struct {
		plain
		OrderID *ID `json:"order_id"`
		AltID   *ID `json:"id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = Order(raw.plain)
	id := raw.OrderID
	if id == nil {
		id = raw.AltID
	}
	if id != nil && *id != "" {
		n, err := strconv.ParseInt(id.String(), 10, 64)
		if err != nil {
			return err
		}
		o.ID = n
	}
	return nil
}

// CheckoutItem is one line of the explicit checkout payload.
type CheckoutItem struct {
	ProductID ID  `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// CheckoutRequest is sent with POST /order.
type CheckoutRequest struct {
	Items []CheckoutItem `json:"items"`
}

// CheckoutResult is the API answer to a successful checkout.
type CheckoutResult struct {
	OrderID int64  `json:"order_id"`
	Message string `json:"message,omitempty"`
}

type credentials struct {
	FIO      string `json:"fio,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	UserToken string `json:"user_token"`
	Token     string `json:"token"`
}

type checkoutResponse struct {
	OrderID *ID    `json:"order_id"`
	Message string `json:"message"`
}

// decodeData decodes body into out, unwrapping a {"data": ...} envelope when
// present. An explicit "data": null leaves out untouched.
func decodeData(body []byte, out any) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if d, ok := envelope["data"]; ok {
			if bytes.Equal(bytes.TrimSpace(d), []byte("null")) {
				return nil
			}
			return json.Unmarshal(d, out)
		}
	}
	return json.Unmarshal(body, out)
}
