// Package errors provides the sentinel errors shared by the storefront client.
package errors

import "errors"

var ErrUnauthenticated = errors.New("authentication required")
var ErrValidation = errors.New("validation failed")
var ErrEmptyCart = errors.New("cart is empty")

var ErrCartLineNotFound = errors.New("cart line not found")

var ErrNetwork = errors.New("network failure")
var ErrMalformedResponse = errors.New("malformed response")

var ErrNotFound = errors.New("key not found")
