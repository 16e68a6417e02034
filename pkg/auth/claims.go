// Package auth reads identity claims from the session token issued by the storefront API.
package auth

import (
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

// User is the identity carried by a JWT session token.
type User struct {
	Subject string `json:"subject,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// ParseUser extracts the user from tokenString without verifying the signature
// or the expiry: the token is opaque to the client and the API remains the only
// authority on its validity. Tokens that are not JWTs return an error.
func ParseUser(tokenString string) (User, error) {
	token, err := jwt.ParseInsecure([]byte(tokenString), jwt.WithValidate(false))
	if err != nil {
		return User{}, fmt.Errorf("failed to parse token: %w", err)
	}

	var user User
	if subject, ok := token.Subject(); ok {
		user.Subject = subject
	}
	var email string
	if err := token.Get("email", &email); err == nil {
		user.Email = email
	}
	var name string
	if err := token.Get("fio", &name); err == nil {
		user.Name = name
	} else if err := token.Get("name", &name); err == nil {
		user.Name = name
	}
	return user, nil
}
