package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	sferrors "github.com/abgdnv/storefront/internal/errors"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Message string
	// Details holds per-field validation messages when the API reports them.
	Details map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("api error (status %d): %s [%s]", e.Status, e.Message, strings.Join(fields, ", "))
}

// NetworkError wraps a transport-level failure. It matches ErrNetwork.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{sferrors.ErrNetwork, e.Err}
}

// parseAPIError turns an error response into an APIError. Bodies that are not
// JSON keep their raw text as the message.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	trimmed := bytes.TrimSpace(body)

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err == nil {
		switch {
		case len(envelope.Error) > 0 && envelope.Error[0] == '{':
			var inner struct {
				Message string                     `json:"message"`
				Errors  map[string]json.RawMessage `json:"errors"`
			}
			if err := json.Unmarshal(envelope.Error, &inner); err == nil {
				apiErr.Message = inner.Message
				apiErr.Details = fieldMessages(inner.Errors)
			}
		case len(envelope.Error) > 0 && envelope.Error[0] == '"':
			_ = json.Unmarshal(envelope.Error, &apiErr.Message)
		case envelope.Message != "":
			apiErr.Message = envelope.Message
		}
	}

	if apiErr.Message == "" && apiErr.Details == nil {
		apiErr.Message = string(trimmed)
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// fieldMessages normalizes {"field": "msg"} and {"field": ["msg", ...]}.
func fieldMessages(raw map[string]json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for field, value := range raw {
		var many []string
		if err := json.Unmarshal(value, &many); err == nil {
			out[field] = many
			continue
		}
		var one string
		if err := json.Unmarshal(value, &one); err == nil {
			out[field] = []string{one}
			continue
		}
		out[field] = []string{string(value)}
	}
	return out
}
