package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

// gte returns a ParamValidator that accepts values greater than or equal to min.
func gte(min int64) ParamValidator {
	return func(v int64) bool { return v >= min }
}

// ParseValidateGte reads the integer query parameter key and requires it to be >= min.
// On failure it writes a 400 response and returns false.
func ParseValidateGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, min int64) (int, bool) {
	return parseValidate(r, w, logger, key, gte(min))
}

func parseValidate(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, pValidator ParamValidator) (int, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s url parameter is required", key))
		return 0, false
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil || !pValidator(intValue) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, value))
		return 0, false
	}
	return int(intValue), true
}
