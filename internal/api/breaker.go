package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/storefront/pkg/config"
	"github.com/sony/gobreaker/v2"
)

var errServerStatus = errors.New("server error status")

// breakerTransport trips on transport failures and 5xx responses. Other
// statuses pass through as successes, so a 401 or 422 never opens the circuit.
type breakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

// NewBreakerTransport wraps next in a circuit breaker configured by cfg.
func NewBreakerTransport(next http.RoundTripper, cfg config.CircuitBreakerConfig, logger *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	st := gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= cfg.ConsecutiveFailures {
				return true
			}
			total := counts.TotalSuccesses + counts.TotalFailures
			return cfg.ErrorRatePercent > 0 && total > cfg.ConsecutiveFailures &&
				float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			}
		},
	}
	return &breakerTransport{next: next, cb: gobreaker.NewCircuitBreaker[*http.Response](st)}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("circuit breaker: %w", err)
	}
	return resp, nil
}
