package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"

	"github.com/tbourn/go-orcamento-backend/internal/observability"
)

var (
	// ErrRateLimited is returned when the gateway answers HTTP 429.
	ErrRateLimited = errors.New("language model rate limited")

	// ErrQuotaExceeded is returned when the gateway answers HTTP 402.
	ErrQuotaExceeded = errors.New("language model quota exceeded")

	// ErrEmptyCompletion is returned when a completion carries no choices.
	ErrEmptyCompletion = errors.New("language model returned no choices")
)

// classify wraps upstream rejections into the sentinels above. Other errors
// pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
	}
	return err
}

// outcome maps a call result to its metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeOK
	case errors.Is(err, ErrRateLimited):
		return observability.OutcomeRateLimited
	case errors.Is(err, ErrQuotaExceeded):
		return observability.OutcomeQuota
	default:
		return observability.OutcomeError
	}
}
