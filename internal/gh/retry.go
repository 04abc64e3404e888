package gh

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/go-github/v71/github"
	"github.com/rs/zerolog/log"
)

// maxRateLimitRetries bounds how many times a rate-limited call is retried
// before its failure is surfaced.
const maxRateLimitRetries = 5

// Backoff grows linearly: 5s before the first retry, then +3s per retry.
// Vars rather than consts so tests can shrink the waits.
var (
	rateLimitBaseDelay = 5 * time.Second
	rateLimitDelayStep = 3 * time.Second
)

// withRetry executes fn, retrying only on rate-limit failures. Each outbound
// call is wrapped individually, so one throttled sub-call inside a larger
// workflow is retried in isolation. Any other failure propagates unchanged.
func withRetry(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(maxRateLimitRetries+1),
		retry.RetryIf(isRateLimited),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return rateLimitBaseDelay + time.Duration(n)*rateLimitDelayStep
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().
				Str("operation", operation).
				Uint("retry", n+1).
				Err(err).
				Msg("rate limit hit, backing off")
		}),
		retry.LastErrorOnly(true),
	)
}

// isRateLimited reports whether err represents GitHub throttling: the typed
// rate-limit errors from go-github, or any 403 response.
func isRateLimited(err error) bool {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusForbidden {
		return true
	}

	var rawErr *rawStatusError
	return errors.As(err, &rawErr) && rawErr.StatusCode == http.StatusForbidden
}
