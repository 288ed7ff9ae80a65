package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	apierrors "github.com/labelfeed/github-label-feed/internal/errors"
)

// RetrySchedule is the fixed delay schedule for transient failures, indexed
// by attempt number. A call that fails every attempt is tried
// len(RetrySchedule)+1 times before the last error becomes fatal.
var RetrySchedule = []time.Duration{
	5 * time.Millisecond,
	50 * time.Millisecond,
	250 * time.Millisecond,
	1 * time.Second,
	5 * time.Second,
	25 * time.Second,
}

// doWithRetry wraps a single GraphQL call with the retry schedule. Attempt
// counting is local to this call; there is no cross-call state. Auth and
// not-found failures are not transient and propagate immediately.
func (c *Client) doWithRetry(ctx context.Context, body []byte) (*graphqlResponse, error) {
	var lastErr error

	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}

		if attempt >= len(c.retrySchedule) {
			break
		}

		delay := c.retrySchedule[attempt]
		c.log.WithError(err).WithField("delay", delay).Warn("Request failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w: %w",
		len(c.retrySchedule)+1, apierrors.ErrNetworkFailure, lastErr)
}

// retryable reports whether an error is worth another attempt
func retryable(err error) bool {
	if errors.Is(err, apierrors.ErrInvalidToken) || errors.Is(err, apierrors.ErrRepoNotFound) {
		return false
	}
	return true
}
