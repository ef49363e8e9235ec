// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the source backends.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryBaseDelay is the first backoff interval after a throttled response.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultMaxRetries = 2

// retryable reports whether a provider asked us to come back later.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes req and retries on HTTP 429 and 503 with exponential
// backoff starting at RetryBaseDelay. When maxRetries is 0 the default (2)
// is used. Transport errors are not retried. Throttled response bodies are
// drained and closed before the next attempt. If ctx ends while waiting the
// context error is returned. After the last retry the final throttled
// response is returned so the caller can inspect its status.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = RetryBaseDelay
	eb.RandomizationFactor = 0
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0

	var (
		resp    *http.Response
		attempt int
	)
	op := func() error {
		r, err := client.Do(req.Clone(ctx))
		if err != nil {
			return backoff.Permanent(err)
		}
		if !retryable(r.StatusCode) || attempt >= maxRetries {
			resp = r
			return nil
		}
		attempt++
		io.Copy(io.Discard, r.Body)
		r.Body.Close()
		return fmt.Errorf("%s returned HTTP %d", req.URL.Host, r.StatusCode)
	}

	if err := backoff.Retry(op, backoff.WithContext(eb, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}
