// Package httpx wraps outbound HTTP requests with lightweight retries,
// honoring Retry-After on 429/5xx responses from the market data provider.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/tblake/finboard/backend/internal/config"
	"github.com/tblake/finboard/backend/internal/logger"
	"github.com/tblake/finboard/backend/internal/metrics"
)

// PreAttempt lets callers run logic (e.g., rate limiting) before each try;
// return a context error to abort.
type PreAttempt func(ctx context.Context, attempt int) error

// AttemptInfo describes a single attempt outcome.
type AttemptInfo struct {
	Attempt int
	Method  string
	URL     string
	Status  int
	Err     error
	Wait    time.Duration
}

// Observer callback to report attempt telemetry.
type Observer func(info AttemptInfo)

// DoWithRetry wraps an HTTP request with retries using the configured retry
// budget. build is invoked per attempt so request bodies are re-created.
func DoWithRetry(client *http.Client, build func() (*http.Request, error), pre PreAttempt) (*http.Response, error) {
	return DoWithRetryObs(client, build, pre, nil)
}

// DoWithRetryObs is like DoWithRetry but reports attempts to an observer.
func DoWithRetryObs(client *http.Client, build func() (*http.Request, error), pre PreAttempt, obs Observer) (*http.Response, error) {
	cfg := config.Load()
	maxAttempts := cfg.HTTPMaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	baseDelay := cfg.HTTPRetryBase

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if pre != nil {
			if err := pre(context.Background(), attempt); err != nil {
				return nil, err
			}
		}
		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		if err != nil {
			// Network or transport error
			metrics.UpstreamRequests.WithLabelValues("error").Inc()
			if attempt == maxAttempts || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				report(obs, AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String(), Err: err})
				return nil, err
			}
			metrics.UpstreamRetries.Inc()
			report(obs, AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String(), Err: err})
		} else {
			// Success unless 429/5xx
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				metrics.UpstreamRequests.WithLabelValues("success").Inc()
				if cfg.LogHTTPRetries && attempt > 1 {
					logger.Debug("upstream request succeeded after retry",
						"attempt", attempt, "method", req.Method, "status", resp.StatusCode)
				}
				report(obs, AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String(), Status: resp.StatusCode})
				return resp, nil
			}

			metrics.UpstreamRequests.WithLabelValues("retry").Inc()
			if attempt == maxAttempts {
				report(obs, AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String(), Status: resp.StatusCode})
				return resp, nil
			}

			// Respect Retry-After before falling back to computed backoff
			if wait, ok := retryAfter(resp); ok {
				resp.Body.Close()
				metrics.UpstreamRetryAfterWaits.Observe(wait.Seconds())
				if cfg.LogHTTPRetries {
					logger.Debug("honoring Retry-After",
						"attempt", attempt, "wait", wait, "status", resp.StatusCode)
				}
				report(obs, AttemptInfo{Attempt: attempt, Method: req.Method, URL: req.URL.String(), Status: resp.StatusCode, Wait: wait})
				time.Sleep(wait)
				continue
			}
			resp.Body.Close()
			metrics.UpstreamRetries.Inc()
		}

		// Backoff with jitter
		jitter := time.Duration(rand.Intn(200)) * time.Millisecond
		delay := baseDelay*time.Duration(attempt) + jitter
		if cfg.LogHTTPRetries {
			logger.Debug("backing off before retry", "attempt", attempt, "delay", delay)
		}
		report(obs, AttemptInfo{Attempt: attempt, Wait: delay})
		time.Sleep(delay)
	}
	return nil, errors.New("exhausted retries")
}

// retryAfter parses a Retry-After header as either delta-seconds or an HTTP
// date, returning the wait and whether one applies.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(ra); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(ra); err == nil {
		if delta := time.Until(t); delta > 0 {
			return delta, true
		}
	}
	return 0, false
}

func report(obs Observer, info AttemptInfo) {
	if obs != nil {
		obs(info)
	}
}
