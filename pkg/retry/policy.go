package retry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tilefetch/pkg/config"
	errs "tilefetch/pkg/errors"
	"tilefetch/pkg/logger"
)

// Policy decides which tile responses are retried and how long to wait
// between attempts.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	Backoff    BackoffStrategy
	// MaxBackoff caps any single wait, including server supplied Retry-After
	MaxBackoff  time.Duration
	statusCodes map[int]bool
}

// NewPolicy builds a Policy from configuration. An empty status code list
// falls back to 429, 500, 502, 503 and 504.
func NewPolicy(cfg config.RetryConfig) *Policy {
	p := &Policy{
		MaxRetries:  cfg.MaxRetries,
		Backoff:     newBackoff(cfg),
		MaxBackoff:  cfg.MaxBackoff,
		statusCodes: make(map[int]bool),
	}
	for _, code := range cfg.StatusCodes {
		p.statusCodes[code] = true
	}
	return p
}

func newBackoff(cfg config.RetryConfig) BackoffStrategy {
	if cfg.Backoff == "constant" {
		return &ConstantBackoff{Delay: cfg.BackoffFactor}
	}
	eb := NewExponentialBackoff(cfg.BackoffFactor, cfg.MaxBackoff)
	eb.JitterFactor = cfg.Jitter
	return eb
}

// Retryable reports whether a response with this status is tried again
func (p *Policy) Retryable(statusCode int) bool {
	if len(p.statusCodes) == 0 {
		return errs.IsRetryableStatusCode(statusCode)
	}
	return p.statusCodes[statusCode]
}

// CheckRetry implements retryablehttp.CheckRetry. Transport failures are
// judged by the library default so that TLS and redirect errors stay fatal.
func (p *Policy) CheckRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return p.Retryable(resp.StatusCode), nil
}

// Wait implements retryablehttp.Backoff. attemptNum starts at 0 for the
// wait after the first attempt.
func (p *Policy) Wait(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		if d, ok := retryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			return p.capped(d)
		}
	}
	return p.capped(p.Backoff.NextDelay(attemptNum + 1))
}

func (p *Policy) capped(d time.Duration) time.Duration {
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// retryAfter parses a Retry-After header given either in seconds or as an
// HTTP date
func retryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// ClientOptions configures NewHTTPClient
type ClientOptions struct {
	// Timeout bounds every single attempt, not the whole retried request
	Timeout time.Duration
	Logger  logger.Logger
	// Redact scrubs secrets from URLs before they are logged
	Redact func(string) string
}

// NewHTTPClient returns a retrying HTTP client driven by p. When retries are
// exhausted the last response is handed back untouched so callers can read
// its status.
func NewHTTPClient(p *Policy, opts ClientOptions) *retryablehttp.Client {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	redact := opts.Redact
	if redact == nil {
		redact = func(s string) string { return s }
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = opts.Timeout
	client.RetryMax = p.MaxRetries
	client.RetryWaitMin = p.Backoff.NextDelay(1)
	client.RetryWaitMax = p.MaxBackoff
	client.CheckRetry = p.CheckRetry
	client.Backoff = p.Wait
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = logger.NewLeveledAdapter(log).WithRedactor(redact)
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt == 0 {
			return
		}
		log.WarnWithFields("Retrying request", map[string]interface{}{
			"attempt": attempt,
			"url":     redact(req.URL.String()),
		})
	}
	return client
}
