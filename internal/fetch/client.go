package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pfrederiksen/haunted-dates/internal/logger"
)

const (
	// DefaultTimeout bounds one page request.
	DefaultTimeout = 8 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 1
	// MaxBodySize caps how much of a response is read.
	MaxBodySize = 4 << 20
)

// UserAgents is the default rotation of browser identities.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/92.0.4515.107 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.81 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Safari/605.1.15",
}

// ErrStatus is wrapped by every StatusError.
var ErrStatus = errors.New("unexpected status code")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d (%s)", ErrStatus, e.Code, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Transient reports whether a retry may succeed.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Options configures a Client. Zero durations and an empty agent list
// select the defaults; MaxRetries is used as given.
type Options struct {
	Timeout         time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	UserAgents      []string
	Policy          *Policy
	HTTPClient      *http.Client
}

// Client fetches URLs politely.
type Client struct {
	http            *http.Client
	policy          *Policy
	agents          []string
	next            atomic.Uint64
	timeout         time.Duration
	maxRetries      int
	initialInterval time.Duration
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		http:            opts.HTTPClient,
		policy:          opts.Policy,
		agents:          opts.UserAgents,
		timeout:         opts.Timeout,
		maxRetries:      opts.MaxRetries,
		initialInterval: opts.InitialInterval,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if len(c.agents) == 0 {
		c.agents = UserAgents
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.initialInterval <= 0 {
		c.initialInterval = 500 * time.Millisecond
	}
	return c
}

// UserAgent returns the next identity in the rotation.
func (c *Client) UserAgent() string {
	n := c.next.Add(1) - 1
	return c.agents[n%uint64(len(c.agents))]
}

// Get fetches url and returns its body. Network errors, 429 and 5xx are
// retried; any other non-2xx status fails immediately with a StatusError.
func (c *Client) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	start := time.Now()
	defer func() {
		logger.RecordTiming("fetch.get", time.Since(start))
	}()

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if err := c.policy.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		b, err := c.do(ctx, url, header)
		if err == nil {
			body = b
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Transient() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		logger.Debug("Transient fetch failure", logger.Fields{
			"url":     url,
			"attempt": attempt,
			"error":   err.Error(),
		})
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		logger.IncrCounter("fetch.error")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	logger.IncrCounter("fetch.ok")
	return body, nil
}

func (c *Client) do(ctx context.Context, url string, header http.Header) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, MaxBodySize))
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}
