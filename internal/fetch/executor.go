// Package fetch provides the retrying HTTP executor and the request
// rate limiter shared by all acquisition services.
package fetch

import (
	"crypto/tls"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/woozymasta/citygen/internal/diag"

	"github.com/rs/zerolog/log"
)

// FailureKind classifies why a request ultimately failed.
type FailureKind int

const (
	// Transport covers timeouts, connection failures and 5xx responses.
	Transport FailureKind = iota
	// RateLimited is a 429 response that survived the progressive waits.
	RateLimited
	// ClientError is any other 4xx response; never retried.
	ClientError
	// Malformed is a structurally invalid response body.
	Malformed
)

// Failure is the typed result of an exhausted request. Callers decide
// whether to fail over to another endpoint or degrade to fallback data.
type Failure struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (f *Failure) Error() string {
	switch {
	case f.Err != nil && f.Status > 0:
		return fmt.Sprintf("status %d: %v", f.Status, f.Err)
	case f.Err != nil:
		return f.Err.Error()
	default:
		return fmt.Sprintf("status %d", f.Status)
	}
}

// Config holds the retry knobs, all with conservative defaults
// suitable for rate-limited public services.
type Config struct {
	MaxRetries     int
	InitialTimeout time.Duration
	BackoffFactor  float64
}

// Executor runs HTTP requests with retries and exponential backoff.
type Executor struct {
	client *http.Client
	cfg    Config
	diag   *diag.Reporter

	// replaceable in tests
	sleep func(time.Duration)
}

// NewClient builds the HTTP client shared by all executors.
// Per-attempt timeouts are applied by the executor, not here.
func NewClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
}

// NewExecutor creates an executor over the given client.
func NewExecutor(client *http.Client, cfg Config, reporter *diag.Reporter) *Executor {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Executor{
		client: client,
		cfg:    cfg,
		diag:   reporter,
		sleep:  time.Sleep,
	}
}

// Do executes the request built by build, retrying on timeout,
// connection failure, 5xx and 429 responses. Other 4xx responses are
// returned immediately as ClientError. The per-attempt timeout is
// initialTimeout × backoffFactor^attempt; the wait between attempts is
// backoffFactor^attempt seconds, except that 429 uses a progressive
// 10s, 20s, 30s ladder and 504 adds a fixed 5s to the generic wait.
//
// Every retry and the final failure are appended to the diagnostics.
// On success the caller owns the response body.
func (e *Executor) Do(op string, build func() (*http.Request, error)) (*http.Response, *Failure) {
	var last *Failure

	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return nil, &Failure{Kind: Transport, Err: err}
		}

		timeout := time.Duration(float64(e.cfg.InitialTimeout) * math.Pow(e.cfg.BackoffFactor, float64(attempt)))

		// Copy shares the transport; only the deadline differs per attempt.
		client := *e.client
		client.Timeout = timeout

		resp, err := client.Do(req)
		if err != nil {
			last = &Failure{Kind: Transport, Err: err}
			e.diag.Warnf("%s: attempt %d/%d failed: %v", op, attempt+1, e.cfg.MaxRetries, err)
			e.waitBefore(attempt, 0)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		drain(resp)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			last = &Failure{Kind: RateLimited, Status: resp.StatusCode}
			e.diag.Warnf("%s: attempt %d/%d rate limited (429)", op, attempt+1, e.cfg.MaxRetries)
		case resp.StatusCode >= 500:
			last = &Failure{Kind: Transport, Status: resp.StatusCode}
			e.diag.Warnf("%s: attempt %d/%d failed with status %d", op, attempt+1, e.cfg.MaxRetries, resp.StatusCode)
		default:
			fail := &Failure{Kind: ClientError, Status: resp.StatusCode}
			e.diag.Warnf("%s: client error %d, not retrying", op, resp.StatusCode)
			return nil, fail
		}

		e.waitBefore(attempt, resp.StatusCode)
	}

	e.diag.Warnf("%s: giving up after %d attempts: %v", op, e.cfg.MaxRetries, last)
	return nil, last
}

// waitBefore sleeps between attempts. No wait follows the last attempt.
func (e *Executor) waitBefore(attempt, status int) {
	if attempt >= e.cfg.MaxRetries-1 {
		return
	}

	var wait time.Duration
	switch status {
	case http.StatusTooManyRequests:
		// Observed throttling windows: 10s, 20s, 30s, ...
		wait = time.Duration(attempt+1) * 10 * time.Second
	case http.StatusGatewayTimeout:
		wait = backoffWait(e.cfg.BackoffFactor, attempt) + 5*time.Second
	default:
		wait = backoffWait(e.cfg.BackoffFactor, attempt)
	}

	log.Debug().Dur("wait", wait).Int("attempt", attempt+1).Msg("Backing off before retry")
	e.sleep(wait)
}

func backoffWait(factor float64, attempt int) time.Duration {
	return time.Duration(math.Pow(factor, float64(attempt)) * float64(time.Second))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
