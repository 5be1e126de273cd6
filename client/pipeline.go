package client

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultUserAgent  = "hrdesk-cli"

	// RequestIDHeader carries a per-request UUID for correlating client and server logs.
	RequestIDHeader = "X-Request-Id"
)

// Exponential backoff bounds
const (
	baseDelay = 500 * time.Millisecond
	maxDelay  = 8 * time.Second
)

// PipelineConfig configures a Pipeline. Zero values select the defaults.
type PipelineConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	MaxRetries        int
	Transport         http.RoundTripper
}

// Pipeline sends fully formed requests. It stamps the common headers, applies the
// request throttle, and retries idempotent requests on gateway errors.
// It knows nothing about tokens.
type Pipeline struct {
	client     *http.Client
	userAgent  string
	throttle   *Throttle
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewPipeline builds a Pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Pipeline{
		client:     &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		userAgent:  cfg.UserAgent,
		throttle:   NewThrottle(cfg.RequestsPerSecond),
		maxRetries: cfg.MaxRetries,
		sleep:      sleepContext,
	}
}

// Do sends req and returns the final response. Non-2xx statuses are not errors here.
func (p *Pipeline) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	out := req.Clone(ctx)
	out.Header.Set("User-Agent", p.userAgent)
	if out.Header.Get("Accept") == "" {
		out.Header.Set("Accept", "application/json")
	}
	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}

	retries := 0
	if isIdempotent(out.Method) {
		retries = p.maxRetries
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		if err := p.throttle.Wait(ctx); err != nil {
			return nil, err
		}

		log.Debug().Str("method", out.Method).Str("url", out.URL.Redacted()).
			Str("request_id", out.Header.Get(RequestIDHeader)).Int("attempt", attempt+1).Msg("Sending HTTP request")
		resp, err := p.client.Do(out)
		if err != nil {
			log.Debug().Err(err).Str("method", out.Method).Str("url", out.URL.Redacted()).Msg("HTTP request failed")
			return nil, err
		}
		if !isRetryableStatus(resp.StatusCode) || attempt >= retries {
			log.Debug().Str("method", out.Method).Str("url", out.URL.Redacted()).Int("status", resp.StatusCode).Msg("HTTP response received")
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		// apply jitter
		wait := delay + time.Duration(rand.Int63n(int64(delay)))
		log.Warn().Str("method", out.Method).Str("url", out.URL.Redacted()).Int("status", resp.StatusCode).
			Dur("backoff", wait).Msg("Gateway error, retrying")
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

func isIdempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func isRetryableStatus(code int) bool {
	return code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
