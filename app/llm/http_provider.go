package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"
)

var _ Provider = (*HTTPProvider)(nil)

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPProvider is a rate limited, retrying client for any ProviderConfig.
type HTTPProvider struct {
	config   *ProviderConfig
	client   *http.Client
	limiter  *rate.Limiter
	executor failsafe.Executor[[]byte]
}

type HTTPOptions struct {
	Timeout           time.Duration
	RequestsPerMinute int
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
}

func NewHTTPProvider(cfg *ProviderConfig, opts HTTPOptions) *HTTPProvider {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 500 * time.Millisecond
	}
	if opts.RetryMaxDelay < opts.RetryBaseDelay {
		opts.RetryMaxDelay = max(10*time.Second, opts.RetryBaseDelay)
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
	}

	retry := retrypolicy.NewBuilder[[]byte]().
		WithBackoff(opts.RetryBaseDelay, opts.RetryMaxDelay).
		WithMaxRetries(opts.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ []byte, err error) bool {
			return shouldRetry(err)
		}).
		OnRetry(func(e failsafe.ExecutionEvent[[]byte]) {
			slog.Warn("Retrying LLM request",
				"provider", cfg.Name,
				"attempt", e.Attempts(),
				"error", e.LastError())
		}).
		Build()

	return &HTTPProvider{
		config:   cfg,
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(limit, 1),
		executor: failsafe.With[[]byte](retry),
	}
}

func (p *HTTPProvider) Name() string {
	return p.config.Name
}

func (p *HTTPProvider) Generate(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(p.config.BuildBody(p.config, req))
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	slog.Debug("LLM request", "provider", p.config.Name, "model", p.config.Model)

	respBody, err := p.executor.WithContext(ctx).Get(func() ([]byte, error) {
		return p.do(ctx, payload)
	})
	if err != nil {
		return Response{}, fmt.Errorf("%s request failed: %w", p.config.Name, err)
	}

	content, model, err := p.config.ParseResponse(respBody)
	if err != nil {
		return Response{}, fmt.Errorf("parse response: %w", err)
	}

	slog.Debug("LLM response", "provider", p.config.Name, "model", model, "content_len", len(content))

	return Response{Content: content, Model: model}, nil
}

func (p *HTTPProvider) do(ctx context.Context, payload []byte) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (p *HTTPProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")

	if p.config.AuthHeader != "" && p.config.APIKey != "" {
		req.Header.Set(p.config.AuthHeader, p.config.AuthPrefix+p.config.APIKey)
	}

	for k, v := range p.config.ExtraHeaders {
		req.Header.Set(k, v)
	}
}

// shouldRetry accepts transport failures, 429 and 5xx. Cancellation is final.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
