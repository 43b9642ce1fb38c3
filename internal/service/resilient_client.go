package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// errPermanentStatus marks responses that retrying will not fix.
var errPermanentStatus = errors.New("non-retryable response status")

// resilientConfig tunes a resilientCaller.
type resilientConfig struct {
	Name             string
	Timeout          time.Duration
	MaxRetries       int
	BreakerFailures  int
	BreakerOpenDelay time.Duration
	InitialBackoff   time.Duration
}

// resilientCaller issues JSON requests behind a circuit breaker with bounded
// exponential retries. It is shared by every outbound collaborator.
type resilientCaller struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	cfg     resilientConfig
	logger  *zap.Logger
}

func newResilientCaller(client *http.Client, cfg resilientConfig, logger *zap.Logger) *resilientCaller {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerOpenDelay <= 0 {
		cfg.BreakerOpenDelay = time.Minute
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	failures := uint32(cfg.BreakerFailures)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errPermanentStatus)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &resilientCaller{client: client, breaker: breaker, cfg: cfg, logger: logger}
}

// doJSON sends body as JSON and decodes the response into out.
func (c *resilientCaller) doJSON(ctx context.Context, method, url string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode %s request: %w", c.cfg.Name, err)
		}
	}

	attempt := 0
	operation := func() error {
		attempt++
		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.once(ctx, method, url, payload, out)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests),
			errors.Is(err, errPermanentStatus), errors.Is(err, context.Canceled):
			return backoff.Permanent(err)
		default:
			c.logger.Debug("outbound call failed", zap.String("target", c.cfg.Name), zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialBackoff
	policy.MaxElapsedTime = 0
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.cfg.MaxRetries)), ctx))
}

func (c *resilientCaller) once(ctx context.Context, method, url string, payload []byte, out interface{}) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.cfg.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", c.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("%s returned %d: %s: %w", c.cfg.Name, resp.StatusCode, bytes.TrimSpace(snippet), errPermanentStatus)
		}
		return fmt.Errorf("%s returned %d: %s", c.cfg.Name, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.cfg.Name, err)
	}
	return nil
}
