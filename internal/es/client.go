package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// Config holds connection parameters for the engine client.
type Config struct {
	Addrs      []string
	Username   string
	Password   string
	Timeout    time.Duration
	MaxRetries int
}

// Client implements Engine over a pooled HTTP connection. Retries on
// timeout and backend pressure are the transport's responsibility and are
// configured once here; callers see only elapsed latency.
type Client struct {
	es      *elasticsearch.Client
	timeout time.Duration
	logger  *zap.Logger
}

var _ Engine = (*Client)(nil)

// retryOnTimeout tells the transport to retry requests that died on a
// timeout. Other transport errors (connection refused, DNS) are left to
// fail fast so a down engine surfaces immediately.
func retryOnTimeout(_ *http.Request, err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// NewClient creates an engine client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		MaxRetries:   cfg.MaxRetries,
		RetryOnError: retryOnTimeout,
		RetryOnStatus: []int{
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
			http.StatusTooManyRequests,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create engine client: %w", err)
	}

	return &Client{es: es, timeout: cfg.Timeout, logger: logger}, nil
}

// Search executes a query body against an index. Every failure mode is
// normalized into the Response so the caller's classification is uniform:
// engine errors keep the engine's status and structured error body,
// connectivity failures become a bare 500, success injects 200.
func (c *Client) Search(ctx context.Context, index string, body any) (*Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode query body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(encoded)),
	)
	if err != nil {
		c.logger.Error("engine unreachable",
			zap.String("index", index),
			zap.Error(err),
		)
		return &Response{Status: http.StatusInternalServerError}, nil
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		c.logger.Error("engine response read failed",
			zap.String("index", index),
			zap.Error(err),
		)
		return &Response{Status: http.StatusInternalServerError}, nil
	}

	rsp := &Response{}
	if err := json.Unmarshal(raw, rsp); err != nil {
		c.logger.Error("engine response decode failed",
			zap.String("index", index),
			zap.Int("http_status", res.StatusCode),
			zap.Error(err),
		)
		return &Response{Status: http.StatusInternalServerError}, nil
	}

	if res.IsError() {
		rsp.Status = res.StatusCode
		c.logger.Warn("engine query failed",
			zap.String("index", index),
			zap.Int("status", rsp.Status),
		)
		return rsp, nil
	}

	rsp.Status = http.StatusOK
	return rsp, nil
}

// Ping checks engine connectivity.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping engine: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ping engine: status %d", res.StatusCode)
	}
	return nil
}
