// Package fetch - HTTP image retrieval for URL-addressed detection requests.
package fetch

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrStatus is returned for a non-2xx response.
var ErrStatus = errors.New("unexpected status")

// ErrTooLarge is returned when the body exceeds MaxBytes.
var ErrTooLarge = errors.New("image too large")

// Defaults applied by Config.withDefaults.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultMaxBytes  = 20 << 20
	DefaultUserAgent = "safegaze/1.0"
)

// Config configures the HTTP fetcher.
type Config struct {
	Timeout    time.Duration `json:"timeout"    yaml:"timeout"`
	MaxBytes   int           `json:"maxBytes"   yaml:"max_bytes"`
	UserAgent  string        `json:"userAgent"  yaml:"user_agent"`
	RetryCount int           `json:"retryCount" yaml:"retry_count"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	return c
}

// Fetcher downloads image bytes over HTTP.
type Fetcher struct {
	client *resty.Client
	cfg    Config
}

// New creates a Fetcher.
//
// Arguments:
//   - cfg: Timeout, body limit and user agent; zero values take the defaults.
//   - log: Receives resty warnings and errors; nil discards them.
//
// Returns:
//   - *Fetcher: The fetcher.
//
// @example
//
//	f := fetch.New(fetch.Config{Timeout: 5 * time.Second}, logger.Log())
//	data, err := f.Fetch(ctx, "https://example.com/a.jpg")
func New(cfg Config, log *zap.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "image/*").
		SetResponseBodyLimit(cfg.MaxBytes).
		SetRetryCount(cfg.RetryCount).
		SetLogger(log.Sugar())

	return &Fetcher{client: client, cfg: cfg}
}

// Fetch downloads url and returns the body.
//
// Returns:
//   - []byte: The response body.
//   - error: A transport error, ErrTooLarge, or ErrStatus for a non-2xx reply.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		if errors.Is(err, resty.ErrResponseBodyTooLarge) {
			return nil, errors.Wrapf(ErrTooLarge, "%s exceeds %d bytes", url, f.cfg.MaxBytes)
		}
		return nil, errors.Wrapf(err, "fetch %s", url)
	}
	if !resp.IsSuccess() {
		return nil, errors.Wrapf(ErrStatus, "fetch %s: %s", url, resp.Status())
	}
	return resp.Body(), nil
}
