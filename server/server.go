// Package server - HTTP surface for detection, redaction and the page-script bridge.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/config"
	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/pipeline"
	"github.com/nvr-ai/safegaze/render"
)

// Response headers.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderReason    = "X-Safegaze-Reason"
	HeaderCache     = "X-Safegaze-Cache"
	HeaderState     = "X-Safegaze-State"
	HeaderRedacted  = "X-Safegaze-Redacted"
)

// Detector runs the detection pipeline.
type Detector interface {
	Process(ctx context.Context, img image.Image) pipeline.Outcome
	ProcessBytes(ctx context.Context, raw []byte) pipeline.Outcome
}

// RequestObserver counts HTTP requests.
type RequestObserver interface {
	ObserveRequest(route string, status int)
}

// cacheEntry is a detection result with the reason it was reached.
type cacheEntry struct {
	result detection.DetectionResult
	reason pipeline.Reason
}

// Server serves the HTTP API.
type Server struct {
	cfg       config.ServerConfig
	detector  Detector
	renderer  *render.Renderer
	fetcher   pipeline.Fetcher
	telemetry render.Telemetry
	requests  RequestObserver
	metrics   http.Handler
	health    func() gin.H
	cache     *lru.Cache[string, cacheEntry]
	log       *zap.Logger
	router    *gin.Engine
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithFetcher enables URL requests.
func WithFetcher(f pipeline.Fetcher) Option {
	return func(s *Server) { s.fetcher = f }
}

// WithTelemetry receives "replaced" notices from the page script.
func WithTelemetry(t render.Telemetry) Option {
	return func(s *Server) {
		if t != nil {
			s.telemetry = t
		}
	}
}

// WithRequestObserver counts every request by route and status.
func WithRequestObserver(o RequestObserver) Option {
	return func(s *Server) { s.requests = o }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealth adds fields to the /healthz body.
func WithHealth(fn func() gin.H) Option {
	return func(s *Server) { s.health = fn }
}

// New builds the server and its routes.
//
// Arguments:
//   - cfg: Address, timeouts, upload limit and cache size.
//   - det: The detection pipeline.
//   - rnd: The renderer used by /v1/redact.
//   - opts: Optional fetcher, telemetry, metrics and logger.
//
// Returns:
//   - *Server: The server.
//   - error: An error if the cache cannot be created.
//
// @example
//
//	srv, err := server.New(cfg.Server, orch, rnd,
//	    server.WithFetcher(fetcher),
//	    server.WithTelemetry(m),
//	    server.WithRequestObserver(m),
//	    server.WithMetricsHandler(m.Handler()),
//	)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
func New(cfg config.ServerConfig, det Detector, rnd *render.Renderer, opts ...Option) (*Server, error) {
	if det == nil || rnd == nil {
		return nil, errors.New("server: detector and renderer are required")
	}

	s := &Server{
		cfg:       cfg,
		detector:  det,
		renderer:  rnd,
		telemetry: nopTelemetry{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, cacheEntry](cfg.CacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "create result cache")
		}
		s.cache = cache
	}

	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	s.router = s.routes()
	return s, nil
}

type nopTelemetry struct{}

func (nopTelemetry) ImageBlurred()   {}
func (nopTelemetry) HarmfulContent() {}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.accessLog())

	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	v1 := r.Group("/v1")
	v1.POST("/detect", s.handleDetect)
	v1.POST("/redact", s.handleRedact)
	v1.POST("/message", s.handleMessage)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.log.Info("http server shutting down")
	return errors.Wrap(srv.Shutdown(shutdownCtx), "http server shutdown")
}

// detect returns the cached result for the image bytes or runs fn.
func (s *Server) detect(data []byte, fn func() pipeline.Outcome) (cacheEntry, bool) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	if s.cache != nil {
		if e, ok := s.cache.Get(key); ok {
			return e, true
		}
	}

	out := fn()
	e := cacheEntry{result: pipeline.Result(out), reason: out.Reason}
	if s.cache != nil && cacheable(out.Reason) {
		s.cache.Add(key, e)
	}
	return e, false
}

// cacheable reports whether a reason depends on the bytes alone.
func cacheable(r pipeline.Reason) bool {
	switch r {
	case pipeline.ReasonDetected, pipeline.ReasonNSFW, pipeline.ReasonTooSmall, pipeline.ReasonDecodeFailed:
		return true
	}
	return false
}
