// Package inference - Model sessions, pooling and the engine that owns them.
package inference

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/inference/providers"
	"github.com/nvr-ai/safegaze/models"
	"github.com/nvr-ai/safegaze/models/model"
)

// ErrModelUnavailable is returned for a model that is not configured or failed to load.
var ErrModelUnavailable = errors.New("model unavailable")

// DefaultPoolSize is the number of sessions per model when unset.
const DefaultPoolSize = 1

// Config configures the onnxruntime environment and the models to load.
type Config struct {
	// SharedLibraryPath points at the onnxruntime library; empty uses the platform default.
	SharedLibraryPath string `json:"sharedLibraryPath" yaml:"shared_library_path"`
	// Provider selects the execution provider and threading.
	Provider providers.Config `json:"provider" yaml:"provider"`
	// Models lists the models to load.
	Models []ModelConfig `json:"models" yaml:"models"`
}

// ModelConfig locates one model and sizes its session pool.
type ModelConfig struct {
	Name     model.Name `json:"name"     yaml:"name"`
	Path     string     `json:"path"     yaml:"path"`
	PoolSize int        `json:"poolSize" yaml:"pool_size"`
}

// Stats holds per-model inference counters.
type Stats struct {
	Inferences int64         `json:"inferences"`
	Failures   int64         `json:"failures"`
	Total      time.Duration `json:"total"`
}

// Average returns the mean inference time, zero before the first call.
func (s Stats) Average() time.Duration {
	if s.Inferences == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Inferences)
}

// Handle is a pool of sessions for one model. Sessions are borrowed for a
// single call and returned afterwards, so at most PoolSize calls run at once.
type Handle struct {
	config   model.Config
	pool     chan *Session
	sessions []*Session

	mu    sync.Mutex
	stats Stats
}

func newHandle(cfg model.Config, sessions []*Session) *Handle {
	h := &Handle{
		config:   cfg,
		pool:     make(chan *Session, len(sessions)),
		sessions: sessions,
	}
	for _, s := range sessions {
		h.pool <- s
	}
	return h
}

// Name returns the model name.
func (h *Handle) Name() model.Name {
	return h.config.Name
}

// Config returns the model configuration.
func (h *Handle) Config() model.Config {
	return h.config
}

// Run borrows a session, calls fn with it and returns it to the pool.
//
// Arguments:
//   - ctx: Bounds the wait for a free session. A call already running is not interrupted.
//   - fn: The work to do with the session.
//
// Returns:
//   - error: The context error while waiting, or the error from fn.
//
// @example
//
//	err := h.Run(ctx, func(s *Session) error {
//	    if err := s.SetInput(tensor); err != nil {
//	        return err
//	    }
//	    return s.Run()
//	})
func (h *Handle) Run(ctx context.Context, fn func(*Session) error) error {
	var s *Session
	select {
	case s = <-h.pool:
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "%s: waiting for session", h.config.Name)
	}
	defer func() { h.pool <- s }()

	start := time.Now()
	err := fn(s)
	h.record(time.Since(start), err)
	return err
}

func (h *Handle) record(d time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Inferences++
	h.stats.Total += d
	if err != nil {
		h.stats.Failures++
	}
}

// Stats returns a snapshot of the handle counters.
func (h *Handle) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// close waits for every session to come back and destroys it.
func (h *Handle) close() error {
	var first error
	for range h.sessions {
		s := <-h.pool
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Engine owns one Handle per loaded model.
type Engine struct {
	handles map[model.Name]*Handle
	log     *zap.Logger
}

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment loads the onnxruntime library once per process.
func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath == "" {
			libPath = providers.GetSharedLibPath()
		}
		if _, err := os.Stat(libPath); err != nil {
			envErr = errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		envErr = errors.Wrap(ort.InitializeEnvironment(), "error initializing ORT environment")
	})
	return envErr
}

// NewEngine initializes onnxruntime and loads every configured model. A
// model that fails to load is logged and left out; Handle then reports
// ErrModelUnavailable for it.
//
// Arguments:
//   - cfg: The runtime and model configuration.
//   - log: The logger; nil disables logging.
//
// Returns:
//   - *Engine: The engine, possibly with some models missing.
//   - error: An error if the runtime itself cannot start.
func NewEngine(cfg Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if err := initEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	options, err := providers.NewSessionOptions(cfg.Provider)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	e := &Engine{handles: make(map[model.Name]*Handle), log: log}
	for _, mc := range cfg.Models {
		h, err := loadModel(mc, options)
		if err != nil {
			log.Warn("model unavailable",
				zap.String("model", string(mc.Name)),
				zap.String("path", mc.Path),
				zap.Error(err),
			)
			continue
		}
		e.handles[mc.Name] = h
		log.Info("model loaded",
			zap.String("model", string(mc.Name)),
			zap.String("backend", string(cfg.Provider.Backend)),
			zap.Int("pool", len(h.sessions)),
		)
	}

	return e, nil
}

func loadModel(mc ModelConfig, options *ort.SessionOptions) (*Handle, error) {
	cfg, err := models.NewConfig(mc.Name, mc.Path)
	if err != nil {
		return nil, err
	}

	size := mc.PoolSize
	if size <= 0 {
		size = DefaultPoolSize
	}

	sessions := make([]*Session, 0, size)
	for i := 0; i < size; i++ {
		s, err := NewSession(cfg, options)
		if err != nil {
			for _, loaded := range sessions {
				loaded.Close()
			}
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return newHandle(cfg, sessions), nil
}

// Handle returns the session pool for a model.
//
// Returns:
//   - *Handle: The handle.
//   - error: ErrModelUnavailable when the model is not loaded.
func (e *Engine) Handle(name model.Name) (*Handle, error) {
	if e == nil {
		return nil, errors.Wrapf(ErrModelUnavailable, "%s", name)
	}
	h, ok := e.handles[name]
	if !ok {
		return nil, errors.Wrapf(ErrModelUnavailable, "%s", name)
	}
	return h, nil
}

// Loaded returns the names of the loaded models, sorted.
func (e *Engine) Loaded() []model.Name {
	names := make([]model.Name, 0, len(e.handles))
	for name := range e.handles {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Stats returns the counters of every loaded model.
func (e *Engine) Stats() map[model.Name]Stats {
	out := make(map[model.Name]Stats, len(e.handles))
	for name, h := range e.handles {
		out[name] = h.Stats()
	}
	return out
}

// Close destroys every session. It blocks until in-flight calls finish.
func (e *Engine) Close() error {
	var first error
	for name, h := range e.handles {
		if err := h.close(); err != nil {
			e.log.Warn("close model", zap.String("model", string(name)), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	e.handles = map[model.Name]*Handle{}
	return first
}
