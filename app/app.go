// Package app - Wires configuration into the engine, pipeline, renderer and server.
package app

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/config"
	"github.com/nvr-ai/safegaze/fetch"
	"github.com/nvr-ai/safegaze/inference"
	"github.com/nvr-ai/safegaze/inference/detectors"
	"github.com/nvr-ai/safegaze/inference/detectors/cascade"
	"github.com/nvr-ai/safegaze/metrics"
	"github.com/nvr-ai/safegaze/models/model"
	"github.com/nvr-ai/safegaze/pipeline"
	"github.com/nvr-ai/safegaze/render"
	"github.com/nvr-ai/safegaze/server"
)

// App holds the long-lived components of one process.
type App struct {
	Config       config.Config
	Engine       *inference.Engine
	Orchestrator *pipeline.Orchestrator
	Renderer     *render.Renderer
	Metrics      *metrics.Metrics
	Fetcher      *fetch.Fetcher

	log     *zap.Logger
	closers []func() error
}

// New builds every component from cfg. Models that fail to load are logged
// and left out; the pipeline then fails closed or degrades per stage.
//
// Arguments:
//   - cfg: A validated configuration.
//   - log: The process logger.
//
// Returns:
//   - *App: The wired components; Close it when done.
//   - error: An error if onnxruntime cannot start or a component rejects its config.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Metrics: metrics.New(), log: log}

	engine, err := inference.NewEngine(cfg.Inference(), log.Named("inference"))
	if err != nil {
		return nil, err
	}
	a.Engine = engine
	a.closers = append(a.closers, engine.Close)

	d := Detectors(engine.Handle, common.ParseOrigin(cfg.Models.PoseOrigin))
	if cfg.Models.FaceBackend == config.FaceBackendCascade {
		fd, err := cascade.New(cfg.Models.CascadePath)
		if err != nil {
			log.Warn("face detector unavailable", zap.String("backend", cfg.Models.FaceBackend), zap.Error(err))
		} else {
			d.Face = fd
			a.closers = append(a.closers, fd.Close)
		}
	}

	a.Fetcher = fetch.New(cfg.Fetch, log.Named("fetch"))

	a.Orchestrator, err = pipeline.New(cfg.Pipeline, d,
		pipeline.WithLogger(log.Named("pipeline")),
		pipeline.WithObserver(a.Metrics),
		pipeline.WithFetcher(a.Fetcher),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Renderer, err = render.New(cfg.Render,
		render.WithTelemetry(a.Metrics),
		render.WithLogger(log.Named("render")),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// HandleFunc looks up a loaded model.
type HandleFunc func(name model.Name) (*inference.Handle, error)

// Detectors builds the pipeline stages for every model lookup can serve. A
// missing model leaves its field nil so the pipeline sees it as unavailable.
func Detectors(lookup HandleFunc, poseOrigin common.Origin) pipeline.Detectors {
	var d pipeline.Detectors
	if h, err := lookup(model.NameNSFW); err == nil {
		d.NSFW = detectors.NewNSFWClassifier(h)
	}
	if h, err := lookup(model.NameFace); err == nil {
		d.Face = detectors.NewFaceDetector(h)
	}
	if h, err := lookup(model.NamePose); err == nil {
		opts := detectors.DefaultPoseOptions()
		opts.Origin = poseOrigin
		d.Pose = detectors.NewPoseEstimator(h, opts)
	}
	if h, err := lookup(model.NameGender); err == nil {
		d.Gender = detectors.NewGenderClassifier(h)
	}
	return d
}

// Server builds the HTTP server over the app components.
func (a *App) Server() (*server.Server, error) {
	return server.New(a.Config.Server, a.Orchestrator, a.Renderer,
		server.WithLogger(a.log.Named("http")),
		server.WithFetcher(a.Fetcher),
		server.WithTelemetry(a.Metrics),
		server.WithRequestObserver(a.Metrics),
		server.WithMetricsHandler(a.Metrics.Handler()),
		server.WithHealth(a.health),
	)
}

func (a *App) health() gin.H {
	loaded := a.Engine.Loaded()
	names := make([]string, len(loaded))
	for i, n := range loaded {
		names[i] = string(n)
	}
	return gin.H{"models": names, "stats": a.Engine.Stats()}
}

// Close releases the models in reverse order of creation.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", zap.Error(err))
			if first == nil {
				first = errors.Wrap(err, "close app")
			}
		}
	}
	a.closers = nil
	return first
}
