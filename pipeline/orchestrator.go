// Package pipeline - Runs the detection stages over one image and produces a DetectionResult.
package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/images"
	"github.com/nvr-ai/safegaze/inference/detectors"
	"github.com/nvr-ai/safegaze/matcher"
)

var (
	// ErrDecode wraps image decoding failures.
	ErrDecode = errors.New("decode image")
	// ErrNoFetcher is reported by ProcessURL when no Fetcher is configured.
	ErrNoFetcher = errors.New("no fetcher configured")
)

// Reason explains how an Outcome was reached.
type Reason string

const (
	ReasonDetected        Reason = "detected"
	ReasonTooSmall        Reason = "too_small"
	ReasonNSFW            Reason = "nsfw"
	ReasonNSFWUnavailable Reason = "nsfw_unavailable"
	ReasonNSFWFailed      Reason = "nsfw_failed"
	ReasonDecodeFailed    Reason = "decode_failed"
	ReasonFetchFailed     Reason = "fetch_failed"
)

// Outcome is the result of processing one image. Coordinates are in the
// working image of ImageWidth x ImageHeight.
type Outcome struct {
	IsNSFW      bool
	Persons     []detection.Person
	ImageWidth  int
	ImageHeight int
	// Prediction is set whenever the NSFW classifier produced scores.
	Prediction *detection.NsfwPrediction
	Reason     Reason
	// Err is the failure behind a fail-closed outcome.
	Err error
}

// Result builds the wire aggregate from an outcome.
func Result(o Outcome) detection.DetectionResult {
	return detection.DetectionResult{
		ImageWidth:  o.ImageWidth,
		ImageHeight: o.ImageHeight,
		Persons:     o.Persons,
		IsNSFW:      o.IsNSFW,
	}
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithObserver sets the instrumentation sink.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithFetcher sets the image downloader used by ProcessURL.
func WithFetcher(f Fetcher) Option {
	return func(o *Orchestrator) {
		o.fetcher = f
	}
}

// Orchestrator drives NSFW classification, face and pose detection, person
// matching and gender classification. It is safe for concurrent use.
type Orchestrator struct {
	config    Config
	detectors Detectors
	fetcher   Fetcher
	observer  Observer
	log       *zap.Logger
}

// New builds an orchestrator.
//
// Arguments:
//   - cfg: The pipeline settings.
//   - d: The model stages; nil fields are treated as unavailable models.
//   - opts: Optional logger, observer and fetcher.
//
// Returns:
//   - *Orchestrator: The orchestrator.
//   - error: A validation error for cfg.
//
// @example
//
//	o, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Detectors{
//	    NSFW: nsfw, Face: face, Pose: pose, Gender: gender,
//	}, pipeline.WithLogger(log))
func New(cfg Config, d Detectors, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		config:    cfg,
		detectors: d,
		observer:  nopObserver{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// ProcessURL downloads and processes an image. A failed download is unsafe.
func (o *Orchestrator) ProcessURL(ctx context.Context, url string) Outcome {
	if o.fetcher == nil {
		return o.finish(time.Now(), failClosed(ReasonFetchFailed, ErrNoFetcher))
	}
	start := time.Now()
	raw, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		o.log.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return o.finish(start, failClosed(ReasonFetchFailed, err))
	}
	return o.ProcessBytes(ctx, raw)
}

// ProcessBytes decodes and processes an encoded image. Undecodable bytes are
// unsafe.
func (o *Orchestrator) ProcessBytes(ctx context.Context, raw []byte) Outcome {
	img, _, err := images.Decode(raw)
	if err != nil {
		err = errors.Wrap(ErrDecode, err.Error())
		o.log.Warn("decode failed", zap.Int("bytes", len(raw)), zap.Error(err))
		return o.finish(time.Now(), failClosed(ReasonDecodeFailed, err))
	}
	return o.Process(ctx, img)
}

// Process runs the detection stages over a decoded image. Model failures
// never escape: the NSFW stage fails closed, the other stages degrade to an
// empty result.
//
// Arguments:
//   - ctx: Cancels the whole run.
//   - img: The decoded image at its original size.
//
// Returns:
//   - Outcome: The detection outcome in working-image coordinates.
func (o *Orchestrator) Process(ctx context.Context, img image.Image) Outcome {
	start := time.Now()
	return o.finish(start, o.process(ctx, img))
}

func (o *Orchestrator) finish(start time.Time, out Outcome) Outcome {
	o.observer.ObserveOutcome(out, time.Since(start))
	return out
}

func failClosed(reason Reason, err error) Outcome {
	return Outcome{IsNSFW: true, Reason: reason, Err: err}
}

func (o *Orchestrator) process(ctx context.Context, img image.Image) Outcome {
	b := img.Bounds()
	if b.Dx() < o.config.MinImageSize || b.Dy() < o.config.MinImageSize {
		return Outcome{ImageWidth: b.Dx(), ImageHeight: b.Dy(), Reason: ReasonTooSmall}
	}

	working, _ := images.FitWithin(img, o.config.MaxWorkingSize, o.config.MaxWorkingSize)
	w, h := working.Bounds().Dx(), working.Bounds().Dy()

	prediction, err := o.classifyNSFW(ctx, working)
	if err != nil {
		reason := ReasonNSFWFailed
		if errors.Is(err, errUnavailable) {
			reason = ReasonNSFWUnavailable
		}
		o.log.Warn("nsfw stage failed closed", zap.String("reason", string(reason)), zap.Error(err))
		out := failClosed(reason, err)
		out.ImageWidth, out.ImageHeight = w, h
		return out
	}
	if !prediction.IsSafe() {
		o.log.Debug("nsfw", zap.Stringer("prediction", prediction))
		return Outcome{
			IsNSFW:      true,
			ImageWidth:  w,
			ImageHeight: h,
			Prediction:  &prediction,
			Reason:      ReasonNSFW,
		}
	}

	faces, poses := o.detect(ctx, working)

	persons, stats := matcher.MatchWithStats(poses, faces, w, h)
	if stats.SharedFaces > 0 {
		o.log.Debug("faces claimed by several poses", zap.Int("shared", stats.SharedFaces))
	}

	o.classifyGenders(ctx, working, persons)

	return Outcome{
		Persons:     persons,
		ImageWidth:  w,
		ImageHeight: h,
		Prediction:  &prediction,
		Reason:      ReasonDetected,
	}
}

var errUnavailable = errors.New("model unavailable")

func (o *Orchestrator) classifyNSFW(ctx context.Context, img image.Image) (detection.NsfwPrediction, error) {
	if o.detectors.NSFW == nil {
		return detection.NsfwPrediction{}, errors.Wrap(errUnavailable, string(StageNSFW))
	}
	return call(ctx, o, StageNSFW, func(ctx context.Context) (detection.NsfwPrediction, error) {
		return o.detectors.NSFW.Classify(ctx, img)
	})
}

// detect runs face detection and pose estimation concurrently. A failed or
// missing stage contributes nothing.
func (o *Orchestrator) detect(ctx context.Context, img image.Image) ([]detectors.Face, []detection.Person) {
	var (
		faces []detectors.Face
		poses []detection.Person
		g     errgroup.Group
	)

	g.Go(func() error {
		if o.detectors.Face == nil {
			o.log.Debug("face stage unavailable")
			return nil
		}
		res, err := call(ctx, o, StageFace, func(ctx context.Context) ([]detectors.Face, error) {
			return o.detectors.Face.Detect(ctx, img)
		})
		if err != nil {
			o.log.Warn("face stage failed", zap.Error(err))
			return nil
		}
		faces = res
		return nil
	})

	g.Go(func() error {
		if o.detectors.Pose == nil {
			o.log.Debug("pose stage unavailable")
			return nil
		}
		res, err := call(ctx, o, StagePose, func(ctx context.Context) ([]detection.Person, error) {
			return o.detectors.Pose.Estimate(ctx, img)
		})
		if err != nil {
			o.log.Warn("pose stage failed", zap.Error(err))
			return nil
		}
		poses = res
		return nil
	})

	_ = g.Wait()
	return faces, poses
}

type genderResult struct {
	gender detection.Gender
	score  float32
}

// classifyGenders sets Gender and GenderScore on every person with a face.
// A failed classification leaves the person Unknown.
func (o *Orchestrator) classifyGenders(ctx context.Context, img image.Image, persons []detection.Person) {
	if o.detectors.Gender == nil {
		return
	}

	var g errgroup.Group
	g.SetLimit(o.config.GenderConcurrency)
	for i := range persons {
		if !persons[i].HasFace() {
			continue
		}
		p := &persons[i]
		box := *p.FaceBox
		g.Go(func() error {
			res, err := call(ctx, o, StageGender, func(ctx context.Context) (genderResult, error) {
				gender, score, err := o.detectors.Gender.Classify(ctx, img, box)
				return genderResult{gender, score}, err
			})
			if err != nil {
				o.log.Warn("gender stage failed", zap.Int("person", p.ID), zap.Error(err))
				return nil
			}
			p.Gender, p.GenderScore = res.gender, res.score
			return nil
		})
	}
	_ = g.Wait()
}

// call runs one model invocation under the per-call timeout and records its
// latency.
func call[T any](ctx context.Context, o *Orchestrator, stage Stage, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	v, err := withTimeout(ctx, o.config.ModelTimeout, fn)
	o.observer.ObserveModel(stage, time.Since(start), err)
	return v, errors.Wrap(err, string(stage))
}

// withTimeout bounds fn by d. The runtime call itself cannot be interrupted,
// so on timeout fn keeps running in the background and its result is dropped.
//
// Arguments:
//   - ctx: The parent context.
//   - d: The deadline for this call.
//   - fn: The call; it receives the bounded context.
//
// Returns:
//   - T: The value from fn, or the zero value on timeout.
//   - error: The error from fn, or the context error.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
