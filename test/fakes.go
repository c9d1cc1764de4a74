package test

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/inference/detectors"
)

// ErrFake is the default error returned by failing fakes.
var ErrFake = errors.New("fake failure")

// counter records invocations of a fake.
type counter struct {
	calls atomic.Int32
}

// Calls returns how many times the fake was invoked.
func (c *counter) Calls() int {
	return int(c.calls.Load())
}

// wait honours Delay while respecting ctx.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeNSFW returns a fixed prediction.
type FakeNSFW struct {
	counter
	Prediction detection.NsfwPrediction
	Err        error
	Delay      time.Duration
}

// SafePrediction is comfortably below the unsafe threshold.
var SafePrediction = detection.NsfwPrediction{Drawing: 0.1, Neutral: 0.85, Sexy: 0.05}

// UnsafePrediction is above the unsafe threshold.
var UnsafePrediction = detection.NsfwPrediction{Neutral: 0.05, Porn: 0.9, Sexy: 0.05}

// Classify implements the NSFW stage.
func (f *FakeNSFW) Classify(ctx context.Context, _ image.Image) (detection.NsfwPrediction, error) {
	f.calls.Add(1)
	if err := wait(ctx, f.Delay); err != nil {
		return detection.NsfwPrediction{}, err
	}
	return f.Prediction, f.Err
}

// FakeFaceDetector returns fixed faces.
type FakeFaceDetector struct {
	counter
	Faces []detectors.Face
	Err   error
	Delay time.Duration
}

// Detect implements the face stage.
func (f *FakeFaceDetector) Detect(ctx context.Context, _ image.Image) ([]detectors.Face, error) {
	f.calls.Add(1)
	if err := wait(ctx, f.Delay); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]detectors.Face(nil), f.Faces...), nil
}

// FakePoseEstimator returns fixed people.
type FakePoseEstimator struct {
	counter
	Persons []detection.Person
	Err     error
	Delay   time.Duration
}

// Estimate implements the pose stage.
func (f *FakePoseEstimator) Estimate(ctx context.Context, _ image.Image) ([]detection.Person, error) {
	f.calls.Add(1)
	if err := wait(ctx, f.Delay); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]detection.Person(nil), f.Persons...), nil
}

// FakeGenderClassifier returns Gender and Score, or defers to Fn when set.
type FakeGenderClassifier struct {
	counter
	Gender detection.Gender
	Score  float32
	Err    error
	Delay  time.Duration
	Fn     func(face common.PixelRect) (detection.Gender, float32, error)
}

// Classify implements the gender stage.
func (f *FakeGenderClassifier) Classify(ctx context.Context, _ image.Image, face common.PixelRect) (detection.Gender, float32, error) {
	f.calls.Add(1)
	if err := wait(ctx, f.Delay); err != nil {
		return detection.GenderUnknown, 0, err
	}
	if f.Fn != nil {
		return f.Fn(face)
	}
	return f.Gender, f.Score, f.Err
}

// FakeFetcher serves bytes from a map.
type FakeFetcher struct {
	counter
	Images map[string][]byte
}

// Fetch implements image acquisition.
func (f *FakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	data, ok := f.Images[url]
	if !ok {
		return nil, errors.Wrapf(ErrFake, "no image at %s", url)
	}
	return data, nil
}
