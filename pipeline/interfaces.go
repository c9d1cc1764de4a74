package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/inference/detectors"
)

// NSFWClassifier scores an image for unsafe content.
type NSFWClassifier interface {
	Classify(ctx context.Context, img image.Image) (detection.NsfwPrediction, error)
}

// FaceDetector finds faces in an image.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) ([]detectors.Face, error)
}

// PoseEstimator finds people and their keypoints in pixel space.
type PoseEstimator interface {
	Estimate(ctx context.Context, img image.Image) ([]detection.Person, error)
}

// GenderClassifier classifies the face inside a pixel box of img.
type GenderClassifier interface {
	Classify(ctx context.Context, img image.Image, face common.PixelRect) (detection.Gender, float32, error)
}

// Fetcher downloads image bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Detectors groups the model stages. A nil field means the model is
// unavailable and the stage falls back to its failure behaviour.
type Detectors struct {
	NSFW   NSFWClassifier
	Face   FaceDetector
	Pose   PoseEstimator
	Gender GenderClassifier
}

// Stage names a model call for instrumentation.
type Stage string

const (
	StageNSFW   Stage = "nsfw"
	StageFace   Stage = "face"
	StagePose   Stage = "pose"
	StageGender Stage = "gender"
)

// Observer receives model-call latencies and per-image outcomes.
type Observer interface {
	ObserveModel(stage Stage, d time.Duration, err error)
	ObserveOutcome(o Outcome, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveModel(Stage, time.Duration, error) {}
func (nopObserver) ObserveOutcome(Outcome, time.Duration)    {}
