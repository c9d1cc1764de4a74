package detection

import (
	"fmt"

	"github.com/pkg/errors"
)

// UnsafeThreshold is the unsafe-score level at which an image is treated as NSFW.
const UnsafeThreshold float32 = 0.85

// NsfwLabels is the output order of the NSFW classifier.
var NsfwLabels = [5]string{"drawing", "hentai", "neutral", "porn", "sexy"}

// NsfwPrediction holds the five category scores of the NSFW classifier. The
// scores are not guaranteed to sum to 1.
type NsfwPrediction struct {
	Drawing float32
	Hentai  float32
	Neutral float32
	Porn    float32
	Sexy    float32
}

// FromScores reads a prediction from classifier output in label order.
func FromScores(scores []float32) (NsfwPrediction, error) {
	if len(scores) != len(NsfwLabels) {
		return NsfwPrediction{}, errors.Errorf("expected %d nsfw scores, got %d", len(NsfwLabels), len(scores))
	}
	return NsfwPrediction{
		Drawing: scores[0],
		Hentai:  scores[1],
		Neutral: scores[2],
		Porn:    scores[3],
		Sexy:    scores[4],
	}, nil
}

// UnsafeScore is hentai + porn + sexy.
func (p NsfwPrediction) UnsafeScore() float32 {
	return p.Hentai + p.Porn + p.Sexy
}

// IsSafe holds when the unsafe score is below UnsafeThreshold.
func (p NsfwPrediction) IsSafe() bool {
	return p.UnsafeScore() < UnsafeThreshold
}

func (p NsfwPrediction) String() string {
	return fmt.Sprintf("drawing=%.3f hentai=%.3f neutral=%.3f porn=%.3f sexy=%.3f",
		p.Drawing, p.Hentai, p.Neutral, p.Porn, p.Sexy)
}
