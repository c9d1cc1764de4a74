package pipeline

import (
	"time"

	"github.com/pkg/errors"
)

// Defaults for Config.
const (
	DefaultMinImageSize      = 45
	DefaultMaxWorkingSize    = 800
	DefaultModelTimeout      = 5 * time.Second
	DefaultGenderConcurrency = 4
)

// Config tunes the orchestrator.
type Config struct {
	// MinImageSize is the side below which an image bypasses detection.
	MinImageSize int `json:"minImageSize" yaml:"min_image_size"`
	// MaxWorkingSize bounds both sides of the working image. Larger images
	// are downscaled; smaller ones are never upscaled.
	MaxWorkingSize int `json:"maxWorkingSize" yaml:"max_working_size"`
	// ModelTimeout bounds every single model call.
	ModelTimeout time.Duration `json:"modelTimeout" yaml:"model_timeout"`
	// GenderConcurrency bounds the gender fan-out.
	GenderConcurrency int `json:"genderConcurrency" yaml:"gender_concurrency"`
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		MinImageSize:      DefaultMinImageSize,
		MaxWorkingSize:    DefaultMaxWorkingSize,
		ModelTimeout:      DefaultModelTimeout,
		GenderConcurrency: DefaultGenderConcurrency,
	}
}

// Validate rejects settings the orchestrator cannot run with.
func (c Config) Validate() error {
	switch {
	case c.MinImageSize < 0:
		return errors.Errorf("pipeline: min image size must be >= 0, got %d", c.MinImageSize)
	case c.MaxWorkingSize <= 0:
		return errors.Errorf("pipeline: max working size must be > 0, got %d", c.MaxWorkingSize)
	case c.MaxWorkingSize < c.MinImageSize:
		return errors.Errorf("pipeline: max working size %d is below min image size %d", c.MaxWorkingSize, c.MinImageSize)
	case c.ModelTimeout <= 0:
		return errors.Errorf("pipeline: model timeout must be > 0, got %s", c.ModelTimeout)
	case c.GenderConcurrency <= 0:
		return errors.Errorf("pipeline: gender concurrency must be > 0, got %d", c.GenderConcurrency)
	}
	return nil
}
