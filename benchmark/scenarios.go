package benchmark

import (
	"fmt"

	"github.com/nvr-ai/safegaze/images"
)

// Resolution represents image dimensions for benchmarking
type Resolution struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Name   string `json:"name"`
}

// NewResolution names a resolution WxH.
func NewResolution(width, height int) Resolution {
	return Resolution{Width: width, Height: height, Name: fmt.Sprintf("%dx%d", width, height)}
}

// CommonResolutions are typical web image sizes, below and above the working size.
var CommonResolutions = []Resolution{
	NewResolution(320, 240),
	NewResolution(640, 480),
	NewResolution(800, 600),
	NewResolution(1280, 720),
	NewResolution(1920, 1080),
}

// Scenario defines one benchmark configuration.
type Scenario struct {
	Name       string             `json:"name"`
	Resolution Resolution         `json:"resolution"`
	Format     images.ImageFormat `json:"format"`
	Iterations int                `json:"iterations"`
	WarmupRuns int                `json:"warmup_runs"`
	// Render adds the redaction pass to every iteration.
	Render bool `json:"render"`
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a builder with 100 iterations, 10 warmups and PNG input.
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Resolution: NewResolution(640, 480),
			Format:     images.FormatPNG,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithResolution sets the image resolution
func (sb *ScenarioBuilder) WithResolution(width, height int) *ScenarioBuilder {
	sb.scenario.Resolution = NewResolution(width, height)
	return sb
}

// WithImageFormat sets the image format
func (sb *ScenarioBuilder) WithImageFormat(format images.ImageFormat) *ScenarioBuilder {
	sb.scenario.Format = format
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// WithRender includes the redaction pass.
func (sb *ScenarioBuilder) WithRender(render bool) *ScenarioBuilder {
	sb.scenario.Render = render
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// ResolutionScenarios returns one scenario per resolution and format.
func ResolutionScenarios(resolutions []Resolution, formats []images.ImageFormat, iterations int, render bool) []Scenario {
	var out []Scenario
	for _, res := range resolutions {
		for _, f := range formats {
			out = append(out, NewScenarioBuilder(fmt.Sprintf("%s_%s", res.Name, f)).
				WithResolution(res.Width, res.Height).
				WithImageFormat(f).
				WithIterations(iterations).
				WithWarmupRuns(max(1, iterations/10)).
				WithRender(render).
				Build())
		}
	}
	return out
}

// QuickScenarios is a small smoke set.
func QuickScenarios() []Scenario {
	return ResolutionScenarios(CommonResolutions[1:3], []images.ImageFormat{images.FormatJPEG}, 20, true)
}
