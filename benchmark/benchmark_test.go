package benchmark

import (
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/images"
	"github.com/nvr-ai/safegaze/pipeline"
	"github.com/nvr-ai/safegaze/render"
	"github.com/nvr-ai/safegaze/test"
)

func newSuite(t *testing.T, nsfw *test.FakeNSFW) *Suite {
	t.Helper()
	orch, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Detectors{
		NSFW: nsfw,
		Face: &test.FakeFaceDetector{},
		Pose: &test.FakePoseEstimator{Persons: []detection.Person{
			test.StandingPerson(0, common.PixelRect{X1: 20, Y1: 10, X2: 120, Y2: 220}, 0.9),
		}},
		Gender: &test.FakeGenderClassifier{},
	})
	require.NoError(t, err)
	rnd, err := render.New(render.DefaultConfig())
	require.NoError(t, err)

	s := NewSuite(orch, rnd, t.TempDir(), nil)
	s.SetCorpus([]image.Image{
		test.NewMockImageGenerator(200, 150).Solid(test.ClothColor),
		test.NewMockImageGenerator(200, 150).Gradient(),
	})
	return s
}

func TestScenarioBuilder(t *testing.T) {
	scenario := NewScenarioBuilder("test_scenario").
		WithResolution(416, 416).
		WithImageFormat(images.FormatJPEG).
		WithIterations(50).
		WithWarmupRuns(5).
		WithRender(true).
		Build()

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, Resolution{Width: 416, Height: 416, Name: "416x416"}, scenario.Resolution)
	assert.Equal(t, images.FormatJPEG, scenario.Format)
	assert.Equal(t, 50, scenario.Iterations)
	assert.Equal(t, 5, scenario.WarmupRuns)
	assert.True(t, scenario.Render)
}

func TestResolutionScenarios(t *testing.T) {
	scenarios := ResolutionScenarios(CommonResolutions[:2], []images.ImageFormat{images.FormatPNG, images.FormatJPEG}, 30, false)
	require.Len(t, scenarios, 4)
	assert.Equal(t, "320x240_png", scenarios[0].Name)
	assert.Equal(t, "320x240_jpeg", scenarios[1].Name)
	assert.Equal(t, 3, scenarios[0].WarmupRuns)

	assert.Len(t, QuickScenarios(), 2)
}

func TestRunScenario(t *testing.T) {
	nsfw := &test.FakeNSFW{Prediction: test.SafePrediction}
	s := newSuite(t, nsfw)

	scenario := NewScenarioBuilder("small").
		WithResolution(320, 240).
		WithIterations(3).
		WithWarmupRuns(1).
		WithRender(true).
		Build()

	m, err := s.RunScenario(context.Background(), scenario)
	require.NoError(t, err)
	assert.Equal(t, 4, nsfw.Calls())
	assert.Equal(t, map[pipeline.Reason]int{pipeline.ReasonDetected: 3}, m.Reasons)
	assert.Equal(t, 3, m.PersonCount)
	assert.Zero(t, m.ErrorRate)
	assert.Positive(t, m.ImagesPerSecond)
	assert.Positive(t, m.RenderDuration)
	assert.GreaterOrEqual(t, m.TotalDuration, m.DetectDuration)
}

func TestRunScenarioErrors(t *testing.T) {
	s := newSuite(t, &test.FakeNSFW{Prediction: test.SafePrediction})

	tests := []struct {
		name     string
		scenario Scenario
	}{
		{"no iterations", NewScenarioBuilder("zero").WithIterations(0).Build()},
		{"webp has no encoder", NewScenarioBuilder("webp").WithImageFormat(images.FormatWebP).Build()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RunScenario(context.Background(), tt.scenario)
			assert.Error(t, err)
		})
	}

	s.SetCorpus(nil)
	_, err := s.RunScenario(context.Background(), NewScenarioBuilder("empty").WithIterations(1).Build())
	assert.Error(t, err)
}

func TestRunAllScenariosAndSave(t *testing.T) {
	nsfw := &test.FakeNSFW{Err: test.ErrFake}
	s := newSuite(t, nsfw)
	s.AddScenario(NewScenarioBuilder("fails-closed").WithResolution(160, 120).WithIterations(2).WithWarmupRuns(0).Build())
	s.AddScenario(NewScenarioBuilder("skipped").WithIterations(0).Build())

	require.NoError(t, s.RunAllScenarios(context.Background()))
	results := s.Results()
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].ErrorRate)
	assert.Equal(t, 2, results[0].Reasons[pipeline.ReasonNSFWFailed])

	path, err := s.SaveResults()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved []PerformanceMetrics
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "fails-closed", saved[0].Scenario.Name)

	dir, base := filepath.Split(path)
	csvPath := filepath.Join(dir, strings.Replace(strings.TrimSuffix(base, ".json"), "results", "summary", 1)+".csv")
	summary, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(summary)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "fails-closed,160x120,png,false,"))
}

func TestLoadCorpus(t *testing.T) {
	s := NewSuite(nil, nil, t.TempDir(), nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), test.EncodePNG(test.NewMockImageGenerator(10, 10).Gradient()), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("broken"), 0o600))

	require.NoError(t, s.LoadCorpus(dir))
	assert.Len(t, s.corpus, 1)

	assert.Error(t, s.LoadCorpus(t.TempDir()))
}
