// Package benchmark - End-to-end latency and throughput of detection and redaction.
package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/images"
	"github.com/nvr-ai/safegaze/pipeline"
	"github.com/nvr-ai/safegaze/render"
	"github.com/nvr-ai/safegaze/util"
)

// Detector runs detection over encoded bytes.
type Detector interface {
	ProcessBytes(ctx context.Context, raw []byte) pipeline.Outcome
}

// Renderer redacts a decoded image.
type Renderer interface {
	Render(ctx context.Context, result detection.DetectionResult, displayed image.Image) (render.Output, error)
}

// PerformanceMetrics captures the results of one scenario.
type PerformanceMetrics struct {
	Scenario        Scenario                `json:"scenario"`
	Timestamp       time.Time               `json:"timestamp"`
	TotalDuration   time.Duration           `json:"total_duration"`
	DetectDuration  time.Duration           `json:"detect_duration"`
	RenderDuration  time.Duration           `json:"render_duration"`
	ImagesPerSecond float64                 `json:"images_per_second"`
	MemoryStats     MemoryMetrics           `json:"memory_stats"`
	NumCPU          int                     `json:"num_cpu"`
	PersonCount     int                     `json:"person_count"`
	Reasons         map[pipeline.Reason]int `json:"reasons"`
	ErrorRate       float64                 `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
}

// Suite manages and executes benchmark scenarios.
type Suite struct {
	detector  Detector
	renderer  Renderer
	outputDir string
	log       *zap.Logger

	mu        sync.RWMutex
	scenarios []Scenario
	corpus    []image.Image
	results   []PerformanceMetrics
}

// NewSuite creates a suite.
//
// Arguments:
//   - det: The detection pipeline.
//   - rnd: The renderer; nil benchmarks detection only.
//   - outputDir: Where SaveResults writes.
//   - log: The logger; nil disables logging.
//
// Returns:
//   - *Suite: The suite.
func NewSuite(det Detector, rnd Renderer, outputDir string, log *zap.Logger) *Suite {
	if log == nil {
		log = zap.NewNop()
	}
	return &Suite{detector: det, renderer: rnd, outputDir: outputDir, log: log}
}

// AddScenario adds a scenario.
func (s *Suite) AddScenario(scenario Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenario)
}

// LoadCorpus decodes every image in dir.
func (s *Suite) LoadCorpus(dir string) error {
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return err
	}
	var corpus []image.Image
	for _, f := range files {
		img, _, err := images.Decode(f.Data)
		if err != nil {
			s.log.Warn("skipping corpus file", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		corpus = append(corpus, img)
	}
	if len(corpus) == 0 {
		return errors.Errorf("no decodable images in %s", dir)
	}
	s.SetCorpus(corpus)
	return nil
}

// SetCorpus replaces the source images.
func (s *Suite) SetCorpus(corpus []image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = corpus
}

// prepare resizes the corpus to the scenario resolution and encodes it.
func (s *Suite) prepare(scenario Scenario) ([][]byte, []image.Image, error) {
	s.mu.RLock()
	corpus := s.corpus
	s.mu.RUnlock()
	if len(corpus) == 0 {
		return nil, nil, errors.New("benchmark corpus is empty")
	}

	encoded := make([][]byte, len(corpus))
	decoded := make([]image.Image, len(corpus))
	for i, img := range corpus {
		resized := images.ResizeExact(img, scenario.Resolution.Width, scenario.Resolution.Height)
		data, err := images.Encode(resized, scenario.Format)
		if err != nil {
			return nil, nil, err
		}
		encoded[i] = data
		decoded[i] = resized
	}
	return encoded, decoded, nil
}

// RunScenario executes a single scenario.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*PerformanceMetrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Errorf("scenario %s: iterations must be > 0", scenario.Name)
	}
	encoded, decoded, err := s.prepare(scenario)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", scenario.Name)
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		s.detector.ProcessBytes(ctx, encoded[i%len(encoded)])
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &PerformanceMetrics{
		Scenario:  scenario,
		Timestamp: time.Now(),
		NumCPU:    runtime.NumCPU(),
		Reasons:   make(map[pipeline.Reason]int),
	}
	failures := 0
	start := time.Now()

	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx := i % len(encoded)

		t := time.Now()
		out := s.detector.ProcessBytes(ctx, encoded[idx])
		metrics.DetectDuration += time.Since(t)
		metrics.Reasons[out.Reason]++
		metrics.PersonCount += len(out.Persons)
		if out.Err != nil {
			failures++
		}

		if s.renderer != nil && scenario.Render {
			t = time.Now()
			if _, err := s.renderer.Render(ctx, pipeline.Result(out), decoded[idx]); err != nil {
				failures++
			}
			metrics.RenderDuration += time.Since(t)
		}
	}

	metrics.TotalDuration = time.Since(start)

	var endMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&endMem)

	if secs := metrics.TotalDuration.Seconds(); secs > 0 {
		metrics.ImagesPerSecond = float64(scenario.Iterations) / secs
	}
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
	}
	return metrics, nil
}

// RunAllScenarios executes every scenario and keeps the results. A failing
// scenario is logged and skipped.
func (s *Suite) RunAllScenarios(ctx context.Context) error {
	s.mu.RLock()
	scenarios := append([]Scenario(nil), s.scenarios...)
	s.mu.RUnlock()

	for _, scenario := range scenarios {
		metrics, err := s.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.log.Warn("scenario failed", zap.String("scenario", scenario.Name), zap.Error(err))
			continue
		}

		s.mu.Lock()
		s.results = append(s.results, *metrics)
		s.mu.Unlock()

		s.log.Info("scenario completed",
			zap.String("scenario", scenario.Name),
			zap.Float64("images_per_second", metrics.ImagesPerSecond),
		)
	}
	return nil
}

// Results returns a copy of the results.
func (s *Suite) Results() []PerformanceMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]PerformanceMetrics(nil), s.results...)
}

// SaveResults writes benchmark_results_<ts>.json and benchmark_summary_<ts>.csv.
//
// Returns:
//   - string: The JSON path.
//   - error: A filesystem or encoding error.
func (s *Suite) SaveResults() (string, error) {
	results := s.Results()
	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", errors.Wrap(err, "create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return "", errors.Wrap(err, "write results")
	}

	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))
	if err := saveSummaryCSV(summaryFile, results); err != nil {
		return "", errors.Wrap(err, "write summary")
	}
	return resultsFile, nil
}

func saveSummaryCSV(filename string, results []PerformanceMetrics) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	_ = w.Write([]string{"scenario", "resolution", "format", "render", "images_per_second",
		"detect_ms_avg", "render_ms_avg", "persons", "alloc_mb", "error_rate"})
	for _, r := range results {
		n := float64(r.Scenario.Iterations)
		_ = w.Write([]string{
			r.Scenario.Name,
			r.Scenario.Resolution.Name,
			string(r.Scenario.Format),
			strconv.FormatBool(r.Scenario.Render),
			strconv.FormatFloat(r.ImagesPerSecond, 'f', 2, 64),
			strconv.FormatFloat(float64(r.DetectDuration.Microseconds())/1e3/n, 'f', 3, 64),
			strconv.FormatFloat(float64(r.RenderDuration.Microseconds())/1e3/n, 'f', 3, 64),
			strconv.Itoa(r.PersonCount),
			strconv.FormatFloat(float64(r.MemoryStats.AllocBytes)/(1024*1024), 'f', 2, 64),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		})
	}
	w.Flush()
	return w.Error()
}
