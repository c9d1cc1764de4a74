package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/app"
	"github.com/nvr-ai/safegaze/benchmark"
	"github.com/nvr-ai/safegaze/config"
	"github.com/nvr-ai/safegaze/images"
	"github.com/nvr-ai/safegaze/logger"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the YAML configuration file")
		envFile    = flag.String("env", ".env", "Path to an optional .env file")
		corpusDir  = flag.String("images", "", "Directory of test images")
		outputDir  = flag.String("output", "./benchmark_results", "Output directory for results")
		quick      = flag.Bool("quick", false, "Run the quick scenarios only")
		iterations = flag.Int("iterations", 100, "Iterations per scenario")
		detectOnly = flag.Bool("detect-only", false, "Skip the redaction pass")
		timeout    = flag.Duration("timeout", 30*time.Minute, "Benchmark timeout duration")
	)
	flag.Parse()

	if *corpusDir == "" {
		fmt.Fprintln(os.Stderr, "safegaze-bench: test images directory is required (-images)")
		os.Exit(2)
	}

	if err := run(*configPath, *envFile, *corpusDir, *outputDir, *quick, *iterations, !*detectOnly, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "safegaze-bench: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, corpusDir, outputDir string, quick bool, iterations int, render bool, timeout time.Duration) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	if err := logger.InitDevelopment(); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Named("benchmark")

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	suite := benchmark.NewSuite(a.Orchestrator, a.Renderer, outputDir, log)
	if err := suite.LoadCorpus(corpusDir); err != nil {
		return err
	}

	scenarios := benchmark.QuickScenarios()
	if !quick {
		scenarios  = benchmark.ResolutionScenarios(benchmark.CommonResolutions,
			[]images.ImageFormat{images.FormatJPEG, images.FormatPNG}, iterations, render)
	}
	for _, s := range scenarios {
		suite.AddScenario(s)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Info("starting benchmark",
		zap.Int("scenarios", len(scenarios)),
		zap.Strings("models", loadedModels(a)),
	)
	if err := suite.RunAllScenarios(ctx); err != nil {
		return errors.Wrap(err, "benchmark interrupted")
	}

	path, err := suite.SaveResults()
	if err != nil {
		return err
	}

	for _, r := range suite.Results() {
		fmt.Printf("%-20s %8.2f img/s  persons=%-5d errors=%.2f%%\n",
			r.Scenario.Name, r.ImagesPerSecond, r.PersonCount, r.ErrorRate*100)
	}
	fmt.Printf("results written to %s\n", path)
	return nil
}

func loadedModels(a *app.App) []string {
	var names []string
	for _, n := range a.Engine.Loaded() {
		names      = append(names, string(n))
	}
	return names
}
