package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/app"
	"github.com/nvr-ai/safegaze/config"
	"github.com/nvr-ai/safegaze/images"
	"github.com/nvr-ai/safegaze/logger"
	"github.com/nvr-ai/safegaze/pipeline"
	"github.com/nvr-ai/safegaze/render"
	"github.com/nvr-ai/safegaze/util"
	"github.com/nvr-ai/safegaze/wire"
)

func main() {
	var (
		configPath string
		envFile    string
		outputDir  string
		debug      bool
	)
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.StringVar(&envFile, "env", ".env", "Path to an optional .env file")
	flag.StringVar(&outputDir, "output-dir", "", "Directory for results; defaults to each input's directory")
	flag.BoolVar(&debug, "debug", false, "Draw the skin visualization and skeleton overlays")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: safegaze [flags] <dir|url>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(configPath, envFile, outputDir, debug, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "safegaze: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, outputDir string, debug bool, inputs []string) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}
	cfg.Render.Debug = cfg.Render.Debug || debug
	if err := logger.InitDevelopment(); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Log()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &batch{app: a, outputDir: outputDir, log: log}
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://") {
			b.url(ctx, in)
			continue
		}
		if err := b.dir(ctx, in); err != nil {
			return err
		}
	}

	log.Info("done",
		zap.Int("images", b.images),
		zap.Int("redacted", b.redacted),
		zap.Int("nsfw", b.nsfw),
		zap.Int("failed", b.failed),
	)
	return nil
}

type batch struct {
	app       *app.App
	outputDir string
	log       *zap.Logger

	images, redacted, nsfw, failed int
}

func (b *batch) dir(ctx context.Context, dir string) error {
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := b.outputFor(filepath.Dir(f.Path))
		if err := b.process(ctx, f.Data, filepath.Join(out, f.Name)); err != nil {
			b.failed++
			b.log.Warn("image failed", zap.String("path", f.Path), zap.Error(err))
		}
	}
	return nil
}

func (b *batch) url(ctx context.Context, url string) {
	data, err := b.app.Fetcher.Fetch(ctx, url)
	if err != nil {
		b.failed++
		b.log.Warn("fetch failed", zap.String("url", url), zap.String("reason", string(pipeline.ReasonFetchFailed)), zap.Error(err))
		return
	}
	name := strings.TrimSuffix(filepath.Base(url), filepath.Ext(url))
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	if err := b.process(ctx, data, filepath.Join(b.outputFor("."), name)); err != nil {
		b.failed++
		b.log.Warn("image failed", zap.String("url", url), zap.Error(err))
	}
}

func (b *batch) outputFor(inputDir string) string {
	if b.outputDir != "" {
		return b.outputDir
	}
	return inputDir
}

// process writes <base>.json and <base>.redacted.png.
func (b *batch) process(ctx context.Context, data []byte, base string) error {
	img, _, err := images.Decode(data)
	if err != nil {
		return err
	}
	b.images++

	outcome := b.app.Orchestrator.Process(ctx, img)
	result := pipeline.Result(outcome)

	payload, err := wire.Encode(result)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	if err := os.WriteFile(base+".json", payload, 0o644); err != nil {
		return errors.Wrap(err, "write result")
	}

	rendered, err := b.app.Renderer.Render(ctx, result, img)
	if err != nil {
		return err
	}
	png, err := images.EncodePNG(rendered.Image)
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+util.RedactedSuffix+".png", png, 0o644); err != nil {
		return errors.Wrap(err, "write redacted image")
	}

	switch rendered.State {
	case render.StateNSFW:
		b.nsfw++
	case render.StateSafePartialRedaction:
		b.redacted++
	}
	b.log.Info("image",
		zap.String("output", base),
		zap.String("reason", string(outcome.Reason)),
		zap.String("state", rendered.State.String()),
		zap.Int("persons", len(result.Persons)),
		zap.Int("redacted", rendered.Redacted),
	)
	return nil
}
