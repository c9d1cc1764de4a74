// Package config - Process configuration from YAML, .env files and SAFEGAZE_* variables.
package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/safegaze/common"
	"github.com/nvr-ai/safegaze/fetch"
	"github.com/nvr-ai/safegaze/inference"
	"github.com/nvr-ai/safegaze/inference/providers"
	"github.com/nvr-ai/safegaze/logger"
	"github.com/nvr-ai/safegaze/models/model"
	"github.com/nvr-ai/safegaze/pipeline"
	"github.com/nvr-ai/safegaze/render"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SAFEGAZE_"

// Face detector backends.
const (
	FaceBackendONNX    = "onnx"
	FaceBackendCascade = "cascade"
)

// Config is the whole process configuration.
type Config struct {
	Server   ServerConfig    `json:"server"   yaml:"server"`
	Log      logger.Config   `json:"log"      yaml:"log"`
	Fetch    fetch.Config    `json:"fetch"    yaml:"fetch"`
	Runtime  RuntimeConfig   `json:"runtime"  yaml:"runtime"`
	Models   ModelsConfig    `json:"models"   yaml:"models"`
	Pipeline pipeline.Config `json:"pipeline" yaml:"pipeline"`
	Render   render.Config   `json:"render"   yaml:"render"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// Mode is the gin mode: debug, release or test.
	Mode string `json:"mode" yaml:"mode"`
	// CacheSize is the number of detection results kept by image hash; 0 disables the cache.
	CacheSize       int           `json:"cacheSize"       yaml:"cache_size"`
	MaxUploadBytes  int64         `json:"maxUploadBytes"  yaml:"max_upload_bytes"`
	ReadTimeout     time.Duration `json:"readTimeout"     yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"    yaml:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdown_timeout"`
}

// RuntimeConfig configures onnxruntime.
type RuntimeConfig struct {
	SharedLibraryPath string           `json:"sharedLibraryPath" yaml:"shared_library_path"`
	Provider          providers.Config `json:"provider"          yaml:"provider"`
}

// ModelFile locates one model and sizes its session pool.
type ModelFile struct {
	Path     string `json:"path"     yaml:"path"`
	PoolSize int    `json:"poolSize" yaml:"pool_size"`
}

// ModelsConfig locates the four models. Relative paths resolve against Dir.
type ModelsConfig struct {
	Dir    string    `json:"dir"    yaml:"dir"`
	NSFW   ModelFile `json:"nsfw"   yaml:"nsfw"`
	Face   ModelFile `json:"face"   yaml:"face"`
	Pose   ModelFile `json:"pose"   yaml:"pose"`
	Gender ModelFile `json:"gender" yaml:"gender"`
	// FaceBackend is onnx or cascade.
	FaceBackend string `json:"faceBackend" yaml:"face_backend"`
	// CascadePath is the Haar cascade XML used by the cascade backend.
	CascadePath string `json:"cascadePath" yaml:"cascade_path"`
	// PoseOrigin is the vertical origin of the pose output: top_left or bottom_left.
	PoseOrigin string `json:"poseOrigin" yaml:"pose_origin"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			CacheSize:       512,
			MaxUploadBytes:  20 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: logger.DefaultConfig(),
		Fetch: fetch.Config{
			Timeout:   fetch.DefaultTimeout,
			MaxBytes:  fetch.DefaultMaxBytes,
			UserAgent: fetch.DefaultUserAgent,
		},
		Runtime: RuntimeConfig{
			Provider: providers.DefaultConfig(),
		},
		Models: ModelsConfig{
			Dir:         "models",
			NSFW:        ModelFile{Path: "nsfw.onnx", PoolSize: 2},
			Face:        ModelFile{Path: "ultraface-rfb-320.onnx", PoolSize: 2},
			Pose:        ModelFile{Path: "movenet-multipose.onnx", PoolSize: 2},
			Gender:      ModelFile{Path: "gender.onnx", PoolSize: 2},
			FaceBackend: FaceBackendONNX,
			PoseOrigin:  common.OriginTopLeft.String(),
		},
		Pipeline: pipeline.DefaultConfig(),
		Render:   render.DefaultConfig(),
	}
}

// Load builds a Config from the defaults, the YAML file at path and the
// environment. envFile is loaded into the process environment first when it
// exists; variables already set are not overridden.
//
// Arguments:
//   - path: The YAML file; empty skips it.
//   - envFile: A .env file; empty or missing skips it.
//
// Returns:
//   - Config: The validated configuration.
//   - error: A read, parse or validation error.
//
// @example
//
//	cfg, err := config.Load("safegaze.yaml", ".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, errors.Wrapf(err, "load %s", envFile)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse %s", path)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"ADDR":             &cfg.Server.Addr,
		"GIN_MODE":         &cfg.Server.Mode,
		"LOG_LEVEL":        &cfg.Log.Level,
		"LOG_FORMAT":       &cfg.Log.Format,
		"LOG_OUTPUT":       &cfg.Log.Output,
		"LOG_FILE":         &cfg.Log.FilePath,
		"FETCH_USER_AGENT": &cfg.Fetch.UserAgent,
		"ORT_LIBRARY":      &cfg.Runtime.SharedLibraryPath,
		"MODEL_DIR":        &cfg.Models.Dir,
		"NSFW_MODEL":       &cfg.Models.NSFW.Path,
		"FACE_MODEL":       &cfg.Models.Face.Path,
		"POSE_MODEL":       &cfg.Models.Pose.Path,
		"GENDER_MODEL":     &cfg.Models.Gender.Path,
		"FACE_BACKEND":     &cfg.Models.FaceBackend,
		"CASCADE_PATH":     &cfg.Models.CascadePath,
		"POSE_ORIGIN":      &cfg.Models.PoseOrigin,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "BACKEND"); ok {
		backend, err := providers.ParseBackend(v)
		if err != nil {
			return err
		}
		cfg.Runtime.Provider.Backend = backend
	}

	ints := map[string]*int{
		"CACHE_SIZE":         &cfg.Server.CacheSize,
		"FETCH_MAX_BYTES":    &cfg.Fetch.MaxBytes,
		"INTRA_OP_THREADS":   &cfg.Runtime.Provider.Optimization.IntraOpNumThreads,
		"MAX_WORKING_SIZE":   &cfg.Pipeline.MaxWorkingSize,
		"GENDER_CONCURRENCY": &cfg.Pipeline.GenderConcurrency,
	}
	for key, dst := range ints {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, key)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"FETCH_TIMEOUT": &cfg.Fetch.Timeout,
		"MODEL_TIMEOUT": &cfg.Pipeline.ModelTimeout,
	}
	for key, dst := range durations {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrapf(err, "%s%s", EnvPrefix, key)
			}
			*dst = d
		}
	}

	if v, ok := lookup(EnvPrefix + "DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "%sDEBUG", EnvPrefix)
		}
		cfg.Render.Debug = debug
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server: addr is required")
	}
	if c.Server.CacheSize < 0 {
		return errors.Errorf("server: cache size must be >= 0, got %d", c.Server.CacheSize)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.Errorf("server: max upload bytes must be > 0, got %d", c.Server.MaxUploadBytes)
	}
	switch c.Models.FaceBackend {
	case FaceBackendONNX:
	case FaceBackendCascade:
		if c.Models.CascadePath == "" {
			return errors.New("models: cascade_path is required for the cascade face backend")
		}
	default:
		return errors.Errorf("models: face backend %q: want onnx or cascade", c.Models.FaceBackend)
	}
	if _, err := providers.ParseBackend(string(c.Runtime.Provider.Backend)); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	return c.Render.Validate()
}

// ModelPath resolves a model path against Dir.
func (m ModelsConfig) ModelPath(f ModelFile) string {
	if f.Path == "" || filepath.IsAbs(f.Path) || m.Dir == "" {
		return f.Path
	}
	return filepath.Join(m.Dir, f.Path)
}

// Inference returns the engine configuration. Models without a path are
// left out, as is the face model when the cascade backend is selected.
func (c Config) Inference() inference.Config {
	out := inference.Config{
		SharedLibraryPath: c.Runtime.SharedLibraryPath,
		Provider:          c.Runtime.Provider,
	}
	add := func(name model.Name, f ModelFile) {
		if f.Path == "" {
			return
		}
		out.Models = append(out.Models, inference.ModelConfig{
			Name:     name,
			Path:     c.Models.ModelPath(f),
			PoolSize: f.PoolSize,
		})
	}
	add(model.NameNSFW, c.Models.NSFW)
	if c.Models.FaceBackend == FaceBackendONNX {
		add(model.NameFace, c.Models.Face)
	}
	add(model.NamePose, c.Models.Pose)
	add(model.NameGender, c.Models.Gender)
	return out
}
