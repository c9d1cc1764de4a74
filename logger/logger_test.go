package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"console", func(c *Config) { c.Format = "console" }, false},
		{"bad level", func(c *Config) { c.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Format = "xml" }, true},
		{"bad output", func(c *Config) { c.Output = "syslog" }, true},
		{"file without path", func(c *Config) { c.Output = OutputFile; c.FilePath = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "safegaze.log")
	cfg := DefaultConfig()
	cfg.Output = OutputFile
	cfg.FilePath = path

	require.NoError(t, Init(cfg))
	Log().Info("hello", zap.String("component", "test"))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"timestamp"`)
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestSetReplacesGlobals(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))

	Log().Info("direct")
	S().Infow("sugared", "k", 1)
	zap.L().Info("global")
	Named("Render").Info("named")

	require.Equal(t, 4, logs.Len())
	assert.Equal(t, "render", logs.All()[3].LoggerName)
}
