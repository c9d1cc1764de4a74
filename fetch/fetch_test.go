package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		case "/big.png":
			_, _ = w.Write(bytes.Repeat([]byte{1}, 64))
		case "/slow.png":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(Config{Timeout: 50 * time.Millisecond, MaxBytes: 32, UserAgent: "test-agent"}, nil)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"ok", "/ok.png", "png-bytes", nil},
		{"not found", "/missing.png", "", ErrStatus},
		{"too large", "/big.png", "", ErrTooLarge},
		{"timeout", "/slow.png", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := f.Fetch(context.Background(), srv.URL+tt.path)
			if tt.want != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, string(data))
				assert.Equal(t, "test-agent", agent)
				return
			}
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}, nil).Fetch(ctx, srv.URL)
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultMaxBytes, cfg.MaxBytes)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
}
