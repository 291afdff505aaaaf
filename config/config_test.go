package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.API.URL, "http://localhost:8080/api")
	assert.Equal(t, cfg.API.HomePageSize, 10)
	assert.Equal(t, cfg.API.DiscoverPageSize, 15)
	assert.Equal(t, cfg.Realtime.ReconnectAttempts, 5)
	assert.Equal(t, cfg.Realtime.ReconnectDelay, time.Second)
	assert.Equal(t, cfg.Realtime.ReconnectBackoff, 1.0)
	assert.Equal(t, cfg.Realtime.JoinDedupeWindow, 500*time.Millisecond)
	assert.Equal(t, cfg.Realtime.RateLimit, 20)
	assert.Equal(t, cfg.Realtime.RateCooldown, 10*time.Second)
	assert.Equal(t, cfg.Cache.FeedTTL, 5*time.Minute)
	assert.Equal(t, cfg.Bridge.AllowedOrigins, []string{"http://localhost:5173"})
	assert.Equal(t, cfg.AuthToken, "")
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_URL", "https://memes.example/api/")
	t.Setenv("FEED_CACHE_TTL", "90s")
	t.Setenv("WS_RECONNECT_BACKOFF", "2")
	t.Setenv("BRIDGE_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.API.URL, "https://memes.example/api")
	assert.Equal(t, cfg.Cache.FeedTTL, 90*time.Second)
	assert.Equal(t, cfg.Realtime.ReconnectBackoff, 2.0)
	assert.Equal(t, cfg.Bridge.AllowedOrigins, []string{"http://a.test", "http://b.test"})
}

func TestLoadInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := map[string]string{
		"HTTP_TIMEOUT":          "soon",
		"HOME_PAGE_SIZE":        "0",
		"WS_RECONNECT_ATTEMPTS": "five",
		"WS_RECONNECT_BACKOFF":  "0.5",
		"LIKE_DEDUPE_WINDOW":    "-1s",
		"WS_RATE_LIMIT":         "many",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.NotEqual(t, err, nil)
			assert.Equal(t, strings.Contains(err.Error(), "invalid "+key), true)
		})
	}
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "dev.env")
	if err := os.WriteFile(path, []byte("PROFILE_PAGE_SIZE=25\nBRIDGE_ADDR=127.0.0.1:9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv mevcut değişkenleri ezmez; test sonrası temizlensin diye önce kaydediyoruz.
	t.Setenv("PROFILE_PAGE_SIZE", "")
	os.Unsetenv("PROFILE_PAGE_SIZE")
	t.Setenv("BRIDGE_ADDR", "")
	os.Unsetenv("BRIDGE_ADDR")

	cfg, err := LoadFrom(path)
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.API.ProfilePageSize, 25)
	assert.Equal(t, cfg.Bridge.Addr, "127.0.0.1:9999")

	_, err = LoadFrom(filepath.Join(dir, "missing.env"))
	assert.NotEqual(t, err, nil)
}
