// Package config, sync engine'in tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Her alt bölüm ayrı bir struct: REST API, realtime bağlantı, cache ve view bridge.
// Duration değerleri Go duration formatındadır ("5m", "500ms").
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
type Config struct {
	API      APIConfig
	Realtime RealtimeConfig
	Cache    CacheConfig
	Bridge   BridgeConfig

	// AuthToken, başlangıçta otomatik login için opsiyonel bearer token.
	AuthToken string
}

// APIConfig, REST collaborator ayarları.
type APIConfig struct {
	URL              string        // ör: http://localhost:8080/api
	Timeout          time.Duration // tek istek için üst sınır
	HomePageSize     int
	DiscoverPageSize int
	ProfilePageSize  int
}

// RealtimeConfig, duplex bağlantı (WebSocket) ayarları.
type RealtimeConfig struct {
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectBackoff  float64 // 1.0 = sabit aralık
	ReconnectMaxDelay time.Duration
	PingInterval      time.Duration
	LikeDedupeWindow  time.Duration
	JoinDedupeWindow  time.Duration

	// RateLimit, pencere başına tip bazlı giden mesaj sınırı; 0 = sınırsız.
	RateLimit    int
	RateWindow   time.Duration
	RateCooldown time.Duration
}

// CacheConfig, bellek içi cache ömürleri.
type CacheConfig struct {
	FeedTTL    time.Duration
	ProfileTTL time.Duration
}

// BridgeConfig, rendering collaborator'ın konuştuğu local HTTP bridge ayarları.
type BridgeConfig struct {
	Addr           string
	AllowedOrigins []string
}

// Load, environment variable'lardan Config oluşturur.
// Çalışma dizininde .env varsa önce onu yükler; yoksa sessizce devam eder.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFrom, verilen env dosyasını yükler ve Config oluşturur.
// Load'dan farkı: dosya açıkça istendiği için yoksa hata döner.
func LoadFrom(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	var (
		cfg Config
		err error
	)

	cfg.API.URL = strings.TrimRight(getEnv("API_URL", "http://localhost:8080/api"), "/")
	if cfg.API.Timeout, err = envDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.API.HomePageSize, err = envPositiveInt("HOME_PAGE_SIZE", "10"); err != nil {
		return nil, err
	}
	if cfg.API.DiscoverPageSize, err = envPositiveInt("DISCOVER_PAGE_SIZE", "15"); err != nil {
		return nil, err
	}
	if cfg.API.ProfilePageSize, err = envPositiveInt("PROFILE_PAGE_SIZE", "10"); err != nil {
		return nil, err
	}

	cfg.Realtime.URL = getEnv("WS_URL", "ws://localhost:8080/ws")
	if cfg.Realtime.ReconnectAttempts, err = envInt("WS_RECONNECT_ATTEMPTS", "5"); err != nil {
		return nil, err
	}
	if cfg.Realtime.ReconnectDelay, err = envDuration("WS_RECONNECT_DELAY", "1s"); err != nil {
		return nil, err
	}
	if cfg.Realtime.ReconnectBackoff, err = strconv.ParseFloat(getEnv("WS_RECONNECT_BACKOFF", "1.0"), 64); err != nil {
		return nil, fmt.Errorf("invalid WS_RECONNECT_BACKOFF: %w", err)
	}
	if cfg.Realtime.ReconnectBackoff < 1 {
		return nil, fmt.Errorf("invalid WS_RECONNECT_BACKOFF: must be >= 1.0, got %v", cfg.Realtime.ReconnectBackoff)
	}
	if cfg.Realtime.ReconnectMaxDelay, err = envDuration("WS_RECONNECT_MAX_DELAY", "10s"); err != nil {
		return nil, err
	}
	if cfg.Realtime.PingInterval, err = envDuration("WS_PING_INTERVAL", "30s"); err != nil {
		return nil, err
	}
	if cfg.Realtime.LikeDedupeWindow, err = envDuration("LIKE_DEDUPE_WINDOW", "2s"); err != nil {
		return nil, err
	}
	if cfg.Realtime.JoinDedupeWindow, err = envDuration("JOIN_DEDUPE_WINDOW", "500ms"); err != nil {
		return nil, err
	}

	if cfg.Realtime.RateLimit, err = envInt("WS_RATE_LIMIT", "20"); err != nil {
		return nil, err
	}
	if cfg.Realtime.RateWindow, err = envDuration("WS_RATE_WINDOW", "5s"); err != nil {
		return nil, err
	}
	if cfg.Realtime.RateCooldown, err = envDuration("WS_RATE_COOLDOWN", "10s"); err != nil {
		return nil, err
	}

	if cfg.Cache.FeedTTL, err = envDuration("FEED_CACHE_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.Cache.ProfileTTL, err = envDuration("PROFILE_CACHE_TTL", "5m"); err != nil {
		return nil, err
	}

	cfg.Bridge.Addr = getEnv("BRIDGE_ADDR", "127.0.0.1:7420")
	cfg.Bridge.AllowedOrigins = splitList(getEnv("BRIDGE_ALLOWED_ORIGINS", "http://localhost:5173"))

	cfg.AuthToken = getEnv("AUTH_TOKEN", "")

	return &cfg, nil
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func envInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envPositiveInt(key, fallback string) (int, error) {
	n, err := envInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, n)
	}
	return n, nil
}

func envDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", key, d)
	}
	return d, nil
}

// splitList, virgülle ayrılmış listeyi boşlukları kırparak ayırır.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
