// Package main, memesync sync engine'in giriş noktasıdır.
//
// Bu dosyanın görevi, Dependency Injection "wire-up":
//   1. CLI opsiyonlarını ve log flag'lerini oku
//   2. Config'i yükle
//   3. Session context'i oluştur
//   4. Dispatcher ve Connection Manager'ı kur
//   5. Repository'leri oluştur (REST client ile)
//   6. Service'leri (store'ları) oluştur
//   7. Session callback'lerini bağla
//   8. Handler'ları ve route'ları kur, CORS yapılandır
//   9. Opsiyonel başlangıç login'i
//  10. Bridge server'ı başlat
//  11. Graceful shutdown
//
// Global değişken YOK. Her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/rs/cors"

	"github.com/akinalp/memesync/config"
	"github.com/akinalp/memesync/middleware"
	"github.com/akinalp/memesync/session"
	"github.com/akinalp/memesync/ws"
)

const Version = "0.1.0"

const usage = `memesync: real-time feed sync engine with a local view bridge.

Usage:
    memesync [--env=<file>] [--bridge=<addr>] [--token=<jwt>] [--v=<level>] [--logtostderr]
    memesync -h | --help
    memesync --version

Options:
    -h --help          Show this screen.
    --version          Show version.
    --env=<file>       Load environment from this file instead of ./.env.
    --bridge=<addr>    Bridge listen address (overrides BRIDGE_ADDR).
    --token=<jwt>      Log in at start-up (overrides AUTH_TOKEN).
    --v=<level>        glog verbosity [default: 0].
    --logtostderr      Log to stderr instead of files.`

func main() {
	// ─── 1. CLI ───
	opts, err := docopt.ParseArgs(usage, os.Args[1:], Version)
	if err != nil {
		panic(err)
	}
	if level, _ := opts.String("--v"); level != "" {
		_ = flag.Set("v", level)
	}
	if toStderr, _ := opts.Bool("--logtostderr"); toStderr {
		_ = flag.Set("logtostderr", "true")
	}
	_ = flag.CommandLine.Parse(nil)
	defer glog.Flush()

	glog.Infof("[main] memesync %s starting", Version)

	// ─── 2. Config ───
	var cfg *config.Config
	if envFile, _ := opts.String("--env"); envFile != "" {
		cfg, err = config.LoadFrom(envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		glog.Exitf("[main] failed to load config: %v", err)
	}
	if addr, _ := opts.String("--bridge"); addr != "" {
		cfg.Bridge.Addr = addr
	}
	if token, _ := opts.String("--token"); token != "" {
		cfg.AuthToken = token
	}
	glog.Infof("[main] config loaded (api=%s ws=%s bridge=%s)", cfg.API.URL, cfg.Realtime.URL, cfg.Bridge.Addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── 3. Session ───
	sess := session.New()

	// ─── 4. Dispatcher + Connection Manager ───
	//
	// Dispatcher store'lardan önce oluşur: store'lar constructor'da handler kaydeder.
	// Manager bağlantı açmaz; ilk Connect login callback'inde yapılır.
	dispatcher := ws.NewDispatcher()
	manager := ws.NewManager(ws.Options{
		URL:                  cfg.Realtime.URL,
		ReconnectAttempts:    cfg.Realtime.ReconnectAttempts,
		ReconnectDelay:       cfg.Realtime.ReconnectDelay,
		ReconnectBackoff:     cfg.Realtime.ReconnectBackoff,
		ReconnectMaxDelay:    cfg.Realtime.ReconnectMaxDelay,
		PingInterval:         cfg.Realtime.PingInterval,
		LikeDedupeWindow:     cfg.Realtime.LikeDedupeWindow,
		JoinDedupeWindow:     cfg.Realtime.JoinDedupeWindow,
		MaxMessagesPerWindow: cfg.Realtime.RateLimit,
		RateWindow:           cfg.Realtime.RateWindow,
		RateCooldown:         cfg.Realtime.RateCooldown,
	}, sess, dispatcher)

	unwatch := manager.OnStateChange(func(change ws.StateChange) {
		if change.Degraded {
			glog.Warningf("[main] realtime degraded after %d attempts; live updates paused", change.Attempt)
		}
	})
	defer unwatch()

	// ─── 5. Repository Layer ───
	repos := initRepositories(cfg.API, sess)

	// ─── 6. Service Layer ───
	svcs := initServices(cfg, repos, sess, manager, dispatcher)
	defer svcs.Close()

	// ─── 7. Session callbacks ───
	unsubscribe := registerSessionCallbacks(ctx, sess, manager, svcs)
	defer unsubscribe()

	// ─── 8. Handlers + Router + CORS ───
	h := initHandlers(svcs, sess, manager)

	mux := http.NewServeMux()
	initRoutes(mux, h, sess)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Bridge.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})
	handler := middleware.RequestID(corsHandler.Handler(mux))

	// ─── 9. Start-up login ───
	if cfg.AuthToken != "" {
		if _, err := sess.Login(cfg.AuthToken); err != nil {
			glog.Warningf("[main] start-up login failed: %v", err)
		}
	}

	// ─── 10. Bridge Server ───
	srv := &http.Server{
		Addr:         cfg.Bridge.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.API.Timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		glog.Infof("[main] bridge listening on %s", cfg.Bridge.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Exitf("[main] bridge error: %v", err)
		}
	}()

	// ─── 11. Graceful Shutdown ───
	<-done
	glog.Infof("[main] shutting down...")

	// Önce bridge'i kapat: yeni aksiyon gelmez. Sonra socket'i kapat.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("[main] forced shutdown: %v", err)
	}
	cancel()
	manager.Close()

	glog.Infof("[main] stopped gracefully")
}
