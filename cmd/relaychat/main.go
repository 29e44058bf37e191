package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"relaychat/internal/audit"
	"relaychat/pkg/auth"
	"relaychat/pkg/banner"
	"relaychat/pkg/config"
	"relaychat/pkg/logger"
	"relaychat/pkg/relay"
	"relaychat/pkg/security"
	"relaychat/pkg/shutdown"
	"relaychat/pkg/store"
	"relaychat/pkg/telemetry"
	"relaychat/pkg/utils"
	"relaychat/pkg/validation"
)

// build metadata - set via ldflags during build/release
var (
	version = "dev"
	commit  = "none"
)

func main() {
	_ = godotenv.Load(".env")
	flags := config.ParseFlags()

	cfg, source, err := config.Load(flags)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithLevel(cfg.Logging.Level)

	// Validation rules: config overrides the defaults when present.
	if len(cfg.Validation.Required) > 0 || len(cfg.Validation.MaxLen) > 0 {
		vr := validation.Rules{MaxLen: map[string]int{}}
		vr.Required = append(vr.Required, cfg.Validation.Required...)
		for _, ml := range cfg.Validation.MaxLen {
			vr.MaxLen[ml.Path] = ml.Max
		}
		validation.SetRules(vr)
	}

	if err := store.Open(cfg.Server.DBPath); err != nil {
		shutdown.Abort("failed to open pebble", err, cfg.Server.DBPath)
	}

	telemetry.Register()

	verStr := version
	if commit != "none" {
		verStr = verStr + " (" + commit + ")"
	}
	banner.Print(cfg, source, verStr)

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	opts := relay.DefaultOptions()
	if cfg.Relay.QueueCapacity > 0 {
		opts.QueueCapacity = cfg.Relay.QueueCapacity
	}
	if cfg.Relay.SendBuffer > 0 {
		opts.SendBuffer = cfg.Relay.SendBuffer
	}
	if cfg.Relay.MaxMessageSize > 0 {
		opts.MaxMessageSize = cfg.Relay.MaxMessageSize
	}
	opts.PingInterval = config.Duration(cfg.Relay.PingInterval, opts.PingInterval)
	opts.WriteTimeout = config.Duration(cfg.Relay.WriteTimeout, opts.WriteTimeout)
	opts.ReadTimeout = config.Duration(cfg.Relay.ReadTimeout, opts.ReadTimeout)
	if cfg.Relay.MessageRPS > 0 {
		opts.MessageRPS = cfg.Relay.MessageRPS
	}
	if cfg.Relay.MessageBurst > 0 {
		opts.MessageBurst = cfg.Relay.MessageBurst
	}

	hub := relay.NewHub(opts)
	go hub.Run()

	auditCancel, err := audit.Start(ctx, cfg)
	if err != nil {
		shutdown.Abort("failed to start audit scheduler", err, cfg.Server.DBPath)
	}

	r := mux.NewRouter()
	auth.Register(r)
	r.HandleFunc("/ws", relay.ServeWS(hub, func(origin string) bool {
		return security.OriginAllowed(origin, cfg.Security.CORS.AllowedOrigins)
	}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.PathPrefix("/docs/").Handler(httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	r.Handle("/openapi.yaml", http.FileServer(http.Dir("./docs")))
	r.Handle("/metrics", promhttp.Handler())

	secCfg := security.SecConfig{
		AllowedOrigins: cfg.Security.CORS.AllowedOrigins,
		RPS:            cfg.Security.RateLimit.RPS,
		Burst:          cfg.Security.RateLimit.Burst,
		IPWhitelist:    cfg.Security.IPWhitelist,
	}
	wrapped := security.Middleware(secCfg)(r)

	srv := &http.Server{Addr: cfg.Addr(), Handler: wrapped}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", "addr", cfg.Addr())
		cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
		if cert != "" && key != "" {
			errCh <- srv.ListenAndServeTLS(cert, key)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdown.Abort("http server failed", err, cfg.Server.DBPath)
		}
	}

	// Shutdown order: stop accepting HTTP, stop the audit runner, drain
	// the hub queue, then close the store.
	logger.Info("server_shutting_down")
	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("http_shutdown_error", "error", err)
	}
	auditCancel()
	hub.Shutdown(10 * time.Second)
	if err := store.Close(); err != nil {
		logger.Warn("store_close_error", "error", err)
	}
	logger.Info("server_stopped")
	logger.Sync()
}
