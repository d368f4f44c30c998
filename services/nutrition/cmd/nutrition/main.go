package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gorm.io/driver/sqlite"

	"nutrilog/internal/ratelimit"
	"nutrilog/internal/usertoken"
	"nutrilog/internal/util"
	"nutrilog/pkg/ai"
	"nutrilog/pkg/extract"
	"nutrilog/pkg/foodfacts"
	"nutrilog/pkg/metrics"
	"nutrilog/pkg/queue"
	"nutrilog/pkg/storage"
	"nutrilog/pkg/store"
	"nutrilog/services/nutrition/internal/app"
	"nutrilog/services/nutrition/internal/config"
	"nutrilog/services/nutrition/internal/server"
)

const alertConsumers = 2

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		util.Fatal("failed to load config", "err", err)
	}
	util.InitLogger(cfg.LogLevel, "nutrition")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		util.Fatal("failed to parse jwt leeway", "err", err)
	}
	verifier, err := usertoken.NewVerifier(ctx, usertoken.Config{
		JWKSURL:    cfg.AuthJWKSURL,
		HMACSecret: cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Leeway:     jwtLeeway,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	})
	if err != nil {
		util.Fatal("failed to init token verifier", "err", err)
	}

	dataStore, err := openStore(cfg.DatabaseURL)
	if err != nil {
		util.Fatal("failed to open store", "err", err)
	}
	defer dataStore.Close()

	m, err := metrics.New()
	if err != nil {
		util.Fatal("failed to init metrics", "err", err)
	}

	extractor, err := newExtractor(cfg)
	if err != nil {
		util.Fatal("failed to init extractor", "err", err)
	}

	photos, err := newPhotoStore(ctx, cfg)
	if err != nil {
		util.Fatal("failed to init photo storage", "err", err)
	}

	publisher, consumer, closeBroker, err := newAlertBroker(cfg)
	if err != nil {
		util.Fatal("failed to init alert broker", "err", err)
	}
	defer closeBroker()
	if consumer != nil {
		consumer.Start(ctx, alertConsumers, app.LogDeliveredAlert)
	}

	core, err := app.New(app.Config{
		Store:     dataStore,
		Extractor: extractor,
		Photos:    photos,
		Alerts:    publisher,
		Metrics:   m,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		util.Fatal("failed to parse trusted proxies", "err", err)
	}
	srvCfg := server.Config{
		App:            core,
		Verifier:       verifier,
		Metrics:        m,
		TrustedProxies: trusted,
		MaxUploadBytes: cfg.MaxUploadBytes,
		InternalToken:  cfg.InternalToken,
	}
	if cfg.ExtractRateLimitPerMinute > 0 {
		limiter, err := newExtractLimiter(cfg)
		if err != nil {
			util.Fatal("failed to init rate limiter", "err", err)
		}
		srvCfg.ExtractLimiter = limiter
	}
	httpServer, err := server.New(srvCfg)
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
	}()

	slog.Info("nutrition server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
	}
}

// openStore accepts a postgres DSN or sqlite://<path> for local runs.
func openStore(dsn string) (*store.GormStore, error) {
	if path, ok := strings.CutPrefix(dsn, "sqlite://"); ok {
		return store.NewGormStore("", store.WithDialector(sqlite.Open(path)))
	}
	return store.NewGormStore(dsn)
}

func newExtractor(cfg config.FileConfig) (*extract.Extractor, error) {
	exCfg := extract.Config{
		Timeout:          cfg.RecognitionTimeout(),
		FailureThreshold: cfg.BreakerFailureThreshold,
		Cooldown:         cfg.BreakerCooldown(),
	}

	textGen, err := ai.NewGenerator(ai.ProviderConfig{
		Provider: cfg.GenerationProvider,
		BaseURL:  cfg.GenerationBaseURL,
		APIKey:   cfg.GenerationAPIKey,
		Model:    cfg.GenerationModel,
	})
	if err != nil {
		return nil, fmt.Errorf("text generator: %w", err)
	}
	if textGen != nil {
		exCfg.Text = ai.NewTextInference(textGen)
	} else {
		slog.Warn("no generation provider configured; text recognition uses local matching only")
	}

	visionGen, err := ai.NewGenerator(ai.ProviderConfig{
		Provider: cfg.VisionProvider,
		BaseURL:  cfg.VisionBaseURL,
		APIKey:   cfg.VisionAPIKey,
		Model:    cfg.VisionModel,
	})
	if err != nil {
		return nil, fmt.Errorf("vision generator: %w", err)
	}
	if visionGen != nil {
		exCfg.Vision = ai.NewVisionInference(visionGen)
	}

	if strings.TrimSpace(cfg.TranscriptionBaseURL) != "" {
		exCfg.Speech = ai.NewTranscription(ai.NewOpenAICompatTranscriber(cfg.TranscriptionBaseURL, cfg.TranscriptionAPIKey, cfg.TranscriptionModel))
	}

	var cache foodfacts.Cache = foodfacts.NewMemoryCache(cfg.BarcodeCacheTTL())
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		cache = foodfacts.Tiered{
			Near: cache,
			Far:  foodfacts.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.BarcodeCacheTTL()),
		}
	}
	exCfg.Barcodes = foodfacts.NewClient(cfg.FoodFactsBaseURL, cache)

	return extract.New(exCfg), nil
}

// newPhotoStore returns nil when MinIO is not configured; photos are then
// not kept.
func newPhotoStore(ctx context.Context, cfg config.FileConfig) (storage.ObjectStore, error) {
	if strings.TrimSpace(cfg.MinioEndpoint) == "" {
		slog.Info("minio not configured; meal photos are not stored")
		return nil, nil
	}
	photos, err := storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return photos, nil
}

func newAlertBroker(cfg config.FileConfig) (queue.AlertPublisher, *queue.RedisAlertQueue, func(), error) {
	switch cfg.AlertBroker {
	case config.BrokerRedis:
		q, err := queue.NewRedisAlertQueue(queue.RedisQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.AlertStream,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return q, q, func() { _ = q.Close() }, nil
	case config.BrokerRabbitMQ:
		p, err := queue.NewRabbitPublisher(cfg.RabbitURL, cfg.AlertQueue)
		if err != nil {
			return nil, nil, nil, err
		}
		return p, nil, func() { _ = p.Close() }, nil
	default:
		return queue.Noop{}, nil, func() {}, nil
	}
}

func newExtractLimiter(cfg config.FileConfig) (ratelimit.Limiter, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		limiter, err := ratelimit.NewMemoryLimiter(cfg.ExtractRateLimitPerMinute, time.Minute)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	}
	limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "nutrilog:ratelimit:extract", cfg.ExtractRateLimitPerMinute, time.Minute)
	if err != nil {
		return nil, err
	}
	return limiter.FailOpen(), nil
}
