package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nylour/internal/api"
	"nylour/internal/config"
	"nylour/internal/database"
	"nylour/internal/domain"
	"nylour/internal/events"
	"nylour/internal/export"
	"nylour/internal/geocode"
	"nylour/internal/google"
	"nylour/internal/logging"
	"nylour/internal/metrics"
	"nylour/internal/models"
	"nylour/internal/notify"
	"nylour/internal/repository"
	"nylour/internal/service"
	"nylour/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	if err := loadSalonOverrides(cfg, &logger); err != nil {
		return err
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if !cfg.API.Enabled {
		logger.Warn().Msg("API is disabled in config, but starting API application. Check your config.")
	}

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	locationStore := initLocationStore(cfg, redisClient, &logger)
	geocoder := initGeocoder(cfg, redisClient)
	bus := events.NewEventBus()

	sheetsService := initGoogleSheets(cfg, &logger)
	var syncWorker domain.SyncWorker
	var sheetsWorker *worker.SheetsWorker
	if sheetsService != nil {
		sheetsWorker = worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{},
			log.New(os.Stdout, "sheets-worker ", log.LstdFlags))
		syncWorker = sheetsWorker
	}

	openStatus := service.NewOpenStatusService(db, bus, cfg.OpenStatus.FailOpenEnabled(), &logger)
	estimator := service.NewEstimatorService(db, cfg.Estimator.AvgServiceMinutes, &logger)
	bookings := service.NewBookingService(db, locationStore, bus, syncWorker, cfg.Queue, &logger)
	locations := service.NewLocationService(geocoder, locationStore, cfg.Geocoder.ResultLimit, &logger)
	exporter := export.NewExporter(db, exportDir(cfg), &logger)
	arrivalWatch := service.NewArrivalWatch(db, bookings, 0, &logger)
	arrivalWatch.Register(bus)

	openStatusRefresher := worker.NewRefresher("open-status", cfg.OpenStatusRefresh(), cfg.RefreshDebounce(),
		refreshAllSalons(db, openStatus), &logger)
	estimateRefresher := worker.NewRefresher("queue-estimate", cfg.EstimatorRefresh(), cfg.RefreshDebounce(),
		func(ctx context.Context) error {
			now := time.Now()
			estimator.RefreshCached(ctx, now)
			estimator.EvictIdle(time.Duration(cfg.Estimator.IdleTimeoutMins)*time.Minute, now)
			return nil
		}, &logger)

	bus.Subscribe(events.EventSalonActiveChanged, func(event *events.Event) error {
		openStatusRefresher.Trigger()
		return nil
	})
	bus.Subscribe(events.EventQueueEntryChanged, func(event *events.Event) error {
		estimateRefresher.Trigger()
		return nil
	})

	alertLoop := initNotifications(cfg, db, estimator, bus, &logger)

	httpServer := api.NewHTTPServer(&cfg.API, api.Deps{
		Repo:       db,
		OpenStatus: openStatus,
		Estimator:  estimator,
		Bookings:   bookings,
		Locations:  locations,
		Reporter:   exporter,
		Arrivals:   arrivalWatch,
	}, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, &logger)

	arrivalWatch.Start(ctx)
	go openStatusRefresher.Run(ctx)
	go estimateRefresher.Run(ctx)
	if sheetsWorker != nil {
		go sheetsWorker.Start(ctx)
	}
	if alertLoop != nil {
		alertLoop.Start(ctx)
		defer alertLoop.Stop()
	}

	return serveHTTP(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

// loadSalonOverrides replaces the inline salon list with the contents
// of SALONS_PATH when that file is present. Lets ops roll out salon
// changes without touching the main config.
func loadSalonOverrides(cfg *config.Config, logger *zerolog.Logger) error {
	salonsPath := os.Getenv("SALONS_PATH")
	if salonsPath == "" {
		salonsPath = "configs/salons.yaml"
	}

	data, err := os.ReadFile(salonsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Error().Err(err).Str("salons_path", salonsPath).Msg("read salons")
		return err
	}

	var salonsConfig struct {
		Salons []models.Salon `yaml:"salons"`
	}
	if err := yaml.Unmarshal(data, &salonsConfig); err != nil {
		logger.Error().Err(err).Str("salons_path", salonsPath).Msg("parse salons")
		return err
	}
	if err := config.ValidateSalons(salonsConfig.Salons); err != nil {
		return err
	}

	logger.Info().Int("count", len(salonsConfig.Salons)).Str("salons_path", salonsPath).Msg("salon overrides loaded")
	cfg.Salons = salonsConfig.Salons
	return nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.SeedSalons(context.Background(), cfg.Salons); err != nil {
		logger.Error().Err(err).Msg("seed salons")
		db.Close()
		return nil, err
	}
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initLocationStore(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.LocationStore {
	ttl := time.Duration(cfg.Geocoder.CacheTTLHours) * time.Hour
	memory := repository.NewMemoryLocationStore(ttl)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisLocationStore(redisClient, ttl)
	return repository.NewFailoverLocationStore(primary, memory, logger)
}

func initGeocoder(cfg *config.Config, redisClient *redis.Client) *geocode.Client {
	client := geocode.NewClient(cfg.Geocoder)
	if redisClient != nil {
		client.UseRedisCache(redisClient, time.Duration(cfg.Geocoder.CacheTTLHours)*time.Hour)
	}
	return client
}

func initGoogleSheets(cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if !cfg.Google.Enabled {
		return nil
	}

	sheetsService, err := google.NewSheetsService(cfg.Google.GoogleCredentialsFile, cfg.Google.QueueSpreadSheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

// initNotifications wires the telegram notifier onto the event bus and
// returns the almost-ready sweep loop, or nil when telegram is off.
func initNotifications(
	cfg *config.Config,
	db *database.DB,
	estimator domain.EstimatorService,
	bus *events.EventBus,
	logger *zerolog.Logger,
) *service.AlertLoop {
	if !cfg.Telegram.Enabled {
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return nil
	}
	bot.Debug = cfg.Telegram.Debug

	notifier := notify.NewTelegramNotifier(bot, logger)
	consumer := notify.NewConsumer(db, notifier, estimator, logger)
	consumer.Register(bus)

	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifications enabled")
	return service.NewAlertLoop(time.Minute, consumer.SweepAlmostReady)
}

// refreshAllSalons re-evaluates cached schedules for every salon.
func refreshAllSalons(db *database.DB, openStatus *service.OpenStatusService) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		salons, err := db.ListSalons(ctx)
		if err != nil {
			return err
		}
		for _, salon := range salons {
			if err := openStatus.Refresh(ctx, salon.ID); err != nil {
				return err
			}
		}
		return nil
	}
}

func exportDir(cfg *config.Config) string {
	if cfg.Exports.Path != "" {
		return cfg.Exports.Path
	}
	return "exports"
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: metricsHandler()}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serveHTTP(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.API.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}
