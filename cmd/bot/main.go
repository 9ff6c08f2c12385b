package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/config"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/discord"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/metrics"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/ranks"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/storage"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/subject"
	"github.com/tompeelrick-wq/Discord-bot-estudo/internal/tracker"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	var rec metrics.Recorder = metrics.Noop{}
	if cfg.Metrics.Enabled {
		provider := metrics.NewProvider()
		rec = provider
		go serveMetrics(cfg.Metrics.Addr, provider, logger)
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	defer store.Close()

	catalog := subject.NewCatalog(cfg.Subjects)

	ladder, err := ranks.NewLadder(cfg.Tiers)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid tier ladder")
	}

	engine := tracker.New(store, catalog, rec, logger)
	engine.Restore()

	bot, err := discord.New(cfg, catalog, engine, ladder, rec, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create Discord bot")
	}

	if err := bot.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start bot")
	}
	defer bot.Stop()

	logger.Info().Msg("bot is running")

	// Wait for interrupt signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	logger.Info().Msg("shutting down")
}

// newStore picks the totals backend: Postgres when a DSN is configured, the
// local JSON file otherwise.
func newStore(cfg *config.Config, logger zerolog.Logger) (storage.Store, error) {
	if cfg.DatabaseDSN != "" {
		return storage.NewPostgresStore(cfg.DatabaseDSN, logger)
	}
	return storage.NewFileStore(cfg.DataFile, logger), nil
}

func serveMetrics(addr string, provider *metrics.Provider, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := server.ListenAndServe(); err != nil {
		logger.Error().Err(err).Msg("metrics listener stopped")
	}
}
