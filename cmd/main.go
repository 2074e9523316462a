package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/blocklist-crawler/crawler/internal/artifact"
	"github.com/blocklist-crawler/crawler/internal/config"
	"github.com/blocklist-crawler/crawler/internal/crawler"
	"github.com/blocklist-crawler/crawler/internal/domain"
	"github.com/blocklist-crawler/crawler/internal/fetcher"
	"github.com/blocklist-crawler/crawler/internal/handler"
	"github.com/blocklist-crawler/crawler/internal/locator"
	"github.com/blocklist-crawler/crawler/internal/notify"
	"github.com/blocklist-crawler/crawler/internal/publish"
	"github.com/blocklist-crawler/crawler/internal/scheduler"
	"github.com/blocklist-crawler/crawler/internal/state"
	"github.com/blocklist-crawler/crawler/internal/table"
	"github.com/blocklist-crawler/crawler/pkg/logger"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	logger.Init(logger.IsDev(), cfg.LogDir, cfg.LogLevel)
	defer logger.Close()
	log := logger.Log

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	f := fetcher.New(
		fetcher.WithTimeout(cfg.HTTPTimeout),
		fetcher.WithMaxBytes(cfg.FetchMaxBytes),
		fetcher.WithRetries(cfg.FetchRetries, time.Second),
	)
	store := state.NewStore()

	loc := locator.New(f, locator.Templates{
		CZ:          cfg.CZSource,
		SK:          cfg.SKSource,
		BG:          cfg.BGSource,
		BGReference: cfg.BGReference,
	}, store,
		locator.WithLocation(cfg.Timezone),
		locator.WithProbeRate(cfg.ProbeRate),
	)

	var publishers []publish.Publisher
	creds := publish.Credentials{
		Host:     cfg.FTPHost,
		Username: cfg.FTPUsername,
		Password: cfg.FTPPassword,
		Path:     cfg.FTPPath,
		Timeout:  cfg.HTTPTimeout,
	}
	switch {
	case cfg.FTPHost == "":
		log.Warn().Msg("FTP_HOST not set, upload disabled")
	case cfg.FTPProtocol == "sftp":
		publishers = append(publishers, publish.NewSFTP(creds, cfg.KnownHosts))
	default:
		publishers = append(publishers, publish.NewFTPS(creds))
	}

	if cfg.NatsURL != "" {
		events, err := publish.NewNATS(cfg.NatsURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer events.Close()
		publishers = append(publishers, events)
	}

	c := crawler.NewCrawler(crawler.Deps{
		Locator:    loc,
		Fetcher:    f,
		State:      store,
		Extractor:  table.NewPDFExtractor(),
		Normalizer: domain.NewNormalizer(cfg.StrictHostnames),
		Writer:     artifact.NewWriter(cfg.ExportDir),
		Publishers: publishers,
		Reporter:   notify.NewHTTPReporter(cfg.ErrorAPI, cfg.HTTPTimeout),
		Dedupe:     cfg.DedupeDomains,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched, err := scheduler.New(c, cfg.CheckPeriod, cfg.RunOnStart, cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scheduler")
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	var app *fiber.App
	if cfg.HTTPPort != "" {
		app = fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				log.Error().Err(err).Str("path", c.Path()).Msg("request error")
				return c.Status(500).JSON(fiber.Map{"error": err.Error()})
			},
		})
		handler.NewStatusHandler(store, sched).Register(app)

		go func() {
			if err := app.Listen(":" + cfg.HTTPPort); err != nil {
				log.Error().Err(err).Msg("server error")
			}
		}()
	}

	log.Info().
		Dur("check_period", cfg.CheckPeriod).
		Str("export_dir", cfg.ExportDir).
		Str("port", cfg.HTTPPort).
		Msg("crawler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	cancel()
	if app != nil {
		app.Shutdown()
	}
}
