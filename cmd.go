package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"autoria-scraper/config"
	"autoria-scraper/dump"
	"autoria-scraper/fetch"
	"autoria-scraper/scheduler"
	"autoria-scraper/scraper/autoria"
	"autoria-scraper/services"
	"autoria-scraper/storage"
	"autoria-scraper/utils"
)

// NewRootCmd creates the root command. Without a subcommand it runs the daily
// scheduler; --test-now runs one crawl and one dump instead.
func NewRootCmd() *cobra.Command {
	var testNow bool

	cmd := &cobra.Command{
		Use:   "autoria-scraper",
		Short: "Daily auto.ria.com used-car harvester",
		Long: `autoria-scraper walks the auto.ria.com used-car listings, extracts every car
page and stores new cars in PostgreSQL (or SQLite). It runs the crawl and a
database dump once a day at SCRAPE_TIME and DUMP_TIME.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if testNow {
				return a.testRun(cmd.Context())
			}
			return a.schedule(cmd.Context())
		},
	}

	cmd.PersistentFlags().String("config", "", "optional YAML config file (environment variables override it)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	cmd.Flags().BoolVar(&testNow, "test-now", false, "run scraping and dump immediately, then exit")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newDumpCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one full crawl and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return a.crawl(cmd.Context())
		},
	}
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Write a compressed database dump and prune old ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			_, err = a.dumper.Dump(cmd.Context())
			return err
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print a summary of the stored listings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			return a.stats(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the cars table if it does not exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()
			a.logger.Info("Schema is up to date (%s)", a.store.Driver())
			return nil
		},
	}
}

// app holds everything a command needs, built once from the configuration.
type app struct {
	cfg       *config.Config
	logger    *utils.Logger
	logCloser io.Closer
	store     *storage.SQLStore
	dumper    *dump.Dumper
	scraper   *autoria.Scraper
	phones    autoria.PhoneResolver
}

func setup(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	configPath, _ := cmd.Flags().GetString("config")
	logLevel, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, logCloser, err := utils.NewFileLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	logger.Info("=== AutoRia Scraping System starting ===")
	logger.Info("Config — concurrency: %d | timeout: %s | retries: %d x %s | phones: %s",
		cfg.ConcurrentRequests, cfg.RequestTimeout, cfg.RetryAttempts, cfg.RetryDelay, cfg.PhoneStrategy)

	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		_ = logCloser.Close()
		return nil, err
	}

	limiter := utils.NewLimiter(cfg.ConcurrentRequests, cfg.RequestsPerSecond)
	fetcher := fetch.NewFetcher(nil, limiter, fetch.Options{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryDelay:     cfg.RetryDelay,
	}, logger)

	phones, err := autoria.NewPhoneResolver(cfg, fetcher, logger)
	if err != nil {
		_ = store.Close()
		_ = logCloser.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		store:     store,
		dumper:    dump.New(cfg, store, logger),
		scraper:   autoria.New(cfg, fetcher, phones, store, logger),
		phones:    phones,
	}, nil
}

func (a *app) close() {
	if err := a.phones.Close(); err != nil {
		a.logger.Warn("Closing phone resolver: %v", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Closing store: %v", err)
	}
	_ = a.logCloser.Close()
}

func (a *app) crawl(ctx context.Context) error {
	stored, err := a.scraper.RunFullCrawl(ctx)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	a.logger.Info("Crawl finished — %d new cars stored", stored)
	return nil
}

// testRun crawls and dumps once. A crawl that cannot reach the start page
// does not prevent the dump.
func (a *app) testRun(ctx context.Context) error {
	a.logger.Info("Starting test run")
	crawlErr := a.crawl(ctx)
	if crawlErr != nil {
		a.logger.Error("%v", crawlErr)
	}
	_, dumpErr := a.dumper.Dump(ctx)
	a.logger.Info("Test run completed")
	return errors.Join(crawlErr, dumpErr)
}

func (a *app) schedule(ctx context.Context) error {
	s := scheduler.New(a.logger)
	if err := s.Add("scraping", a.cfg.ScrapeTime, a.crawl); err != nil {
		return err
	}
	if err := s.Add("database dump", a.cfg.DumpTime, func(ctx context.Context) error {
		_, err := a.dumper.Dump(ctx)
		return err
	}); err != nil {
		return err
	}
	return s.Run(ctx)
}

func (a *app) stats(ctx context.Context, w io.Writer) error {
	listings, err := a.store.FetchAll(ctx)
	if err != nil {
		return err
	}
	svc := services.NewInsightService(a.logger)
	svc.Print(w, svc.Generate(listings))
	return nil
}
