// stock-lookup - search listed securities and look up their latest close
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stock-lookup/api"
	"stock-lookup/config"
	"stock-lookup/credentials"
	"stock-lookup/loader"
	"stock-lookup/logging"
	"stock-lookup/lookup"
	"stock-lookup/models"
	"stock-lookup/search"
	"stock-lookup/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stock-lookup",
		Short: "Interactive stock lookup",
		Long: `stock-lookup searches a catalog of NASDAQ, NYSE, AMEX, KOSPI and
KOSDAQ listings and shows the latest close and a short price forecast
for the security you pick.`,
		RunE:          runLookup,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLoader(cfg *config.Config, logger *slog.Logger) *loader.Loader {
	env := credentials.NewEnvProvider("STOCK_LOOKUP_")
	accessKey, _ := env.Lookup("S3_ACCESS_KEY")
	secretKey, _ := env.Lookup("S3_SECRET_KEY")
	return loader.New(
		loader.WithLogger(logger),
		loader.WithS3Config(loader.S3Config{
			Region:         cfg.Catalog.S3.Region,
			Endpoint:       cfg.Catalog.S3.Endpoint,
			AccessKey:      accessKey,
			SecretKey:      secretKey,
			ForcePathStyle: cfg.Catalog.S3.ForcePathStyle,
		}),
	)
}

func lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup",
		Short: "Start the interactive lookup (default)",
		RunE:  runLookup,
	}
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the TUI; logs go to a file or nowhere.
	logger, closer, err := logging.OpenFile(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	ctx, cancel := signalContext()
	defer cancel()

	var program *tea.Program
	ctrl := newLookupController(ctx, cfg, logger, func(err error) {
		program.Send(tui.BackendErrMsg{Err: err})
	})
	program = tui.NewProgram(ctx, ctrl)

	logger.Info("lookup starting", "base_url", cfg.ResolvedBaseURL(), "sources", len(cfg.Catalog.Sources))
	return tui.Run(ctx, program)
}

// newLookupController wires the interactive session. The controller loads
// the catalog once; with no api.base_url the dev backend is started over
// that same catalog and its failures go to notify.
func newLookupController(ctx context.Context, cfg *config.Config, logger *slog.Logger, notify func(error)) *lookup.Controller {
	client := api.NewClient(cfg.ResolvedBaseURL(),
		api.WithTimeout(cfg.API.Timeout),
		api.WithCredentials(credentials.NewEnvProvider(""), cfg.API.KeyEnv),
		api.WithClientLogger(logger),
	)

	ld := newLoader(cfg, logger)
	embedded := cfg.API.BaseURL == ""
	engineKind := cfg.Search.Engine
	return lookup.NewController(lookup.Config{
		LoadCatalog: func(ctx context.Context) (models.Catalog, error) {
			catalog, err := ld.Load(ctx, cfg.Catalog.Sources)
			if err != nil {
				return nil, err
			}
			if embedded {
				startBackend(ctx, cfg, catalog, logger, notify)
			}
			return catalog, nil
		},
		NewEngine: func(c models.Catalog) (search.SearchEngine, error) {
			return search.NewEngine(engineKind, c)
		},
		Fetcher: client,
		Context: ctx,
		Logger:  logger,
	})
}

// startBackend runs the dev backend until ctx is done. It does not block.
func startBackend(ctx context.Context, cfg *config.Config, catalog models.Catalog, logger *slog.Logger, notify func(error)) {
	srv, cleanup, err := newBackend(cfg, catalog, logger)
	if err != nil {
		logger.Error("embedded server not started", "error", err)
		notify(err)
		return
	}
	go func() {
		defer cleanup()
		if err := srv.Run(ctx); err != nil {
			logger.Error("embedded server stopped", "error", err)
			notify(err)
		}
	}()
}

func searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Print catalog matches for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level, os.Stderr)

			ctx, cancel := signalContext()
			defer cancel()

			catalog, err := newLoader(cfg, logger).Load(ctx, cfg.Catalog.Sources)
			if err != nil {
				return err
			}
			engine, err := search.NewEngine(cfg.Search.Engine, catalog)
			if err != nil {
				return err
			}
			if c, ok := engine.(io.Closer); ok {
				defer c.Close()
			}

			results := engine.Search(strings.Join(args, " "))
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}
			out := cmd.OutOrStdout()
			for _, s := range results {
				fmt.Fprintf(out, "%-8s %-7s %s\n", s.Symbol, s.Market, s.Name)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "no matches")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n results")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the price/analysis backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging.Level, os.Stderr)
			slog.SetDefault(logger)

			ctx, cancel := signalContext()
			defer cancel()

			srv, cleanup, err := newServer(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return srv.Run(ctx)
		},
	}
}

// newServer loads the catalog and assembles the backend for cfg.
func newServer(cfg *config.Config, logger *slog.Logger) (*api.Server, func(), error) {
	loadCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	catalog, err := newLoader(cfg, logger).Load(loadCtx, cfg.Catalog.Sources)
	if err != nil {
		return nil, nil, err
	}
	return newBackend(cfg, catalog, logger)
}

// newBackend assembles the backend over an already loaded catalog.
func newBackend(cfg *config.Config, catalog models.Catalog, logger *slog.Logger) (*api.Server, func(), error) {
	engine, err := search.NewEngine(cfg.Search.Engine, catalog)
	if err != nil {
		return nil, nil, err
	}

	var quotes api.QuoteProvider
	switch strings.ToLower(cfg.Server.Provider) {
	case "mock":
		quotes = api.NewMockProvider()
	default:
		quotes = api.NewYahooProvider()
	}
	analyst := api.NewTrendAnalyst(quotes, 0, cfg.Server.ForecastDays)

	h, err := api.NewHandler(engine, quotes, analyst, cfg.Server.CacheTTL, logger)
	if err != nil {
		return nil, nil, err
	}

	apiKey, _ := credentials.NewEnvProvider("").Lookup(cfg.API.KeyEnv)
	srv := api.NewServer(h, api.ServerOptions{
		Addr:    cfg.Server.Addr,
		APIKey:  apiKey,
		DataDir: cfg.Server.DataDir,
	})
	logger.Info("backend ready",
		"securities", len(catalog),
		"engine", cfg.Search.Engine,
		"provider", cfg.Server.Provider,
		"auth", apiKey != "")

	cleanup := func() {
		h.Close()
		if c, ok := engine.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("close search engine", "error", err)
			}
		}
	}
	return srv, cleanup, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stock-lookup version %s\n", version)
		},
	}
}
