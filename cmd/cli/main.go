package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/import-wizard/config"
	"github.com/kosarica/import-wizard/internal/auth"
	apiclient "github.com/kosarica/import-wizard/internal/http"
	"github.com/kosarica/import-wizard/internal/http/ratelimit"
	"github.com/kosarica/import-wizard/internal/telemetry"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger

	shutdownTelemetry telemetry.ShutdownFunc
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "import-wizard",
	Short: "Import Wizard CLI - Expiring stock import tool",
	Long: `A CLI tool for importing expiring stock into discounted deals. A stock file
(CSV or XLSX) is parsed by the import service, its columns are mapped onto
product fields, discount rules are applied to items close to expiry, and the
resulting deals are published or saved as a draft.`,
	SilenceUsage:       true,
	PersistentPreRunE:  persistentPreRun,
	PersistentPostRunE: persistentPostRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun runs before each command and initializes dependencies
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()

	if cfg == nil {
		return fmt.Errorf("config required for %s command but not loaded", cmd.Name())
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		Component:      "cli",
		MetricInterval: cfg.Telemetry.MetricInterval,
	})
	if err != nil {
		return fmt.Errorf("telemetry initialization failed: %w", err)
	}
	shutdownTelemetry = shutdown
	return nil
}

func persistentPostRun(cmd *cobra.Command, args []string) error {
	if shutdownTelemetry == nil {
		return nil
	}
	if err := shutdownTelemetry(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
	return nil
}

// initLogger logs to stderr so that json output on stdout stays parseable
func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stderr
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

// newGateway loads persisted credentials for the configured service
func newGateway() (*auth.Gateway, *auth.HTTPRefresher, error) {
	refresher := auth.NewHTTPRefresher(cfg.API.BaseURL, cfg.API.Timeout)
	gateway, err := auth.NewGateway(auth.NewFileStore(cfg.Credentials.Path), refresher, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return gateway, refresher, nil
}

func newAPIClient(tokens apiclient.TokenSource) *apiclient.Client {
	return apiclient.NewClient(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.API.RequestsPerSecond,
			Burst:             cfg.API.Burst,
		},
		Tokens: tokens,
		Logger: logger,
	})
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
