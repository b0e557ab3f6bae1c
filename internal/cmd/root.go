// Package cmd implements the gymgate CLI: verb commands against the
// gym backend plus cache, stats and diagnostics-server management.
package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gymgate/gymgate/internal/apiclient"
	"github.com/gymgate/gymgate/internal/config"
	"github.com/gymgate/gymgate/internal/observability"
	"github.com/gymgate/gymgate/internal/output"
	"github.com/gymgate/gymgate/internal/store"
)

var (
	cfgFile      string
	verbose      bool
	outputFormat string

	appConfig *config.Config
	cliLogger *zap.Logger

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by the main package to set version information.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "gymgate",
	Short: "Resilient access layer for the gym management API",
	Long: `gymgate fronts the gym management backend with caching, client-side
rate limiting, retries and input sanitation.

Use the subcommands to perform specific operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/gymgate/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, markdown")
}

// initConfig loads configuration and builds the CLI logger. config init
// must run without a loaded config, so it is exempted.
func initConfig() {
	logger, err := observability.NewCLILogger("info", verbose)
	if err != nil {
		ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	cliLogger = logger

	cfg, err := config.Load(cfgFile)
	if err != nil {
		appConfig = nil
		return
	}
	appConfig = cfg

	if !verbose {
		cliLogger, err = observability.NewCLILogger(cfg.Logging.Level, false)
		if err != nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
		}
	}
}

// requireConfig returns the loaded configuration or a usable error for
// commands that cannot run without one.
func requireConfig() (*config.Config, error) {
	if appConfig == nil {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		appConfig = cfg
	}
	return appConfig, nil
}

// parseOutputFormat resolves the persistent --output flag.
func parseOutputFormat() (output.Format, error) {
	return output.ParseFormat(outputFormat)
}

// buildClient constructs the API client from config, wiring the libsql
// store when enabled. The returned store is nil when persistence is
// off; the cleanup closes both.
func buildClient(cmd *cobra.Command) (*apiclient.Client, *store.Store, func(), error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	clientCfg := apiclient.Config{
		BaseURL:          cfg.API.BaseURL,
		AuthToken:        cfg.API.AuthToken,
		Timeout:          cfg.ClientTimeout(),
		MaxResponseBytes: cfg.API.MaxResponseBytes,
		MaxRetries:       cfg.Retry.MaxRetries,
		BaseDelay:        cfg.Retry.BaseDelay,
		MaxJitter:        cfg.Retry.MaxJitter,
		CacheTTL:         cfg.Cache.TTL,
		CacheMaxEntries:  cfg.Cache.MaxEntries,
		SweepInterval:    cfg.Cache.SweepInterval,
		RateMaxRequests:  cfg.RateLimit.MaxRequests,
		RateWindow:       cfg.RateLimit.Window,
		Sanitize: apiclient.SanitizeLimits{
			MaxTopLevelKeys: cfg.Sanitize.MaxTopLevelKeys,
			MaxObjectKeys:   cfg.Sanitize.MaxObjectKeys,
			MaxArrayLen:     cfg.Sanitize.MaxArrayLen,
			MaxDepth:        cfg.Sanitize.MaxDepth,
			MaxStringLen:    cfg.Sanitize.MaxStringLen,
		},
		Logger: cliLogger,
	}

	var st *store.Store
	if cfg.Store.Enabled {
		st, err = store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open store: %w", err)
		}
		if err := st.Migrate(cmd.Context()); err != nil {
			_ = st.Close()
			return nil, nil, nil, fmt.Errorf("migrate store: %w", err)
		}
		clientCfg.SecondLevel = st
		clientCfg.Windows = st
	}

	client, err := apiclient.New(clientCfg)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, nil, nil, err
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			cliLogger.Warn("client close failed", zap.Error(err))
		}
		if st != nil {
			if err := st.Close(); err != nil {
				cliLogger.Warn("store close failed", zap.Error(err))
			}
		}
	}
	return client, st, cleanup, nil
}
