package main

import (
	"time"

	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type cliOptions struct {
	configPath   string
	gameListPath string
	logLevel     string
	jsonOutput   bool
}

func newRootCommand() *cobra.Command {
	var opts cliOptions

	rootCmd := &cobra.Command{
		Use:           "rgs",
		Short:         "Query game master servers and track their servers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to rgs.yaml (default: user config dir)")
	rootCmd.PersistentFlags().StringVarP(&opts.gameListPath, "games", "g", "", "Path to the game list, overrides game_list_path")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log_level")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output JSON instead of tables")

	rootCmd.AddCommand(
		newGamesCommand(&opts),
		newQueryCommand(&opts),
		newWatchCommand(&opts),
	)

	return rootCmd
}

func loadSettings(opts *cliOptions) (*config.Settings, error) {
	settings := config.NewSettings()

	if opts.configPath != "" {
		if errRead := settings.ReadFilePath(opts.configPath); errRead != nil {
			return nil, errors.Wrapf(errRead, "Failed to read %s", opts.configPath)
		}
	} else if errRead := settings.ReadDefaultOrCreate(); errRead != nil {
		return nil, errors.Wrap(errRead, "Failed to read settings")
	}

	if opts.gameListPath != "" {
		settings.GameListPath = opts.gameListPath
	}

	if opts.logLevel != "" {
		settings.LogLevel = opts.logLevel
	}

	if errValidate := settings.Validate(); errValidate != nil {
		return nil, errValidate
	}

	return &settings, nil
}

// withApplication builds the application for the duration of a single command.
func withApplication(opts *cliOptions, runFn func(cmd *cobra.Command, app *application, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		settings, errSettings := loadSettings(opts)
		if errSettings != nil {
			return errSettings
		}

		logger := MustCreateLogger(settings)
		defer func() {
			_ = logger.Sync()
		}()

		app, errApp := newApplication(settings, logger)
		if errApp != nil {
			return errApp
		}

		defer app.shutdown()

		logger.Debug("Starting rgs",
			zap.String("version", version),
			zap.String("commit", commit),
			zap.String("date", date),
			zap.String("via", builtBy),
			zap.String("command", cmd.Name()))

		return runFn(cmd, app, args)
	}
}

func newGamesCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List the games of the game list",
		Args:  cobra.NoArgs,
		RunE: withApplication(opts, func(cmd *cobra.Command, app *application, _ []string) error {
			return printGames(cmd.OutOrStdout(), app, opts.jsonOutput)
		}),
	}
}

func newQueryCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query [game...]",
		Short: "Refresh the given games, or all of them, and print their servers",
		RunE: withApplication(opts, func(cmd *cobra.Command, app *application, args []string) error {
			gameIDs := app.resolveGames(args)
			errRefresh := app.refresh(cmd.Context(), gameIDs)

			errPrint := printServers(cmd.OutOrStdout(), app, gameIDs, opts.jsonOutput)

			return multierr.Combine(errRefresh, errPrint)
		}),
	}
}

func newWatchCommand(opts *cliOptions) *cobra.Command {
	var (
		interval time.Duration
		rounds   int
	)

	watchCmd := &cobra.Command{
		Use:   "watch [game...]",
		Short: "Refresh games periodically and print a summary after every round",
		RunE: withApplication(opts, func(cmd *cobra.Command, app *application, args []string) error {
			if interval <= 0 {
				configured, errInterval := app.settings.RefreshDuration()
				if errInterval != nil {
					return errInterval
				}

				interval = configured
			}

			limiter := rate.NewLimiter(rate.Every(interval), 1)

			return watch(cmd, app, app.resolveGames(args), limiter, rounds, opts.jsonOutput)
		}),
	}

	watchCmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Time between refreshes, overrides refresh_interval")
	watchCmd.Flags().IntVarP(&rounds, "count", "n", 0, "Stop after this many rounds, 0 runs until interrupted")

	return watchCmd
}

func watch(cmd *cobra.Command, app *application, gameIDs []string, limiter *rate.Limiter, rounds int, jsonOutput bool) error {
	ctx := cmd.Context()

	for round := 1; rounds == 0 || round <= rounds; round++ {
		if errWait := limiter.Wait(ctx); errWait != nil {
			// Interrupted between rounds.
			if ctx.Err() != nil {
				return nil
			}

			return errors.Wrap(errWait, "Rate limiter failed")
		}

		if errRefresh := app.refresh(ctx, gameIDs); errRefresh != nil {
			if ctx.Err() != nil {
				return nil
			}

			app.log.Warn("Refresh round had failures", zap.Int("round", round), zap.Error(errRefresh))
		}

		if errPrint := printSummary(cmd.OutOrStdout(), app, gameIDs, round, jsonOutput); errPrint != nil {
			return errPrint
		}
	}

	return nil
}
