package main

import (
	"context"
	"time"

	"github.com/leighmacdonald/rgs/internal/backend"
	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/leighmacdonald/rgs/internal/gamelist"
	"github.com/leighmacdonald/rgs/internal/registry"
	"github.com/leighmacdonald/rgs/pkg/util"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// application is the main container wiring settings, the game list and the registry.
type application struct {
	settings     *config.Settings
	log          *zap.Logger
	registry     *registry.Registry
	games        gamelist.GameList
	qstat        *backend.QStat
	queryTimeout time.Duration
}

func newApplication(settings *config.Settings, logger *zap.Logger) (*application, error) {
	queryTimeout, errTimeout := settings.QueryTimeoutDuration()
	if errTimeout != nil {
		return nil, errTimeout
	}

	app := &application{
		settings:     settings,
		log:          logger,
		registry:     registry.New(logger, settings.MaxConcurrentQueries),
		games:        gamelist.GameList{Games: map[string]gamelist.GameListEntry{}},
		qstat:        backend.NewQStat(logger),
		queryTimeout: queryTimeout,
	}

	gameListPath, errPath := util.ExpandPath(settings.GameListPath)
	if errPath != nil {
		return nil, errors.Wrap(errPath, "Invalid game_list_path")
	}

	if !util.Exists(gameListPath) {
		logger.Warn("Game list does not exist, no games loaded", zap.String("path", gameListPath))

		return app, nil
	}

	games, errGames := gamelist.ReadFile(gameListPath)
	if errGames != nil {
		return nil, errGames
	}

	if errSeed := gamelist.Seed(app.registry, games, app.dataSource); errSeed != nil {
		return nil, errors.Wrap(errSeed, "Failed to load game list")
	}

	app.games = games

	logger.Debug("Loaded game list",
		zap.String("path", gameListPath),
		zap.Int("games", len(games.Games)))

	return app, nil
}

// dataSource hands out a single shared qstat backend so Kill reaches every process
// started by this application.
func (app *application) dataSource(name string) (backend.DataSource, error) {
	if name == backend.NameQStat {
		return app.qstat, nil
	}

	return backend.New(name, app.log)
}

// resolveGames returns the requested ids, or all known games when none were given.
func (app *application) resolveGames(gameIDs []string) []string {
	if len(gameIDs) == 0 {
		return app.registry.ListGames()
	}

	return gameIDs
}

// refresh starts a refresh of every game and waits for all of them to commit. Every
// failure is returned, a failed game does not abort the others.
func (app *application) refresh(ctx context.Context, gameIDs []string) error {
	var (
		group   errgroup.Group
		results = make([]error, len(gameIDs))
	)

	for idx, gameID := range gameIDs {
		group.Go(func() error {
			results[idx] = app.refreshOne(ctx, gameID)

			return nil
		})
	}

	_ = group.Wait()

	return multierr.Combine(results...)
}

func (app *application) refreshOne(ctx context.Context, gameID string) error {
	queryCtx, cancel := ctx, context.CancelFunc(func() {})
	if app.queryTimeout > 0 {
		queryCtx, cancel = context.WithTimeout(ctx, app.queryTimeout)
	}

	defer cancel()

	result, errRefresh := app.registry.Refresh(queryCtx, gameID)
	if errRefresh != nil {
		return errors.Wrapf(errRefresh, "Failed to refresh %s", gameID)
	}

	select {
	case errQuery := <-result:
		return errors.Wrapf(errQuery, "Failed to refresh %s", gameID)
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "Refresh of %s interrupted", gameID)
	}
}

// shutdown stops any running probes and waits for outstanding refreshes to settle.
func (app *application) shutdown() {
	if errKill := app.qstat.Kill(); errKill != nil {
		app.log.Error("Failed to stop qstat", zap.Error(errKill))
	}

	app.registry.Wait()
}
