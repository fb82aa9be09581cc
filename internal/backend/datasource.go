package backend

import (
	"context"
	"sort"

	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DataSource discovers the servers of a single game. Query blocks until the result
// is known, callers wanting it off their own goroutine must arrange that themselves.
// Cancelling ctx aborts any external work the source has started.
type DataSource interface {
	Query(ctx context.Context, settings *config.Store) (model.ServerSet, error)
}

// MockDataSource is the placeholder bound to newly created games. With no fields set
// it returns an empty set.
type MockDataSource struct {
	Servers model.ServerSet
	Err     error
}

func (m MockDataSource) Query(ctx context.Context, _ *config.Store) (model.ServerSet, error) {
	if errCtx := ctx.Err(); errCtx != nil {
		return model.ServerSet{}, errors.Wrap(model.ErrBackend, errCtx.Error())
	}

	if m.Err != nil {
		return model.ServerSet{}, m.Err
	}

	return m.Servers.Clone(), nil
}

const (
	NameMock  = "mock"
	NameQStat = "qstat"
)

// Factory builds a DataSource from a backend name as used in game lists.
type Factory func(name string) (DataSource, error)

// Names returns the backend names understood by New.
func Names() []string {
	names := []string{NameMock, NameQStat}
	sort.Strings(names)

	return names
}

func New(name string, logger *zap.Logger) (DataSource, error) {
	switch name {
	case NameMock:
		return MockDataSource{}, nil
	case NameQStat:
		return NewQStat(logger), nil
	default:
		return nil, errors.Wrap(model.ErrUnknownBackend, name)
	}
}

// NewFactory binds New to a logger.
func NewFactory(logger *zap.Logger) Factory {
	return func(name string) (DataSource, error) {
		return New(name, logger)
	}
}
