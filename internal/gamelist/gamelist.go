// Package gamelist loads the YAML description of known games and seeds a registry from it.
package gamelist

import (
	"io"
	"os"
	"sort"

	"github.com/leighmacdonald/rgs/internal/backend"
	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/leighmacdonald/rgs/internal/registry"
	"github.com/leighmacdonald/rgs/pkg/util"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ConfigEntry is a single setting with its default value. Metadata is carried for
// frontends and never interpreted here.
type ConfigEntry struct {
	Default  any            `yaml:"default"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type GameListEntry struct {
	Name     string                            `yaml:"name"`
	Backend  string                            `yaml:"backend,omitempty"`
	Backends map[string]map[string]ConfigEntry `yaml:"backends"`
	System   map[string]ConfigEntry            `yaml:"system,omitempty"`
}

// BackendName returns the configured backend, or the first one in sorted order when
// none was picked explicitly.
func (e GameListEntry) BackendName() string {
	if e.Backend != "" {
		return e.Backend
	}

	names := make([]string, 0, len(e.Backends))
	for name := range e.Backends {
		names = append(names, name)
	}

	if len(names) == 0 {
		return backend.NameMock
	}

	sort.Strings(names)

	return names[0]
}

type GameList struct {
	Games map[string]GameListEntry `yaml:"games"`
}

// IDs returns the game ids in sorted order.
func (l GameList) IDs() []string {
	ids := make([]string, 0, len(l.Games))
	for id := range l.Games {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func Load(reader io.Reader) (GameList, error) {
	var list GameList

	if errDecode := yaml.NewDecoder(reader).Decode(&list); errDecode != nil {
		if errors.Is(errDecode, io.EOF) {
			return GameList{Games: map[string]GameListEntry{}}, nil
		}

		return GameList{}, errors.Wrapf(model.ErrDataParse, "Failed to decode game list: %v", errDecode)
	}

	if list.Games == nil {
		list.Games = map[string]GameListEntry{}
	}

	return list, nil
}

func ReadFile(path string) (GameList, error) {
	expanded, errExpand := util.ExpandPath(path)
	if errExpand != nil {
		return GameList{}, errors.Wrap(model.ErrIO, errExpand.Error())
	}

	file, errOpen := os.Open(expanded)
	if errOpen != nil {
		return GameList{}, errors.Wrapf(model.ErrIO, "Failed to open game list: %v", errOpen)
	}

	defer util.IgnoreClose(file)

	return Load(file)
}

// Seed creates every game of the list in the registry, binds its backend and writes the
// setting defaults into the backend and system stores. Games are processed in id order
// and every failure is reported, a bad game does not stop the others from loading.
func Seed(reg *registry.Registry, list GameList, factory backend.Factory) error {
	var err error

	for _, gameID := range list.IDs() {
		if errGame := seedGame(reg, gameID, list.Games[gameID], factory); errGame != nil {
			err = multierr.Append(err, errors.Wrapf(errGame, "game %s", gameID))
		}
	}

	return err
}

func seedGame(reg *registry.Registry, gameID string, entry GameListEntry, factory backend.Factory) error {
	backendName := entry.BackendName()

	source, errSource := factory(backendName)
	if errSource != nil {
		return errSource
	}

	if errCreate := reg.CreateGame(gameID); errCreate != nil {
		return errCreate
	}

	if errSet := reg.SetDataSource(gameID, source); errSet != nil {
		return errSet
	}

	if errDefaults := writeDefaults(reg, gameID, model.ConfBackend, entry.Backends[backendName]); errDefaults != nil {
		return errDefaults
	}

	return writeDefaults(reg, gameID, model.ConfSystem, entry.System)
}

func writeDefaults(reg *registry.Registry, gameID string, confType model.ConfType, entries map[string]ConfigEntry) error {
	if len(entries) == 0 {
		return nil
	}

	store, errStore := reg.Settings(gameID, confType)
	if errStore != nil {
		return errStore
	}

	var err error

	for key, entry := range entries {
		if entry.Default == nil {
			continue
		}

		if errSet := store.SetAny(key, entry.Default); errSet != nil {
			err = multierr.Append(err, errors.Wrapf(errSet, "%s.%s", confType, key))
		}
	}

	return err
}
