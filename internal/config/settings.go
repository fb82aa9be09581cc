package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kirsle/configdir"
	"github.com/leighmacdonald/rgs/pkg/util"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	configRoot            = "rgs"
	defaultConfigFileName = "rgs.yaml"
)

var (
	ErrConfigNotFound        = errors.New("config path does not exist")
	errSettingsRunMode       = errors.New("invalid run mode")
	errSettingsConcurrency   = errors.New("max_concurrent_queries must be positive")
	errSettingsDuration      = errors.New("invalid duration")
	errSettingsGameListEmpty = errors.New("game_list_path cannot be empty")
)

type RunModes string

const (
	ModeRelease RunModes = "release"
	ModeTest    RunModes = "test"
	ModeDebug   RunModes = "debug"
)

// Settings is the application configuration, loaded from rgs.yaml in the user config
// directory.
type Settings struct {
	// Path to config used when reading Settings
	configPath string `yaml:"-"`

	RunMode              RunModes `yaml:"run_mode"`
	LogLevel             string   `yaml:"log_level"`
	DebugLogEnabled      bool     `yaml:"debug_log_enabled"`
	GameListPath         string   `yaml:"game_list_path"`
	MaxConcurrentQueries int64    `yaml:"max_concurrent_queries"`
	// RefreshInterval is used by the watch command.
	RefreshInterval string `yaml:"refresh_interval"`
	// QueryTimeout bounds a single refresh issued from the command line. Empty disables it.
	QueryTimeout string `yaml:"query_timeout"`
}

func NewSettings() Settings {
	return Settings{
		RunMode:              ModeRelease,
		LogLevel:             "info",
		DebugLogEnabled:      false,
		GameListPath:         filepath.Join(ConfigRoot(), "games.yaml"),
		MaxConcurrentQueries: 8,
		RefreshInterval:      "60s",
		QueryTimeout:         "30s",
	}
}

func ConfigRoot() string {
	configPath := configdir.LocalConfig(configRoot)
	if err := configdir.MakePath(configPath); err != nil {
		return ""
	}

	return configPath
}

func (s *Settings) ConfigPath() string {
	return s.configPath
}

func (s *Settings) LogFilePath() string {
	return filepath.Join(ConfigRoot(), "rgs.log")
}

// ReadDefaultOrCreate loads rgs.yaml from the user config dir, writing out the
// defaults when it does not exist yet.
func (s *Settings) ReadDefaultOrCreate() error {
	configPath := configdir.LocalConfig(configRoot)
	if err := configdir.MakePath(configPath); err != nil {
		return errors.Wrap(err, "Failed to create config root")
	}

	errRead := s.ReadFilePath(filepath.Join(configPath, defaultConfigFileName))
	if errRead != nil && errors.Is(errRead, ErrConfigNotFound) {
		return s.Save()
	}

	return errRead
}

func (s *Settings) ReadFilePath(filePath string) error {
	expanded, errExpand := util.ExpandPath(filePath)
	if errExpand != nil {
		return errExpand
	}

	s.configPath = expanded

	if !util.Exists(expanded) {
		// Use defaults
		return ErrConfigNotFound
	}

	settingsFile, errOpen := os.Open(expanded)
	if errOpen != nil {
		return errors.Wrap(errOpen, "Failed to open settings file")
	}

	defer util.IgnoreClose(settingsFile)

	return s.Read(settingsFile)
}

func (s *Settings) Read(input io.Reader) error {
	if errDecode := yaml.NewDecoder(input).Decode(s); errDecode != nil {
		if errors.Is(errDecode, io.EOF) {
			return nil
		}

		return errors.Wrap(errDecode, "Failed to decode settings")
	}

	return nil
}

func (s *Settings) Save() error {
	if s.configPath == "" {
		return errors.New("No config path set")
	}

	settingsFile, errOpen := os.OpenFile(s.configPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if errOpen != nil {
		return errors.Wrap(errOpen, "Failed to open settings file for writing")
	}

	defer util.IgnoreClose(settingsFile)

	return s.Write(settingsFile)
}

func (s *Settings) Write(output io.Writer) error {
	encoder := yaml.NewEncoder(output)
	encoder.SetIndent(2)

	if errEncode := encoder.Encode(s); errEncode != nil {
		return errors.Wrap(errEncode, "Failed to encode settings")
	}

	return errors.Wrap(encoder.Close(), "Failed to flush settings")
}

func (s *Settings) Validate() error {
	var err error

	switch s.RunMode {
	case ModeRelease, ModeDebug, ModeTest:
	default:
		err = multierr.Append(err, errors.Wrap(errSettingsRunMode, string(s.RunMode)))
	}

	if s.MaxConcurrentQueries <= 0 {
		err = multierr.Append(err, errSettingsConcurrency)
	}

	if s.GameListPath == "" {
		err = multierr.Append(err, errSettingsGameListEmpty)
	}

	if _, errInterval := s.RefreshDuration(); errInterval != nil {
		err = multierr.Append(err, errInterval)
	}

	if _, errTimeout := s.QueryTimeoutDuration(); errTimeout != nil {
		err = multierr.Append(err, errTimeout)
	}

	return err
}

func (s *Settings) RefreshDuration() (time.Duration, error) {
	return parseDuration("refresh_interval", s.RefreshInterval)
}

// QueryTimeoutDuration returns 0 when no timeout is configured.
func (s *Settings) QueryTimeoutDuration() (time.Duration, error) {
	if s.QueryTimeout == "" {
		return 0, nil
	}

	return parseDuration("query_timeout", s.QueryTimeout)
}

func parseDuration(name string, value string) (time.Duration, error) {
	duration, errParse := time.ParseDuration(value)
	if errParse != nil {
		return 0, errors.Wrapf(errSettingsDuration, "%s: %v", name, errParse)
	}

	if duration < 0 {
		return 0, errors.Wrapf(errSettingsDuration, "%s: negative", name)
	}

	return duration, nil
}
