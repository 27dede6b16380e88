// Package config loads viewer settings from defaults, an optional YAML file
// and PERFSCOPE_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the loader
const EnvPrefix = "PERFSCOPE"

// Setting keys
const (
	KeyPort         = "port"
	KeyDebug        = "debug"
	KeyInitialWidth = "layout.initial-width"
	KeyLoadDelay    = "layout.load-delay"
	KeyToggleDelay  = "layout.toggle-delay"
	KeyFeedURL      = "feed.url"
	KeyFeedCSV      = "feed.csv"
	KeyFeedDatabase = "feed.database"
	KeyFeedTimeout  = "feed.timeout"
	KeyFeedLegacy   = "feed.legacy"
)

var defaults = map[string]any{
	KeyPort:         8080,
	KeyDebug:        false,
	KeyInitialWidth: 600.0,
	KeyLoadDelay:    50 * time.Millisecond,
	KeyToggleDelay:  500 * time.Millisecond,
	KeyFeedURL:      "",
	KeyFeedCSV:      "",
	KeyFeedDatabase: "",
	KeyFeedTimeout:  30 * time.Second,
	KeyFeedLegacy:   false,
}

// New prepares a viper instance with defaults, environment binding and, when
// path is not empty, the given config file. Without a path a
// .perfscope.yaml in the working directory or $HOME is used if present.
func New(path string) (*viper.Viper, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".perfscope")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return v, nil
}

// Decode reads the settings out of v and validates them
func Decode(v *viper.Viper) (core.Settings, error) {
	settings := core.Settings{
		Port:  v.GetInt(KeyPort),
		Debug: v.GetBool(KeyDebug),
		Layout: core.LayoutSettings{
			InitialWidth: v.GetFloat64(KeyInitialWidth),
			LoadDelay:    v.GetDuration(KeyLoadDelay),
			ToggleDelay:  v.GetDuration(KeyToggleDelay),
		},
		Feed: core.FeedSettings{
			URL:      v.GetString(KeyFeedURL),
			CSV:      v.GetString(KeyFeedCSV),
			Database: v.GetString(KeyFeedDatabase),
			Timeout:  v.GetDuration(KeyFeedTimeout),
			Legacy:   v.GetBool(KeyFeedLegacy),
		},
	}

	if err := Validate(settings); err != nil {
		return core.Settings{}, err
	}
	return settings, nil
}

// Load is New followed by Decode
func Load(path string) (core.Settings, error) {
	v, err := New(path)
	if err != nil {
		return core.Settings{}, err
	}
	return Decode(v)
}

// Validate checks value ranges and that at most one feed is selected
func Validate(settings core.Settings) error {
	if settings.Port <= 0 || settings.Port > 65535 {
		return fmt.Errorf("invalid port %d", settings.Port)
	}
	if settings.Layout.InitialWidth < 0 {
		return fmt.Errorf("invalid initial width %v", settings.Layout.InitialWidth)
	}
	if settings.Layout.LoadDelay < 0 || settings.Layout.ToggleDelay < 0 {
		return errors.New("layout delays must not be negative")
	}
	if settings.Feed.Timeout <= 0 {
		return fmt.Errorf("invalid feed timeout %v", settings.Feed.Timeout)
	}

	sources := 0
	for _, source := range []string{settings.Feed.URL, settings.Feed.CSV, settings.Feed.Database} {
		if source != "" {
			sources++
		}
	}
	if sources > 1 {
		return errors.New("only one of feed url, csv and database can be set")
	}
	return nil
}
