package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/Azure/coverlens/pkg/coverage"
)

const (
	// EnvPrefix prefixes environment variables overriding configuration keys,
	// e.g. COVERLENS_SHOWINLINEBYDEFAULT or COVERLENS_COVERAGEBARTHRESHOLDS_RED.
	EnvPrefix = "COVERLENS"

	defaultConfigName = "coverlens"
)

// Options holds the configuration of the coverage display.
type Options struct {
	DisplayedCoveragePercent coverage.DisplayPolicy `mapstructure:"displayedCoveragePercent"`
	CoverageBarThresholds    coverage.Thresholds    `mapstructure:"coverageBarThresholds"`
	ShowInlineByDefault      bool                   `mapstructure:"showInlineByDefault"`
	CoverageToolbarEnabled   bool                   `mapstructure:"coverageToolbarEnabled"`
	TotalCoverageWeights     coverage.Weights       `mapstructure:"totalCoverageWeights"`
}

// Default returns the options used when nothing is configured.
func Default() Options {
	return Options{
		DisplayedCoveragePercent: coverage.TotalCoverage,
		CoverageBarThresholds:    coverage.DefaultThresholds,
		ShowInlineByDefault:      false,
		CoverageToolbarEnabled:   true,
		TotalCoverageWeights:     coverage.DefaultWeights,
	}
}

// Validate checks all options and reports every problem found.
func (o Options) Validate() error {
	var err error
	err = multierr.Append(err, o.DisplayedCoveragePercent.Validate())
	err = multierr.Append(err, o.CoverageBarThresholds.Validate())
	w := o.TotalCoverageWeights
	if w.Statement < 0 || w.Branch < 0 || w.Declaration < 0 {
		err = multierr.Append(err, fmt.Errorf("total coverage weights must not be negative"))
	}
	return err
}

// Source provides the current options. Consumers read it on every
// recompute instead of caching the values.
type Source interface {
	Options() Options
}

// Static is a Source that never changes.
type Static Options

func (s Static) Options() Options { return Options(s) }

// Watcher is a Source backed by a configuration file and the environment.
type Watcher struct {
	v      *viper.Viper
	logger logrus.FieldLogger

	mu        sync.RWMutex
	options   Options
	listeners []func(Options)
}

var _ Source = (*Watcher)(nil)

// Load reads the configuration file at path. An empty path looks for
// coverlens.yaml in the working directory and its configs folder, and falls
// back to the defaults when none exists.
func Load(path string, logger logrus.FieldLogger) (*Watcher, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	w := &Watcher{v: v, logger: logger.WithField("source", "Config")}
	options, err := w.decode()
	if err != nil {
		return nil, err
	}
	w.options = options
	if file := v.ConfigFileUsed(); file != "" {
		w.logger.Debugf("loaded configuration from %s", file)
	}
	return w, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("displayedCoveragePercent", string(d.DisplayedCoveragePercent))
	v.SetDefault("coverageBarThresholds.red", d.CoverageBarThresholds.Red)
	v.SetDefault("coverageBarThresholds.yellow", d.CoverageBarThresholds.Yellow)
	v.SetDefault("coverageBarThresholds.green", d.CoverageBarThresholds.Green)
	v.SetDefault("showInlineByDefault", d.ShowInlineByDefault)
	v.SetDefault("coverageToolbarEnabled", d.CoverageToolbarEnabled)
	v.SetDefault("totalCoverageWeights.statement", d.TotalCoverageWeights.Statement)
	v.SetDefault("totalCoverageWeights.branch", d.TotalCoverageWeights.Branch)
	v.SetDefault("totalCoverageWeights.declaration", d.TotalCoverageWeights.Declaration)
}

func (w *Watcher) decode() (Options, error) {
	var options Options
	if err := w.v.Unmarshal(&options); err != nil {
		return Options{}, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	if err := options.Validate(); err != nil {
		return Options{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return options, nil
}

// Options returns the current options.
func (w *Watcher) Options() Options {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.options
}

// OnChange registers fn to run with the new options after every reload.
func (w *Watcher) OnChange(fn func(Options)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Reload re-reads the configuration file. Invalid content keeps the
// previous options.
func (w *Watcher) Reload() error {
	if w.v.ConfigFileUsed() != "" {
		if err := w.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	options, err := w.decode()
	if err != nil {
		return err
	}
	w.publish(options)
	return nil
}

// Watch reloads the options whenever the configuration file changes.
func (w *Watcher) Watch() {
	if w.v.ConfigFileUsed() == "" {
		return
	}
	w.v.OnConfigChange(func(e fsnotify.Event) {
		w.logger.Debugf("configuration changed: %s", e.Name)
		options, err := w.decode()
		if err != nil {
			w.logger.WithError(err).Error("reload configuration")
			return
		}
		w.publish(options)
	})
	w.v.WatchConfig()
}

func (w *Watcher) publish(options Options) {
	w.mu.Lock()
	w.options = options
	listeners := append([]func(Options){}, w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(options)
	}
}
