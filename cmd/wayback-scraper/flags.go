package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/AlfonsoCorrado/wayback-scraper/internal/config"
	"github.com/AlfonsoCorrado/wayback-scraper/pkg/state"
)

// commonFlags are shared by every command that touches the state file.
type commonFlags struct {
	configPath string
	output     string
	stateFile  string
	stateURL   string
	logLevel   string
}

func addCommonFlags(fs *pflag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVarP(&f.output, "output", "o", "", "Output directory for downloaded websites (default: downloads)")
	fs.StringVarP(&f.stateFile, "state-file", "s", "", "Path to state file (default: <output>/"+config.StateFileName+")")
	fs.StringVar(&f.stateURL, "state-url", "", "Bucket URL holding the state file instead of local disk (s3://, gs://)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	return f
}

func (f *commonFlags) override() config.Config {
	return config.Config{
		Output:    f.output,
		StateFile: f.stateFile,
		StateURL:  f.stateURL,
		LogLevel:  f.logLevel,
	}
}

// loadConfig layers defaults, the config file, the environment and flag
// overrides. The result is not validated.
func loadConfig(configPath string, override config.Config) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}
	return cfg.Merge(override), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(onSignal func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			if onSignal != nil {
				onSignal()
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// openState opens the configured state backend.
func openState(ctx context.Context, cfg config.Config, logger *slog.Logger) (*state.Store, error) {
	opts := []state.Option{state.WithLogger(logger)}
	if cfg.StateURL != "" {
		return state.OpenURL(ctx, cfg.StateURL, cfg.StateKey(), opts...)
	}
	return state.OpenFile(ctx, cfg.StatePath(), opts...)
}

// stateLocation describes where the state lives, for messages.
func stateLocation(cfg config.Config) string {
	if cfg.StateURL != "" {
		return fmt.Sprintf("%s (key %s)", cfg.StateURL, cfg.StateKey())
	}
	return cfg.StatePath()
}
