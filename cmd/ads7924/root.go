package main

import (
	"context"
	"strconv"

	"ads7924-go/services/adc"
	"ads7924-go/services/adc/config"

	// Platform backends register themselves.
	_ "ads7924-go/services/adc/platform"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	ConfigOptionName   = "config"
	PresetOptionName   = "preset"
	BackendOptionName  = "backend"
	LogLevelOptionName = "log-level"
)

// env carries the persistent flags to every subcommand.
type env struct {
	configPath string
	preset     string
	backend    string
	logLevel   string

	log *zap.SugaredLogger
}

func newRootCommand() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:           "ads7924",
		Short:         "Access ADS7924 ADCs on I2C buses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.initLogger()
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&e.configPath, ConfigOptionName, "", "YAML topology file")
	pf.StringVar(&e.preset, PresetOptionName, "sim", "embedded configuration used when --config is empty")
	pf.StringVar(&e.backend, BackendOptionName, "", "platform backend (sim, linux); overrides the config")
	pf.StringVar(&e.logLevel, LogLevelOptionName, "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newReportCommand(e),
		newReadCommand(e),
		newWatchCommand(e),
		newModeCommand(e),
		newRegCommand(e),
		newLimitCommand(e),
		newAlarmCommand(e),
		newResetCommand(e),
		newFormatCommand(e),
		newOpcodesCommand(),
	)
	return cmd
}

func (e *env) initLogger() error {
	zc := zap.NewDevelopmentConfig()
	if e.logLevel != "" {
		lvl, err := zap.ParseAtomicLevel(e.logLevel)
		if err != nil {
			return errors.Wrap(err, LogLevelOptionName)
		}
		zc.Level = lvl
	}
	l, err := zc.Build()
	if err != nil {
		return err
	}
	e.log = l.Sugar()
	return nil
}

func (e *env) config() (config.Config, error) {
	if e.configPath != "" {
		return config.Load(e.configPath)
	}
	return config.Default(e.preset)
}

// withDriver opens the driver, runs fn and tears everything down.
func (e *env) withDriver(ctx context.Context, fn func(d *adc.Driver) error) (err error) {
	cfg, err := e.config()
	if err != nil {
		return err
	}
	if e.logLevel == "" && cfg.LogLevel != "" {
		if lvl, perr := zap.ParseAtomicLevel(cfg.LogLevel); perr == nil {
			e.log = e.log.Desugar().WithOptions(zap.IncreaseLevel(lvl)).Sugar()
		}
	}
	d, err := adc.Open(ctx, cfg, e.backend, adc.Options{Logger: e.log})
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, d.Close())
		_ = e.log.Sync()
	}()
	return fn(d)
}

// withHandle opens dev, a device name or minor number, for fn.
func (e *env) withHandle(ctx context.Context, dev string, flags adc.OpenFlags, fn func(d *adc.Driver, h *adc.Handle) error) error {
	return e.withDriver(ctx, func(d *adc.Driver) error {
		var (
			h   *adc.Handle
			err error
		)
		if minor, perr := strconv.Atoi(dev); perr == nil {
			h, err = d.Open(minor, flags)
		} else {
			h, err = d.OpenName(dev, flags)
		}
		if err != nil {
			return err
		}
		defer h.Close()
		return fn(d, h)
	})
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "value %q", s)
	}
	return byte(v), nil
}
