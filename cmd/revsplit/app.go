package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/revsplit-go/config"
	"github.com/bitfsorg/revsplit-go/ledger"
	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/bitfsorg/revsplit-go/splitter"
	"github.com/bitfsorg/revsplit-go/wallet"
)

// Environment variables read by the CLI.
const (
	envDataDir  = "REVSPLIT_DATADIR"
	envPassword = "REVSPLIT_PASSWORD"
)

// dbFileName is the bbolt file shared by the ledger and the registry.
const dbFileName = "revsplit.db"

// app holds the state of one CLI invocation.
type app struct {
	out    io.Writer
	getenv func(string) string

	dataDir  string
	logLevel string

	cfg      config.Config
	log      *zap.Logger
	ledger   *ledger.BoltLedger
	splitter *splitter.Splitter
}

// loadConfig reads {datadir}/config. A missing file yields defaults so that
// init can run.
func (a *app) loadConfig() error {
	dir := a.dataDir
	if dir == "" {
		dir = a.getenv(envDataDir)
	}
	if dir == "" {
		dir = config.DefaultDataDir()
	}

	cfg, err := config.LoadConfig(config.ConfigPath(dir))
	if err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return err
	}
	cfg.DataDir = dir
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	a.cfg = cfg

	log, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

// open attaches the ledger and splitter of an initialized data directory.
func (a *app) open() error {
	if a.splitter != nil {
		return nil
	}
	if a.cfg.Holding == "" {
		return fmt.Errorf("data directory %s is not initialized (run revsplit init)", a.cfg.DataDir)
	}
	holding, err := revshare.ParseAddress(a.cfg.Holding)
	if err != nil {
		return err
	}
	var controller revshare.Address
	if a.cfg.Controller != "" {
		if controller, err = revshare.ParseAddress(a.cfg.Controller); err != nil {
			return err
		}
	}

	l, err := ledger.OpenBoltLedger(filepath.Join(a.cfg.DataDir, dbFileName))
	if err != nil {
		return err
	}
	store, err := revshare.NewBoltStore(l.DB())
	if err != nil {
		_ = l.Close()
		return err
	}
	reg, err := revshare.NewRegistry(store, holding, controller)
	if err != nil {
		_ = l.Close()
		return err
	}
	s, err := splitter.New(splitter.Params{Ledger: l, Registry: reg, Logger: a.log})
	if err != nil {
		_ = l.Close()
		return err
	}
	a.ledger, a.splitter = l, s
	return nil
}

// run wraps a command body so the data directory is released on every path.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if cerr := a.close(); err == nil {
			err = cerr
		}
		return err
	}
}

func (a *app) close() error {
	var err error
	if a.ledger != nil {
		err = a.ledger.Close()
		a.ledger, a.splitter = nil, nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

// caller resolves the --caller flag, defaulting to the configured controller.
func (a *app) caller(flag string) (revshare.Address, error) {
	if flag == "" {
		flag = a.cfg.Controller
	}
	if flag == "" {
		return revshare.Address{}, fmt.Errorf("no caller: pass --caller or set controller in %s", config.ConfigPath(a.cfg.DataDir))
	}
	return revshare.ParseAddress(flag)
}

// resolveNetwork loads a predefined or custom network. A relative custom
// network file is looked up in the data directory.
func (a *app) resolveNetwork(name string) (*wallet.NetworkConfig, error) {
	if path, ok := strings.CutPrefix(name, wallet.CustomNetworkPrefix); ok && path != "" && !filepath.IsAbs(path) {
		name = wallet.CustomNetworkPrefix + filepath.Join(a.cfg.DataDir, path)
	}
	return wallet.ResolveNetwork(name)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// newLogger builds a production zap logger writing to stderr or file.
func newLogger(level, file string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidLogLevel, level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if file != "" {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	}
	return cfg.Build()
}
