package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/elee1766/genstudio/src/app"
	"github.com/elee1766/genstudio/src/config"
	"github.com/elee1766/genstudio/src/studio"
)

// env holds the process surroundings commands run in. Tests replace it.
type env struct {
	stdout     io.Writer
	stderr     io.Writer
	stdin      io.Reader
	fs         afero.Fs
	lookupEnv  func(string) (string, bool)
	precedence config.ConfigPrecedence
	httpClient *http.Client
	isTTY      func(io.Writer) bool
	now        func() time.Time
}

func defaultEnv() *env {
	return &env{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		stdin:      os.Stdin,
		fs:         afero.NewOsFs(),
		lookupEnv:  os.LookupEnv,
		precedence: config.GetConfigPaths(),
		isTTY:      isTerminal,
		now:        time.Now,
	}
}

func (cli *CLI) environment() *env {
	if cli.env == nil {
		cli.env = defaultEnv()
	}
	return cli.env
}

func (cli *CLI) loader() *config.Loader {
	e := cli.environment()
	precedence := e.precedence
	if cli.ConfigFile != "" {
		precedence.UserConfig = cli.ConfigFile
	}
	return config.NewLoader(precedence).WithFs(e.fs).WithEnv(e.lookupEnv)
}

// loadConfig loads the configuration and applies CLI flag overrides
func (cli *CLI) loadConfig() (*config.Config, error) {
	cfg, err := cli.loader().Load()
	if err != nil {
		return nil, &configError{err: err}
	}
	overrideConfigFromCLI(cfg, cli)
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

// overrideConfigFromCLI overrides configuration values with CLI flags
func overrideConfigFromCLI(cfg *config.Config, cli *CLI) {
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.JSON {
		cfg.Output.Format = "json"
	}
}

// session is an opened app plus the output and logger of one command
type session struct {
	*app.App
	cli *CLI
	out *output
}

func (cli *CLI) open(ctx context.Context) (*session, error) {
	cfg, err := cli.loadConfig()
	if err != nil {
		return nil, err
	}
	e := cli.environment()

	a, err := app.New(ctx, app.AppConfig{
		Config:     cfg,
		Logger:     cli.newLogger(cfg),
		Fs:         e.fs,
		HTTPClient: e.httpClient,
	})
	if err != nil {
		return nil, err
	}

	return &session{
		App: a,
		cli: cli,
		out: newOutput(e.stdout, cfg.Output, e.isTTY(e.stdout)),
	}, nil
}

// newLogger creates the command logger. It stays open until the command's
// error, if any, has been logged.
func (cli *CLI) newLogger(cfg *config.Config) *slog.Logger {
	e := cli.environment()
	cli.closeLogs()
	cli.logger = createCLILogger(e.stderr, cfg.Logging.Level, cfg.Logging.Format)
	if cli.LogFile {
		logger, closeFn, err := createFileLogger(cfg.Logging.Level)
		if err != nil {
			cli.logger.Warn("falling back to stderr logging", "error", err)
		} else {
			cli.logger, cli.closeLog = logger, closeFn
		}
	}
	return cli.logger
}

// commandLogger returns the command logger, or a stderr logger at the flag
// level when the command failed before configuration loaded.
func (cli *CLI) commandLogger() *slog.Logger {
	if cli.logger != nil {
		return cli.logger
	}
	return createCLILogger(cli.environment().stderr, cli.LogLevel, "text")
}

func (cli *CLI) closeLogs() {
	if cli.closeLog != nil {
		cli.closeLog()
		cli.closeLog = nil
	}
}

// studio opens the studio for the --workspace flag or the current workspace
// and dismisses the banner left by a previous command. A failed image list
// is reported on the banner instead and does not abort.
func (s *session) studio(ctx context.Context, sink studio.EventSink) (*studio.Studio, error) {
	return s.openStudio(ctx, sink, false)
}

// inspect opens the studio keeping the previous command's banner.
func (s *session) inspect(ctx context.Context) (*studio.Studio, error) {
	return s.openStudio(ctx, nil, true)
}

func (s *session) openStudio(ctx context.Context, sink studio.EventSink, keepBanner bool) (*studio.Studio, error) {
	st, err := s.OpenStudio(ctx, s.cli.WS, sink)
	if st == nil {
		return nil, err
	}
	if err != nil {
		s.Logger.Warn("image list unavailable", "error", err)
		return st, nil
	}
	if !keepBanner {
		st.ClearError()
	}
	return st, nil
}

// save persists studio state. Failures are logged.
func (s *session) save(ctx context.Context, st *studio.Studio) {
	if err := s.SaveStudio(context.WithoutCancel(ctx), st); err != nil {
		s.Logger.Error("failed to save studio state", "error", err)
	}
}
