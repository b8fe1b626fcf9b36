package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/lanes/internal/adapters/remote/dummyjson"
	"github.com/evanschultz/lanes/internal/adapters/storage/sqlite"
	"github.com/evanschultz/lanes/internal/app"
	"github.com/evanschultz/lanes/internal/config"
	"github.com/evanschultz/lanes/internal/platform"
	"github.com/evanschultz/lanes/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program is the part of tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it for a fake.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(newCLI(os.Stdout, os.Stderr, os.Getenv))
	if err := fang.Execute(ctx, root, fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes one command line against the given writers.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCommand(newCLI(stdout, stderr, os.Getenv))
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}

// cli holds the global flag values shared by every command.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	configPath string
	dbPath     string
	appName    string
	apiURL     string
	devMode    bool
}

func newCLI(stdout, stderr io.Writer, getenv func(string) string) *cli {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &cli{stdout: stdout, stderr: stderr, getenv: getenv}
}

// session is one opened runtime: resolved config, logger, store and service.
type session struct {
	paths  platform.Paths
	opts   platform.Options
	cfg    config.Config
	logger *runtimeLogger
	repo   *sqlite.Repository
	svc    *app.Service

	prevLogger *charmLog.Logger
}

// resolve applies the flag, environment and OS default layers for paths.
func (c *cli) resolve(cmd *cobra.Command) (platform.Paths, platform.Options, error) {
	var devOverride *bool
	if flag := cmd.Flag("dev"); flag != nil && flag.Changed {
		v := c.devMode
		devOverride = &v
	} else if _, ok := platform.ParseBoolEnv(c.getenv(platform.EnvDevMode)); !ok {
		v := version == "dev"
		devOverride = &v
	}
	return platform.Resolve(c.getenv, platform.Overrides{
		AppName:    c.appName,
		DevMode:    devOverride,
		ConfigPath: c.configPath,
		DBPath:     c.dbPath,
	})
}

// open resolves config and wires the store, remote client and service.
// Interactive sessions keep log output off the terminal.
func (c *cli) open(cmd *cobra.Command, interactive bool) (*session, error) {
	paths, opts, err := c.resolve(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}
	cfg, err := config.Load(paths.ConfigPath, config.Default(paths.DBPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", paths.ConfigPath, err)
	}
	if firstNonEmpty(c.dbPath, c.getenv(platform.EnvDBPath)) != "" {
		cfg.Database.Path = paths.DBPath
	}
	if apiURL := firstNonEmpty(c.apiURL, c.getenv(platform.EnvAPIURL)); apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger, err := newRuntimeLogger(c.stderr, opts.AppName, opts.DevMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, err
	}
	logger.SetConsoleEnabled(!interactive)
	s := &session{paths: paths, opts: opts, cfg: cfg, logger: logger, prevLogger: charmLog.Default()}
	charmLog.SetDefault(logger.packageLogger())

	logger.Debug(
		"startup configuration resolved",
		"app", opts.AppName,
		"dev_mode", opts.DevMode,
		"config_path", paths.ConfigPath,
		"db_path", cfg.Database.Path,
		"api_url", cfg.API.BaseURL,
		"dev_log", logger.DevLogPath(),
	)

	logger.Debug("opening sqlite repository", "path", cfg.Database.Path)
	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	s.repo = repo

	remote, err := dummyjson.New(dummyjson.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout.Std(),
		Limit:     cfg.API.Limit,
		UserAgent: cfg.API.UserAgent + "/" + version,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("build todos api client: %w", err)
	}

	s.svc = app.NewService(remote, repo, uuid.NewString, time.Now, app.ServiceConfig{
		Lanes:        cfg.Lanes(),
		PersistLocal: cfg.Board.PersistLocal,
	})
	return s, nil
}

// close releases the store and the dev log file.
func (s *session) close() {
	if s == nil {
		return
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			s.logger.Warn("close sqlite repository failed", "err", err)
		}
	}
	if err := s.logger.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close dev log:", err)
	}
	if s.prevLogger != nil {
		charmLog.SetDefault(s.prevLogger)
	}
}

// withSession opens a session, runs fn and closes the session.
func (c *cli) withSession(cmd *cobra.Command, interactive bool, fn func(context.Context, *session) error) error {
	s, err := c.open(cmd, interactive)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(cmd.Context(), s)
}

// runTUI starts the board program.
func (c *cli) runTUI(cmd *cobra.Command, _ []string) error {
	return c.withSession(cmd, true, func(_ context.Context, s *session) error {
		model := tui.NewModel(
			s.svc,
			tui.WithConfirmDelete(s.cfg.Board.ConfirmDelete),
			tui.WithNotifyDuration(s.cfg.Notify.Duration.Std()),
		)
		s.logger.Info("starting tui program loop", "db_path", s.cfg.Database.Path)
		if _, err := programFactory(model).Run(); err != nil {
			s.logger.Error("tui program terminated with error", "err", err)
			return fmt.Errorf("run tui program: %w", err)
		}
		s.logger.Info("tui program loop stopped")
		return nil
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
