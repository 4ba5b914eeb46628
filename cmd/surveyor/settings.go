package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"surveyor/internal/config"
	"surveyor/internal/observ"
	"surveyor/internal/service"
	"surveyor/internal/trace"
	"surveyor/internal/workspace"
)

// settings are the merged surveyor.toml and command-line values.
type settings struct {
	cfg     config.Config
	timings bool
	verbose bool
}

type settingsKey struct{}

func withSettings(ctx context.Context, s *settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

func settingsFrom(ctx context.Context) *settings {
	if s, ok := ctx.Value(settingsKey{}).(*settings); ok {
		return s
	}
	return &settings{cfg: config.Default()}
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if path != "" {
		cfg, err = config.Parse(path)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}

	if v, _ := flags.GetString("state-dir"); v != "" {
		abs, err := filepath.Abs(v)
		if err != nil {
			return nil, fmt.Errorf("--state-dir: %w", err)
		}
		cfg.Store.Dir = abs
	}
	if v, _ := flags.GetString("store"); v != "" {
		if filepath.Base(v) != v {
			if v, err = filepath.Abs(v); err != nil {
				return nil, fmt.Errorf("--store: %w", err)
			}
		}
		cfg.Store.File = v
	}
	if v, _ := flags.GetString("grouping"); v != "" {
		cfg.Tree.Grouping = v
	}
	if v, _ := flags.GetString("trace-level"); v != "" {
		cfg.Trace.Level = v
	}
	if v, _ := flags.GetString("trace-mode"); v != "" {
		cfg.Trace.Mode = v
	}
	if v, _ := flags.GetString("trace"); v != "" {
		cfg.Trace.Output = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &settings{cfg: cfg}
	s.timings, _ = flags.GetBool("timings")
	s.verbose, _ = flags.GetBool("verbose")
	return s, nil
}

// newLogger builds the process logger. Warnings always reach w; --verbose adds debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// session is one opened workspace plus what the command needs to close it.
type session struct {
	ws      *workspace.Workspace
	log     *slog.Logger
	timer   *observ.Timer
	logFile *os.File
}

// openSession builds and starts the workspace. Logs go to stderr unless
// logPath is set, which the TUI uses to keep the screen clean.
func openSession(cmd *cobra.Command, logPath string) (*session, error) {
	ctx := cmd.Context()
	s := settingsFrom(ctx)

	storePath, err := s.cfg.StorePath()
	if err != nil {
		return nil, err
	}
	metaPath, err := s.cfg.MetaPath()
	if err != nil {
		return nil, err
	}

	sess := &session{}
	var logOut io.Writer = cmd.ErrOrStderr()
	verbose := s.verbose
	if logPath != "" {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log: %w", err)
		}
		sess.logFile = f
		logOut = f
		verbose = true
	}
	log := newLogger(logOut, verbose)
	sess.log = log
	if s.timings {
		sess.timer = observ.NewTimer()
	}

	sess.ws = workspace.New(workspace.Options{
		Service: service.Options{
			Path:     storePath,
			MetaPath: metaPath,
			Timer:    sess.timer,
		},
		Grouping: s.cfg.Grouping(),
		Logger:   log,
		Tracer:   trace.FromContext(ctx),
	})
	if err := sess.ws.Start(ctx); err != nil {
		sess.closeLog()
		return nil, err
	}
	return sess, nil
}

// close saves the model when save is set and prints timings.
func (s *session) close(cmd *cobra.Command, save bool) error {
	defer s.closeLog()
	var err error
	if save {
		err = s.ws.Shutdown(cmd.Context())
	}
	if s.timer != nil {
		fmt.Fprint(cmd.ErrOrStderr(), s.timer.Summary())
	}
	return err
}

func (s *session) closeLog() {
	if s.logFile != nil {
		_ = s.logFile.Close()
		s.logFile = nil
	}
}
