package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"surveyor/internal/ui"
	"surveyor/internal/watch"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse the tree interactively and follow edits to the model file",
	Long: `Open the interactive tree. The model file is watched; when another process
rewrites it, the tree is reloaded in place. Without a terminal the tree is
printed once instead.`,
	Args: cobra.NoArgs,
	RunE: runView,
}

func init() {
	viewCmd.Flags().String("ui", "auto", "interactive UI (auto|on|off)")
	viewCmd.Flags().Bool("no-watch", false, "do not follow edits to the model file")
}

func runView(cmd *cobra.Command, _ []string) error {
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	interactive, err := wantTUI(uiFlag, isTerminal(os.Stdout) && isTerminal(os.Stdin))
	if err != nil {
		return err
	}
	noWatch, err := cmd.Flags().GetBool("no-watch")
	if err != nil {
		return err
	}

	if !interactive {
		return printTree(cmd, ui.PrintOptions{Width: terminalWidth()})
	}

	s := settingsFrom(cmd.Context())
	stateDir, err := s.cfg.StateDir()
	if err != nil {
		return err
	}
	sess, err := openSession(cmd, filepath.Join(stateDir, "surveyor.log"))
	if err != nil {
		return err
	}

	var watcher *watch.Watcher
	watching := ""
	if !noWatch {
		watcher, err = watch.New(sess.ws.Service.Path(), sess.log.With("component", "watch"))
		if err != nil {
			_ = sess.close(cmd, false)
			return err
		}
		defer watcher.Close()
		watching = watcher.Path()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	m := ui.NewTreeModel(gctx, sess.ws, watching)
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(gctx))

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx, func() { program.Send(ui.ExternalEditMsg{}) })
		})
	}
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		// cancelled from outside the program
		if errors.Is(err, tea.ErrProgramKilled) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	runErr := g.Wait()

	if err := sess.close(cmd, true); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// wantTUI resolves --ui; auto follows the terminal.
func wantTUI(value string, terminal bool) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return terminal, nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}
