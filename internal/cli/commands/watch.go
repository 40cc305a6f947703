package commands

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapq/internal/cli/config"
	"github.com/leapstack-labs/leapq/pkg/compiler"
)

const queryExt = ".pql"

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Recompile query files on change",
		Long: `Watch a directory for changes to .pql files and recompile them.

Each query file is compiled to a sibling .sql file. All existing query
files are compiled once on startup.`,
		Example: `  # Watch the current directory
  leapq watch

  # Watch a queries directory, targeting MySQL
  leapq watch queries/ -t mysql`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	opts := cfg.CompilerOptions()

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("cannot watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// Compile existing files in parallel
	files, err := findQueryFiles(dir)
	if err != nil {
		return err
	}
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for _, f := range files {
		eg.Go(func() error {
			if err := compileQueryFile(f, opts); err != nil {
				logger.Error("compile failed", "file", f, "error", err)
				return nil
			}
			logger.Info("compiled", "file", f)
			return nil
		})
	}
	_ = eg.Wait()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watchDirRecursive(watcher, dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for %s changes (target: %s)\n", dir, queryExt, opts.Target)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	return watchLoop(ctx, watcher, logger, opts)
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, logger *slog.Logger, opts compiler.Options) error {
	// Debounce timer
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != queryExt {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				if err := compileQueryFile(name, opts); err != nil {
					logger.Error("compile failed", "file", name, "error", err)
					return
				}
				logger.Info("compiled", "file", name)
			})

		case err := <-watcher.Errors:
			logger.Error("watcher error", "error", err)
		}
	}
}

// compileQueryFile compiles one query file to a sibling .sql file.
func compileQueryFile(path string, opts compiler.Options) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	sql, err := compiler.Compile(string(src), opts)
	if err != nil {
		return err
	}
	if sql != "" && !strings.HasSuffix(sql, "\n") {
		sql += "\n"
	}

	out := strings.TrimSuffix(path, queryExt) + ".sql"
	return os.WriteFile(out, []byte(sql), 0o644)
}

// findQueryFiles lists all query files under dir.
func findQueryFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == queryExt {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
