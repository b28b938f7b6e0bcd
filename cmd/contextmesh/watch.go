package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reprocess whenever the session or story-state file changes",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, a *app, args []string) error {
			return a.watch(cmd.Context(), cmd.OutOrStdout())
		}),
	}
}

// watch runs a pass, then one more per change to the watched files until
// ctx is done. Failed passes are logged and keep the previous state.
func (a *app) watch(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	targets := map[string]bool{cleanPath(a.cfg.Session): true}
	if a.cfg.Store != "" {
		targets[cleanPath(a.cfg.Store)] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dirs := map[string]bool{}
	for path := range targets {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	a.reprocess(ctx, out)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isWatchedEvent(event, targets) {
				continue
			}
			if a.cfg.Store != "" && cleanPath(event.Name) == cleanPath(a.cfg.Store) {
				if err := a.loadStore(); err != nil {
					a.logger.Warn("watch.store.reload_failed", "error", err)
					continue
				}
			}
			a.reprocess(ctx, out)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch.error", "error", err)
		}
	}
}

func (a *app) reprocess(ctx context.Context, out io.Writer) {
	if err := a.process(ctx); err != nil {
		a.logger.Warn("watch.pass_failed", "error", err)
		return
	}
	s := a.mesh.Summary()
	fmt.Fprintf(out, "pass %d: %d messages, %d lore entries, %d tokens\n", s.Passes, s.Messages, s.LoreEntries, s.Tokens)
}

// isWatchedEvent reports whether event changes one of the target files.
// Editors that save through rename surface as Create on the target.
func isWatchedEvent(event fsnotify.Event, targets map[string]bool) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	return targets[cleanPath(event.Name)]
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
