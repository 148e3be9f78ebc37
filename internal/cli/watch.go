package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResidualsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <tim-file>",
		Short: "Recompute residuals whenever the TOAs or model change",
		Long: `Compute residuals like the residuals command, then recompute every time
the tim file or the model file is written. A failed recomputation is
logged and the watch continues. Stops on Ctrl-C.

Example:
  pulsar watch --model ngc6440e.cue ngc6440e.tim`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, opts, args[0], cmd)
		},
	}

	addComputeFlags(cmd, opts)

	return cmd
}

// runWatch emits one result per successful computation until ctx is done.
func runWatch(ctx context.Context, opts *ResidualsOptions, timPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	emit := func() error {
		c, err := compute(ctx, opts, timPath, logger)
		if err != nil {
			return err
		}
		return formatter.Success(ResidualsOutput{
			File:        timPath,
			Fingerprint: c.table.Fingerprint(),
			Sort:        opts.Sort,
			Summary:     c.summary,
		})
	}

	// The first computation must succeed; later failures only log.
	if err := emit(); err != nil {
		return failStage(formatter, err)
	}

	targets, dirs, err := watchTargets(timPath, opts.Model)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to resolve watched files", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to create watcher", err)
	}
	defer watcher.Close()

	// Directories, not files: an atomic save renames over the file and
	// would drop a watch held on the old inode.
	for _, d := range dirs {
		if err := watcher.Add(d); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to watch %s", d), err)
		}
	}
	logger.Info("watching for changes", "tim", timPath, "model", opts.Model)

	return watchLoop(ctx, watcher, targets, logger, emit)
}

// watchTargets returns the absolute paths of files and their distinct
// parent directories.
func watchTargets(files ...string) (map[string]bool, []string, error) {
	targets := make(map[string]bool, len(files))
	var dirs []string
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, nil, err
		}
		targets[abs] = true
		if d := filepath.Dir(abs); !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return targets, dirs, nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, targets map[string]bool, logger *slog.Logger, emit func() error) error {
	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(event.Name)] {
				continue
			}
			// A rename into place arrives as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if err := emit(); err != nil {
				logger.Error("recompute failed, keeping previous result", "path", event.Name, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
