package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ha1tch/flow-toolkit/pkg/logging"
	"github.com/ha1tch/flow-toolkit/pkg/throttle"
)

// Editors often save with several writes or a rename; wait for the burst
// to settle before re-rendering.
const (
	watchQuiet   = 200 * time.Millisecond
	watchMaxWait = 2 * time.Second
)

// docWatcher reports changes to one document. The parent directory is
// watched so that atomic saves (write then rename) are seen.
type docWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	changes chan string
}

func newDocWatcher(path string) (*docWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &docWatcher{watcher: w, path: abs, changes: make(chan string, 16)}, nil
}

// run forwards relevant events until ctx ends, then closes Changes.
func (dw *docWatcher) run(ctx context.Context) {
	defer close(dw.changes)
	defer dw.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != dw.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				logging.Trace("document event", "op", ev.Op.String(), "path", ev.Name)
				dw.changes <- dw.path
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

func watchCmd() *cobra.Command {
	var output, format, title string
	cmd := &cobra.Command{
		Use:   "watch <document>",
		Short: "Re-export a flow document every time it changes",
		Example: `  flowctl watch flow.json -o flow.svg`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fail(fmt.Errorf("watch needs -o"))
			}
			f, err := formatFor(format, output)
			if err != nil {
				return fail(err)
			}
			input := args[0]

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dw, err := newDocWatcher(input)
			if err != nil {
				return fail(err)
			}
			go dw.run(ctx)

			debouncer := throttle.NewDebouncer[string](dw.changes, watchQuiet, watchMaxWait)
			debouncer.Start(ctx)

			rebuild := func() {
				if err := exportFile(input, output, f, title); err != nil {
					fmt.Printf("  %s %s: %v\n", statusIcon(false), time.Now().Format("15:04:05"), err)
					return
				}
				fmt.Printf("  %s %s %s\n", statusIcon(true), Subtle.Sprint(time.Now().Format("15:04:05")), output)
			}

			banner("watching " + input)
			rebuild()
			for range debouncer.Output() {
				rebuild()
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json, dot, svg or png (default from the output extension)")
	cmd.Flags().StringVar(&title, "title", "", "title drawn above the diagram")
	return cmd
}
