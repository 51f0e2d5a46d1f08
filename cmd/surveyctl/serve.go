package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/surveyflow/engine/internal/defstore"
)

const watchDebounce = 300 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Validate the survey definition, then watch it for edits and reload",
	Long: `Loads the survey definition once (spec's "load once, immutable per
session" model) and, unless --no-watch is set, keeps watching the
definition file for edits so a survey author gets immediate feedback that
a change parses cleanly. It does not hold an open respondent session
across reloads — each change is only validated, not hot-swapped into a
running Engine.`,
	Run: func(cmd *cobra.Command, args []string) {
		noWatch, _ := cmd.Flags().GetBool("no-watch")

		if err := validateDefinition(); err != nil {
			fatalf("surveyctl serve: %v", err)
		}
		fmt.Printf("definition %s parses cleanly\n", defPath)

		if noWatch {
			return
		}
		watchDefinition()
	},
}

func init() {
	serveCmd.Flags().Bool("no-watch", false, "Validate once and exit instead of watching for edits")
	rootCmd.AddCommand(serveCmd)
}

func validateDefinition() error {
	_, err := defstore.LoadFile(defPath)
	return err
}

// watchDefinition watches defPath's directory for writes, debouncing rapid
// successive saves via an fsnotify + debounce-timer loop, adapted here to
// revalidating a definition file.
func watchDefinition() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fatalf("surveyctl serve: create watcher: %v", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(defPath)
	if err := watcher.Add(dir); err != nil {
		fatalf("surveyctl serve: watch %s: %v", dir, err)
	}

	target := filepath.Base(defPath)
	fmt.Fprintf(os.Stderr, "watching %s for changes... (Ctrl+C to exit)\n", defPath)

	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target || !event.Has(fsnotify.Write) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				if err := validateDefinition(); err != nil {
					fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
					return
				}
				fmt.Fprintf(os.Stderr, "%s reloaded cleanly\n", defPath)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-rootCtx.Done():
			return
		}
	}
}
