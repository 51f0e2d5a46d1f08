package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/surveyflow/engine/internal/defstore"
	"github.com/surveyflow/engine/internal/propagate"
	"github.com/surveyflow/engine/internal/storage/sqlstore"
	"github.com/surveyflow/engine/internal/survey"
	"github.com/surveyflow/engine/internal/surveyconfig"
	"github.com/surveyflow/engine/internal/telemetry"
)

var (
	configPath string
	defPath    string
	jsonOutput bool

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a surveyflow config.yaml (defaults apply if absent)")
	rootCmd.PersistentFlags().StringVar(&defPath, "def", "survey.toml", "Path to the survey definition TOML file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output machine-readable JSON")
}

var rootCmd = &cobra.Command{
	Use:   "surveyctl",
	Short: "surveyctl - dependency-aware survey response engine",
	Long:  `Drive a survey respondent through init, navigate, respond, and finalize against the propagation engine.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadFacade wires a Public Façade from configPath/defPath: loads the
// definition snapshot, opens storage, registers telemetry, and returns a
// shutdown func the caller must defer, plus the loaded snapshot for
// commands that need survey metadata (e.g. init's DisplayKey, show's
// labels).
func loadFacade(ctx context.Context) (*survey.Engine, *defstore.Snapshot, func(context.Context) error, error) {
	cfg, err := surveyconfig.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("surveyctl: load config: %w", err)
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("surveyctl: telemetry: %w", err)
	}

	snap, err := defstore.LoadFile(defPath)
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, nil, nil, fmt.Errorf("surveyctl: load definition: %w", err)
	}

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Path:            cfg.Storage.Path,
		Database:        cfg.Storage.Database,
		ServerMode:      cfg.Storage.ServerMode,
		ServerHost:      cfg.Storage.ServerHost,
		ServerPort:      cfg.Storage.ServerPort,
		ServerUser:      cfg.Storage.ServerUser,
		ServerPassword:  cfg.Storage.ServerPassword,
		ServerTLS:       cfg.Storage.ServerTLS,
		RetryMaxElapsed: cfg.Storage.RetryMaxElapsed,
	})
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, nil, nil, fmt.Errorf("surveyctl: open storage: %w", err)
	}

	prop := propagate.New(snap, store, store)
	eng := survey.New(prop, store, store, store)

	shutdown := func(ctx context.Context) error {
		closeErr := store.Close()
		telErr := shutdownTelemetry(ctx)
		if closeErr != nil {
			return closeErr
		}
		return telErr
	}
	return eng, snap, shutdown, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
