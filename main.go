package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"f0oster/svcspy/config"
	"f0oster/svcspy/history"
	"f0oster/svcspy/logging"
	"f0oster/svcspy/monitor"
	"f0oster/svcspy/services"
	"f0oster/svcspy/snapshot"
	"f0oster/svcspy/statestore"
)

var (
	cfg config.Configuration

	flagEnvFile    string
	flagStateFile  string
	flagTargets    []string
	flagVerbose    bool
	flagHistoryDSN string
)

func main() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "svcspy.env", "env file with SVCSPY_* settings")
	rootCmd.PersistentFlags().StringVar(&flagStateFile, "state", "", "path of the persisted inventory (default "+config.DefaultStateFile+")")
	rootCmd.PersistentFlags().StringSliceVar(&flagTargets, "services", nil, "restrict monitoring to these service names (default: all)")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagHistoryDSN, "history-dsn", "", "Postgres DSN for the optional run-history store")

	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRunE = initConfig

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("svcspy failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "svcspy",
	Short:        "Snapshots Windows services and reports changes between runs",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "capture the current service inventory and diff it against the previous run",
	RunE:  doRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides the version of svcspy",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("svcspy: version info not available")
			return
		}
		fmt.Printf("svcspy: %s\n", info.Main.Version)
		fmt.Printf("go:     %s\n", info.GoVersion)
	},
}

func initConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.LoadEnvConfig(flagEnvFile)
	if err != nil {
		return err
	}

	// flags override the environment
	if flagStateFile != "" {
		cfg.StateFilePath = flagStateFile
	}
	if len(flagTargets) > 0 {
		cfg.TargetNames = flagTargets
	}
	if flagVerbose {
		cfg.Verbose = true
	}
	if flagHistoryDSN != "" {
		cfg.HistoryDSN = flagHistoryDSN
	}
	return nil
}

func doRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.New(cfg.Verbose)
	ctx = logging.ContextAttrs(ctx, slog.Group("svcspy",
		slog.String("cmd", "run"),
		slog.Int("pid", os.Getpid()),
	))

	manager, err := services.Connect()
	if err != nil {
		return fmt.Errorf("connecting to service control manager: %w", err)
	}
	defer manager.Close()

	var historyStore *history.Store
	if cfg.HistoryDSN != "" {
		historyStore = history.NewStore(cfg.HistoryDSN, logger)
		if err := historyStore.Connect(ctx); err != nil {
			logger.WarnContext(ctx, "history store unavailable, continuing without it", "error", err)
			historyStore = nil
		} else {
			defer historyStore.Close()
		}
	}

	prober := services.NewProber(manager, logger)
	snapshotter := snapshot.NewService(manager, prober, logger)
	store := statestore.New(cfg.StateFilePath)

	runner := monitor.NewRunner(snapshotter, store, historyStore, logger)
	result, err := runner.Run(ctx, cfg.TargetNames)
	if err != nil {
		return err
	}

	report, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting report as JSON: %w", err)
	}
	fmt.Println(string(report))
	return nil
}
