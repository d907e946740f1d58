package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	internal "watchtest/internal"
	"watchtest/internal/config"
	"watchtest/internal/filter"
	"watchtest/internal/runner"
	"watchtest/internal/scheduler"
	"watchtest/internal/selector"
	"watchtest/internal/watcher"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is injected at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "watchtest",
	Short: "Watch a JVM source tree and run the affected Maven tests on change",
	Long: `watchtest monitors a project's source and test trees, coalesces bursts of
file changes into batches, maps each batch to the minimal set of affected
test classes, and runs them through Maven. Changes observed while a run is
in flight are queued and processed once the run finishes; a failed run keeps
its batch at the front of the queue for the next trigger.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.StringP("config", "c", "", "config file (default is ./watchtest.yaml)")
	flags.String("source-dir", internal.DefaultSourceDirectory, "source directory to watch")
	flags.String("test-dir", internal.DefaultTestDirectory, "test source directory to watch")
	flags.StringSlice("watch-dir", nil, "additional directories to watch")
	flags.Int64("debounce-ms", internal.DefaultDebounce.Milliseconds(), "quiet period before a batch is emitted, in milliseconds")
	flags.Bool("watch", true, "continuous monitoring; false runs once and exits")
	flags.Bool("recursive", true, "watch subdirectories recursively")
	flags.StringSlice("include", nil, "glob patterns of files to include")
	flags.StringSlice("exclude", nil, "glob patterns of files and directories to exclude")
	flags.String("groups", "", "tag expression of tests to include")
	flags.String("excluded-groups", "", "tag expression of tests to exclude")
	flags.Int("timeout-minutes", 0, "abort a test run after this many minutes (0 disables)")
	flags.BoolP("verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("sourceDirectory", flags.Lookup("source-dir"))
	_ = viper.BindPFlag("testSourceDirectory", flags.Lookup("test-dir"))
	_ = viper.BindPFlag("watchDirectories", flags.Lookup("watch-dir"))
	_ = viper.BindPFlag("debounceMs", flags.Lookup("debounce-ms"))
	_ = viper.BindPFlag("watchMode", flags.Lookup("watch"))
	_ = viper.BindPFlag("recursive", flags.Lookup("recursive"))
	_ = viper.BindPFlag("includes", flags.Lookup("include"))
	_ = viper.BindPFlag("excludes", flags.Lookup("exclude"))
	_ = viper.BindPFlag("watcherGroups", flags.Lookup("groups"))
	_ = viper.BindPFlag("watcherExcludedGroups", flags.Lookup("excluded-groups"))
	_ = viper.BindPFlag("testTimeoutMinutes", flags.Lookup("timeout-minutes"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("config", flags.Lookup("config"))
}

func initConfig() {
	config.SetDefaults()
}

func run() error {
	cfg, err := config.LoadConfig(viper.GetString("config"))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogging(cfg.Verbose)
	printBanner()

	logger := internal.GetLogger()
	logger.Info().
		Str("source", cfg.SourceDirectory).
		Str("tests", cfg.TestSourceDirectory).
		Str("mode", watchModeName(cfg.WatchMode)).
		Int64("debounce_ms", cfg.DebounceMs).
		Msg("Starting file watcher")

	if groups := cfg.EffectiveGroups(); strings.TrimSpace(groups) != "" {
		logger.Info().Str("groups", groups).Msg("Tag filtering enabled")
	}
	if excluded := cfg.EffectiveExcludedGroups(); strings.TrimSpace(excluded) != "" {
		logger.Info().Str("excluded_groups", excluded).Msg("Tag filtering enabled")
	}
	if cfg.RerunFailingTestsCount > 0 {
		logger.Info().Int("count", cfg.RerunFailingTestsCount).Msg("Rerun failing tests enabled")
	}

	projectDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current working directory: %w", err)
	}

	pathFilter := buildFilter(cfg)
	sel := selector.New(cfg.SourceDirectory, cfg.TestSourceDirectory, cfg.Verbose)
	mvn := runner.NewMavenRunner(projectDir, cfg)
	queue := scheduler.New()
	orch := scheduler.NewOrchestrator(queue, sel, mvn, cfg.WatchMode)

	w, err := watcher.NewWatcher(watcher.WatcherConfig{
		Roots:        cfg.WatchPaths(),
		Debounce:     cfg.Debounce(),
		PollInterval: internal.DefaultPollInterval,
		Recursive:    cfg.Recursive,
		Filter:       pathFilter,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stopping the watch loop must not interrupt an in-flight run, so the
	// orchestrator gets its own context; the runner bounds it with the
	// configured timeout.
	var runErr error
	onChanged := func(changedFiles []string) {
		if err := orch.HandleBatch(context.Background(), changedFiles); err != nil {
			if cfg.WatchMode {
				logger.Error().Err(err).Msg("Error handling file changes")
				return
			}
			runErr = err
		}
	}

	if err := w.Watch(ctx, onChanged, cfg.WatchMode); err != nil {
		if errors.Is(err, watcher.ErrAlreadyRunning) {
			return err
		}
		return fmt.Errorf("failed to watch files: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	logger.Info().Msg("File watcher stopped")
	return nil
}

// buildFilter returns the configured path filter, defaulting to Java/Kotlin
// sources when no patterns are set.
func buildFilter(cfg *config.Config) *filter.PathFilter {
	if len(cfg.Includes) == 0 && len(cfg.Excludes) == 0 {
		return filter.ForTargetCode()
	}
	return filter.New(cfg.Includes, cfg.Excludes)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func watchModeName(watchMode bool) string {
	if watchMode {
		return "continuous"
	}
	return "one-shot"
}

func printBanner() {
	title := fmt.Sprintf("watchtest v%s", version)
	subtitle := "File change detection & auto testing"
	width := len(subtitle) + 6

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "╔"+strings.Repeat("═", width)+"╗")
	fmt.Fprintln(os.Stderr, "║"+center(title, width)+"║")
	fmt.Fprintln(os.Stderr, "║"+center(subtitle, width)+"║")
	fmt.Fprintln(os.Stderr, "╚"+strings.Repeat("═", width)+"╝")
	fmt.Fprintln(os.Stderr)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-len(s)-left)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
