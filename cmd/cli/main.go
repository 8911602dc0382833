package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kadavilrahul/github-repo-sync/internal/aggregator"
	"github.com/kadavilrahul/github-repo-sync/internal/backup"
	"github.com/kadavilrahul/github-repo-sync/internal/config"
	"github.com/kadavilrahul/github-repo-sync/internal/discovery"
	"github.com/kadavilrahul/github-repo-sync/internal/domain"
	"github.com/kadavilrahul/github-repo-sync/internal/gitlab"
	"github.com/kadavilrahul/github-repo-sync/internal/mirror"
	"github.com/kadavilrahul/github-repo-sync/internal/scheduler"
	"github.com/kadavilrahul/github-repo-sync/internal/state"
	"github.com/kadavilrahul/github-repo-sync/internal/storage"
	"github.com/kadavilrahul/github-repo-sync/internal/storage/postgres"
	"github.com/kadavilrahul/github-repo-sync/internal/storage/sqlite"
	"github.com/kadavilrahul/github-repo-sync/internal/syncer"
)

var (
	outputJSON bool
	logLevel   string
	parallel   int
)

var rootCmd = &cobra.Command{
	Use:   "repo-sync",
	Short: "GitHub repository sync tool",
	Long: `A CLI tool that discovers every repository of a GitHub account and
replicates each one to a GitLab mirror and a local backup directory.

Every run re-mirrors in full: the GitLab project's ref set is replaced to
exactly match the source, and local backups are fresh clones that discard
whatever was at the backup path before.`,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror to GitLab and back up locally",
	Long:  `Run a full sync: every non-empty repository is mirrored to GitLab and cloned into the local backup directory.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(domain.ModeBoth)
	},
}

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror to GitLab only",
	Long:  `Run a secondary-host-only sync: every non-empty repository is mirrored to GitLab; no local backups are written.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(domain.ModeMirror)
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up locally only",
	Long:  `Run a backup-only sync: every non-empty repository is cloned into the local backup directory; GitLab is not touched.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(domain.ModeBackup)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state and recent runs",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the automatic triggers in the foreground",
	Long: `Run the scheduling substrate: a gated run fires at startup when at least
12 hours have passed since the last successful sync, and ungated runs fire on
the fixed twice-daily schedule. Stop with SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

var daemonMode string

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output logs and results in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().IntVar(&parallel, "parallel", 0, "number of concurrent repositories (default from PARALLEL, 1 = sequential)")

	daemonCmd.Flags().StringVar(&daemonMode, "mode", string(domain.ModeBoth), "sync mode for automatic runs: mirror, backup, both")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(mirrorCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(daemonCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogger creates a configured slog.Logger
func setupLogger(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func getStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	default:
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	}
}

// buildSyncer wires the orchestrator and its collaborators from config.
// The returned storage must be closed by the caller.
func buildSyncer(cfg *config.Config, mode domain.SyncMode, logger *slog.Logger, onProgress syncer.ProgressFunc) (*syncer.Syncer, storage.Storage, error) {
	store, err := getStorage(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	sourceAuth := &githttp.BasicAuth{Username: cfg.GitHubUsername, Password: cfg.GitHubToken}

	var mirrorEngine syncer.MirrorEngine
	if mode.IncludesMirror() {
		gl := gitlab.NewClient(cfg.GitLabHost, cfg.GitLabUsername, cfg.GitLabToken)
		targetAuth := &githttp.BasicAuth{Username: cfg.GitLabUsername, Password: cfg.GitLabToken}
		mirrorEngine = mirror.New(gl, sourceAuth, targetAuth, logger)
	}

	var backupEngine syncer.BackupEngine
	if mode.IncludesBackup() {
		backupEngine = backup.New(cfg.BackupRoot, sourceAuth, logger)
	}

	s := syncer.New(
		discovery.NewGitHubDiscoverer(cfg.GitHubToken),
		mirror.NewProber(sourceAuth),
		mirrorEngine,
		backupEngine,
		state.NewStore(cfg.StatePath),
		store,
		syncer.Options{
			Parallel:   cfg.Parallel,
			ScratchDir: cfg.ScratchDir,
			LogPath:    cfg.LogPath,
			OnProgress: onProgress,
		},
		logger,
	)
	return s, store, nil
}

// runSync performs one interactive sync run. Per-repository failures never
// cause a non-zero exit; only configuration, lock, and discovery-level
// failures do.
func runSync(mode domain.SyncMode) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if parallel > 0 {
		cfg.Parallel = parallel
	}
	if err := cfg.ValidateForMode(mode); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(logLevel, outputJSON)

	lock := state.NewLock(cfg.LockPath)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	onProgress := func(repo string, status domain.OutcomeStatus, done, total int) {
		if outputJSON {
			return
		}
		pct := float64(done) / float64(total) * 100
		var label string
		switch status {
		case domain.OutcomeSuccess:
			label = "OK"
		case domain.OutcomeSkipped:
			label = "SKIP"
		default:
			label = "FAIL"
		}
		fmt.Printf("[%3.0f%%] [%-5s] %s\n", pct, label, repo)
	}

	s, store, err := buildSyncer(cfg, mode, logger, onProgress)
	if err != nil {
		return err
	}
	defer store.Close()

	if !outputJSON {
		fmt.Printf("Starting %s sync...\n", mode)
	}

	result, err := s.Run(context.Background(), mode)
	if err != nil {
		return err
	}

	if outputJSON {
		out, _ := json.Marshal(result)
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("\nSync complete: %d processed, %d succeeded, %d failed\n",
		result.Processed, result.Succeeded, result.Processed-result.Succeeded)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	st := state.NewStore(cfg.StatePath)
	last, ok, err := st.Load()
	if err != nil {
		return err
	}
	gateOpen, err := st.Gate(time.Now())
	if err != nil {
		return err
	}

	store, err := getStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.GetRecentRuns(ctx, 10)
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}
	summary, err := aggregator.NewAggregator(store).Summarize(ctx, 20)
	if err != nil {
		return fmt.Errorf("failed to summarize runs: %w", err)
	}

	if outputJSON {
		status := &domain.SyncStatus{GateOpen: gateOpen}
		if ok {
			status.LastSyncAt = &last
			next := last.Add(state.GateInterval)
			status.NextEligibleAt = &next
		}
		out, _ := json.Marshal(map[string]interface{}{
			"state":   status,
			"summary": summary,
			"runs":    runs,
		})
		fmt.Println(string(out))
		return nil
	}

	fmt.Println("\nSync Status")
	if ok {
		fmt.Printf("Last successful sync: %s (%s ago)\n", last.Format("2006-01-02 15:04:05"), time.Since(last).Round(time.Minute))
	} else {
		fmt.Println("Last successful sync: never")
	}
	fmt.Printf("Trigger gate open: %v\n\n", gateOpen)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Started", "Mode", "Processed", "Succeeded"})
	for _, run := range runs {
		table.Append([]string{
			run.StartedAt.Format("2006-01-02 15:04"),
			string(run.Mode),
			fmt.Sprintf("%d", run.Processed),
			fmt.Sprintf("%d", run.Succeeded),
		})
	}
	table.Render()

	if summary.TotalRuns > 0 {
		fmt.Printf("\n%d runs recorded, success rate %.1f%%\n", summary.TotalRuns, summary.SuccessRate*100)
	}
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	mode := domain.SyncMode(daemonMode)
	if !mode.Valid() {
		return fmt.Errorf("invalid mode %q: must be mirror, backup, or both", daemonMode)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if parallel > 0 {
		cfg.Parallel = parallel
	}
	if err := cfg.ValidateForMode(mode); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(logLevel, outputJSON)

	s, store, err := buildSyncer(cfg, mode, logger, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(s, state.NewStore(cfg.StatePath), state.NewLock(cfg.LockPath), mode, logger)
	return sched.Start(ctx)
}
