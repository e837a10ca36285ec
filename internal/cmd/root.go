package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/tally/internal/config"
	tallylog "github.com/runger/tally/internal/log"
	"github.com/runger/tally/internal/storage"
)

const (
	groupCore  = "core"
	groupSetup = "setup"
)

// commandTimeout bounds a single non-interactive command.
const commandTimeout = 30 * time.Second

var dbPathFlag string

var rootCmd = &cobra.Command{
	Use:   "tally",
	Short: "tag and count the things that happen",
	Long: `tally - a tag-based event tracker
  - queues collect timestamped events
  - events carry tags from their queue's namespace
  - tag suggestions narrow as you type`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyColorMode()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Tracking:"},
		&cobra.Group{ID: groupSetup, Title: "Setup:"},
	)
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "database path (overrides storage.db_path)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "color output: auto, always, or never")

	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens the store a command works against. Tests replace it.
var openStore = func(path string, opts *storage.Options) (storage.Store, error) {
	return storage.NewSQLiteStore(path, opts)
}

// session bundles what a storage-backed command needs.
type session struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger

	closers []io.Closer
}

// openSession loads configuration, builds the logger and opens the store.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPathFlag != "" {
		cfg.Storage.DBPath = dbPathFlag
	}

	s := &session{cfg: cfg}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	if logFile != nil {
		s.closers = append(s.closers, logFile)
	}
	s.logger = logger

	dbPath := cfg.DatabasePath()
	tallylog.LogStartup(logger, tallylog.StartupInfo{
		Version:      Version,
		ConfigPath:   config.DefaultPaths().ConfigFile(),
		DatabasePath: dbPath,
		Command:      cmd.CommandPath(),
	})

	store, err := openStore(dbPath, &storage.Options{
		Logger:        logger,
		BusyTimeoutMs: cfg.Storage.BusyTimeoutMs,
		TagCacheSize:  cfg.Storage.TagCacheSize,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	s.store = store

	return s, nil
}

// Close closes the store, then the log file.
func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close store", "error", err)
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// newLogger builds the JSON logger described by cfg.Log. The returned file
// is non-nil when logging goes to log.file.
func newLogger(cfg *config.Config) (*slog.Logger, *os.File, error) {
	level, err := tallylog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	logCfg := tallylog.DefaultConfig()
	logCfg.Level = level
	logCfg.Debug = os.Getenv("TALLY_DEBUG") == "1"

	var file *os.File
	if cfg.Log.File != "" {
		file, err = tallylog.OpenFile(cfg.Log.File)
		if err != nil {
			return nil, nil, err
		}
		logCfg.Output = file
	}

	return tallylog.New(logCfg), file, nil
}

// commandContext returns the context storage calls run under.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, commandTimeout)
}
