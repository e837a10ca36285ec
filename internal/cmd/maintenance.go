package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/tally/internal/config"
)

var maintenanceCmd = &cobra.Command{
	Use:     "maintenance",
	Short:   "Database maintenance",
	GroupID: groupSetup,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove orphaned links, unqueued events and unused tags",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

var backupCmd = &cobra.Command{
	Use:   "backup [dest]",
	Short: "Write a consistent copy of the database",
	Long: `Write a consistent copy of the database to dest. Without dest, the
copy goes to the state directory's backups folder. An existing file is
never overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackup,
}

func init() {
	maintenanceCmd.AddCommand(pruneCmd)
	maintenanceCmd.AddCommand(backupCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := s.store.PruneOrphans(ctx)
	if err != nil {
		return err
	}

	if res.Total() == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}
	fmt.Printf("%sPruned%s %d row(s)\n", colorGreen, colorReset, res.Total())
	fmt.Printf("  queue links: %d\n", res.QueueEvents)
	fmt.Printf("  events:      %d\n", res.Events)
	fmt.Printf("  tag links:   %d\n", res.EventTags)
	fmt.Printf("  tags:        %d\n", res.Tags)
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	dest := defaultBackupPath(config.DefaultPaths(), time.Now())
	if len(args) == 1 {
		dest = args[0]
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if err := s.store.Backup(ctx, dest); err != nil {
		return err
	}

	fmt.Printf("%sBacked up%s to %s\n", colorGreen, colorReset, dest)
	return nil
}

func defaultBackupPath(paths *config.Paths, now time.Time) string {
	return filepath.Join(paths.BackupDir(), "tally-"+now.UTC().Format("20060102-150405")+".db")
}
