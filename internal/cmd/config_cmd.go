package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/tally/internal/config"
	"github.com/runger/tally/internal/storage"
)

var configCmd = &cobra.Command{
	Use:     "config [key] [value]",
	Short:   "Get or set configuration values",
	GroupID: groupSetup,
	Long: `Show or change tally settings in ~/.config/tally/config.yaml.

With no arguments every key is listed by section; keys that differ from the
default are starred. One argument prints a key, two set it.

Order keys take the same tokens as --order:
  display.queue_order  ` + strings.Join(storage.QueueOrderTokens(), ", ") + `
  display.event_order  ` + strings.Join(storage.EventOrderTokens(), ", ") + `

Examples:
  tally config
  tally config display.event_order timestamp_desc
  tally config log.level debug`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	paths := config.DefaultPaths()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch len(args) {
	case 0:
		return listConfig(cfg, paths)
	case 1:
		return getConfig(cfg, args[0])
	default:
		return setConfig(cfg, paths, args[0], args[1])
	}
}

func listConfig(cfg *config.Config, paths *config.Paths) error {
	defaults := config.DefaultConfig()
	section := ""
	for _, key := range config.ListKeys() {
		value, err := cfg.Get(key)
		if err != nil {
			return err
		}
		if prefix, _, _ := strings.Cut(key, "."); prefix != section {
			if section != "" {
				fmt.Println()
			}
			section = prefix
			fmt.Printf("%s[%s]%s\n", colorBold, section, colorReset)
		}

		shown := value
		if shown == "" {
			shown = colorDim + "(not set)" + colorReset
		}
		if def, err := defaults.Get(key); err == nil && def != value {
			shown += " " + colorYellow + "*" + colorReset
		}
		fmt.Printf("  %s%s%s = %s\n", colorCyan, key, colorReset, shown)
	}

	fmt.Println()
	fmt.Printf("Config file: %s\n", paths.ConfigFile())
	fmt.Printf("Database:    %s\n", cfg.DatabasePath())
	return nil
}

func getConfig(cfg *config.Config, key string) error {
	value, err := cfg.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		fmt.Printf("%s(not set)%s\n", colorDim, colorReset)
		return nil
	}
	fmt.Println(value)
	return nil
}

// setConfig saves the whole loaded config, so values repaired on load are
// written back along with the new one.
func setConfig(cfg *config.Config, paths *config.Paths, key, value string) error {
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := cfg.SaveToFile(paths.ConfigFile()); err != nil {
		return err
	}

	fmt.Printf("%s%s%s = %s\n", colorCyan, key, colorReset, value)
	fmt.Printf("Saved to: %s\n", paths.ConfigFile())
	return nil
}
