package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/runger/tally/internal/cmd.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print version information",
	GroupID: groupSetup,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Println(Version)
			return
		}
		commit, built := buildStamp(GitCommit, BuildDate)
		fmt.Printf("tally %s\n", Version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", built)
		fmt.Printf("  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionShort, "short", "s", false, "print only the version number")
}

// buildStamp fills an unset commit or date from the VCS info the go tool
// embeds, so a plain "go install" still reports where it came from.
func buildStamp(commit, date string) (string, string) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit, date
	}
	return stampFromSettings(info.Settings, commit, date)
}

func stampFromSettings(settings []debug.BuildSetting, commit, date string) (string, string) {
	var revision, modified string
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		case "vcs.time":
			if date == "unknown" && s.Value != "" {
				date = s.Value
			}
		}
	}
	if commit == "unknown" && revision != "" {
		if len(revision) > 12 {
			revision = revision[:12]
		}
		commit = revision
		if modified == "true" {
			commit += "-dirty"
		}
	}
	return commit, date
}
