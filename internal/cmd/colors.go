package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
)

// ANSI color codes for terminal output.
// These are initialized in init() and may be disabled on certain platforms.
var (
	colorRed    string
	colorGreen  string
	colorYellow string
	colorCyan   string
	colorDim    string
	colorBold   string
	colorReset  string
)

// colorMode is bound to the root --color flag: auto, always, or never.
var colorMode = "auto"

func init() {
	enableColors()
	if shouldDisableColors() {
		disableColors()
	}
}

func enableColors() {
	colorRed = "\033[0;31m"
	colorGreen = "\033[0;32m"
	colorYellow = "\033[0;33m"
	colorCyan = "\033[0;36m"
	colorDim = "\033[2m"
	colorBold = "\033[1m"
	colorReset = "\033[0m"
}

func disableColors() {
	colorRed = ""
	colorGreen = ""
	colorYellow = ""
	colorCyan = ""
	colorDim = ""
	colorBold = ""
	colorReset = ""
}

// applyColorMode resolves colorMode against the environment and stdout.
func applyColorMode() error {
	switch colorMode {
	case "always":
		enableColors()
	case "never":
		disableColors()
	case "auto", "":
		if shouldDisableColors() || !stdoutIsTerminal() {
			disableColors()
		} else {
			enableColors()
		}
	default:
		return fmt.Errorf("unknown color mode %q (want auto, always, or never)", colorMode)
	}
	return nil
}

func shouldDisableColors() bool {
	// Check NO_COLOR environment variable (https://no-color.org/)
	if os.Getenv("NO_COLOR") != "" {
		return true
	}

	if os.Getenv("TERM") == "dumb" {
		return true
	}

	// Older Windows consoles do not render ANSI sequences.
	if runtime.GOOS == "windows" {
		if os.Getenv("WT_SESSION") != "" || os.Getenv("TERM_PROGRAM") != "" {
			return false
		}
		return os.Getenv("ANSICON") == "" && os.Getenv("ConEmuANSI") != "ON"
	}

	return false
}

func stdoutIsTerminal() bool {
	_, ok := stdoutSize()
	return ok
}

// terminalWidth returns the width of stdout, then $COLUMNS, then 80.
func terminalWidth() int {
	if w, ok := stdoutSize(); ok && w > 0 {
		return w
	}
	if w, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && w > 0 {
		return w
	}
	return 80
}
