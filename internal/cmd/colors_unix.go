//go:build !windows

package cmd

import (
	"os"

	"golang.org/x/sys/unix"
)

// stdoutSize reports the column count of stdout and whether it is a
// terminal. A redirect to /dev/null is a character device but not a tty.
func stdoutSize() (int, bool) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, false
	}
	return int(ws.Col), true
}
