//go:build windows

package cmd

import (
	"os"

	"golang.org/x/sys/windows"
)

// stdoutSize reports the visible console width of stdout and whether it is
// a console at all.
func stdoutSize() (int, bool) {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(os.Stdout.Fd()), &info); err != nil {
		return 0, false
	}
	return int(info.Window.Right-info.Window.Left) + 1, true
}
