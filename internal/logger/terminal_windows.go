//go:build windows

package logger

// isTerminal reports whether the file descriptor is a terminal.
// Color output is disabled on Windows; classic consoles do not
// interpret ANSI escape sequences without extra console-mode setup.
func isTerminal(fd uintptr) bool {
	return false
}
