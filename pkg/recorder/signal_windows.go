//go:build windows

package recorder

import "os"

// interruptSignal falls back to Kill on Windows, where sending SIGINT to a
// child process is not supported.
func interruptSignal() os.Signal {
	return os.Kill
}
