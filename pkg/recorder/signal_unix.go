//go:build !windows

package recorder

import (
	"os"
	"syscall"
)

// interruptSignal asks ffmpeg to finish writing the output file before
// exiting. SIGINT triggers ffmpeg's graceful shutdown path.
func interruptSignal() os.Signal {
	return syscall.SIGINT
}
