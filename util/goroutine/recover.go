package goroutine

import (
	"fmt"
	"os"
	"runtime"

	"go.uber.org/zap"
)

const stackBufferSize = 4096

// Recover logs a recovered panic from a background goroutine. Use as
// `defer goroutine.Recover("escalation-sweep", logger)` so a panicking
// sweep or worker does not take the whole process down. With a nil
// logger it falls back to stderr.
func Recover(name string, logger *zap.SugaredLogger) {
	r := recover()
	if r == nil {
		return
	}

	buf := make([]byte, stackBufferSize)
	n := runtime.Stack(buf, false)

	if logger != nil {
		logger.Errorw("Goroutine panic recovered",
			"goroutine", name,
			"panic", r,
			"stack", string(buf[:n]))
		return
	}
	fmt.Fprintf(os.Stderr, "PANIC in goroutine %s: %v\n%s\n", name, r, string(buf[:n]))
}
