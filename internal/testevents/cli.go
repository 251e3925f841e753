package testevents

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/sitelog/pkg/logger"
)

const logFilePermission = 0600

// Usage returns a flag.Usage func for fs.
func Usage(fs *flag.FlagSet) func() {
	return func() {
		w := fs.Output()
		fmt.Fprintf(w, "usage: %s [flags]\n\n", fs.Name())
		fmt.Fprintln(w, "Replays synthetic visitor sessions against a collector and checks the stored records.")
		fmt.Fprintln(w)
		fs.PrintDefaults()
	}
}

// OpenLog sends the global logger to stdout and to logFile, named
// simulate_<timestamp>.log when empty. The caller closes the file.
func OpenLog(logFile string, verbose bool) (io.Closer, string, error) {
	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, "", fmt.Errorf("open log file: %w", err)
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, f))); err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			_ = f.Close()
			return nil, "", err
		}
	}
	return f, logFile, nil
}
