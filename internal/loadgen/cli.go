package loadgen

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/hotitems/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging sends logs to stdout and to logFile. An empty logFile gets a
// timestamped name.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadgen_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Hot Items Load Tool
===================

Creates items, likes them concurrently and checks that the hot list matches
the likes the service acknowledged.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -items int         Number of items to create (default 200)
  -likes int         Total likes to send (default 5000)
  -top int           Hot list size to verify (default 50)
  -workers int       Number of concurrent workers (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 30s)
  -log string        Log file (default: loadgen_TIMESTAMP.log)
  -verbose           Log every failed request
  -help              Show this help message
`)
}
