package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/hotitems/internal/loadgen"
)

// Default configuration constants.
const (
	defaultItems       = 200
	defaultLikes       = 5000
	defaultTopN        = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		items   = flag.Int("items", defaultItems, "Number of items to create")
		likes   = flag.Int("likes", defaultLikes, "Total likes to send")
		topN    = flag.Int("top", defaultTopN, "Hot list size to verify")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile = flag.String("log", "", "Log file (default: loadgen_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Log every failed request")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	closer, err := loadgen.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	_, err = loadgen.Run(ctx, &loadgen.Config{
		BaseURL: *baseURL,
		Items:   *items,
		Likes:   *likes,
		TopN:    *topN,
		Workers: *workers,
		Timeout: *timeout,
		Verbose: *verbose,
	})
	cancel()
	_ = closer.Close()
	if err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
