/*
main.go - Application entry point

PURPOSE:
  Runs the monthly VR benefit pipeline, either as a one-shot batch
  (default) or as the stage-runner HTTP service (-serve).

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load TOML config (flags override individual values)
  3. Build the logger and the pipeline runner
  4. Batch mode: run the requested stage(s) and exit
     Serve mode: start the HTTP API with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to the TOML config file (optional; defaults apply)
  -stage   Run a single stage (consolidate|exclude|calculate|validate|format)
  -input   Override the source-spreadsheet directory
  -output  Override the artifact/deliverable directory
  -serve   Start the stage-runner HTTP API instead of a batch run
  -port    HTTP port for -serve (default: 8080)

GRACEFUL SHUTDOWN (serve mode):
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for the in-flight stage to complete (30s timeout)
  3. Close the decision cache
  4. Exit

EXAMPLES:
  # Full monthly run
  ./vrcalc -config=vrcalc.toml

  # Re-run only the exclusion stage after fixing the classifier config
  ./vrcalc -config=vrcalc.toml -stage=exclude

  # Operate remotely
  ./vrcalc -config=vrcalc.toml -serve -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - pipeline/pipeline.go: Stage orchestration
  - pipeline/config.go: The TOML file format
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/voucher-engine/api"
	"github.com/warp/voucher-engine/pipeline"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to TOML config file")
	stage := flag.String("stage", "", "Run a single stage instead of the whole pipeline")
	inputDir := flag.String("input", "", "Override input directory")
	outputDir := flag.String("output", "", "Override output directory")
	serve := flag.Bool("serve", false, "Start the stage-runner HTTP API")
	port := flag.Int("port", 8080, "HTTP server port (with -serve)")
	flag.Parse()

	// Configuration
	cfg := pipeline.DefaultConfig()
	if *configPath != "" {
		loaded, err := pipeline.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *inputDir != "" {
		cfg.Input.Dir = *inputDir
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}

	log, err := pipeline.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	runner, err := pipeline.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("runner init failed", zap.Error(err))
	}
	defer runner.Close()

	if *serve {
		runServer(runner, log, *port)
		return
	}
	runBatch(runner, log, *stage)
}

// runBatch executes one stage or the whole pipeline and exits.
func runBatch(runner *pipeline.Runner, log *zap.Logger, stage string) {
	ctx := context.Background()

	if stage != "" {
		status, err := runner.RunStage(ctx, pipeline.Stage(stage))
		if err != nil {
			log.Fatal("stage failed", zap.String("stage", stage), zap.Error(err))
		}
		log.Info("stage complete",
			zap.String("stage", stage),
			zap.Any("counts", status.Counts))
		return
	}

	statuses, err := runner.RunAll(ctx)
	if err != nil {
		log.Fatal("pipeline halted", zap.Error(err))
	}
	for _, s := range statuses {
		log.Info("stage complete",
			zap.String("stage", string(s.Stage)),
			zap.Any("counts", s.Counts))
	}
}

// runServer starts the stage-runner API with graceful shutdown.
func runServer(runner *pipeline.Runner, log *zap.Logger, port int) {
	handler := api.NewHandler(runner, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
		// Stages can take minutes against a slow classifier; no write
		// timeout, but keep reads bounded.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("stage runner listening", zap.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}
	log.Info("stopped")
}
