package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aelous/read-bridge/internal/cache"
	"github.com/aelous/read-bridge/internal/cli"
	"github.com/aelous/read-bridge/internal/db"
	"github.com/aelous/read-bridge/internal/job"
	"github.com/aelous/read-bridge/internal/logging"
	"github.com/aelous/read-bridge/internal/translation"
	"github.com/aelous/read-bridge/internal/workset"
)

// runTranslate runs one work set to completion in the foreground. The work
// set is read from --file, or stdin when --file is "-".
func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	file := fs.String("file", "-", "Work set JSON file, or - for stdin")
	provider := fs.String("provider", "", "Translation provider name (default from TRANSLATION_PROVIDER)")
	batchSize := fs.Int("batch-size", 0, "Override the work set batch size")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "translate does not accept positional arguments")
		return 2
	}

	payload, err := readWorkSetPayload(*file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ws, err := workset.Parse(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid work set: %v\n", err)
		return 2
	}
	if *batchSize > 0 {
		ws.BatchSize = *batchSize
	}

	cfg, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	translationCache := cache.New(pool, logger)
	registry := translation.NewRegistryFromEnv()
	controller := job.NewController(translationCache, registry, logger, job.Options{
		Provider:    *provider,
		SourceLang:  cfg.SourceLang,
		TargetLang:  cfg.TargetLang,
		BatchSize:   cfg.BatchSize,
		WindowDelay: cfg.BatchDelay(),
	})

	done := make(chan *job.Snapshot, 1)
	unsubscribe := controller.Subscribe(func(snap *job.Snapshot) {
		if snap == nil {
			return
		}
		fmt.Printf("%s  %d/%d units (%d%%)\n", snap.Status, snap.CompletedUnits, snap.TotalUnits, snap.ProgressPercent)
		if snap.Status.Terminal() {
			select {
			case done <- snap:
			default:
			}
		}
	})
	defer unsubscribe()

	if _, err := controller.Start(context.Background(), job.StartRequest{
		OwnerID:    ws.OwnerID,
		Title:      ws.Title,
		Units:      ws.WorkUnits(),
		BatchSize:  ws.BatchSize,
		SourceLang: ws.SourceLang,
		TargetLang: ws.TargetLang,
	}); err != nil {
		if errors.Is(err, job.ErrAlreadyComplete) {
			fmt.Println("all units already translated")
			return 0
		}
		fmt.Fprintf(os.Stderr, "Failed to start job: %v\n", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case snap := <-done:
		if snap.Status == job.StatusFailed {
			fmt.Fprintf(os.Stderr, "Job failed: %s\n", snap.ErrorMessage)
			return 1
		}
		return 0
	case <-sigCh:
		_ = controller.Stop()
		fmt.Fprintln(os.Stderr, "interrupted, job discarded")
		return 130
	}
}

func readWorkSetPayload(path string) ([]byte, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read work set from stdin: %w", err)
		}
		return payload, nil
	}

	payload, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read work set file: %w", err)
	}
	return payload, nil
}
