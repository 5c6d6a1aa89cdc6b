package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aelous/read-bridge/internal/cache"
	"github.com/aelous/read-bridge/internal/cli"
)

func runCache(args []string) int {
	if len(args) == 0 {
		printCacheUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printCacheUsage()
		return 0
	case "stats":
		return runCacheStats(args[1:])
	case "purge":
		return runCachePurge(args[1:])
	case "clear":
		return runCacheClear(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown cache subcommand: %s\n\n", args[0])
		printCacheUsage()
		return 2
	}
}

func printCacheUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  read-bridge cache stats [flags]")
	fmt.Fprintln(os.Stderr, "  read-bridge cache purge --owner <owner_id> [flags]")
	fmt.Fprintln(os.Stderr, "  read-bridge cache clear --confirm [flags]")
}

func runCacheStats(args []string) int {
	fs := flag.NewFlagSet("cache stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, _, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := cache.New(pool, zerolog.Nop()).Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query cache stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if err := writeTable(
		[]string{"entries", "owners"},
		[][]string{{fmt.Sprintf("%d", stats.EntryCount), fmt.Sprintf("%d", stats.OwnerCount)}},
	); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}

func runCachePurge(args []string) int {
	fs := flag.NewFlagSet("cache purge", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	owner := fs.String("owner", "", "Owner whose cache entries are deleted")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ownerID := strings.TrimSpace(*owner)
	if ownerID == "" {
		fmt.Fprintln(os.Stderr, "--owner is required")
		return 2
	}

	ctx, cancel, pool, _, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	deleted, err := cache.New(pool, zerolog.Nop()).DeleteByOwner(ctx, ownerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to purge cache entries: %v\n", err)
		return 1
	}

	fmt.Printf("deleted %d entries for owner %s\n", deleted, ownerID)
	return 0
}

func runCacheClear(args []string) int {
	fs := flag.NewFlagSet("cache clear", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	confirm := fs.Bool("confirm", false, "Confirm clearing every cache entry")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if !*confirm {
		fmt.Fprintln(os.Stderr, "refusing to clear the whole cache without --confirm")
		return 2
	}

	ctx, cancel, pool, _, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	deleted, err := cache.New(pool, zerolog.Nop()).ClearAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to clear cache: %v\n", err)
		return 1
	}

	fmt.Printf("deleted %d entries\n", deleted)
	return 0
}
