package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-import/internal/config"
	"github.com/dvloznov/ledger-import/internal/importer"
	"github.com/dvloznov/ledger-import/internal/ledger"
	"github.com/dvloznov/ledger-import/internal/logger"
	"github.com/dvloznov/ledger-import/internal/pipeline"
	"github.com/dvloznov/ledger-import/internal/source"

	_ "github.com/dvloznov/ledger-import/internal/source/revolut"
	_ "github.com/dvloznov/ledger-import/internal/source/zen"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runImport(log)
	case "check":
		runCheck(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Ledger Import CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  import <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Reconcile statements against the journal and print staged entries")
	fmt.Println("  check     Verify journal references without staging anything")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'import <command> -h' for more information on a command.")
}

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: search standard locations)")
	sourceType := fs.String("source", "", "Only run this source type, e.g. zen or revolut")
	noRename := fs.Bool("no-rename", false, "Do not rename statement files that lack a unique suffix")
	fs.Parse(os.Args[2:])

	res := execute(log, *configPath, *sourceType, *noRename)

	for _, p := range res.Pending {
		fmt.Println(ledger.RenderDirective(p.Entry))
	}
	printInvalid(res)

	fmt.Printf("%d entries staged, %d skipped (no account mapping), %d invalid references\n",
		len(res.Pending), res.SkippedUnmapped, len(res.Invalid))

	if len(res.Invalid) > 0 {
		os.Exit(1)
	}
}

func runCheck(log zerolog.Logger) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (default: search standard locations)")
	sourceType := fs.String("source", "", "Only check this source type")
	fs.Parse(os.Args[2:])

	// Checking must not touch statement files on disk.
	res := execute(log, *configPath, *sourceType, true)

	printInvalid(res)

	if len(res.Invalid) > 0 {
		fmt.Printf("%d invalid references\n", len(res.Invalid))
		os.Exit(1)
	}
	fmt.Println("Journal references are consistent.")
}

func execute(log zerolog.Logger, configPath, sourceType string, noRename bool) *importer.Result {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	opts := pipeline.Options{SourceFilter: sourceType}
	if noRename {
		opts.Renamer = source.NopRenamer{}
	}

	res, err := pipeline.Run(ctx, cfg, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Import run failed")
	}
	return res
}

func printInvalid(res *importer.Result) {
	for _, inv := range res.Invalid {
		if inv.Stale {
			fmt.Fprintf(os.Stderr, "WARNING: stale reference %s (%d postings):\n", inv.ID, inv.Count)
		} else {
			fmt.Fprintf(os.Stderr, "WARNING: duplicate reference %s (%d extra postings):\n", inv.ID, inv.Count)
		}
		for _, ref := range inv.Refs {
			fmt.Fprintf(os.Stderr, "  %s:%d %s\n", ref.Txn.SourceFile, ref.Posting.Line, ref.Posting.Account)
		}
	}
}
