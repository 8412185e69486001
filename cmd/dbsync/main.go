// Command dbsync is the thin CLI wrapper around the core diff-and-apply
// engine: flag parsing and process wiring only, grounded on
// _examples/ErwanMAS-paradump's flag-based main() and its arrayFlags
// repeatable-value idiom.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"dbsync/internal/config"
	"dbsync/internal/coordinator"
	"dbsync/internal/dbsession"
	"dbsync/internal/logging"
	"dbsync/internal/progress"
	"dbsync/internal/worker"
)

// arrayFlags collects repeated --tables values, adapted from
// ErwanMAS-paradump's flag.Value implementation.
type arrayFlags []string

func (a *arrayFlags) String() string {
	out := ""
	for i, v := range *a {
		if i != 0 {
			out += " "
		}
		out += v
	}
	return out
}

func (a *arrayFlags) Set(v string) error {
	*a = append(*a, v)
	return nil
}

const version = "dbsync 1.0.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("dbsync", flag.ContinueOnError)

	argCopy := fs.Bool("copy", false, "copy mode: insert source-only rows")
	argSync := fs.Bool("sync", false, "sync mode: copy plus delete target-only rows")
	argHelp := fs.Bool("help", false, "show usage and exit")
	argVersion := fs.Bool("version", false, "show version and exit")

	argDryRun := fs.Bool("dry-run", false, "preview only, never write to the target")
	argUpdate := fs.Bool("update", false, "also refresh rows that differ on non-key columns")
	argNoFail := fs.Bool("nofail", false, "log and continue past a failing row instead of aborting")
	argDisableBinLog := fs.Bool("disablebinlog", false, "SET SESSION SQL_LOG_BIN=0 on the target")

	argFromHost := fs.String("fromHost", "", "source host")
	argFromPort := fs.Int("fromPort", 3306, "source port")
	argFromUser := fs.String("fromUser", "", "source user")
	argFromPwd := fs.String("fromPwd", "", "source password")
	argFromSchema := fs.String("fromSchema", "", "source schema")

	argToHost := fs.String("toHost", "", "target host")
	argToPort := fs.Int("toPort", 3306, "target port")
	argToUser := fs.String("toUser", "", "target user")
	argToPwd := fs.String("toPwd", "", "target password")
	argToSchema := fs.String("toSchema", "", "target schema")

	var argTables arrayFlags
	fs.Var(&argTables, "tables", "restrict the run to this table (repeatable; default: all common tables)")

	argJobs := fs.Int("jobs", 1, "parallel table workers (0 = hardware concurrency)")
	argPkBulk := fs.Int("pkBulk", 10_000_000, "rows per key-projection page")
	argCompareBulk := fs.Int("compareBulk", 10_000, "rows per fingerprint comparison batch")
	argModifyBulk := fs.Int("modifyBulk", 5_000, "rows per record batch and per target transaction")

	argLogConfig := fs.String("logConfig", "./db-sync-log.xml", "path to an optional logging config file")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *argHelp {
		fs.Usage()
		return 0
	}
	if *argVersion {
		fmt.Println(version)
		return 0
	}

	modeCount := 0
	if *argCopy {
		modeCount++
	}
	if *argSync {
		modeCount++
	}
	if modeCount != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of --copy, --sync, --help, --version is required")
		return 2
	}

	if *argPkBulk <= 0 || *argCompareBulk <= 0 || *argModifyBulk <= 0 {
		fmt.Fprintln(os.Stderr, "--pkBulk, --compareBulk and --modifyBulk must be positive")
		return 3
	}
	if *argJobs < 0 {
		fmt.Fprintln(os.Stderr, "--jobs must be >= 0")
		return 4
	}

	if *argFromHost == "" || *argFromUser == "" || *argFromSchema == "" {
		fmt.Fprintln(os.Stderr, "missing source connection arguments")
		return 10
	}
	if *argToHost == "" || *argToUser == "" || *argToSchema == "" {
		fmt.Fprintln(os.Stderr, "missing target connection arguments")
		return 20
	}

	logCfg, err := config.Load(*argLogConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading --logConfig: %v\n", err)
	}
	if logCfg.Pretty {
		os.Setenv("PRETTY", "1")
	}
	if logCfg.Level == "debug" {
		os.Setenv("DEBUG", "1")
	}
	log, runID := logging.New()

	mode := coordinator.ModeCopy
	if *argSync {
		mode = coordinator.ModeSync
	}
	jobs := *argJobs
	if jobs == 0 {
		jobs = runtime.NumCPU()
	}

	cfg := coordinator.OperationConfig{
		Mode:          mode,
		Update:        *argUpdate,
		DryRun:        *argDryRun,
		DisableBinLog: *argDisableBinLog,
		NoFail:        *argNoFail,
		Jobs:          jobs,
		PkBulk:        *argPkBulk,
		CompareBulk:   *argCompareBulk,
		ModifyBulk:    *argModifyBulk,
	}

	ctx := context.Background()
	runStart := time.Now()

	bootstrapSrc := dbsession.New()
	if err := bootstrapSrc.Open(ctx, *argFromHost, *argFromPort, *argFromSchema, *argFromUser, *argFromPwd); err != nil {
		log.Error().Err(err).Msg("connecting to source")
		return 11
	}
	defer bootstrapSrc.Close()

	bootstrapDst := dbsession.New()
	if err := bootstrapDst.Open(ctx, *argToHost, *argToPort, *argToSchema, *argToUser, *argToPwd); err != nil {
		log.Error().Err(err).Msg("connecting to target")
		return 21
	}
	defer bootstrapDst.Close()

	srcNames, err := bootstrapSrc.LoadTableNames(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading source table list")
		return 12
	}
	dstNames, err := bootstrapDst.LoadTableNames(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading target table list")
		return 22
	}

	coord := coordinator.New(cfg, log)
	if err := coord.CheckTables(srcNames, dstNames, argTables); err != nil {
		log.Error().Err(err).Msg("validating table list")
		return 30
	}
	if err := coord.CheckMetadata(ctx, bootstrapSrc, bootstrapDst); err != nil {
		log.Error().Err(err).Msg("validating table metadata")
		return 31
	}

	if err := coord.PreExecute(ctx, bootstrapDst); err != nil {
		log.Error().Err(err).Msg("pre-execute SET statements")
		return 40
	}

	releaseSignals := coord.InstallSignalHandler()
	defer releaseSignals()

	reporter := progress.NewReporter(log)
	var hadRowErrors atomic.Bool

	// One TableWorker per dispatch slot, opened lazily on that slot's first
	// table and reused for the rest of the run — workerID indexes this slice
	// one-to-one with the goroutines coord.Run spawns, so no locking is
	// needed across slots. Each slot's own target connection replays the
	// UNIQUE_CHECKS/FOREIGN_KEY_CHECKS/SQL_LOG_BIN sequence once, right after
	// it opens, since those are session-scoped and not inherited from
	// bootstrapDst's connection.
	workers := make([]*worker.TableWorker, jobs)

	runErr := coord.Run(ctx, jobs, func(ctx context.Context, workerID int, table string) error {
		tw := workers[workerID]
		if tw == nil {
			src := dbsession.New()
			if err := src.Open(ctx, *argFromHost, *argFromPort, *argFromSchema, *argFromUser, *argFromPwd); err != nil {
				return err
			}
			dst := dbsession.New()
			if err := dst.Open(ctx, *argToHost, *argToPort, *argToSchema, *argToUser, *argToPwd); err != nil {
				src.Close()
				return err
			}
			if err := dst.ApplySessionSetup(ctx, cfg.DisableBinLog); err != nil {
				src.Close()
				dst.Close()
				return err
			}
			tw = worker.New(workerID, src, dst, coord, reporter)
			workers[workerID] = tw
		}

		res, err := tw.ProcessTable(ctx, table)
		log.Info().
			Str("table", table).
			Int64("inserted", res.Inserted).
			Int64("updated", res.Updated).
			Int64("deleted", res.Deleted).
			Int64("errors", res.Errors).
			Msg("table complete")
		if res.Errors > 0 {
			hadRowErrors.Store(true)
		}
		return err
	})

	for _, tw := range workers {
		if tw != nil {
			tw.Src.Close()
			tw.Dst.Close()
		}
	}

	exitCode := 0
	if runErr != nil || hadRowErrors.Load() || coord.Cancelled() {
		exitCode = 100
	}

	if err := coord.PostExecute(ctx, bootstrapDst); err != nil {
		log.Error().Err(err).Msg("post-execute SET statements")
	}

	progress.Summary{
		RunID:   runID,
		Elapsed: time.Since(runStart),
		RwCount: coord.RwCount(),
		Peak:    progress.ReadRSS(),
	}.Log(log)

	return exitCode
}
