// Package coordinator implements the whole-run control plane: the
// validated table list, the dispatch queue, the cancellation flag, the
// aggregate read/write counter and the pre/post-execute target SETs.
package coordinator

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog"

	"dbsync/internal/dbsession"
)

// Mode selects copy (insert-only) or sync (insert + delete of
// target-only rows).
type Mode int

const (
	ModeCopy Mode = iota
	ModeSync
)

// OperationConfig is the run-wide tuning and behavior configuration.
type OperationConfig struct {
	Mode          Mode
	Update        bool
	DryRun        bool
	DisableBinLog bool
	NoFail        bool
	Jobs          int
	PkBulk        int
	CompareBulk   int
	ModifyBulk    int
}

// Coordinator owns the validated table set, immutable TableMeta maps, the
// dispatch queue and the run-wide atomics.
type Coordinator struct {
	cfg OperationConfig
	log zerolog.Logger

	tables  []string
	srcMeta map[string]dbsession.TableMeta
	dstMeta map[string]dbsession.TableMeta

	mu       sync.Mutex
	queuePos int

	cancelled atomic.Bool
	rw        atomic.Int64
}

func New(cfg OperationConfig, log zerolog.Logger) *Coordinator {
	return &Coordinator{cfg: cfg, log: log}
}

func (c *Coordinator) Config() OperationConfig { return c.cfg }

// CheckTables sets the table list to the user's filter or, when filter is
// empty, to the sorted intersection of source and target table names; it
// confirms every requested table exists on both sides and fails on the
// first one that does not. Any failure sets the cancellation flag.
func (c *Coordinator) CheckTables(srcNames, destNames, filter []string) error {
	srcSet := toSet(srcNames)
	dstSet := toSet(destNames)

	var requested []string
	if len(filter) == 0 {
		for name := range srcSet {
			if dstSet[name] {
				requested = append(requested, name)
			}
		}
		sort.Strings(requested)
	} else {
		requested = filter
	}

	for _, name := range requested {
		if !srcSet[name] {
			c.Stop()
			return &dbsession.ValidationError{Msg: fmt.Sprintf("table %q missing on source", name)}
		}
		if !dstSet[name] {
			c.Stop()
			return &dbsession.ValidationError{Msg: fmt.Sprintf("table %q missing on target", name)}
		}
	}
	c.tables = requested
	return nil
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// CheckMetadata loads metadata on both sides for every validated table and
// asserts column-list compatibility.
func (c *Coordinator) CheckMetadata(ctx context.Context, src, dst *dbsession.DbSession) error {
	srcMeta, err := src.LoadMetadata(ctx, c.tables)
	if err != nil {
		c.Stop()
		return err
	}
	dstMeta, err := dst.LoadMetadata(ctx, c.tables)
	if err != nil {
		c.Stop()
		return err
	}
	for _, name := range c.tables {
		if !dbsession.Compatible(srcMeta[name], dstMeta[name]) {
			c.Stop()
			return &dbsession.ValidationError{Msg: fmt.Sprintf("table %q: source/target column lists are not compatible", name)}
		}
	}
	c.srcMeta, c.dstMeta = srcMeta, dstMeta
	return nil
}

func (c *Coordinator) SourceMeta(table string) dbsession.TableMeta { return c.srcMeta[table] }
func (c *Coordinator) TargetMeta(table string) dbsession.TableMeta { return c.dstMeta[table] }
func (c *Coordinator) Tables() []string                            { return c.tables }
func (c *Coordinator) Logger() zerolog.Logger                      { return c.log }

// TableToProcess extracts and removes one table name from the dispatch
// queue, or returns ok=false when exhausted or cancelled.
func (c *Coordinator) TableToProcess() (string, bool) {
	if c.Cancelled() {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queuePos >= len(c.tables) {
		return "", false
	}
	t := c.tables[c.queuePos]
	c.queuePos++
	return t, true
}

func (c *Coordinator) Stop() {
	if !c.cancelled.Swap(true) {
		c.log.Info().Msg("coordinator: stop requested")
	}
}

func (c *Coordinator) Cancelled() bool { return c.cancelled.Load() }

func (c *Coordinator) AddRw(n int64) { c.rw.Add(n) }

func (c *Coordinator) RwCount() int64 { return c.rw.Load() }

// PreExecute issues the UNIQUE_CHECKS/FOREIGN_KEY_CHECKS/SQL_LOG_BIN SETs
// on the given bootstrap target session. Every worker's own target session
// must additionally call DbSession.ApplySessionSetup itself after Open,
// since these are session-scoped variables this bootstrap session's SETs
// do not propagate to other connections.
func (c *Coordinator) PreExecute(ctx context.Context, target *dbsession.DbSession) error {
	if err := target.ApplySessionSetup(ctx, c.cfg.DisableBinLog); err != nil {
		c.Stop()
		return err
	}
	return nil
}

// PostExecute issues the inverse SETs after all workers complete.
func (c *Coordinator) PostExecute(ctx context.Context, target *dbsession.DbSession) error {
	stmts := []string{
		"SET UNIQUE_CHECKS=@OLD_UNIQUE_CHECKS",
		"SET FOREIGN_KEY_CHECKS=@OLD_FOREIGN_KEY_CHECKS",
	}
	if c.cfg.DisableBinLog {
		stmts = append(stmts, "SET SESSION SQL_LOG_BIN=1")
	}
	var firstErr error
	for _, stmt := range stmts {
		if err := target.Exec(ctx, stmt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InstallSignalHandler routes SIGINT/SIGTERM/SIGQUIT to Stop(). The
// returned func releases the signal.Notify registration; it is safe to
// call InstallSignalHandler's handler repeatedly — Stop is idempotent.
func (c *Coordinator) InstallSignalHandler() func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			c.log.Warn().Str("signal", sig.String()).Msg("signal received, stopping")
			c.Stop()
		case <-done:
		}
	}()
	return func() {
		close(done)
		signal.Stop(ch)
	}
}

// Run creates min(len(Tables()), jobs) workers (jobs==0 means hardware
// concurrency, resolved by the caller before reaching here) and has each
// pull table names from TableToProcess until the queue empties or
// cancellation is observed, invoking process for each. When any call to
// process fails and NoFail==false, the coordinator's cancellation flag is
// raised so other workers stop promptly.
func (c *Coordinator) Run(ctx context.Context, jobs int, process func(ctx context.Context, workerID int, table string) error) error {
	n := jobs
	if n > len(c.tables) {
		n = len(c.tables)
	}
	if n <= 0 {
		n = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < n; w++ {
		workerID := w
		g.Go(func() error {
			for {
				table, ok := c.TableToProcess()
				if !ok {
					return nil
				}
				if err := process(gctx, workerID, table); err != nil {
					c.log.Error().Err(err).Str("table", table).Int("worker", workerID).Msg("table failed")
					if !c.cfg.NoFail {
						c.Stop()
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}
