// Package worker implements TableWorker, the per-table pipeline: parallel
// key load, diff, then add / update / delete phases with bulk fetch and
// per-batch target transactions.
package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"dbsync/internal/coordinator"
	"dbsync/internal/dbsession"
	"dbsync/internal/keytable"
	"dbsync/internal/progress"
	"dbsync/internal/rowbatch"
)

// ErrCancelled signals a cooperative stop observed mid-table; a cooperative
// stop is not a data error, but the worker still returns non-nil so the
// Coordinator's caller knows to stop dispatching and the process exits
// non-zero.
var ErrCancelled = errors.New("worker: cancelled")

// Result carries the per-table write and error counters; ProcessTable adds
// the write counts to the Coordinator's read/write counter as each phase
// ends.
type Result struct {
	Inserted int64
	Updated  int64
	Deleted  int64
	Errors   int64
}

// TableWorker owns one source and one target DbSession for its lifetime
// and a reference to the Coordinator for configuration and cancellation.
type TableWorker struct {
	ID       int
	Src, Dst *dbsession.DbSession
	Coord    *coordinator.Coordinator
	Reporter progress.Reporter
}

func New(id int, src, dst *dbsession.DbSession, coord *coordinator.Coordinator, reporter progress.Reporter) *TableWorker {
	return &TableWorker{ID: id, Src: src, Dst: dst, Coord: coord, Reporter: reporter}
}

// ProcessTable runs the full per-table sequence: parallel key load, diff,
// add, update and delete phases, in that strict order.
func (w *TableWorker) ProcessTable(ctx context.Context, table string) (Result, error) {
	var res Result
	cfg := w.Coord.Config()
	srcMeta := w.Coord.SourceMeta(table)
	dstMeta := w.Coord.TargetMeta(table)
	keyNames := srcMeta.KeyColumnNames()
	keyTypes := srcMeta.KeyColumnTypes()

	srcKeys := keytable.New(keyNames, keyTypes, cfg.Update, capHint(srcMeta))
	dstKeys := keytable.New(keyNames, keyTypes, cfg.Update, capHint(dstMeta))

	loadTimer := progress.NewTimer(time.Now())
	w.Reporter.Progress(table, "load-keys", 0, nil, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Src.LoadPk(gctx, srcMeta, srcKeys, cfg.PkBulk) })
	g.Go(func() error { return w.Dst.LoadPk(gctx, dstMeta, dstKeys, cfg.PkBulk) })
	if err := g.Wait(); err != nil {
		return res, err
	}
	if w.Coord.Cancelled() {
		return res, ErrCancelled
	}

	srcKeys.Sort()
	dstKeys.Sort()
	w.Coord.AddRw(int64(srcKeys.Count() + dstKeys.Count()))
	w.Reporter.Progress(table, "load-keys", int64(srcKeys.Count()+dstKeys.Count()), nil, loadTimer.Elapsed(time.Now()))

	onlySrc, _, onlyDst := keytable.Diff(srcKeys, dstKeys)

	if onlySrc > 0 {
		n, errs, err := w.addPhase(ctx, table, srcMeta, dstMeta, srcKeys, onlySrc)
		res.Inserted += n
		res.Errors += errs
		w.Coord.AddRw(n)
		if err != nil {
			return res, err
		}
	}
	if w.Coord.Cancelled() {
		return res, ErrCancelled
	}

	if cfg.Update {
		// The Add phase only reads srcKeys' flags. updatePhase's
		// RevertFlags flips "only-src" to false and the common rows to
		// true, so it recounts exactly the common set.
		n, errs, err := w.updatePhase(ctx, table, srcMeta, dstMeta, srcKeys, dstKeys)
		res.Updated += n
		res.Errors += errs
		w.Coord.AddRw(n)
		if err != nil {
			return res, err
		}
	}
	if w.Coord.Cancelled() {
		return res, ErrCancelled
	}

	if cfg.Mode == coordinator.ModeSync && onlyDst > 0 {
		n, errs, err := w.deletePhase(ctx, table, dstMeta, dstKeys, onlyDst)
		res.Deleted += n
		res.Errors += errs
		w.Coord.AddRw(n)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func capHint(t dbsession.TableMeta) int {
	if t.EstimatedRows > 0 && t.EstimatedRows < 1<<20 {
		return int(t.EstimatedRows)
	}
	return 1024
}

// addPhase: selectPrepare+insertPrepare, then batch clear/select/insert/
// commit until the flagged onlySrc set is exhausted.
func (w *TableWorker) addPhase(ctx context.Context, table string, srcMeta, dstMeta dbsession.TableMeta, srcKeys *keytable.KeyTable, onlySrc int) (int64, int64, error) {
	cfg := w.Coord.Config()
	bulk := cfg.ModifyBulk
	if onlySrc < bulk {
		bulk = onlySrc
	}
	if err := w.Src.SelectPrepare(ctx, srcMeta, bulk); err != nil {
		return 0, 0, err
	}
	if !cfg.DryRun {
		if err := w.Dst.InsertPrepare(ctx, dstMeta); err != nil {
			return 0, 0, err
		}
	}

	iter := srcKeys.Iter(true)
	batch := rowbatch.New(bulk)
	timer := progress.NewTimer(time.Now())
	var inserted, errCount int64

	for {
		indices := dbsession.PullIndices(iter, bulk)
		if len(indices) == 0 {
			break
		}
		batch.Clear()
		if err := w.Src.SelectExecute(ctx, srcMeta, srcKeys, indices, bulk, batch); err != nil {
			return inserted, errCount, err
		}

		if !cfg.DryRun {
			if err := w.Dst.TransactionBegin(ctx); err != nil {
				return inserted, errCount, err
			}
		}
		for i := 0; i < batch.Size(); i++ {
			row := batch.At(i)
			if !cfg.DryRun {
				if err := w.Dst.InsertExecute(ctx, row); err != nil {
					if cfg.NoFail {
						errCount++
						lg := w.Coord.Logger()
						lg.Warn().Err(err).Str("table", table).Str("row", batch.RowString(i)).Msg("insert failed, continuing")
					} else {
						_ = w.Dst.TransactionCommit()
						return inserted, errCount, err
					}
				} else {
					inserted++
				}
			} else {
				inserted++
			}
			if w.Coord.Cancelled() {
				break
			}
		}
		if !cfg.DryRun {
			if err := w.Dst.TransactionCommit(); err != nil {
				return inserted, errCount, err
			}
		}

		if progress.ShouldReport(inserted) {
			w.Reporter.Progress(table, "add", inserted, int64Ptr(int64(onlySrc)), timer.Elapsed(time.Now()))
		}
		if w.Coord.Cancelled() {
			break
		}
	}
	w.Reporter.Progress(table, "add", inserted, int64Ptr(int64(onlySrc)), timer.Elapsed(time.Now()))
	return inserted, errCount, nil
}

// updatePhase implements the fingerprint filter (4a) followed by update
// execution.
func (w *TableWorker) updatePhase(ctx context.Context, table string, srcMeta, dstMeta dbsession.TableMeta, srcKeys, dstKeys *keytable.KeyTable) (int64, int64, error) {
	cfg := w.Coord.Config()

	srcKeys.RevertFlags()
	dstKeys.RevertFlags()
	// Restore dstKeys' "only-dst" flags for the delete phase.
	defer dstKeys.RevertFlags()
	common := srcKeys.Size(true)
	if common == 0 {
		return 0, 0, nil
	}

	bulk := cfg.CompareBulk
	if common < bulk {
		bulk = common
	}
	if err := w.Src.ComparePrepare(ctx, srcMeta, bulk); err != nil {
		return 0, 0, err
	}
	if err := w.Dst.ComparePrepare(ctx, dstMeta, bulk); err != nil {
		return 0, 0, err
	}

	srcIter := srcKeys.Iter(true)
	dstIter := dstKeys.Iter(true)
	// srcKeys and dstKeys share the same logical order for common rows by
	// construction of Diff's merge step, so the n-th common index pulled
	// from each iterator names the same primary key.
	for {
		srcIdx := dbsession.PullIndices(srcIter, bulk)
		dstIdx := dbsession.PullIndices(dstIter, bulk)
		if len(srcIdx) == 0 {
			break
		}
		if len(srcIdx) != len(dstIdx) {
			return 0, 0, errors.New("worker: common-row iterators desynchronised between source and target")
		}

		srcFp, err := w.Src.CompareExecute(ctx, srcMeta, srcKeys, srcIdx, bulk)
		if err != nil {
			return 0, 0, err
		}
		dstFp, err := w.Dst.CompareExecute(ctx, dstMeta, dstKeys, dstIdx, bulk)
		if err != nil {
			return 0, 0, err
		}
		for n, idx := range srcIdx {
			key := srcKeys.KeyOnlyString(idx)
			differs := srcFp[key] != dstFp[dstKeys.KeyOnlyString(dstIdx[n])]
			srcKeys.SetFlag(idx, differs)
		}
		if w.Coord.Cancelled() {
			break
		}
	}

	return w.updateExecutePhase(ctx, table, srcMeta, dstMeta, srcKeys)
}

func (w *TableWorker) updateExecutePhase(ctx context.Context, table string, srcMeta, dstMeta dbsession.TableMeta, srcKeys *keytable.KeyTable) (int64, int64, error) {
	cfg := w.Coord.Config()
	total := srcKeys.Size(true)
	if total == 0 {
		return 0, 0, nil
	}
	bulk := cfg.ModifyBulk
	if total < bulk {
		bulk = total
	}
	if err := w.Src.SelectPrepare(ctx, srcMeta, bulk); err != nil {
		return 0, 0, err
	}
	keyNames := dstMeta.KeyColumnNames()
	allNames := dstMeta.AllColumnNames()
	if !cfg.DryRun {
		if err := w.Dst.UpdatePrepare(ctx, dstMeta, keyNames, allNames); err != nil {
			return 0, 0, err
		}
	}

	iter := srcKeys.Iter(true)
	batch := rowbatch.New(bulk)
	timer := progress.NewTimer(time.Now())
	var updated, errCount int64
	keyCount := len(keyNames)

	for {
		indices := dbsession.PullIndices(iter, bulk)
		if len(indices) == 0 {
			break
		}
		batch.Clear()
		if err := w.Src.SelectExecute(ctx, srcMeta, srcKeys, indices, bulk, batch); err != nil {
			return updated, errCount, err
		}

		if !cfg.DryRun {
			if err := w.Dst.TransactionBegin(ctx); err != nil {
				return updated, errCount, err
			}
		}
		for i := 0; i < batch.Size(); i++ {
			row := batch.At(i)
			if !cfg.DryRun {
				if err := w.Dst.UpdateExecute(ctx, row, keyCount); err != nil {
					if cfg.NoFail {
						errCount++
						lg := w.Coord.Logger()
						lg.Warn().Err(err).Str("table", table).Str("row", batch.RowString(i)).Msg("update failed, continuing")
					} else {
						_ = w.Dst.TransactionCommit()
						return updated, errCount, err
					}
				} else {
					updated++
				}
			} else {
				updated++
			}
			if w.Coord.Cancelled() {
				break
			}
		}
		if !cfg.DryRun {
			if err := w.Dst.TransactionCommit(); err != nil {
				return updated, errCount, err
			}
		}
		if progress.ShouldReport(updated) {
			w.Reporter.Progress(table, "update", updated, int64Ptr(int64(total)), timer.Elapsed(time.Now()))
		}
		if w.Coord.Cancelled() {
			break
		}
	}
	w.Reporter.Progress(table, "update", updated, int64Ptr(int64(total)), timer.Elapsed(time.Now()))
	return updated, errCount, nil
}

// deletePhase opens one transaction over the whole delete run (batching
// it under modifyBulk like add/update is a defensible alternative, but
// not required: the target-only set is expected to be small relative to
// the table in steady-state sync workloads).
func (w *TableWorker) deletePhase(ctx context.Context, table string, dstMeta dbsession.TableMeta, dstKeys *keytable.KeyTable, onlyDst int) (int64, int64, error) {
	cfg := w.Coord.Config()
	keyNames := dstMeta.KeyColumnNames()
	if !cfg.DryRun {
		if err := w.Dst.DeletePrepare(ctx, dstMeta, keyNames); err != nil {
			return 0, 0, err
		}
		if err := w.Dst.TransactionBegin(ctx); err != nil {
			return 0, 0, err
		}
	}

	timer := progress.NewTimer(time.Now())
	var deleted, errCount int64
	it := dstKeys.Iter(true)
	for {
		idx, ok := it.Next()
		if !ok {
			break
		}
		if !cfg.DryRun {
			if err := w.Dst.DeleteExecute(ctx, dstKeys, idx); err != nil {
				if cfg.NoFail {
					errCount++
					lg := w.Coord.Logger()
					lg.Warn().Err(err).Str("table", table).Str("row", dstKeys.RowString(idx)).Msg("delete failed, continuing")
				} else {
					_ = w.Dst.TransactionCommit()
					return deleted, errCount, err
				}
			} else {
				deleted++
			}
		} else {
			deleted++
		}
		if progress.ShouldReport(deleted) {
			w.Reporter.Progress(table, "delete", deleted, int64Ptr(int64(onlyDst)), timer.Elapsed(time.Now()))
		}
		if w.Coord.Cancelled() {
			break
		}
	}
	if !cfg.DryRun {
		if err := w.Dst.TransactionCommit(); err != nil {
			return deleted, errCount, err
		}
	}
	w.Reporter.Progress(table, "delete", deleted, int64Ptr(int64(onlyDst)), timer.Elapsed(time.Now()))
	return deleted, errCount, nil
}

func int64Ptr(v int64) *int64 { return &v }
