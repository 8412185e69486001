// Package rowbatch implements RowBatch, the row-oriented buffer of full
// records returned by bulk fetches (add/update phases stream source rows
// through one of these).
package rowbatch

import (
	"strings"

	"dbsync/internal/value"
)

// RowBatch owns a column-name list (captured on first Append) and an
// ordered sequence of rows. All rows have equal length.
type RowBatch struct {
	columnNames []string
	rows        [][]value.TypedValue
}

func New(capHint int) *RowBatch {
	return &RowBatch{rows: make([][]value.TypedValue, 0, capHint)}
}

// Clear empties the batch, retaining capacity, and drops the captured
// column-name list so the next Append may capture from a different
// statement.
func (b *RowBatch) Clear() {
	b.rows = b.rows[:0]
	b.columnNames = nil
}

// Append pushes one driver row. The first Append after construction or
// Clear captures names as the batch's column-name list; when
// dropFingerprint is true the trailing column (by convention the MD5
// projection) is excluded from both the captured names and the stored
// row.
func (b *RowBatch) Append(names []string, row []value.TypedValue, dropFingerprint bool) {
	if dropFingerprint {
		names = names[:len(names)-1]
		row = row[:len(row)-1]
	}
	if b.columnNames == nil {
		b.columnNames = append([]string(nil), names...)
	}
	stored := append([]value.TypedValue(nil), row...)
	b.rows = append(b.rows, stored)
}

func (b *RowBatch) ColumnNames() []string { return b.columnNames }

func (b *RowBatch) Size() int { return len(b.rows) }

func (b *RowBatch) At(i int) []value.TypedValue { return b.rows[i] }

func (b *RowBatch) RowString(i int) string {
	parts := make([]string, len(b.rows[i]))
	for c, v := range b.rows[i] {
		parts[c] = v.Render()
	}
	return strings.Join(parts, ",")
}

// Rotate performs a cyclic left-shift by k positions for UPDATE binding:
// a row arriving as (keys…, non-keys…) is rotated so non-keys come
// first, then keys, matching "UPDATE t SET non_key=? WHERE pk=?"
// placeholder order.
func Rotate(row []value.TypedValue, k int) []value.TypedValue {
	n := len(row)
	if k <= 0 || k >= n {
		return row
	}
	out := make([]value.TypedValue, n)
	copy(out, row[k:])
	copy(out[n-k:], row[:k])
	return out
}
