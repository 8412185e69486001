// Package keytable implements KeyTable, the column-oriented store of one
// side's primary-key projection for one table, and the Diff merge over two
// sorted KeyTables.
//
// Storage is genuinely column-oriented: one contiguous Go slice per SQL
// type, selected by a parallel tag per column index — the same "variant
// over concrete sequence types, tag kept parallel to avoid introspection"
// discipline this package's design calls for on TypedValue itself.
package keytable

import (
	"fmt"
	"sort"
	"strings"

	"dbsync/internal/value"
)

type column struct {
	name    string
	sqlType value.SQLType

	texts []string
	nulls []bool // parallel null indicator, shared shape regardless of type

	epochs []int64
	i32s   []int32
	i64s   []int64
	u64s   []uint64
	f64s   []float64
}

func newColumn(name string, t value.SQLType, capHint int) *column {
	c := &column{name: name, sqlType: t, nulls: make([]bool, 0, capHint)}
	switch t {
	case value.TString, value.TBlob, value.TXML:
		c.texts = make([]string, 0, capHint)
	case value.TDate:
		c.epochs = make([]int64, 0, capHint)
	case value.TInteger:
		c.i32s = make([]int32, 0, capHint)
	case value.TLongLong:
		c.i64s = make([]int64, 0, capHint)
	case value.TULongLong:
		c.u64s = make([]uint64, 0, capHint)
	case value.TDouble:
		c.f64s = make([]float64, 0, capHint)
	}
	return c
}

func (c *column) push(v value.TypedValue) {
	c.nulls = append(c.nulls, v.IsNull)
	switch c.sqlType {
	case value.TString, value.TBlob, value.TXML:
		c.texts = append(c.texts, v.Text())
	case value.TDate:
		c.epochs = append(c.epochs, v.EpochSeconds())
	case value.TInteger:
		c.i32s = append(c.i32s, v.Int32())
	case value.TLongLong:
		c.i64s = append(c.i64s, v.Int64())
	case value.TULongLong:
		c.u64s = append(c.u64s, v.Uint64())
	case value.TDouble:
		c.f64s = append(c.f64s, v.Double())
	}
}

func (c *column) at(storageIdx int) value.TypedValue {
	if c.nulls[storageIdx] {
		return value.NewNull(c.sqlType)
	}
	switch c.sqlType {
	case value.TString, value.TBlob, value.TXML:
		return value.NewText(c.sqlType, c.texts[storageIdx])
	case value.TDate:
		return value.NewEpochSeconds(c.epochs[storageIdx])
	case value.TInteger:
		return value.NewInt32(c.i32s[storageIdx])
	case value.TLongLong:
		return value.NewInt64(c.i64s[storageIdx])
	case value.TULongLong:
		return value.NewUint64(c.u64s[storageIdx])
	case value.TDouble:
		return value.NewDouble(c.f64s[storageIdx])
	}
	return value.TypedValue{}
}

// KeyTable holds the primary-key projection (and, optionally, a trailing
// MD5 fingerprint column) of one side of one table.
type KeyTable struct {
	cols           []*column
	keyColumnCount int
	hasFingerprint bool

	count  int
	sorted bool

	order []int
	flag  []bool

	lastKeyVals []value.TypedValue // most recently appended row's key columns, for incremental sortedness tracking
}

// New builds an empty KeyTable for the given key columns (in declared
// order). hasFingerprint, when true, means append expects one extra
// trailing text column (the MD5 projection) that is excluded from ordering.
// capHint sizes every per-type sequence up front.
func New(keyNames []string, keyTypes []value.SQLType, hasFingerprint bool, capHint int) *KeyTable {
	if len(keyNames) != len(keyTypes) {
		panic("keytable.New: keyNames/keyTypes length mismatch")
	}
	kt := &KeyTable{
		keyColumnCount: len(keyNames),
		hasFingerprint: hasFingerprint,
		sorted:         true,
	}
	for i, n := range keyNames {
		kt.cols = append(kt.cols, newColumn(n, keyTypes[i], capHint))
	}
	if hasFingerprint {
		kt.cols = append(kt.cols, newColumn("#MD5@CHECK#", value.TString, capHint))
	}
	return kt
}

// Count is the number of rows appended.
func (kt *KeyTable) Count() int { return kt.count }

// HasFingerprint reports whether the trailing MD5 column is present.
func (kt *KeyTable) HasFingerprint() bool { return kt.hasFingerprint }

// Append pushes one driver row (key columns, then the fingerprint column
// when present) onto the column sequences. Row length must equal the
// column count declared at construction.
func (kt *KeyTable) Append(row []value.TypedValue) {
	if len(row) != len(kt.cols) {
		panic(fmt.Sprintf("keytable.Append: row has %d values, table has %d columns", len(row), len(kt.cols)))
	}
	if kt.sorted && kt.lastKeyVals != nil {
		if keyTupleLess(row[:kt.keyColumnCount], kt.lastKeyVals) {
			kt.sorted = false
		}
	}
	kt.lastKeyVals = row[:kt.keyColumnCount]

	for i, c := range kt.cols {
		c.push(row[i])
	}
	kt.count++
}

func keyTupleLess(a, b []value.TypedValue) bool {
	for i := range a {
		switch value.Compare(a[i], b[i]) {
		case value.Less:
			return true
		case value.Greater:
			return false
		}
	}
	return false
}

// Sort builds order[] and flag[], sorting order[] by lexicographic
// comparison of the key columns. If append already observed a
// monotonically non-decreasing stream, the sort is skipped (order[] is
// left as the identity permutation) but order/flag are still allocated.
func (kt *KeyTable) Sort() {
	kt.order = make([]int, kt.count)
	for i := range kt.order {
		kt.order[i] = i
	}
	kt.flag = make([]bool, kt.count)

	if kt.sorted {
		return
	}
	sort.SliceStable(kt.order, func(a, b int) bool {
		return kt.compareStorage(kt.order[a], kt.order[b]) == value.Less
	})
	kt.sorted = true
}

func (kt *KeyTable) compareStorage(si, sj int) value.Order {
	for c := 0; c < kt.keyColumnCount; c++ {
		o := value.Compare(kt.cols[c].at(si), kt.cols[c].at(sj))
		if o != value.Equal {
			return o
		}
	}
	return value.Equal
}

// CompareAt performs the cross-table ordered comparison at logical index i
// of kt against logical index j of other, over the key columns only.
func (kt *KeyTable) CompareAt(i int, other *KeyTable, j int) value.Order {
	si, sj := kt.order[i], other.order[j]
	for c := 0; c < kt.keyColumnCount; c++ {
		o := value.Compare(kt.cols[c].at(si), other.cols[c].at(sj))
		if o != value.Equal {
			return o
		}
	}
	return value.Equal
}

func (kt *KeyTable) LessAt(i int, other *KeyTable, j int) bool {
	return kt.CompareAt(i, other, j) == value.Less
}

// UpdateEqual compares the trailing MD5 column at logical index i against
// other's logical index j. Valid only when both tables carry a
// fingerprint.
func (kt *KeyTable) UpdateEqual(i int, other *KeyTable, j int) bool {
	if !kt.hasFingerprint || !other.hasFingerprint {
		panic("keytable.UpdateEqual: both sides must have a fingerprint column")
	}
	si, sj := kt.order[i], other.order[j]
	fpCol := len(kt.cols) - 1
	otherFpCol := len(other.cols) - 1
	return kt.cols[fpCol].texts[si] == other.cols[otherFpCol].texts[sj]
}

// SetFlag mutates the flag bit at logical index i.
func (kt *KeyTable) SetFlag(i int, v bool) { kt.flag[i] = v }

// Flag reads the flag bit at logical index i.
func (kt *KeyTable) Flag(i int) bool { return kt.flag[i] }

// RevertFlags flips every bit.
func (kt *KeyTable) RevertFlags() {
	for i := range kt.flag {
		kt.flag[i] = !kt.flag[i]
	}
}

// Size counts logical indices whose flag equals v.
func (kt *KeyTable) Size(v bool) int {
	n := 0
	for _, f := range kt.flag {
		if f == v {
			n++
		}
	}
	return n
}

// Iter returns the logical indices where flag == want, in logical order.
// Advance is O(count) total across a full iteration.
func (kt *KeyTable) Iter(want bool) *Iterator {
	return &Iterator{kt: kt, want: want, pos: -1}
}

type Iterator struct {
	kt   *KeyTable
	want bool
	pos  int
}

// Next advances to the next matching logical index; ok is false once
// exhausted.
func (it *Iterator) Next() (idx int, ok bool) {
	for it.pos++; it.pos < it.kt.count; it.pos++ {
		if it.kt.flag[it.pos] == it.want {
			return it.pos, true
		}
	}
	return 0, false
}

// Bind returns the key-column values at logical index i, in column order,
// as driver arguments. Primary keys are never null by contract.
func (kt *KeyTable) Bind(i int) []interface{} {
	si := kt.order[i]
	out := make([]interface{}, kt.keyColumnCount)
	for c := 0; c < kt.keyColumnCount; c++ {
		out[c] = kt.cols[c].at(si).DriverArg()
	}
	return out
}

// RowString renders the full row (key columns plus fingerprint, if any) at
// logical index i for logs and errors.
func (kt *KeyTable) RowString(i int) string {
	si := kt.order[i]
	parts := make([]string, len(kt.cols))
	for c, col := range kt.cols {
		parts[c] = col.at(si).Render()
	}
	return strings.Join(parts, ",")
}

// KeyOnlyString renders just the key columns at logical index i — used as
// a join key to correlate two independent bulk fingerprint lookups that a
// server is free to return in any row order.
func (kt *KeyTable) KeyOnlyString(i int) string {
	si := kt.order[i]
	parts := make([]string, kt.keyColumnCount)
	for c := 0; c < kt.keyColumnCount; c++ {
		parts[c] = kt.cols[c].at(si).Render()
	}
	return strings.Join(parts, "\x1f")
}

// KeyColumnNames returns the declared key column names, excluding the
// fingerprint column.
func (kt *KeyTable) KeyColumnNames() []string {
	names := make([]string, kt.keyColumnCount)
	for i := 0; i < kt.keyColumnCount; i++ {
		names[i] = kt.cols[i].name
	}
	return names
}
