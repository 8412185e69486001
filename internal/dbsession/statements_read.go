package dbsession

import (
	"context"
	"database/sql"
	"strings"

	"dbsync/internal/keytable"
	"dbsync/internal/rowbatch"
	"dbsync/internal/value"
)

// ComparePrepare builds the bulk key-based fingerprint projection
// SELECT pk_cols, MD5(...) AS `#MD5@CHECK#` FROM t WHERE (pk…) IN ((?,…),…)
// with bulk tuples.
func (s *DbSession) ComparePrepare(ctx context.Context, table TableMeta, bulk int) error {
	keyNames := table.KeyColumnNames()
	query := buildBulkInQuery(table, keyNames, fingerprintExpr(table.NonKeyColumnNames()), bulk)
	return s.prepareRead(ctx, "compare", bulk, query)
}

// SelectPrepare builds SELECT * FROM t WHERE (pk…) IN ((?,…),…) with bulk
// tuples.
func (s *DbSession) SelectPrepare(ctx context.Context, table TableMeta, bulk int) error {
	keyNames := table.KeyColumnNames()
	allQuoted := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		allQuoted[i] = quoteIdent(c.Name)
	}
	query := buildBulkInQuery(table, keyNames, strings.Join(allQuoted, ", "), bulk)
	return s.prepareRead(ctx, "select", bulk, query)
}

func buildBulkInQuery(table TableMeta, keyNames []string, projection string, bulk int) string {
	tuple := "(" + placeholders(len(keyNames)) + ")"
	tuples := make([]string, bulk)
	for i := range tuples {
		tuples[i] = tuple
	}
	quotedKeys := make([]string, len(keyNames))
	for i, n := range keyNames {
		quotedKeys[i] = quoteIdent(n)
	}
	var b strings.Builder
	b.Grow(64 + len(projection) + bulk*(2+4*len(keyNames)))
	b.WriteString("SELECT ")
	b.WriteString(projection)
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(table.Name))
	b.WriteString(" WHERE (")
	b.WriteString(strings.Join(quotedKeys, ", "))
	b.WriteString(") IN (")
	b.WriteString(strings.Join(tuples, ", "))
	b.WriteString(")")
	return b.String()
}

func (s *DbSession) prepareRead(ctx context.Context, kind string, bulk int, query string) error {
	if s.readKind == kind && s.readBulk == bulk && s.readStmt != nil {
		return nil
	}
	return s.apply("prepareRead:"+kind, func() error {
		stmt, err := s.db.PrepareContext(ctx, query)
		if err != nil {
			return &PrepareError{Err: err}
		}
		if s.readStmt != nil {
			s.readStmt.Close()
		}
		s.readStmt = stmt
		s.readKind = kind
		s.readBulk = bulk
		return nil
	}, nil)
}

// bindBulk binds the given logical indices against keys, NULL-padding the
// tail so the IN-list always carries exactly bulk tuples.
func bindBulk(indices []int, keys *keytable.KeyTable, keyCount, bulk int) []interface{} {
	args := make([]interface{}, 0, bulk*keyCount)
	for _, idx := range indices {
		args = append(args, keys.Bind(idx)...)
	}
	for pad := len(indices); pad < bulk; pad++ {
		for c := 0; c < keyCount; c++ {
			args = append(args, nil)
		}
	}
	return args
}

// PullIndices drains up to n indices from iter, in logical order.
func PullIndices(iter *keytable.Iterator, n int) []int {
	out := make([]int, 0, n)
	for len(out) < n {
		idx, ok := iter.Next()
		if !ok {
			break
		}
		out = append(out, idx)
	}
	return out
}

// SelectExecute binds the given logical indices of keys (NULL-padding the
// tail to the fixed bulk shape), executes the cached select statement and
// streams full records into into.
func (s *DbSession) SelectExecute(ctx context.Context, table TableMeta, keys *keytable.KeyTable, indices []int, bulk int, into *rowbatch.RowBatch) error {
	if len(indices) == 0 {
		return nil
	}
	keyCount := len(table.KeyColumnNames())
	args := bindBulk(indices, keys, keyCount, bulk)
	names := table.AllColumnNames()
	types := make([]value.SQLType, len(table.Columns))
	for i, c := range table.Columns {
		types[i] = c.SQLType
	}
	err := s.apply("selectExecute", func() error {
		rows, err := s.readStmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			row, err := scanRow(rows, names, types)
			if err != nil {
				return err
			}
			into.Append(names, row, false)
		}
		return rows.Err()
	}, nil)
	return err
}

// CompareExecute binds the given logical indices, executes the cached
// compare statement and returns a map from the row's key-column rendering
// (keytable.KeyOnlyString's format) to its fingerprint string. A map keyed
// by the key tuple is used — rather than assuming the server preserves the
// IN-list's tuple order — since SQL makes no such ordering guarantee.
func (s *DbSession) CompareExecute(ctx context.Context, table TableMeta, keys *keytable.KeyTable, indices []int, bulk int) (map[string]string, error) {
	if len(indices) == 0 {
		return map[string]string{}, nil
	}
	keyCount := len(table.KeyColumnNames())
	args := bindBulk(indices, keys, keyCount, bulk)
	result := make(map[string]string, len(indices))
	keyTypes := table.KeyColumnTypes()
	keyNames := table.KeyColumnNames()
	err := s.apply("compareExecute", func() error {
		rows, err := s.readStmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			dest := make([]interface{}, keyCount+1)
			ptrs := make([]interface{}, len(dest))
			for i := range dest {
				ptrs[i] = &dest[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			parts := make([]string, keyCount)
			for i := 0; i < keyCount; i++ {
				v, err := value.FromCell(keyNames[i], keyTypes[i], dest[i])
				if err != nil {
					return err
				}
				parts[i] = v.Render()
			}
			fp, err := value.FromCell("#MD5@CHECK#", value.TString, dest[keyCount])
			if err != nil {
				return err
			}
			result[strings.Join(parts, "\x1f")] = fp.Text()
		}
		return rows.Err()
	}, nil)
	return result, err
}

func scanRow(rows *sql.Rows, names []string, types []value.SQLType) ([]value.TypedValue, error) {
	dest := make([]interface{}, len(names))
	ptrs := make([]interface{}, len(names))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	row := make([]value.TypedValue, len(names))
	for i := range names {
		v, err := value.FromCell(names[i], types[i], dest[i])
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}
