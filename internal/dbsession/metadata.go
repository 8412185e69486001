package dbsession

import (
	"context"
	"strings"

	"dbsync/internal/value"
)

// ColumnMeta is field-wise comparable.
type ColumnMeta struct {
	Name       string
	SQLType    value.SQLType
	Nullable   bool
	PrimaryKey bool
}

// TableMeta is the ordered column sequence of one table, plus an
// approximate row count used only as the KeyTable capacity hint (never
// used for correctness).
type TableMeta struct {
	Name          string
	Columns       []ColumnMeta
	EstimatedRows int64
}

// Compatible reports position-wise ColumnMeta equality, the compatibility
// relation required between source and target for every
// processed table.
func Compatible(a, b TableMeta) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	return true
}

// KeyColumnNames returns the primary-key column names in declared order.
func (t TableMeta) KeyColumnNames() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

func (t TableMeta) KeyColumnTypes() []value.SQLType {
	var out []value.SQLType
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.SQLType)
		}
	}
	return out
}

// NonKeyColumnNames returns the non-primary-key column names in declared
// order.
func (t TableMeta) NonKeyColumnNames() []string {
	var out []string
	for _, c := range t.Columns {
		if !c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

func (t TableMeta) AllColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// LoadTableNames returns base-table names of the schema, ascending —
// the table-enumeration contract, bit-exact.
func (s *DbSession) LoadTableNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.apply("loadTableNames", func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT table_name FROM information_schema.tables
			 WHERE table_schema = ? AND table_type = 'BASE TABLE'
			 ORDER BY 1`, s.schema)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var n string
			if err := rows.Scan(&n); err != nil {
				return err
			}
			names = append(names, n)
		}
		return rows.Err()
	}, nil)
	if err != nil {
		return nil, &MetadataError{Err: err}
	}
	return names, nil
}

// LoadMetadata reads information_schema.columns joined against a
// key_column_usage lookup to mark primary-key membership, for each
// requested table name.
func (s *DbSession) LoadMetadata(ctx context.Context, names []string) (map[string]TableMeta, error) {
	out := make(map[string]TableMeta, len(names))
	err := s.apply("loadMetadata", func() error {
		for _, name := range names {
			tm, err := s.loadOneTableMetadata(ctx, name)
			if err != nil {
				return err
			}
			out[name] = tm
		}
		return nil
	}, nil)
	if err != nil {
		return nil, &MetadataError{Err: err}
	}
	return out, nil
}

func (s *DbSession) loadOneTableMetadata(ctx context.Context, table string) (TableMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT column_name, data_type, column_type, is_nullable,
		       EXISTS(SELECT 1 FROM information_schema.key_column_usage k
		              WHERE k.constraint_name = 'PRIMARY'
		                AND k.table_schema  = c.table_schema
		                AND k.table_name    = c.table_name
		                AND k.column_name   = c.column_name)
		FROM information_schema.columns c
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, s.schema, table)
	if err != nil {
		return TableMeta{}, err
	}
	defer rows.Close()

	tm := TableMeta{Name: table}
	for rows.Next() {
		var colName, dataType, columnType, isNullable string
		var isPk bool
		if err := rows.Scan(&colName, &dataType, &columnType, &isNullable, &isPk); err != nil {
			return TableMeta{}, err
		}
		tm.Columns = append(tm.Columns, ColumnMeta{
			Name:       colName,
			SQLType:    mysqlDataTypeToSQLType(dataType, columnType),
			Nullable:   isNullable == "YES",
			PrimaryKey: isPk,
		})
	}
	if err := rows.Err(); err != nil {
		return TableMeta{}, err
	}

	var estimated int64
	_ = s.db.QueryRowContext(ctx,
		`SELECT table_rows FROM information_schema.tables WHERE table_schema = ? AND table_name = ?`,
		s.schema, table).Scan(&estimated)
	tm.EstimatedRows = estimated

	return tm, nil
}

// mysqlDataTypeToSQLType maps information_schema.columns.data_type (plus
// column_type, consulted only to detect the "unsigned" suffix) onto the
// eight-way SQLType enum. decimal/float/double all route
// through TDouble per the documented decimal->double design decision
// (see DESIGN.md); char/varchar/text/enum/set map to TString; blob
// family to TBlob; date/datetime/timestamp to TDate. data_type alone
// cannot tell "bigint" from "bigint unsigned" — both report "bigint" —
// so a bare bigint routes to TLongLong and only a column_type ending in
// "unsigned" routes to TULongLong. The same holds for int: an unsigned
// int exceeds TInteger's int32 range and routes to TLongLong; the smaller
// widths fit in int32 signed or unsigned.
func mysqlDataTypeToSQLType(dataType, columnType string) value.SQLType {
	switch dataType {
	case "tinyint", "smallint", "mediumint":
		return value.TInteger
	case "int", "integer":
		if strings.HasSuffix(strings.ToLower(columnType), "unsigned") {
			return value.TLongLong
		}
		return value.TInteger
	case "bigint":
		if strings.HasSuffix(strings.ToLower(columnType), "unsigned") {
			return value.TULongLong
		}
		return value.TLongLong
	case "decimal", "float", "double":
		return value.TDouble
	case "date", "datetime", "timestamp", "time", "year":
		return value.TDate
	case "tinyblob", "blob", "mediumblob", "longblob":
		return value.TBlob
	case "xml":
		return value.TXML
	default:
		return value.TString
	}
}
