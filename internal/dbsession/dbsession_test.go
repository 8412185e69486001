package dbsession

import (
	"strings"
	"testing"

	"dbsync/internal/keytable"
	"dbsync/internal/value"
)

func TestCompatibleSamePositionSameType(t *testing.T) {
	a := TableMeta{Columns: []ColumnMeta{
		{Name: "id", SQLType: value.TInteger, PrimaryKey: true},
		{Name: "name", SQLType: value.TString},
	}}
	b := TableMeta{Columns: []ColumnMeta{
		{Name: "id", SQLType: value.TInteger, PrimaryKey: true},
		{Name: "name", SQLType: value.TString},
	}}
	if !Compatible(a, b) {
		t.Fatalf("expected identical column lists to be compatible")
	}
}

func TestCompatibleRejectsLengthMismatch(t *testing.T) {
	a := TableMeta{Columns: []ColumnMeta{{Name: "id", SQLType: value.TInteger, PrimaryKey: true}}}
	b := TableMeta{Columns: []ColumnMeta{
		{Name: "id", SQLType: value.TInteger, PrimaryKey: true},
		{Name: "extra", SQLType: value.TString},
	}}
	if Compatible(a, b) {
		t.Fatalf("expected column-count mismatch to be incompatible")
	}
}

func TestKeyColumnNamesOrderPreserved(t *testing.T) {
	tm := TableMeta{Columns: []ColumnMeta{
		{Name: "a", PrimaryKey: false},
		{Name: "k1", PrimaryKey: true},
		{Name: "b", PrimaryKey: false},
		{Name: "k2", PrimaryKey: true},
	}}
	got := tm.KeyColumnNames()
	if len(got) != 2 || got[0] != "k1" || got[1] != "k2" {
		t.Fatalf("KeyColumnNames() = %v, want [k1 k2]", got)
	}
	nk := tm.NonKeyColumnNames()
	if len(nk) != 2 || nk[0] != "a" || nk[1] != "b" {
		t.Fatalf("NonKeyColumnNames() = %v, want [a b]", nk)
	}
}

func TestFingerprintExprUsesNullSentinelAndAlias(t *testing.T) {
	expr := fingerprintExpr([]string{"c1", "c2"})
	if !strings.Contains(expr, "COALESCE(`c1`,'∅')") {
		t.Fatalf("fingerprint expression missing null-sentinel coalesce: %s", expr)
	}
	if !strings.Contains(expr, "`#MD5@CHECK#`") {
		t.Fatalf("fingerprint expression missing the bit-exact alias: %s", expr)
	}
}

func TestFingerprintExprEmptyNonKeySetIsNoOp(t *testing.T) {
	expr := fingerprintExpr(nil)
	if !strings.Contains(expr, "MD5('')") {
		t.Fatalf("expected a constant fingerprint for an empty non-key column set, got %s", expr)
	}
}

func TestBuildBulkInQueryShapeMatchesBulk(t *testing.T) {
	table := TableMeta{Name: "t", Columns: []ColumnMeta{
		{Name: "id", SQLType: value.TInteger, PrimaryKey: true},
	}}
	q := buildBulkInQuery(table, []string{"id"}, "*", 3)
	if got := strings.Count(q, "?"); got != 3 {
		t.Fatalf("expected exactly 3 placeholders for bulk=3, got %d in %s", got, q)
	}
}

func TestMysqlDataTypeToSQLType(t *testing.T) {
	cases := []struct {
		dataType, columnType string
		want                 value.SQLType
	}{
		{"int", "int(11)", value.TInteger},
		{"bigint", "bigint(20)", value.TLongLong},
		{"bigint", "bigint(20) unsigned", value.TULongLong},
		{"bigint", "bigint(20) UNSIGNED", value.TULongLong},
		{"decimal", "decimal(10,2)", value.TDouble},
		{"datetime", "datetime", value.TDate},
		{"longtext", "longtext", value.TString},
		{"longblob", "longblob", value.TBlob},
	}
	for _, c := range cases {
		if got := mysqlDataTypeToSQLType(c.dataType, c.columnType); got != c.want {
			t.Fatalf("mysqlDataTypeToSQLType(%q, %q) = %v, want %v", c.dataType, c.columnType, got, c.want)
		}
	}
}

func TestBindBulkPadsTailWithNull(t *testing.T) {
	kt := keytable.New([]string{"id"}, []value.SQLType{value.TInteger}, false, 2)
	kt.Append([]value.TypedValue{value.NewInt32(1)})
	kt.Append([]value.TypedValue{value.NewInt32(2)})
	kt.Sort()
	kt.SetFlag(0, true)
	kt.SetFlag(1, true)

	indices := PullIndices(kt.Iter(true), 5)
	if len(indices) != 2 {
		t.Fatalf("consumed = %d, want 2", len(indices))
	}
	args := bindBulk(indices, kt, 1, 5)
	if len(args) != 5 {
		t.Fatalf("len(args) = %d, want 5 (fixed bulk shape)", len(args))
	}
	for i := 2; i < 5; i++ {
		if args[i] != nil {
			t.Fatalf("args[%d] = %v, want nil padding", i, args[i])
		}
	}
}

func TestClassifyErrorGenericWhenNotMySQLError(t *testing.T) {
	err := classifyError(&testErr{"boom"})
	if _, ok := err.(*GenericDBError); !ok {
		t.Fatalf("expected GenericDBError, got %T", err)
	}
}

type testErr struct{ s string }

func (e *testErr) Error() string { return e.s }
