package rowbatch

import (
	"testing"

	"dbsync/internal/value"
)

func TestClearResetsSizeAndColumnNames(t *testing.T) {
	b := New(4)
	b.Append([]string{"id", "name"}, []value.TypedValue{value.NewInt32(1), value.NewText(value.TString, "a")}, false)
	if b.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", b.Size())
	}
	b.Clear()
	if b.Size() != 0 {
		t.Fatalf("Size() after Clear = %d, want 0", b.Size())
	}
	if b.ColumnNames() != nil {
		t.Fatalf("ColumnNames() after Clear = %v, want nil", b.ColumnNames())
	}
}

func TestAppendDropsFingerprintColumn(t *testing.T) {
	b := New(1)
	names := []string{"id", "#MD5@CHECK#"}
	row := []value.TypedValue{value.NewInt32(1), value.NewText(value.TString, "deadbeef")}
	b.Append(names, row, true)
	if len(b.ColumnNames()) != 1 || b.ColumnNames()[0] != "id" {
		t.Fatalf("ColumnNames() = %v, want [id]", b.ColumnNames())
	}
	if len(b.At(0)) != 1 {
		t.Fatalf("At(0) = %v, want length 1", b.At(0))
	}
}

func TestRotateMovesKeysToEnd(t *testing.T) {
	row := []value.TypedValue{
		value.NewInt32(1),            // key
		value.NewText(value.TString, "a"), // non-key
		value.NewText(value.TString, "b"), // non-key
	}
	got := Rotate(row, 1)
	if got[0].Text() != "a" || got[1].Text() != "b" || got[2].Int32() != 1 {
		t.Fatalf("Rotate(row,1) = %v, want [a b 1]", got)
	}
}

func TestRotateNoOpWhenKZero(t *testing.T) {
	row := []value.TypedValue{value.NewInt32(1), value.NewInt32(2)}
	got := Rotate(row, 0)
	if got[0].Int32() != 1 || got[1].Int32() != 2 {
		t.Fatalf("Rotate(row,0) should be a no-op, got %v", got)
	}
}
