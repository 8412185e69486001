package keytable

import (
	"testing"

	"dbsync/internal/value"
)

func row(k int32) []value.TypedValue {
	return []value.TypedValue{value.NewInt32(k)}
}

func TestSortProducesNonDecreasingOrder(t *testing.T) {
	kt := New([]string{"id"}, []value.SQLType{value.TInteger}, false, 4)
	for _, k := range []int32{5, 1, 3, 2, 4} {
		kt.Append(row(k))
	}
	kt.Sort()
	for i := 1; i < kt.Count(); i++ {
		if kt.CompareAt(i-1, kt, i) == value.Greater {
			t.Fatalf("row %d > row %d after sort", i-1, i)
		}
	}
}

func TestAppendAlreadySortedSkipsSort(t *testing.T) {
	kt := New([]string{"id"}, []value.SQLType{value.TInteger}, false, 4)
	for _, k := range []int32{1, 2, 3, 4} {
		kt.Append(row(k))
	}
	if !kt.sorted {
		t.Fatalf("expected sorted=true before Sort() for a monotonic append stream")
	}
	kt.Sort()
	for i := 0; i < kt.Count(); i++ {
		if kt.order[i] != i {
			t.Fatalf("expected identity order for pre-sorted input, got order[%d]=%d", i, kt.order[i])
		}
	}
}

func TestDiffOnlySrcOnlyDestCommon(t *testing.T) {
	src := New([]string{"id"}, []value.SQLType{value.TInteger}, false, 4)
	dst := New([]string{"id"}, []value.SQLType{value.TInteger}, false, 4)
	for _, k := range []int32{1, 2, 3} {
		src.Append(row(k))
	}
	for _, k := range []int32{1, 4, 5} {
		dst.Append(row(k))
	}
	src.Sort()
	dst.Sort()

	onlySrc, common, onlyDst := Diff(src, dst)
	if onlySrc != 2 || common != 1 || onlyDst != 2 {
		t.Fatalf("got onlySrc=%d common=%d onlyDst=%d, want 2,1,2", onlySrc, common, onlyDst)
	}
	if src.Size(true) != 2 {
		t.Fatalf("src.Size(true) = %d, want 2", src.Size(true))
	}
	if dst.Size(true) != 2 {
		t.Fatalf("dst.Size(true) = %d, want 2", dst.Size(true))
	}
}

func TestDiffEmptySides(t *testing.T) {
	src := New([]string{"id"}, []value.SQLType{value.TInteger}, false, 0)
	dst := New([]string{"id"}, []value.SQLType{value.TInteger}, false, 0)
	src.Sort()
	dst.Sort()
	onlySrc, common, onlyDst := Diff(src, dst)
	if onlySrc != 0 || common != 0 || onlyDst != 0 {
		t.Fatalf("diff of two empty tables should be all zero, got %d/%d/%d", onlySrc, common, onlyDst)
	}
}

func TestUpdateEqualFingerprint(t *testing.T) {
	src := New([]string{"id"}, []value.SQLType{value.TInteger}, true, 2)
	dst := New([]string{"id"}, []value.SQLType{value.TInteger}, true, 2)
	src.Append([]value.TypedValue{value.NewInt32(1), value.NewText(value.TString, "aaa")})
	dst.Append([]value.TypedValue{value.NewInt32(1), value.NewText(value.TString, "aaa")})
	src.Sort()
	dst.Sort()
	if !src.UpdateEqual(0, dst, 0) {
		t.Fatalf("expected matching fingerprints to compare equal")
	}

	dst2 := New([]string{"id"}, []value.SQLType{value.TInteger}, true, 2)
	dst2.Append([]value.TypedValue{value.NewInt32(1), value.NewText(value.TString, "bbb")})
	dst2.Sort()
	if src.UpdateEqual(0, dst2, 0) {
		t.Fatalf("expected differing fingerprints to compare unequal")
	}
}

func TestIterYieldsLogicalOrder(t *testing.T) {
	kt := New([]string{"id"}, []value.SQLType{value.TInteger}, false, 4)
	for _, k := range []int32{3, 1, 2} {
		kt.Append(row(k))
	}
	kt.Sort()
	kt.SetFlag(0, true)
	kt.SetFlag(2, true)

	it := kt.Iter(true)
	var got []int
	for {
		idx, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, idx)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("Iter(true) = %v, want [0 2]", got)
	}
}

func TestRevertFlags(t *testing.T) {
	kt := New([]string{"id"}, []value.SQLType{value.TInteger}, false, 3)
	for _, k := range []int32{1, 2, 3} {
		kt.Append(row(k))
	}
	kt.Sort()
	kt.SetFlag(1, true)
	kt.RevertFlags()
	if kt.Flag(0) != true || kt.Flag(1) != false || kt.Flag(2) != true {
		t.Fatalf("RevertFlags did not flip every bit correctly: %v %v %v", kt.Flag(0), kt.Flag(1), kt.Flag(2))
	}
}

func TestBindReturnsKeyColumnsInOrder(t *testing.T) {
	kt := New([]string{"a", "b"}, []value.SQLType{value.TInteger, value.TLongLong}, false, 1)
	kt.Append([]value.TypedValue{value.NewInt32(7), value.NewInt64(42)})
	kt.Sort()
	args := kt.Bind(0)
	if len(args) != 2 || args[0].(int32) != 7 || args[1].(int64) != 42 {
		t.Fatalf("Bind(0) = %v, want [7 42]", args)
	}
}
