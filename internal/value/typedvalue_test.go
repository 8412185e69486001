package value

import "testing"

func TestCompareNullOrdering(t *testing.T) {
	cases := []struct {
		name string
		a, b TypedValue
		want Order
	}{
		{"null-lt-value", NewNull(TInteger), NewInt32(1), Less},
		{"value-gt-null", NewInt32(1), NewNull(TInteger), Greater},
		{"null-eq-null", NewNull(TString), NewNull(TString), Equal},
		{"type-mismatch-unordered", NewInt32(1), NewInt64(1), Unordered},
		{"text-less", NewText(TString, "a"), NewText(TString, "b"), Less},
		{"uint64-equal", NewUint64(5), NewUint64(5), Equal},
		{"double-greater", NewDouble(2.5), NewDouble(1.5), Greater},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Compare(c.a, c.b); got != c.want {
				t.Fatalf("Compare(%v,%v) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestCompareNeverFoldsUnorderedIntoEqual(t *testing.T) {
	a := NewText(TString, "1")
	b := NewInt32(1)
	if got := Compare(a, b); got == Equal {
		t.Fatalf("type-mismatched values must never compare Equal, got %v", got)
	}
}

func TestRenderNullSentinel(t *testing.T) {
	if got := NewNull(TString).Render(); got != NullSentinel {
		t.Fatalf("Render() = %q, want sentinel %q", got, NullSentinel)
	}
}

func TestFromCellTypeMismatch(t *testing.T) {
	_, err := FromCell("col", TInteger, "not-a-number-but-a-bare-string-is-fine-for-bytes")
	// asInt64 accepts integer kinds and []byte only; a bare Go string cell
	// for an integer column must fail decoding.
	if err == nil {
		t.Fatalf("expected DecodeError for non-numeric integer cell")
	}
	var de *DecodeError
	if !asDecodeError(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
}

func asDecodeError(err error, out **DecodeError) bool {
	de, ok := err.(*DecodeError)
	if ok {
		*out = de
	}
	return ok
}

func TestFromCellNull(t *testing.T) {
	v, err := FromCell("col", TDouble, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsNull {
		t.Fatalf("expected null TypedValue")
	}
}
