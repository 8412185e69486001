package worker

import (
	"testing"

	"dbsync/internal/dbsession"
)

func TestCapHintUsesEstimateWhenReasonable(t *testing.T) {
	tm := dbsession.TableMeta{EstimatedRows: 5000}
	if got := capHint(tm); got != 5000 {
		t.Fatalf("capHint = %d, want 5000", got)
	}
}

func TestCapHintFallsBackWhenEstimateMissingOrHuge(t *testing.T) {
	if got := capHint(dbsession.TableMeta{EstimatedRows: 0}); got != 1024 {
		t.Fatalf("capHint(0) = %d, want fallback 1024", got)
	}
	if got := capHint(dbsession.TableMeta{EstimatedRows: 1 << 30}); got != 1024 {
		t.Fatalf("capHint(huge) = %d, want fallback 1024", got)
	}
}

func TestInt64Ptr(t *testing.T) {
	p := int64Ptr(42)
	if p == nil || *p != 42 {
		t.Fatalf("int64Ptr(42) = %v", p)
	}
}
