package coordinator

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestCoordinator() *Coordinator {
	return New(OperationConfig{Mode: ModeSync, Jobs: 1, PkBulk: 100, CompareBulk: 100, ModifyBulk: 100}, zerolog.Nop())
}

func TestCheckTablesIntersectionWhenNoFilter(t *testing.T) {
	c := newTestCoordinator()
	err := c.CheckTables([]string{"a", "b", "c"}, []string{"b", "c", "d"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := c.Tables()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("Tables() = %v, want [b c]", got)
	}
	if c.Cancelled() {
		t.Fatalf("should not cancel on a clean intersection")
	}
}

func TestCheckTablesFailsWhenFilterMissingOnSource(t *testing.T) {
	c := newTestCoordinator()
	err := c.CheckTables([]string{"a"}, []string{"a", "b"}, []string{"a", "b"})
	if err == nil {
		t.Fatalf("expected validation error for table missing on source")
	}
	if !c.Cancelled() {
		t.Fatalf("expected cancellation flag to be set on validation failure")
	}
}

func TestTableToProcessDequeuesInOrderThenExhausts(t *testing.T) {
	c := newTestCoordinator()
	if err := c.CheckTables([]string{"a", "b"}, []string{"a", "b"}, []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, ok := c.TableToProcess()
	if !ok || first != "a" {
		t.Fatalf("first = %q, %v, want a, true", first, ok)
	}
	second, ok := c.TableToProcess()
	if !ok || second != "b" {
		t.Fatalf("second = %q, %v, want b, true", second, ok)
	}
	_, ok = c.TableToProcess()
	if ok {
		t.Fatalf("expected queue exhaustion")
	}
}

func TestTableToProcessStopsAfterCancellation(t *testing.T) {
	c := newTestCoordinator()
	_ = c.CheckTables([]string{"a", "b"}, []string{"a", "b"}, []string{"a", "b"})
	c.Stop()
	_, ok := c.TableToProcess()
	if ok {
		t.Fatalf("expected TableToProcess to refuse work after Stop()")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := newTestCoordinator()
	c.Stop()
	c.Stop()
	if !c.Cancelled() {
		t.Fatalf("expected cancelled after Stop()")
	}
}

func TestAddRwAccumulates(t *testing.T) {
	c := newTestCoordinator()
	c.AddRw(3)
	c.AddRw(4)
	if got := c.RwCount(); got != 7 {
		t.Fatalf("RwCount() = %d, want 7", got)
	}
}
