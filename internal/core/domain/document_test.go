package domain

import (
	"testing"
	"time"
)

func TestProgressRounding(t *testing.T) {
	tests := []struct {
		embedded, chunks, want int
	}{
		{0, 0, 0},
		{0, -1, 0},
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 67},
		{5, 10, 50},
		{10, 10, 100},
	}
	for _, tt := range tests {
		if got := Progress(tt.embedded, tt.chunks); got != tt.want {
			t.Errorf("Progress(%d, %d) = %d, want %d", tt.embedded, tt.chunks, got, tt.want)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if StatePending.Terminal() || StateProcessing.Terminal() {
		t.Fatalf("pending/processing must not be terminal")
	}
	if !StateCompleted.Terminal() || !StateFailed.Terminal() {
		t.Fatalf("completed/failed must be terminal")
	}
}

func TestCanMakeQueryWindowReset(t *testing.T) {
	now := time.Now().UTC()
	tenant := Tenant{
		MaxQueries:       2,
		QueryCount:       2,
		QueryWindowStart: now.Add(-30 * time.Minute),
	}

	if tenant.CanMakeQuery(now, time.Hour) {
		t.Fatalf("exhausted quota inside the window must refuse")
	}
	if !tenant.CanMakeQuery(now.Add(31*time.Minute), time.Hour) {
		t.Fatalf("elapsed window must allow queries again")
	}
}

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := ErrQuotaExceeded
	err := WrapError(ErrQuotaExceeded, "reserve", ErrTenantNotFound)

	if !IsKind(err, cause) {
		t.Fatalf("expected quota kind in %v", err)
	}
	if !IsKind(err, ErrTenantNotFound) {
		t.Fatalf("expected wrapped cause in %v", err)
	}
	if IsKind(err, ErrRateLimited) {
		t.Fatalf("unexpected kind match in %v", err)
	}
}
