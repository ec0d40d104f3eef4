package ledger_test

import (
	"testing"
	"time"

	"ncanimate/internal/daterange"
	"ncanimate/internal/ledger"
)

func at(h int) time.Time {
	return time.Date(2010, 9, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(h) * time.Hour)
}

func TestIsReadyNeedsOneContainingEntry(t *testing.T) {
	var l ledger.Ledger
	product := daterange.New(at(0), at(3))
	if l.IsReady(product) {
		t.Fatal("empty ledger cannot be ready")
	}
	l.Add(daterange.New(at(0), at(1)))
	l.Add(daterange.New(at(2), at(3)))
	if l.IsReady(product) {
		t.Fatal("fragmented coverage must not be ready")
	}
	l.Add(daterange.New(at(1), at(2)))
	if !l.IsReady(product) {
		t.Fatal("expected merged coverage to be ready")
	}
	if l.Len() != 1 {
		t.Fatalf("expected one merged entry, got %v", l.Ranges())
	}
}

func TestReadinessIsMonotonic(t *testing.T) {
	var l ledger.Ledger
	target := daterange.New(at(5), at(6))
	l.Add(daterange.New(at(4), at(7)))
	if !l.IsReady(target) {
		t.Fatal("expected target to be ready")
	}
	for i := 0; i < 24; i++ {
		l.Add(daterange.New(at(i*3), at(i*3+1)))
		if !l.IsReady(target) {
			t.Fatalf("target stopped being ready after adding entry %d", i)
		}
	}
}

func TestRangesReturnsCopy(t *testing.T) {
	var l ledger.Ledger
	l.Add(daterange.New(at(0), at(1)))
	ranges := l.Ranges()
	ranges[0] = daterange.New(at(5), at(6))
	if !l.IsReady(daterange.New(at(0), at(1))) {
		t.Fatal("mutating Ranges result changed the ledger")
	}
}
