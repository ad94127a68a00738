package scheduler

import (
	"testing"
	"time"

	"sgai-proxy/work/model"
)

func TestNew_staticModeStartsEmptyUntilAnchored(t *testing.T) {
	s := New(model.InsertionStatic, 30*time.Second, 10*time.Second, 2, 9)
	if len(s.Snapshot()) != 0 {
		t.Errorf("expected static scheduler to start with no breaks before EnsureFixedSchedule, got %d", len(s.Snapshot()))
	}
}

func TestEnsureFixedSchedule_anchorsAtFirstObservedPDT(t *testing.T) {
	s := New(model.InsertionStatic, 30*time.Second, 10*time.Second, 2, 9)
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.EnsureFixedSchedule(epoch)

	breaks := s.Snapshot()
	if len(breaks) != 9 {
		t.Fatalf("expected 9 fixed breaks, got %d", len(breaks))
	}
	if !breaks[0].StartTime.Equal(epoch) {
		t.Errorf("expected first break at the observed epoch (+0s), got %v", breaks[0].StartTime)
	}
	if breaks[0].ID != "ad_slot0" {
		t.Errorf("expected first break id ad_slot0, got %q", breaks[0].ID)
	}
	if !breaks[1].StartTime.Equal(epoch.Add(30 * time.Second)) {
		t.Errorf("expected second break at epoch+30s, got %v", breaks[1].StartTime)
	}
	if breaks[1].ID != "ad_slot1" {
		t.Errorf("expected second break id ad_slot1, got %q", breaks[1].ID)
	}
}

func TestEnsureFixedSchedule_onlyAnchorsOnce(t *testing.T) {
	s := New(model.InsertionStatic, 30*time.Second, 10*time.Second, 2, 9)
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	s.EnsureFixedSchedule(first)
	s.EnsureFixedSchedule(later)

	breaks := s.Snapshot()
	if !breaks[0].StartTime.Equal(first) {
		t.Errorf("expected schedule anchored at the first observed PDT to stick, got %v", breaks[0].StartTime)
	}
}

func TestNew_dynamicModeStartsEmpty(t *testing.T) {
	s := New(model.InsertionDynamic, 30*time.Second, 10*time.Second, 2, 9)
	if len(s.Snapshot()) != 0 {
		t.Errorf("expected dynamic scheduler to start with no breaks, got %d", len(s.Snapshot()))
	}
}

func TestInsert_addsSortedBreak(t *testing.T) {
	s := New(model.InsertionDynamic, 30*time.Second, 10*time.Second, 2, 0)
	now := time.Now()
	s.Insert(model.InsertionCommand{InSeconds: 20, Duration: 10 * time.Second, PodCount: 1}, now)
	s.Insert(model.InsertionCommand{InSeconds: 5, Duration: 10 * time.Second, PodCount: 1}, now)

	breaks := s.Snapshot()
	if len(breaks) != 2 {
		t.Fatalf("expected 2 breaks, got %d", len(breaks))
	}
	if !breaks[0].StartTime.Before(breaks[1].StartTime) {
		t.Error("expected breaks sorted by start time")
	}
}

func TestBreakAt_matchesWindow(t *testing.T) {
	s := New(model.InsertionDynamic, 30*time.Second, 10*time.Second, 2, 0)
	now := time.Now()
	s.Insert(model.InsertionCommand{InSeconds: 10, Duration: 5 * time.Second, PodCount: 1}, now)

	inside := now.Add(12 * time.Second)
	if _, ok := s.BreakAt(inside); !ok {
		t.Error("expected a break match inside the window")
	}

	outside := now.Add(30 * time.Second)
	if _, ok := s.BreakAt(outside); ok {
		t.Error("expected no break match outside the window")
	}
}

func TestGC_dropsPastBreaks(t *testing.T) {
	s := New(model.InsertionDynamic, 30*time.Second, 10*time.Second, 2, 0)
	now := time.Now()
	s.Insert(model.InsertionCommand{InSeconds: 10, Duration: 5 * time.Second, PodCount: 1}, now)

	s.GC(now.Add(time.Hour))
	if len(s.Snapshot()) != 0 {
		t.Errorf("expected GC to drop fully-past breaks, got %d remaining", len(s.Snapshot()))
	}
}
