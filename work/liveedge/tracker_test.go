package liveedge

import (
	"testing"
	"time"
)

func TestTracker_observeThenLoad(t *testing.T) {
	tr := &Tracker{}
	if tr.Load() != nil {
		t.Error("expected nil snapshot before first Observe")
	}

	pdt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr.Observe(pdt, 42, false)

	snap := tr.Load()
	if snap == nil {
		t.Fatal("expected a snapshot after Observe")
	}
	if !snap.LiveEdgePDT.Equal(pdt) {
		t.Errorf("expected live edge %v, got %v", pdt, snap.LiveEdgePDT)
	}
	if snap.MediaSequence != 42 {
		t.Errorf("expected media sequence 42, got %d", snap.MediaSequence)
	}
}

func TestRegistry_trackerForIsStablePerURL(t *testing.T) {
	r := NewRegistry(time.Minute)
	a := r.TrackerFor("http://origin/media.m3u8")
	b := r.TrackerFor("http://origin/media.m3u8")
	if a != b {
		t.Error("expected the same tracker instance for the same URL")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 tracked URL, got %d", r.Len())
	}
}

func TestRegistry_cleanupStaleRemovesOldTrackers(t *testing.T) {
	r := NewRegistry(10 * time.Millisecond)
	tr := r.TrackerFor("http://origin/media.m3u8")
	tr.Observe(time.Now(), 1, false)

	time.Sleep(20 * time.Millisecond)
	r.CleanupStale()

	if r.Len() != 0 {
		t.Errorf("expected stale tracker to be removed, got %d remaining", r.Len())
	}
}
