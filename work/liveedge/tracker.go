// Package liveedge tracks the live edge (latest known program-date-time
// and media sequence) of each media playlist the proxy has seen, keyed by
// playlist URL. Grounded on the teacher's watcher.WatcherManager registry
// shape: a xsync.MapOf keyed by identity, one long-lived tracker per key,
// each publishing its current state through an atomic.Pointer snapshot so
// reads never take a lock.
package liveedge

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Snapshot is the immutable state a Tracker publishes. Readers load it
// once and act on a consistent view.
type Snapshot struct {
	LiveEdgePDT   time.Time
	MediaSequence int64
	IsVOD         bool
	LastFetchedAt time.Time
}

// Tracker holds the live-edge state for one media playlist URL.
type Tracker struct {
	snapshot atomic.Pointer[Snapshot]
}

// Load returns the current snapshot, or nil if nothing has been observed yet.
func (t *Tracker) Load() *Snapshot {
	return t.snapshot.Load()
}

// Observe updates the tracker from a freshly fetched playlist's live edge.
// A backward PDT jump relative to the previous snapshot is accepted as
// authoritative (Open Question 4: the proxy trusts the latest upstream
// fetch over rejecting it) but the caller is expected to have already
// logged the anomaly before calling Observe.
func (t *Tracker) Observe(pdt time.Time, mediaSequence int64, isVOD bool) {
	t.snapshot.Store(&Snapshot{
		LiveEdgePDT:   pdt,
		MediaSequence: mediaSequence,
		IsVOD:         isVOD,
		LastFetchedAt: time.Now(),
	})
}

// Registry is the process-wide map of URL -> *Tracker.
type Registry struct {
	trackers *xsync.MapOf[string, *Tracker]
	staleAfter time.Duration
}

// NewRegistry builds an empty registry. staleAfter governs CleanupStale's
// eviction window.
func NewRegistry(staleAfter time.Duration) *Registry {
	return &Registry{
		trackers:   xsync.NewMapOf[string, *Tracker](),
		staleAfter: staleAfter,
	}
}

// TrackerFor returns the tracker for url, creating one if this is the
// first time it has been seen.
func (r *Registry) TrackerFor(url string) *Tracker {
	t, _ := r.trackers.LoadOrStore(url, &Tracker{})
	return t
}

// CleanupStale removes trackers that haven't been refreshed within
// staleAfter, the same opportunistic-sweep pattern as the teacher's
// watcher.cleanupRoutine.
func (r *Registry) CleanupStale() {
	now := time.Now()
	r.trackers.Range(func(url string, t *Tracker) bool {
		snap := t.Load()
		if snap == nil {
			return true
		}
		if now.Sub(snap.LastFetchedAt) > r.staleAfter {
			r.trackers.Delete(url)
		}
		return true
	})
}

// Len reports the number of tracked playlists, used by the /status endpoint.
func (r *Registry) Len() int {
	return r.trackers.Size()
}
