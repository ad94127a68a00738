// Package session tracks per-player interstitial sessions in memory, keyed
// by (interstitialId, primaryId), and optionally mirrors them to an
// encrypted-at-rest SQLite table via the write-through collaborator in
// persist.go (Open Question 3: write-through, queued on the ants worker
// pool so the HTTP handler doesn't block on SQLite I/O).
package session

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"sgai-proxy/work/model"
)

// Store is the in-memory session registry, the same xsync.MapOf-backed
// concurrent registry shape as the teacher's watcher.WatcherManager.
type Store struct {
	sessions *xsync.MapOf[string, *model.Session]
	persist  *PersistedStore // nil when persistence is disabled
}

// New builds a Store. persist may be nil.
func New(persist *PersistedStore) *Store {
	return &Store{
		sessions: xsync.NewMapOf[string, *model.Session](),
		persist:  persist,
	}
}

// Key derives the session key from the interstitial id and primary id
// query parameters, the same pair original_source/'s
// handle_interstitials reads from _HLS_interstitial_id/_HLS_primary_id.
func Key(interstitialID, primaryID string) string {
	return interstitialID + "::" + primaryID
}

// GetOrCreate returns the session for key, creating and (if persistence
// is enabled) queuing a write-through for a new one.
func (s *Store) GetOrCreate(interstitialID, primaryID string, forwardedQuery map[string]string) *model.Session {
	key := Key(interstitialID, primaryID)
	now := time.Now()

	existing, loaded := s.sessions.Load(key)
	if loaded {
		existing.LastSeenAt = now
		if s.persist != nil {
			s.persist.QueueWrite(existing)
		}
		return existing
	}

	sess := &model.Session{
		Key:            key,
		InterstitialID: interstitialID,
		PrimaryID:      primaryID,
		ForwardedQuery: forwardedQuery,
		CreatedAt:      now,
		LastSeenAt:     now,
	}
	actual, _ := s.sessions.LoadOrStore(key, sess)
	if s.persist != nil {
		s.persist.QueueWrite(actual)
	}
	return actual
}

// Len reports the number of live sessions, used by the /status endpoint.
func (s *Store) Len() int {
	return s.sessions.Size()
}
