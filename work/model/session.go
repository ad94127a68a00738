package model

import "time"

// Session tracks one player's interstitial lifecycle across the
// interstitials.m3u8 and follow-up requests for a single playback. It is
// keyed by sessionKey (interstitial id + primary id, see spec.md §4.6).
type Session struct {
	Key           string
	InterstitialID string
	PrimaryID     string
	// ForwardedQuery carries any query parameters the client attached to
	// the interstitials.m3u8 request that should be echoed to the ad
	// server (session continuity across ad-server calls).
	ForwardedQuery map[string]string
	CreatedAt      time.Time
	LastSeenAt     time.Time
}

// PersistedSessionRecord is the row shape written to the optional
// persisted-session SQLite store. ForwardedQueryCipher is the encrypted
// serialization of ForwardedQuery (nacl/secretbox sealed box).
type PersistedSessionRecord struct {
	Key                   string
	InterstitialID        string
	PrimaryID             string
	ForwardedQueryCipher  []byte
	ForwardedQueryNonce   []byte
	CreatedAt             time.Time
	LastSeenAt            time.Time
}
