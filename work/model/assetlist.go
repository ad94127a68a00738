package model

// AssetListEntry is one creative entry in the interstitial asset-list JSON
// response: a URI pointing at a single-creative media playlist (served by
// the follow-up request handler) plus the creative's duration.
type AssetListEntry struct {
	URI       string           `json:"URI"`
	Duration  float64          `json:"DURATION"`
	Signaling []CreativeSignal `json:"X-AD-CREATIVE-SIGNALING,omitempty"`
}

// AssetList is the full JSON body returned from the interstitials.m3u8
// endpoint (the "asset list" the player fetches via X-ASSET-LIST).
type AssetList struct {
	Assets    []AssetListEntry `json:"ASSETS"`
	Signaling []CreativeSignal `json:"X-AD-CREATIVE-SIGNALING,omitempty"`
}

// CreativeSignal groups tracking-beacon URLs by VAST quartile event name,
// surfaced to the player via the X-AD-CREATIVE-SIGNALING client attribute
// so a SGAI-aware client can fire its own beacons. Recovered from
// original_source/'s utils::get_tracking_events_from_linear.
type CreativeSignal struct {
	Event string   `json:"event"`
	Offset string  `json:"offset,omitempty"`
	URLs  []string `json:"urls"`
}

// Creative is one resolved VAST linear creative: its media URL, duration,
// a generated linear ID used as the follow-up-request lookup key, and its
// tracking signals.
type Creative struct {
	LinearID string
	MediaURL string
	Duration float64
	Tracking []CreativeSignal
}
