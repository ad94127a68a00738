package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AdBreaksEmitted counts ad breaks written into a served media playlist,
// labeled by insertion mode (static/dynamic).
var AdBreaksEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sgai_proxy_ad_breaks_emitted_total",
	Help: "Total ad breaks emitted into media playlists",
}, []string{"mode"})

// AssetListRequests counts interstitials.m3u8 asset-list requests, labeled
// by outcome (resolved, error).
var AssetListRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sgai_proxy_asset_list_requests_total",
	Help: "Total asset-list resolution requests",
}, []string{"outcome"})

// OriginFetchDuration tracks origin HTTP round-trip latency, labeled by
// resource kind (master, media, segment).
var OriginFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "sgai_proxy_origin_fetch_duration_seconds",
	Help:    "Origin fetch latency",
	Buckets: prometheus.DefBuckets,
}, []string{"kind"})

// OriginFetchErrors counts failed origin fetches, labeled by resource kind.
var OriginFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sgai_proxy_origin_fetch_errors_total",
	Help: "Total origin fetch errors",
}, []string{"kind"})

// ActiveSessions tracks the number of live interstitial sessions.
var ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sgai_proxy_active_sessions",
	Help: "Number of tracked interstitial sessions",
})

// ScheduledBreaks tracks the current number of breaks held by the
// scheduler, labeled by mode.
var ScheduledBreaks = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "sgai_proxy_scheduled_breaks",
	Help: "Number of ad breaks currently scheduled",
}, []string{"mode"})

// LiveEdgeTrackers tracks the number of media playlists currently being
// followed for live-edge PDT.
var LiveEdgeTrackers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "sgai_proxy_live_edge_trackers",
	Help: "Number of media playlists currently tracked for live edge",
})

// CommandsReceived counts /command requests, labeled by acceptance
// (accepted, rejected_static_mode, bad_request).
var CommandsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sgai_proxy_commands_received_total",
	Help: "Total dynamic insertion commands received",
}, []string{"outcome"})
