// Package httpapi wires the gorilla/mux routes that front the proxy:
// master/media playlist passthrough-with-rewrite, the interstitials.m3u8
// asset-list endpoint, the dynamic-mode command endpoint, and /status.
// Mirrors the teacher's work/handlers package shape (constructor-injected
// handler factories returning http.HandlerFunc).
package httpapi

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"sgai-proxy/work/assetlist"
	"sgai-proxy/work/config"
	"sgai-proxy/work/liveedge"
	"sgai-proxy/work/logger"
	"sgai-proxy/work/model"
	"sgai-proxy/work/originclient"
	"sgai-proxy/work/scheduler"
	"sgai-proxy/work/session"
)

// Server holds the collaborators every route handler needs.
type Server struct {
	Config    *config.Config
	Logger    *logger.Logger
	Client    *originclient.Client
	LiveEdge  *liveedge.Registry
	Resolver  *assetlist.Resolver
	Sessions  *session.Store

	schedulers *xsync.MapOf[string, *scheduler.Scheduler]

	startedAt       time.Time
	lastOriginFetch atomic.Int64 // unix nanos
}

// New builds a Server.
func New(cfg *config.Config, log *logger.Logger, client *originclient.Client, edges *liveedge.Registry, resolver *assetlist.Resolver, sessions *session.Store) *Server {
	return &Server{
		Config:     cfg,
		Logger:     log,
		Client:     client,
		LiveEdge:   edges,
		Resolver:   resolver,
		Sessions:   sessions,
		schedulers: xsync.NewMapOf[string, *scheduler.Scheduler](),
		startedAt:  time.Now(),
	}
}

// schedulerFor returns (creating if needed) the break scheduler for the
// given media-playlist URL, one per playlist the way liveedge.Registry
// keeps one Tracker per playlist.
func (s *Server) schedulerFor(playlistURL string) *scheduler.Scheduler {
	if existing, ok := s.schedulers.Load(playlistURL); ok {
		return existing
	}
	fresh := scheduler.New(
		model.InsertionMode(s.Config.InsertionMode),
		s.Config.BreakCycle,
		s.Config.BreakDuration,
		s.Config.BreakPodCount,
		s.Config.FixedBreakCount,
	)
	actual, _ := s.schedulers.LoadOrStore(playlistURL, fresh)
	return actual
}

// assetListURL builds the X-ASSET-LIST URL for a break, per spec §4.5:
// "{interstitialsBase}/interstitials.m3u8?_HLS_interstitial_id={id}".
func (s *Server) assetListURL(b model.AdBreak) string {
	return s.Config.InterstitialsBase + "/interstitials.m3u8?_HLS_interstitial_id=" + b.ID
}

func (s *Server) recordOriginFetch() {
	s.lastOriginFetch.Store(time.Now().UnixNano())
}

func (s *Server) lastOriginFetchTime() time.Time {
	nanos := s.lastOriginFetch.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// GC runs the periodic maintenance sweep (scheduler GC, live-edge
// staleness cleanup), meant to be submitted to the ants worker pool on a
// ticker the way the teacher drives its RestreamCleanup loop.
func (s *Server) GC() {
	s.LiveEdge.CleanupStale()
	s.schedulers.Range(func(playlistURL string, sch *scheduler.Scheduler) bool {
		if snap := s.LiveEdge.TrackerFor(playlistURL).Load(); snap != nil {
			sch.GC(snap.LiveEdgePDT)
		}
		return true
	})
}
