package httpapi

import (
	"net/http"
	"time"
)

// StatusResponse is the JSON body for GET /status (spec §4.7): mode,
// known break count, last live-edge time, last origin fetch time, session
// count. Shaped after the teacher's admin StatsResponse.
type StatusResponse struct {
	Mode            string    `json:"mode"`
	BreakCount      int       `json:"breakCount"`
	LastLiveEdge    time.Time `json:"lastLiveEdge"`
	LastOriginFetch time.Time `json:"lastOriginFetch"`
	SessionCount    int       `json:"sessionCount"`
	TrackedPlaylists int      `json:"trackedPlaylists"`
	UptimeSeconds   float64   `json:"uptimeSeconds"`
}

// HandleStatus serves GET /status.
func (s *Server) HandleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sch := s.schedulerFor(s.Config.ForwardURL)
		tracker := s.LiveEdge.TrackerFor(s.Config.ForwardURL)

		var lastLiveEdge time.Time
		if snap := tracker.Load(); snap != nil {
			lastLiveEdge = snap.LiveEdgePDT
		}

		resp := StatusResponse{
			Mode:             s.Config.InsertionMode,
			BreakCount:       len(sch.Snapshot()),
			LastLiveEdge:     lastLiveEdge,
			LastOriginFetch:  s.lastOriginFetchTime(),
			SessionCount:     s.Sessions.Len(),
			TrackedPlaylists: s.LiveEdge.Len(),
			UptimeSeconds:    time.Since(s.startedAt).Seconds(),
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
