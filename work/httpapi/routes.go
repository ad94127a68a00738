package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sgai-proxy/work/middleware"
)

// Routes builds the gorilla/mux router, mirroring the teacher's main.go
// route wiring plus the gzip middleware wrap on playlist/asset-list
// responses (spec §4.7).
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/interstitials.m3u8", middleware.GzipMiddleware(s.HandleInterstitials())).Methods("GET")
	router.HandleFunc("/follow.m3u8", middleware.GzipMiddleware(s.HandleFollowUp())).Methods("GET")
	router.HandleFunc("/command", s.HandleCommand()).Methods("GET", "POST")
	router.HandleFunc("/status", s.HandleStatus()).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Master and media playlist routes, matched by path suffix inside
	// HandlePlaylist the way the teacher distinguishes group vs. plain
	// playlist routes in work/handlers.
	router.HandleFunc("/master.m3u8", middleware.GzipMiddleware(s.HandlePlaylist())).Methods("GET")
	router.HandleFunc("/media.m3u8", middleware.GzipMiddleware(s.HandlePlaylist())).Methods("GET")
	router.HandleFunc("/segment", s.HandleSegment()).Methods("GET")

	// Any other path yields 404 (spec §4.7 route table) rather than being
	// treated as an implicit media-playlist request.
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return router
}
