package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"sgai-proxy/work/errors"
	"sgai-proxy/work/hlsplaylist"
	"sgai-proxy/work/metrics"
	"sgai-proxy/work/rewriter"
)

// HandlePlaylist serves GET /{path}.m3u8: the configured master playlist
// if path matches it, otherwise a rewritten media playlist fetched from
// origin (spec §4.7 route table).
func (s *Server) HandlePlaylist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/master.m3u8") {
			s.handleMaster(w, r)
			return
		}
		s.handleMedia(w, r)
	}
}

func (s *Server) handleMaster(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := s.Client.Fetch(r.Context(), s.Config.ForwardURL)
	metrics.OriginFetchDuration.WithLabelValues("master").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OriginFetchErrors.WithLabelValues("master").Inc()
		writeError(w, errors.New("httpapi.handleMaster", errors.KindOrigin, err))
		return
	}
	s.recordOriginFetch()

	mp, err := hlsplaylist.ParseMasterPlaylist(string(body), s.Config.ForwardURL)
	if err != nil {
		writeError(w, errors.New("httpapi.handleMaster", errors.KindParse, err))
		return
	}

	rewriter.RebaseVariantURLs(mp, mediaProxyPath(r))

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	fmt.Fprint(w, hlsplaylist.SerializeMaster(mp.Variants))
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	originURL := r.URL.Query().Get("origin")
	if originURL == "" {
		originURL = s.Config.ForwardURL
	}

	start := time.Now()
	body, err := s.Client.Fetch(r.Context(), originURL)
	metrics.OriginFetchDuration.WithLabelValues("media").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.OriginFetchErrors.WithLabelValues("media").Inc()
		writeError(w, errors.New("httpapi.handleMedia", errors.KindOrigin, err))
		return
	}
	s.recordOriginFetch()

	mp, err := hlsplaylist.ParseMediaPlaylist(string(body))
	if err != nil {
		writeError(w, errors.New("httpapi.handleMedia", errors.KindParse, err))
		return
	}

	rewriter.RebaseSegmentURLs(mp, originURL, segmentProxyPath(r))

	sch := s.schedulerFor(originURL)
	if first, ok := hlsplaylist.FirstProgramDateTime(mp.Segments); ok {
		sch.EnsureFixedSchedule(first)

		lastPDT := first
		if len(mp.Segments) > 0 {
			pdts := hlsplaylist.ExpectedProgramDateTimes(mp.Segments, first)
			lastPDT = pdts[len(pdts)-1]
		}
		tracker := s.LiveEdge.TrackerFor(originURL)
		prev := tracker.Load()
		if prev != nil && lastPDT.Before(prev.LiveEdgePDT) {
			s.Logger.Warn("httpapi: backward PDT jump on %s: %s -> %s", originURL, prev.LiveEdgePDT, lastPDT)
		}
		tracker.Observe(lastPDT, mp.MediaSequence, mp.IsVOD)
	}

	breaks := sch.Snapshot()
	rewriter.Inject(mp, breaks, rewriter.Options{
		AssetListURL:     s.assetListURL,
		EmitResumeOffset: s.Config.LegacyResumeOffset,
		IsVOD:            mp.IsVOD,
	})
	emitted := 0
	for _, seg := range mp.Segments {
		for _, extra := range seg.Extra {
			if strings.HasPrefix(extra, "#EXT-X-DATERANGE:") {
				emitted++
			}
		}
	}
	metrics.AdBreaksEmitted.WithLabelValues(s.Config.InsertionMode).Add(float64(emitted))

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	fmt.Fprint(w, hlsplaylist.SerializeMediaPlaylist(mp))
}

func mediaProxyPath(r *http.Request) string {
	idx := strings.LastIndex(r.URL.Path, "/")
	if idx < 0 {
		return "/media.m3u8"
	}
	return r.URL.Path[:idx] + "/media.m3u8"
}

func segmentProxyPath(r *http.Request) string {
	idx := strings.LastIndex(r.URL.Path, "/")
	if idx < 0 {
		return "/segment"
	}
	return r.URL.Path[:idx] + "/segment"
}

// HandleSegment fetches the origin-resolved segment URL carried in the
// "origin" query parameter and streams the bytes back verbatim, so a
// rebased segment URI never needs the player to talk to the origin host
// directly (spec §8 invariant 6).
func (s *Server) HandleSegment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		originURL := r.URL.Query().Get("origin")
		if originURL == "" {
			writeError(w, errors.New("httpapi.HandleSegment", errors.KindBadRequest, nil))
			return
		}

		start := time.Now()
		body, err := s.Client.Fetch(r.Context(), originURL)
		metrics.OriginFetchDuration.WithLabelValues("segment").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.OriginFetchErrors.WithLabelValues("segment").Inc()
			writeError(w, errors.New("httpapi.HandleSegment", errors.KindOrigin, err))
			return
		}
		s.recordOriginFetch()

		w.Header().Set("Content-Type", segmentContentType(originURL))
		w.Write(body)
	}
}

func segmentContentType(rawURL string) string {
	switch {
	case strings.HasSuffix(rawURL, ".ts"):
		return "video/mp2t"
	case strings.HasSuffix(rawURL, ".m4s"), strings.HasSuffix(rawURL, ".mp4"):
		return "video/mp4"
	case strings.HasSuffix(rawURL, ".aac"):
		return "audio/aac"
	case strings.HasSuffix(rawURL, ".vtt"):
		return "text/vtt"
	default:
		return "application/octet-stream"
	}
}
