package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"sgai-proxy/work/errors"
	"sgai-proxy/work/metrics"
	"sgai-proxy/work/model"
)

// HandleInterstitials serves GET /interstitials.m3u8, resolving the VAST
// asset list for one ad break and returning it as JSON (spec §4.6). The
// ".m3u8" suffix is a client-facing convention only; the body is JSON.
func (s *Server) HandleInterstitials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		interstitialID := q.Get("_HLS_interstitial_id")
		if interstitialID == "" {
			writeError(w, errors.New("httpapi.HandleInterstitials", errors.KindBadRequest, nil))
			return
		}

		primaryID := q.Get("_HLS_primary_id")
		if primaryID == "" {
			primaryID = fabricatePrimaryID()
		}

		startOffset := 0.0
		if raw := q.Get("_HLS_start_offset"); raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				startOffset = v
			}
		}

		forwarded := forwardedQueryFrom(q)
		sess := s.Sessions.GetOrCreate(interstitialID, primaryID, forwarded)

		playlistURL := s.Config.ForwardURL
		sch := s.schedulerFor(playlistURL)

		var target model.AdBreak
		found := false
		for _, b := range sch.Snapshot() {
			if b.ID == interstitialID {
				target, found = b, true
				break
			}
		}
		if !found {
			// Unknown break id: respond with an empty asset list so the
			// player can resume primary content gracefully (spec §7).
			metrics.AssetListRequests.WithLabelValues("error").Inc()
			writeJSON(w, http.StatusOK, &model.AssetList{})
			return
		}

		assets, err := s.Resolver.Resolve(r.Context(), sess.Key, interstitialID, target, sess.ForwardedQuery, startOffset)
		if err != nil {
			s.Logger.Warn("httpapi: asset-list resolution failed for %s: %v", interstitialID, err)
			metrics.AssetListRequests.WithLabelValues("error").Inc()
			// spec §7: upstream ad-server failure still returns 200 with an
			// empty ASSETS array rather than failing the player.
			writeJSON(w, http.StatusOK, &model.AssetList{})
			return
		}

		metrics.AssetListRequests.WithLabelValues("resolved").Inc()
		writeJSON(w, http.StatusOK, assets)
	}
}

// HandleFollowUp serves the per-creative follow-up playlist referenced by
// a generated linear ID, the indirection original_source/'s
// handle_follow_up_request implements so each creative gets its own
// single-asset media playlist.
func (s *Server) HandleFollowUp() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linearID := r.URL.Query().Get("_HLS_follow_id")
		if linearID == "" {
			writeError(w, errors.New("httpapi.HandleFollowUp", errors.KindBadRequest, nil))
			return
		}

		creative, ok := s.Resolver.FollowUp(linearID)
		if !ok {
			writeError(w, errors.New("httpapi.HandleFollowUp", errors.KindNotFound, nil))
			return
		}

		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte(singleAssetPlaylist(creative)))
	}
}

func singleAssetPlaylist(c model.Creative) string {
	out := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:" + strconv.FormatFloat(c.Duration, 'f', 0, 64) + "\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXTINF:" + strconv.FormatFloat(c.Duration, 'f', -1, 64) + ",\n" +
		c.MediaURL + "\n#EXT-X-ENDLIST\n"
	return out
}

func forwardedQueryFrom(q map[string][]string) map[string]string {
	out := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) == 0 {
			continue
		}
		switch k {
		case "_HLS_interstitial_id", "_HLS_primary_id", "_HLS_start_offset", "_HLS_follow_id":
			continue
		}
		out[k] = v[0]
	}
	return out
}

func fabricatePrimaryID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(b[:])
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.KindOf(err) {
	case errors.KindBadRequest:
		status = http.StatusBadRequest
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindOrigin, errors.KindVAST, errors.KindParse:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
