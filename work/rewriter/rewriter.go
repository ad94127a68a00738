// Package rewriter injects interstitial EXT-X-DATERANGE tags into a media
// playlist at each scheduled ad break and rebases segment/variant URLs so
// the client keeps pulling both playlists and segments through this proxy.
package rewriter

import (
	"fmt"
	"net/url"
	"strconv"

	"sgai-proxy/work/hlsplaylist"
	"sgai-proxy/work/model"
)

const (
	interstitialClass = "com.apple.hls.interstitial"
	resumeOffsetVOD   = "X-RESUME-OFFSET"
	resumeOffsetLive  = "CUSTOM-DROP-OFFSET"
)

// Options controls rewrite behavior.
type Options struct {
	// AssetListURL builds the X-ASSET-LIST URL for a given break, typically
	// "<base>/interstitials.m3u8?_HLS_interstitial_id=...".
	AssetListURL func(b model.AdBreak) string
	// EmitResumeOffset controls whether the legacy X-RESUME-OFFSET /
	// CUSTOM-DROP-OFFSET attribute is attached (Open Question 1: off by
	// default, opt-in via --legacy-resume-offset).
	EmitResumeOffset bool
	IsVOD            bool
}

// Inject walks mp's segments, computing each segment's effective PDT
// (using its own when present, else the forward-filled expectation),
// and attaches an EXT-X-DATERANGE for every scheduled break whose window
// the segment's PDT falls inside — mirroring original_source/'s
// insert_interstitials matching loop.
func Inject(mp *model.MediaPlaylist, breaks []model.AdBreak, opts Options) {
	first, ok := hlsplaylist.FirstProgramDateTime(mp.Segments)
	if !ok {
		// original_source/ logs "Skipping interstitials" and returns the
		// playlist unmodified when no PDT anchor is available.
		return
	}
	pdts := hlsplaylist.ExpectedProgramDateTimes(mp.Segments, first)

	inserted := make(map[string]bool)
	for i := range mp.Segments {
		pdt := pdts[i]
		for _, b := range breaks {
			if inserted[b.ID] {
				continue
			}
			if pdt.Before(b.StartTime) || !pdt.Before(b.StartTime.Add(b.Duration)) {
				continue
			}
			dr := buildDateRange(b, opts)
			mp.Segments[i].Extra = append(mp.Segments[i].Extra, dateRangeTagLine(dr))
			inserted[b.ID] = true
		}
	}
}

func buildDateRange(b model.AdBreak, opts Options) *model.DateRange {
	dr := &model.DateRange{
		ID:        b.ID,
		Class:     interstitialClass,
		StartDate: b.StartTime,
		Duration:  b.Duration.Seconds(),
	}
	if opts.AssetListURL != nil {
		dr.SetAttr("X-ASSET-LIST", opts.AssetListURL(b))
	}
	dr.SetAttr("X-SNAP", "IN,OUT")
	dr.SetAttr("X-RESTRICT", "SKIP,JUMP")
	if opts.EmitResumeOffset {
		key := resumeOffsetLive
		if opts.IsVOD {
			key = resumeOffsetVOD
		}
		dr.SetAttr(key, "0.0")
	}
	return dr
}

// dateRangeTagLine renders dr as a single EXT-X-DATERANGE line so it can
// be carried in a Segment's Extra slice and serialized verbatim by
// hlsplaylist.SerializeMediaPlaylist.
func dateRangeTagLine(dr *model.DateRange) string {
	line := fmt.Sprintf("#EXT-X-DATERANGE:ID=%q,CLASS=%q,START-DATE=%q,DURATION=%s",
		dr.ID, dr.Class, hlsplaylist.FormatProgramDateTime(dr.StartDate), strconv.FormatFloat(dr.Duration, 'f', -1, 64))
	for _, key := range dr.AttrOrder {
		line += fmt.Sprintf(",%s=%q", key, dr.ClientAttributes[key])
	}
	return line
}

// RebaseSegmentURLs resolves every segment URI against originBaseURL and
// then points it at this proxy's own segment-passthrough endpoint
// (segmentProxyPath), carrying the resolved origin URL as a query
// parameter. Segments never reference the origin host directly (spec §8
// invariant 6): the player keeps pulling segment bytes through the proxy,
// exactly as it pulls the rewritten playlist, mirroring original_source/'s
// handle_media_playlist leaving segment URIs to resolve back through its
// own handle_segment route.
func RebaseSegmentURLs(mp *model.MediaPlaylist, originBaseURL, segmentProxyPath string) {
	for i := range mp.Segments {
		abs := hlsplaylist.ResolveURL(mp.Segments[i].URI, originBaseURL)
		q := url.Values{}
		q.Set("origin", abs)
		mp.Segments[i].URI = segmentProxyPath + "?" + q.Encode()
	}
}

// RebaseVariantURLs rewrites each master-playlist variant URL to route
// back through this proxy's own media-playlist endpoint (preserving the
// origin URL as a query parameter) instead of pointing directly at
// origin, so ad insertion can be applied to whichever variant the player
// picks.
func RebaseVariantURLs(mp *model.MasterPlaylist, proxyMediaPath string) {
	for i := range mp.Variants {
		q := url.Values{}
		q.Set("origin", mp.Variants[i].URL)
		mp.Variants[i].URL = proxyMediaPath + "?" + q.Encode()
	}
}
