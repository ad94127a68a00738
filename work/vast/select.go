package vast

import (
	"fmt"
	"strconv"
	"strings"

	"sgai-proxy/work/model"
)

// AllCreatives flattens every InLine ad's creative list, the Go port of
// original_source/'s utils::get_all_creatives_from_vast.
func AllCreatives(v *VAST) []Creative {
	var out []Creative
	for _, ad := range v.Ads {
		if ad.InLine == nil {
			continue
		}
		out = append(out, ad.InLine.Creatives.Creative...)
	}
	return out
}

// isMediaSegment mirrors original_source/'s utils::is_media_segment: a
// crude extension sniff used to filter out non-playable bumper creatives.
func isMediaSegment(path string) bool {
	return strings.Contains(path, ".ts") || strings.Contains(path, ".cmf") ||
		strings.Contains(path, ".mp") || strings.Contains(path, ".m4s")
}

// RawMediaCreatives returns creatives that have both a UniversalAdId and a
// Linear, and whose first media file looks like a raw media segment
// (ports original_source/'s get_all_raw_creatives_from_vast +
// filter_creatives_by).
func RawMediaCreatives(v *VAST) []Creative {
	var out []Creative
	for _, c := range AllCreatives(v) {
		if len(c.UniversalAdIDs) == 0 || c.Linear == nil {
			continue
		}
		urls := MediaURLs(c.Linear)
		if len(urls) == 0 || !isMediaSegment(urls[0]) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// DurationSeconds parses a VAST Linear Duration ("HH:MM:SS" or
// "HH:MM:SS.mmm") into seconds, the Go equivalent of
// original_source/'s utils::get_duration_from_linear.
func DurationSeconds(linear *Linear) float64 {
	if linear == nil || linear.Duration == "" {
		return 0
	}
	parts := strings.Split(linear.Duration, ":")
	if len(parts) != 3 {
		return 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.ParseFloat(parts[2], 64)
	return float64(h)*3600 + float64(m)*60 + s
}

// MediaURLs returns every media file URI on a linear creative, mirroring
// original_source/'s utils::get_media_urls_from_linear.
func MediaURLs(linear *Linear) []string {
	if linear == nil {
		return nil
	}
	urls := make([]string, 0, len(linear.MediaFiles.MediaFile))
	for _, mf := range linear.MediaFiles.MediaFile {
		urls = append(urls, strings.TrimSpace(mf.URI))
	}
	return urls
}

// TrackingSignals groups a linear creative's tracking beacons by quartile
// event name, porting original_source/'s
// utils::get_tracking_events_from_linear.
func TrackingSignals(linear *Linear) []model.CreativeSignal {
	if linear == nil || linear.TrackingEvents == nil {
		return nil
	}
	byEvent := make(map[string]*model.CreativeSignal)
	var order []string
	for _, t := range linear.TrackingEvents.Tracking {
		sig, ok := byEvent[t.Event]
		if !ok {
			sig = &model.CreativeSignal{Event: t.Event, Offset: t.Offset}
			byEvent[t.Event] = sig
			order = append(order, t.Event)
		}
		sig.URLs = append(sig.URLs, strings.TrimSpace(t.URI))
	}
	out := make([]model.CreativeSignal, 0, len(order))
	for _, event := range order {
		out = append(out, *byEvent[event])
	}
	return out
}

// BuildCreative assembles a model.Creative from a VAST Creative, assigning
// linearID as its follow-up-request lookup key (see assetlist.Resolver for
// how linearID ties back to the AvailableAds table, grounded on
// original_source/'s AvailableAds.linears DashMap).
func BuildCreative(c Creative, linearID string) (model.Creative, error) {
	if c.Linear == nil {
		return model.Creative{}, fmt.Errorf("creative %s has no Linear", c.ID)
	}
	urls := MediaURLs(c.Linear)
	if len(urls) == 0 {
		return model.Creative{}, fmt.Errorf("creative %s has no media files", c.ID)
	}
	return model.Creative{
		LinearID: linearID,
		MediaURL: selectMediaURL(urls),
		Duration: DurationSeconds(c.Linear),
		Tracking: TrackingSignals(c.Linear),
	}, nil
}

// selectMediaURL prefers a streaming manifest (.m3u8) over a single-file
// creative when the VAST response offers both, falling back to the first
// listed media file otherwise.
func selectMediaURL(urls []string) string {
	for _, u := range urls {
		if strings.Contains(u, ".m3u8") {
			return u
		}
	}
	return urls[0]
}
