// Package model holds the SGAI proxy's domain types: the HLS playlist model,
// date-range/interstitial records, ad breaks, sessions and VAST-derived
// asset-list entries. Types here are plain data; behavior lives in the
// packages that operate on them (hlsplaylist, scheduler, rewriter, vast,
// assetlist).
package model

import "time"

// Segment is one media segment line in a media playlist, plus whatever
// tags preceded it that the model understands. Unknown tags attached to a
// segment are preserved verbatim in Extra so re-serialization round-trips.
type Segment struct {
	URI             string
	Duration        float64
	Title           string
	ProgramDateTime time.Time
	HasPDT          bool
	Discontinuity   bool
	ByteRange       string
	Extra           []string
}

// DateRange models an EXT-X-DATERANGE tag. ClientAttributes holds the
// X-prefixed attributes (X-ASSET-LIST, X-SNAP, X-RESTRICT, X-RESUME-OFFSET /
// CUSTOM-DROP-OFFSET, X-AD-CREATIVE-SIGNALING) as unquoted attribute values;
// the serializer adds quotes to every non-numeric value on the way out.
type DateRange struct {
	ID                string
	Class             string
	StartDate         time.Time
	Duration          float64
	PlannedDuration   float64
	EndOnNext         bool
	ClientAttributes  map[string]string
	// AttrOrder preserves the order client attributes were added, since
	// HLS players and diff-based tests are sensitive to attribute order.
	AttrOrder []string
}

// SetAttr sets a client attribute and records its insertion order once.
func (d *DateRange) SetAttr(key, value string) {
	if d.ClientAttributes == nil {
		d.ClientAttributes = make(map[string]string)
	}
	if _, exists := d.ClientAttributes[key]; !exists {
		d.AttrOrder = append(d.AttrOrder, key)
	}
	d.ClientAttributes[key] = value
}

// MediaPlaylist is the round-trip-safe model of an HLS media playlist.
type MediaPlaylist struct {
	Version        int
	TargetDuration int
	MediaSequence  int64
	PlaylistType   string
	IsVOD          bool
	EndList        bool
	Segments       []Segment
	// DateRanges holds tags emitted on their own line rather than attached
	// to a following segment, in source order.
	DateRanges []*DateRange
	// Header carries any unrecognized top-level tags in source order, so
	// they survive a parse/rewrite/serialize round trip untouched.
	Header []string
	// Newline is the line terminator observed in the source text ("\n" or
	// "\r\n"), preserved so re-serialization doesn't silently normalize a
	// CRLF-authored playlist to LF.
	Newline string
}

// Variant is one EXT-X-STREAM-INF entry in a master playlist, grounded on
// the teacher's parser.StreamVariant shape.
type Variant struct {
	URL              string
	Bandwidth        int
	AverageBandwidth int
	Resolution       string
	Codecs           string
	FrameRate        float64
}

// MasterPlaylist is the decoded set of variants from a master playlist.
type MasterPlaylist struct {
	Variants []Variant
}
