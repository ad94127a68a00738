package hlsplaylist

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sgai-proxy/work/model"
)

// ErrMalformedPlaylist is returned when the input does not parse as a
// well-formed HLS media playlist: no #EXTM3U header, a segment URI with
// no preceding EXTINF, or a tag whose required attributes are missing
// (spec §4.1). Callers map it to a 502 via errors.KindParse.
var ErrMalformedPlaylist = fmt.Errorf("malformed playlist")

// ParseMediaPlaylist hand-rolls a media-playlist parse, preserving enough
// structure (segments, date-ranges, unrecognized header tags) to
// re-serialize without losing information the rewriter didn't touch.
// grafov/m3u8 is not used here: it predates EXT-X-DATERANGE and drops it
// on decode, which would break asset-list injection round-tripping.
func ParseMediaPlaylist(content string) (*model.MediaPlaylist, error) {
	mp := &model.MediaPlaylist{Newline: detectNewline(content)}
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sawHeader bool
	var pendingDuration float64
	var pendingTitle string
	var pendingHasEXTINF bool
	var pendingPDT time.Time
	var havePDT bool
	var pendingDiscontinuity bool
	var pendingByteRange string
	var pendingExtra []string

	resetPending := func() {
		pendingDuration = 0
		pendingTitle = ""
		pendingHasEXTINF = false
		pendingPDT = time.Time{}
		havePDT = false
		pendingDiscontinuity = false
		pendingByteRange = ""
		pendingExtra = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "#EXTM3U" {
			sawHeader = true
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-VERSION:"):
			if v, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-VERSION:")); err == nil {
				mp.Version = v
			}
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			if v, err := strconv.Atoi(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:")); err == nil {
				mp.TargetDuration = v
			}
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			if v, err := strconv.ParseInt(strings.TrimPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"), 10, 64); err == nil {
				mp.MediaSequence = v
			}
		case strings.HasPrefix(line, "#EXT-X-PLAYLIST-TYPE:"):
			mp.PlaylistType = strings.TrimPrefix(line, "#EXT-X-PLAYLIST-TYPE:")
			mp.IsVOD = mp.PlaylistType == "VOD"
		case line == "#EXT-X-ENDLIST":
			mp.EndList = true
		case strings.HasPrefix(line, "#EXT-X-DISCONTINUITY-SEQUENCE:"):
			mp.Header = append(mp.Header, line)
		case line == "#EXT-X-DISCONTINUITY":
			pendingDiscontinuity = true
		case strings.HasPrefix(line, "#EXT-X-BYTERANGE:"):
			pendingByteRange = strings.TrimPrefix(line, "#EXT-X-BYTERANGE:")
		case strings.HasPrefix(line, "#EXT-X-PROGRAM-DATE-TIME:"):
			raw := strings.TrimPrefix(line, "#EXT-X-PROGRAM-DATE-TIME:")
			if t, err := ParseProgramDateTime(raw); err == nil {
				pendingPDT = t
				havePDT = true
			}
		case strings.HasPrefix(line, "#EXT-X-DATERANGE:"):
			dr, err := parseDateRangeAttrs(strings.TrimPrefix(line, "#EXT-X-DATERANGE:"))
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedPlaylist, err)
			}
			mp.DateRanges = append(mp.DateRanges, dr)
		case strings.HasPrefix(line, "#EXTINF:"):
			dur, title := parseEXTINF(strings.TrimPrefix(line, "#EXTINF:"))
			pendingDuration = dur
			pendingTitle = title
			pendingHasEXTINF = true
		case strings.HasPrefix(line, "#EXT-X-"):
			// Unrecognized X- tag attached before the next segment line;
			// carry it through verbatim so serialization round-trips.
			pendingExtra = append(pendingExtra, line)
		case strings.HasPrefix(line, "#"):
			mp.Header = append(mp.Header, line)
		default:
			if !sawHeader {
				return nil, fmt.Errorf("%w: missing #EXTM3U header", ErrMalformedPlaylist)
			}
			if !pendingHasEXTINF {
				return nil, fmt.Errorf("%w: segment URI %q with no preceding EXTINF", ErrMalformedPlaylist, line)
			}
			seg := model.Segment{
				URI:           line,
				Duration:      pendingDuration,
				Title:         pendingTitle,
				ProgramDateTime: pendingPDT,
				HasPDT:        havePDT,
				Discontinuity: pendingDiscontinuity,
				ByteRange:     pendingByteRange,
				Extra:         pendingExtra,
			}
			mp.Segments = append(mp.Segments, seg)
			resetPending()
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("%w: missing #EXTM3U header", ErrMalformedPlaylist)
	}

	return mp, nil
}

// detectNewline reports the line terminator used by the first terminated
// line in content, defaulting to "\n" for single-line or LF-only input.
func detectNewline(content string) string {
	if idx := strings.IndexByte(content, '\n'); idx > 0 && content[idx-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

func parseEXTINF(tail string) (float64, string) {
	idx := strings.IndexByte(tail, ',')
	if idx == -1 {
		d, _ := strconv.ParseFloat(strings.TrimSpace(tail), 64)
		return d, ""
	}
	durPart := strings.TrimSpace(tail[:idx])
	title := strings.TrimSpace(tail[idx+1:])
	d, _ := strconv.ParseFloat(durPart, 64)
	return d, title
}

// parseDateRangeAttrs requires ID and a parseable START-DATE, the two
// attributes EXT-X-DATERANGE mandates; either missing is a malformed tag.
func parseDateRangeAttrs(tail string) (*model.DateRange, error) {
	attrs := ParseAttributes(tail)
	if attrs["ID"] == "" {
		return nil, fmt.Errorf("EXT-X-DATERANGE missing required ID attribute")
	}
	dr := &model.DateRange{
		ID:    attrs["ID"],
		Class: attrs["CLASS"],
	}
	sd, ok := attrs["START-DATE"]
	if !ok {
		return nil, fmt.Errorf("EXT-X-DATERANGE %q missing required START-DATE attribute", dr.ID)
	}
	t, err := ParseProgramDateTime(sd)
	if err != nil {
		return nil, fmt.Errorf("EXT-X-DATERANGE %q has unparseable START-DATE %q: %w", dr.ID, sd, err)
	}
	dr.StartDate = t
	if d, ok := attrs["DURATION"]; ok {
		dr.Duration, _ = strconv.ParseFloat(d, 64)
	}
	if d, ok := attrs["PLANNED-DURATION"]; ok {
		dr.PlannedDuration, _ = strconv.ParseFloat(d, 64)
	}
	if _, ok := attrs["END-ON-NEXT"]; ok {
		dr.EndOnNext = strings.EqualFold(attrs["END-ON-NEXT"], "YES")
	}
	for k, v := range attrs {
		switch k {
		case "ID", "CLASS", "START-DATE", "DURATION", "PLANNED-DURATION", "END-ON-NEXT":
			continue
		default:
			dr.SetAttr(k, v)
		}
	}
	return dr, nil
}

// ParseProgramDateTime parses an EXT-X-PROGRAM-DATE-TIME value, trying
// RFC3339 first and falling back to a couple of loose layouts seen in the
// wild, mirroring original_source/'s utils::parse_date_time fallback chain
// (RFC3339 -> RFC2822 -> a custom "%Y-%m-%dT%H:%M:%S%.3f%z" layout).
func ParseProgramDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC1123Z, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.000Z0700", raw)
}
