package hlsplaylist

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sgai-proxy/work/model"
)

// SerializeMediaPlaylist re-emits a MediaPlaylist as HLS text. Date-ranges
// held on mp.DateRanges are written as one block, in StartDate order,
// before the first segment; they are not interleaved with the segments.
// Date-ranges injected by rewriter.Inject travel as pre-rendered lines in a
// segment's Extra slice and are written just before that segment.
func SerializeMediaPlaylist(mp *model.MediaPlaylist) string {
	nl := mp.Newline
	if nl == "" {
		nl = "\n"
	}

	var b strings.Builder
	b.WriteString("#EXTM3U")
	b.WriteString(nl)
	if mp.Version > 0 {
		fmt.Fprintf(&b, "#EXT-X-VERSION:%d%s", mp.Version, nl)
	}
	for _, h := range mp.Header {
		b.WriteString(h)
		b.WriteString(nl)
	}
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d%s", mp.TargetDuration, nl)
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d%s", mp.MediaSequence, nl)
	if mp.PlaylistType != "" {
		fmt.Fprintf(&b, "#EXT-X-PLAYLIST-TYPE:%s%s", mp.PlaylistType, nl)
	}

	// Stand-alone date-ranges (those parsed from the source playlist) are
	// emitted in StartDate order before the segment list.
	standalone := make([]*model.DateRange, len(mp.DateRanges))
	copy(standalone, mp.DateRanges)
	sort.SliceStable(standalone, func(i, j int) bool {
		return standalone[i].StartDate.Before(standalone[j].StartDate)
	})
	for _, dr := range standalone {
		writeDateRange(&b, dr, nl)
	}

	for _, seg := range mp.Segments {
		for _, extra := range seg.Extra {
			b.WriteString(extra)
			b.WriteString(nl)
		}
		if seg.Discontinuity {
			b.WriteString("#EXT-X-DISCONTINUITY")
			b.WriteString(nl)
		}
		if seg.HasPDT {
			fmt.Fprintf(&b, "#EXT-X-PROGRAM-DATE-TIME:%s%s", FormatProgramDateTime(seg.ProgramDateTime), nl)
		}
		if seg.ByteRange != "" {
			fmt.Fprintf(&b, "#EXT-X-BYTERANGE:%s%s", seg.ByteRange, nl)
		}
		fmt.Fprintf(&b, "#EXTINF:%s,%s%s", formatDuration(seg.Duration), seg.Title, nl)
		b.WriteString(seg.URI)
		b.WriteString(nl)
	}

	if mp.EndList {
		b.WriteString("#EXT-X-ENDLIST")
		b.WriteString(nl)
	}

	return b.String()
}

func writeDateRange(b *strings.Builder, dr *model.DateRange, nl string) {
	b.WriteString("#EXT-X-DATERANGE:")
	fmt.Fprintf(b, "ID=%q", dr.ID)
	if dr.Class != "" {
		fmt.Fprintf(b, ",CLASS=%q", dr.Class)
	}
	fmt.Fprintf(b, ",START-DATE=%q", FormatProgramDateTime(dr.StartDate))
	if dr.Duration > 0 {
		fmt.Fprintf(b, ",DURATION=%s", formatDuration(dr.Duration))
	}
	if dr.PlannedDuration > 0 {
		fmt.Fprintf(b, ",PLANNED-DURATION=%s", formatDuration(dr.PlannedDuration))
	}
	if dr.EndOnNext {
		b.WriteString(",END-ON-NEXT=YES")
	}
	for _, key := range dr.AttrOrder {
		val := dr.ClientAttributes[key]
		if isNumericAttr(val) {
			fmt.Fprintf(b, ",%s=%s", key, val)
		} else {
			fmt.Fprintf(b, ",%s=%q", key, val)
		}
	}
	b.WriteString(nl)
}

func isNumericAttr(v string) bool {
	if v == "" {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func formatDuration(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}
