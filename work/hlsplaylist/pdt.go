package hlsplaylist

import (
	"time"

	"sgai-proxy/work/model"
)

// FormatProgramDateTime renders t the way original_source/'s
// date_time_to_string does: RFC3339 with millisecond precision.
func FormatProgramDateTime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z07:00")
}

// ExpectedProgramDateTimes forward-fills a PDT for every segment that
// lacks one, accumulating segment durations from the last known PDT. This
// is the Go port of original_source/'s
// utils::calculate_expected_program_date_time_list, needed because live
// playlists commonly carry PDT only on the first segment after a
// discontinuity.
func ExpectedProgramDateTimes(segments []model.Segment, first time.Time) []time.Time {
	out := make([]time.Time, len(segments))
	current := first
	var accumulated time.Duration

	for i, seg := range segments {
		segDur := time.Duration(seg.Duration * float64(time.Second))
		if seg.HasPDT {
			current = seg.ProgramDateTime
			accumulated = segDur
			out[i] = current
			continue
		}
		out[i] = current.Add(accumulated)
		accumulated += segDur
	}
	return out
}

// FirstProgramDateTime returns the first segment's PDT, mirroring
// original_source/'s utils::find_program_datetime_tag (segments.find_map).
func FirstProgramDateTime(segments []model.Segment) (time.Time, bool) {
	for _, seg := range segments {
		if seg.HasPDT {
			return seg.ProgramDateTime, true
		}
	}
	return time.Time{}, false
}
