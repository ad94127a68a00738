package hlsplaylist

import (
	"strings"
	"testing"
	"time"

	"sgai-proxy/work/model"
)

const sampleMedia = `#EXTM3U
#EXT-X-VERSION:4
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:10
#EXT-X-PROGRAM-DATE-TIME:2026-08-06T10:00:00.000Z
#EXTINF:6.0,
seg10.ts
#EXTINF:6.0,
seg11.ts
`

func TestParseMediaPlaylist_basics(t *testing.T) {
	mp, err := ParseMediaPlaylist(sampleMedia)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mp.Version != 4 {
		t.Errorf("expected version 4, got %d", mp.Version)
	}
	if mp.TargetDuration != 6 {
		t.Errorf("expected target duration 6, got %d", mp.TargetDuration)
	}
	if mp.MediaSequence != 10 {
		t.Errorf("expected media sequence 10, got %d", mp.MediaSequence)
	}
	if len(mp.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(mp.Segments))
	}
	if !mp.Segments[0].HasPDT {
		t.Error("expected first segment to carry PDT")
	}
	if mp.Segments[1].HasPDT {
		t.Error("expected second segment to have no PDT of its own")
	}
}

func TestExpectedProgramDateTimes_forwardFill(t *testing.T) {
	mp, err := ParseMediaPlaylist(sampleMedia)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, ok := FirstProgramDateTime(mp.Segments)
	if !ok {
		t.Fatal("expected a PDT to be found")
	}
	pdts := ExpectedProgramDateTimes(mp.Segments, first)
	if len(pdts) != 2 {
		t.Fatalf("expected 2 computed PDTs, got %d", len(pdts))
	}
	want := first.Add(6 * time.Second)
	if !pdts[1].Equal(want) {
		t.Errorf("expected second segment PDT %v, got %v", want, pdts[1])
	}
}

func TestSerializeMediaPlaylist_roundTripsDateRange(t *testing.T) {
	mp, err := ParseMediaPlaylist(sampleMedia)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dr := &model.DateRange{
		ID:        "break1",
		Class:     "com.apple.hls.interstitial",
		StartDate: mp.Segments[0].ProgramDateTime,
		Duration:  10,
	}
	dr.SetAttr("X-ASSET-LIST", "https://example.com/assets.json")
	mp.DateRanges = append(mp.DateRanges, dr)

	out := SerializeMediaPlaylist(mp)
	if !strings.Contains(out, `#EXT-X-DATERANGE:ID="break1"`) {
		t.Errorf("expected serialized date range, got:\n%s", out)
	}
	if !strings.Contains(out, `X-ASSET-LIST="https://example.com/assets.json"`) {
		t.Errorf("expected X-ASSET-LIST attribute, got:\n%s", out)
	}

	reparsed, err := ParseMediaPlaylist(out)
	if err != nil {
		t.Fatalf("unexpected reparse error: %v", err)
	}
	if len(reparsed.DateRanges) != 1 {
		t.Fatalf("expected 1 date range after round trip, got %d", len(reparsed.DateRanges))
	}
	if reparsed.DateRanges[0].ClientAttributes["X-ASSET-LIST"] != "https://example.com/assets.json" {
		t.Errorf("expected X-ASSET-LIST to round-trip, got %q", reparsed.DateRanges[0].ClientAttributes["X-ASSET-LIST"])
	}
}

func TestParseMediaPlaylist_rejectsMissingHeader(t *testing.T) {
	noHeader := "#EXT-X-TARGETDURATION:6\n#EXTINF:6.0,\nseg0.ts\n"
	if _, err := ParseMediaPlaylist(noHeader); err == nil {
		t.Error("expected an error for a playlist missing #EXTM3U")
	}
}

func TestParseMediaPlaylist_rejectsSegmentWithNoEXTINF(t *testing.T) {
	noEXTINF := "#EXTM3U\n#EXT-X-TARGETDURATION:6\nseg0.ts\n"
	if _, err := ParseMediaPlaylist(noEXTINF); err == nil {
		t.Error("expected an error for a segment URI with no preceding EXTINF")
	}
}

func TestParseMediaPlaylist_rejectsDateRangeMissingStartDate(t *testing.T) {
	badDateRange := "#EXTM3U\n#EXT-X-TARGETDURATION:6\n#EXT-X-DATERANGE:ID=\"x\"\n#EXTINF:6.0,\nseg0.ts\n"
	if _, err := ParseMediaPlaylist(badDateRange); err == nil {
		t.Error("expected an error for a DATERANGE tag missing START-DATE")
	}
}

func TestParseMediaPlaylist_rejectsNonPlaylistBody(t *testing.T) {
	htmlErrorPage := "<html><body>404 Not Found</body></html>"
	if _, err := ParseMediaPlaylist(htmlErrorPage); err == nil {
		t.Error("expected an error for a non-playlist body")
	}
}

func TestSerializeMediaPlaylist_preservesCRLF(t *testing.T) {
	crlfMedia := strings.ReplaceAll(sampleMedia, "\n", "\r\n")
	mp, err := ParseMediaPlaylist(crlfMedia)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mp.Newline != "\r\n" {
		t.Fatalf("expected detected newline %q, got %q", "\r\n", mp.Newline)
	}

	out := SerializeMediaPlaylist(mp)
	if !strings.Contains(out, "#EXTM3U\r\n") {
		t.Errorf("expected CRLF line endings preserved, got:\n%q", out)
	}
	if strings.Contains(strings.ReplaceAll(out, "\r\n", ""), "\n") {
		t.Errorf("expected no bare LF once CRLF pairs are stripped, got:\n%q", out)
	}
}
