package rewriter

import (
	"strings"
	"testing"
	"time"

	"sgai-proxy/work/model"
)

func TestInject_attachesDateRangeWithinBreakWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mp := &model.MediaPlaylist{
		Segments: []model.Segment{
			{URI: "seg0.ts", Duration: 6, ProgramDateTime: base, HasPDT: true},
			{URI: "seg1.ts", Duration: 6},
			{URI: "seg2.ts", Duration: 6},
		},
	}
	breaks := []model.AdBreak{
		{ID: "break1", StartTime: base.Add(6 * time.Second), Duration: 6 * time.Second},
	}

	Inject(mp, breaks, Options{
		AssetListURL: func(b model.AdBreak) string { return "https://example.com/interstitials.m3u8?_HLS_interstitial_id=" + b.ID },
	})

	if len(mp.Segments[1].Extra) == 0 {
		t.Fatal("expected a DATERANGE tag on the segment inside the break window")
	}
	if !strings.Contains(mp.Segments[1].Extra[0], "EXT-X-DATERANGE") {
		t.Errorf("expected an EXT-X-DATERANGE line, got %q", mp.Segments[1].Extra[0])
	}
	if !strings.Contains(mp.Segments[1].Extra[0], "X-ASSET-LIST") {
		t.Error("expected X-ASSET-LIST attribute in the injected DATERANGE")
	}
	if len(mp.Segments[0].Extra) != 0 || len(mp.Segments[2].Extra) != 0 {
		t.Error("expected DATERANGE only on the segment inside the break window")
	}
}

func TestInject_noPDTAnchorSkipsSilently(t *testing.T) {
	mp := &model.MediaPlaylist{
		Segments: []model.Segment{{URI: "seg0.ts", Duration: 6}},
	}
	breaks := []model.AdBreak{{ID: "break1", Duration: 6 * time.Second}}

	Inject(mp, breaks, Options{})

	if len(mp.Segments[0].Extra) != 0 {
		t.Error("expected no DATERANGE injected when no PDT anchor is present")
	}
}

func TestRebaseVariantURLs_pointsAtProxyMediaPath(t *testing.T) {
	mp := &model.MasterPlaylist{
		Variants: []model.Variant{{URL: "https://origin.example.com/hi.m3u8"}},
	}
	RebaseVariantURLs(mp, "/media.m3u8")

	if !strings.HasPrefix(mp.Variants[0].URL, "/media.m3u8?origin=") {
		t.Errorf("expected rebased variant URL to carry origin query param, got %q", mp.Variants[0].URL)
	}
}
