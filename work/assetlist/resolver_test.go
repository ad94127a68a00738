package assetlist

import (
	"net/url"
	"testing"
	"time"

	"sgai-proxy/work/config"
	"sgai-proxy/work/logger"
	"sgai-proxy/work/model"
	"sgai-proxy/work/originclient"
)

func newTestResolver(cfg *config.Config) *Resolver {
	client := originclient.New(cfg, logger.New("error"))
	return New(cfg, client, logger.New("error"))
}

func TestBuildAdServerURL_substitutesTemplateTokens(t *testing.T) {
	cfg := &config.Config{
		AdServerEndpoint: "https://ads.example.com/vast?dur=[template.duration]&ps=[template.pod]&sid=[template.sessionId]",
		AdServerMode:     string(model.AdServerDefault),
	}
	r := newTestResolver(cfg)

	b := model.AdBreak{PodCount: 2, Duration: 10 * time.Second}
	raw, err := r.buildAdServerURL(b, "session-123", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	q := u.Query()
	if q.Get("dur") != "10" {
		t.Errorf("expected dur=10, got %q", q.Get("dur"))
	}
	if q.Get("ps") != "2" {
		t.Errorf("expected ps=2, got %q", q.Get("ps"))
	}
	if q.Get("sid") != "session-123" {
		t.Errorf("expected sid=session-123, got %q", q.Get("sid"))
	}
}

func TestBuildAdServerURL_advancedModePadsBumperDuration(t *testing.T) {
	cfg := &config.Config{
		AdServerEndpoint: "https://ads.example.com/vast?dur=[template.duration]",
		AdServerMode:     string(model.AdServerAdvanced),
		BumperDuration:   5 * time.Second,
	}
	r := newTestResolver(cfg)

	b := model.AdBreak{PodCount: 1, Duration: 10 * time.Second}
	raw, err := r.buildAdServerURL(b, "sess", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, _ := url.Parse(raw)
	if u.Query().Get("dur") != "15" {
		t.Errorf("expected bumper-padded duration 15, got %q", u.Query().Get("dur"))
	}
}

func TestBuildAdServerURL_forwardsPassthroughQuery(t *testing.T) {
	cfg := &config.Config{AdServerEndpoint: "https://ads.example.com/vast"}
	r := newTestResolver(cfg)

	b := model.AdBreak{PodCount: 1, Duration: 10 * time.Second}
	raw, err := r.buildAdServerURL(b, "sess", map[string]string{"gdpr": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u, _ := url.Parse(raw)
	if u.Query().Get("gdpr") != "1" {
		t.Errorf("expected forwarded gdpr=1, got %q", u.Query().Get("gdpr"))
	}
}

func TestApplyStartOffset_dropsLeadingCreativesAndTrimsStraddler(t *testing.T) {
	assets := &model.AssetList{Assets: []model.AssetListEntry{
		{URI: "a.m3u8", Duration: 10},
		{URI: "b.m3u8", Duration: 10},
		{URI: "c.m3u8", Duration: 10},
	}}

	out := applyStartOffset(assets, 15)
	if len(out.Assets) != 2 {
		t.Fatalf("expected 2 remaining assets, got %d", len(out.Assets))
	}
	u, err := url.Parse(out.Assets[0].URI)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if u.Path == "b.m3u8" {
		// the straddling creative (5s into "b") keeps its position but
		// carries a rewritten _HLS_start_offset query param.
		if u.Query().Get("_HLS_start_offset") != "5" {
			t.Errorf("expected remaining offset 5 on straddling creative, got %q", u.Query().Get("_HLS_start_offset"))
		}
	} else {
		t.Errorf("expected the straddling creative b.m3u8 first, got %q", out.Assets[0].URI)
	}
	if out.Assets[1].URI != "c.m3u8" {
		t.Errorf("expected c.m3u8 to pass through untouched, got %q", out.Assets[1].URI)
	}
}

func TestApplyStartOffset_zeroOrNegativeIsNoop(t *testing.T) {
	assets := &model.AssetList{Assets: []model.AssetListEntry{{URI: "a.m3u8", Duration: 10}}}
	out := applyStartOffset(assets, 0)
	if len(out.Assets) != 1 || out.Assets[0].URI != "a.m3u8" {
		t.Errorf("expected assets unchanged for zero offset, got %+v", out.Assets)
	}
}

func TestFollowUpURL_carriesGeneratedLinearID(t *testing.T) {
	cfg := &config.Config{InterstitialsBase: "https://proxy.example.com"}
	r := newTestResolver(cfg)

	got := r.followUpURL("lin-abc")
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if u.Path != "/follow.m3u8" {
		t.Errorf("expected path /follow.m3u8, got %q", u.Path)
	}
	if u.Query().Get("_HLS_follow_id") != "lin-abc" {
		t.Errorf("expected _HLS_follow_id=lin-abc, got %q", u.Query().Get("_HLS_follow_id"))
	}
}
