package vast

import "testing"

const sampleVAST = `<?xml version="1.0"?>
<VAST version="4.0">
  <Ad id="1">
    <InLine>
      <AdSystem>TestAdServer</AdSystem>
      <AdTitle>Sample</AdTitle>
      <Creatives>
        <Creative id="c1">
          <UniversalAdId idRegistry="adserver.org">1234</UniversalAdId>
          <Linear>
            <Duration>00:00:15</Duration>
            <MediaFiles>
              <MediaFile delivery="progressive" type="video/mp4" width="1280" height="720">https://cdn.example.com/creative.mp4</MediaFile>
            </MediaFiles>
            <TrackingEvents>
              <Tracking event="start">https://track.example.com/start</Tracking>
              <Tracking event="complete">https://track.example.com/complete</Tracking>
            </TrackingEvents>
          </Linear>
        </Creative>
      </Creatives>
    </InLine>
  </Ad>
</VAST>`

func TestParse_basics(t *testing.T) {
	v, err := Parse([]byte(sampleVAST))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Ads) != 1 {
		t.Fatalf("expected 1 ad, got %d", len(v.Ads))
	}
	creatives := RawMediaCreatives(v)
	if len(creatives) != 1 {
		t.Fatalf("expected 1 raw media creative, got %d", len(creatives))
	}
	dur := DurationSeconds(creatives[0].Linear)
	if dur != 15 {
		t.Errorf("expected duration 15s, got %v", dur)
	}
	urls := MediaURLs(creatives[0].Linear)
	if len(urls) != 1 || urls[0] != "https://cdn.example.com/creative.mp4" {
		t.Errorf("unexpected media urls: %v", urls)
	}
}

func TestTrackingSignals_groupsByEvent(t *testing.T) {
	v, err := Parse([]byte(sampleVAST))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	creatives := RawMediaCreatives(v)
	signals := TrackingSignals(creatives[0].Linear)
	if len(signals) != 2 {
		t.Fatalf("expected 2 tracking signals, got %d", len(signals))
	}
	found := map[string]bool{}
	for _, s := range signals {
		found[s.Event] = true
	}
	if !found["start"] || !found["complete"] {
		t.Errorf("expected start and complete events, got %+v", signals)
	}
}

func TestBuildCreative_assignsLinearID(t *testing.T) {
	v, err := Parse([]byte(sampleVAST))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	creatives := RawMediaCreatives(v)
	c, err := BuildCreative(creatives[0], "abc-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.LinearID != "abc-123" {
		t.Errorf("expected linear id abc-123, got %s", c.LinearID)
	}
	if c.MediaURL != "https://cdn.example.com/creative.mp4" {
		t.Errorf("unexpected media url: %s", c.MediaURL)
	}
}
