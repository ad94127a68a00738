package httpapi

import (
	"net/url"
	"testing"
)

func TestParseInsertionCommand_valid(t *testing.T) {
	q := url.Values{"in": {"5"}, "dur": {"10"}, "pod": {"2"}}
	cmd, err := parseInsertionCommand(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.InSeconds != 5 {
		t.Errorf("expected InSeconds 5, got %v", cmd.InSeconds)
	}
	if cmd.PodCount != 2 {
		t.Errorf("expected PodCount 2, got %d", cmd.PodCount)
	}
}

func TestParseInsertionCommand_negativeInRejected(t *testing.T) {
	q := url.Values{"in": {"-1"}, "dur": {"10"}, "pod": {"2"}}
	if _, err := parseInsertionCommand(q); err == nil {
		t.Error("expected an error for in=-1")
	}
}

func TestParseInsertionCommand_zeroDurationRejected(t *testing.T) {
	q := url.Values{"in": {"0"}, "dur": {"0"}, "pod": {"2"}}
	if _, err := parseInsertionCommand(q); err == nil {
		t.Error("expected an error for dur=0")
	}
}

func TestParseInsertionCommand_zeroPodRejected(t *testing.T) {
	q := url.Values{"in": {"0"}, "dur": {"10"}, "pod": {"0"}}
	if _, err := parseInsertionCommand(q); err == nil {
		t.Error("expected an error for pod=0")
	}
}
