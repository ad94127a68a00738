package session

import "testing"

func TestKey_combinesInterstitialAndPrimary(t *testing.T) {
	k := Key("int-1", "prim-2")
	if k != "int-1::prim-2" {
		t.Errorf("expected composite key, got %q", k)
	}
}

func TestGetOrCreate_reusesExistingSession(t *testing.T) {
	s := New(nil)

	first := s.GetOrCreate("int-1", "prim-2", map[string]string{"a": "b"})
	second := s.GetOrCreate("int-1", "prim-2", map[string]string{"a": "b"})

	if first != second {
		t.Error("expected GetOrCreate to return the same session pointer for the same key")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 tracked session, got %d", s.Len())
	}
}

func TestGetOrCreate_distinctKeysCreateDistinctSessions(t *testing.T) {
	s := New(nil)

	s.GetOrCreate("int-1", "prim-1", nil)
	s.GetOrCreate("int-2", "prim-1", nil)

	if s.Len() != 2 {
		t.Errorf("expected 2 tracked sessions, got %d", s.Len())
	}
}
