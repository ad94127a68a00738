package assetlist

import (
	"testing"

	"sgai-proxy/work/model"
)

func TestLinearStore_storeLoadDelete(t *testing.T) {
	s := NewLinearStore()
	c := model.Creative{LinearID: "lin1", MediaURL: "a.ts", Duration: 5}

	s.Store("lin1", c)

	got, ok := s.Load("lin1")
	if !ok {
		t.Fatal("expected to load a stored creative")
	}
	if got.MediaURL != "a.ts" {
		t.Errorf("expected media URL a.ts, got %q", got.MediaURL)
	}

	s.Delete("lin1")
	if _, ok := s.Load("lin1"); ok {
		t.Error("expected creative to be gone after Delete")
	}
}
