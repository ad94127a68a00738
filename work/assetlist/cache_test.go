package assetlist

import (
	"testing"

	"sgai-proxy/work/model"
)

func TestCache_setThenGet(t *testing.T) {
	c := NewCache()
	want := &model.AssetList{Assets: []model.AssetListEntry{{URI: "a.m3u8", Duration: 5}}}

	c.Set("key1", want)

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit after Set")
	}
	if got != want {
		t.Error("expected Get to return the same pointer that was Set")
	}
}

func TestCache_missForUnknownKey(t *testing.T) {
	c := NewCache()
	if _, ok := c.Get("missing"); ok {
		t.Error("expected cache miss for a key never set")
	}
}
