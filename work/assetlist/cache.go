package assetlist

import (
	"time"

	"github.com/maypok86/otter/v2"

	"sgai-proxy/work/model"
)

// Cache memoizes resolved asset lists per (sessionKey, interstitialId).
// Backed by maypok86/otter/v2 — declared in the teacher's go.mod but
// never wired there; this is exactly the session-memoization use case
// its name describes.
type Cache struct {
	inner *otter.Cache[string, *model.AssetList]
}

// NewCache builds a bounded, time-based-eviction asset-list cache. A
// 15-second write-expiry keeps repeated player polls inside one ad
// break from re-resolving VAST while still rolling over between breaks.
func NewCache() *Cache {
	c := otter.Must(&otter.Options[string, *model.AssetList]{
		MaximumSize:      10_000,
		ExpiryCalculator: otter.ExpiryWriting[string, *model.AssetList](15 * time.Second),
	})
	return &Cache{inner: c}
}

func (c *Cache) Get(key string) (*model.AssetList, bool) {
	return c.inner.GetIfPresent(key)
}

func (c *Cache) Set(key string, v *model.AssetList) {
	c.inner.Set(key, v)
}
