package assetlist

import (
	"golang.org/x/sync/singleflight"

	"sgai-proxy/work/model"
)

// Coalescer ensures only one VAST resolution is in flight per
// (sessionKey, interstitialId) key at a time; concurrent callers for the
// same key share the first caller's result instead of each hitting the ad
// server, the same de-duplication the teacher's sync.Map-of-channels
// client registration in types.Restreamer.Clients achieves for concurrent
// stream viewers.
type Coalescer struct {
	group singleflight.Group
}

func NewCoalescer() *Coalescer {
	return &Coalescer{}
}

func (c *Coalescer) Do(key string, fn func() (*model.AssetList, error)) (*model.AssetList, error) {
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.AssetList), nil
}
