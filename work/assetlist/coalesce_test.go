package assetlist

import (
	"sync"
	"sync/atomic"
	"testing"

	"sgai-proxy/work/model"
)

func TestCoalescer_concurrentCallsAllReceiveResult(t *testing.T) {
	c := NewCoalescer()
	var calls int32
	var wg sync.WaitGroup

	results := make([]*model.AssetList, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.Do("key1", func() (*model.AssetList, error) {
				atomic.AddInt32(&calls, 1)
				return &model.AssetList{Assets: []model.AssetListEntry{{URI: "a.m3u8"}}}, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[idx] = v
		}(i)
	}
	wg.Wait()

	if calls == 0 {
		t.Fatal("expected the resolver function to run at least once")
	}
	for i, r := range results {
		if r == nil {
			t.Errorf("result %d was nil", i)
		}
	}
}
