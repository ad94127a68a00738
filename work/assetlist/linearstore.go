package assetlist

import (
	"github.com/puzpuzpuz/xsync/v3"

	"sgai-proxy/work/model"
)

// LinearStore is the per-creative follow-up lookup table, the Go port of
// original_source/'s AvailableAds{linears: Arc<DashMap<Uuid, Ad>>}. Keyed
// by the generated linear ID carried in the asset-list follow-up URL.
type LinearStore struct {
	m *xsync.MapOf[string, model.Creative]
}

func NewLinearStore() *LinearStore {
	return &LinearStore{m: xsync.NewMapOf[string, model.Creative]()}
}

func (s *LinearStore) Store(linearID string, c model.Creative) {
	s.m.Store(linearID, c)
}

func (s *LinearStore) Load(linearID string) (model.Creative, bool) {
	return s.m.Load(linearID)
}

func (s *LinearStore) Delete(linearID string) {
	s.m.Delete(linearID)
}
