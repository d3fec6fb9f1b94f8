package environment

import (
	"encoding/json"
	"net/url"
	"sync"

	"github.com/devshare/analytics-go/pkg/identity"
	"github.com/devshare/analytics-go/pkg/types"
)

// KeyUTMParams is the storage key of the first-touch UTM parameters.
const KeyUTMParams = "__analytics_utm_params__"

// ExtractUTM reads campaign parameters from a URL query string. Both the
// conventional snake_case names (utm_source) and the camelCase variants
// (utmSource) are recognized; snake_case wins when both are present.
func ExtractUTM(rawURL string) types.UTMParams {
	if rawURL == "" {
		return types.UTMParams{}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return types.UTMParams{}
	}
	q := u.Query()

	pick := func(snake, camel string) string {
		if v := q.Get(snake); v != "" {
			return v
		}
		return q.Get(camel)
	}

	return types.UTMParams{
		Source:   pick("utm_source", "utmSource"),
		Medium:   pick("utm_medium", "utmMedium"),
		Campaign: pick("utm_campaign", "utmCampaign"),
		Term:     pick("utm_term", "utmTerm"),
		Content:  pick("utm_content", "utmContent"),
	}
}

// UTMStore keeps the first non-empty UTM parameters seen by the client.
type UTMStore struct {
	storage identity.Storage

	mu     sync.Mutex
	cached *types.UTMParams
}

// NewUTMStore creates a store backed by storage. Nil storage keeps the
// parameters in memory only.
func NewUTMStore(storage identity.Storage) *UTMStore {
	if storage == nil {
		storage = identity.NewMemoryStorage()
	}
	return &UTMStore{storage: storage}
}

// Load returns the stored parameters. When nothing is stored yet it
// extracts them from pageURL and stores them if any are present.
func (s *UTMStore) Load(pageURL string) types.UTMParams {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached
	}

	if raw, ok, err := s.storage.Get(KeyUTMParams); err == nil && ok {
		var params types.UTMParams
		if json.Unmarshal([]byte(raw), &params) == nil {
			s.cached = &params
			return params
		}
	}

	params := ExtractUTM(pageURL)
	if params.IsZero() {
		return params
	}

	if data, err := json.Marshal(params); err == nil {
		_ = s.storage.Set(KeyUTMParams, string(data))
	}
	s.cached = &params
	return params
}

// Forget discards the stored parameters.
func (s *UTMStore) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cached = nil
	_ = s.storage.Delete(KeyUTMParams)
}
