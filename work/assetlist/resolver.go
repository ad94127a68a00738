// Package assetlist resolves the interstitials.m3u8 endpoint: it builds
// the ad-server request URL, fetches and parses the VAST response,
// normalizes creatives into an asset list, and memoizes the result per
// (sessionKey, interstitialId) so repeated player polls during a single
// ad break don't re-hit the ad server. Grounded on original_source/'s
// build_ad_server_url / build_ad_response / handle_interstitials flow.
package assetlist

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sgai-proxy/work/config"
	"sgai-proxy/work/errors"
	"sgai-proxy/work/logger"
	"sgai-proxy/work/model"
	"sgai-proxy/work/originclient"
	"sgai-proxy/work/vast"
)

// Resolver resolves VAST-backed asset lists for ad breaks.
type Resolver struct {
	cfg      *config.Config
	client   *originclient.Client
	logger   *logger.Logger
	cache    *Cache
	linears  *LinearStore
	flights  *Coalescer
}

// New builds a Resolver.
func New(cfg *config.Config, client *originclient.Client, log *logger.Logger) *Resolver {
	return &Resolver{
		cfg:     cfg,
		client:  client,
		logger:  log,
		cache:   NewCache(),
		linears: NewLinearStore(),
		flights: NewCoalescer(),
	}
}

// Resolve returns the asset list for one ad break, coalescing concurrent
// requests for the same (sessionKey, interstitialId) key and serving
// memoized results for repeat polls within the session cache's TTL.
// startOffsetSeconds honors _HLS_start_offset (spec §4.6 step 7): the
// cached/resolved list itself is never mutated, only the copy returned to
// this caller.
func (r *Resolver) Resolve(ctx context.Context, sessionKey, interstitialID string, b model.AdBreak, forwardedQuery map[string]string, startOffsetSeconds float64) (*model.AssetList, error) {
	key := sessionKey + "|" + interstitialID

	cached, ok := r.cache.Get(key)
	if !ok {
		resolved, err := r.flights.Do(key, func() (*model.AssetList, error) {
			return r.resolveUncached(ctx, sessionKey, b, forwardedQuery)
		})
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, resolved)
		cached = resolved
	}

	if startOffsetSeconds <= 0 {
		return cached, nil
	}
	return applyStartOffset(cached, startOffsetSeconds), nil
}

// applyStartOffset drops creatives from the front whose cumulative
// durations sum to less than offset, and for the creative straddling the
// offset, rewrites its leading URI query to carry the remaining offset so
// the downstream asset playlist can trim accordingly.
func applyStartOffset(assets *model.AssetList, offset float64) *model.AssetList {
	out := &model.AssetList{}
	remaining := offset
	for _, a := range assets.Assets {
		if remaining <= 0 {
			out.Assets = append(out.Assets, a)
			continue
		}
		if a.Duration <= remaining {
			remaining -= a.Duration
			continue
		}
		straddle := a
		straddle.URI = withStartOffset(a.URI, remaining)
		out.Assets = append(out.Assets, straddle)
		remaining = 0
	}
	return out
}

func withStartOffset(rawURL string, offset float64) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("_HLS_start_offset", strconv.FormatFloat(offset, 'f', -1, 64))
	u.RawQuery = q.Encode()
	return u.String()
}

func (r *Resolver) resolveUncached(ctx context.Context, sessionKey string, b model.AdBreak, forwardedQuery map[string]string) (*model.AssetList, error) {
	adServerURL, err := r.buildAdServerURL(b, sessionKey, forwardedQuery)
	if err != nil {
		return nil, errors.New("assetlist.Resolve", errors.KindVAST, err)
	}

	body, err := r.client.Fetch(ctx, adServerURL)
	if err != nil {
		return nil, errors.New("assetlist.Resolve", errors.KindOrigin, err)
	}

	v, err := vast.Parse(body)
	if err != nil {
		return nil, errors.New("assetlist.Resolve", errors.KindVAST, err)
	}

	creatives := vast.RawMediaCreatives(v)

	// Advanced ad-server mode with >=3 linears trims the leading/trailing
	// bumper creative, mirroring original_source/'s build_ad_response.
	if model.AdServerMode(r.cfg.AdServerMode) == model.AdServerAdvanced && len(creatives) >= 3 {
		creatives = creatives[1 : len(creatives)-1]
	}

	assets := &model.AssetList{}
	for _, vc := range creatives {
		linearID := uuid.NewString()
		creative, err := vast.BuildCreative(vc, linearID)
		if err != nil {
			r.logger.Warn("assetlist: skipping creative: %v", err)
			continue
		}
		if r.cfg.TestAssetURL != "" {
			// Open Question 2: --test-asset-url applies unconditionally to
			// every creative, matching original_source/'s unconditional
			// substitution.
			creative.MediaURL = r.cfg.TestAssetURL
		}
		r.linears.Store(linearID, creative)
		assets.Assets = append(assets.Assets, model.AssetListEntry{
			URI:       r.followUpURL(linearID),
			Duration:  creative.Duration,
			Signaling: creative.Tracking,
		})
	}

	if len(assets.Assets) == 0 {
		return nil, errors.New("assetlist.Resolve", errors.KindVAST, fmt.Errorf("no usable creatives in VAST response"))
	}

	return assets, nil
}

// buildAdServerURL constructs the ad-server request URL, porting
// original_source/'s build_ad_server_url: advanced mode pads the
// requested duration with the configured bumper duration so the ad
// server can return a leading/trailing bumper around the fill.
//
// The configured ad-server endpoint carries [template.*] placeholder
// tokens (spec §4.6 step 3, §9 design note) rather than fixed query keys
// — buildAdServerURL does a first-pass scan over the raw endpoint string
// substituting [template.duration], [template.sessionId] and
// [template.pod] before the result is parsed as a URL, so the operator's
// own query-key naming (e.g. "dur"/"ps") is preserved verbatim.
func (r *Resolver) buildAdServerURL(b model.AdBreak, sessionKey string, forwardedQuery map[string]string) (string, error) {
	duration := b.Duration
	if model.AdServerMode(r.cfg.AdServerMode) == model.AdServerAdvanced {
		duration += r.cfg.BumperDuration
	}

	raw := applyTemplateTokens(r.cfg.AdServerEndpoint, map[string]string{
		"template.duration":  strconv.FormatFloat(duration.Seconds(), 'f', -1, 64),
		"template.sessionId": sessionKey,
		"template.pod":       strconv.Itoa(b.PodCount),
	})

	base, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid ad server endpoint: %w", err)
	}
	q := base.Query()
	for k, v := range forwardedQuery {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// applyTemplateTokens replaces every "[key]" occurrence in raw with its
// query-escaped value from tokens, leaving unrecognized tokens untouched.
func applyTemplateTokens(raw string, tokens map[string]string) string {
	for k, v := range tokens {
		raw = strings.ReplaceAll(raw, "["+k+"]", url.QueryEscape(v))
	}
	return raw
}

// FollowUp returns the single creative registered under linearID, used
// by the follow-up request handler to serve a single-creative media
// playlist (the HLS_FOLLOW_ID indirection recovered from
// original_source/'s handle_follow_up_request).
func (r *Resolver) FollowUp(linearID string) (model.Creative, bool) {
	return r.linears.Load(linearID)
}

// followUpURL builds the asset-list URI for a resolved creative: rather
// than pointing the player straight at the creative's own media URL, each
// entry routes back through this proxy's /follow.m3u8 endpoint carrying
// the generated linear id, so the follow-up single-asset playlist
// machinery (FollowUp/LinearStore) is actually exercised by the proxy's
// own output, the same indirection original_source/'s
// handle_follow_up_request implements.
func (r *Resolver) followUpURL(linearID string) string {
	q := url.Values{}
	q.Set("_HLS_follow_id", linearID)
	return r.cfg.InterstitialsBase + "/follow.m3u8?" + q.Encode()
}
