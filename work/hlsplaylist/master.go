// Package hlsplaylist implements the round-trip-safe HLS playlist model:
// master-playlist variant decode (delegated to grafov/m3u8, mirroring the
// teacher's parser.ParseWithGrafov path) and a hand-rolled media-playlist
// parser/serializer, since grafov/m3u8 predates EXT-X-DATERANGE and cannot
// round-trip it.
package hlsplaylist

import (
	"bufio"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/grafov/m3u8"
	"github.com/grafana/regexp"

	"sgai-proxy/work/model"
)

// attrRe mirrors the teacher's parser.MasterPlaylistHandler.parseAttributes
// regex, generalized (A-Z0-9- instead of A-Z-only) so it also covers
// DATERANGE attribute keys like "PLANNED-DURATION".
var attrRe = regexp.MustCompile(`([A-Z0-9-]+)=("[^"]*"|[^,]+)`)

// ParseAttributes extracts KEY=VALUE pairs from an HLS attribute-list tail,
// handling both quoted and unquoted values.
func ParseAttributes(params string) map[string]string {
	attrs := make(map[string]string)
	for _, match := range attrRe.FindAllStringSubmatch(params, -1) {
		if len(match) < 3 {
			continue
		}
		attrs[match[1]] = strings.Trim(match[2], "\"")
	}
	return attrs
}

// IsMasterPlaylist reports whether content is an HLS master playlist.
func IsMasterPlaylist(content string) bool {
	return strings.Contains(content, "#EXT-X-STREAM-INF")
}

// IsMediaPlaylist reports whether content is an HLS media playlist.
func IsMediaPlaylist(content string) bool {
	return strings.Contains(content, "#EXTINF") || strings.Contains(content, "#EXT-X-TARGETDURATION")
}

// ParseMasterPlaylist decodes a master playlist's variants via
// grafov/m3u8.DecodeFrom, resolving each variant URI against baseURL.
func ParseMasterPlaylist(content string, baseURL string) (*model.MasterPlaylist, error) {
	playlist, listType, err := m3u8.DecodeFrom(bufio.NewReader(strings.NewReader(content)), true)
	if err != nil {
		return nil, fmt.Errorf("decoding master playlist: %w", err)
	}
	if listType != m3u8.MASTER {
		return nil, fmt.Errorf("content is not a master playlist")
	}

	master := playlist.(*m3u8.MasterPlaylist)
	out := &model.MasterPlaylist{}
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		out.Variants = append(out.Variants, model.Variant{
			URL:              ResolveURL(v.URI, baseURL),
			Bandwidth:        int(v.Bandwidth),
			AverageBandwidth: int(v.AverageBandwidth),
			Resolution:       v.Resolution,
			Codecs:           v.Codecs,
			FrameRate:        v.FrameRate,
		})
	}

	sort.SliceStable(out.Variants, func(i, j int) bool {
		return out.Variants[i].Bandwidth > out.Variants[j].Bandwidth
	})

	return out, nil
}

// ResolveURL converts a potentially relative URL to absolute form by
// resolving it against baseURL. Absolute URLs are returned unchanged.
func ResolveURL(ref, baseURL string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(rel).String()
}

// SerializeMaster re-emits a master playlist's variant list after URL
// rebasing, preserving the EXT-X-STREAM-INF attribute set grafov/m3u8
// exposes. Variant URLs are rebased by the caller (rewriter.RebaseVariantURLs)
// before this is called; SerializeMaster only lays the lines back out.
func SerializeMaster(variants []model.Variant) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, v := range variants {
		b.WriteString("#EXT-X-STREAM-INF:")
		b.WriteString(fmt.Sprintf("BANDWIDTH=%d", v.Bandwidth))
		if v.AverageBandwidth > 0 {
			b.WriteString(fmt.Sprintf(",AVERAGE-BANDWIDTH=%d", v.AverageBandwidth))
		}
		if v.Resolution != "" {
			b.WriteString(fmt.Sprintf(",RESOLUTION=%s", v.Resolution))
		}
		if v.Codecs != "" {
			b.WriteString(fmt.Sprintf(",CODECS=%q", v.Codecs))
		}
		if v.FrameRate != 0 {
			b.WriteString(fmt.Sprintf(",FRAME-RATE=%.3f", v.FrameRate))
		}
		b.WriteString("\n")
		b.WriteString(v.URL)
		b.WriteString("\n")
	}
	return b.String()
}
