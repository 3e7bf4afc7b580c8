package radio

import (
	"fmt"
	"sort"
	"strings"
)

// aacLowComplexity is the RFC 6381 codec string for AAC-LC.
const aacLowComplexity = "mp4a.40.2"

// BuildMasterPlaylist returns an HLS multivariant playlist that points at each
// quality's live playlist, relative to /stream/{channel}/. Variants are listed
// highest bitrate first; ties keep configured order.
func BuildMasterPlaylist(qualities []Quality) string {
	variants := make([]Quality, len(qualities))
	copy(variants, qualities)
	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Bitrate > variants[j].Bitrate
	})

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	for _, q := range variants {
		b.WriteString(fmt.Sprintf("#EXT-X-STREAM-INF:BANDWIDTH=%d,CODECS=\"%s\"\n", q.Bitrate, aacLowComplexity))
		b.WriteString(string(q.ID))
		b.WriteString("/")
		b.WriteString(PlaylistName)
		b.WriteString("\n")
	}
	return b.String()
}
