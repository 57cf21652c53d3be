// Package duplicate implements the near-neighbor matching and transitive
// grouping procedure of the detection engine: build a Hamming-distance
// trie over every persisted hash, tally per-video match counts, threshold,
// and union-find into duplicate groups.
package duplicate

import (
	"github.com/gwlsn/vdupes/internal/model"
	"github.com/gwlsn/vdupes/internal/phash"
	"github.com/gwlsn/vdupes/internal/settings"
	"github.com/gwlsn/vdupes/internal/trie"
	"github.com/gwlsn/vdupes/internal/unionfind"
)

// Detect runs the full procedure of spec §4.6 over groups and returns the
// resulting duplicate groups (each with 2+ members). The union-find
// universe is seeded with the video of every hash group; videos left
// without a match stay singletons, which are not emitted. Only videos that
// are the subject of a hash group can ever be grouped.
func Detect(groups []*model.HashGroup, cfg *settings.Settings) []*model.DuplicateGroup {
	t := trie.New()
	for _, g := range groups {
		for _, h := range g.Hashes {
			t.Insert(trie.Point{VideoID: g.VideoID, Hash: h})
		}
	}

	uf := unionfind.New()
	for _, g := range groups {
		uf.Add(g.VideoID)
	}

	for _, g := range groups {
		queryID := g.VideoID
		if len(g.Hashes) == 0 {
			continue
		}

		matches := make(map[int64]int)
		for _, h := range g.Hashes {
			for _, p := range t.RangeSearch(h, cfg.HammingThreshold) {
				matches[p.VideoID]++
			}
		}
		delete(matches, queryID)

		threshold := cfg.Threshold(len(g.Hashes))
		for candidateID, count := range matches {
			if count >= threshold {
				uf.Union(queryID, candidateID)
			}
		}
	}

	var out []*model.DuplicateGroup
	for _, members := range uf.Groups() {
		out = append(out, &model.DuplicateGroup{VideoIDs: members})
	}
	return out
}

// HammingDistance is re-exported for callers (e.g. tests, diagnostics)
// that want to compare two hashes without importing internal/phash
// directly.
func HammingDistance(a, b uint64) int {
	return phash.HammingDistance(a, b)
}
