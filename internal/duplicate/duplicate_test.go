package duplicate

import (
	"testing"

	"github.com/gwlsn/vdupes/internal/model"
	"github.com/gwlsn/vdupes/internal/settings"
)

func TestDetectGroupsNearDuplicates(t *testing.T) {
	cfg := settings.Default()
	cfg.HammingThreshold = 4
	cfg.MatchingThresholdNumber = 2
	cfg.Compile()

	groups := []*model.HashGroup{
		{VideoID: 1, Hashes: []uint64{0x0000, 0x1111}},
		{VideoID: 2, Hashes: []uint64{0x0001, 0x1110}}, // distance 1 from video 1's hashes
		{VideoID: 3, Hashes: []uint64{0xFFFF, 0xEEEE}}, // unrelated
	}

	got := Detect(groups, cfg)
	if len(got) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d: %+v", len(got), got)
	}
	members := map[int64]bool{}
	for _, id := range got[0].VideoIDs {
		members[id] = true
	}
	if !members[1] || !members[2] {
		t.Fatalf("expected videos 1 and 2 grouped, got %+v", got[0].VideoIDs)
	}
	if members[3] {
		t.Fatalf("video 3 should not be in the group")
	}
}

func TestDetectBelowThresholdProducesNoGroups(t *testing.T) {
	cfg := settings.Default()
	cfg.HammingThreshold = 4
	cfg.MatchingThresholdNumber = 3
	cfg.Compile()

	groups := []*model.HashGroup{
		{VideoID: 1, Hashes: make([]uint64, 8)},
		{VideoID: 2, Hashes: make([]uint64, 8)},
	}
	for i := range groups[0].Hashes {
		groups[0].Hashes[i] = uint64(i) << 4
		groups[1].Hashes[i] = ^(uint64(i) << 4) // far away
	}

	got := Detect(groups, cfg)
	if len(got) != 0 {
		t.Fatalf("expected no duplicate groups, got %d", len(got))
	}
}

func TestDetectTransitiveClosure(t *testing.T) {
	cfg := settings.Default()
	cfg.HammingThreshold = 1
	cfg.MatchingThresholdNumber = 1
	cfg.Compile()

	// A matches B, B matches C, but A does not directly match C.
	groups := []*model.HashGroup{
		{VideoID: 1, Hashes: []uint64{0b0000}},
		{VideoID: 2, Hashes: []uint64{0b0001}}, // distance 1 from A, distance 1 from C
		{VideoID: 3, Hashes: []uint64{0b0011}}, // distance 1 from B, distance 2 from A
	}

	got := Detect(groups, cfg)
	if len(got) != 1 {
		t.Fatalf("expected a single transitively-closed group, got %d: %+v", len(got), got)
	}
	if len(got[0].VideoIDs) != 3 {
		t.Fatalf("expected all 3 videos in one group, got %v", got[0].VideoIDs)
	}
}

func TestDetectEmptyInputProducesNoGroups(t *testing.T) {
	cfg := settings.Default()
	got := Detect(nil, cfg)
	if len(got) != 0 {
		t.Fatalf("expected no groups for empty input, got %d", len(got))
	}
}
