package orchestrator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gwlsn/vdupes/internal/model"
	"github.com/gwlsn/vdupes/internal/phash"
	"github.com/gwlsn/vdupes/internal/settings"
	"github.com/gwlsn/vdupes/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSubscribeReceivesBroadcast(t *testing.T) {
	st := openTestStore(t)
	o := New(st, "ffmpeg", "ffprobe", nil)

	ch, unsubscribe := o.Subscribe()
	defer unsubscribe()

	o.broadcast(Event{Kind: EventScanProgress, Found: 3})

	select {
	case e := <-ch:
		if e.Kind != EventScanProgress || e.Found != 3 {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	st := openTestStore(t)
	o := New(st, "ffmpeg", "ffprobe", nil)

	ch, unsubscribe := o.Subscribe()
	unsubscribe()

	o.broadcast(Event{Kind: EventScanProgress, Found: 1})

	if _, open := <-ch; open {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestRunDetectionPhasePersistsGroups(t *testing.T) {
	st := openTestStore(t)
	o := New(st, "ffmpeg", "ffprobe", nil)

	v1 := &model.Video{Path: "/a.mp4"}
	v2 := &model.Video{Path: "/b.mp4"}
	if err := st.UpsertVideo(v1); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertVideo(v2); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveHashes(v1.ID, []uint64{0x0000, 0x1111}); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveHashes(v2.ID, []uint64{0x0001, 0x1110}); err != nil {
		t.Fatal(err)
	}

	cfg := settings.Default()
	cfg.HammingThreshold = 4
	cfg.MatchingThresholdNumber = 2
	cfg.Compile()

	if err := o.runDetectionPhase(cfg); err != nil {
		t.Fatal(err)
	}

	groups, err := st.LoadDuplicateGroups()
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || len(groups[0].VideoIDs) != 2 {
		t.Fatalf("expected one duplicate group of 2 videos, got %+v", groups)
	}
}

func TestHashTilesSkipsSentinel(t *testing.T) {
	// a single uniform tile (all zero byte value) must be rejected as the
	// all-zero sentinel; a varied tile must produce a real hash.
	var uniform phash.Tile
	var varied phash.Tile
	for i := range varied {
		varied[i] = byte(i % 256)
	}

	got := hashTiles([]*phash.Tile{&uniform, &varied}, "video.mp4")
	if len(got) != 1 {
		t.Fatalf("expected 1 surviving hash after sentinel rejection, got %d", len(got))
	}
}
