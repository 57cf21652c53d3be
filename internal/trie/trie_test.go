package trie

import "testing"

func TestRangeSearchFindsExactMatch(t *testing.T) {
	tr := New()
	tr.Insert(Point{VideoID: 1, Hash: 0x00000000000000FF})
	tr.Insert(Point{VideoID: 2, Hash: 0xFFFFFFFFFFFFFFFF})

	results := tr.RangeSearch(0x00000000000000FF, 0)
	if len(results) != 1 || results[0].VideoID != 1 {
		t.Fatalf("expected exact match for video 1, got %+v", results)
	}
}

func TestRangeSearchRespectsRadius(t *testing.T) {
	tr := New()
	tr.Insert(Point{VideoID: 1, Hash: 0b0000})
	tr.Insert(Point{VideoID: 2, Hash: 0b0001}) // distance 1
	tr.Insert(Point{VideoID: 3, Hash: 0b0011}) // distance 2
	tr.Insert(Point{VideoID: 4, Hash: 0b1111}) // distance 4

	within1 := tr.RangeSearch(0, 1)
	if len(within1) != 2 {
		t.Fatalf("expected 2 points within radius 1, got %d", len(within1))
	}

	within2 := tr.RangeSearch(0, 2)
	if len(within2) != 3 {
		t.Fatalf("expected 3 points within radius 2, got %d", len(within2))
	}
}

func TestRangeSearchDeterministicAcrossRuns(t *testing.T) {
	points := []Point{
		{VideoID: 1, Hash: 0xAAAA},
		{VideoID: 2, Hash: 0xAAAB},
		{VideoID: 3, Hash: 0x5555},
	}

	build := func() *Trie {
		tr := New()
		for _, p := range points {
			tr.Insert(p)
		}
		return tr
	}

	r1 := build().RangeSearch(0xAAAA, 2)
	r2 := build().RangeSearch(0xAAAA, 2)
	if len(r1) != len(r2) {
		t.Fatalf("range search not deterministic: %d vs %d results", len(r1), len(r2))
	}
}

func TestLen(t *testing.T) {
	tr := New()
	for i := 0; i < 5; i++ {
		tr.Insert(Point{VideoID: int64(i), Hash: uint64(i)})
	}
	if tr.Len() != 5 {
		t.Fatalf("expected Len()=5, got %d", tr.Len())
	}
}
