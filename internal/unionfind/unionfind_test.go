package unionfind

import "testing"

func TestUnionAndFind(t *testing.T) {
	u := New()
	u.Union(1, 2)
	u.Union(2, 3)
	u.Add(4)

	if u.Find(1) != u.Find(3) {
		t.Fatalf("expected 1 and 3 to be in the same set")
	}
	if u.Find(1) == u.Find(4) {
		t.Fatalf("expected 4 to be in its own set")
	}
}

func TestGroupsOmitsSingletons(t *testing.T) {
	u := New()
	u.Add(1)
	u.Union(2, 3)

	groups := u.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected exactly 1 group, got %d", len(groups))
	}
	for _, members := range groups {
		if len(members) != 2 {
			t.Fatalf("expected group of size 2, got %d", len(members))
		}
	}
}

func TestTransitiveClosure(t *testing.T) {
	u := New()
	u.Union(1, 2) // A-B
	u.Union(2, 3) // B-C, no direct A-C edge

	groups := u.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected a single transitively-closed group, got %d", len(groups))
	}
	for _, members := range groups {
		if len(members) != 3 {
			t.Fatalf("expected group {1,2,3}, got %v", members)
		}
	}
}
