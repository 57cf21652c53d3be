// Package unionfind implements a disjoint-set data structure with path
// compression and union by rank, used to transitively group videos
// connected by near-neighbor hash matches.
package unionfind

// UnionFind tracks disjoint sets over a fixed universe of int64 elements,
// added lazily on first reference.
type UnionFind struct {
	parent map[int64]int64
	rank   map[int64]int
}

// New returns an empty UnionFind.
func New() *UnionFind {
	return &UnionFind{
		parent: make(map[int64]int64),
		rank:   make(map[int64]int),
	}
}

// Add registers x as its own singleton set if not already known. Union and
// Find call this automatically. An element that is added but never united
// stays a singleton, which Groups() omits.
func (u *UnionFind) Add(x int64) {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		u.rank[x] = 0
	}
}

// Find returns the representative of x's set, compressing the path
// traversed along the way.
func (u *UnionFind) Find(x int64) int64 {
	u.Add(x)
	if u.parent[x] != x {
		u.parent[x] = u.Find(u.parent[x])
	}
	return u.parent[x]
}

// Union merges the sets containing x and y.
func (u *UnionFind) Union(x, y int64) {
	rx, ry := u.Find(x), u.Find(y)
	if rx == ry {
		return
	}
	if u.rank[rx] < u.rank[ry] {
		rx, ry = ry, rx
	}
	u.parent[ry] = rx
	if u.rank[rx] == u.rank[ry] {
		u.rank[rx]++
	}
}

// Groups materializes every connected component with 2 or more members,
// keyed by an arbitrary representative element. Singleton sets (no edges)
// are omitted — duplicate groups require at least two videos.
func (u *UnionFind) Groups() map[int64][]int64 {
	out := make(map[int64][]int64)
	for x := range u.parent {
		r := u.Find(x)
		out[r] = append(out[r], x)
	}
	for r, members := range out {
		if len(members) < 2 {
			delete(out, r)
		}
	}
	return out
}
