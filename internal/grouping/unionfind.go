package grouping

// disjointSet is a union-find over equivalence keys with path compression and
// union by size. Every key unioned into a component resolves to the same root
// no matter the order unions happen in.
type disjointSet struct {
	parent map[Key]Key
	size   map[Key]int
}

func newDisjointSet() *disjointSet {
	return &disjointSet{parent: make(map[Key]Key), size: make(map[Key]int)}
}

func (d *disjointSet) add(k Key) {
	if _, ok := d.parent[k]; ok {
		return
	}
	d.parent[k] = k
	d.size[k] = 1
}

func (d *disjointSet) find(k Key) Key {
	d.add(k)
	root := k
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for k != root {
		next := d.parent[k]
		d.parent[k] = root
		k = next
	}
	return root
}

func (d *disjointSet) union(a, b Key) Key {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return ra
	}
	if d.size[ra] < d.size[rb] || (d.size[ra] == d.size[rb] && rb < ra) {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
	delete(d.size, rb)
	return ra
}

func (d *disjointSet) keys() []Key {
	out := make([]Key, 0, len(d.parent))
	for k := range d.parent {
		out = append(out, k)
	}
	return out
}
