package lattice

// Reach flood-fills 4-directionally from start over cells whose value passes.
// It returns the visited mask (indexed like the lattice) and the visited count.
// A start cell that does not pass yields an empty fill.
func (l *Lattice) Reach(start Point, pass func(TileValue) bool) ([]bool, int) {
	visited := make([]bool, len(l.cells))
	if !l.InBounds(start) || !pass(l.At(start)) {
		return visited, 0
	}

	stack := []Point{start}
	visited[l.index(start)] = true
	count := 1
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range axisOffsets {
			q := p.Add(d)
			if !l.InBounds(q) {
				continue
			}
			i := l.index(q)
			if visited[i] || !pass(l.cells[i]) {
				continue
			}
			visited[i] = true
			count++
			stack = append(stack, q)
		}
	}
	return visited, count
}

// Visited reports whether p is marked in a mask returned by Reach.
func (l *Lattice) Visited(mask []bool, p Point) bool {
	return l.InBounds(p) && mask[l.index(p)]
}

// IsConnected reports whether every cell that is neither EMPTY nor CROSS is
// 4-reachable from start through such cells. CROSS cells are cosmetic bridges
// and count toward neither side of the comparison.
func IsConnected(l *Lattice, start Point, t Terrain) bool {
	total := l.Count(t.Counted)
	if total == 0 {
		return true
	}
	_, visited := l.Reach(start, t.Counted)
	return visited == total
}

// Components labels the maximal 4-connected groups of counted cells. Groups
// are ordered by the scan position of their first cell; cells within a group
// are in fill order.
func Components(l *Lattice, t Terrain) [][]Point {
	seen := make([]bool, len(l.cells))
	var groups [][]Point
	l.Each(func(p Point, v TileValue) {
		if seen[l.index(p)] || !t.Counted(v) {
			return
		}
		group := []Point{p}
		seen[l.index(p)] = true
		for i := 0; i < len(group); i++ {
			for _, d := range axisOffsets {
				q := group[i].Add(d)
				if !l.InBounds(q) {
					continue
				}
				j := l.index(q)
				if seen[j] || !t.Counted(l.cells[j]) {
					continue
				}
				seen[j] = true
				group = append(group, q)
			}
		}
		groups = append(groups, group)
	})
	return groups
}
