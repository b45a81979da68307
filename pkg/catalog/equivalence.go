package catalog

import "sort"

// Equivalences resolves exact-match declarations into a symmetric adjacency
// list. Names that are not quantities of this collection are dropped, as
// are self references. Neighbour lists are sorted.
func (c *Collection) Equivalences() map[string][]string {
	edges := make(map[string]map[string]struct{})
	link := func(a, b string) {
		if edges[a] == nil {
			edges[a] = make(map[string]struct{})
		}
		edges[a][b] = struct{}{}
	}

	for name, q := range c.Quantities {
		for _, other := range q.ExactMatch {
			if other == name {
				continue
			}
			if _, ok := c.Quantities[other]; !ok {
				continue
			}
			link(name, other)
			link(other, name)
		}
	}

	graph := make(map[string][]string, len(edges))
	for name, set := range edges {
		neighbours := make([]string, 0, len(set))
		for n := range set {
			neighbours = append(neighbours, n)
		}
		sort.Strings(neighbours)
		graph[name] = neighbours
	}
	return graph
}

// Equivalent reports whether a and b are declared interchangeable, directly
// or through a chain of exact matches.
func (c *Collection) Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	graph := c.Equivalences()
	seen := map[string]bool{a: true}
	queue := []string{a}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range graph[cur] {
			if n == b {
				return true
			}
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return false
}
