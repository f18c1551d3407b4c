package graph

// DetectCycles returns the dependency cycles formed by edges of the given
// relationships (imports and exports when none are given). Each cycle lists
// node ids in traversal order, starting at the first node reached.
func DetectCycles(g *ComponentGraph, rels ...Relationship) [][]string {
	if g == nil {
		return nil
	}
	if len(rels) == 0 {
		rels = []Relationship{RelImports, RelExports}
	}
	want := make(map[Relationship]bool, len(rels))
	for _, r := range rels {
		want[r] = true
	}

	next := make(map[string][]string)
	for _, e := range g.Edges {
		if want[e.Relationship] {
			next[e.Source] = append(next[e.Source], e.Target)
		}
	}

	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(curr string, path []string)
	visit = func(curr string, path []string) {
		visited[curr] = true
		onStack[curr] = true
		path = append(path, curr)

		for _, n := range next[curr] {
			if onStack[n] {
				for i, id := range path {
					if id == n {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			} else if !visited[n] {
				visit(n, path)
			}
		}
		onStack[curr] = false
	}

	for _, n := range g.Nodes {
		if !visited[n.ID] {
			visit(n.ID, nil)
		}
	}
	return cycles
}

// FindPath returns the shortest directed chain of edges from one node to
// another, following any relationship.
func FindPath(g *ComponentGraph, from, to string) ([]string, bool) {
	if g == nil || !g.HasNode(from) || !g.HasNode(to) {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}

	next := make(map[string][]string)
	for _, e := range g.Edges {
		next[e.Source] = append(next[e.Source], e.Target)
	}

	prev := map[string]string{}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, n := range next[curr] {
			if visited[n] {
				continue
			}
			visited[n] = true
			prev[n] = curr
			if n == to {
				path := []string{to}
				for node := to; node != from; node = prev[node] {
					path = append(path, prev[node])
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}
