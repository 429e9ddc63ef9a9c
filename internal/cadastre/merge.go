package cadastre

import "sort"

// GroupMerged computes the connected components of the merge graph and the
// combined geometry of each. Names without a matching plot stay in the group
// but contribute no geometry. A component with no matching plot, or with a
// single name (a plot paired with itself), is dropped.
func GroupMerged(edges []MergeEdge, plots []Plot) []MergedGroup {
	adj := make(map[string][]string)
	order := make([]string, 0, len(edges)*2)
	addNode := func(name string) {
		if _, ok := adj[name]; !ok {
			adj[name] = nil
			order = append(order, name)
		}
	}
	for _, e := range edges {
		addNode(e.Plot1)
		addNode(e.Plot2)
		adj[e.Plot1] = append(adj[e.Plot1], e.Plot2)
		adj[e.Plot2] = append(adj[e.Plot2], e.Plot1)
	}

	byName := indexPlots(plots)
	visited := make(map[string]bool, len(adj))
	groups := make([]MergedGroup, 0)
	for _, start := range order {
		if visited[start] {
			continue
		}
		visited[start] = true
		members := []string{}
		stack := []string{start}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, cur)
			for _, next := range adj[cur] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		if g, ok := buildMergedGroup(members, byName); ok {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Plots[0] < groups[j].Plots[0] })
	return groups
}

func buildMergedGroup(members []string, byName map[string]*Plot) (MergedGroup, bool) {
	var (
		bounds   Rect
		found    bool
		original int
	)
	for _, name := range members {
		p, ok := byName[name]
		if !ok {
			continue
		}
		if !found {
			bounds = p.Rect
			found = true
		} else {
			bounds = bounds.Union(p.Rect)
		}
		original += p.NominalArea()
	}
	if !found {
		return MergedGroup{}, false
	}
	return MergedGroup{
		Plots:        members,
		Rect:         bounds,
		Width:        bounds.Width(),
		Height:       bounds.Height(),
		OriginalArea: original,
		MergedArea:   bounds.Area(),
	}, true
}

func indexPlots(plots []Plot) map[string]*Plot {
	out := make(map[string]*Plot, len(plots))
	for i := range plots {
		if _, ok := out[plots[i].Name]; !ok {
			out[plots[i].Name] = &plots[i]
		}
	}
	return out
}
