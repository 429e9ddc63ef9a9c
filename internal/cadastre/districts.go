package cadastre

import "sort"

// ClusterDistricts splits every district into spatially connected clusters.
// Two plots of the same district share a cluster when their rectangles come
// within margin of each other, directly or through other plots. Plots with
// an empty district are ignored.
func ClusterDistricts(plots []Plot, margin int) []DistrictCluster {
	byDistrict := make(map[string][]int)
	names := make([]string, 0)
	for i, p := range plots {
		if p.District == "" {
			continue
		}
		if _, ok := byDistrict[p.District]; !ok {
			names = append(names, p.District)
		}
		byDistrict[p.District] = append(byDistrict[p.District], i)
	}
	sort.Strings(names)

	out := make([]DistrictCluster, 0, len(names))
	for _, name := range names {
		for _, members := range clusterIndices(plots, byDistrict[name], margin) {
			c := DistrictCluster{District: name, Plots: make([]string, 0, len(members))}
			for k, idx := range members {
				c.Plots = append(c.Plots, plots[idx].Name)
				if k == 0 {
					c.Outline = plots[idx].Rect
				} else {
					c.Outline = c.Outline.Union(plots[idx].Rect)
				}
			}
			out = append(out, c)
		}
	}
	return out
}

// clusterIndices runs a breadth-first expansion over the near-graph of the
// given plot indices and returns the components in discovery order.
func clusterIndices(plots []Plot, idx []int, margin int) [][]int {
	visited := make([]bool, len(idx))
	var clusters [][]int
	for seed := range idx {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		queue := []int{seed}
		var cluster []int
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			cluster = append(cluster, idx[cur])
			for other := range idx {
				if visited[other] {
					continue
				}
				if plots[idx[cur]].Rect.Near(plots[idx[other]].Rect, margin) {
					visited[other] = true
					queue = append(queue, other)
				}
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}
