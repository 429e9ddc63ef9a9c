package cadastre

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClusterDistricts(t *testing.T) {
	plots := []Plot{
		{Name: "n1", District: "North", Rect: Rect{0, 0, 10, 10}},
		{Name: "n2", District: "North", Rect: Rect{55, 0, 65, 10}},
		{Name: "n3", District: "North", Rect: Rect{110, 0, 120, 10}},
		{Name: "n4", District: "North", Rect: Rect{500, 500, 510, 510}},
		{Name: "s1", District: "South", Rect: Rect{0, 100, 10, 110}},
		{Name: "x", District: "", Rect: Rect{5, 5, 6, 6}},
	}
	got := ClusterDistricts(plots, 50)
	want := []DistrictCluster{
		{District: "North", Plots: []string{"n1", "n2", "n3"}, Outline: Rect{0, 0, 120, 10}},
		{District: "North", Plots: []string{"n4"}, Outline: Rect{500, 500, 510, 510}},
		{District: "South", Plots: []string{"s1"}, Outline: Rect{0, 100, 10, 110}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("clusters (-want +got):\n%s", diff)
	}
}

func TestClusterDistrictsMarginBoundary(t *testing.T) {
	tests := []struct {
		name string
		gap  int
		same bool
	}{
		{name: "touching margin", gap: 50, same: true},
		{name: "inside margin", gap: 10, same: true},
		{name: "beyond margin", gap: 51, same: false},
	}
	for _, tc := range tests {
		plots := []Plot{
			{Name: "a", District: "D", Rect: Rect{0, 0, 10, 10}},
			{Name: "b", District: "D", Rect: Rect{10 + tc.gap, 10 + tc.gap, 20 + tc.gap, 20 + tc.gap}},
		}
		got := ClusterDistricts(plots, 50)
		if same := len(got) == 1; same != tc.same {
			t.Fatalf("%s: clusters=%d", tc.name, len(got))
		}
	}
}

func TestClusterDistrictsOrderIndependentPartition(t *testing.T) {
	plots := []Plot{
		{Name: "a", District: "D", Rect: Rect{0, 0, 10, 10}},
		{Name: "c", District: "D", Rect: Rect{120, 0, 130, 10}},
		{Name: "b", District: "D", Rect: Rect{60, 0, 70, 10}},
	}
	reversed := []Plot{plots[2], plots[1], plots[0]}
	for _, in := range [][]Plot{plots, reversed} {
		got := ClusterDistricts(in, 50)
		if len(got) != 1 || len(got[0].Plots) != 3 {
			t.Fatalf("expected one cluster of three, got %+v", got)
		}
		if got[0].Outline != (Rect{0, 0, 130, 10}) {
			t.Fatalf("outline=%+v", got[0].Outline)
		}
	}
}
