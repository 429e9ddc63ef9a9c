package cadastre

import (
	"sort"
	"strings"
)

// AppData is the derived, read-only state of one load. Build it with Derive
// and never mutate it afterwards.
type AppData struct {
	Plots            []Plot            `json:"plots"`
	Locals           []Local           `json:"locals"`
	Owners           []Owner           `json:"owners"`
	Transactions     []Transaction     `json:"transactions"`
	MergedGroups     []MergedGroup     `json:"merged_groups"`
	DistrictClusters []DistrictCluster `json:"district_clusters"`
	Streets          []StreetSegment   `json:"streets"`
	Settings         []Setting         `json:"settings"`
	LotteryHistory   []LotteryEntry    `json:"lottery_history"`

	plotIndex  map[string]int
	ownerIndex map[string]int
}

// Derive runs the whole pipeline over one load.
func Derive(raw RawData, schema Schema) *AppData {
	return FromRecords(Normalize(raw, schema))
}

// FromRecords derives ownership, merged groups and district clusters from
// already normalized records. The records' plot slice is copied.
func FromRecords(rec Records) *AppData {
	plots := make([]Plot, len(rec.Plots))
	copy(plots, rec.Plots)
	ResolveOwnership(plots, rec.Transactions)

	d := &AppData{
		Plots:            plots,
		Locals:           nonNil(rec.Locals),
		Owners:           nonNil(rec.Owners),
		Transactions:     nonNil(rec.Transactions),
		MergedGroups:     GroupMerged(rec.MergeEdges, plots),
		DistrictClusters: ClusterDistricts(plots, DefaultDistrictMargin),
		Streets:          nonNil(rec.Streets),
		Settings:         nonNil(rec.Settings),
		LotteryHistory:   nonNil(rec.Lottery),
	}
	d.reindex()
	return d
}

// Reindex rebuilds lookup indexes after AppData was decoded from JSON.
func (d *AppData) Reindex() { d.reindex() }

func (d *AppData) reindex() {
	d.plotIndex = make(map[string]int, len(d.Plots))
	for i, p := range d.Plots {
		if _, ok := d.plotIndex[p.Name]; !ok {
			d.plotIndex[p.Name] = i
		}
	}
	d.ownerIndex = make(map[string]int, len(d.Owners))
	for i, o := range d.Owners {
		if _, ok := d.ownerIndex[o.Name]; !ok {
			d.ownerIndex[o.Name] = i
		}
	}
}

func (d *AppData) Plot(name string) (Plot, bool) {
	i, ok := d.plotIndex[name]
	if !ok {
		return Plot{}, false
	}
	return d.Plots[i], true
}

func (d *AppData) Owner(name string) (Owner, bool) {
	i, ok := d.ownerIndex[name]
	if !ok {
		return Owner{}, false
	}
	return d.Owners[i], true
}

func (d *AppData) PlotsOwnedBy(owner string) []Plot {
	return d.filterPlots(func(p Plot) bool { return p.Owner == owner })
}

func (d *AppData) PlotsInDistrict(district string) []Plot {
	return d.filterPlots(func(p Plot) bool { return p.District == district })
}

func (d *AppData) PlotsOnStreet(street string) []Plot {
	return d.filterPlots(func(p Plot) bool { return p.Street == street })
}

func (d *AppData) LocalsOf(plotName string) []Local {
	out := []Local{}
	for _, l := range d.Locals {
		if l.PlotName == plotName {
			out = append(out, l)
		}
	}
	return out
}

// MergedGroupOf returns the merged group containing the named plot.
func (d *AppData) MergedGroupOf(plotName string) (MergedGroup, bool) {
	for _, g := range d.MergedGroups {
		for _, name := range g.Plots {
			if name == plotName {
				return g, true
			}
		}
	}
	return MergedGroup{}, false
}

func (d *AppData) ClustersOf(district string) []DistrictCluster {
	out := []DistrictCluster{}
	for _, c := range d.DistrictClusters {
		if c.District == district {
			out = append(out, c)
		}
	}
	return out
}

// Districts lists distinct district names in sorted order.
func (d *AppData) Districts() []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range d.Plots {
		if p.District != "" && !seen[p.District] {
			seen[p.District] = true
			out = append(out, p.District)
		}
	}
	sort.Strings(out)
	return out
}

// Setting reports a feature flag; unknown flags are off.
func (d *AppData) Setting(name string) bool {
	for _, s := range d.Settings {
		if strings.EqualFold(s.Name, name) {
			return s.Enabled
		}
	}
	return false
}

// Bounds is the rectangle covering every plot. ok is false without plots.
func (d *AppData) Bounds() (Rect, bool) {
	if len(d.Plots) == 0 {
		return Rect{}, false
	}
	b := d.Plots[0].Rect
	for _, p := range d.Plots[1:] {
		b = b.Union(p.Rect)
	}
	return b, true
}

func (d *AppData) filterPlots(keep func(Plot) bool) []Plot {
	out := []Plot{}
	for _, p := range d.Plots {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Street is every segment sharing one name, plus where to put its label.
type Street struct {
	Name     string          `json:"name"`
	Segments []StreetSegment `json:"segments"`
	LabelX   float64         `json:"label_x"`
	LabelZ   float64         `json:"label_z"`
	Vertical bool            `json:"vertical"`
}

// NamedStreets groups segments by name in first-seen order, skipping blanks.
// The label sits at the centre of the longest segment.
func (d *AppData) NamedStreets() []Street {
	index := make(map[string]int)
	out := []Street{}
	for _, seg := range d.Streets {
		name := strings.TrimSpace(seg.Name)
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Street{Name: name})
		}
		out[i].Segments = append(out[i].Segments, seg)
	}
	for i := range out {
		longest := out[i].Segments[0]
		for _, seg := range out[i].Segments[1:] {
			if seg.longest() >= longest.longest() {
				longest = seg
			}
		}
		out[i].LabelX = float64(longest.X1) + float64(longest.Width)/2
		out[i].LabelZ = float64(longest.Z1) + float64(longest.Height)/2
		out[i].Vertical = longest.Height > longest.Width
	}
	return out
}

func (d *AppData) NamedStreet(name string) (Street, bool) {
	for _, s := range d.NamedStreets() {
		if s.Name == name {
			return s, true
		}
	}
	return Street{}, false
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
