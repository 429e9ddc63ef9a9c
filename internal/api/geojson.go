package api

import (
	"cadastre/internal/cadastre"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func rectBound(r cadastre.Rect) orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(r.X1), float64(r.Z1)},
		Max: orb.Point{float64(r.X2), float64(r.Z2)},
	}
}

// mapFeatures exports the snapshot in world coordinates (x east, z as y).
// Every feature carries a "layer" property: plot, merged, district, street
// or street_label.
func mapFeatures(d *cadastre.AppData) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range d.Plots {
		f := geojson.NewFeature(rectBound(p.Rect).ToPolygon())
		f.ID = p.Name
		f.Properties["layer"] = "plot"
		f.Properties["name"] = p.Name
		f.Properties["label"] = p.Label()
		f.Properties["type"] = p.Type
		f.Properties["district"] = p.District
		f.Properties["street"] = p.Street
		f.Properties["owner"] = p.Owner
		f.Properties["status"] = p.Status
		f.Properties["outline"] = p.Outline()
		f.Properties["fill"] = cadastre.TypeColor(p.Type).Hex()
		f.Properties["stroke"] = cadastre.OutlineColors[p.Outline()].Hex()
		fc.Append(f)
	}
	for _, g := range d.MergedGroups {
		f := geojson.NewFeature(rectBound(g.Rect).ToPolygon())
		f.Properties["layer"] = "merged"
		f.Properties["plots"] = g.Plots
		f.Properties["original_area"] = g.OriginalArea
		f.Properties["merged_area"] = g.MergedArea
		fc.Append(f)
	}
	for _, c := range d.DistrictClusters {
		f := geojson.NewFeature(rectBound(c.Outline).ToPolygon())
		f.Properties["layer"] = "district"
		f.Properties["district"] = c.District
		f.Properties["plots"] = c.Plots
		fc.Append(f)
	}
	for _, st := range d.NamedStreets() {
		for _, seg := range st.Segments {
			r := cadastre.Rect{X1: seg.X1, Z1: seg.Z1, X2: seg.X1 + seg.Width, Z2: seg.Z1 + seg.Height}
			f := geojson.NewFeature(rectBound(r).ToPolygon())
			f.Properties["layer"] = "street"
			f.Properties["name"] = st.Name
			fc.Append(f)
		}
		label := geojson.NewFeature(orb.Point{st.LabelX, st.LabelZ})
		label.Properties["layer"] = "street_label"
		label.Properties["name"] = st.Name
		label.Properties["vertical"] = st.Vertical
		fc.Append(label)
	}
	return fc
}
