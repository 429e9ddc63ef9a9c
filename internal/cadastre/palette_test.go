package cadastre

import "testing"

func TestTypeColor(t *testing.T) {
	if got := TypeColor("Medyczna").Hex(); got != "#aa0000" {
		t.Fatalf("Medyczna=%s", got)
	}
	if got := TypeColor("nieznany"); got != FallbackColor {
		t.Fatalf("unknown type=%v", got)
	}
	for _, typ := range PlotTypes() {
		if TypeColor(typ) == FallbackColor {
			t.Fatalf("%s has no colour", typ)
		}
	}
	if OutlineColors[Plot{Status: StatusPending}.Outline()].Hex() != "#facc15" {
		t.Fatalf("pending outline colour wrong")
	}
}
