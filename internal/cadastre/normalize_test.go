package cadastre

import "testing"

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"42", 42},
		{" 42 ", 42},
		{"1200 m2", 1200},
		{"12.5", 12},
		{"-7", -7},
		{"+3", 3},
		{"abc", 0},
		{"", 0},
		{"-", 0},
	}
	for _, tc := range tests {
		if got := parseLeadingInt(tc.in); got != tc.want {
			t.Fatalf("parseLeadingInt(%q)=%d want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseFlag(t *testing.T) {
	for _, v := range []string{"TRUE", "true", "Tak", " tak "} {
		if !parseFlag(v) {
			t.Fatalf("expected %q to be true", v)
		}
	}
	for _, v := range []string{"FALSE", "Nie", "", "1", "yes"} {
		if parseFlag(v) {
			t.Fatalf("expected %q to be false", v)
		}
	}
}

func TestNormalizeToleratesBadRows(t *testing.T) {
	s := DefaultSchema()
	raw := RawData{
		KindPlots: {
			{s.Plots.ID: "7", s.Plots.Name: "A-1", s.Plots.X1: "10", s.Plots.Z1: "20", s.Plots.X2: "0", s.Plots.Z2: "x"},
			{s.Plots.Name: "A-2"},
		},
		KindLocals: {
			{s.Locals.PlotName: "A-1", s.Locals.Beds: "3", s.Locals.Area: "n/a"},
			{s.Locals.PlotName: "missing"},
		},
		KindOwners: {
			{s.Owners.Name: "Acme", s.Owners.Category: "Osoba prawna", s.Owners.Staff: "Tak"},
			{s.Owners.Name: "Jan", s.Owners.Category: "Osoba fizyczna"},
		},
		KindStreets: {
			{s.Streets.Name: "Main", s.Streets.X1: "5", s.Streets.Z1: "5", s.Streets.X2: "1", s.Streets.Z2: "5"},
		},
		KindSettings: {
			{s.Settings.Name: "Loteria", s.Settings.Enabled: "TRUE"},
			{s.Settings.Name: "", s.Settings.Enabled: "TRUE"},
		},
		KindMerged: {
			{s.Merged.Plot1: "", s.Merged.Plot2: ""},
		},
	}
	rec := Normalize(raw, Schema{})

	if len(rec.Plots) != 2 {
		t.Fatalf("plots=%d want 2", len(rec.Plots))
	}
	p := rec.Plots[0]
	if p.Rect != (Rect{X1: 0, Z1: 0, X2: 10, Z2: 20}) {
		t.Fatalf("rect=%+v", p.Rect)
	}
	if p.Width != 10 || p.Height != 20 {
		t.Fatalf("size=%dx%d", p.Width, p.Height)
	}
	if p.Owner != TreasuryOwner || p.Status != StatusOwned {
		t.Fatalf("defaults owner=%q status=%q", p.Owner, p.Status)
	}
	if p.Label() != "007" {
		t.Fatalf("label=%q", p.Label())
	}

	if rec.Locals[0].Beds != 3 || rec.Locals[0].Area != 0 {
		t.Fatalf("local=%+v", rec.Locals[0])
	}
	if rec.Locals[1].Street != "" || rec.Locals[1].Building != "" {
		t.Fatalf("dangling local should have empty address: %+v", rec.Locals[1])
	}

	if !rec.Owners[0].LegalEntity() || !rec.Owners[0].Staff {
		t.Fatalf("owner=%+v", rec.Owners[0])
	}
	if rec.Owners[1].Category != CategoryIndividual {
		t.Fatalf("owner=%+v", rec.Owners[1])
	}

	st := rec.Streets[0]
	if st.Width != 5 || st.Height != 1 {
		t.Fatalf("street=%+v", st)
	}
	if len(rec.Settings) != 1 || !rec.Settings[0].Enabled {
		t.Fatalf("settings=%+v", rec.Settings)
	}
	if len(rec.MergeEdges) != 0 {
		t.Fatalf("blank merge rows should be skipped: %+v", rec.MergeEdges)
	}
}

func TestNormalizeSchemaOverride(t *testing.T) {
	var s Schema
	s.Transactions.Date = "Day"
	raw := RawData{
		KindTransactions: {
			{"Day": "44000", DefaultSchema().Transactions.Paid: "TRUE", DefaultSchema().Transactions.NewOwner: "A"},
		},
	}
	rec := Normalize(raw, s)
	tx := rec.Transactions[0]
	if tx.Date != "44000" || !tx.Paid || tx.NewOwner != "A" {
		t.Fatalf("tx=%+v", tx)
	}
}
