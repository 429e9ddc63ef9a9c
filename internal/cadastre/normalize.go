package cadastre

import (
	"strings"
)

// Records are the typed rows of one load, before any derivation.
type Records struct {
	Plots        []Plot
	Locals       []Local
	Owners       []Owner
	Transactions []Transaction
	MergeEdges   []MergeEdge
	Streets      []StreetSegment
	Settings     []Setting
	Lottery      []LotteryEntry
}

// Normalize converts raw rows into typed records. It never fails: missing or
// malformed cells fall back to zero values, and a local whose plot is absent
// gets an empty address.
func Normalize(raw RawData, schema Schema) Records {
	schema = schema.WithDefaults()
	out := Records{
		Plots:        normalizePlots(raw[KindPlots], schema),
		Owners:       normalizeOwners(raw[KindOwners], schema),
		Transactions: normalizeTransactions(raw[KindTransactions], schema),
		MergeEdges:   normalizeMergeEdges(raw[KindMerged], schema),
		Streets:      normalizeStreets(raw[KindStreets], schema),
		Settings:     normalizeSettings(raw[KindSettings], schema),
		Lottery:      normalizeLottery(raw[KindLottery], schema),
	}
	out.Locals = normalizeLocals(raw[KindLocals], schema, out.Plots)
	return out
}

func normalizePlots(rows []Row, schema Schema) []Plot {
	c := schema.Plots
	out := make([]Plot, 0, len(rows))
	for _, r := range rows {
		rect := NewRect(
			parseLeadingInt(r[c.X1]),
			parseLeadingInt(r[c.Z1]),
			parseLeadingInt(r[c.X2]),
			parseLeadingInt(r[c.Z2]),
		)
		out = append(out, Plot{
			ID:             cell(r, c.ID),
			Name:           cell(r, c.Name),
			Type:           cell(r, c.Type),
			Rect:           rect,
			Width:          rect.Width(),
			Height:         rect.Height(),
			Area:           cell(r, c.Area),
			Value:          cell(r, c.Value),
			District:       cell(r, c.District),
			Street:         cell(r, c.Street),
			BuildingNumber: cell(r, c.BuildingNumber),
			Owner:          TreasuryOwner,
			Status:         StatusOwned,
			History:        []Transaction{},
		})
	}
	return out
}

func normalizeLocals(rows []Row, schema Schema, plots []Plot) []Local {
	c := schema.Locals
	byName := make(map[string]Plot, len(plots))
	for _, p := range plots {
		if _, ok := byName[p.Name]; !ok {
			byName[p.Name] = p
		}
	}
	out := make([]Local, 0, len(rows))
	for _, r := range rows {
		l := Local{
			ID:         cell(r, c.ID),
			PlotName:   cell(r, c.PlotName),
			Staircase:  cell(r, c.Staircase),
			Number:     cell(r, c.Number),
			Floor:      cell(r, c.Floor),
			Area:       parseLeadingInt(r[c.Area]),
			Beds:       parseLeadingInt(r[c.Beds]),
			Workplaces: parseLeadingInt(r[c.Workplaces]),
			Tenant:     cell(r, c.Tenant),
		}
		if parent, ok := byName[l.PlotName]; ok {
			l.Street = parent.Street
			l.Building = parent.BuildingNumber
		}
		out = append(out, l)
	}
	return out
}

func normalizeOwners(rows []Row, schema Schema) []Owner {
	c := schema.Owners
	out := make([]Owner, 0, len(rows))
	for _, r := range rows {
		out = append(out, Owner{
			Name:       cell(r, c.Name),
			Category:   ownerCategory(cell(r, c.Category)),
			Photo:      cell(r, c.Photo),
			NIO:        cell(r, c.NIO),
			Age:        cell(r, c.Age),
			Profession: cell(r, c.Profession),
			LegalForm:  cell(r, c.LegalForm),
			PIN:        cell(r, c.PIN),
			Staff:      parseFlag(r[c.Staff]),
		})
	}
	return out
}

func normalizeTransactions(rows []Row, schema Schema) []Transaction {
	c := schema.Transactions
	out := make([]Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, Transaction{
			PlotName:    cell(r, c.PlotName),
			NewOwner:    cell(r, c.NewOwner),
			Value:       cell(r, c.Value),
			Date:        cell(r, c.Date),
			Type:        cell(r, c.Type),
			CheckNumber: cell(r, c.CheckNumber),
			Paid:        parseFlag(r[c.Paid]),
		})
	}
	return out
}

func normalizeMergeEdges(rows []Row, schema Schema) []MergeEdge {
	c := schema.Merged
	out := make([]MergeEdge, 0, len(rows))
	for _, r := range rows {
		e := MergeEdge{Plot1: cell(r, c.Plot1), Plot2: cell(r, c.Plot2)}
		if e.Plot1 == "" && e.Plot2 == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func normalizeStreets(rows []Row, schema Schema) []StreetSegment {
	c := schema.Streets
	out := make([]StreetSegment, 0, len(rows))
	for _, r := range rows {
		x1 := parseLeadingInt(r[c.X1])
		z1 := parseLeadingInt(r[c.Z1])
		x2 := parseLeadingInt(r[c.X2])
		z2 := parseLeadingInt(r[c.Z2])
		out = append(out, StreetSegment{
			Name:   cell(r, c.Name),
			X1:     x1,
			Z1:     z1,
			Width:  abs(x2-x1) + 1,
			Height: abs(z2-z1) + 1,
		})
	}
	return out
}

func normalizeSettings(rows []Row, schema Schema) []Setting {
	c := schema.Settings
	out := make([]Setting, 0, len(rows))
	for _, r := range rows {
		name := cell(r, c.Name)
		if name == "" {
			continue
		}
		out = append(out, Setting{Name: name, Enabled: parseFlag(r[c.Enabled])})
	}
	return out
}

func normalizeLottery(rows []Row, schema Schema) []LotteryEntry {
	c := schema.Lottery
	out := make([]LotteryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, LotteryEntry{
			PlotName:    cell(r, c.PlotName),
			Winner:      cell(r, c.Winner),
			Amount:      cell(r, c.Amount),
			CheckNumber: cell(r, c.CheckNumber),
			Paid:        parseFlag(r[c.Paid]),
		})
	}
	return out
}

func cell(r Row, label string) string {
	return strings.TrimSpace(r[label])
}

func ownerCategory(v string) string {
	v = strings.ToLower(v)
	switch {
	case v == CategoryLegalEntity, strings.Contains(v, "prawn"), strings.Contains(v, "legal"), strings.Contains(v, "firma"):
		return CategoryLegalEntity
	default:
		return CategoryIndividual
	}
}

// parseFlag maps spreadsheet booleans ("TRUE", "Tak") to true.
func parseFlag(v string) bool {
	v = strings.TrimSpace(v)
	return strings.EqualFold(v, "TRUE") || strings.EqualFold(v, "Tak")
}

// parseLeadingInt parses the leading base-10 integer of v, ignoring any
// trailing text ("120 m2" is 120). It returns 0 when there is none.
func parseLeadingInt(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	neg := false
	switch v[0] {
	case '-':
		neg = true
		v = v[1:]
	case '+':
		v = v[1:]
	}
	n := 0
	digits := 0
	for i := 0; i < len(v); i++ {
		ch := v[i]
		if ch < '0' || ch > '9' || digits == 18 {
			break
		}
		n = n*10 + int(ch-'0')
		digits++
	}
	if digits == 0 {
		return 0
	}
	if neg {
		return -n
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
