// Package cadastretest provides a small but complete load for tests.
package cadastretest

import "cadastre/internal/cadastre"

// Raw returns a load with four plots (two merged, one donated and eligible
// for the lottery, one already awarded), two streets, one local and two
// owners: Acme (legal entity, PIN 1234) and Jan (staff, PIN 0000).
func Raw() cadastre.RawData {
	s := cadastre.DefaultSchema()
	plot := func(id, name, typ, district, street, x1, z1, x2, z2 string) cadastre.Row {
		return cadastre.Row{
			s.Plots.ID: id, s.Plots.Name: name, s.Plots.Type: typ,
			s.Plots.District: district, s.Plots.Street: street,
			s.Plots.X1: x1, s.Plots.Z1: z1, s.Plots.X2: x2, s.Plots.Z2: z2,
			s.Plots.Area: "100", s.Plots.Value: "5000", s.Plots.BuildingNumber: "1" + id,
		}
	}
	tx := func(plotName, owner, date, kind, paid string) cadastre.Row {
		return cadastre.Row{
			s.Transactions.PlotName: plotName, s.Transactions.NewOwner: owner,
			s.Transactions.Date: date, s.Transactions.Type: kind, s.Transactions.Paid: paid,
			s.Transactions.Value: "100",
		}
	}
	return cadastre.RawData{
		cadastre.KindPlots: {
			plot("1", "P1", "Mieszkalna", "Centrum", "Główna", "0", "0", "10", "10"),
			plot("2", "P2", "Usługowa", "Centrum", "Główna", "10", "0", "20", "10"),
			plot("3", "P3", "Parkowa", "Port", "Boczna", "300", "300", "320", "320"),
			plot("4", "P4", "Rolna", "", "", "-100", "-50", "-90", "-40"),
		},
		cadastre.KindMerged: {
			{s.Merged.Plot1: "P1", s.Merged.Plot2: "P2"},
		},
		cadastre.KindStreets: {
			{s.Streets.Name: "Główna", s.Streets.X1: "0", s.Streets.Z1: "11", s.Streets.X2: "20", s.Streets.Z2: "12"},
			{s.Streets.Name: "Główna", s.Streets.X1: "21", s.Streets.Z1: "0", s.Streets.X2: "22", s.Streets.Z2: "40"},
			{s.Streets.Name: "Boczna", s.Streets.X1: "290", s.Streets.Z1: "321", s.Streets.X2: "330", s.Streets.Z2: "322"},
		},
		cadastre.KindLocals: {
			{s.Locals.ID: "L1", s.Locals.PlotName: "P1", s.Locals.Number: "4", s.Locals.Beds: "2", s.Locals.Tenant: "Jan"},
		},
		cadastre.KindOwners: {
			{s.Owners.Name: "Acme", s.Owners.Category: "Osoba prawna", s.Owners.PIN: "1234"},
			{s.Owners.Name: "Jan", s.Owners.Category: "Osoba fizyczna", s.Owners.PIN: "0000", s.Owners.Staff: "Tak"},
		},
		cadastre.KindTransactions: {
			tx("P1", "Jan", "01.01.2020", "Sprzedaż", "TRUE"),
			tx("P2", "Acme", "05.05.2022", "Sprzedaż", "FALSE"),
			tx("P3", "Acme", "01.01.2020", "Sprzedaż", "TRUE"),
			tx("P3", cadastre.TreasuryOwner, "02.02.2021", "Darowizna", "TRUE"),
			tx("P4", "Acme", "03.03.2021", "Sprzedaż", "TRUE"),
			tx("P4", cadastre.TreasuryOwner, "04.04.2021", "Darowizna", "TRUE"),
		},
		cadastre.KindSettings: {
			{s.Settings.Name: cadastre.LotterySetting, s.Settings.Enabled: "TRUE"},
		},
		cadastre.KindLottery: {
			{s.Lottery.PlotName: "P4", s.Lottery.Winner: "Jan", s.Lottery.Amount: "500", s.Lottery.Paid: "TRUE"},
		},
	}
}

// Data derives Raw with the default schema.
func Data() *cadastre.AppData {
	return cadastre.Derive(Raw(), cadastre.DefaultSchema())
}
