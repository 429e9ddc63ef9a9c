package cadastre

// Row is one spreadsheet row keyed by column label.
type Row map[string]string

// Kinds of row-sets a full load consists of.
const (
	KindPlots        = "plots"
	KindMerged       = "merged"
	KindStreets      = "streets"
	KindLocals       = "locals"
	KindOwners       = "owners"
	KindTransactions = "transactions"
	KindSettings     = "settings"
	KindLottery      = "lottery"
)

// Kinds lists every row-set kind in load order.
var Kinds = []string{
	KindPlots,
	KindMerged,
	KindStreets,
	KindLocals,
	KindOwners,
	KindTransactions,
	KindSettings,
	KindLottery,
}

// RawData holds one row-set per kind.
type RawData map[string][]Row

// Schema maps record fields to the column labels of the source sheets.
// Zero-valued labels fall back to DefaultSchema.
type Schema struct {
	Plots struct {
		ID             string `yaml:"id"`
		Name           string `yaml:"name"`
		Type           string `yaml:"type"`
		X1             string `yaml:"x1"`
		Z1             string `yaml:"z1"`
		X2             string `yaml:"x2"`
		Z2             string `yaml:"z2"`
		Area           string `yaml:"area"`
		Value          string `yaml:"value"`
		District       string `yaml:"district"`
		Street         string `yaml:"street"`
		BuildingNumber string `yaml:"building_number"`
	} `yaml:"plots"`
	Locals struct {
		ID         string `yaml:"id"`
		PlotName   string `yaml:"plot_name"`
		Staircase  string `yaml:"staircase"`
		Number     string `yaml:"number"`
		Floor      string `yaml:"floor"`
		Area       string `yaml:"area"`
		Beds       string `yaml:"beds"`
		Workplaces string `yaml:"workplaces"`
		Tenant     string `yaml:"tenant"`
	} `yaml:"locals"`
	Owners struct {
		Name       string `yaml:"name"`
		Category   string `yaml:"category"`
		Photo      string `yaml:"photo"`
		NIO        string `yaml:"nio"`
		Age        string `yaml:"age"`
		Profession string `yaml:"profession"`
		LegalForm  string `yaml:"legal_form"`
		PIN        string `yaml:"pin"`
		Staff      string `yaml:"staff"`
	} `yaml:"owners"`
	Transactions struct {
		PlotName    string `yaml:"plot_name"`
		NewOwner    string `yaml:"new_owner"`
		Value       string `yaml:"value"`
		Date        string `yaml:"date"`
		Type        string `yaml:"type"`
		CheckNumber string `yaml:"check_number"`
		Paid        string `yaml:"paid"`
	} `yaml:"transactions"`
	Merged struct {
		Plot1 string `yaml:"plot1"`
		Plot2 string `yaml:"plot2"`
	} `yaml:"merged"`
	Streets struct {
		Name string `yaml:"name"`
		X1   string `yaml:"x1"`
		Z1   string `yaml:"z1"`
		X2   string `yaml:"x2"`
		Z2   string `yaml:"z2"`
	} `yaml:"streets"`
	Settings struct {
		Name    string `yaml:"name"`
		Enabled string `yaml:"enabled"`
	} `yaml:"settings"`
	Lottery struct {
		PlotName    string `yaml:"plot_name"`
		Winner      string `yaml:"winner"`
		Amount      string `yaml:"amount"`
		CheckNumber string `yaml:"check_number"`
		Paid        string `yaml:"paid"`
	} `yaml:"lottery"`
}

// DefaultSchema returns the column labels used by the production spreadsheet.
func DefaultSchema() Schema {
	var s Schema
	s.Plots.ID = "Nr porządkowy"
	s.Plots.Name = "Nazwa porządkowa działki"
	s.Plots.Type = "Typ"
	s.Plots.X1 = "X (lewy górny)"
	s.Plots.Z1 = "Z (lewy górny)"
	s.Plots.X2 = "X (prawy dolny)"
	s.Plots.Z2 = "Z (prawy dolny)"
	s.Plots.Area = "Powierzchnia"
	s.Plots.Value = "Wartość"
	s.Plots.District = "Dzielnica"
	s.Plots.Street = "Ulica"
	s.Plots.BuildingNumber = "Numer budynku"

	s.Locals.ID = "Numer porządkowy"
	s.Locals.PlotName = "Numer działki"
	s.Locals.Staircase = "Klatka"
	s.Locals.Number = "Numer lokalu"
	s.Locals.Floor = "Piętro"
	s.Locals.Area = "Powierzchnia"
	s.Locals.Beds = "Ilość łóżek"
	s.Locals.Workplaces = "Ilość miejsc pracy"
	s.Locals.Tenant = "Najemca"

	s.Owners.Name = "Nazwa"
	s.Owners.Category = "Typ"
	s.Owners.Photo = "Zdjęcie"
	s.Owners.NIO = "NIO"
	s.Owners.Age = "Wiek"
	s.Owners.Profession = "Zawód"
	s.Owners.LegalForm = "Forma prawna"
	s.Owners.PIN = "PIN"
	s.Owners.Staff = "Obsługa"

	s.Transactions.PlotName = "Numer działki"
	s.Transactions.NewOwner = "Nowy właściciel"
	s.Transactions.Value = "Wartość transakcji"
	s.Transactions.Date = "Dzień transakcji"
	s.Transactions.Type = "Typ transakcji"
	s.Transactions.CheckNumber = "Numer czeku"
	s.Transactions.Paid = "Opłacone?"

	s.Merged.Plot1 = "Działka główna"
	s.Merged.Plot2 = "Działka dołączana"

	s.Streets.Name = "Nazwa ulicy"
	s.Streets.X1 = "X (lewy górny)"
	s.Streets.Z1 = "Z (lewy górny)"
	s.Streets.X2 = "X (prawy dolny)"
	s.Streets.Z2 = "Z (prawy dolny)"

	s.Settings.Name = "Ustawienie"
	s.Settings.Enabled = "Włączone?"

	s.Lottery.PlotName = "Numer działki"
	s.Lottery.Winner = "Zwycięzca"
	s.Lottery.Amount = "Kwota"
	s.Lottery.CheckNumber = "Numer czeku"
	s.Lottery.Paid = "Opłacone?"
	return s
}

// WithDefaults fills every blank label from DefaultSchema.
func (s Schema) WithDefaults() Schema {
	d := DefaultSchema()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&s.Plots.ID, d.Plots.ID)
	fill(&s.Plots.Name, d.Plots.Name)
	fill(&s.Plots.Type, d.Plots.Type)
	fill(&s.Plots.X1, d.Plots.X1)
	fill(&s.Plots.Z1, d.Plots.Z1)
	fill(&s.Plots.X2, d.Plots.X2)
	fill(&s.Plots.Z2, d.Plots.Z2)
	fill(&s.Plots.Area, d.Plots.Area)
	fill(&s.Plots.Value, d.Plots.Value)
	fill(&s.Plots.District, d.Plots.District)
	fill(&s.Plots.Street, d.Plots.Street)
	fill(&s.Plots.BuildingNumber, d.Plots.BuildingNumber)

	fill(&s.Locals.ID, d.Locals.ID)
	fill(&s.Locals.PlotName, d.Locals.PlotName)
	fill(&s.Locals.Staircase, d.Locals.Staircase)
	fill(&s.Locals.Number, d.Locals.Number)
	fill(&s.Locals.Floor, d.Locals.Floor)
	fill(&s.Locals.Area, d.Locals.Area)
	fill(&s.Locals.Beds, d.Locals.Beds)
	fill(&s.Locals.Workplaces, d.Locals.Workplaces)
	fill(&s.Locals.Tenant, d.Locals.Tenant)

	fill(&s.Owners.Name, d.Owners.Name)
	fill(&s.Owners.Category, d.Owners.Category)
	fill(&s.Owners.Photo, d.Owners.Photo)
	fill(&s.Owners.NIO, d.Owners.NIO)
	fill(&s.Owners.Age, d.Owners.Age)
	fill(&s.Owners.Profession, d.Owners.Profession)
	fill(&s.Owners.LegalForm, d.Owners.LegalForm)
	fill(&s.Owners.PIN, d.Owners.PIN)
	fill(&s.Owners.Staff, d.Owners.Staff)

	fill(&s.Transactions.PlotName, d.Transactions.PlotName)
	fill(&s.Transactions.NewOwner, d.Transactions.NewOwner)
	fill(&s.Transactions.Value, d.Transactions.Value)
	fill(&s.Transactions.Date, d.Transactions.Date)
	fill(&s.Transactions.Type, d.Transactions.Type)
	fill(&s.Transactions.CheckNumber, d.Transactions.CheckNumber)
	fill(&s.Transactions.Paid, d.Transactions.Paid)

	fill(&s.Merged.Plot1, d.Merged.Plot1)
	fill(&s.Merged.Plot2, d.Merged.Plot2)

	fill(&s.Streets.Name, d.Streets.Name)
	fill(&s.Streets.X1, d.Streets.X1)
	fill(&s.Streets.Z1, d.Streets.Z1)
	fill(&s.Streets.X2, d.Streets.X2)
	fill(&s.Streets.Z2, d.Streets.Z2)

	fill(&s.Settings.Name, d.Settings.Name)
	fill(&s.Settings.Enabled, d.Settings.Enabled)

	fill(&s.Lottery.PlotName, d.Lottery.PlotName)
	fill(&s.Lottery.Winner, d.Lottery.Winner)
	fill(&s.Lottery.Amount, d.Lottery.Amount)
	fill(&s.Lottery.CheckNumber, d.Lottery.CheckNumber)
	fill(&s.Lottery.Paid, d.Lottery.Paid)
	return s
}
