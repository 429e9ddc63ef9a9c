package cadastre

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// TreasuryOwner is the owner of every plot that has no paid transaction.
	TreasuryOwner = "Skarb Miasta"

	StatusOwned   = "owned"
	StatusPending = "pending"

	CategoryIndividual  = "individual"
	CategoryLegalEntity = "legal-entity"

	DefaultDistrictMargin = 50
)

var (
	ErrPlotNotFound     = errors.New("plot not found")
	ErrOwnerNotFound    = errors.New("owner not found")
	ErrDistrictNotFound = errors.New("district not found")
	ErrStreetNotFound   = errors.New("street not found")
	ErrLotteryDisabled  = errors.New("lottery is disabled")
	ErrNoEligiblePlots  = errors.New("no plots eligible for the lottery")
)

// Rect is an axis-aligned rectangle in world units with X2 >= X1 and Z2 >= Z1.
type Rect struct {
	X1 int `json:"x1"`
	Z1 int `json:"z1"`
	X2 int `json:"x2"`
	Z2 int `json:"z2"`
}

func NewRect(x1, z1, x2, z2 int) Rect {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if z2 < z1 {
		z1, z2 = z2, z1
	}
	return Rect{X1: x1, Z1: z1, X2: x2, Z2: z2}
}

func (r Rect) Width() int  { return r.X2 - r.X1 }
func (r Rect) Height() int { return r.Z2 - r.Z1 }
func (r Rect) Area() int   { return r.Width() * r.Height() }

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X1: min(r.X1, o.X1),
		Z1: min(r.Z1, o.Z1),
		X2: max(r.X2, o.X2),
		Z2: max(r.Z2, o.Z2),
	}
}

// Near reports whether o overlaps r once r is grown by margin on every side.
// Touching edges count as overlap.
func (r Rect) Near(o Rect, margin int) bool {
	return r.X1 <= o.X2+margin && r.X2 >= o.X1-margin &&
		r.Z1 <= o.Z2+margin && r.Z2 >= o.Z1-margin
}

type Plot struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Type           string        `json:"type"`
	Rect           Rect          `json:"rect"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	Area           string        `json:"area"`
	Value          string        `json:"value"`
	District       string        `json:"district"`
	Street         string        `json:"street"`
	BuildingNumber string        `json:"building_number"`
	Owner          string        `json:"owner"`
	Status         string        `json:"status"`
	History        []Transaction `json:"history"`
}

// Label is the plot identifier as printed on the map.
func (p Plot) Label() string {
	if len(p.ID) >= 3 {
		return p.ID
	}
	return strings.Repeat("0", 3-len(p.ID)) + p.ID
}

// NominalArea is the declared area parsed as an integer, 0 when unparsable.
func (p Plot) NominalArea() int {
	return parseLeadingInt(p.Area)
}

// OwnedPrivately reports whether the plot belongs to someone other than the treasury.
func (p Plot) OwnedPrivately() bool {
	owner := strings.TrimSpace(p.Owner)
	return owner != "" && !strings.EqualFold(owner, TreasuryOwner)
}

// Outline classifies how the plot border is drawn: pending, owned or free.
func (p Plot) Outline() string {
	switch {
	case p.Status == StatusPending:
		return "pending"
	case p.OwnedPrivately():
		return "owned"
	default:
		return "free"
	}
}

type Local struct {
	ID         string `json:"id"`
	PlotName   string `json:"plot_name"`
	Street     string `json:"street"`
	Building   string `json:"building"`
	Staircase  string `json:"staircase"`
	Number     string `json:"number"`
	Floor      string `json:"floor"`
	Area       int    `json:"area"`
	Beds       int    `json:"beds"`
	Workplaces int    `json:"workplaces"`
	Tenant     string `json:"tenant"`
}

// Address renders "street building/number", skipping blank parts.
func (l Local) Address() string {
	addr := strings.TrimSpace(l.Street + " " + l.Building)
	if l.Number != "" {
		if addr == "" {
			return l.Number
		}
		return fmt.Sprintf("%s/%s", addr, l.Number)
	}
	return addr
}

type Owner struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Photo      string `json:"photo,omitempty"`
	NIO        string `json:"nio,omitempty"`
	Age        string `json:"age,omitempty"`
	Profession string `json:"profession,omitempty"`
	LegalForm  string `json:"legal_form,omitempty"`
	PIN        string `json:"-"`
	Staff      bool   `json:"staff"`
}

func (o Owner) LegalEntity() bool { return o.Category == CategoryLegalEntity }

type Transaction struct {
	PlotName    string `json:"plot_name"`
	NewOwner    string `json:"new_owner"`
	Value       string `json:"value"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	CheckNumber string `json:"check_number"`
	Paid        bool   `json:"paid"`
}

// Donation reports whether the transaction type marks a donation.
func (t Transaction) Donation() bool {
	switch strings.ToLower(strings.TrimSpace(t.Type)) {
	case "darowizna", "donation":
		return true
	default:
		return false
	}
}

type MergeEdge struct {
	Plot1 string `json:"plot1"`
	Plot2 string `json:"plot2"`
}

type MergedGroup struct {
	Plots        []string `json:"plots"`
	Rect         Rect     `json:"rect"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	OriginalArea int      `json:"original_area"`
	MergedArea   int      `json:"merged_area"`
}

type DistrictCluster struct {
	District string   `json:"district"`
	Plots    []string `json:"plots"`
	Outline  Rect     `json:"outline"`
}

type StreetSegment struct {
	Name   string `json:"name"`
	X1     int    `json:"x1"`
	Z1     int    `json:"z1"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s StreetSegment) longest() int { return max(s.Width, s.Height) }

type LotteryEntry struct {
	PlotName    string `json:"plot_name"`
	Winner      string `json:"winner"`
	Amount      string `json:"amount"`
	CheckNumber string `json:"check_number"`
	Paid        bool   `json:"paid"`
}

type Setting struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}
