package cadastre

import "fmt"

type RGB struct {
	R, G, B uint8
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

var (
	FallbackColor = RGB{128, 128, 128}

	typeColors = map[string]RGB{
		"Parkowa":             {0, 170, 0},
		"Rolna":               {180, 104, 77},
		"Hotelowa":            {44, 186, 168},
		"Mieszkalna":          {222, 177, 45},
		"Sakralna":            {154, 92, 198},
		"Przemysłowo-biurowa": {255, 85, 255},
		"Mieszkalno-usługowa": {33, 73, 123},
		"Publiczna":           {255, 170, 0},
		"Medyczna":            {170, 0, 0},
		"Usługowa":            {17, 160, 54},
	}

	// Border colours keyed by Plot.Outline.
	OutlineColors = map[string]RGB{
		"pending": {250, 204, 21},
		"owned":   {239, 68, 68},
		"free":    {34, 197, 94},
	}
)

// TypeColor is the fill colour of a plot type; unknown types are grey.
func TypeColor(plotType string) RGB {
	if c, ok := typeColors[plotType]; ok {
		return c
	}
	return FallbackColor
}

// PlotTypes lists the types that have a dedicated colour.
func PlotTypes() []string {
	return []string{
		"Parkowa", "Rolna", "Hotelowa", "Mieszkalna", "Sakralna",
		"Przemysłowo-biurowa", "Mieszkalno-usługowa", "Publiczna", "Medyczna", "Usługowa",
	}
}
