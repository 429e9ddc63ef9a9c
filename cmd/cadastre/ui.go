package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"cadastre/internal/cadastre"
	cl "cadastre/internal/cli"
	"cadastre/internal/store"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		text := strings.TrimSpace(string(raw))
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func outlineLabel(outline string) string {
	switch outline {
	case "pending":
		return warn.Sprint("pending")
	case "owned":
		return danger.Sprint("owned")
	default:
		return success.Sprint("free")
	}
}

func typeLabel(plotType string) string {
	c := cadastre.TypeColor(plotType)
	return color.RGB(int(c.R), int(c.G), int(c.B)).Sprint(truncate(plotType, 20))
}

func renderPlots(plots []cadastre.Plot) {
	if len(plots) == 0 {
		printInfo("No plots match.")
		return
	}
	fmt.Printf("%-6s %-10s %-20s %-16s %-16s %-18s %-9s\n", "NO", "NAME", "TYPE", "DISTRICT", "STREET", "OWNER", "STATUS")
	for _, p := range plots {
		fmt.Printf("%-6s %-10s %s %-16s %-16s %-18s %s\n",
			p.Label(),
			truncate(p.Name, 10),
			pad(typeLabel(p.Type), truncate(p.Type, 20), 20),
			truncate(p.District, 16),
			truncate(p.Street, 16),
			truncate(orDash(p.Owner), 18),
			outlineLabel(p.Outline()),
		)
	}
	fmt.Printf("\n%d plots\n", len(plots))
}

func renderPlot(d cl.PlotDetail) {
	p := d.Plot
	accent.Printf("\n== PLOT %s (%s) ==\n", p.Name, d.Label)
	fmt.Printf("Type:        %s\n", typeLabel(p.Type))
	fmt.Printf("District:    %s\n", orDash(p.District))
	fmt.Printf("Street:      %s %s\n", orDash(p.Street), p.BuildingNumber)
	fmt.Printf("Corners:     (%d, %d) to (%d, %d)\n", p.Rect.X1, p.Rect.Z1, p.Rect.X2, p.Rect.Z2)
	fmt.Printf("Size:        %d × %d, declared area %s\n", p.Width, p.Height, orDash(p.Area))
	fmt.Printf("Value:       %s\n", orDash(p.Value))
	fmt.Printf("Owner:       %s\n", orDash(p.Owner))
	fmt.Printf("Status:      %s\n", outlineLabel(d.Outline))
	if d.Donor != "" {
		fmt.Printf("Donated by:  %s\n", d.Donor)
	}
	if d.Merged != nil {
		fmt.Printf("Merged with: %s (area %d → %d)\n", strings.Join(d.Merged.Plots, ", "), d.Merged.OriginalArea, d.Merged.MergedArea)
	}

	fmt.Println()
	accent.Println("History")
	if len(p.History) == 0 {
		printInfo("No transactions.")
	} else {
		today := time.Now().UTC()
		fmt.Printf("%-12s %8s %-20s %-14s %10s %-6s\n", "DATE", "AGE", "NEW OWNER", "TYPE", "VALUE", "PAID")
		for _, tx := range p.History {
			paid := danger.Sprint("no")
			if tx.Paid {
				paid = success.Sprint("yes")
			}
			age := "-"
			if at, err := cadastre.ParseDate(tx.Date); err == nil {
				age = fmt.Sprintf("%dd", cadastre.DaysBetween(at, today))
			}
			fmt.Printf("%-12s %8s %-20s %-14s %10s %s\n", orDash(tx.Date), age, truncate(tx.NewOwner, 20), truncate(tx.Type, 14), orDash(tx.Value), paid)
		}
	}

	fmt.Println()
	accent.Println("Locals")
	if len(d.Locals) == 0 {
		printInfo("No locals.")
	} else {
		fmt.Printf("%-8s %-28s %6s %6s %6s %-18s\n", "ID", "ADDRESS", "AREA", "BEDS", "WORK", "TENANT")
		for _, l := range d.Locals {
			fmt.Printf("%-8s %-28s %6d %6d %6d %-18s\n", truncate(l.ID, 8), truncate(l.Address(), 28), l.Area, l.Beds, l.Workplaces, truncate(orDash(l.Tenant), 18))
		}
	}
	fmt.Println()
}

func renderOwner(d cl.OwnerDetail) {
	o := d.Owner
	accent.Printf("\n== %s ==\n", o.Name)
	fmt.Printf("Category:    %s\n", orDash(o.Category))
	if o.LegalEntity() {
		fmt.Printf("Legal form:  %s\n", orDash(o.LegalForm))
	} else {
		fmt.Printf("Age:         %s\n", orDash(o.Age))
		fmt.Printf("Profession:  %s\n", orDash(o.Profession))
	}
	if o.NIO != "" {
		fmt.Printf("NIO:         %s\n", o.NIO)
	}
	if o.Staff {
		fmt.Printf("Staff:       %s\n", success.Sprint("yes"))
	}
	fmt.Println()
	renderPlots(d.Plots)
}

func renderDistricts(districts []cl.District) {
	if len(districts) == 0 {
		printInfo("No districts.")
		return
	}
	fmt.Printf("%-24s %6s %9s\n", "DISTRICT", "PLOTS", "CLUSTERS")
	for _, d := range districts {
		fmt.Printf("%-24s %6d %9d\n", truncate(d.Name, 24), d.Plots, len(d.Clusters))
	}
}

func renderStreets(streets []cadastre.Street) {
	if len(streets) == 0 {
		printInfo("No named streets.")
		return
	}
	fmt.Printf("%-24s %9s %-10s %s\n", "STREET", "SEGMENTS", "AXIS", "LABEL AT")
	for _, s := range streets {
		axis := "horizontal"
		if s.Vertical {
			axis = "vertical"
		}
		fmt.Printf("%-24s %9d %-10s (%.1f, %.1f)\n", truncate(s.Name, 24), len(s.Segments), axis, s.LabelX, s.LabelZ)
	}
}

func renderMerged(groups []cadastre.MergedGroup) {
	if len(groups) == 0 {
		printInfo("No merged plots.")
		return
	}
	fmt.Printf("%-36s %9s %12s %12s\n", "PLOTS", "SIZE", "ORIG AREA", "MERGED AREA")
	for _, g := range groups {
		fmt.Printf("%-36s %9s %12d %12d\n", truncate(strings.Join(g.Plots, ", "), 36), fmt.Sprintf("%dx%d", g.Width, g.Height), g.OriginalArea, g.MergedArea)
	}
}

func renderEligible(e cl.LotteryEligible) {
	if !e.Enabled {
		printWarn("The lottery is currently switched off.")
	}
	if len(e.Candidates) == 0 {
		printInfo("No plots are eligible.")
		return
	}
	fmt.Printf("%-6s %-10s %-20s %-20s\n", "NO", "PLOT", "TYPE", "DONOR")
	for _, c := range e.Candidates {
		fmt.Printf("%-6s %-10s %s %-20s\n", c.Plot.Label(), truncate(c.Plot.Name, 10), pad(typeLabel(c.Plot.Type), truncate(c.Plot.Type, 20), 20), truncate(c.Donor, 20))
	}
}

func renderLotteryHistory(h cl.LotteryHistory) {
	accent.Println("\nPast winners")
	if len(h.History) == 0 {
		printInfo("No lottery results recorded.")
	} else {
		fmt.Printf("%-10s %-20s %10s %-6s\n", "PLOT", "WINNER", "AMOUNT", "PAID")
		for _, e := range h.History {
			paid := danger.Sprint("no")
			if e.Paid {
				paid = success.Sprint("yes")
			}
			fmt.Printf("%-10s %-20s %10s %s\n", truncate(e.PlotName, 10), truncate(e.Winner, 20), orDash(e.Amount), paid)
		}
	}

	accent.Println("\nDonor credits")
	if len(h.DonorCredits) == 0 {
		printInfo("No donors yet.")
	} else {
		donors := make([]string, 0, len(h.DonorCredits))
		for name := range h.DonorCredits {
			donors = append(donors, name)
		}
		sort.Slice(donors, func(i, j int) bool {
			if h.DonorCredits[donors[i]] != h.DonorCredits[donors[j]] {
				return h.DonorCredits[donors[i]] > h.DonorCredits[donors[j]]
			}
			return donors[i] < donors[j]
		})
		for _, name := range donors {
			fmt.Printf("%-24s %4d\n", truncate(name, 24), h.DonorCredits[name])
		}
	}

	accent.Println("\nDraws")
	if len(h.Draws) == 0 {
		printInfo("No draws recorded.")
	} else {
		for _, d := range h.Draws {
			renderDrawLine(d)
		}
	}
	fmt.Println()
}

func renderDrawLine(d store.Draw) {
	fmt.Printf("%s  %-10s donor=%-18s by=%s\n", d.DrawnAt.Local().Format("2006-01-02 15:04"), truncate(d.PlotName, 10), truncate(d.Donor, 18), d.DrawnBy)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// pad right-pads a coloured string using the width of its plain text.
func pad(colored, plain string, width int) string {
	n := utf8.RuneCountInString(plain)
	if n >= width {
		return colored
	}
	return colored + strings.Repeat(" ", width-n)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
