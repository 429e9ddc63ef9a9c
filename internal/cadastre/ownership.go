package cadastre

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateKey orders transaction dates. Integer dates (spreadsheet day counts)
// compare numerically; DD.MM.YYYY dates compare by their YYYYMMDD string.
// Numeric keys sort before textual ones when a plot mixes both.
type DateKey struct {
	Numeric bool
	N       int64
	S       string
}

func (k DateKey) Less(o DateKey) bool {
	if k.Numeric != o.Numeric {
		return k.Numeric
	}
	if k.Numeric {
		return k.N < o.N
	}
	return k.S < o.S
}

func (k DateKey) String() string {
	if k.Numeric {
		return strconv.FormatInt(k.N, 10)
	}
	return k.S
}

// DateKeyOf derives the sort key of a transaction date, trying an integer
// parse first and falling back to the dotted day-month-year form.
func DateKeyOf(date string) DateKey {
	date = strings.TrimSpace(date)
	if n, err := strconv.ParseInt(date, 10, 64); err == nil {
		return DateKey{Numeric: true, N: n}
	}
	parts := strings.Split(date, ".")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) == 1 && parts[i][0] >= '0' && parts[i][0] <= '9' {
			parts[i] = "0" + parts[i]
		}
	}
	return DateKey{S: strings.Join(parts, "")}
}

var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate converts a transaction date into a UTC day.
func ParseDate(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if n, err := strconv.ParseInt(date, 10, 64); err == nil {
		return serialEpoch.AddDate(0, 0, int(n)), nil
	}
	parts := strings.Split(date, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("parse date %q: want DD.MM.YYYY", date)
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("parse date %q: non-numeric component", date)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// SortHistory orders transactions by date key, keeping input order on ties.
func SortHistory(txs []Transaction) {
	keys := make([]DateKey, len(txs))
	idx := make([]int, len(txs))
	for i := range txs {
		keys[i] = DateKeyOf(txs[i].Date)
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]].Less(keys[idx[b]])
	})
	sorted := make([]Transaction, len(txs))
	for i, j := range idx {
		sorted[i] = txs[j]
	}
	copy(txs, sorted)
}

// Ownership is the derived state of a single plot.
type Ownership struct {
	Owner   string
	Status  string
	History []Transaction
}

// ResolvePlot computes owner, status and history from one plot's transactions.
// The input slice is not modified.
func ResolvePlot(txs []Transaction) Ownership {
	if len(txs) == 0 {
		return Ownership{Owner: TreasuryOwner, Status: StatusOwned, History: []Transaction{}}
	}
	history := make([]Transaction, len(txs))
	copy(history, txs)
	SortHistory(history)

	out := Ownership{Owner: TreasuryOwner, Status: StatusOwned, History: history}
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Paid {
			out.Owner = history[i].NewOwner
			break
		}
	}
	if !history[len(history)-1].Paid {
		out.Status = StatusPending
	}
	return out
}

// ResolveOwnership writes owner, status and history onto every plot.
// Plots without transactions keep the treasury as owner.
func ResolveOwnership(plots []Plot, txs []Transaction) {
	byPlot := make(map[string][]Transaction)
	for _, t := range txs {
		byPlot[t.PlotName] = append(byPlot[t.PlotName], t)
	}
	for i := range plots {
		o := ResolvePlot(byPlot[plots[i].Name])
		plots[i].Owner = o.Owner
		plots[i].Status = o.Status
		plots[i].History = o.History
	}
}
