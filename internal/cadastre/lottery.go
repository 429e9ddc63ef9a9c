package cadastre

import (
	"math/rand"
	"strings"
)

// LotterySetting is the settings flag that switches the lottery on.
const LotterySetting = "Loteria"

// LotteryCandidate is a plot that may be drawn, with the legal entity that donated it.
type LotteryCandidate struct {
	Plot  Plot   `json:"plot"`
	Donor string `json:"donor"`
}

// DonorOf returns the owner who gave the plot to the treasury: the previous
// paid owner before the latest paid transaction, when that transaction is a
// donation to the treasury.
func DonorOf(p Plot) (string, bool) {
	last := -1
	for i := len(p.History) - 1; i >= 0; i-- {
		if p.History[i].Paid {
			last = i
			break
		}
	}
	if last < 0 {
		return "", false
	}
	tx := p.History[last]
	if !tx.Donation() || !strings.EqualFold(strings.TrimSpace(tx.NewOwner), TreasuryOwner) {
		return "", false
	}
	for i := last - 1; i >= 0; i-- {
		if p.History[i].Paid {
			donor := strings.TrimSpace(p.History[i].NewOwner)
			if donor == "" || strings.EqualFold(donor, TreasuryOwner) {
				return "", false
			}
			return donor, true
		}
	}
	return "", false
}

// LotteryEligible lists plots donated by a legal entity other than the
// treasury that have not been awarded before, in plot order. A plot counts
// as awarded when it appears in the lottery history or in drawn.
func (d *AppData) LotteryEligible(drawn map[string]bool) []LotteryCandidate {
	awarded := make(map[string]bool, len(d.LotteryHistory)+len(drawn))
	for _, e := range d.LotteryHistory {
		awarded[e.PlotName] = true
	}
	for name, ok := range drawn {
		if ok {
			awarded[name] = true
		}
	}
	out := []LotteryCandidate{}
	for _, p := range d.Plots {
		if awarded[p.Name] {
			continue
		}
		donor, ok := DonorOf(p)
		if !ok {
			continue
		}
		owner, known := d.Owner(donor)
		if !known || !owner.LegalEntity() {
			continue
		}
		out = append(out, LotteryCandidate{Plot: p, Donor: donor})
	}
	return out
}

// DonorCredits counts, per donor, how many awarded lottery plots they gave.
func (d *AppData) DonorCredits() map[string]int {
	out := make(map[string]int)
	for _, e := range d.LotteryHistory {
		p, ok := d.Plot(e.PlotName)
		if !ok {
			continue
		}
		if donor, ok := DonorOf(p); ok {
			out[donor]++
		}
	}
	return out
}

// DrawLottery picks one eligible plot uniformly at random, skipping plots in
// drawn.
func (d *AppData) DrawLottery(rng *rand.Rand, setting string, drawn map[string]bool) (LotteryCandidate, error) {
	if setting == "" {
		setting = LotterySetting
	}
	if !d.Setting(setting) {
		return LotteryCandidate{}, ErrLotteryDisabled
	}
	pool := d.LotteryEligible(drawn)
	if len(pool) == 0 {
		return LotteryCandidate{}, ErrNoEligiblePlots
	}
	return pool[rng.Intn(len(pool))], nil
}
