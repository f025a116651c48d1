// Package rebalance compares current vs target portfolio allocation, detects
// tolerance-band breaches, and synthesizes a minimal set of sell/buy trades
// at the asset level.
package rebalance

import (
	"math"
	"sort"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
)

const (
	// AdjustToTarget moves breached classes back to their exact target share.
	AdjustToTarget = "target"
	// AdjustToMid moves breached classes to the midpoint of their band,
	// trading less at the cost of sitting nearer the edge.
	AdjustToMid = "mid"

	// BuyLegCapMultiple caps a buy leg at this multiple of the asset's
	// current value. Buying more of an existing holding has no natural
	// ceiling, so this is a tunable heuristic rather than a derived bound.
	BuyLegCapMultiple = 10.0

	// residualJPY is the remainder below which a class's side of the
	// two-pointer merge counts as filled. Sub-yen residue from float math
	// should not spin the loop.
	residualJPY = 1.0
)

// ComputePlan produces the breach report and trade list for the given state.
// It is a pure read-compute-return function; persistence of any output is the
// caller's responsibility.
func ComputePlan(current *models.CurrentAllocation, targets []models.TargetAllocation, tolerancePct float64, adjustTo string, minTradeJPY float64) (*models.PlanResult, error) {
	for _, t := range targets {
		if t.Class == "" {
			return nil, common.NewValidationError("targets", "target row missing class")
		}
		if math.IsNaN(t.TargetPct) || math.IsInf(t.TargetPct, 0) {
			return nil, common.NewValidationError("targets", "target for class '%s' is not finite", t.Class)
		}
	}

	classes := classUniverse(current, targets)
	targetPct := normalizeTargets(classes, targets)

	rows := make([]models.PlanRow, 0, len(classes))
	var breaches []string
	for _, c := range classes {
		curV := current.ByClass[c]
		curPct := 0.0
		if current.TotalJPY > 0 {
			curPct = curV / current.TotalJPY * 100
		}
		tgt := targetPct[c]
		minPct := math.Max(0, tgt-tolerancePct)
		maxPct := math.Min(100, tgt+tolerancePct)
		breach := curPct < minPct || curPct > maxPct
		if breach {
			breaches = append(breaches, c)
		}
		rows = append(rows, models.PlanRow{
			Class:       c,
			CurValueJPY: math.Round(curV),
			CurPct:      curPct,
			TargetPct:   tgt,
			MinPct:      minPct,
			MaxPct:      maxPct,
			DriftPct:    curPct - tgt,
			Breach:      breach,
		})
	}

	// Desired value per class: breached classes move to target (or band
	// midpoint); everything else stays put.
	desired := make(map[string]float64, len(rows))
	for _, r := range rows {
		if !r.Breach {
			desired[r.Class] = current.ByClass[r.Class]
			continue
		}
		pct := r.TargetPct
		if adjustTo == AdjustToMid {
			pct = (r.MinPct + r.MaxPct) / 2
		}
		desired[r.Class] = current.TotalJPY * pct / 100
	}

	// Deltas, with the min-trade dead-band applied. The dead-band is on trade
	// size and is independent of the allocation tolerance.
	deltas := make(map[string]float64, len(classes))
	for _, c := range classes {
		d := desired[c] - current.ByClass[c]
		if math.Abs(d) < minTradeJPY {
			d = 0
		}
		deltas[c] = d
	}

	type flow struct {
		class  string
		amount float64
	}
	var buys, sells []flow
	for _, c := range classes {
		switch {
		case deltas[c] > 0:
			buys = append(buys, flow{class: c, amount: deltas[c]})
		case deltas[c] < 0:
			sells = append(sells, flow{class: c, amount: -deltas[c]})
		}
	}

	var netBuy, netSell float64
	for _, b := range buys {
		netBuy += b.amount
	}
	for _, s := range sells {
		netSell += s.amount
	}

	// Snapshot ordering per class: most liquid tier first, larger positions
	// first within a tier.
	byClassAssets := make(map[string][]models.AssetValueSnapshot)
	for _, a := range current.AssetValues {
		byClassAssets[a.Class] = append(byClassAssets[a.Class], a)
	}
	for _, assets := range byClassAssets {
		sort.Slice(assets, func(i, j int) bool {
			si, sj := models.LiquidityScore(assets[i].LiquidityTier), models.LiquidityScore(assets[j].LiquidityTier)
			if si != sj {
				return si < sj
			}
			return assets[i].ValueJPY > assets[j].ValueJPY
		})
	}

	// Two-pointer merge: pair head sell class with head buy class, transact
	// the smaller remainder, advance whichever side is (near) filled. Yields
	// a minimal-count trade set rather than one trade per class pair.
	var trades []models.Trade
	i, j := 0, 0
	for i < len(sells) && j < len(buys) {
		s, b := &sells[i], &buys[j]
		x := math.Min(s.amount, b.amount)

		trades = append(trades, models.Trade{
			FromClass: s.class,
			ToClass:   b.class,
			AmountJPY: math.Round(x),
			SellLegs:  sellLegs(byClassAssets[s.class], x),
			BuyLegs:   buyLegs(byClassAssets[b.class], x),
		})

		s.amount -= x
		b.amount -= x
		if s.amount <= residualJPY {
			i++
		}
		if b.amount <= residualJPY {
			j++
		}
	}

	return &models.PlanResult{
		Rows:       rows,
		Breaches:   breaches,
		Deltas:     deltas,
		Trades:     trades,
		NetFlowJPY: math.Round(netBuy - netSell),
	}, nil
}

// classUniverse is the union of the default set, classes present in current,
// and classes named by targets, in that insertion order.
func classUniverse(current *models.CurrentAllocation, targets []models.TargetAllocation) []string {
	seen := make(map[string]bool)
	var classes []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			classes = append(classes, c)
		}
	}

	for _, c := range models.DefaultAssetClasses {
		add(c)
	}
	currentClasses := make([]string, 0, len(current.ByClass))
	for c := range current.ByClass {
		currentClasses = append(currentClasses, c)
	}
	sort.Strings(currentClasses)
	for _, c := range currentClasses {
		add(c)
	}
	for _, t := range targets {
		add(t.Class)
	}
	return classes
}

// normalizeTargets rescales the target percentages over the full class
// universe so they sum to exactly 100. Unspecified classes default to 0. A
// zero input sum is left untouched to avoid a divide-by-zero.
func normalizeTargets(classes []string, targets []models.TargetAllocation) map[string]float64 {
	pct := make(map[string]float64, len(classes))
	for _, c := range classes {
		pct[c] = 0
	}
	var sum float64
	for _, t := range targets {
		pct[t.Class] = t.TargetPct
		sum += t.TargetPct
	}
	if sum == 0 {
		return pct
	}
	scale := 100 / sum
	for c := range pct {
		pct[c] *= scale
	}
	return pct
}

// sellLegs greedily consumes asset value, most liquid first, until the
// amount is covered or the class runs out of value.
func sellLegs(assets []models.AssetValueSnapshot, amount float64) []models.TradeLeg {
	var legs []models.TradeLeg
	rem := amount
	for _, a := range assets {
		if rem <= 0 {
			break
		}
		can := math.Min(rem, a.ValueJPY)
		if can <= 0 {
			continue
		}
		legs = append(legs, models.TradeLeg{
			AssetID:       a.AssetID,
			Name:          a.Name,
			AmountJPY:     math.Round(can),
			LiquidityTier: a.LiquidityTier,
		})
		rem -= can
	}
	return legs
}

// buyLegs mirrors sellLegs on the buy side, with each leg capped at
// BuyLegCapMultiple times the asset's current value.
func buyLegs(assets []models.AssetValueSnapshot, amount float64) []models.TradeLeg {
	var legs []models.TradeLeg
	rem := amount
	for _, a := range assets {
		if rem <= 0 {
			break
		}
		can := math.Min(rem, math.Max(0, a.ValueJPY*BuyLegCapMultiple))
		if can <= 0 {
			continue
		}
		legs = append(legs, models.TradeLeg{
			AssetID:       a.AssetID,
			Name:          a.Name,
			AmountJPY:     math.Round(can),
			LiquidityTier: a.LiquidityTier,
		})
		rem -= can
	}
	return legs
}
