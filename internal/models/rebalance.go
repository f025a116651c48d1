package models

// Liquidity tiers, L1 most liquid. Used to prefer selling easy-to-liquidate
// assets first when synthesizing trade legs.
const (
	LiquidityL1 = "L1"
	LiquidityL2 = "L2"
	LiquidityL3 = "L3"
	LiquidityL4 = "L4"
)

// DefaultAssetClasses is the fixed class universe. Classes with zero current
// value but a nonzero target still appear in every plan.
var DefaultAssetClasses = []string{
	"us_stock", "jp_stock", "precious_metal", "watch", "collection", "real_estate", "cash",
}

// LiquidityScore maps a tier to its sort rank. Unknown tiers sort last.
func LiquidityScore(tier string) int {
	switch tier {
	case LiquidityL1:
		return 1
	case LiquidityL2:
		return 2
	case LiquidityL3:
		return 3
	case LiquidityL4:
		return 4
	default:
		return 99
	}
}

// Asset is a holding tracked by the portfolio. BookValueJPY is the fallback
// value when no committed valuation exists.
type Asset struct {
	ID            string  `badgerhold:"key" json:"id"`
	Name          string  `json:"name"`
	Class         string  `badgerhold:"index" json:"class"`
	LiquidityTier string  `json:"liquidity_tier"`
	BookValueJPY  float64 `json:"book_value_jpy"`
}

// TargetAllocation is one row of the target mix. Percentages are not required
// to sum to 100; they are normalized at read time.
type TargetAllocation struct {
	Class     string  `badgerhold:"key" json:"class"`
	TargetPct float64 `json:"pct"`
}

// AssetValueSnapshot is the per-asset current value used for planning,
// computed per request from latest-valuation-or-book-value. Never stored.
type AssetValueSnapshot struct {
	AssetID       string  `json:"asset_id"`
	Name          string  `json:"name"`
	Class         string  `json:"class"`
	LiquidityTier string  `json:"liquidity_tier"`
	ValueJPY      float64 `json:"value_jpy"`
	BookValueJPY  float64 `json:"book_value_jpy"`
}

// CurrentAllocation aggregates the portfolio's current state by class.
type CurrentAllocation struct {
	TotalJPY    float64              `json:"total"`
	ByClass     map[string]float64   `json:"by_class"`
	Pct         map[string]float64   `json:"pct"`
	AssetValues []AssetValueSnapshot `json:"asset_values"`
}

// PlanRow is the per-class breach report line.
type PlanRow struct {
	Class       string  `json:"class"`
	CurValueJPY float64 `json:"cur_value_jpy"`
	CurPct      float64 `json:"cur_pct"`
	TargetPct   float64 `json:"target_pct"`
	MinPct      float64 `json:"min_pct"`
	MaxPct      float64 `json:"max_pct"`
	DriftPct    float64 `json:"drift_pct"`
	Breach      bool    `json:"breach"`
}

// TradeLeg is a per-asset slice of a trade amount.
type TradeLeg struct {
	AssetID       string  `json:"asset_id"`
	Name          string  `json:"name"`
	AmountJPY     float64 `json:"amount_jpy"`
	LiquidityTier string  `json:"liquidity_tier"`
}

// Trade is one cross-class reallocation with its asset-level legs. Transient;
// exists only for the duration of a single plan response.
type Trade struct {
	FromClass string     `json:"from_class"`
	ToClass   string     `json:"to_class"`
	AmountJPY float64    `json:"amount_jpy"`
	SellLegs  []TradeLeg `json:"sells"`
	BuyLegs   []TradeLeg `json:"buys"`
}

// PlanResult is the output of the rebalance planner.
type PlanResult struct {
	Rows       []PlanRow          `json:"rows"`
	Breaches   []string           `json:"breaches"`
	Deltas     map[string]float64 `json:"deltas"`
	Trades     []Trade            `json:"trades"`
	NetFlowJPY float64            `json:"net_flow_jpy"`
}
