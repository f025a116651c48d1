package models

import "time"

// Condition grades for comparable sales. Anything outside this set carries a
// neutral weight factor.
const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeB     = "B"
	GradeC     = "C"
)

// ComparableSale is one observed sale of a comparable item, entered manually
// or ingested from a scrape. PriceJPY is always populated at write time.
type ComparableSale struct {
	ID             string    `badgerhold:"key" json:"id"`
	AssetID        string    `badgerhold:"index" json:"asset_id"`
	SaleDate       string    `json:"sale_date"` // YYYY-MM-DD
	Price          float64   `json:"price"`
	Currency       string    `json:"currency"`
	PriceJPY       float64   `json:"price_jpy"`
	Source         string    `json:"source,omitempty"`
	SourceURL      string    `json:"source_url,omitempty"`
	Marketplace    string    `json:"marketplace,omitempty"`
	ConditionGrade string    `json:"condition_grade,omitempty"`
	Completeness   string    `json:"completeness,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EstimateDetail is one kept record with its computed weight, returned so the
// caller can show which sales drove the estimate.
type EstimateDetail struct {
	ID             string  `json:"id"`
	SaleDate       string  `json:"sale_date"`
	PriceJPY       float64 `json:"price_jpy"`
	Weight         float64 `json:"weight"`
	ConditionGrade string  `json:"condition_grade,omitempty"`
	Completeness   string  `json:"completeness,omitempty"`
	Source         string  `json:"source,omitempty"`
}

// EstimateResult is the output of the comparable-sales estimator. Confidence
// is a 0-100 UX heuristic, not a statistical confidence interval.
type EstimateResult struct {
	EstimateJPY     float64          `json:"estimate_jpy"`
	Used            int              `json:"used"`
	Total           int              `json:"total"`
	OutliersRemoved int              `json:"n_outliers"`
	Confidence      int              `json:"confidence"`
	Method          string           `json:"method"`
	Details         []EstimateDetail `json:"details"`
}

// Valuation is a committed value for an asset at a point in time. The
// estimator never writes these unprompted; commit is a separate operation.
type Valuation struct {
	ID        string    `badgerhold:"key" json:"id"`
	AssetID   string    `badgerhold:"index" json:"asset_id"`
	AsOf      string    `json:"as_of"` // YYYY-MM-DD
	ValueJPY  float64   `json:"value_jpy"`
	FxContext string    `json:"fx_context,omitempty"` // provenance JSON, e.g. {"source":"comps","confidence":72}
	CreatedAt time.Time `json:"created_at"`
}
