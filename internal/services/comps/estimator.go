// Package comps manages comparable-sale records and turns them into a single
// defensible valuation with a confidence score, using MAD-based outlier
// rejection and a recency- and quality-weighted median.
package comps

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
)

const (
	// MethodWMAD selects the weighted median after MAD filtering. "wmedian"
	// is accepted as an alias; any other token falls back to weighted mean.
	MethodWMAD    = "wmad"
	MethodWMedian = "wmedian"
	MethodWMean   = "wmean"

	// madCutoff is the spread multiple beyond which a record is an outlier.
	madCutoff = 3.0

	// minSamplesForFilter is the sample size below which no record is
	// rejected; smaller sets carry too little information to call outliers.
	minSamplesForFilter = 5

	// weightFloor keeps a fully decayed record visible to the weighted-median
	// tie logic instead of silently vanishing at weight zero.
	weightFloor = 0.0001
)

// Estimate runs the comparable-sales estimator over the given records. The
// caller supplies now so the computation is a pure function of its inputs.
func Estimate(sales []models.ComparableSale, method string, halfLifeDays int, now time.Time) (*models.EstimateResult, error) {
	if halfLifeDays <= 0 {
		return nil, common.NewValidationError("half_life_days", "must be positive, got %d", halfLifeDays)
	}

	if len(sales) == 0 {
		return &models.EstimateResult{
			Method:  method,
			Details: []models.EstimateDetail{},
		}, nil
	}

	prices := make([]float64, len(sales))
	for i, s := range sales {
		prices[i] = s.PriceJPY
	}

	keptIdx := filterMAD(prices, madCutoff)

	used := make([]models.ComparableSale, len(keptIdx))
	ages := make([]int, len(keptIdx))
	weights := make([]float64, len(keptIdx))
	for i, idx := range keptIdx {
		r := sales[idx]
		used[i] = r
		ages[i] = ageDays(r.SaleDate, now)
		recency := math.Pow(0.5, float64(ages[i])/float64(halfLifeDays))
		w := recency * conditionFactor(r.ConditionGrade) * completenessFactor(r.Completeness) * sourceFactor(r.Source)
		weights[i] = math.Max(weightFloor, w)
	}

	var estimate float64
	switch method {
	case MethodWMAD, MethodWMedian:
		estimate = weightedMedian(used, weights)
	default:
		var num, den float64
		for i, r := range used {
			num += r.PriceJPY * weights[i]
			den += weights[i]
		}
		estimate = num / den
	}

	details := make([]models.EstimateDetail, len(used))
	for i, r := range used {
		details[i] = models.EstimateDetail{
			ID:             r.ID,
			SaleDate:       r.SaleDate,
			PriceJPY:       r.PriceJPY,
			Weight:         weights[i],
			ConditionGrade: r.ConditionGrade,
			Completeness:   r.Completeness,
			Source:         r.Source,
		}
	}

	return &models.EstimateResult{
		EstimateJPY:     math.Round(estimate),
		Used:            len(used),
		Total:           len(sales),
		OutliersRemoved: len(sales) - len(used),
		Confidence:      confidenceScore(len(used), ages),
		Method:          method,
		Details:         details,
	}, nil
}

// median of values; the empty slice is 0.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	m := len(s) / 2
	if len(s)%2 == 1 {
		return s[m]
	}
	return (s[m-1] + s[m]) / 2
}

// filterMAD returns the indexes of values within k median-absolute-deviations
// of the median. Sets smaller than minSamplesForFilter are kept whole. A MAD
// of zero (half the sample at the exact median) is treated as 1 so the cutoff
// does not collapse to the median itself.
func filterMAD(values []float64, k float64) []int {
	if len(values) < minSamplesForFilter {
		keep := make([]int, len(values))
		for i := range values {
			keep[i] = i
		}
		return keep
	}

	m := median(values)
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - m)
	}
	mad := median(devs)
	if mad == 0 {
		mad = 1
	}

	var keep []int
	for i, v := range values {
		if math.Abs(v-m) <= k*mad {
			keep = append(keep, i)
		}
	}
	return keep
}

// weightedMedian returns the price at which cumulative weight first reaches
// half the total weight, walking records in price order.
func weightedMedian(sales []models.ComparableSale, weights []float64) float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}

	type pair struct {
		value  float64
		weight float64
	}
	pairs := make([]pair, len(sales))
	for i, s := range sales {
		pairs[i] = pair{value: s.PriceJPY, weight: weights[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })

	var acc float64
	for _, p := range pairs {
		acc += p.weight
		if acc >= total/2 {
			return p.value
		}
	}
	return pairs[len(pairs)-1].value
}

// ageDays returns whole days elapsed since the sale date, clamped to >= 0.
// A malformed date counts as very old rather than failing the whole estimate;
// dates are validated at write time.
func ageDays(saleDate string, now time.Time) int {
	d, err := time.ParseInLocation("2006-01-02", saleDate, time.UTC)
	if err != nil {
		return 999
	}
	days := int(math.Floor(now.UTC().Sub(d).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// confidenceScore is a 0-100 UX heuristic: up to 60 points for corroborating
// records (10 each), up to 40 for freshness (0 days = 40, 80 days = 0).
func confidenceScore(used int, ages []int) int {
	countScore := math.Min(60, float64(used)*10)

	avgAge := 999.0
	if len(ages) > 0 {
		var sum float64
		for _, a := range ages {
			sum += float64(a)
		}
		avgAge = sum / float64(len(ages))
	}
	freshScore := math.Max(0, 40-math.Min(40, avgAge*0.5))

	return int(math.Round(countScore + freshScore))
}

func conditionFactor(grade string) float64 {
	switch strings.ToUpper(strings.TrimSpace(grade)) {
	case models.GradeAPlus:
		return 1.10
	case models.GradeA:
		return 1.00
	case models.GradeB:
		return 0.92
	case models.GradeC:
		return 0.85
	default:
		return 1.00
	}
}

func completenessFactor(completeness string) float64 {
	key := strings.ToUpper(completeness)
	switch {
	case strings.Contains(key, "FULL"):
		return 1.05
	case strings.Contains(key, "HEAD"), strings.Contains(key, "WATCH ONLY"):
		return 0.95
	default:
		return 1.00
	}
}

func sourceFactor(source string) float64 {
	key := strings.ToLower(source)
	switch {
	case strings.Contains(key, "auction"):
		return 1.00
	case strings.Contains(key, "dealer"):
		return 0.96
	case strings.Contains(key, "market"):
		return 0.98
	default:
		return 1.00
	}
}
