package comps

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/models"
)

var estNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// saleAt builds a sale dated daysAgo days before estNow.
func saleAt(priceJPY float64, grade string, daysAgo int) models.ComparableSale {
	return models.ComparableSale{
		ID:             fmt.Sprintf("sale-%d-%d", int(priceJPY), daysAgo),
		SaleDate:       estNow.AddDate(0, 0, -daysAgo).Format("2006-01-02"),
		PriceJPY:       priceJPY,
		ConditionGrade: grade,
	}
}

func TestEstimateRejectsNonPositiveHalfLife(t *testing.T) {
	_, err := Estimate([]models.ComparableSale{saleAt(100000, "A", 5)}, MethodWMAD, 0, estNow)
	require.Error(t, err)
	assert.True(t, common.IsValidation(err))

	_, err = Estimate(nil, MethodWMAD, -30, estNow)
	require.Error(t, err)
	assert.True(t, common.IsValidation(err))
}

func TestEstimateEmptyInput(t *testing.T) {
	res, err := Estimate(nil, MethodWMAD, 90, estNow)
	require.NoError(t, err)
	assert.Zero(t, res.EstimateJPY)
	assert.Zero(t, res.Used)
	assert.Zero(t, res.Confidence)
	assert.NotNil(t, res.Details)
	assert.Empty(t, res.Details)
}

// Below five records nothing is rejected, however wild the spread.
func TestEstimateSmallSampleKeepsAll(t *testing.T) {
	sales := []models.ComparableSale{
		saleAt(100000, "A", 1),
		saleAt(101000, "A", 1),
		saleAt(50000000, "A", 1),
		saleAt(99000, "A", 1),
	}
	res, err := Estimate(sales, MethodWMAD, 90, estNow)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Used)
	assert.Zero(t, res.OutliersRemoved)
}

// Six records clustered near 100,000 plus one at 10,000,000: the outlier is
// dropped and the estimate stays inside the cluster.
func TestEstimateRejectsOutlier(t *testing.T) {
	sales := []models.ComparableSale{
		saleAt(100000, "A", 3),
		saleAt(101000, "A", 4),
		saleAt(99000, "A", 5),
		saleAt(102000, "A", 6),
		saleAt(98000, "A", 7),
		saleAt(100000, "A", 8),
		saleAt(10000000, "A", 9),
	}
	res, err := Estimate(sales, MethodWMAD, 90, estNow)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Used)
	assert.Equal(t, 1, res.OutliersRemoved)
	assert.GreaterOrEqual(t, res.EstimateJPY, 98000.0)
	assert.LessOrEqual(t, res.EstimateJPY, 102000.0)
}

// Upgrading a record's grade from C to A+ must never pull the weighted
// median down.
func TestEstimateGradeUpgradeIsMonotonic(t *testing.T) {
	base := []models.ComparableSale{
		saleAt(100000, "A", 1),
		saleAt(200000, "C", 1),
	}
	lower, err := Estimate(base, MethodWMAD, 90, estNow)
	require.NoError(t, err)

	upgraded := []models.ComparableSale{
		saleAt(100000, "A", 1),
		saleAt(200000, "A+", 1),
	}
	higher, err := Estimate(upgraded, MethodWMAD, 90, estNow)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, higher.EstimateJPY, lower.EstimateJPY)
	// With these two weights the upgrade actually flips the median.
	assert.Equal(t, 100000.0, lower.EstimateJPY)
	assert.Equal(t, 200000.0, higher.EstimateJPY)
}

func TestEstimateWeightFactors(t *testing.T) {
	sales := []models.ComparableSale{
		{ID: "a", SaleDate: estNow.Format("2006-01-02"), PriceJPY: 100000, ConditionGrade: "A+", Completeness: "Full set", Source: "auction"},
	}
	res, err := Estimate(sales, MethodWMAD, 90, estNow)
	require.NoError(t, err)
	require.Len(t, res.Details, 1)
	// recency 1.0 (same day) * 1.10 * 1.05 * 1.00
	assert.InDelta(t, 1.155, res.Details[0].Weight, 1e-9)

	sales[0].ConditionGrade = "B"
	sales[0].Completeness = "head only"
	sales[0].Source = "dealer listing"
	res, err = Estimate(sales, MethodWMAD, 90, estNow)
	require.NoError(t, err)
	// 1.0 * 0.92 * 0.95 * 0.96
	assert.InDelta(t, 0.83904, res.Details[0].Weight, 1e-9)
}

func TestEstimateWeightedMeanMethod(t *testing.T) {
	sales := []models.ComparableSale{
		saleAt(100000, "A", 1),
		saleAt(200000, "A", 1),
	}
	res, err := Estimate(sales, MethodWMean, 90, estNow)
	require.NoError(t, err)
	// Equal weights: plain average.
	assert.Equal(t, 150000.0, res.EstimateJPY)
	assert.Equal(t, MethodWMean, res.Method)
}

func TestEstimateMalformedDateCountsAsOld(t *testing.T) {
	sales := []models.ComparableSale{
		{ID: "bad", SaleDate: "not-a-date", PriceJPY: 100000, ConditionGrade: "A"},
	}
	res, err := Estimate(sales, MethodWMAD, 90, estNow)
	require.NoError(t, err)
	require.Len(t, res.Details, 1)
	// A very old record keeps the floor weight rather than vanishing.
	assert.GreaterOrEqual(t, res.Details[0].Weight, 0.0001)
	// Freshness contribution is fully decayed.
	assert.LessOrEqual(t, res.Confidence, 10)
}

// Full scenario: four recent clustered sales plus one ancient outlier.
func TestEstimateEndToEnd(t *testing.T) {
	sales := []models.ComparableSale{
		saleAt(100000, "A", 10),
		saleAt(105000, "A", 20),
		saleAt(98000, "B", 5),
		saleAt(102000, "A+", 2),
		saleAt(2000000, "C", 300),
	}
	res, err := Estimate(sales, MethodWMAD, 90, estNow)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Used)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.OutliersRemoved)
	assert.GreaterOrEqual(t, res.EstimateJPY, 98000.0)
	assert.LessOrEqual(t, res.EstimateJPY, 105000.0)
	assert.Greater(t, res.Confidence, 0)
	assert.LessOrEqual(t, res.Confidence, 100)
}
