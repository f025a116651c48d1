package comps

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
)

// Compile-time interface check
var _ interfaces.CompsService = (*Service)(nil)

// listLimit caps how many sales the estimator reads per asset.
const listLimit = 500

var reSaleDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Service implements CompsService.
type Service struct {
	storage interfaces.StorageManager
	cache   interfaces.PriceCache
	logger  *common.Logger
	now     func() time.Time // injectable clock for testing
}

// NewService creates a new comparable-sales service.
func NewService(storage interfaces.StorageManager, cache interfaces.PriceCache, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns the stored sales for an asset, newest first.
func (s *Service) List(ctx context.Context, assetID string, limit int) ([]models.ComparableSale, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.storage.CompsStorage().ListByAsset(ctx, assetID, limit)
}

// Add validates and stores a new sale. When the sale is priced in a foreign
// currency and no explicit JPY price is supplied, the cached <ccy>JPY rate
// converts it; a missing rate is a hard failure.
func (s *Service) Add(ctx context.Context, assetID string, sale *models.ComparableSale) (*models.ComparableSale, error) {
	if assetID == "" {
		return nil, common.NewValidationError("asset_id", "must not be empty")
	}
	if !reSaleDate.MatchString(sale.SaleDate) {
		return nil, common.NewValidationError("sale_date", "must be YYYY-MM-DD, got %q", sale.SaleDate)
	}
	if !(sale.Price > 0) || math.IsInf(sale.Price, 0) {
		return nil, common.NewValidationError("price", "must be > 0")
	}

	currency := strings.ToUpper(strings.TrimSpace(sale.Currency))
	if currency == "" {
		currency = "JPY"
	}

	priceJPY := sale.PriceJPY
	if currency == "JPY" {
		priceJPY = sale.Price
	} else if !(priceJPY > 0) {
		fx, err := s.cache.FxRateJPY(ctx, currency)
		if err != nil {
			return nil, fmt.Errorf("converting %s sale price: %w", currency, err)
		}
		priceJPY = sale.Price * fx
	}

	now := s.now()
	stored := *sale
	stored.ID = uuid.NewString()
	stored.AssetID = assetID
	stored.Currency = currency
	stored.PriceJPY = priceJPY
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := s.storage.CompsStorage().Save(ctx, &stored); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("asset_id", assetID).
		Str("sale_id", stored.ID).
		Float64("price_jpy", priceJPY).
		Msg("Comparable sale added")
	return &stored, nil
}

// Update applies non-zero fields of patch to an existing sale. An explicit
// PriceJPY in the patch is stored as-is; otherwise PriceJPY is re-derived
// under the same rules as Add whenever the price or currency changed.
func (s *Service) Update(ctx context.Context, id string, patch *models.ComparableSale) (*models.ComparableSale, error) {
	existing, err := s.storage.CompsStorage().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if patch.SaleDate != "" {
		if !reSaleDate.MatchString(patch.SaleDate) {
			return nil, common.NewValidationError("sale_date", "must be YYYY-MM-DD, got %q", patch.SaleDate)
		}
		merged.SaleDate = patch.SaleDate
	}
	if patch.Price != 0 {
		merged.Price = patch.Price
	}
	if patch.Currency != "" {
		merged.Currency = strings.ToUpper(strings.TrimSpace(patch.Currency))
	}
	if patch.PriceJPY != 0 {
		merged.PriceJPY = patch.PriceJPY
	}
	if patch.Source != "" {
		merged.Source = patch.Source
	}
	if patch.SourceURL != "" {
		merged.SourceURL = patch.SourceURL
	}
	if patch.Marketplace != "" {
		merged.Marketplace = patch.Marketplace
	}
	if patch.ConditionGrade != "" {
		merged.ConditionGrade = patch.ConditionGrade
	}
	if patch.Completeness != "" {
		merged.Completeness = patch.Completeness
	}
	if patch.Notes != "" {
		merged.Notes = patch.Notes
	}

	if !(merged.Price > 0) || math.IsInf(merged.Price, 0) {
		return nil, common.NewValidationError("price", "must be > 0")
	}

	switch {
	case merged.Currency == "JPY":
		merged.PriceJPY = merged.Price
	case patch.PriceJPY > 0:
		// caller supplied the converted value, nothing to derive
	case !(merged.PriceJPY > 0) || patch.Price != 0 || patch.Currency != "":
		fx, err := s.cache.FxRateJPY(ctx, merged.Currency)
		if err != nil {
			return nil, fmt.Errorf("converting %s sale price: %w", merged.Currency, err)
		}
		merged.PriceJPY = merged.Price * fx
	}

	merged.UpdatedAt = s.now()
	if err := s.storage.CompsStorage().Save(ctx, &merged); err != nil {
		return nil, err
	}

	s.logger.Info().Str("sale_id", id).Msg("Comparable sale updated")
	return &merged, nil
}

// Delete removes a sale. Sales are never auto-deleted; this is the only path.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.CompsStorage().Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("sale_id", id).Msg("Comparable sale deleted")
	return nil
}

// EstimateForAsset runs the estimator over the asset's stored sales.
func (s *Service) EstimateForAsset(ctx context.Context, assetID, method string, halfLifeDays int) (*models.EstimateResult, error) {
	sales, err := s.storage.CompsStorage().ListByAsset(ctx, assetID, listLimit)
	if err != nil {
		return nil, err
	}
	return Estimate(sales, method, halfLifeDays, s.now())
}

// provenance is the FxContext payload recorded with a committed valuation.
type provenance struct {
	Source     string `json:"source"`
	Confidence int    `json:"confidence"`
}

// CommitValuation persists an estimate as a new valuation row. It performs no
// re-validation against the underlying sales; callers must re-estimate
// immediately before committing so the committed number reflects latest data.
func (s *Service) CommitValuation(ctx context.Context, assetID string, estimate *models.EstimateResult) error {
	if estimate == nil || !(estimate.EstimateJPY > 0) || math.IsInf(estimate.EstimateJPY, 0) {
		return common.NewValidationError("estimate", "estimate_jpy must be > 0")
	}

	fxContext, err := json.Marshal(provenance{Source: "comps", Confidence: estimate.Confidence})
	if err != nil {
		return err
	}

	now := s.now()
	v := &models.Valuation{
		ID:        uuid.NewString(),
		AssetID:   assetID,
		AsOf:      now.UTC().Format("2006-01-02"),
		ValueJPY:  estimate.EstimateJPY,
		FxContext: string(fxContext),
		CreatedAt: now,
	}
	if err := s.storage.ValuationStorage().Save(ctx, v); err != nil {
		return err
	}

	s.logger.Info().
		Str("asset_id", assetID).
		Float64("value_jpy", v.ValueJPY).
		Int("confidence", estimate.Confidence).
		Msg("Comps estimate committed as valuation")
	return nil
}
