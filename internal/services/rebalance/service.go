package rebalance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/mkoyama/shisan/internal/common"
	"github.com/mkoyama/shisan/internal/interfaces"
	"github.com/mkoyama/shisan/internal/models"
)

// Compile-time interface check
var _ interfaces.RebalanceService = (*Service)(nil)

// toleranceKey is the settings key holding the allocation tolerance band
// half-width in percentage points.
const toleranceKey = "tolerance_pct"

// Service implements RebalanceService.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	config  *common.Config
}

// NewService creates a new rebalance service. Config supplies the defaults
// applied when no persisted setting exists yet.
func NewService(storage interfaces.StorageManager, logger *common.Logger, config *common.Config) *Service {
	return &Service{storage: storage, logger: logger, config: config}
}

// GetTargets returns the stored target mix sorted by class name. An empty
// result is valid; the planner treats unspecified classes as 0%.
func (s *Service) GetTargets(ctx context.Context) ([]models.TargetAllocation, error) {
	targets, err := s.storage.SettingsStorage().GetTargets(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Class < targets[j].Class })
	return targets, nil
}

// SetTargets validates and replaces the stored target mix.
func (s *Service) SetTargets(ctx context.Context, targets []models.TargetAllocation) error {
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if t.Class == "" {
			return common.NewValidationError("targets", "target row missing class")
		}
		if seen[t.Class] {
			return common.NewValidationError("targets", "duplicate class '%s'", t.Class)
		}
		seen[t.Class] = true
		if math.IsNaN(t.TargetPct) || math.IsInf(t.TargetPct, 0) {
			return common.NewValidationError("targets", "target for class '%s' is not finite", t.Class)
		}
		if t.TargetPct < 0 {
			return common.NewValidationError("targets", "target for class '%s' must be >= 0", t.Class)
		}
	}
	if err := s.storage.SettingsStorage().SaveTargets(ctx, targets); err != nil {
		return err
	}
	s.logger.Info().Int("classes", len(targets)).Msg("Target allocation updated")
	return nil
}

// GetTolerancePct returns the persisted tolerance, falling back to the
// configured default when nothing is stored or the stored value is garbage.
// Store failures propagate.
func (s *Service) GetTolerancePct(ctx context.Context) (float64, error) {
	raw, err := s.storage.SettingsStorage().Get(ctx, toleranceKey)
	if err != nil {
		if common.IsSettingNotFound(err) {
			return s.config.Rebalance.TolerancePct, nil
		}
		return 0, fmt.Errorf("reading tolerance setting: %w", err)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		s.logger.Warn().Str("value", raw).Msg("Ignoring unusable stored tolerance")
		return s.config.Rebalance.TolerancePct, nil
	}
	return v, nil
}

// SetTolerancePct persists the tolerance band half-width.
func (s *Service) SetTolerancePct(ctx context.Context, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
		return common.NewValidationError("tolerance_pct", "must be between 0 and 100")
	}
	return s.storage.SettingsStorage().Set(ctx, toleranceKey, strconv.FormatFloat(v, 'f', -1, 64))
}

// CurrentByClass builds the current allocation snapshot. Each asset is valued
// at its latest committed valuation, or its book value when none exists.
func (s *Service) CurrentByClass(ctx context.Context) (*models.CurrentAllocation, error) {
	assets, err := s.storage.AssetStorage().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	cur := &models.CurrentAllocation{
		ByClass:     make(map[string]float64),
		Pct:         make(map[string]float64),
		AssetValues: make([]models.AssetValueSnapshot, 0, len(assets)),
	}
	for _, a := range assets {
		value := a.BookValueJPY
		v, err := s.storage.ValuationStorage().LatestForAsset(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("loading valuation for asset '%s': %w", a.ID, err)
		}
		if v != nil {
			value = v.ValueJPY
		}
		cur.AssetValues = append(cur.AssetValues, models.AssetValueSnapshot{
			AssetID:       a.ID,
			Name:          a.Name,
			Class:         a.Class,
			LiquidityTier: a.LiquidityTier,
			ValueJPY:      value,
			BookValueJPY:  a.BookValueJPY,
		})
		cur.ByClass[a.Class] += value
		cur.TotalJPY += value
	}
	if cur.TotalJPY > 0 {
		for c, v := range cur.ByClass {
			cur.Pct[c] = v / cur.TotalJPY * 100
		}
	}
	return cur, nil
}

// Plan computes the breach report and trade list for the portfolio as it
// stands. adjustTo and minTradeJPY override the configured defaults when set.
func (s *Service) Plan(ctx context.Context, adjustTo string, minTradeJPY float64) (*models.PlanResult, error) {
	switch adjustTo {
	case "":
		adjustTo = s.config.Rebalance.AdjustTo
	case AdjustToTarget, AdjustToMid:
	default:
		return nil, common.NewValidationError("adjust_to", "must be '%s' or '%s'", AdjustToTarget, AdjustToMid)
	}
	if minTradeJPY < 0 {
		return nil, common.NewValidationError("min_trade_jpy", "must be >= 0")
	}
	if minTradeJPY == 0 {
		minTradeJPY = s.config.Rebalance.MinTradeJPY
	}

	current, err := s.CurrentByClass(ctx)
	if err != nil {
		return nil, err
	}
	targets, err := s.GetTargets(ctx)
	if err != nil {
		return nil, err
	}
	tolerance, err := s.GetTolerancePct(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := ComputePlan(current, targets, tolerance, adjustTo, minTradeJPY)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Int("breaches", len(plan.Breaches)).
		Int("trades", len(plan.Trades)).
		Float64("net_flow_jpy", plan.NetFlowJPY).
		Msg("Rebalance plan computed")
	return plan, nil
}
