// Package criteria resolves effective strategy criteria for a
// recommendation request by merging declared values over system defaults.
package criteria

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/models"
)

// ErrNoCriteria is returned when neither a strategy nor system defaults
// exist. This is the only hard failure in the pipeline; without criteria
// no meaningful computation is possible.
var ErrNoCriteria = errors.New("no strategy criteria and no system defaults configured")

// Service implements CriteriaService
type Service struct {
	defaults *models.StrategyCriteria
	logger   *common.Logger
}

// NewService creates a new criteria service from the configured defaults.
// defaults may be nil when the deployment carries no default criteria.
func NewService(defaults *models.StrategyCriteria, logger *common.Logger) *Service {
	return &Service{
		defaults: defaults,
		logger:   logger,
	}
}

// DefaultsFromConfig builds the system default criteria from configuration.
func DefaultsFromConfig(cfg common.CriteriaConfig) models.StrategyCriteria {
	return models.StrategyCriteria{
		DividendYieldMin:       cfg.DividendYieldMin,
		DividendYieldMax:       cfg.DividendYieldMax,
		PERatioMax:             cfg.PERatioMax,
		PriceToBookMax:         cfg.PriceToBookMax,
		AllowedSectors:         cfg.AllowedSectors,
		ExcludedSectors:        cfg.ExcludedSectors,
		MaxConcentrationPct:    cfg.MaxConcentrationPct,
		MinDiversification:     cfg.MinDiversification,
		PriceCeilingMultiplier: cfg.PriceCeilingMultiplier,
	}
}

// Resolve merges the strategy's declared criteria over the defaults.
// Declared values win; everything else passes through unchanged. A nil
// strategy resolves to the defaults in full.
func (s *Service) Resolve(_ context.Context, strategy *models.Strategy) (models.StrategyCriteria, error) {
	if s.defaults == nil {
		if strategy == nil {
			return models.StrategyCriteria{}, ErrNoCriteria
		}
		// No defaults: the declared subset is all we have
		return strategy.Criteria.MergeOver(models.StrategyCriteria{}), nil
	}

	if strategy == nil {
		return *s.defaults, nil
	}

	resolved := strategy.Criteria.MergeOver(*s.defaults)
	s.logger.Debug().Str("strategy", strategy.Name).Msg("Strategy criteria resolved")
	return resolved, nil
}

// Warnings checks resolved criteria for unrealistic or contradictory
// values. Advisory only; a warned criteria object is still usable.
func (s *Service) Warnings(criteria models.StrategyCriteria) []models.CriteriaWarning {
	var warnings []models.CriteriaWarning

	if criteria.DividendYieldMax > 0 && criteria.DividendYieldMin > criteria.DividendYieldMax {
		warnings = append(warnings, models.CriteriaWarning{
			Severity: "high",
			Field:    "dividend_yield_min, dividend_yield_max",
			Message: fmt.Sprintf("Minimum dividend yield (%.2f%%) exceeds the maximum (%.2f%%); no ticker can satisfy both.",
				criteria.DividendYieldMin*100, criteria.DividendYieldMax*100),
		})
	}

	if criteria.DividendYieldMin > 0.10 {
		warnings = append(warnings, models.CriteriaWarning{
			Severity: "medium",
			Field:    "dividend_yield_min",
			Message: fmt.Sprintf("Minimum dividend yield of %.1f%% is well above market averages. "+
				"Yields this high often indicate value traps or unsustainable payouts.",
				criteria.DividendYieldMin*100),
		})
	}

	if criteria.PriceCeilingMultiplier <= 0 {
		warnings = append(warnings, models.CriteriaWarning{
			Severity: "high",
			Field:    "price_ceiling_multiplier",
			Message:  "Price ceiling multiplier must be positive; no price ceiling can be computed.",
		})
	}

	if criteria.MaxConcentrationPct > 100 {
		warnings = append(warnings, models.CriteriaWarning{
			Severity: "high",
			Field:    "max_concentration_per_asset",
			Message:  fmt.Sprintf("Maximum concentration of %.1f%% exceeds 100%%. This is not possible without leverage.", criteria.MaxConcentrationPct),
		})
	} else if criteria.MaxConcentrationPct > 30 {
		warnings = append(warnings, models.CriteriaWarning{
			Severity: "medium",
			Field:    "max_concentration_per_asset",
			Message: fmt.Sprintf("Maximum concentration of %.1f%% per asset creates significant concentration risk.",
				criteria.MaxConcentrationPct),
		})
	}

	for _, allowed := range criteria.AllowedSectors {
		for _, excluded := range criteria.ExcludedSectors {
			if strings.EqualFold(allowed, excluded) {
				warnings = append(warnings, models.CriteriaWarning{
					Severity: "high",
					Field:    "allowed_sectors, excluded_sectors",
					Message:  fmt.Sprintf("Sector '%s' appears in both allowed and excluded lists. Remove it from one list to resolve the contradiction.", allowed),
				})
			}
		}
	}

	return warnings
}

// Ensure Service implements CriteriaService
var _ interfaces.CriteriaService = (*Service)(nil)
