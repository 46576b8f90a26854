package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/models"
)

// Service implements RecommendationService. Per request it runs a single
// deterministic pass: resolve criteria → collect market data → filter →
// AI or deterministic allocation → assemble. There is no persistent
// failure state; the worst case is an empty, explained recommendation.
type Service struct {
	marketData interfaces.MarketDataService
	criteria   interfaces.CriteriaService
	filter     *Filter
	ai         *aiBridge
	logger     *common.Logger
	now        func() time.Time
}

// NewService creates a new recommendation service.
// gemini may be nil, in which case the AI path is skipped entirely.
func NewService(marketData interfaces.MarketDataService, criteriaService interfaces.CriteriaService, filter *Filter, gemini interfaces.GeminiClient, aiTimeout time.Duration, logger *common.Logger) *Service {
	return &Service{
		marketData: marketData,
		criteria:   criteriaService,
		filter:     filter,
		ai:         newAIBridge(gemini, aiTimeout, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Recommend runs the full pipeline for one request. The only hard
// failure is missing criteria configuration; every data problem is
// absorbed into the result as an empty, explained recommendation.
func (s *Service) Recommend(ctx context.Context, req *models.RecommendationRequest) (*models.Recommendation, error) {
	criteria, err := s.criteria.Resolve(ctx, req.Strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve criteria: %w", err)
	}

	for _, w := range s.criteria.Warnings(criteria) {
		s.logger.Warn().Str("field", w.Field).Str("severity", w.Severity).Msg(w.Message)
	}

	universe, err := s.filter.Universe(&req.Portfolio)
	if err != nil {
		// The one other hard failure: with no holdings and no target
		// table there is no universe to analyze.
		return nil, fmt.Errorf("failed to build candidate universe: %w", err)
	}

	snapshot := s.marketData.CollectCandidateData(ctx, universe)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	candidates := s.filter.Eligible(criteria, &req.Portfolio, universe, snapshot)
	if len(candidates) == 0 {
		return s.assemble(req.Amount, nil, req.Amount, "deterministic", "",
			fmt.Sprintf("%d candidate(s) were analyzed but none passed the strategy filter (price, yield, ceiling, valuation, and weight checks)", len(universe))), nil
	}

	// AI path first when available; any failure degrades silently to the
	// deterministic engine.
	if lines, remaining, reasoning, aiErr := s.ai.Propose(ctx, candidates, &req.Portfolio, criteria, req.Amount); aiErr == nil {
		return s.assemble(req.Amount, lines, remaining, "ai", reasoning, ""), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	lines, remaining := Allocate(candidates, req.Amount)
	if len(lines) == 0 {
		return s.assemble(req.Amount, nil, req.Amount, "deterministic", "",
			fmt.Sprintf("%d candidate(s) passed the filter but no single share fits the %.2f budget", len(candidates), req.Amount)), nil
	}

	return s.assemble(req.Amount, lines, remaining, "deterministic", "", ""), nil
}

// assemble builds the terminal Recommendation. When no allocations exist
// the literal no-action message is attached alongside an explanation of
// why the request produced nothing.
func (s *Service) assemble(amount float64, lines []models.AllocationLine, remaining float64, source, aiReasoning, emptyExplanation string) *models.Recommendation {
	rec := &models.Recommendation{
		ID:               uuid.New().String(),
		TotalAmount:      amount,
		Allocations:      lines,
		RemainingBalance: remaining,
		Source:           source,
		GeneratedAt:      s.now(),
	}

	if len(lines) == 0 {
		rec.Allocations = []models.AllocationLine{}
		rec.RemainingBalance = amount
		rec.Message = models.NoActionMessage
		rec.Reasoning = emptyExplanation
		s.logger.Info().Str("reason", emptyExplanation).Msg("No-action recommendation")
		return rec
	}

	rec.Reasoning = buildReasoning(lines, aiReasoning)

	s.logger.Info().
		Str("source", source).
		Int("lines", len(lines)).
		Float64("allocated", rec.AllocatedTotal()).
		Float64("remaining", rec.RemainingBalance).
		Msg("Recommendation assembled")

	return rec
}

// buildReasoning joins per-line reasons, preceded by the AI's summary
// paragraph when one exists.
func buildReasoning(lines []models.AllocationLine, aiReasoning string) string {
	var parts []string
	if aiReasoning != "" {
		parts = append(parts, strings.TrimSpace(aiReasoning))
	}
	for _, line := range lines {
		if line.Reason != "" {
			parts = append(parts, line.Reason)
		}
	}
	return strings.Join(parts, " | ")
}

// Ensure Service implements RecommendationService
var _ interfaces.RecommendationService = (*Service)(nil)
