package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/interfaces"
	"github.com/bobmcallan/skew/internal/models"
)

// errAIUnavailable signals that the AI path produced nothing usable and
// the deterministic engine must run instead. It never reaches the caller.
var errAIUnavailable = errors.New("ai allocation unavailable")

// defaultAITimeout bounds the language model call so a slow provider
// degrades to the deterministic path instead of stalling the request.
const defaultAITimeout = 45 * time.Second

// aiBridge requests a structured allocation from the language model and
// validates its numeric output before anyone trusts it.
type aiBridge struct {
	client  interfaces.GeminiClient
	timeout time.Duration
	logger  *common.Logger
}

func newAIBridge(client interfaces.GeminiClient, timeout time.Duration, logger *common.Logger) *aiBridge {
	if timeout <= 0 {
		timeout = defaultAITimeout
	}
	return &aiBridge{client: client, timeout: timeout, logger: logger}
}

// aiProposal is the JSON document the model is instructed to return.
type aiProposal struct {
	Fallback    bool     `json:"fallback"`
	Error       string   `json:"error,omitempty"`
	Allocations []aiLine `json:"allocations"`
	Reasoning   string   `json:"reasoning,omitempty"`
}

type aiLine struct {
	Ticker    string  `json:"ticker"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason,omitempty"`
}

// Propose asks the model for an allocation and returns repaired lines.
// Any failure (transport, timeout, malformed JSON, or an explicit
// fallback/error flag) returns errAIUnavailable so the caller degrades
// silently to the deterministic engine.
func (b *aiBridge) Propose(ctx context.Context, candidates []models.Candidate, portfolio *models.PortfolioSnapshot, criteria models.StrategyCriteria, amount float64) ([]models.AllocationLine, float64, string, error) {
	if b.client == nil {
		return nil, 0, "", errAIUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	prompt := buildAllocationPrompt(candidates, portfolio, criteria, amount)

	raw, err := b.client.GenerateContent(ctx, prompt)
	if err != nil {
		b.logger.Warn().Err(err).Msg("AI allocation call failed; using deterministic engine")
		return nil, 0, "", errAIUnavailable
	}

	proposal, err := parseProposal(raw)
	if err != nil {
		b.logger.Warn().Err(err).Msg("AI allocation response unparseable; using deterministic engine")
		return nil, 0, "", errAIUnavailable
	}

	if proposal.Fallback || proposal.Error != "" {
		b.logger.Info().Str("error", proposal.Error).Msg("AI declined to allocate; using deterministic engine")
		return nil, 0, "", errAIUnavailable
	}

	lines := sanitizeLines(proposal.Allocations, candidates)
	if len(lines) == 0 {
		b.logger.Warn().Msg("AI allocation contained no usable lines; using deterministic engine")
		return nil, 0, "", errAIUnavailable
	}

	repaired, remaining := RepairAllocation(lines, amount)
	if len(repaired) == 0 {
		b.logger.Warn().Msg("AI allocation did not survive numeric repair; using deterministic engine")
		return nil, 0, "", errAIUnavailable
	}

	return repaired, remaining, proposal.Reasoning, nil
}

// parseProposal decodes the model output, tolerating markdown code fences
// and leading prose around the JSON document.
func parseProposal(raw string) (*aiProposal, error) {
	text := strings.TrimSpace(raw)

	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var proposal aiProposal
	if err := json.Unmarshal([]byte(text), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse AI proposal: %w", err)
	}
	return &proposal, nil
}

// sanitizeLines keeps only lines referencing eligible candidates with
// positive quantities, substituting the known market price when the model
// returned a missing or nonsensical unit price.
func sanitizeLines(lines []aiLine, candidates []models.Candidate) []models.AllocationLine {
	prices := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		prices[c.Ticker] = c.CurrentPrice
	}

	var out []models.AllocationLine
	for _, line := range lines {
		marketPrice, eligible := prices[line.Ticker]
		if !eligible || line.Quantity <= 0 {
			continue
		}
		unitPrice := line.UnitPrice
		if unitPrice <= 0 {
			unitPrice = marketPrice
		}
		if unitPrice <= 0 {
			continue
		}
		out = append(out, models.AllocationLine{
			Ticker:    line.Ticker,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
			Amount:    line.Amount, // recomputed by RepairAllocation
			Reason:    line.Reason,
		})
	}
	return out
}

// RepairAllocation numerically corrects a proposed allocation so it can
// be trusted. Pure function, independent of the network call:
//
//  1. Each line's amount is recomputed as quantity × unit_price; the
//     model's stated amount is never trusted.
//  2. If the recomputed total exceeds the budget, every line is scaled
//     down by budget/total, quantities are re-floored from the scaled
//     amounts, and lines that round to zero shares are dropped.
//  3. The remaining balance is recomputed from the corrected lines.
func RepairAllocation(lines []models.AllocationLine, budget float64) ([]models.AllocationLine, float64) {
	repaired := make([]models.AllocationLine, 0, len(lines))

	var total float64
	for _, line := range lines {
		if line.Quantity <= 0 || line.UnitPrice <= 0 {
			continue
		}
		line.Amount = float64(line.Quantity) * line.UnitPrice
		repaired = append(repaired, line)
		total += line.Amount
	}

	if total > budget {
		scale := budget / total
		scaled := repaired[:0]
		for _, line := range repaired {
			quantity := int64(math.Floor(line.Amount * scale / line.UnitPrice))
			if quantity <= 0 {
				continue
			}
			line.Quantity = quantity
			line.Amount = float64(quantity) * line.UnitPrice
			scaled = append(scaled, line)
		}
		repaired = scaled
	}

	var allocated float64
	for _, line := range repaired {
		allocated += line.Amount
	}

	return repaired, budget - allocated
}

// buildAllocationPrompt serializes the request into a structured prompt.
func buildAllocationPrompt(candidates []models.Candidate, portfolio *models.PortfolioSnapshot, criteria models.StrategyCriteria, amount float64) string {
	var sb strings.Builder

	sb.WriteString("You are an investment allocation assistant. Distribute the cash budget below across the eligible candidates so the portfolio converges toward its target weights. Respond with JSON only, no prose.\n\n")

	fmt.Fprintf(&sb, "Cash budget: %.2f\n", amount)
	fmt.Fprintf(&sb, "Portfolio total value: %.2f\n\n", portfolio.EffectiveTotalValue())

	sb.WriteString("Strategy criteria:\n")
	fmt.Fprintf(&sb, "- Minimum dividend yield: %.2f%%\n", criteria.DividendYieldMin*100)
	if criteria.PERatioMax > 0 {
		fmt.Fprintf(&sb, "- Maximum P/E ratio: %.1f\n", criteria.PERatioMax)
	}
	if criteria.PriceToBookMax > 0 {
		fmt.Fprintf(&sb, "- Maximum price-to-book: %.1f\n", criteria.PriceToBookMax)
	}
	fmt.Fprintf(&sb, "- Maximum concentration per asset: %.1f%%\n\n", criteria.MaxConcentrationPct)

	sb.WriteString("Current holdings:\n")
	if len(portfolio.Holdings) == 0 {
		sb.WriteString("- none\n")
	}
	for _, h := range portfolio.Holdings {
		fmt.Fprintf(&sb, "- %s: %.0f units at avg %.2f\n", h.Ticker, h.Quantity, h.AveragePrice)
	}

	sb.WriteString("\nEligible candidates (all already passed the strategy filter):\n")
	for _, c := range candidates {
		fmt.Fprintf(&sb, "- %s: price %.2f, ceiling %.2f, current weight %.1f%%, target weight %.1f%%, gap %.1f%%, yield %.1f%%",
			c.Ticker, c.CurrentPrice, c.PriceCeiling, c.CurrentAllocationPct, c.TargetAllocationPct, c.AllocationGap, c.DividendYield*100)
		if c.RegularityScore != nil {
			fmt.Fprintf(&sb, ", dividend regularity %.1f", *c.RegularityScore)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(`
Rules:
- Buy whole shares only; quantity must be a non-negative integer.
- The sum of all amounts must not exceed the cash budget.
- Only use tickers from the eligible candidate list.
- Favor candidates with larger allocation gaps.
- If no sensible allocation exists, set "fallback" to true and leave allocations empty.

Respond with exactly this JSON shape:
{
  "fallback": false,
  "allocations": [
    {"ticker": "XYZ", "quantity": 10, "unit_price": 25.00, "amount": 250.00, "reason": "short explanation"}
  ],
  "reasoning": "one-paragraph summary"
}
`)

	return sb.String()
}
