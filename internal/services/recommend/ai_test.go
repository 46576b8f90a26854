package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/bobmcallan/skew/internal/common"
	"github.com/bobmcallan/skew/internal/models"
)

// stubGemini returns a canned response or error.
type stubGemini struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGemini) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestRepairAllocation_RecomputesAmounts(t *testing.T) {
	lines := []models.AllocationLine{
		{Ticker: "AAA", Quantity: 2, UnitPrice: 10, Amount: 1}, // stated amount is wrong
	}

	repaired, remaining := RepairAllocation(lines, 100)
	if len(repaired) != 1 {
		t.Fatalf("expected 1 line, got %d", len(repaired))
	}
	if repaired[0].Amount != 20 {
		t.Errorf("expected recomputed amount 20, got %.2f", repaired[0].Amount)
	}
	if remaining != 80 {
		t.Errorf("expected remaining 80, got %.2f", remaining)
	}
}

func TestRepairAllocation_ScalesDownOverflow(t *testing.T) {
	lines := []models.AllocationLine{
		{Ticker: "AAA", Quantity: 20, UnitPrice: 10}, // 200 against a 100 budget
	}

	repaired, remaining := RepairAllocation(lines, 100)
	if len(repaired) != 1 {
		t.Fatalf("expected 1 line, got %d", len(repaired))
	}
	if repaired[0].Quantity != 10 {
		t.Errorf("expected scaled quantity 10, got %d", repaired[0].Quantity)
	}
	if repaired[0].Amount != 100 {
		t.Errorf("expected amount 100, got %.2f", repaired[0].Amount)
	}
	if remaining != 0 {
		t.Errorf("expected remaining 0, got %.2f", remaining)
	}
}

func TestRepairAllocation_DropsLinesScaledToZero(t *testing.T) {
	lines := []models.AllocationLine{
		{Ticker: "BIG", Quantity: 10, UnitPrice: 50},  // 500
		{Ticker: "TINY", Quantity: 1, UnitPrice: 100}, // 100, scales below one share
	}

	repaired, remaining := RepairAllocation(lines, 300)
	if len(repaired) != 1 {
		t.Fatalf("expected 1 surviving line, got %d", len(repaired))
	}
	if repaired[0].Ticker != "BIG" {
		t.Errorf("expected BIG to survive, got %s", repaired[0].Ticker)
	}
	// 500*0.5 = 250 → 5 shares
	if repaired[0].Quantity != 5 || repaired[0].Amount != 250 {
		t.Errorf("expected 5 shares for 250, got %d for %.2f", repaired[0].Quantity, repaired[0].Amount)
	}
	if remaining != 50 {
		t.Errorf("expected remaining 50, got %.2f", remaining)
	}
}

func TestRepairAllocation_DropsInvalidLines(t *testing.T) {
	lines := []models.AllocationLine{
		{Ticker: "NEG", Quantity: -3, UnitPrice: 10},
		{Ticker: "FREE", Quantity: 5, UnitPrice: 0},
		{Ticker: "OK", Quantity: 2, UnitPrice: 10},
	}

	repaired, remaining := RepairAllocation(lines, 100)
	if len(repaired) != 1 || repaired[0].Ticker != "OK" {
		t.Fatalf("expected only OK to survive, got %+v", repaired)
	}
	if remaining != 80 {
		t.Errorf("expected remaining 80, got %.2f", remaining)
	}
}

func TestParseProposal_PlainJSON(t *testing.T) {
	proposal, err := parseProposal(`{"fallback":false,"allocations":[{"ticker":"AAA","quantity":2,"unit_price":10,"amount":20}],"reasoning":"ok"}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(proposal.Allocations) != 1 || proposal.Allocations[0].Ticker != "AAA" {
		t.Errorf("unexpected proposal: %+v", proposal)
	}
}

func TestParseProposal_CodeFences(t *testing.T) {
	raw := "```json\n{\"fallback\":false,\"allocations\":[],\"reasoning\":\"nothing fits\"}\n```"
	proposal, err := parseProposal(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if proposal.Reasoning != "nothing fits" {
		t.Errorf("unexpected reasoning: %q", proposal.Reasoning)
	}
}

func TestParseProposal_LeadingProse(t *testing.T) {
	raw := `Here is the allocation you asked for: {"fallback":true,"allocations":[]}`
	proposal, err := parseProposal(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !proposal.Fallback {
		t.Error("expected fallback flag to survive extraction")
	}
}

func TestParseProposal_Invalid(t *testing.T) {
	if _, err := parseProposal("the market looks great today"); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}

func TestSanitizeLines_DropsUnknownTickers(t *testing.T) {
	candidates := []models.Candidate{{Ticker: "AAA", CurrentPrice: 10}}
	lines := sanitizeLines([]aiLine{
		{Ticker: "AAA", Quantity: 2, UnitPrice: 10},
		{Ticker: "HALLUCINATED", Quantity: 5, UnitPrice: 1},
	}, candidates)

	if len(lines) != 1 || lines[0].Ticker != "AAA" {
		t.Fatalf("expected only AAA to survive, got %+v", lines)
	}
}

func TestSanitizeLines_SubstitutesMarketPrice(t *testing.T) {
	candidates := []models.Candidate{{Ticker: "AAA", CurrentPrice: 12.5}}
	lines := sanitizeLines([]aiLine{
		{Ticker: "AAA", Quantity: 2, UnitPrice: -1},
	}, candidates)

	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].UnitPrice != 12.5 {
		t.Errorf("expected market price 12.5 substituted, got %.2f", lines[0].UnitPrice)
	}
}

func TestPropose_Success(t *testing.T) {
	gemini := &stubGemini{
		response: `{"fallback":false,"allocations":[{"ticker":"AAA","quantity":4,"unit_price":10,"amount":40,"reason":"wide gap"}],"reasoning":"concentrate on AAA"}`,
	}
	bridge := newAIBridge(gemini, 0, common.NewSilentLogger())

	candidates := []models.Candidate{{Ticker: "AAA", CurrentPrice: 10, AllocationGap: 5}}
	lines, remaining, reasoning, err := bridge.Propose(context.Background(), candidates, &models.PortfolioSnapshot{}, testCriteria(), 100)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 4 || lines[0].Amount != 40 {
		t.Errorf("unexpected lines: %+v", lines)
	}
	if remaining != 60 {
		t.Errorf("expected remaining 60, got %.2f", remaining)
	}
	if reasoning != "concentrate on AAA" {
		t.Errorf("unexpected reasoning: %q", reasoning)
	}
	if len(gemini.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(gemini.prompts))
	}
}

func TestPropose_TransportErrorDegrades(t *testing.T) {
	bridge := newAIBridge(&stubGemini{err: errors.New("quota exceeded")}, 0, common.NewSilentLogger())

	_, _, _, err := bridge.Propose(context.Background(), []models.Candidate{{Ticker: "AAA", CurrentPrice: 10}}, &models.PortfolioSnapshot{}, testCriteria(), 100)
	if !errors.Is(err, errAIUnavailable) {
		t.Fatalf("expected errAIUnavailable, got %v", err)
	}
}

func TestPropose_FallbackFlagDegrades(t *testing.T) {
	bridge := newAIBridge(&stubGemini{response: `{"fallback":true,"allocations":[]}`}, 0, common.NewSilentLogger())

	_, _, _, err := bridge.Propose(context.Background(), []models.Candidate{{Ticker: "AAA", CurrentPrice: 10}}, &models.PortfolioSnapshot{}, testCriteria(), 100)
	if !errors.Is(err, errAIUnavailable) {
		t.Fatalf("expected errAIUnavailable, got %v", err)
	}
}

func TestPropose_NilClientDegrades(t *testing.T) {
	bridge := newAIBridge(nil, 0, common.NewSilentLogger())

	_, _, _, err := bridge.Propose(context.Background(), nil, &models.PortfolioSnapshot{}, testCriteria(), 100)
	if !errors.Is(err, errAIUnavailable) {
		t.Fatalf("expected errAIUnavailable, got %v", err)
	}
}
