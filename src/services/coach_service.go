package services

import (
	"context"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/username/tradevault/src/storage"
	"google.golang.org/genai"
)

// TextGenerator is the opaque text-generation collaborator behind the
// coaching feature.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator implements TextGenerator on top of the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(client *genai.Client, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from model %s", g.model)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// CoachService renders a day's metrics into a prompt and asks the text
// generator for short coaching copy.
type CoachService struct {
	gen     TextGenerator
	metrics storage.MetricsStore
}

func NewCoachService(gen TextGenerator, metrics storage.MetricsStore) *CoachService {
	return &CoachService{gen: gen, metrics: metrics}
}

// DailyCoaching produces coaching text for one trading day. A day with no
// metrics yields empty text and no generator call.
func (s *CoachService) DailyCoaching(ctx context.Context, userID, accountID int64, date string) (string, error) {
	metric, err := s.metrics.FindByDay(userID, accountID, date)
	if err != nil {
		return "", fmt.Errorf("%w: reading metrics: %v", ErrStorageUnavailable, err)
	}
	if metric == nil || metric.TradeCount == 0 {
		return "", nil
	}

	prompt := fmt.Sprintf(
		"You are a trading coach reviewing one day of a retail trader's journal.\n"+
			"Date: %s\nTrades: %d\nWins: %d\nLosses: %d\nGross P&L: %s\nNet P&L (after fees): %s\n\n"+
			"Write two short paragraphs: one observation about the day's results and one "+
			"concrete, non-generic suggestion for tomorrow. Do not give financial advice "+
			"about specific instruments.",
		metric.Date, metric.TradeCount, metric.WinCount, metric.LossCount,
		formatUSD(metric.GrossPnL), formatUSD(metric.NetPnL))

	return s.gen.Generate(ctx, prompt)
}

func formatUSD(d decimal.Decimal) string {
	cents := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}
