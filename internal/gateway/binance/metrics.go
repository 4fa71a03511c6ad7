package binance

import (
	"context"
	"strings"
)

// FundingRate returns the latest funding rate (0.0001 == 0.01%) and mark
// price. Used for audit diagnostics only.
func (s *Session) FundingRate(ctx context.Context, symbol string) (rate float64, mark float64, err error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := s.wait(ctx); err != nil {
		return 0, 0, err
	}
	res, err := s.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, 0, classify("premium index", err)
	}
	for _, entry := range res {
		if entry == nil {
			continue
		}
		if strings.EqualFold(entry.Symbol, symbol) {
			return parseFloat(entry.LastFundingRate), parseFloat(entry.MarkPrice), nil
		}
	}
	if len(res) > 0 && res[0] != nil {
		return parseFloat(res[0].LastFundingRate), parseFloat(res[0].MarkPrice), nil
	}
	return 0, 0, nil
}
