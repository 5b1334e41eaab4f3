package ta

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
)

func biasSeries(closes []float64) *model.Series {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Timestamp: base.Add(time.Duration(i) * 4 * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
		}
	}
	return model.NewSeries("BTC-USDT", "4h", candles)
}

func TestBiasBullishOnRisingSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	bc := NewBiasCalculator(10, 30, zap.NewNop())
	if bias := bc.Bias(biasSeries(closes)); bias != model.BiasBullish {
		t.Fatalf("expected BULL on rising series, got %s", bias)
	}
}

func TestBiasBearishOnFallingSeries(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}

	bc := NewBiasCalculator(10, 30, zap.NewNop())
	if bias := bc.Bias(biasSeries(closes)); bias != model.BiasBearish {
		t.Fatalf("expected BEAR on falling series, got %s", bias)
	}
}

func TestBiasNeutralOnShortHistory(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	bc := NewBiasCalculator(10, 30, zap.NewNop())
	if bias := bc.Bias(biasSeries(closes)); bias != model.BiasNeutral {
		t.Fatalf("expected NEUTRAL on short history, got %s", bias)
	}
}

func TestBiasNeutralWhenPriceBetweenEMAs(t *testing.T) {
	// 长期上涨后急跌：收盘跌破快线但仍高于慢线
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	closes[59] = closes[49]

	bc := NewBiasCalculator(5, 40, zap.NewNop())
	if bias := bc.Bias(biasSeries(closes)); bias != model.BiasNeutral {
		t.Fatalf("expected NEUTRAL between EMAs, got %s", bias)
	}
}
