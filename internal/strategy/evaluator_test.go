package strategy

import (
	"testing"

	"smc-sweep-trader/internal/model"
)

// flatWindow 构造 lookback 根低点恰好为 lowLiq、高点恰好为 highLiq 的窗口。
func flatWindow(lookback int, lowLiq, highLiq float64) []model.Candle {
	candles := make([]model.Candle, lookback)
	for i := range candles {
		candles[i] = model.Candle{
			Open:  lowLiq + 0.2,
			High:  highLiq,
			Low:   lowLiq,
			Close: lowLiq + 0.3,
		}
	}
	return candles
}

func TestEvaluateBuySweepAndReclaim(t *testing.T) {
	lookback := 5
	// 前低流动性 100，被测 K 线下破到 99 后收回 100.5，强阳线
	candles := append(flatWindow(lookback+1, 100, 103),
		model.Candle{Open: 100, High: 100.5, Low: 99, Close: 100.5})
	series := seriesFrom(t, candles)

	ev := NewEvaluator(lookback, 0.1)
	sig := ev.Evaluate(series, model.BiasNeutral)

	if sig.Action != model.ActionBuy {
		t.Fatalf("expected BUY signal, got %s", sig.Action)
	}
	if sig.Price != 100.5 {
		t.Errorf("expected entry 100.5, got %f", sig.Price)
	}
	// 止损距离 = max(0.1, 1.5*0.5) = 0.75, 止损 = 99 - 0.75 = 98.25
	if sig.StopLossPrice != 98.25 {
		t.Errorf("expected stop 98.25, got %f", sig.StopLossPrice)
	}
	if sig.TakeProfitPrice != 0 {
		t.Errorf("evaluator must not fill take profit, got %f", sig.TakeProfitPrice)
	}
	if !sig.SourceTimestamp.Equal(series.Last().Timestamp) {
		t.Errorf("signal must carry the candle's own timestamp")
	}
}

func TestEvaluateSellSweepAndReclaim(t *testing.T) {
	lookback := 5
	// 前高流动性 103，被测 K 线上破到 104 后收回 102.5，强阴线
	candles := append(flatWindow(lookback+1, 100, 103),
		model.Candle{Open: 103, High: 104, Low: 102.5, Close: 102.5})
	series := seriesFrom(t, candles)

	ev := NewEvaluator(lookback, 0.1)
	sig := ev.Evaluate(series, model.BiasNeutral)

	if sig.Action != model.ActionSell {
		t.Fatalf("expected SELL signal, got %s", sig.Action)
	}
	// 止损距离 = max(0.1, 1.5*0.5) = 0.75, 止损 = 104 + 0.75 = 104.75
	if sig.StopLossPrice != 104.75 {
		t.Errorf("expected stop 104.75, got %f", sig.StopLossPrice)
	}
}

func TestEvaluateMinimumStopDistance(t *testing.T) {
	lookback := 5
	candles := append(flatWindow(lookback+1, 100, 103),
		model.Candle{Open: 100, High: 100.5, Low: 99, Close: 100.5})
	series := seriesFrom(t, candles)

	// 最小止损距离大于 0.5*range 时必须生效
	ev := NewEvaluator(lookback, 2.0)
	sig := ev.Evaluate(series, model.BiasNeutral)

	if sig.Action != model.ActionBuy {
		t.Fatalf("expected BUY signal, got %s", sig.Action)
	}
	if sig.StopLossPrice != 97 {
		t.Errorf("expected stop 99 - 2.0 = 97, got %f", sig.StopLossPrice)
	}
}

func TestEvaluateWeakCloseRejected(t *testing.T) {
	lookback := 5
	// 收盘在区间中部：strength = (100.6-99)/3 ≈ 0.53 < 0.7
	candles := append(flatWindow(lookback+1, 100, 103),
		model.Candle{Open: 100, High: 102, Low: 99, Close: 100.6})
	series := seriesFrom(t, candles)

	ev := NewEvaluator(lookback, 0.1)
	if sig := ev.Evaluate(series, model.BiasNeutral); sig.Action != model.ActionNone {
		t.Fatalf("weak close must not signal, got %s", sig.Action)
	}
}

func TestEvaluateBiasGating(t *testing.T) {
	lookback := 5
	buyCandle := model.Candle{Open: 100, High: 100.5, Low: 99, Close: 100.5}
	sellCandle := model.Candle{Open: 103, High: 104, Low: 102.5, Close: 102.5}

	ev := NewEvaluator(lookback, 0.1)

	buySeries := seriesFrom(t, append(flatWindow(lookback+1, 100, 103), buyCandle))
	if sig := ev.Evaluate(buySeries, model.BiasBearish); sig.Action != model.ActionNone {
		t.Errorf("bearish bias must block BUY, got %s", sig.Action)
	}
	if sig := ev.Evaluate(seriesFrom(t, append(flatWindow(lookback+1, 100, 103), buyCandle)), model.BiasBullish); sig.Action != model.ActionBuy {
		t.Errorf("bullish bias must permit BUY, got %s", sig.Action)
	}

	sellSeries := seriesFrom(t, append(flatWindow(lookback+1, 100, 103), sellCandle))
	if sig := ev.Evaluate(sellSeries, model.BiasBullish); sig.Action != model.ActionNone {
		t.Errorf("bullish bias must block SELL, got %s", sig.Action)
	}
}

func TestEvaluateZeroRangeCandle(t *testing.T) {
	lookback := 5
	candles := append(flatWindow(lookback+1, 100, 103),
		model.Candle{Open: 99, High: 99, Low: 99, Close: 99})
	series := seriesFrom(t, candles)

	ev := NewEvaluator(lookback, 0.1)
	if sig := ev.Evaluate(series, model.BiasNeutral); sig.Action != model.ActionNone {
		t.Fatalf("zero-range candle must not signal, got %s", sig.Action)
	}
}

func TestEvaluateInsufficientData(t *testing.T) {
	lookback := 5
	series := seriesFrom(t, flatWindow(lookback+1, 100, 103))

	ev := NewEvaluator(lookback, 0.1)
	if sig := ev.Evaluate(series, model.BiasNeutral); sig.Action != model.ActionNone {
		t.Fatalf("short series must report no signal, got %s", sig.Action)
	}
}

// 同一根 K 线同时扫过两侧流动性时，实体方向决定至多一个信号成立。
func TestEvaluateAtMostOneSignalPerCandle(t *testing.T) {
	lookback := 5
	// 阳线实体：即使 high 也突破了前高，只可能给出 BUY
	candles := append(flatWindow(lookback+1, 100, 103),
		model.Candle{Open: 100, High: 104, Low: 99, Close: 103.9})
	series := seriesFrom(t, candles)

	ev := NewEvaluator(lookback, 0.1)
	sig := ev.Evaluate(series, model.BiasNeutral)
	if sig.Action == model.ActionSell {
		t.Fatal("bullish body must never produce a SELL signal")
	}
}

// 历史向量化模式与实时逐前缀评估必须逐位一致。
func TestEvaluateHistoryMatchesLive(t *testing.T) {
	lookback := 6
	series := seriesFrom(t, syntheticCandles(300))
	ev := NewEvaluator(lookback, 0.2)

	for _, bias := range []model.TrendBias{model.BiasBullish, model.BiasBearish, model.BiasNeutral} {
		historical := ev.EvaluateHistory(series, bias)

		var live []model.Signal
		for i := lookback + 1; i < series.Len(); i++ {
			prefix := &model.Series{
				Symbol:    series.Symbol,
				Timeframe: series.Timeframe,
				Candles:   series.Candles[:i+1],
			}
			if sig := ev.Evaluate(prefix, bias); sig.Action != model.ActionNone {
				live = append(live, sig)
			}
		}

		if len(historical) != len(live) {
			t.Fatalf("bias %s: historical emitted %d signals, live %d", bias, len(historical), len(live))
		}
		for i := range historical {
			if historical[i] != live[i] {
				t.Fatalf("bias %s: signal %d mismatch:\nhistorical %+v\nlive       %+v",
					bias, i, historical[i], live[i])
			}
		}
	}
}
