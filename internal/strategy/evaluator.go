package strategy

import (
	"math"

	"smc-sweep-trader/internal/model"
)

// strengthThreshold 要求收盘落在 K 线区间靠近反转方向的 30% 以内，
// 用于确认扫荡后的位移强度。
const strengthThreshold = 0.7

// Evaluator 对单根 K 线应用 Sweep + Reclaim 规则，
// 每次评估最多产出一个信号。止盈不在这里计算，由调用方按盈亏比推导。
type Evaluator struct {
	lookback        int
	minStopDistance float64 // 最小止损距离 (价格单位)，防止低波动 K 线止损贴价
}

// NewEvaluator 初始化信号评估器
func NewEvaluator(lookback int, minStopDistance float64) *Evaluator {
	return &Evaluator{
		lookback:        lookback,
		minStopDistance: minStopDistance,
	}
}

// Evaluate 实时模式：只评估序列最新的一根 K 线。
// 序列长度不足 lookback+2 时按无信号处理（而不是误报）。
func (e *Evaluator) Evaluate(series *model.Series, bias model.TrendBias) model.Signal {
	if series.Len() < e.lookback+2 {
		return model.Signal{Action: model.ActionNone}
	}
	zone, err := ComputeZone(series, e.lookback)
	if err != nil {
		return model.Signal{Action: model.ActionNone}
	}
	return e.checkCandle(series.Symbol, series.Last(), zone, bias)
}

// EvaluateHistory 历史模式：对序列中每根 K 线做向量化评估，
// 滚动窗口在被测 K 线处左闭合（不含被测 K 线）。
// 对任意前缀逐根调用 Evaluate 必须得到逐位一致的结果。
func (e *Evaluator) EvaluateHistory(series *model.Series, bias model.TrendBias) []model.Signal {
	if series.Len() < e.lookback+2 {
		return nil
	}

	zones := rollingZones(series.Candles, e.lookback)

	var signals []model.Signal
	for i := e.lookback + 1; i < series.Len(); i++ {
		sig := e.checkCandle(series.Symbol, series.Candles[i], zones[i], bias)
		if sig.Action != model.ActionNone {
			signals = append(signals, sig)
		}
	}
	return signals
}

// checkCandle 对一根 K 线应用 Sweep + Reclaim 判定。
// 买卖条件分别要求阳线和阴线实体，同一根 K 线在结构上只可能满足其一。
func (e *Evaluator) checkCandle(symbol string, c model.Candle, zone LiquidityZone, bias model.TrendBias) model.Signal {
	none := model.Signal{Action: model.ActionNone}

	totalRange := c.Range()
	if totalRange == 0 {
		// 除零保护
		return none
	}

	// 买入：下破前低流动性后收回区间内，且为强阳线
	if bias != model.BiasBearish {
		if c.Low < zone.LowLiquidity && c.Close > zone.LowLiquidity && c.IsBullish() {
			strength := (c.Close - c.Low) / totalRange
			if strength > strengthThreshold {
				slDistance := e.stopDistance(totalRange)
				return model.Signal{
					Symbol:          symbol,
					Action:          model.ActionBuy,
					Price:           c.Close,
					StopLossPrice:   c.Low - slDistance,
					Reason:          "LOW_SWEEP_RECLAIM_STRONG",
					SourceTimestamp: c.Timestamp,
				}
			}
		}
	}

	// 卖出：上破前高流动性后收回区间内，且为强阴线
	if bias != model.BiasBullish {
		if c.High > zone.HighLiquidity && c.Close < zone.HighLiquidity && c.IsBearish() {
			strength := (c.High - c.Close) / totalRange
			if strength > strengthThreshold {
				slDistance := e.stopDistance(totalRange)
				return model.Signal{
					Symbol:          symbol,
					Action:          model.ActionSell,
					Price:           c.Close,
					StopLossPrice:   c.High + slDistance,
					Reason:          "HIGH_SWEEP_RECLAIM_STRONG",
					SourceTimestamp: c.Timestamp,
				}
			}
		}
	}

	return none
}

// stopDistance 止损距离 = max(最小止损距离, K 线区间的 50%)
func (e *Evaluator) stopDistance(totalRange float64) float64 {
	return math.Max(e.minStopDistance, totalRange*0.5)
}
