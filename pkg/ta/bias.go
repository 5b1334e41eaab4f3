package ta

import (
	"github.com/markcheno/go-talib"
	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
)

// BiasCalculator 根据高周期序列计算趋势方向过滤器：
// 收盘价在快慢 EMA 之上为多头偏向，之下为空头偏向，其余为中性。
type BiasCalculator struct {
	fastPeriod int
	slowPeriod int
	logger     *zap.Logger
}

// NewBiasCalculator 初始化趋势偏向计算器 (典型参数 EMA 50/200)
func NewBiasCalculator(fastPeriod, slowPeriod int, logger *zap.Logger) *BiasCalculator {
	return &BiasCalculator{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		logger:     logger.With(zap.String("component", "bias_calculator")),
	}
}

// Bias 计算高周期趋势偏向。历史长度不足慢线周期时返回中性，
// 宁可放宽过滤也不凭不完整的均线判向。
func (bc *BiasCalculator) Bias(series *model.Series) model.TrendBias {
	if series.Len() <= bc.slowPeriod {
		bc.logger.Debug("Not enough history for trend bias",
			zap.String("symbol", series.Symbol),
			zap.Int("len", series.Len()),
			zap.Int("required", bc.slowPeriod+1))
		return model.BiasNeutral
	}

	closes := series.Closes()
	fastEMA := talib.Ema(closes, bc.fastPeriod)
	slowEMA := talib.Ema(closes, bc.slowPeriod)

	lastClose := closes[len(closes)-1]
	fast := fastEMA[len(fastEMA)-1]
	slow := slowEMA[len(slowEMA)-1]

	switch {
	case lastClose > fast && lastClose > slow:
		return model.BiasBullish
	case lastClose < fast && lastClose < slow:
		return model.BiasBearish
	default:
		return model.BiasNeutral
	}
}
