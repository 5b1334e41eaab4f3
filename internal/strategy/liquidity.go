package strategy

import (
	"errors"

	"smc-sweep-trader/internal/model"
)

// ErrInsufficientData 表示序列长度不足以构成流动性窗口。
// 调用方按"无信号"处理，不视为错误。
var ErrInsufficientData = errors.New("insufficient candle history")

// LiquidityZone 是回溯窗口内的最高高点 / 最低低点，
// 窗口严格止于被测 K 线之前。每次扫描重新计算，不做持久化。
type LiquidityZone struct {
	HighLiquidity float64
	LowLiquidity  float64
}

// ComputeZone 计算最新一根 K 线之前 lookback 根 K 线的流动性区间。
// 窗口不包含最新 K 线本身，要求 series.Len() >= lookback+1。
func ComputeZone(series *model.Series, lookback int) (LiquidityZone, error) {
	if lookback <= 0 {
		return LiquidityZone{}, errors.New("lookback must be positive")
	}
	n := series.Len()
	if n < lookback+1 {
		return LiquidityZone{}, ErrInsufficientData
	}

	window := series.Candles[n-1-lookback : n-1]
	zone := LiquidityZone{
		HighLiquidity: window[0].High,
		LowLiquidity:  window[0].Low,
	}
	for _, c := range window[1:] {
		if c.High > zone.HighLiquidity {
			zone.HighLiquidity = c.High
		}
		if c.Low < zone.LowLiquidity {
			zone.LowLiquidity = c.Low
		}
	}
	return zone, nil
}

// rollingZones 为每个下标 i 计算窗口 [i-lookback, i) 上的流动性区间，
// 即窗口在被测 K 线处左闭合。i < lookback 的位置无效（窗口不完整）。
// 使用单调队列做滚动极值，整体 O(n)，供历史模式向量化评估使用。
func rollingZones(candles []model.Candle, lookback int) []LiquidityZone {
	n := len(candles)
	zones := make([]LiquidityZone, n)

	var maxDQ, minDQ []int // 下标队列：highs 递减 / lows 递增

	for i := 0; i < n; i++ {
		// 将 i-1 推入队列：它从本轮开始进入所有后续窗口
		if i > 0 {
			j := i - 1
			for len(maxDQ) > 0 && candles[maxDQ[len(maxDQ)-1]].High <= candles[j].High {
				maxDQ = maxDQ[:len(maxDQ)-1]
			}
			maxDQ = append(maxDQ, j)

			for len(minDQ) > 0 && candles[minDQ[len(minDQ)-1]].Low >= candles[j].Low {
				minDQ = minDQ[:len(minDQ)-1]
			}
			minDQ = append(minDQ, j)
		}

		// 淘汰滑出窗口左沿的下标
		for len(maxDQ) > 0 && maxDQ[0] < i-lookback {
			maxDQ = maxDQ[1:]
		}
		for len(minDQ) > 0 && minDQ[0] < i-lookback {
			minDQ = minDQ[1:]
		}

		if i >= lookback {
			zones[i] = LiquidityZone{
				HighLiquidity: candles[maxDQ[0]].High,
				LowLiquidity:  candles[minDQ[0]].Low,
			}
		}
	}
	return zones
}
