package model

import (
	"sort"
	"time"
)

// Candle 代表一根已完成的 OHLCV K 线。
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Range 返回 K 线的高低价差。
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// IsBullish 收盘高于开盘。
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish 收盘低于开盘。
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Series 是单个 (Symbol, Timeframe) 的升序 K 线序列。
// 每次扫描重新构建，构建后不再修改。
type Series struct {
	Symbol    string
	Timeframe string
	Candles   []Candle
}

// NewSeries 构造升序、无重复时间戳的序列。
// 交易所返回的数据可能是降序或有重复，这里统一规整。
func NewSeries(symbol, timeframe string, candles []Candle) *Series {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	// 去重：保留同一时间戳的最后一条
	deduped := candles[:0]
	for i, c := range candles {
		if i > 0 && c.Timestamp.Equal(candles[i-1].Timestamp) {
			deduped[len(deduped)-1] = c
			continue
		}
		deduped = append(deduped, c)
	}

	return &Series{
		Symbol:    symbol,
		Timeframe: timeframe,
		Candles:   deduped,
	}
}

// Len 返回序列长度。
func (s *Series) Len() int {
	return len(s.Candles)
}

// Last 返回最新一根 K 线。调用方必须先确认 Len() > 0。
func (s *Series) Last() Candle {
	return s.Candles[len(s.Candles)-1]
}

// Closes 返回收盘价序列，供指标计算使用。
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// TrendBias 是高周期趋势方向过滤器。
type TrendBias string

const (
	BiasBullish TrendBias = "BULL"
	BiasBearish TrendBias = "BEAR"
	BiasNeutral TrendBias = "NEUTRAL"
)

func (b TrendBias) String() string {
	return string(b)
}
