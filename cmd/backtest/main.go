// backtest 对本地 CSV 行情做一次向量化回放：
// 输出每个历史信号及按当前风控参数计算的仓位。
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
	"smc-sweep-trader/internal/risk"
	"smc-sweep-trader/internal/service"
	"smc-sweep-trader/internal/strategy"
)

func main() {
	csvPath := flag.String("csv", "", "K 线 CSV 文件 (timestamp,open,high,low,close,volume)")
	symbol := flag.String("symbol", "BTC-USDT", "交易对")
	timeframe := flag.String("timeframe", "15m", "K 线周期")
	lookback := flag.Int("lookback", 96, "流动性窗口")
	balance := flag.Float64("balance", 10000, "模拟账户余额")
	bias := flag.String("bias", "NEUTRAL", "趋势偏向: BULL / BEAR / NEUTRAL")
	flag.Parse()

	service.InitLogger()
	defer service.Logger.Sync()
	logger := service.Logger

	if *csvPath == "" {
		logger.Fatal("Missing -csv argument")
	}

	series, err := loadSeries(*csvPath, *symbol, *timeframe)
	if err != nil {
		logger.Fatal("Failed to load candles", zap.Error(err))
	}
	logger.Info("Candles loaded",
		zap.String("symbol", *symbol),
		zap.Int("count", series.Len()))

	evaluator := strategy.NewEvaluator(*lookback, 0)
	signals := evaluator.EvaluateHistory(series, model.TrendBias(*bias))

	guardian := risk.NewGuardian(risk.Config{
		RiskPerTrade:       0.01,
		DailyLossLimit:     0.03,
		MinStopEpsilon:     0.0001,
		MinPositionSize:    0.001,
		MaxBalanceFraction: 0.1,
		SizePrecision:      6,
	}, logger)

	buys, sells := 0, 0
	for _, sig := range signals {
		sizing := guardian.SizePosition(sig.Price, sig.StopLossPrice, *balance)
		status := fmt.Sprintf("size=%.6f", sizing.Size)
		if sizing.Rejected {
			status = "rejected: " + sizing.RejectReason
		}
		fmt.Printf("%s  %s\n", sig, status)

		if sig.Action == model.ActionBuy {
			buys++
		} else {
			sells++
		}
	}

	logger.Info("Backtest complete",
		zap.Int("signals", len(signals)),
		zap.Int("buys", buys),
		zap.Int("sells", sells))
}

// loadSeries 读取 CSV 行情，时间戳支持毫秒 Unix 或 RFC3339。
func loadSeries(path, symbol, timeframe string) (*model.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 columns, got %d", i+1, len(row))
		}
		// 跳过表头
		if i == 0 && row[0] == "timestamp" {
			continue
		}

		ts, err := parseTimestamp(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		values := make([]float64, 5)
		for j, field := range row[1:6] {
			v, err := service.StringToFloat(field)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i+1, j+2, err)
			}
			values[j] = v
		}

		candles = append(candles, model.Candle{
			Timestamp: ts,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}

	return model.NewSeries(symbol, timeframe, candles), nil
}

func parseTimestamp(field string) (time.Time, error) {
	if ms, err := service.StringToInt64(field); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(time.RFC3339, field)
}
