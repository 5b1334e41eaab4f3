// Package scan 实现周期性的扫描循环：拉取行情、评估信号、
// 风控闸门、仓位计算、下单和去重。
package scan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/exchange"
	"smc-sweep-trader/internal/journal"
	"smc-sweep-trader/internal/ledger"
	"smc-sweep-trader/internal/model"
	"smc-sweep-trader/internal/risk"
	"smc-sweep-trader/internal/service"
	"smc-sweep-trader/internal/strategy"
	"smc-sweep-trader/pkg/ta"
)

// TradeJournal 是扫描循环需要的日志能力，CSVJournal 实现它。
type TradeJournal interface {
	Record(entry journal.Entry) error
}

// Notifier 推送关键事件，为 nil 时不通知。
type Notifier interface {
	NotifyOrder(signal model.Signal, size float64, orderID string)
	NotifyRiskBlocked(pnlRatio float64)
}

// MetricsStore 持久化每日汇总，为 nil 时不启用。
type MetricsStore interface {
	UpsertDailyMetrics(ctx context.Context, m journal.DailyMetrics) error
	RecordTrade(ctx context.Context, entry journal.Entry) error
}

// ScanLoop 驱动一个完整的决策循环。所有可变状态都由它单线程持有。
type ScanLoop struct {
	cfg       *service.Config
	gateway   exchange.Gateway
	evaluator *strategy.Evaluator
	biasCalc  *ta.BiasCalculator
	guardian  *risk.Guardian
	ledger    *ledger.Ledger
	journal   TradeJournal
	store     MetricsStore
	notifier  Notifier
	logger    *zap.Logger

	clock func() time.Time

	currentDay    time.Time
	startBalance  float64
	lastBalance   float64
	signalsToday  int
	ordersToday   int
	blockNotified bool
}

func NewScanLoop(cfg *service.Config, gateway exchange.Gateway, tradeJournal TradeJournal,
	store MetricsStore, notifier Notifier, logger *zap.Logger) *ScanLoop {
	return &ScanLoop{
		cfg:     cfg,
		gateway: gateway,
		evaluator: strategy.NewEvaluator(
			cfg.Strategy.SwingLookback, cfg.Strategy.MinStopDistance),
		biasCalc: ta.NewBiasCalculator(
			cfg.Strategy.FastEMAPeriod, cfg.Strategy.SlowEMAPeriod, logger),
		guardian: risk.NewGuardian(risk.Config{
			RiskPerTrade:       cfg.Risk.RiskPerTrade,
			DailyLossLimit:     cfg.Risk.DailyLossLimit,
			MinStopEpsilon:     cfg.Risk.MinStopEpsilon,
			MinPositionSize:    cfg.Risk.MinPositionSize,
			MaxBalanceFraction: cfg.Risk.MaxBalanceFraction,
			SizePrecision:      cfg.Risk.SizePrecision,
		}, logger),
		ledger:   ledger.NewLedger(),
		journal:  tradeJournal,
		store:    store,
		notifier: notifier,
		logger:   logger.With(zap.String("component", "scan_loop")),
		clock:    time.Now,
	}
}

// Run 循环调用 Tick，直到 ctx 取消。
// 熔断期间把休眠拉长到冷却间隔，减少无意义的轮询。
func (s *ScanLoop) Run(ctx context.Context) {
	s.logger.Info("Scan loop started",
		zap.Strings("symbols", s.cfg.Symbols),
		zap.String("exchange", s.gateway.Name()),
		zap.String("ltf", s.cfg.LowerTimeframe),
		zap.String("htf", s.cfg.UpperTimeframe))

	for {
		s.Tick(ctx)

		sleep := s.cfg.Loop.TickInterval
		if !s.guardian.CanTrade() {
			sleep = s.cfg.Loop.RiskBlockCooldown
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Scan loop stopped")
			return
		case <-time.After(sleep):
		}
	}
}

// Tick 执行一轮完整扫描。任何单个交易对的错误都不会中断其余交易对。
func (s *ScanLoop) Tick(ctx context.Context) {
	now := s.clock().UTC()
	s.rolloverDay(ctx, now)

	balance, err := s.gateway.FetchBalance(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch balance", zap.Error(err))
		return
	}
	if s.startBalance == 0 {
		s.startBalance = balance
	}
	s.lastBalance = balance
	s.guardian.ObserveBalance(balance)

	if !s.guardian.CanTrade() {
		s.logger.Warn("Trading halted by daily loss breaker",
			zap.Float64("pnl_ratio", s.guardian.DailyPnLRatio()))
		if !s.blockNotified {
			s.blockNotified = true
			if s.notifier != nil {
				s.notifier.NotifyRiskBlocked(s.guardian.DailyPnLRatio())
			}
		}
		s.flushMetrics(ctx)
		return
	}

	for _, symbol := range s.cfg.Symbols {
		if err := s.scanSymbol(ctx, symbol, balance); err != nil {
			s.logger.Error("Symbol scan failed",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}

	s.flushMetrics(ctx)
}

// rolloverDay 检测 UTC 日切换：重置风控窗口和当日计数。
func (s *ScanLoop) rolloverDay(ctx context.Context, now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if s.currentDay.IsZero() {
		s.currentDay = day
		return
	}
	if day.Equal(s.currentDay) {
		return
	}

	s.logger.Info("New trading day",
		zap.String("day", day.Format("2006-01-02")))
	s.flushMetrics(ctx)
	s.currentDay = day
	s.startBalance = 0
	s.signalsToday = 0
	s.ordersToday = 0
	s.blockNotified = false
	s.guardian.ResetWindow()
}

func (s *ScanLoop) flushMetrics(ctx context.Context) {
	if s.store == nil {
		return
	}
	err := s.store.UpsertDailyMetrics(ctx, journal.DailyMetrics{
		Day:          s.currentDay,
		StartBalance: s.startBalance,
		LastBalance:  s.lastBalance,
		PnLRatio:     s.guardian.DailyPnLRatio(),
		Signals:      s.signalsToday,
		Orders:       s.ordersToday,
	})
	if err != nil {
		s.logger.Warn("Failed to flush daily metrics", zap.Error(err))
	}
}

// scanSymbol 处理单个交易对的一次决策。
func (s *ScanLoop) scanSymbol(ctx context.Context, symbol string, balance float64) error {
	htf, err := s.gateway.FetchCandles(ctx, symbol, s.cfg.UpperTimeframe, s.cfg.Loop.HTFCandleLimit)
	if err != nil {
		return err
	}
	bias := s.biasCalc.Bias(htf)

	ltf, err := s.gateway.FetchCandles(ctx, symbol, s.cfg.LowerTimeframe, s.cfg.Loop.LTFCandleLimit)
	if err != nil {
		return err
	}
	if ltf.Len() < s.cfg.Strategy.SwingLookback+2 {
		return errors.New("insufficient candle history")
	}

	last := ltf.Last()
	if s.ledger.ShouldLog(symbol, last.Timestamp) {
		s.ledger.RecordLog(symbol, last.Timestamp)
		s.logger.Info("Market status",
			zap.String("symbol", symbol),
			zap.Time("candle", last.Timestamp),
			zap.Float64("close", last.Close),
			zap.String("bias", bias.String()),
			zap.Float64("daily_pnl", s.guardian.DailyPnLRatio()))
	}

	signal := s.evaluator.Evaluate(ltf, bias)
	if signal.Action == model.ActionNone {
		return nil
	}

	if !s.ledger.ShouldAct(symbol, signal.SourceTimestamp) {
		return nil
	}
	// 同一根 K 线的信号只考虑一次，无论后续下单是否成功
	s.ledger.RecordAct(symbol, signal.SourceTimestamp)
	s.signalsToday++

	s.logger.Info("Signal detected", zap.String("signal", signal.String()))

	open, err := s.gateway.HasOpenPosition(ctx, symbol)
	if err != nil {
		return err
	}
	if open {
		s.logger.Info("Position already open, skipping signal",
			zap.String("symbol", symbol))
		return nil
	}

	sizing := s.guardian.SizePosition(signal.Price, signal.StopLossPrice, balance)
	if sizing.Rejected {
		s.logger.Warn("Sizing rejected signal",
			zap.String("symbol", symbol),
			zap.String("reason", sizing.RejectReason))
		return nil
	}

	signal.TakeProfitPrice = takeProfit(signal, s.cfg.Risk.RiskRewardRatio)

	orderID, err := s.gateway.PlaceMarketOrder(ctx, signal, sizing.Size)
	if err != nil {
		return err
	}
	s.ordersToday++

	entry := journal.Entry{
		Timestamp: signal.SourceTimestamp,
		Symbol:    signal.Symbol,
		Action:    signal.Action,
		Entry:     signal.Price,
		StopLoss:  signal.StopLossPrice,
		TakeProf:  signal.TakeProfitPrice,
		Size:      sizing.Size,
		Reason:    signal.Reason,
	}
	if s.journal != nil {
		if err := s.journal.Record(entry); err != nil {
			s.logger.Warn("Journal write failed", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.RecordTrade(ctx, entry); err != nil {
			s.logger.Warn("Trade store write failed", zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyOrder(signal, sizing.Size, orderID)
	}

	return nil
}

// takeProfit 按盈亏比从入场价和止损价推导止盈价。
func takeProfit(signal model.Signal, riskReward float64) float64 {
	distance := signal.Price - signal.StopLossPrice
	if signal.Action == model.ActionSell {
		distance = signal.StopLossPrice - signal.Price
		return signal.Price - distance*riskReward
	}
	return signal.Price + distance*riskReward
}
