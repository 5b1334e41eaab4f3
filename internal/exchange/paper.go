package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
	"smc-sweep-trader/internal/service"
)

// paperPosition 是模拟盘中的一个未平仓位。
type paperPosition struct {
	side       model.ActionType
	size       float64
	entryPrice float64
	stopLoss   float64
	takeProfit float64
	openedAt   time.Time
}

// PaperGateway 是模拟盘实现：行情来自真实交易所，
// 下单在本地按信号价格成交并计提手续费，止损止盈由行情流触发。
type PaperGateway struct {
	market Gateway
	stream *TickerStream
	logger *zap.Logger

	mu          sync.Mutex
	balance     float64
	feeRate     float64
	positions   map[string]*paperPosition
	nextOrderID int64
}

func NewPaperGateway(cfg *service.Config, market Gateway, logger *zap.Logger) *PaperGateway {
	return &PaperGateway{
		market:    market,
		stream:    NewTickerStream(cfg.Exchange.WSURL, cfg.Symbols, logger),
		logger:    logger.With(zap.String("component", "paper_gateway")),
		balance:   cfg.Paper.InitialBalance,
		feeRate:   cfg.Paper.FeeRate,
		positions: make(map[string]*paperPosition),
	}
}

func (g *PaperGateway) Name() string {
	return "paper"
}

// Start 启动行情流和持仓结算循环。
func (g *PaperGateway) Start(ctx context.Context) {
	go g.stream.Start(ctx)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.settleAll()
		}
	}
}

func (g *PaperGateway) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (*model.Series, error) {
	return g.market.FetchCandles(ctx, symbol, timeframe, limit)
}

func (g *PaperGateway) FetchBalance(ctx context.Context) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balance, nil
}

func (g *PaperGateway) HasOpenPosition(ctx context.Context, symbol string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.positions[symbol]
	return ok, nil
}

func (g *PaperGateway) PlaceMarketOrder(ctx context.Context, signal model.Signal, size float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.positions[signal.Symbol]; ok {
		return "", fmt.Errorf("paper: position already open for %s", signal.Symbol)
	}

	fee := signal.Price * size * g.feeRate
	if fee >= g.balance {
		return "", fmt.Errorf("paper: insufficient balance for fee")
	}
	g.balance -= fee

	g.positions[signal.Symbol] = &paperPosition{
		side:       signal.Action,
		size:       size,
		entryPrice: signal.Price,
		stopLoss:   signal.StopLossPrice,
		takeProfit: signal.TakeProfitPrice,
		openedAt:   time.Now().UTC(),
	}

	g.nextOrderID++
	orderID := fmt.Sprintf("paper-%d", g.nextOrderID)

	g.logger.Info("Paper order filled",
		zap.String("symbol", signal.Symbol),
		zap.String("side", signal.Action.String()),
		zap.Float64("size", size),
		zap.Float64("price", signal.Price),
		zap.Float64("fee", fee),
		zap.Float64("balance", g.balance))

	return orderID, nil
}

// settleAll 用最新行情检查所有持仓的止损止盈。
func (g *PaperGateway) settleAll() {
	g.mu.Lock()
	symbols := make([]string, 0, len(g.positions))
	for symbol := range g.positions {
		symbols = append(symbols, symbol)
	}
	g.mu.Unlock()

	for _, symbol := range symbols {
		price, ok := g.stream.LastPrice(symbol)
		if !ok {
			continue
		}
		g.settleSymbol(symbol, price)
	}
}

// settleSymbol 检查单个持仓：触发止损/止盈时按触发价平仓并结算盈亏。
func (g *PaperGateway) settleSymbol(symbol string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.positions[symbol]
	if !ok {
		return
	}

	var exitPrice float64
	var reason string
	switch pos.side {
	case model.ActionBuy:
		if price <= pos.stopLoss {
			exitPrice, reason = pos.stopLoss, "STOP_LOSS"
		} else if pos.takeProfit > 0 && price >= pos.takeProfit {
			exitPrice, reason = pos.takeProfit, "TAKE_PROFIT"
		}
	case model.ActionSell:
		if price >= pos.stopLoss {
			exitPrice, reason = pos.stopLoss, "STOP_LOSS"
		} else if pos.takeProfit > 0 && price <= pos.takeProfit {
			exitPrice, reason = pos.takeProfit, "TAKE_PROFIT"
		}
	}
	if reason == "" {
		return
	}

	var pnl float64
	if pos.side == model.ActionBuy {
		pnl = (exitPrice - pos.entryPrice) * pos.size
	} else {
		pnl = (pos.entryPrice - exitPrice) * pos.size
	}
	fee := exitPrice * pos.size * g.feeRate
	g.balance += pnl - fee
	delete(g.positions, symbol)

	g.logger.Info("Paper position closed",
		zap.String("symbol", symbol),
		zap.String("reason", reason),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl", pnl),
		zap.Float64("fee", fee),
		zap.Float64("balance", g.balance))
}
