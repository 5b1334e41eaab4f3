package risk

import (
	"math"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
)

// Config 定义了风控参数，全部来自配置文件。
type Config struct {
	RiskPerTrade       float64 // 单笔风险占余额的比例，例如 0.01
	DailyLossLimit     float64 // 当日亏损熔断阈值，例如 0.03
	MinStopEpsilon     float64 // 止损距离下限，防止噪声导致近乎无限的仓位
	MinPositionSize    float64 // 交易所最小下单量
	MaxBalanceFraction float64 // 最大名义仓位占余额的比例，例如 0.1
	SizePrecision      int     // 仓位小数位数
}

// Guardian 跟踪观察窗口内的当日盈亏并对仓位做风险预算约束。
// 状态只由 ScanLoop 单线程写入，不需要加锁；若将来并行扫描，
// 这里是同步边界。
type Guardian struct {
	cfg    Config
	logger *zap.Logger

	startingBalance float64
	hasWindow       bool
	dailyPnlRatio   float64
	tripped         bool // 熔断是单向的：窗口内一旦触发就保持，直到显式重置
}

// NewGuardian 初始化风控守护
func NewGuardian(cfg Config, logger *zap.Logger) *Guardian {
	return &Guardian{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "risk_guardian")),
	}
}

// ObserveBalance 记录一次余额观察。
// 窗口内第一次观察固定 startingBalance，之后每次重算当日盈亏比。
func (g *Guardian) ObserveBalance(balance float64) {
	if !g.hasWindow {
		g.startingBalance = balance
		g.hasWindow = true
		g.logger.Info("Risk window opened", zap.Float64("starting_balance", balance))
	}

	if g.startingBalance <= 0 {
		g.dailyPnlRatio = 0
		return
	}
	g.dailyPnlRatio = (balance - g.startingBalance) / g.startingBalance

	if !g.tripped && g.dailyPnlRatio <= -g.cfg.DailyLossLimit {
		g.tripped = true
		g.logger.Warn("Daily loss breaker tripped",
			zap.Float64("pnl_ratio", g.dailyPnlRatio),
			zap.Float64("limit", g.cfg.DailyLossLimit))
	}
}

// ResetWindow 开启新的观察窗口（新交易日）。
// 下一次 ObserveBalance 会重新固定 startingBalance 并解除熔断。
func (g *Guardian) ResetWindow() {
	g.hasWindow = false
	g.startingBalance = 0
	g.dailyPnlRatio = 0
	g.tripped = false
	g.logger.Info("Risk window reset")
}

// CanTrade 当日亏损熔断闸门。窗口内一旦触发保持关闭，
// 即使之后余额回升也不恢复，只有 ResetWindow 才能解除。
func (g *Guardian) CanTrade() bool {
	if g.tripped {
		return false
	}
	return g.dailyPnlRatio > -g.cfg.DailyLossLimit
}

// DailyPnLRatio 返回当前窗口的盈亏比，用于日志和通知。
func (g *Guardian) DailyPnLRatio() float64 {
	return g.dailyPnlRatio
}

// SizePosition 按风险预算计算仓位：size = 余额*单笔风险 / 止损距离，
// 再按 [最小下单量, 余额*最大名义比例/入场价] 夹取并圆整。
// 返回 Rejected 表示本次不交易，不是错误。
func (g *Guardian) SizePosition(entryPrice, stopPrice, balance float64) model.PositionSizing {
	if balance <= 0 {
		return model.PositionSizing{Rejected: true, RejectReason: "non-positive balance"}
	}
	if entryPrice <= 0 {
		return model.PositionSizing{Rejected: true, RejectReason: "non-positive entry price"}
	}

	slDistance := math.Abs(entryPrice - stopPrice)
	if slDistance < g.cfg.MinStopEpsilon {
		return model.PositionSizing{Rejected: true, RejectReason: "stop distance below epsilon"}
	}

	riskAmount := balance * g.cfg.RiskPerTrade
	rawSize := riskAmount / slDistance

	maxSize := balance * g.cfg.MaxBalanceFraction / entryPrice
	finalSize := math.Min(rawSize, maxSize)
	finalSize = math.Max(finalSize, g.cfg.MinPositionSize)
	finalSize = roundTo(finalSize, g.cfg.SizePrecision)

	if finalSize <= 0 {
		return model.PositionSizing{Rejected: true, RejectReason: "size rounds to zero"}
	}
	return model.PositionSizing{Size: finalSize}
}

func roundTo(v float64, precision int) float64 {
	scale := math.Pow10(precision)
	return math.Round(v*scale) / scale
}
