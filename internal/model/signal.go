package model

import (
	"fmt"
	"time"
)

// ActionType 定义了信号类型
type ActionType string

const (
	ActionNone ActionType = "NONE" // 无操作
	ActionBuy  ActionType = "BUY"  // 市价买入
	ActionSell ActionType = "SELL" // 市价卖出
)

func (a ActionType) String() string {
	return string(a)
}

// Signal 结构体定义了策略层向执行层发出的具体指令。
// (Symbol, SourceTimestamp) 唯一标识一个信号，用于去重。
type Signal struct {
	Symbol          string
	Action          ActionType // BUY 或 SELL
	Price           float64    // 期望的入场价格 (信号 K 线的收盘价)
	StopLossPrice   float64    // 止损价格
	TakeProfitPrice float64    // 止盈价格 (由调用方按盈亏比推导，评估器不填)
	Reason          string     // 信号生成的文字描述
	SourceTimestamp time.Time  // 信号 K 线自身的时间戳，去重的唯一依据
}

func (s Signal) String() string {
	return fmt.Sprintf("SIGNAL [%s %s] @ %.4f | SL: %.4f | TP: %.4f | %s",
		s.Symbol, s.Action, s.Price, s.StopLossPrice, s.TakeProfitPrice, s.Reason)
}

// PositionSizing 是风控仓位计算的结果，只做传递不做存储。
type PositionSizing struct {
	Size         float64
	Rejected     bool
	RejectReason string
}
