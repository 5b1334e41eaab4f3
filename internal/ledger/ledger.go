package ledger

import (
	"time"
)

// Ledger 记录每个交易对最近一次被采纳的信号时间戳和最近一次
// 状态行输出的 K 线时间戳，防止扫描循环对同一根 K 线重复动作。
// 状态只由 ScanLoop 单线程写入；若将来并行扫描，需在此加一把锁。
type Ledger struct {
	acted  map[string]time.Time // symbol -> 最近被采纳信号的 K 线时间戳
	logged map[string]time.Time // symbol -> 最近输出状态行的 K 线时间戳
}

// NewLedger 初始化去重账本
func NewLedger() *Ledger {
	return &Ledger{
		acted:  make(map[string]time.Time),
		logged: make(map[string]time.Time),
	}
}

// ShouldAct 判断该信号是否还未被采纳过。
// 只按 (symbol, sourceTimestamp) 判断：同一根 K 线的信号被采纳一次后即作废，
// 无论下单是否成功。
func (l *Ledger) ShouldAct(symbol string, sourceTimestamp time.Time) bool {
	last, ok := l.acted[symbol]
	if !ok {
		return true
	}
	return !last.Equal(sourceTimestamp)
}

// RecordAct 标记信号已被采纳（无条件覆盖）。
func (l *Ledger) RecordAct(symbol string, sourceTimestamp time.Time) {
	l.acted[symbol] = sourceTimestamp
}

// ShouldLog 判断最新 K 线相对上次状态行是否推进，纯粹的降噪开关，
// 与交易决策无关。
func (l *Ledger) ShouldLog(symbol string, candleTimestamp time.Time) bool {
	last, ok := l.logged[symbol]
	if !ok {
		return true
	}
	return !last.Equal(candleTimestamp)
}

// RecordLog 标记状态行已输出。
func (l *Ledger) RecordLog(symbol string, candleTimestamp time.Time) {
	l.logged[symbol] = candleTimestamp
}
