// Package exchange 提供交易所接入层。
// 策略和扫描循环只依赖 Gateway 接口，不关心背后是实盘还是模拟盘。
package exchange

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
	"smc-sweep-trader/internal/service"
)

// Gateway 是扫描循环所需的全部交易所能力。
type Gateway interface {
	// Name 返回交易所标识，如 "okx" / "paper"
	Name() string

	// FetchBalance 返回账户总权益 (USDT 计价)
	FetchBalance(ctx context.Context) (float64, error)

	// FetchCandles 拉取最近 limit 根已完成 K 线，升序返回
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (*model.Series, error)

	// HasOpenPosition 查询该交易对是否有未平仓位
	HasOpenPosition(ctx context.Context, symbol string) (bool, error)

	// PlaceMarketOrder 按信号下市价单，返回交易所订单 ID
	PlaceMarketOrder(ctx context.Context, signal model.Signal, size float64) (string, error)
}

// GatewayError 包装交易所返回的业务错误码
type GatewayError struct {
	Exchange string
	Code     string
	Message  string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s api error [%s]: %s", e.Exchange, e.Code, e.Message)
}

type gatewayFactory func(cfg *service.Config, logger *zap.Logger) (Gateway, error)

// 注册表：按配置中的 Exchange.Name 选择实现
var gatewayFactories = map[string]gatewayFactory{
	"okx": func(cfg *service.Config, logger *zap.Logger) (Gateway, error) {
		return NewOkxGateway(cfg, logger), nil
	},
	"paper": func(cfg *service.Config, logger *zap.Logger) (Gateway, error) {
		market := NewOkxGateway(cfg, logger)
		return NewPaperGateway(cfg, market, logger), nil
	},
}

// New 根据配置构造交易所网关
func New(cfg *service.Config, logger *zap.Logger) (Gateway, error) {
	factory, ok := gatewayFactories[cfg.Exchange.Name]
	if !ok {
		return nil, fmt.Errorf("unsupported exchange: %q", cfg.Exchange.Name)
	}
	return factory(cfg, logger)
}
