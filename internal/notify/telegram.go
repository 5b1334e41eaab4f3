// Package notify 在下单和熔断等关键事件时推送 Telegram 消息。
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
)

// TelegramNotifier 通过 Bot API 发送通知。
// 发送失败只记日志，不影响交易主流程。
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: logger.With(zap.String("component", "telegram_notifier")),
	}, nil
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Warn("Telegram send failed", zap.Error(err))
	}
}

// NotifyOrder 推送一笔已提交的订单。
func (n *TelegramNotifier) NotifyOrder(signal model.Signal, size float64, orderID string) {
	n.send(fmt.Sprintf("%s %s %.6f @ %.4f\nSL %.4f | TP %.4f\n%s\norder: %s",
		signal.Action, signal.Symbol, size, signal.Price,
		signal.StopLossPrice, signal.TakeProfitPrice, signal.Reason, orderID))
}

// NotifyRiskBlocked 推送日内熔断触发事件。
func (n *TelegramNotifier) NotifyRiskBlocked(pnlRatio float64) {
	n.send(fmt.Sprintf("Daily loss limit hit (%.2f%%), trading halted for the day", pnlRatio*100))
}
