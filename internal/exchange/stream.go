package exchange

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"smc-sweep-trader/internal/service"
)

const defaultOkxWSURL = "wss://ws.okx.com:8443/ws/v5/public"

// TickerStream 订阅 Okx 公共 tickers 频道，维护各交易对的最新成交价。
// 扫描循环用它打印状态行，模拟盘用它作为成交参考价。
type TickerStream struct {
	url     string
	symbols []string
	logger  *zap.Logger

	mu     sync.RWMutex
	prices map[string]float64
}

func NewTickerStream(url string, symbols []string, logger *zap.Logger) *TickerStream {
	if url == "" {
		url = defaultOkxWSURL
	}
	return &TickerStream{
		url:     url,
		symbols: symbols,
		logger:  logger.With(zap.String("component", "ticker_stream")),
		prices:  make(map[string]float64),
	}
}

// LastPrice 返回该交易对的最新成交价。尚未收到行情时返回 false。
func (s *TickerStream) LastPrice(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.prices[symbol]
	return price, ok
}

// Start 建立连接并持续读取，断线后退避重连，直到 ctx 取消。
func (s *TickerStream) Start(ctx context.Context) {
	retryDelay := time.Second
	for {
		if err := s.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("Ticker stream disconnected, reconnecting",
				zap.Error(err), zap.Duration("retry_in", retryDelay))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
		if retryDelay < 30*time.Second {
			retryDelay *= 2
		}
	}
}

func (s *TickerStream) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := s.subscribe(conn); err != nil {
		return err
	}
	s.logger.Info("Ticker stream connected",
		zap.String("url", s.url), zap.Strings("symbols", s.symbols))

	// Okx 要求 30 秒内有心跳，空闲时发送 "ping"
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(20 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					return
				}
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if string(message) == "pong" {
			continue
		}
		s.handleMessage(message)
	}
}

func (s *TickerStream) subscribe(conn *websocket.Conn) error {
	args := make([]map[string]string, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		args = append(args, map[string]string{
			"channel": "tickers",
			"instId":  symbol,
		})
	}
	return conn.WriteJSON(map[string]any{
		"op":   "subscribe",
		"args": args,
	})
}

func (s *TickerStream) handleMessage(message []byte) {
	var event struct {
		Arg struct {
			Channel string `json:"channel"`
			InstID  string `json:"instId"`
		} `json:"arg"`
		Data []struct {
			Last string `json:"last"`
		} `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		return
	}
	if event.Arg.Channel != "tickers" || len(event.Data) == 0 {
		return
	}

	price, err := service.StringToFloat(event.Data[len(event.Data)-1].Last)
	if err != nil {
		s.logger.Warn("Malformed ticker price",
			zap.String("symbol", event.Arg.InstID), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.prices[event.Arg.InstID] = price
	s.mu.Unlock()
}
