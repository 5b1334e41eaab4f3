package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
	"smc-sweep-trader/internal/service"
)

const defaultOkxRESTURL = "https://www.okx.com"

// OkxGateway 通过 Okx V5 REST API 实现 Gateway。
type OkxGateway struct {
	cfg    *service.Config
	rest   *restClient
	logger *zap.Logger
}

func NewOkxGateway(cfg *service.Config, logger *zap.Logger) *OkxGateway {
	return &OkxGateway{
		cfg:    cfg,
		rest:   newRESTClient(),
		logger: logger.With(zap.String("component", "okx_gateway")),
	}
}

func (g *OkxGateway) Name() string {
	return "okx"
}

func (g *OkxGateway) baseURL() string {
	if g.cfg.Exchange.RESTURL != "" {
		return g.cfg.Exchange.RESTURL
	}
	return defaultOkxRESTURL
}

// sign 按 Okx V5 规范生成签名：Base64(HMAC-SHA256(timestamp+method+path+body))
func (g *OkxGateway) sign(timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.Exchange.SecretKey))
	mac.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// request 发起一次 API 调用。signed 为 true 时附加鉴权头。
func (g *OkxGateway) request(ctx context.Context, method, requestPath string, payload any, signed bool) (json.RawMessage, error) {
	var body string
	var reader *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = string(data)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL()+requestPath, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", g.cfg.Exchange.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", g.sign(timestamp, method, requestPath, body))
		req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("OK-ACCESS-PASSPHRASE", g.cfg.Exchange.Passphrase)
	}

	data, err := g.rest.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("okx %s %s: %w", method, requestPath, err)
	}

	var envelope struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("okx response decode: %w", err)
	}
	if envelope.Code != "0" {
		return nil, &GatewayError{Exchange: "okx", Code: envelope.Code, Message: envelope.Msg}
	}
	return envelope.Data, nil
}

// okxBar 把通用周期字符串转换为 Okx 的 bar 参数：
// 分钟级小写，小时/天级大写 (15m -> 15m, 4h -> 4H, 1d -> 1D)
func okxBar(timeframe string) string {
	if strings.HasSuffix(timeframe, "m") {
		return timeframe
	}
	return strings.ToUpper(timeframe)
}

func (g *OkxGateway) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) (*model.Series, error) {
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d",
		symbol, okxBar(timeframe), limit)

	data, err := g.request(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return nil, err
	}

	// 每条: [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm]
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("okx candles decode: %w", err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 9 {
			continue
		}
		// confirm == "0" 表示 K 线尚未走完，策略只消费已完成的
		if row[8] != "1" {
			continue
		}
		candle, err := parseOkxCandle(row)
		if err != nil {
			g.logger.Warn("Skipping malformed candle",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		candles = append(candles, candle)
	}

	// Okx 返回的是降序 (最新在前)，NewSeries 会统一排成升序
	return model.NewSeries(symbol, timeframe, candles), nil
}

func parseOkxCandle(row []string) (model.Candle, error) {
	ts, err := service.StringToInt64(row[0])
	if err != nil {
		return model.Candle{}, fmt.Errorf("timestamp: %w", err)
	}

	values := make([]float64, 5)
	for i, field := range row[1:6] {
		v, err := service.StringToFloat(field)
		if err != nil {
			return model.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		values[i] = v
	}

	return model.Candle{
		Timestamp: time.UnixMilli(ts).UTC(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

func (g *OkxGateway) FetchBalance(ctx context.Context) (float64, error) {
	data, err := g.request(ctx, http.MethodGet, "/api/v5/account/balance?ccy=USDT", nil, true)
	if err != nil {
		return 0, err
	}

	var accounts []struct {
		TotalEq string `json:"totalEq"`
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return 0, fmt.Errorf("okx balance decode: %w", err)
	}
	if len(accounts) == 0 {
		return 0, fmt.Errorf("okx balance: empty response")
	}

	return service.StringToFloat(accounts[0].TotalEq)
}

func (g *OkxGateway) HasOpenPosition(ctx context.Context, symbol string) (bool, error) {
	path := "/api/v5/account/positions?instId=" + symbol
	data, err := g.request(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return false, err
	}

	var positions []struct {
		Pos string `json:"pos"`
	}
	if err := json.Unmarshal(data, &positions); err != nil {
		return false, fmt.Errorf("okx positions decode: %w", err)
	}

	for _, p := range positions {
		if p.Pos != "" && p.Pos != "0" {
			return true, nil
		}
	}
	return false, nil
}

func (g *OkxGateway) PlaceMarketOrder(ctx context.Context, signal model.Signal, size float64) (string, error) {
	side := "buy"
	if signal.Action == model.ActionSell {
		side = "sell"
	}

	payload := map[string]string{
		"instId":  signal.Symbol,
		"tdMode":  "cash",
		"side":    side,
		"ordType": "market",
		"sz":      fmt.Sprintf("%v", size),
	}

	data, err := g.request(ctx, http.MethodPost, "/api/v5/trade/order", payload, true)
	if err != nil {
		return "", err
	}

	var results []struct {
		OrdID string `json:"ordId"`
		SCode string `json:"sCode"`
		SMsg  string `json:"sMsg"`
	}
	if err := json.Unmarshal(data, &results); err != nil {
		return "", fmt.Errorf("okx order decode: %w", err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("okx order: empty response")
	}
	if results[0].SCode != "0" {
		return "", &GatewayError{Exchange: "okx", Code: results[0].SCode, Message: results[0].SMsg}
	}

	g.logger.Info("Market order placed",
		zap.String("symbol", signal.Symbol),
		zap.String("side", side),
		zap.Float64("size", size),
		zap.String("order_id", results[0].OrdID))

	return results[0].OrdID, nil
}
