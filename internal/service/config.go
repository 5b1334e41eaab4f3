// internal/service/config.go
package service

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// ExchangeConfig 定义了交易所的连接信息
type ExchangeConfig struct {
	Name       string // "okx" 或 "paper"
	APIKey     string
	SecretKey  string
	Passphrase string // Okx 独有
	WSURL      string
	RESTURL    string
}

// StrategyConfig 定义了信号检测参数
type StrategyConfig struct {
	SwingLookback   int     // 流动性窗口 K 线数量
	MinStopDistance float64 // 最小止损距离 (价格单位)
	FastEMAPeriod   int
	SlowEMAPeriod   int
}

// RiskConfig 定义了风控和仓位参数
type RiskConfig struct {
	RiskPerTrade       float64
	DailyLossLimit     float64
	RiskRewardRatio    float64
	MinStopEpsilon     float64
	MinPositionSize    float64
	MaxBalanceFraction float64
	SizePrecision      int
}

// LoopConfig 定义了扫描循环的节奏
type LoopConfig struct {
	TickInterval      time.Duration // 两次扫描之间的休眠
	RiskBlockCooldown time.Duration // 熔断期间的休眠
	LTFCandleLimit    int           // 低周期拉取数量
	HTFCandleLimit    int           // 高周期拉取数量
}

// JournalConfig 交易日志输出
type JournalConfig struct {
	CSVPath     string
	PostgresDSN string // 为空则不启用汇总库
}

// TelegramConfig 下单通知，Token 为空则不启用
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// PaperConfig 模拟盘参数
type PaperConfig struct {
	InitialBalance float64
	FeeRate        float64
}

type Config struct {
	Exchange       ExchangeConfig `mapstructure:"Exchange"`
	Symbols        []string       `mapstructure:"Symbols"`
	LowerTimeframe string         `mapstructure:"LowerTimeframe"`
	UpperTimeframe string         `mapstructure:"UpperTimeframe"`
	Strategy       StrategyConfig `mapstructure:"Strategy"`
	Risk           RiskConfig     `mapstructure:"Risk"`
	Loop           LoopConfig     `mapstructure:"Loop"`
	Journal        JournalConfig  `mapstructure:"Journal"`
	Telegram       TelegramConfig `mapstructure:"Telegram"`
	Paper          PaperConfig    `mapstructure:"Paper"`
}

// GlobalConfig 存储加载后的全局配置
var GlobalConfig Config

// LoadConfig 读取并解析配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Fatalf("Config file not found: %s", err)
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	}

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		log.Fatalf("Unable to decode config into struct: %s", err)
	}

	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	return &GlobalConfig
}

// setDefaults 与原始策略参数保持一致的默认值
func setDefaults() {
	viper.SetDefault("Symbols", []string{"BTC-USDT", "ETH-USDT", "SOL-USDT"})
	viper.SetDefault("LowerTimeframe", "15m")
	viper.SetDefault("UpperTimeframe", "4h")
	viper.SetDefault("Strategy.SwingLookback", 96)
	viper.SetDefault("Strategy.MinStopDistance", 0.0)
	viper.SetDefault("Strategy.FastEMAPeriod", 50)
	viper.SetDefault("Strategy.SlowEMAPeriod", 200)
	viper.SetDefault("Risk.RiskPerTrade", 0.01)
	viper.SetDefault("Risk.DailyLossLimit", 0.03)
	viper.SetDefault("Risk.RiskRewardRatio", 3.0)
	viper.SetDefault("Risk.MinStopEpsilon", 0.0001)
	viper.SetDefault("Risk.MinPositionSize", 0.001)
	viper.SetDefault("Risk.MaxBalanceFraction", 0.1)
	viper.SetDefault("Risk.SizePrecision", 6)
	viper.SetDefault("Loop.TickInterval", "10s")
	viper.SetDefault("Loop.RiskBlockCooldown", "5m")
	viper.SetDefault("Loop.LTFCandleLimit", 300)
	viper.SetDefault("Loop.HTFCandleLimit", 300)
	viper.SetDefault("Journal.CSVPath", "data/bot_journal.csv")
	viper.SetDefault("Paper.InitialBalance", 10000)
	viper.SetDefault("Paper.FeeRate", 0.0005)
}

// Validate 检查无法继续运行的配置错误，启动时 fatal。
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}
	if _, err := ParseIntervalDuration(c.LowerTimeframe); err != nil {
		return fmt.Errorf("invalid lower timeframe: %w", err)
	}
	if _, err := ParseIntervalDuration(c.UpperTimeframe); err != nil {
		return fmt.Errorf("invalid upper timeframe: %w", err)
	}
	if c.Strategy.SwingLookback <= 0 {
		return fmt.Errorf("swing lookback must be positive")
	}
	if c.Loop.LTFCandleLimit < c.Strategy.SwingLookback+2 {
		return fmt.Errorf("LTF candle limit %d too small for lookback %d",
			c.Loop.LTFCandleLimit, c.Strategy.SwingLookback)
	}
	if c.Risk.RiskRewardRatio <= 0 {
		return fmt.Errorf("risk reward ratio must be positive")
	}
	return nil
}
