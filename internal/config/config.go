// Package config loads the engine's configuration via spf13/viper,
// grounded on the teacher's examples/trend_master/internal/config loader
// and its nested mapstructure-tagged strategy config. UnmarshalExact is
// used instead of Unmarshal so an unrecognized key fails startup loudly
// (spec §9: config errors are fatal at startup only, never silently
// ignored).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/internal/engine"
	"github.com/raykavin/signalengine/internal/position"
	"github.com/raykavin/signalengine/internal/regime"
	"github.com/raykavin/signalengine/internal/risk"
	"github.com/raykavin/signalengine/internal/signal"
)

const DefaultConfigPath = "./signalengine.yaml"

// EVCostModel selects how trading cost is reflected in the EV gate. The
// spec leaves this as an open question; BAKED_IN (cost folded directly into
// expectedReturn, per risk.Config.Commission/Slippage) is this engine's
// resolution. SEPARATE_THRESHOLD names the alternative, where costs raise
// evThreshold rather than lower expectedReturn. RiskGateConfig does not pass
// this field to risk.Config, so the gate always uses BAKED_IN.
type EVCostModel string

const (
	EVCostBakedIn           EVCostModel = "BAKED_IN"
	EVCostSeparateThreshold EVCostModel = "SEPARATE_THRESHOLD"
)

// Config is the complete, strictly-typed engine configuration.
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Regime   RegimeConfig   `mapstructure:"regime"`
	Signal   SignalConfig   `mapstructure:"signal"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Position PositionConfig `mapstructure:"position"`
	ModelAdapter ModelAdapterConfig `mapstructure:"model_adapter"`
	Sentiment    SentimentConfig    `mapstructure:"sentiment"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// GeneralConfig holds top-level scheduling and symbol settings.
type GeneralConfig struct {
	Symbols            []string `mapstructure:"symbols"`
	PrimaryInterval    string   `mapstructure:"primary_interval"`
	SecondaryIntervals []string `mapstructure:"secondary_intervals"`

	AnalysisPeriodSeconds int `mapstructure:"analysis_period_seconds"`
	LabelPollIntervalSeconds int `mapstructure:"label_poll_interval_seconds"`
	LabelHorizonMinutes   int `mapstructure:"label_horizon_minutes"`
}

// ExchangeConfig holds the venue adapter's credentials/mode.
type ExchangeConfig struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	UseTestnet bool   `mapstructure:"use_testnet"`
	Simulated  bool   `mapstructure:"simulated"`
}

// RegimeConfig mirrors regime.Config.
type RegimeConfig struct {
	StrongADXThreshold float64 `mapstructure:"strong_adx_threshold"`
	RSIOverbought      float64 `mapstructure:"rsi_overbought"`
	RSIOversold        float64 `mapstructure:"rsi_oversold"`
}

// SignalConfig mirrors signal.Config plus signal.GateThresholds.
type SignalConfig struct {
	WeightTechnical float64 `mapstructure:"weight_technical"`
	WeightModel     float64 `mapstructure:"weight_model"`
	WeightRegime    float64 `mapstructure:"weight_regime"`

	ModelAlphaMax            float64 `mapstructure:"model_alpha_max"`
	ModelLongThreshold       float64 `mapstructure:"model_long_threshold"`
	ModelConfidenceThreshold float64 `mapstructure:"model_confidence_threshold"`
	ModelOverrideConfidence  float64 `mapstructure:"model_override_confidence"`

	EnableKDJContribution      bool `mapstructure:"enable_kdj_contribution"`
	EnableWilliamsContribution bool `mapstructure:"enable_williams_contribution"`

	StrongBuyThreshold  float64 `mapstructure:"strong_buy_threshold"`
	BuyThreshold        float64 `mapstructure:"buy_threshold"`
	SellThreshold       float64 `mapstructure:"sell_threshold"`
	StrongSellThreshold float64 `mapstructure:"strong_sell_threshold"`

	MinADX         float64 `mapstructure:"min_adx"`
	MinOBVSlope    float64 `mapstructure:"min_obv_slope"`
	MinVolumeRatio float64 `mapstructure:"min_volume_ratio"`
	MinATRPercent  float64 `mapstructure:"min_atr_percent"`
}

// RiskConfig mirrors risk.Config.
type RiskConfig struct {
	MinTrendStrength           float64            `mapstructure:"min_trend_strength"`
	MinCombinedStrengthLong    float64            `mapstructure:"min_combined_strength_long"`
	MinCombinedStrengthShort   float64            `mapstructure:"min_combined_strength_short"`
	AllowHighVolatilityEntries bool               `mapstructure:"allow_high_volatility_entries"`
	MinMTFAgreement            float64            `mapstructure:"min_mtf_agreement"`
	RequireMTFFilter           bool               `mapstructure:"require_mtf_filter"`
	Commission                 float64            `mapstructure:"commission"`
	Slippage                   float64            `mapstructure:"slippage"`
	BaseWinRate                float64            `mapstructure:"base_win_rate"`
	EVThresholdBase            map[string]float64 `mapstructure:"ev_threshold_base"`
	EVCostModel                EVCostModel        `mapstructure:"ev_cost_model"`
	FGILow                     int                `mapstructure:"fgi_low"`
	FGIHigh                    int                `mapstructure:"fgi_high"`
	FGICautionLow              int                `mapstructure:"fgi_caution_low"`
	FGICautionHigh             int                `mapstructure:"fgi_caution_high"`
	FundingRateCap             float64            `mapstructure:"funding_rate_cap"`
	BaseSizeFraction           float64            `mapstructure:"base_size_fraction"`
	MaxPositionFraction        float64            `mapstructure:"max_position_fraction"`
	BaseLeverage               int                `mapstructure:"base_leverage"`
	MinLeverage                int                `mapstructure:"min_leverage"`
	MaxLeverage                int                `mapstructure:"max_leverage"`
	StopLossPercent            float64            `mapstructure:"stop_loss_percent"`
	TakeProfitPercent          float64            `mapstructure:"take_profit_percent"`
	BollApproachMargin         float64            `mapstructure:"boll_approach_margin"`
	TPWeights                  [3]float64         `mapstructure:"tp_weights"`
}

// PositionConfig mirrors position.Config.
type PositionConfig struct {
	MaxHoldingHours          float64 `mapstructure:"max_holding_hours"`
	MinHoldingMinutes        float64 `mapstructure:"min_holding_minutes"`
	ReversalCloseConfidence  float64 `mapstructure:"reversal_close_confidence"`
	ReversalReduceConfidence float64 `mapstructure:"reversal_reduce_confidence"`
	Commission               float64 `mapstructure:"commission"`
	Slippage                 float64 `mapstructure:"slippage"`
	DailyLossLimit           float64 `mapstructure:"daily_loss_limit"`
	EnableTrailingStop       bool    `mapstructure:"enable_trailing_stop"`
	TrailingStopDistance     float64 `mapstructure:"trailing_stop_distance"`
}

// ModelAdapterConfig configures the optional external directional-model
// ("Kronos") HTTP client.
type ModelAdapterConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutMillis  int    `mapstructure:"timeout_millis"`
}

// SentimentConfig configures the optional Fear & Greed Index HTTP client.
type SentimentConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BaseURL       string `mapstructure:"base_url"`
	TimeoutMillis int    `mapstructure:"timeout_millis"`
}

// StorageConfig configures the sample store and cache backends.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // not read: signalengine.New always opens DSN with SQLite
	DSN    string `mapstructure:"dsn"`
	CachePath string `mapstructure:"cache_path"`
}

// NotificationConfig configures the Telegram notifier.
type NotificationConfig struct {
	TelegramEnabled bool   `mapstructure:"telegram_enabled"`
	TelegramToken   string `mapstructure:"telegram_token"`
	TelegramUsers   []int  `mapstructure:"telegram_users"`
}

// LoggingConfig configures the zerolog-backed logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from configPath (YAML) overlaid with environment
// variables (SIGNALENGINE_ prefix), writing a default file the first time
// it is run, mirroring the teacher's LoadStrategyConfig/saveDefaultConfig
// pair. An unrecognized key is a ConfigInvalid error, fatal at startup.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	v := viper.New()
	v.SetEnvPrefix("SIGNALENGINE")
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return writeDefault(configPath)
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrConfigInvalid, configPath, err)
	}

	cfg := Default()
	if err := v.UnmarshalExact(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	return cfg, nil
}

func writeDefault(configPath string) (*Config, error) {
	cfg := Default()
	v := viper.New()
	v.SetConfigFile(configPath)
	v.Set("general", cfg.General)
	v.Set("exchange", cfg.Exchange)
	v.Set("regime", cfg.Regime)
	v.Set("signal", cfg.Signal)
	v.Set("risk", cfg.Risk)
	v.Set("position", cfg.Position)
	v.Set("model_adapter", cfg.ModelAdapter)
	v.Set("sentiment", cfg.Sentiment)
	v.Set("storage", cfg.Storage)
	v.Set("notification", cfg.Notification)
	v.Set("logging", cfg.Logging)
	if err := v.WriteConfig(); err != nil {
		return cfg, fmt.Errorf("could not save default configuration: %w", err)
	}
	return cfg, nil
}

// Validate enforces the invariants that must hold before the engine starts
// (spec §7: ConfigInvalid is fatal at startup only).
func (c *Config) Validate() error {
	if len(c.General.Symbols) == 0 {
		return fmt.Errorf("general.symbols must not be empty")
	}
	if _, err := core.ParseInterval(c.General.PrimaryInterval); err != nil {
		return fmt.Errorf("general.primary_interval: %w", err)
	}
	for _, iv := range c.General.SecondaryIntervals {
		if _, err := core.ParseInterval(iv); err != nil {
			return fmt.Errorf("general.secondary_intervals: %w", err)
		}
	}
	if c.General.AnalysisPeriodSeconds < 10 {
		return fmt.Errorf("general.analysis_period_seconds must be >= 10")
	}
	return nil
}

// RegimeConfig converts to regime.Config.
func (c *Config) RegimeConfig() regime.Config {
	return regime.Config{
		StrongADXThreshold: c.Regime.StrongADXThreshold,
		RSIOverbought:      c.Regime.RSIOverbought,
		RSIOversold:        c.Regime.RSIOversold,
	}
}

// SignalConfig converts to signal.Config and signal.GateThresholds.
func (c *Config) SignalConfig() (signal.Config, signal.GateThresholds) {
	return signal.Config{
			WeightTechnical:            c.Signal.WeightTechnical,
			WeightModel:                c.Signal.WeightModel,
			WeightRegime:               c.Signal.WeightRegime,
			ModelAlphaMax:              c.Signal.ModelAlphaMax,
			ModelLongThreshold:         c.Signal.ModelLongThreshold,
			ModelConfidenceThreshold:   c.Signal.ModelConfidenceThreshold,
			ModelOverrideConfidence:    c.Signal.ModelOverrideConfidence,
			EnableKDJContribution:      c.Signal.EnableKDJContribution,
			EnableWilliamsContribution: c.Signal.EnableWilliamsContribution,
			StrongBuyThreshold:         c.Signal.StrongBuyThreshold,
			BuyThreshold:               c.Signal.BuyThreshold,
			SellThreshold:              c.Signal.SellThreshold,
			StrongSellThreshold:        c.Signal.StrongSellThreshold,
		}, signal.GateThresholds{
			MinADX:         c.Signal.MinADX,
			MinOBVSlope:    c.Signal.MinOBVSlope,
			MinVolumeRatio: c.Signal.MinVolumeRatio,
			MinATRPercent:  c.Signal.MinATRPercent,
		}
}

// RiskGateConfig converts to risk.Config.
func (c *Config) RiskGateConfig() risk.Config {
	thresholds := make(map[core.Regime]float64, len(c.Risk.EVThresholdBase))
	for k, v := range c.Risk.EVThresholdBase {
		thresholds[core.Regime(k)] = v
	}
	return risk.Config{
		MinTrendStrength:           c.Risk.MinTrendStrength,
		MinCombinedStrengthLong:    c.Risk.MinCombinedStrengthLong,
		MinCombinedStrengthShort:   c.Risk.MinCombinedStrengthShort,
		AllowHighVolatilityEntries: c.Risk.AllowHighVolatilityEntries,
		MinMTFAgreement:            c.Risk.MinMTFAgreement,
		RequireMTFFilter:           c.Risk.RequireMTFFilter,
		Commission:                 c.Risk.Commission,
		Slippage:                   c.Risk.Slippage,
		BaseWinRate:                c.Risk.BaseWinRate,
		EVThresholdBase:            thresholds,
		FGILow:                     c.Risk.FGILow,
		FGIHigh:                    c.Risk.FGIHigh,
		FGICautionLow:              c.Risk.FGICautionLow,
		FGICautionHigh:             c.Risk.FGICautionHigh,
		FundingRateCap:             c.Risk.FundingRateCap,
		BaseSizeFraction:           c.Risk.BaseSizeFraction,
		MaxPositionFraction:        c.Risk.MaxPositionFraction,
		BaseLeverage:               c.Risk.BaseLeverage,
		MinLeverage:                c.Risk.MinLeverage,
		MaxLeverage:                c.Risk.MaxLeverage,
		StopLossPercent:            c.Risk.StopLossPercent,
		TakeProfitPercent:          c.Risk.TakeProfitPercent,
		BollApproachMargin:         c.Risk.BollApproachMargin,
		TPWeights:                  c.Risk.TPWeights,
	}
}

// PositionConfig converts to position.Config, using the local timezone for
// the daily-loss circuit breaker's midnight rollover.
func (c *Config) PositionConfig() position.Config {
	return position.Config{
		MaxHoldingHours:          c.Position.MaxHoldingHours,
		MinHoldingMinutes:        c.Position.MinHoldingMinutes,
		ReversalCloseConfidence:  c.Position.ReversalCloseConfidence,
		ReversalReduceConfidence: c.Position.ReversalReduceConfidence,
		Commission:               c.Position.Commission,
		Slippage:                 c.Position.Slippage,
		DailyLossLimit:           c.Position.DailyLossLimit,
		EnableTrailingStop:       c.Position.EnableTrailingStop,
		TrailingStopDistance:     c.Position.TrailingStopDistance,
		Location:                 time.Local,
	}
}

// EngineConfig converts to engine.Config (the C6 loop's period/TTLs and
// timeframe set).
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Period:              time.Duration(c.General.AnalysisPeriodSeconds) * time.Second,
		LatestAnalysisTTL:   5 * time.Minute,
		MarketDataTTL:       30 * time.Second,
		KlineDataTTL:        60 * time.Second,
		AnalysisProgressTTL: 15 * time.Second,
		KlineLimit:          200,
		BackoffMin:          10 * time.Second,
		BackoffMax:          2 * time.Minute,
		Primary:             c.General.PrimaryInterval,
		SecondaryIntervals:  c.General.SecondaryIntervals,
	}
}

// Default returns the engine's documented default configuration.
func Default() *Config {
	r := regime.DefaultConfig()
	sig := signal.DefaultConfig()
	gates := signal.DefaultGateThresholds()
	gate := risk.DefaultConfig()

	evThresholds := make(map[string]float64, len(gate.EVThresholdBase))
	for k, v := range gate.EVThresholdBase {
		evThresholds[string(k)] = v
	}

	return &Config{
		General: GeneralConfig{
			Symbols:                  []string{"BTCUSDT"},
			PrimaryInterval:          "15m",
			SecondaryIntervals:       []string{"5m", "1h"},
			AnalysisPeriodSeconds:    30,
			LabelPollIntervalSeconds: 60,
			LabelHorizonMinutes:      60,
		},
		Exchange: ExchangeConfig{Simulated: true},
		Regime: RegimeConfig{
			StrongADXThreshold: r.StrongADXThreshold,
			RSIOverbought:      r.RSIOverbought,
			RSIOversold:        r.RSIOversold,
		},
		Signal: SignalConfig{
			WeightTechnical:            sig.WeightTechnical,
			WeightModel:                sig.WeightModel,
			WeightRegime:               sig.WeightRegime,
			ModelAlphaMax:              sig.ModelAlphaMax,
			ModelLongThreshold:         sig.ModelLongThreshold,
			ModelConfidenceThreshold:   sig.ModelConfidenceThreshold,
			ModelOverrideConfidence:    sig.ModelOverrideConfidence,
			EnableKDJContribution:      sig.EnableKDJContribution,
			EnableWilliamsContribution: sig.EnableWilliamsContribution,
			StrongBuyThreshold:         sig.StrongBuyThreshold,
			BuyThreshold:               sig.BuyThreshold,
			SellThreshold:              sig.SellThreshold,
			StrongSellThreshold:        sig.StrongSellThreshold,
			MinADX:                     gates.MinADX,
			MinOBVSlope:                gates.MinOBVSlope,
			MinVolumeRatio:             gates.MinVolumeRatio,
			MinATRPercent:              gates.MinATRPercent,
		},
		Risk: RiskConfig{
			MinTrendStrength:           gate.MinTrendStrength,
			MinCombinedStrengthLong:    gate.MinCombinedStrengthLong,
			MinCombinedStrengthShort:   gate.MinCombinedStrengthShort,
			AllowHighVolatilityEntries: gate.AllowHighVolatilityEntries,
			MinMTFAgreement:            gate.MinMTFAgreement,
			RequireMTFFilter:           gate.RequireMTFFilter,
			Commission:                 gate.Commission,
			Slippage:                   gate.Slippage,
			BaseWinRate:                gate.BaseWinRate,
			EVThresholdBase:            evThresholds,
			EVCostModel:                EVCostBakedIn,
			FGILow:                     gate.FGILow,
			FGIHigh:                    gate.FGIHigh,
			FGICautionLow:              gate.FGICautionLow,
			FGICautionHigh:             gate.FGICautionHigh,
			FundingRateCap:             gate.FundingRateCap,
			BaseSizeFraction:           gate.BaseSizeFraction,
			MaxPositionFraction:        gate.MaxPositionFraction,
			BaseLeverage:               gate.BaseLeverage,
			MinLeverage:                gate.MinLeverage,
			MaxLeverage:                gate.MaxLeverage,
			StopLossPercent:            gate.StopLossPercent,
			TakeProfitPercent:          gate.TakeProfitPercent,
			BollApproachMargin:         gate.BollApproachMargin,
			TPWeights:                  gate.TPWeights,
		},
		Position: PositionConfig{
			MaxHoldingHours:          48,
			MinHoldingMinutes:        30,
			ReversalCloseConfidence:  0.8,
			ReversalReduceConfidence: 0.6,
			Commission:               0.0004,
			Slippage:                 0.0005,
			DailyLossLimit:           0.05,
			EnableTrailingStop:       false,
			TrailingStopDistance:     0.01,
		},
		ModelAdapter: ModelAdapterConfig{Enabled: false, TimeoutMillis: 1200},
		Sentiment:    SentimentConfig{Enabled: false, TimeoutMillis: 2000},
		Storage: StorageConfig{
			Driver:    "sqlite",
			DSN:       "signalengine.db",
			CachePath: "signalengine_cache.db",
		},
		Notification: NotificationConfig{},
		Logging:      LoggingConfig{Level: "info", Pretty: true},
	}
}
