package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		TicksTopic     string   `yaml:"ticks_topic"`
		SentimentTopic string   `yaml:"sentiment_topic"`
		EventsTopic    string   `yaml:"events_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Feed struct {
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Assets         []string      `yaml:"assets"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Engine struct {
		PriceDropPct        float64       `yaml:"price_drop_pct"`
		SentimentRisePts    float64       `yaml:"sentiment_rise_pts"`
		ReversalBase        float64       `yaml:"reversal_base"`
		ReversalSlope       float64       `yaml:"reversal_slope"`
		RiskPct             float64       `yaml:"risk_pct"`
		MaxPositionPct      float64       `yaml:"max_position_pct"`
		RatioWeight         float64       `yaml:"ratio_weight"`
		WinRateWeight       float64       `yaml:"win_rate_weight"`
		MinQuality          float64       `yaml:"min_quality"`
		MinRatio            float64       `yaml:"min_ratio"`
		MinConfidence       float64       `yaml:"min_confidence"`
		BullishExtremity    float64       `yaml:"bullish_extremity"`
		BearishExtremity    float64       `yaml:"bearish_extremity"`
		PriorWinRate        float64       `yaml:"prior_win_rate"`
		SignalTTL           time.Duration `yaml:"signal_ttl"`
		StalenessThreshold  time.Duration `yaml:"staleness_threshold"`
		EvaluationInterval  time.Duration `yaml:"evaluation_interval"`
		PatternWindow       int           `yaml:"pattern_window"`
		PortfolioValueUSD   float64       `yaml:"portfolio_value_usd"`
		SignalHistoryWindow int           `yaml:"signal_history_window"`
	} `yaml:"engine"`
	Backtest struct {
		BootstrapSamples int           `yaml:"bootstrap_samples"`
		Seed             int64         `yaml:"seed"`
		AsyncOverDays    int           `yaml:"async_over_days"`
		WallClockBudget  time.Duration `yaml:"wall_clock_budget"`
		ProgressTTL      time.Duration `yaml:"progress_ttl"`
		QueueName        string        `yaml:"queue_name"`
		Workers          int           `yaml:"workers"`
	} `yaml:"backtest"`
	Whale struct {
		Enabled bool          `yaml:"enabled"`
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"whale"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("ASSETS"); v != "" {
		c.Feed.Assets = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TICKS_TOPIC"); v != "" {
		c.Kafka.TicksTopic = v
	}
	if v := os.Getenv("KAFKA_SENTIMENT_TOPIC"); v != "" {
		c.Kafka.SentimentTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("WHALE_BASE_URL"); v != "" {
		c.Whale.BaseURL = v
	}

	return c, nil
}

// applyDefaults fills engine and backtest knobs left zero in the YAML.
func (c *Config) applyDefaults() {
	e := &c.Engine
	if e.PriceDropPct == 0 {
		e.PriceDropPct = 2.0
	}
	if e.SentimentRisePts == 0 {
		e.SentimentRisePts = 5.0
	}
	if e.ReversalBase == 0 {
		e.ReversalBase = 50
	}
	if e.ReversalSlope == 0 {
		e.ReversalSlope = 2.0
	}
	if e.RiskPct == 0 {
		e.RiskPct = 2.0
	}
	if e.MaxPositionPct == 0 {
		e.MaxPositionPct = 25.0
	}
	if e.RatioWeight == 0 {
		e.RatioWeight = 0.5
	}
	if e.WinRateWeight == 0 {
		e.WinRateWeight = 0.5
	}
	if e.MinQuality == 0 {
		e.MinQuality = 60
	}
	if e.MinRatio == 0 {
		e.MinRatio = 1.5
	}
	if e.MinConfidence == 0 {
		e.MinConfidence = 70
	}
	if e.BullishExtremity == 0 {
		e.BullishExtremity = 75
	}
	if e.BearishExtremity == 0 {
		e.BearishExtremity = 25
	}
	if e.PriorWinRate == 0 {
		e.PriorWinRate = 0.5
	}
	if e.SignalTTL == 0 {
		e.SignalTTL = 30 * time.Minute
	}
	if e.StalenessThreshold == 0 {
		e.StalenessThreshold = 5 * time.Minute
	}
	if e.EvaluationInterval == 0 {
		e.EvaluationInterval = 30 * time.Second
	}
	if e.PatternWindow == 0 {
		e.PatternWindow = 50
	}
	if e.PortfolioValueUSD == 0 {
		e.PortfolioValueUSD = 10000
	}
	if e.SignalHistoryWindow == 0 {
		e.SignalHistoryWindow = 100
	}

	b := &c.Backtest
	if b.BootstrapSamples == 0 {
		b.BootstrapSamples = 1000
	}
	if b.AsyncOverDays == 0 {
		b.AsyncOverDays = 180
	}
	if b.WallClockBudget == 0 {
		b.WallClockBudget = 2 * time.Minute
	}
	if b.ProgressTTL == 0 {
		b.ProgressTTL = time.Hour
	}
	if b.QueueName == "" {
		b.QueueName = "backtest:jobs"
	}
	if b.Workers == 0 {
		b.Workers = 2
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Feed.Assets) == 0 {
		return fmt.Errorf("feed.assets cannot be empty")
	}
	if c.Engine.RatioWeight+c.Engine.WinRateWeight <= 0 {
		return fmt.Errorf("engine weights must sum to a positive value")
	}
	if c.Engine.RiskPct < 1 || c.Engine.RiskPct > 5 {
		return fmt.Errorf("engine.risk_pct must be in [1, 5], got %v", c.Engine.RiskPct)
	}
	if c.Engine.BearishExtremity <= 0 || c.Engine.BullishExtremity >= 100 ||
		c.Engine.BearishExtremity >= c.Engine.BullishExtremity {
		return fmt.Errorf("engine sentiment extremity bounds must satisfy 0 < bearish < bullish < 100, got %v/%v",
			c.Engine.BearishExtremity, c.Engine.BullishExtremity)
	}
	if c.Engine.MaxPositionPct <= 0 || c.Engine.MaxPositionPct > 100 {
		return fmt.Errorf("engine.max_position_pct must be in (0, 100], got %v", c.Engine.MaxPositionPct)
	}
	if c.Backtest.BootstrapSamples < 1 {
		return fmt.Errorf("backtest.bootstrap_samples must be >= 1")
	}
	return nil
}
