package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"signal_trader/internal/models"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDirENV      = "CONFIG_DIR"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"

	BrokerKindGateway = "gateway"
	BrokerKindPaper   = "paper"

	DBDriverNone     = "none"
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Config ...
type Config struct {
	Telegram struct {
		Token       string `mapstructure:"token"`
		ChannelID   int64  `mapstructure:"channel_id"`
		AdminChatID int64  `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	DB struct {
		Driver   string `mapstructure:"driver"` // none | postgres | sqlite
		DSN      string `mapstructure:"dsn"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"db"`

	Service struct {
		Host       string `mapstructure:"host"`
		PublicPort int    `mapstructure:"public_port"`
	} `mapstructure:"service"`

	Tracing struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"tracing"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Engine  EngineConfig    `mapstructure:"engine"`
	Ranking RankingConfig   `mapstructure:"ranking"`
	Brokers []BrokerAccount `mapstructure:"brokers"`

	// Белый список активов, читается из engine.assets_file
	Assets []string `mapstructure:"-"`
}

type EngineConfig struct {
	Staleness       time.Duration `mapstructure:"staleness"`
	LossStreak      int           `mapstructure:"loss_streak"`
	SettleBuffer    time.Duration `mapstructure:"settle_buffer"`
	PollAttempts    int           `mapstructure:"poll_attempts"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	BrokerTimeout   time.Duration `mapstructure:"broker_timeout"`
	MaxMonitors     int           `mapstructure:"max_monitors"`
	RecentMessages  int           `mapstructure:"recent_messages"`
	AutoSelect      bool          `mapstructure:"auto_select"`
	StartMarker     string        `mapstructure:"start_marker"`
	StopMarker      string        `mapstructure:"stop_marker"`
	AssetsFile      string        `mapstructure:"assets_file"`
	InboxSize       int           `mapstructure:"inbox_size"`
	WarmupCandles   int           `mapstructure:"warmup_candles"`
}

type RankingConfig struct {
	URL        string        `mapstructure:"url"`
	Interval   string        `mapstructure:"interval"`
	Range      string        `mapstructure:"range"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Workers    int           `mapstructure:"workers"`
	Candidates []string      `mapstructure:"candidates"`
}

// BrokerAccount: один торговый аккаунт из конфига.
type BrokerAccount struct {
	Identity    string  `mapstructure:"identity"`
	Kind        string  `mapstructure:"kind"` // gateway | paper
	URL         string  `mapstructure:"url"`
	SSID        string  `mapstructure:"ssid"`
	Demo        bool    `mapstructure:"demo"`
	Percentage  float64 `mapstructure:"percentage"`
	FixedAmount float64 `mapstructure:"fixed_amount"`
	RateLimit   float64 `mapstructure:"rate_limit"` // запросов в секунду
	// только для paper
	StartBalance float64 `mapstructure:"start_balance"`
	Payout       float64 `mapstructure:"payout"`
	WinRate      float64 `mapstructure:"win_rate"`
	Seed         int64   `mapstructure:"seed"`
}

// Sizing: фиксированная сумма важнее процента, если задана.
func (a BrokerAccount) Sizing() models.Sizing {
	if a.FixedAmount > 0 {
		return models.FixedSizing(a.FixedAmount)
	}
	return models.PercentageSizing(a.Percentage)
}

func (a BrokerAccount) Validate() error {
	if strings.TrimSpace(a.Identity) == "" {
		return errors.New("broker identity is empty")
	}
	switch a.Kind {
	case BrokerKindGateway:
		if a.URL == "" {
			return errors.Errorf("broker %s: url is required for gateway", a.Identity)
		}
	case BrokerKindPaper:
	default:
		return errors.Errorf("broker %s: unknown kind %q", a.Identity, a.Kind)
	}
	if err := a.Sizing().Validate(); err != nil {
		return errors.Wrapf(err, "broker %s", a.Identity)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", DBDriverNone)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("service.host", "0.0.0.0")
	v.SetDefault("service.public_port", 8080)
	v.SetDefault("tracing.host", "localhost")
	v.SetDefault("tracing.port", 6831)
	v.SetDefault("log.level", "info")

	v.SetDefault("engine.staleness", 120*time.Second)
	v.SetDefault("engine.loss_streak", 4)
	v.SetDefault("engine.settle_buffer", 2*time.Second)
	v.SetDefault("engine.poll_attempts", 5)
	v.SetDefault("engine.poll_interval", 2*time.Second)
	v.SetDefault("engine.default_duration", 60*time.Second)
	v.SetDefault("engine.broker_timeout", 10*time.Second)
	v.SetDefault("engine.max_monitors", 256)
	v.SetDefault("engine.recent_messages", 10)
	v.SetDefault("engine.start_marker", "trading settings")
	v.SetDefault("engine.stop_marker", "balance after trading")
	v.SetDefault("engine.assets_file", "configs/assets.yaml")
	v.SetDefault("engine.inbox_size", 1024)
	v.SetDefault("engine.warmup_candles", 100)

	v.SetDefault("ranking.url", "https://query1.finance.yahoo.com/v8/finance/chart/")
	v.SetDefault("ranking.interval", "2m")
	v.SetDefault("ranking.range", "1d")
	v.SetDefault("ranking.timeout", 15*time.Second)
	v.SetDefault("ranking.workers", 4)
}

// Load читает .env, затем configs/<CONFIG_FILE> и файл активов.
func Load() (*Config, *viper.Viper, error) {
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	dir := os.Getenv(configDirENV)
	if dir == "" {
		dir = "configs"
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(dir + "/" + configFileName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, errors.Wrap(err, "read config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		cfg.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		cfg.DB.DSN = dsn
	}

	for i := range cfg.Brokers {
		if cfg.Brokers[i].Kind == "" {
			cfg.Brokers[i].Kind = BrokerKindGateway
		}
		if err := cfg.Brokers[i].Validate(); err != nil {
			return nil, err
		}
	}

	if cfg.Engine.AssetsFile != "" {
		assets, err := LoadAssets(cfg.Engine.AssetsFile)
		if err != nil {
			return nil, err
		}
		cfg.Assets = assets
	}
	return &cfg, nil
}

type assetsFile struct {
	Assets []string `yaml:"assets"`
}

// LoadAssets читает белый список активов.
func LoadAssets(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read assets file %s", path)
	}
	var f assetsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrapf(err, "decode assets file %s", path)
	}
	if len(f.Assets) == 0 {
		return nil, fmt.Errorf("assets file %s: empty list", path)
	}
	return f.Assets, nil
}
