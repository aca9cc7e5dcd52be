package config

import (
	"flag"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type ServerCfg struct {
	Port          string `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	PublicBaseURL string `mapstructure:"publicBaseUrl"`
}

type DatabaseCfg struct {
	Driver         string `mapstructure:"driver"` // mysql | postgres | sqlite
	DSN            string `mapstructure:"dsn"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	Charset        string `mapstructure:"charset"`
	MaxIdleConns   int    `mapstructure:"maxIdleConns"`
	MaxOpenConns   int    `mapstructure:"maxOpenConns"`
	MigrationsPath string `mapstructure:"migrationsPath"`
	LogSQL         bool   `mapstructure:"logSql"`
}

type RedisCfg struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RabbitCfg struct {
	Enabled      bool   `mapstructure:"enabled"`
	URL          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	ProcessQueue string `mapstructure:"processQueue"`
}

type KafkaCfg struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MQCfg struct {
	Publisher  string `mapstructure:"publisher"`  // none | amqp | kafka
	Dispatcher string `mapstructure:"dispatcher"` // goroutine | amqp
}

type SecurityCfg struct {
	WebhookSecret       string `mapstructure:"webhookSecret"`
	WebhookToleranceSec int    `mapstructure:"webhookToleranceSec"`
	AdminToken          string `mapstructure:"adminToken"`
}

type OrderCfg struct {
	MinUsd          string `mapstructure:"minUsd"`
	MaxUsd          string `mapstructure:"maxUsd"`
	MaxIterations   int    `mapstructure:"maxIterations"`
	StepDelayMs     int    `mapstructure:"stepDelayMs"`
	LockTTLSec      int    `mapstructure:"lockTtlSec"`
	ProcessTimeout  int    `mapstructure:"processTimeoutSec"`
	RedirectBaseURL string `mapstructure:"redirectBaseUrl"`
	CacheTTLSec     int    `mapstructure:"cacheTtlSec"`
}

type SolanaCfg struct {
	RPCURL             string `mapstructure:"rpcUrl"`
	Commitment         string `mapstructure:"commitment"`
	SubmitRetries      int    `mapstructure:"submitRetries"`
	ConfirmTimeoutSec  int    `mapstructure:"confirmTimeoutSec"`
	PollIntervalMs     int    `mapstructure:"pollIntervalMs"`
	VerifyTreasuryUsdc bool   `mapstructure:"verifyTreasuryUsdc"`
}

type TreasuryCfg struct {
	PrivateKey  string `mapstructure:"privateKey"`
	KeypairPath string `mapstructure:"keypairPath"`
}

type SwapCfg struct {
	QuoteURL     string `mapstructure:"quoteUrl"`
	SwapURL      string `mapstructure:"swapUrl"`
	APIKey       string `mapstructure:"apiKey"`
	SlippageBps  int    `mapstructure:"slippageBps"`
	MaxAttempts  int    `mapstructure:"maxAttempts"`
	RetryDelayMs int    `mapstructure:"retryDelayMs"`
}

type OnrampCfg struct {
	APIKeyID     string `mapstructure:"apiKeyId"`
	APIKeySecret string `mapstructure:"apiKeySecret"`
	ProjectID    string `mapstructure:"projectId"`
	SessionURL   string `mapstructure:"sessionUrl"`
}

type DirectoryCfg struct {
	APIURL          string `mapstructure:"apiUrl"`
	CacheTTLSec     int    `mapstructure:"cacheTtlSec"`
	SyncIntervalMin int    `mapstructure:"syncIntervalMin"`
}

type ReconcileCfg struct {
	IntervalMin int `mapstructure:"intervalMin"`
}

// AlertCfg 订单挂起时的 Telegram 告警，留空不发送
type AlertCfg struct {
	TelegramBotToken string `mapstructure:"telegramBotToken"`
	TelegramChatID   string `mapstructure:"telegramChatId"`
}

type LogCfg struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

type Root struct {
	Server    ServerCfg    `mapstructure:"server"`
	Database  DatabaseCfg  `mapstructure:"database"`
	Redis     RedisCfg     `mapstructure:"redis"`
	RabbitMQ  RabbitCfg    `mapstructure:"rabbitmq"`
	Kafka     KafkaCfg     `mapstructure:"kafka"`
	MQ        MQCfg        `mapstructure:"mq"`
	Security  SecurityCfg  `mapstructure:"security"`
	Order     OrderCfg     `mapstructure:"order"`
	Solana    SolanaCfg    `mapstructure:"solana"`
	Treasury  TreasuryCfg  `mapstructure:"treasury"`
	Swap      SwapCfg      `mapstructure:"swap"`
	Onramp    OnrampCfg    `mapstructure:"onramp"`
	Directory DirectoryCfg `mapstructure:"directory"`
	Reconcile ReconcileCfg `mapstructure:"reconcile"`
	Alert     AlertCfg     `mapstructure:"alert"`
	Log       LogCfg       `mapstructure:"log"`
}

var C Root

// Init parses the -env flag and loads config/config.<env>.yaml into C.
func Init() {
	env := flag.String("env", "dev", "config env: dev|prod")
	flag.Parse()
	if err := Load("config/config." + *env + ".yaml"); err != nil {
		log.Fatalf("load config failed: %v", err)
	}
}

// Load reads the given file, applies DCP_* environment overrides and fills in defaults.
func Load(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("DCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	if err := v.Unmarshal(&C); err != nil {
		return err
	}
	ApplyDefaults(&C)
	return nil
}

// ApplyDefaults fills zero values with sane defaults.
func ApplyDefaults(c *Root) {
	if strings.TrimSpace(c.Server.Port) == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "migrations/postgres"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "dc_order_events"
	}
	if c.RabbitMQ.ProcessQueue == "" {
		c.RabbitMQ.ProcessQueue = "dc_order_process"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "dc-order-events"
	}
	if c.MQ.Publisher == "" {
		c.MQ.Publisher = "none"
	}
	if c.MQ.Dispatcher == "" {
		c.MQ.Dispatcher = "goroutine"
	}
	if c.Security.WebhookToleranceSec <= 0 {
		c.Security.WebhookToleranceSec = 300
	}
	if c.Order.MinUsd == "" {
		c.Order.MinUsd = "5"
	}
	if c.Order.MaxUsd == "" {
		c.Order.MaxUsd = "1000"
	}
	if c.Order.MaxIterations <= 0 {
		c.Order.MaxIterations = 10
	}
	if c.Order.StepDelayMs < 0 {
		c.Order.StepDelayMs = 0
	}
	if c.Order.LockTTLSec <= 0 {
		c.Order.LockTTLSec = 300
	}
	if c.Order.ProcessTimeout <= 0 {
		c.Order.ProcessTimeout = 600
	}
	if c.Order.RedirectBaseURL == "" {
		c.Order.RedirectBaseURL = "https://heliumtools.org/dc-purchase/order"
	}
	if c.Order.CacheTTLSec <= 0 {
		c.Order.CacheTTLSec = 30
	}
	if c.Solana.RPCURL == "" {
		c.Solana.RPCURL = "https://api.mainnet-beta.solana.com"
	}
	if c.Solana.Commitment == "" {
		c.Solana.Commitment = "confirmed"
	}
	if c.Solana.SubmitRetries <= 0 {
		c.Solana.SubmitRetries = 3
	}
	if c.Solana.ConfirmTimeoutSec <= 0 {
		c.Solana.ConfirmTimeoutSec = 60
	}
	if c.Solana.PollIntervalMs <= 0 {
		c.Solana.PollIntervalMs = 1000
	}
	if c.Swap.QuoteURL == "" {
		c.Swap.QuoteURL = "https://api.jup.ag/swap/v1/quote"
	}
	if c.Swap.SwapURL == "" {
		c.Swap.SwapURL = "https://api.jup.ag/swap/v1/swap"
	}
	if c.Swap.SlippageBps <= 0 {
		c.Swap.SlippageBps = 100
	}
	if c.Swap.MaxAttempts <= 0 {
		c.Swap.MaxAttempts = 3
	}
	if c.Swap.RetryDelayMs <= 0 {
		c.Swap.RetryDelayMs = 2000
	}
	if c.Onramp.SessionURL == "" {
		c.Onramp.SessionURL = "https://api.coinbase.com/onramp/v2/sessions"
	}
	if c.Directory.APIURL == "" {
		c.Directory.APIURL = "https://entities.nft.helium.io/v2/oui/all"
	}
	if c.Directory.CacheTTLSec <= 0 {
		c.Directory.CacheTTLSec = 600
	}
	if c.Directory.SyncIntervalMin <= 0 {
		c.Directory.SyncIntervalMin = 360
	}
	if c.Reconcile.IntervalMin <= 0 {
		c.Reconcile.IntervalMin = 240
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "./logs"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
