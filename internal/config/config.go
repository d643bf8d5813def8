package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"NewsCollector/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "NEWS_COLLECTOR_CONFIG"
	databaseDriverEnv = "DATABASE_DRIVER"
	databaseDSNEnv    = "DATABASE_DSN"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmAPIBaseEnv     = "LLM_API_BASE"
	llmModelEnv       = "LLM_MODEL"
	redisAddrEnv      = "REDIS_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	httpAddrEnv       = "HTTP_ADDR"
	logLevelEnv       = "LOG_LEVEL"
	concurrencyEnv    = "COLLECTOR_CONCURRENCY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Collector     CollectorConfig    `yaml:"collector"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	LLM           LLMConfig          `yaml:"llm"`
	ML            MLConfig           `yaml:"ml"`
	Redis         RedisConfig        `yaml:"redis"`
	Snapshots     SnapshotConfig     `yaml:"snapshots"`
	HTTP          HTTPConfig         `yaml:"http"`
	Notifications NotificationConfig `yaml:"notifications"`
	Industries    []IndustryConfig   `yaml:"industries"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the relational store. Driver is "postgres" or "sqlite".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// CollectorConfig tunes a collection run.
type CollectorConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	ListingTimeout time.Duration `yaml:"listingTimeout"`
	ArticleTimeout time.Duration `yaml:"articleTimeout"`
	Limit          int           `yaml:"limit"`
	UserAgent      string        `yaml:"userAgent"`
	LockTTL        time.Duration `yaml:"lockTtl"`
}

// SchedulerConfig defines when collections should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LLMConfig defines how to contact an OpenAI-compatible chat API.
type LLMConfig struct {
	Enabled     bool          `yaml:"enabled"`
	BaseURL     string        `yaml:"baseUrl"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"apiKey"`
	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Summarize   bool          `yaml:"summarize"`
}

// Available reports whether the client can be built.
func (c LLMConfig) Available() bool {
	return c.Enabled && c.APIKey != "" && c.Model != ""
}

// MLConfig describes the JSON inference service, used when LLM is unavailable.
type MLConfig struct {
	InferenceURL string        `yaml:"inferenceUrl"`
	APIKey       string        `yaml:"apiKey"`
	Timeout      time.Duration `yaml:"timeout"`
}

// RedisConfig enables the cross-process run lock when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SnapshotConfig archives listing markup to S3 (Bucket) or a local directory (Dir).
type SnapshotConfig struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Dir      string `yaml:"dir"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// IndustryConfig seeds one taxonomy entry.
type IndustryConfig struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Keywords  []string `yaml:"keywords"`
	SortOrder int      `yaml:"sortOrder"`
}

// SourceConfig seeds one source.
type SourceConfig struct {
	ID         string              `yaml:"id"`
	Name       string              `yaml:"name"`
	URL        string              `yaml:"url"`
	IndustryID string              `yaml:"industryId"`
	Tier       int                 `yaml:"tier"`
	Inactive   bool                `yaml:"inactive"`
	Config     domain.SourceConfig `yaml:"config"`
}

// Domain converts the seed into a storable source.
func (s SourceConfig) Domain() domain.Source {
	src := domain.Source{
		ID:       s.ID,
		Name:     s.Name,
		URL:      s.URL,
		Tier:     s.Tier,
		Config:   s.Config,
		IsActive: !s.Inactive,
	}
	if src.Tier == 0 {
		src.Tier = 2
	}
	if s.IndustryID != "" {
		id := s.IndustryID
		src.IndustryID = &id
	}
	return src
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot load .env: %v", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if parsed, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = parsed
		}
	}

	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg
}

// Parse decodes YAML over the defaults; absent keys keep their default values.
func Parse(raw []byte) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
		c.LLM.Enabled = true
	}
	if v := os.Getenv(llmAPIBaseEnv); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(concurrencyEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Collector.Concurrency = n
		} else {
			log.Printf("config: invalid %s=%q, keeping %d", concurrencyEnv, v, c.Collector.Concurrency)
		}
	}
}

func (c *Config) normalize() {
	def := defaultConfig()

	if c.Collector.Concurrency < 1 {
		c.Collector.Concurrency = 1
	}
	if c.Collector.ListingTimeout <= 0 {
		c.Collector.ListingTimeout = def.Collector.ListingTimeout
	}
	if c.Collector.ArticleTimeout <= 0 {
		c.Collector.ArticleTimeout = def.Collector.ArticleTimeout
	}
	if c.Collector.Limit <= 0 {
		c.Collector.Limit = def.Collector.Limit
	}
	if c.Collector.LockTTL <= 0 {
		c.Collector.LockTTL = def.Collector.LockTTL
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = def.LLM.Timeout
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if c.ML.Timeout <= 0 {
		c.ML.Timeout = def.ML.Timeout
	}
	if len(c.Industries) == 0 {
		c.Industries = def.Industries
	}

	c.bindTimezone()
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:news.db?_pragma=busy_timeout(5000)"},
		Collector: CollectorConfig{
			Concurrency:    1,
			ListingTimeout: 30 * time.Second,
			ArticleTimeout: 10 * time.Second,
			Limit:          30,
			LockTTL:        30 * time.Minute,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 */2 * * *", Timezone: "Asia/Shanghai"},
		LLM: LLMConfig{
			BaseURL:     "https://open.bigmodel.cn/api/paas/v4",
			Model:       "glm-4-flash",
			MaxTokens:   500,
			Temperature: 0.7,
			Timeout:     30 * time.Second,
		},
		ML:   MLConfig{Timeout: 15 * time.Second},
		HTTP: HTTPConfig{Addr: ":8080"},
		Industries: []IndustryConfig{
			{ID: "datacenter", Name: "数据中心", Keywords: []string{"数据中心", "IDC", "机房", "液冷"}, SortOrder: 1},
			{ID: "cloud", Name: "云计算", Keywords: []string{"云计算", "云服务", "公有云", "混合云"}, SortOrder: 2},
			{ID: "ai-computing", Name: "AI算力", Keywords: []string{"算力", "AI", "GPU", "大模型", "智算"}, SortOrder: 3},
			{ID: "semiconductor", Name: "芯片半导体", Keywords: []string{"芯片", "半导体", "晶圆", "封装"}, SortOrder: 4},
			{ID: "network", Name: "网络通信", Keywords: []string{"5G", "光模块", "网络", "通信"}, SortOrder: 5},
			{ID: "policy", Name: "政策监管", Keywords: []string{"政策", "监管", "发改委", "工信部"}, SortOrder: 6},
			{ID: "investment", Name: "投资并购", Keywords: []string{"融资", "收购", "并购", "上市"}, SortOrder: 7},
		},
	}
}
