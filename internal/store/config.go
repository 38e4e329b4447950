package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig          `yaml:"app" toml:"app"`
	Server     ServerConfig       `yaml:"server" toml:"server"`
	LLM        LLMConfig          `yaml:"llm" toml:"llm"`
	MarketData MarketDataConfig   `yaml:"market_data" toml:"market_data"`
	News       NewsConfig         `yaml:"news" toml:"news"`
	Sentiment  SentimentConfig    `yaml:"sentiment" toml:"sentiment"`
	Thresholds map[string]float64 `yaml:"thresholds" toml:"thresholds"`
	Storage    StorageConfig      `yaml:"storage" toml:"storage"`
}

type AppConfig struct {
	Name      string `yaml:"name" toml:"name"`
	UserID    string `yaml:"user_id" toml:"user_id"`
	SessionID string `yaml:"session_id" toml:"session_id"`
}

type ServerConfig struct {
	Host                string `yaml:"host" toml:"host"`
	Port                int    `yaml:"port" toml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds" toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds" toml:"write_timeout_seconds"`
	AgentTimeoutSeconds int    `yaml:"agent_timeout_seconds" toml:"agent_timeout_seconds"`
	ShutdownSeconds     int    `yaml:"shutdown_seconds" toml:"shutdown_seconds"`
}

type LLMConfig struct {
	Provider      string  `yaml:"provider" toml:"provider"` // GEMINI or NOOP
	Model         string  `yaml:"model" toml:"model"`
	ResearchModel string  `yaml:"research_model" toml:"research_model"`
	Temperature   float32 `yaml:"temperature" toml:"temperature"`
	MaxTurns      int     `yaml:"max_turns" toml:"max_turns"`
	APIKeyEnv     string  `yaml:"api_key_env" toml:"api_key_env"`
}

type MarketDataConfig struct {
	Fundamentals    string        `yaml:"fundamentals" toml:"fundamentals"` // EODHD or NONE
	History         string        `yaml:"history" toml:"history"`           // YAHOO, EODHD or NONE
	News            string        `yaml:"news" toml:"news"`                 // RSS, EODHD or NONE
	HistoryRange    string        `yaml:"history_range" toml:"history_range"`
	NewsLimit       int           `yaml:"news_limit" toml:"news_limit"`
	TimeoutSeconds  int           `yaml:"timeout_seconds" toml:"timeout_seconds"`
	CacheDir        string        `yaml:"cache_dir" toml:"cache_dir"`
	CacheTTLMinutes int           `yaml:"cache_ttl_minutes" toml:"cache_ttl_minutes"`
	EODHD           EODHDConfig   `yaml:"eodhd" toml:"eodhd"`
	Yahoo           YahooConfig   `yaml:"yahoo" toml:"yahoo"`
	Zerodha         ZerodhaConfig `yaml:"zerodha" toml:"zerodha"`
}

type EODHDConfig struct {
	BaseURL   string `yaml:"base_url" toml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	RateLimit int    `yaml:"rate_limit" toml:"rate_limit"`
}

type YahooConfig struct {
	ChartURL string `yaml:"chart_url" toml:"chart_url"`
}

// ZerodhaConfig enables Kite Connect prices for exchange symbols when both env vars are set.
type ZerodhaConfig struct {
	Enabled        bool   `yaml:"enabled" toml:"enabled"`
	Exchange       string `yaml:"exchange" toml:"exchange"`
	APIKeyEnv      string `yaml:"api_key_env" toml:"api_key_env"`
	AccessTokenEnv string `yaml:"access_token_env" toml:"access_token_env"`
}

type NewsConfig struct {
	RSSURL                string `yaml:"rss_url" toml:"rss_url"`
	GoogleNewsFallback    bool   `yaml:"google_news_fallback" toml:"google_news_fallback"`
	Region                string `yaml:"region" toml:"region"`
	Language              string `yaml:"language" toml:"language"`
	CacheMinutes          int    `yaml:"cache_minutes" toml:"cache_minutes"`
	ScraperTimeoutSeconds int    `yaml:"scraper_timeout_seconds" toml:"scraper_timeout_seconds"`
}

type SentimentConfig struct {
	Analyzer    string `yaml:"analyzer" toml:"analyzer"` // VALENCE or KEYWORD
	LexiconPath string `yaml:"lexicon_path" toml:"lexicon_path"`
}

type StorageConfig struct {
	Backend       string        `yaml:"backend" toml:"backend"` // MEMORY, JSONL, SQLITE, POSTGRES, SURREALDB
	Path          string        `yaml:"path" toml:"path"`
	DSNEnv        string        `yaml:"dsn_env" toml:"dsn_env"`
	RetentionDays int           `yaml:"retention_days" toml:"retention_days"`
	Surreal       SurrealConfig `yaml:"surreal" toml:"surreal"`
}

type SurrealConfig struct {
	Address     string `yaml:"address" toml:"address"`
	Namespace   string `yaml:"namespace" toml:"namespace"`
	Database    string `yaml:"database" toml:"database"`
	Username    string `yaml:"username" toml:"username"`
	PasswordEnv string `yaml:"password_env" toml:"password_env"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1-65535, got %d", c.Server.Port)
	}
	switch c.LLM.Provider {
	case "GEMINI", "NOOP":
	default:
		return fmt.Errorf("invalid llm.provider '%s': must be 'GEMINI' or 'NOOP'", c.LLM.Provider)
	}
	if c.LLM.MaxTurns <= 0 {
		return errors.New("llm.max_turns must be positive")
	}
	if err := oneOf("market_data.fundamentals", c.MarketData.Fundamentals, "EODHD", "NONE"); err != nil {
		return err
	}
	if err := oneOf("market_data.history", c.MarketData.History, "YAHOO", "EODHD", "NONE"); err != nil {
		return err
	}
	if err := oneOf("market_data.news", c.MarketData.News, "RSS", "EODHD", "NONE"); err != nil {
		return err
	}
	if err := oneOf("sentiment.analyzer", c.Sentiment.Analyzer, "VALENCE", "KEYWORD"); err != nil {
		return err
	}
	if err := oneOf("storage.backend", c.Storage.Backend, "MEMORY", "JSONL", "SQLITE", "POSTGRES", "SURREALDB"); err != nil {
		return err
	}
	if c.Storage.Backend == "SURREALDB" && c.Storage.Surreal.Address == "" {
		return errors.New("storage.surreal.address is required for the SURREALDB backend")
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s '%s': must be one of %s", field, value, strings.Join(allowed, ", "))
}

// Default returns a configuration with every default applied
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// LoadConfig reads a YAML or TOML file (chosen by extension), applies defaults and
// environment overrides, then validates. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	var c Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func decode(path string, b []byte, c *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(b, c)
	}
	return yaml.Unmarshal(b, c)
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "stock-analyst"
	}
	if c.App.UserID == "" {
		c.App.UserID = "default-user"
	}
	if c.App.SessionID == "" {
		c.App.SessionID = "default-session"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8501
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 180
	}
	if c.Server.AgentTimeoutSeconds == 0 {
		c.Server.AgentTimeoutSeconds = 150
	}
	if c.Server.ShutdownSeconds == 0 {
		c.Server.ShutdownSeconds = 10
	}

	c.LLM.Provider = strings.ToUpper(c.LLM.Provider)
	if c.LLM.Provider == "" {
		c.LLM.Provider = "GEMINI"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-2.5-flash-lite"
	}
	if c.LLM.ResearchModel == "" {
		c.LLM.ResearchModel = c.LLM.Model
	}
	if c.LLM.MaxTurns == 0 {
		c.LLM.MaxTurns = 10
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "GOOGLE_API_KEY"
	}

	md := &c.MarketData
	md.Fundamentals = upperOr(md.Fundamentals, "EODHD")
	md.History = upperOr(md.History, "YAHOO")
	md.News = upperOr(md.News, "RSS")
	if md.HistoryRange == "" {
		md.HistoryRange = "1y"
	}
	if md.NewsLimit == 0 {
		md.NewsLimit = 5
	}
	if md.TimeoutSeconds == 0 {
		md.TimeoutSeconds = 30
	}
	if md.CacheDir == "" {
		md.CacheDir = filepath.Join("cache", "marketdata")
	}
	if md.CacheTTLMinutes == 0 {
		md.CacheTTLMinutes = 60
	}
	if md.EODHD.BaseURL == "" {
		md.EODHD.BaseURL = "https://eodhd.com/api"
	}
	if md.EODHD.APIKeyEnv == "" {
		md.EODHD.APIKeyEnv = "EODHD_API_KEY"
	}
	if md.EODHD.RateLimit == 0 {
		md.EODHD.RateLimit = 10
	}
	if md.Yahoo.ChartURL == "" {
		md.Yahoo.ChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if md.Zerodha.Exchange == "" {
		md.Zerodha.Exchange = "NSE"
	}
	if md.Zerodha.APIKeyEnv == "" {
		md.Zerodha.APIKeyEnv = "KITE_API_KEY"
	}
	if md.Zerodha.AccessTokenEnv == "" {
		md.Zerodha.AccessTokenEnv = "KITE_ACCESS_TOKEN"
	}

	if c.News.RSSURL == "" {
		c.News.RSSURL = "https://feeds.finance.yahoo.com/rss/2.0/headline"
	}
	if c.News.Region == "" {
		c.News.Region = "US"
	}
	if c.News.Language == "" {
		c.News.Language = "en-US"
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 30
	}
	if c.News.ScraperTimeoutSeconds == 0 {
		c.News.ScraperTimeoutSeconds = 20
	}

	c.Sentiment.Analyzer = upperOr(c.Sentiment.Analyzer, "VALENCE")

	c.Storage.Backend = upperOr(c.Storage.Backend, "MEMORY")
	if c.Storage.Path == "" {
		c.Storage.Path = "data"
	}
	if c.Storage.DSNEnv == "" {
		c.Storage.DSNEnv = "DATABASE_URL"
	}
	if c.Storage.Surreal.Namespace == "" {
		c.Storage.Surreal.Namespace = "stock_analyst"
	}
	if c.Storage.Surreal.Database == "" {
		c.Storage.Surreal.Database = "results"
	}
	if c.Storage.Surreal.PasswordEnv == "" {
		c.Storage.Surreal.PasswordEnv = "SURREAL_PASSWORD"
	}
}

// applyEnv lets deployment env vars win over file values
func (c *Config) applyEnv() {
	if v := os.Getenv("APP_NAME"); v != "" {
		c.App.Name = v
	}
	if v := os.Getenv("USER_ID"); v != "" {
		c.App.UserID = v
	}
	if v := os.Getenv("SESSION_ID"); v != "" {
		c.App.SessionID = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func upperOr(v, def string) string {
	if v == "" {
		return def
	}
	return strings.ToUpper(v)
}
