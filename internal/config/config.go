package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig is one scraping target from configs/sources.yaml.
type SourceConfig struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Adapter string `yaml:"adapter"` // iteca | kazexpo | jsonld | embedded | generic
	Referer string `yaml:"referer"` // alternate Referer for 403-sensitive sources
}

type sourcesFile struct {
	Sources          []SourceConfig `yaml:"sources"`
	AllowedCountries []string       `yaml:"allowed_countries"`
}

type Config struct {
	// Storage
	DatabaseURL string

	// Telegram settings
	TelegramToken string

	// Enrichment settings
	GeminiAPIKey  string
	EnrichMode    string // "gemini" or "local"
	MaxAIRequests int    // daily Gemini budget (0 = unlimited)
	MaxDescWords  int    // word budget for short descriptions

	// Parsing settings
	SourcesConfigPath string
	Sources           []SourceConfig
	AllowedCountries  []string
	MaxPerSource      int

	// Dedup settings. The 0.75 threshold and the longer-description
	// tie-break come from the original heuristics and were never validated
	// against ground truth, hence configurable.
	SimilarityThreshold float64
	MinSimilarDescLen   int

	// Retention
	RetentionDays int

	// HTTP settings
	RequestTimeout    time.Duration
	MaxConnsPerHost   int
	MaxIdleConns      int
	RequestsPerSecond float64
	UserAgent         string
	RetryAttempts     int
	RetryDelay        time.Duration

	// Artifacts
	ImageDir string
	CSVPath  string

	// Scheduling
	ParseAt        string // "HH:MM" wall clock, one cycle per day
	RunImmediately bool

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		SourcesConfigPath:   "configs/sources.yaml",
		EnrichMode:          "local",
		MaxAIRequests:       100,
		MaxDescWords:        100,
		MaxPerSource:        30,
		SimilarityThreshold: 0.75,
		MinSimilarDescLen:   20,
		RetentionDays:       7,
		RequestTimeout:      30 * time.Second,
		MaxConnsPerHost:     20,
		MaxIdleConns:        10,
		RequestsPerSecond:   2,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		RetryAttempts:       3,
		RetryDelay:          5 * time.Second,
		ImageDir:            "parsed_images",
		CSVPath:             "events.csv",
		ParseAt:             "08:00",
	}

	// Load from environment
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	if mode := os.Getenv("ENRICH_MODE"); mode != "" {
		cfg.EnrichMode = mode
	}
	if cfg.EnrichMode == "local" && cfg.GeminiAPIKey != "" && os.Getenv("ENRICH_MODE") == "" {
		// Key present and mode not forced: use Gemini.
		cfg.EnrichMode = "gemini"
	}

	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.ImageDir = getEnvOrDefault("IMAGE_DIR", cfg.ImageDir)
	cfg.CSVPath = getEnvOrDefault("CSV_PATH", cfg.CSVPath)
	cfg.ParseAt = getEnvOrDefault("PARSE_AT", cfg.ParseAt)
	cfg.UserAgent = getEnvOrDefault("USER_AGENT", cfg.UserAgent)

	cfg.MaxAIRequests = getEnvIntOrDefault("MAX_AI_REQUESTS", cfg.MaxAIRequests)
	cfg.MaxDescWords = getEnvIntOrDefault("MAX_DESC_WORDS", cfg.MaxDescWords)
	cfg.MaxPerSource = getEnvIntOrDefault("MAX_PER_SOURCE", cfg.MaxPerSource)
	cfg.RetentionDays = getEnvIntOrDefault("RETENTION_DAYS", cfg.RetentionDays)
	cfg.MinSimilarDescLen = getEnvIntOrDefault("MIN_SIMILAR_DESC_LEN", cfg.MinSimilarDescLen)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)

	if v := os.Getenv("SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if os.Getenv("RUN_IMMEDIATELY") == "true" {
		cfg.RunImmediately = true
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	if err := cfg.loadSources(); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

// loadSources reads the source list and country allowlist from the YAML
// config file.
func (c *Config) loadSources() error {
	f, err := os.Open(c.SourcesConfigPath)
	if err != nil {
		return fmt.Errorf("open sources config: %w", err)
	}
	defer f.Close()

	var sf sourcesFile
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&sf); err != nil {
		return fmt.Errorf("decode sources config: %w", err)
	}
	if len(sf.Sources) == 0 {
		return fmt.Errorf("sources config %s lists no sources", c.SourcesConfigPath)
	}
	c.Sources = sf.Sources
	c.AllowedCountries = sf.AllowedCountries
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.EnrichMode != "local" && c.EnrichMode != "gemini" {
		return fmt.Errorf("ENRICH_MODE must be 'local' or 'gemini'")
	}
	if c.EnrichMode == "gemini" && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when ENRICH_MODE=gemini")
	}
	if _, err := time.Parse("15:04", c.ParseAt); err != nil {
		return fmt.Errorf("PARSE_AT must be HH:MM: %w", err)
	}
	if len(c.AllowedCountries) == 0 {
		return fmt.Errorf("sources config must list allowed_countries")
	}
	return nil
}
