package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"BriefCast/internal/domain"
)

const (
	configPathEnv     = "BRIEFCAST_CONFIG"
	checkpointPathEnv = "BRIEFCAST_CHECKPOINT_PATH"
	openAIAPIKeyEnv   = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	enrichURLEnv      = "BRIEFCAST_ENRICH_URL"
	enrichAPIKeyEnv   = "BRIEFCAST_ENRICH_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Checkpoints   CheckpointConfig   `yaml:"checkpoints"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Scoring       ScoringConfig      `yaml:"scoring"`
	Generation    GenerationConfig   `yaml:"generation"`
	Enrichment    EnrichmentConfig   `yaml:"enrichment"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Sources       []SourceConfig     `yaml:"sources"`
	Trends        map[string]float64 `yaml:"trends"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CheckpointConfig locates the run snapshot database. An empty path keeps
// checkpoints in memory only.
type CheckpointConfig struct {
	Path string `yaml:"path"`
}

// FetchConfig bounds the feed ingestion batch.
type FetchConfig struct {
	MaxItemsPerSource int `yaml:"maxItemsPerSource"`
	TimeoutSeconds    int `yaml:"timeoutSeconds"`
	Concurrency       int `yaml:"concurrency"`
	Attempts          int `yaml:"attempts"`
	HoursFilter       int `yaml:"hoursFilter"`
}

// Timeout converts the configured seconds into a duration.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// ScoringConfig tunes selection.
type ScoringConfig struct {
	Weights        map[string]float64 `yaml:"weights"`
	SelectionLimit int                `yaml:"selectionLimit"`
}

// GenerationConfig defines how to contact the chat completion API and how
// many generation attempts a run may spend before escalating.
type GenerationConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	MaxAttempts  int    `yaml:"maxAttempts"`
}

// EnrichmentConfig describes the analysis service. An empty InferenceURL
// selects the built-in heuristic enricher.
type EnrichmentConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// SchedulerConfig defines how often daemon mode runs the pipeline.
type SchedulerConfig struct {
	IntervalHours int `yaml:"intervalHours"`
}

// Interval converts the configured hours into a duration.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalHours) * time.Hour
}

// SourceConfig describes a single feed. Disabled inverts the default so
// that plain YAML entries are active without an extra flag.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	URL      string            `yaml:"url"`
	Category string            `yaml:"category"`
	Priority int               `yaml:"priority"`
	Weight   float64           `yaml:"weight"`
	Disabled bool              `yaml:"disabled"`
	Metadata map[string]string `yaml:"metadata"`
}

// DomainSources converts the configured feed list to domain sources.
func (c Config) DomainSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, domain.Source{
			Name:     s.Name,
			URL:      s.URL,
			Category: s.Category,
			Priority: s.Priority,
			Weight:   s.Weight,
			Enabled:  !s.Disabled,
			Metadata: s.Metadata,
		})
	}
	return out
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(checkpointPathEnv); v != "" {
		c.Checkpoints.Path = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.Generation.Model = v
	}

	if v := os.Getenv(enrichURLEnv); v != "" {
		c.Enrichment.InferenceURL = v
	}
	if v := os.Getenv(enrichAPIKeyEnv); v != "" {
		c.Enrichment.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Checkpoints.Path != "" {
		base.Checkpoints = override.Checkpoints
	}

	if override.Fetch.MaxItemsPerSource > 0 {
		base.Fetch.MaxItemsPerSource = override.Fetch.MaxItemsPerSource
	}
	if override.Fetch.TimeoutSeconds > 0 {
		base.Fetch.TimeoutSeconds = override.Fetch.TimeoutSeconds
	}
	if override.Fetch.Concurrency > 0 {
		base.Fetch.Concurrency = override.Fetch.Concurrency
	}
	if override.Fetch.Attempts > 0 {
		base.Fetch.Attempts = override.Fetch.Attempts
	}
	if override.Fetch.HoursFilter > 0 {
		base.Fetch.HoursFilter = override.Fetch.HoursFilter
	}

	if len(override.Scoring.Weights) > 0 {
		base.Scoring.Weights = override.Scoring.Weights
	}
	if override.Scoring.SelectionLimit > 0 {
		base.Scoring.SelectionLimit = override.Scoring.SelectionLimit
	}

	if override.Generation.Endpoint != "" {
		base.Generation.Endpoint = override.Generation.Endpoint
	}
	if override.Generation.Model != "" {
		base.Generation.Model = override.Generation.Model
	}
	if override.Generation.APIKey != "" {
		base.Generation.APIKey = override.Generation.APIKey
	}
	if override.Generation.SystemPrompt != "" {
		base.Generation.SystemPrompt = override.Generation.SystemPrompt
	}
	if override.Generation.MaxAttempts > 0 {
		base.Generation.MaxAttempts = override.Generation.MaxAttempts
	}

	if override.Enrichment.InferenceURL != "" {
		base.Enrichment.InferenceURL = override.Enrichment.InferenceURL
	}
	if override.Enrichment.APIKey != "" {
		base.Enrichment.APIKey = override.Enrichment.APIKey
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler = override.Scheduler
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}
	if len(override.Trends) > 0 {
		base.Trends = override.Trends
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:     LoggingConfig{Level: "info"},
		Checkpoints: CheckpointConfig{Path: "briefcast.db"},
		Fetch: FetchConfig{
			MaxItemsPerSource: 10,
			TimeoutSeconds:    10,
			Concurrency:       5,
			Attempts:          3,
			HoursFilter:       48,
		},
		Scoring: ScoringConfig{SelectionLimit: 6},
		Generation: GenerationConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You write a concise daily tech news brief from the stories you are given. Respond with JSON.",
			MaxAttempts:  2,
		},
		Scheduler: SchedulerConfig{IntervalHours: 24},
		Sources: []SourceConfig{
			{Name: "arxiv-cs-ai", URL: "https://export.arxiv.org/rss/cs.AI", Category: "research"},
			{Name: "hn-frontpage", URL: "https://news.ycombinator.com/rss", Category: "industry"},
			{Name: "mit-tech-review", URL: "https://www.technologyreview.com/feed/", Category: "industry"},
		},
	}
}
