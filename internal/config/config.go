package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Query is one arXiv search the collector runs every day.
type Query struct {
	Name        string `yaml:"name"`
	SearchQuery string `yaml:"search_query"`
	MaxResults  int    `yaml:"max_results"`
	SortBy      string `yaml:"sort_by"`
	SortOrder   string `yaml:"sort_order"`
}

type ArxivConfig struct {
	UserAgent string  `yaml:"user_agent"`
	Queries   []Query `yaml:"queries"`
}

type IssueConfig struct {
	// LookbackDays limits an issue to papers published within the window.
	// 0 disables the filter.
	LookbackDays int `yaml:"lookback_days"`
	// MarkSkippedAsSeen also marks items excluded by the lookback filter as
	// seen. When false, a skipped item stays unseen until a run with a wide
	// enough window picks it up; if the window later shrinks instead, that
	// item is never issued.
	MarkSkippedAsSeen bool `yaml:"mark_skipped_as_seen"`
	FeaturedPapers    int  `yaml:"featured_papers"`
}

type DataConfig struct {
	StatePath     string `yaml:"state_path"`
	CollectedPath string `yaml:"collected_path"`
	SummariesPath string `yaml:"summaries_path"`
}

type OutputConfig struct {
	IssuesDir string `yaml:"issues_dir"`
	IndexPath string `yaml:"index_path"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LLMConfig struct {
	Enabled            bool              `yaml:"enabled"`
	ProviderPreference []string          `yaml:"provider_preference"`
	Model              map[string]string `yaml:"model"`
	BaseURL            map[string]string `yaml:"base_url"`
	MaxItems           int               `yaml:"max_items"`
	TrendEnabled       bool              `yaml:"trend_enabled"`
	TrendMaxItems      int               `yaml:"trend_max_items"`
	DigestEnabled      bool              `yaml:"digest_enabled"`
	DigestMaxItems     int               `yaml:"digest_max_items"`
	Temperature        float64           `yaml:"temperature"`
}

type Config struct {
	LogLevel string        `yaml:"log_level"`
	Arxiv    ArxivConfig   `yaml:"arxiv"`
	Issue    IssueConfig   `yaml:"issue"`
	Data     DataConfig    `yaml:"data"`
	Output   OutputConfig  `yaml:"output"`
	Archive  ArchiveConfig `yaml:"archive"`
	LLM      LLMConfig     `yaml:"llm"`
}

// Paths holds every data and output location, resolved to the config file's
// directory so the tool behaves the same regardless of working directory.
type Paths struct {
	State     string
	Collected string
	Summaries string
	IssuesDir string
	Index     string
	Archive   string
}

// DefaultConfigPath is the user-level config location, consulted when no
// config.yaml exists in the working directory.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "paperpress", "config.yaml")
}

// ResolvePath picks the config file to load: the explicit flag value if
// given, else ./config.yaml when present, else the user-level location.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return DefaultConfigPath()
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config file at path on top of the embedded defaults.
// A missing file is an error: running against an implicit empty config
// would silently collect nothing.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	normalize(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize drops unusable query entries and fills per-query defaults.
func normalize(cfg *Config) {
	queries := cfg.Arxiv.Queries[:0]
	for _, q := range cfg.Arxiv.Queries {
		q.Name = strings.TrimSpace(q.Name)
		q.SearchQuery = strings.TrimSpace(q.SearchQuery)
		if q.SearchQuery == "" {
			continue
		}
		if q.MaxResults <= 0 {
			q.MaxResults = 50
		}
		if q.SortBy == "" {
			q.SortBy = "submittedDate"
		}
		if q.SortOrder == "" {
			q.SortOrder = "descending"
		}
		queries = append(queries, q)
	}
	cfg.Arxiv.Queries = queries

	if cfg.Issue.LookbackDays < 0 {
		cfg.Issue.LookbackDays = 0
	}
	if cfg.LLM.MaxItems < 0 {
		cfg.LLM.MaxItems = 0
	}
}

func validate(cfg *Config) error {
	validSortBy := map[string]bool{"submittedDate": true, "lastUpdatedDate": true, "relevance": true}
	validSortOrder := map[string]bool{"ascending": true, "descending": true}
	for _, q := range cfg.Arxiv.Queries {
		if !validSortBy[q.SortBy] {
			return fmt.Errorf("query %q: unknown sort_by %q (valid: submittedDate, lastUpdatedDate, relevance)", q.Name, q.SortBy)
		}
		if !validSortOrder[q.SortOrder] {
			return fmt.Errorf("query %q: unknown sort_order %q (valid: ascending, descending)", q.Name, q.SortOrder)
		}
	}
	for _, p := range cfg.LLM.ProviderPreference {
		if _, ok := providerEnv[p]; !ok {
			return fmt.Errorf("unknown llm provider %q (valid: deepseek, openai)", p)
		}
	}
	return nil
}

// PathsFrom resolves every configured path relative to the config file's
// directory; absolute paths pass through untouched.
func (c *Config) PathsFrom(configPath string) Paths {
	base := configPath
	if abs, err := filepath.Abs(configPath); err == nil {
		base = abs
	}
	dir := filepath.Dir(base)
	p := func(value string) string {
		if filepath.IsAbs(value) {
			return value
		}
		return filepath.Join(dir, value)
	}
	return Paths{
		State:     p(c.Data.StatePath),
		Collected: p(c.Data.CollectedPath),
		Summaries: p(c.Data.SummariesPath),
		IssuesDir: p(c.Output.IssuesDir),
		Index:     p(c.Output.IndexPath),
		Archive:   p(c.Archive.Path),
	}
}

var providerEnv = map[string]string{
	"deepseek": "DEEPSEEK_API_KEY",
	"openai":   "OPENAI_API_KEY",
}

// PickProvider walks llm.provider_preference and returns the first provider
// whose API key is present in the environment. ok is false when none is set.
func (c *Config) PickProvider() (provider, apiKey string, ok bool) {
	for _, name := range c.LLM.ProviderPreference {
		if key := os.Getenv(providerEnv[name]); key != "" {
			return name, key, true
		}
	}
	return "", "", false
}

// LLMBaseURL returns the configured base URL for provider, or its
// well-known default.
func (c *Config) LLMBaseURL(provider string) string {
	if u := c.LLM.BaseURL[provider]; u != "" {
		return u
	}
	if provider == "deepseek" {
		return "https://api.deepseek.com/v1"
	}
	return "https://api.openai.com/v1"
}

// LLMModel returns the configured model for provider, or its default.
func (c *Config) LLMModel(provider string) string {
	if m := c.LLM.Model[provider]; m != "" {
		return m
	}
	if provider == "deepseek" {
		return "deepseek-chat"
	}
	return "gpt-4o-mini"
}
