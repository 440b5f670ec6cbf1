package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all devhelper configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Server  ServerConfig  `yaml:"server"`
	Jira    JiraConfig    `yaml:"jira"`
	GitHub  GitHubConfig  `yaml:"github"`
	LLM     LLMConfig     `yaml:"llm"`
	Browser BrowserConfig `yaml:"browser"`
	Chat    ChatConfig    `yaml:"chat"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`
	CORSOrigin      string `yaml:"cors_origin"`
}

// JiraConfig configures the issue tracker client.
type JiraConfig struct {
	Host          string   `yaml:"host"`
	Email         string   `yaml:"email"`
	APIToken      string   `yaml:"api_token"`
	ProjectID     string   `yaml:"project_id"`
	IssueTypeID   string   `yaml:"issue_type_id"`
	Labels        []string `yaml:"labels"`
	CriteriaField string   `yaml:"criteria_field"`
	Timeout       string   `yaml:"timeout"`
}

// GitHubConfig configures the source-control client.
type GitHubConfig struct {
	Token          string `yaml:"token"`
	BaseURL        string `yaml:"base_url"` // GitHub Enterprise API root; empty for github.com
	Timeout        string `yaml:"timeout"`
	MaxConcurrency int    `yaml:"max_concurrency"`
}

// LLMConfig selects a provider per role and holds provider credentials.
type LLMConfig struct {
	Review   string `yaml:"review"`   // provider used by the PR analyzer
	QA       string `yaml:"qa"`       // provider used by scenario parsing and reports
	Drafting string `yaml:"drafting"` // provider used by ticket drafting and chat

	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Gemini    ProviderConfig `yaml:"gemini"`

	Timeout string `yaml:"timeout"`
}

// ProviderConfig holds one LLM provider's settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// BrowserConfig configures the headless browser used by QA runs.
type BrowserConfig struct {
	Headless          bool     `yaml:"headless"`
	Bin               string   `yaml:"bin"`
	Flags             []string `yaml:"flags"`       // extra Chrome flags, e.g. --no-sandbox
	ControlURL        string   `yaml:"control_url"` // attach to a running Chrome instead of launching
	ViewportWidth     int      `yaml:"viewport_width"`
	ViewportHeight    int      `yaml:"viewport_height"`
	NavigationTimeout string   `yaml:"navigation_timeout"`
	ActionTimeout     string   `yaml:"action_timeout"`
}

// ChatConfig configures the chat assistant session registry.
type ChatConfig struct {
	SessionTTL    string `yaml:"session_ttl"`
	ReapInterval  string `yaml:"reap_interval"`
	CompleteAfter int    `yaml:"complete_after"` // messages before a session is reported complete
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // console, json
	File       string          `yaml:"file"`
	MaxSizeMB  int             `yaml:"max_size_mb"`
	MaxBackups int             `yaml:"max_backups"`
	MaxAgeDays int             `yaml:"max_age_days"`
	Categories map[string]bool `yaml:"categories"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{ProviderAnthropic, ProviderOpenAI, ProviderGemini}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "devhelper",
		Version: "1.0.0",

		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     "30s",
			WriteTimeout:    "5m",
			ShutdownTimeout: "15s",
			MaxBodyBytes:    1 << 20,
			CORSOrigin:      "*",
		},

		Jira: JiraConfig{
			ProjectID:     "10000",
			IssueTypeID:   "10000",
			Labels:        []string{"automation"},
			CriteriaField: "customfield_10115",
			Timeout:       "30s",
		},

		GitHub: GitHubConfig{
			Timeout:        "30s",
			MaxConcurrency: 4,
		},

		LLM: LLMConfig{
			Review:   ProviderAnthropic,
			QA:       ProviderAnthropic,
			Drafting: ProviderOpenAI,
			Anthropic: ProviderConfig{
				Model:   "claude-3-5-sonnet-20241022",
				BaseURL: "https://api.anthropic.com/v1",
			},
			OpenAI: ProviderConfig{
				Model:   "gpt-5-mini",
				BaseURL: "https://api.openai.com/v1",
			},
			Gemini: ProviderConfig{
				Model: "gemini-2.5-flash",
			},
			Timeout: "120s",
		},

		Browser: BrowserConfig{
			Headless:          true,
			ViewportWidth:     1366,
			ViewportHeight:    768,
			NavigationTimeout: "30s",
			ActionTimeout:     "10s",
		},

		Chat: ChatConfig{
			SessionTTL:    "1h",
			ReapInterval:  "5m",
			CompleteAfter: 18,
		},

		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},

		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment variables are applied last in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("JIRA_HOST"); v != "" {
		c.Jira.Host = v
	}
	if v := os.Getenv("JIRA_EMAIL"); v != "" {
		c.Jira.Email = v
	}
	if v := os.Getenv("JIRA_API_TOKEN"); v != "" {
		c.Jira.APIToken = v
	}
	if v := os.Getenv("JIRA_PROJECT_ID"); v != "" {
		c.Jira.ProjectID = v
	}
	if v := os.Getenv("JIRA_TICKET_LABELS"); v != "" {
		c.Jira.Labels = splitList(v)
	}

	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.Anthropic.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.Gemini.APIKey = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	// DEBUG_BROWSER=true shows the browser window.
	if os.Getenv("DEBUG_BROWSER") == "true" {
		c.Browser.Headless = false
	}
	if v := os.Getenv("CHROME_BIN"); v != "" {
		c.Browser.Bin = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetLLMTimeout returns the per-call LLM timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetJiraTimeout returns the issue tracker HTTP timeout.
func (c *Config) GetJiraTimeout() time.Duration {
	return parseDuration(c.Jira.Timeout, 30*time.Second)
}

// GetGitHubTimeout returns the source-control HTTP timeout.
func (c *Config) GetGitHubTimeout() time.Duration {
	return parseDuration(c.GitHub.Timeout, 30*time.Second)
}

// GetNavigationTimeout returns the page navigation timeout.
func (c *Config) GetNavigationTimeout() time.Duration {
	return parseDuration(c.Browser.NavigationTimeout, 30*time.Second)
}

// GetActionTimeout returns the per-scenario browser action timeout.
func (c *Config) GetActionTimeout() time.Duration {
	return parseDuration(c.Browser.ActionTimeout, 10*time.Second)
}

// GetSessionTTL returns the chat session TTL.
func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration(c.Chat.SessionTTL, time.Hour)
}

// GetReapInterval returns how often expired chat sessions are swept.
func (c *Config) GetReapInterval() time.Duration {
	return parseDuration(c.Chat.ReapInterval, 5*time.Minute)
}

// GetReadTimeout returns the HTTP server read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the HTTP server write timeout. It must cover a
// whole QA run.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 5*time.Minute)
}

// GetShutdownTimeout returns the graceful shutdown deadline.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 15*time.Second)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Provider returns the settings for a provider name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderAnthropic:
		return c.LLM.Anthropic, true
	case ProviderOpenAI:
		return c.LLM.OpenAI, true
	case ProviderGemini:
		return c.LLM.Gemini, true
	}
	return ProviderConfig{}, false
}

// HasProviderKey reports whether the provider for a role has credentials.
func (c *Config) HasProviderKey(name string) bool {
	p, ok := c.Provider(name)
	return ok && p.APIKey != ""
}

// HasJira reports whether issue tracker credentials are present.
func (c *Config) HasJira() bool {
	return c.Jira.Host != "" && c.Jira.Email != "" && c.Jira.APIToken != ""
}

// Services reports which API features have the credentials they need.
type Services struct {
	PRAnalyzer    bool `json:"prAnalyzer"`
	QAAgent       bool `json:"qaAgent"`
	TicketCreator bool `json:"ticketCreator"`
}

// Services returns feature availability derived from credentials.
func (c *Config) Services() Services {
	return Services{
		PRAnalyzer:    c.HasProviderKey(c.LLM.Review) && c.GitHub.Token != "",
		QAAgent:       c.HasProviderKey(c.LLM.QA) && c.HasJira(),
		TicketCreator: c.HasProviderKey(c.LLM.Drafting) && c.HasJira(),
	}
}

// Validate validates the configuration. Missing credentials are not errors;
// the affected features report unavailable through Services.
func (c *Config) Validate() error {
	for role, p := range map[string]string{
		"llm.review":   c.LLM.Review,
		"llm.qa":       c.LLM.QA,
		"llm.drafting": c.LLM.Drafting,
	} {
		if _, ok := c.Provider(p); !ok {
			return fmt.Errorf("invalid LLM provider for %s: %q (valid: %v)", role, p, ValidProviders)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if c.Chat.CompleteAfter <= 0 {
		return fmt.Errorf("chat.complete_after must be positive")
	}
	return nil
}
