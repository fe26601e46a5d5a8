package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"essaygrader/internal/extract"
	"essaygrader/internal/llm"
	"essaygrader/internal/rubric"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Scoring ScoringConfig `yaml:"scoring"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" env:"PORT,overwrite,default=8000"`
	AllowedOrigins []string `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS,overwrite,default=*"`
	MaxUploadBytes int64    `yaml:"maxUploadBytes" env:"MAX_UPLOAD_BYTES,overwrite,default=10485760"`
	MetricsEnabled bool     `yaml:"metricsEnabled" env:"METRICS_ENABLED,overwrite,default=true"`
}

type LLMConfig struct {
	Provider string `yaml:"provider" env:"LLM_PROVIDER,overwrite,default=openai"`
	// Model falls back to the provider default when empty.
	Model     string        `yaml:"model" env:"MODEL_NAME,overwrite"`
	BaseURL   string        `yaml:"baseURL" env:"LLM_BASE_URL,overwrite"`
	Timeout   time.Duration `yaml:"timeout" env:"LLM_TIMEOUT,overwrite,default=45s"`
	MaxTokens int           `yaml:"maxTokens" env:"LLM_MAX_TOKENS,overwrite,default=1024"`

	OpenAIAPIKey    string `yaml:"openaiApiKey" env:"OPENAI_API_KEY,overwrite"`
	GeminiAPIKey    string `yaml:"geminiApiKey" env:"GEMINI_API_KEY,overwrite"`
	AnthropicAPIKey string `yaml:"anthropicApiKey" env:"ANTHROPIC_API_KEY,overwrite"`
}

type ScoringConfig struct {
	FixedTextLimit    int `yaml:"fixedTextLimit" env:"FIXED_TEXT_LIMIT,overwrite,default=5000"`
	FlexibleTextLimit int `yaml:"flexibleTextLimit" env:"FLEX_TEXT_LIMIT,overwrite,default=6000"`
	PDFMaxPages       int `yaml:"pdfMaxPages" env:"PDF_MAX_PAGES,overwrite,default=5"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL,overwrite,default=info"`
}

// LoadConfig builds the configuration from, in increasing priority: built-in
// defaults, the YAML file at path (optional), a .env file in the working
// directory, and the process environment.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that would keep the server from working.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case llm.ProviderOpenAI, llm.ProviderGemini, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}
	if c.APIKey() == "" {
		return fmt.Errorf("missing API key for provider %q (set %s)", c.LLM.Provider, keyEnv(c.LLM.Provider))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}
	for _, o := range c.Server.AllowedOrigins {
		if o == "*" {
			continue
		}
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("invalid origin %q in ALLOWED_ORIGINS", o)
		}
	}
	if c.Scoring.FixedTextLimit <= 0 || c.Scoring.FlexibleTextLimit <= 0 {
		return errors.New("text limits must be positive")
	}
	if c.Scoring.PDFMaxPages <= 0 {
		return errors.New("PDF_MAX_PAGES must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	switch c.LLM.Provider {
	case llm.ProviderGemini:
		return c.LLM.GeminiAPIKey
	case llm.ProviderAnthropic:
		return c.LLM.AnthropicAPIKey
	default:
		return c.LLM.OpenAIAPIKey
	}
}

// ModelName is the model reported by /health and in every score response.
func (c *Config) ModelName() string {
	if c.LLM.Model != "" {
		return c.LLM.Model
	}
	return llm.DefaultModel(c.LLM.Provider)
}

func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		Provider:  c.LLM.Provider,
		Model:     c.ModelName(),
		APIKey:    c.APIKey(),
		BaseURL:   c.LLM.BaseURL,
		Timeout:   c.LLM.Timeout,
		MaxTokens: c.LLM.MaxTokens,
	}
}

func (c *Config) ExtractConfig() extract.Config {
	return extract.Config{MaxPages: c.Scoring.PDFMaxPages}
}

// AllowsAnyOrigin reports whether CORS is fully permissive.
func (c *Config) AllowsAnyOrigin() bool {
	return len(c.Server.AllowedOrigins) == 0 || lo.Contains(c.Server.AllowedOrigins, "*")
}

// Defaults returns a configuration with every default applied and no credentials.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 10 << 20,
			MetricsEnabled: true,
		},
		LLM: LLMConfig{
			Provider:  llm.ProviderOpenAI,
			Timeout:   llm.DefaultTimeout,
			MaxTokens: llm.DefaultMaxTokens,
		},
		Scoring: ScoringConfig{
			FixedTextLimit:    rubric.DefaultFixedTextLimit,
			FlexibleTextLimit: rubric.DefaultFlexibleTextLimit,
			PDFMaxPages:       extract.DefaultMaxPages,
		},
		Log: LogConfig{Level: "info"},
	}
}

func keyEnv(provider string) string {
	switch provider {
	case llm.ProviderGemini:
		return "GEMINI_API_KEY"
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
