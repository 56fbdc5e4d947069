package inkwell

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	defaults "github.com/inkfall/inkwell/default"
)

// Config represents the user's inkwell configuration.
type Config struct {
	Version   int             `toml:"version" json:"version"`
	Purpose   string          `toml:"purpose" json:"purpose"`
	API       APIConfig       `toml:"api" json:"api"`
	Insertion ModeConfig      `toml:"insertion" json:"insertion"`
	Editing   ModeConfig      `toml:"editing" json:"editing"`
	Context   ContextConfig   `toml:"context" json:"context"`
	Embedding EmbeddingConfig `toml:"embedding" json:"embedding"`
}

// APIConfig holds settings for the completion API shared by both modes.
type APIConfig struct {
	BaseURL     string `toml:"base_url" json:"base_url"`
	APIKey      string `toml:"api_key" json:"api_key"`
	APIType     string `toml:"api_type" json:"api_type"`
	Model       string `toml:"model" json:"model"`
	MaxAttempts int    `toml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
}

// ModeConfig holds the per-mode settings: model override, forwarded
// generation parameters, and few-shot example messages.
type ModeConfig struct {
	// Model overrides api.model for this mode when non-empty.
	Model string `toml:"model,omitempty" json:"model,omitempty"`
	// Params is forwarded verbatim into the completion request body.
	Params map[string]any `toml:"params,omitempty" json:"params,omitempty"`
	// FewShot messages are placed between the system message and the
	// request context, in configured order.
	FewShot []FewShotMessage `toml:"fewshot,omitempty" json:"fewshot,omitempty"`
}

// FewShotMessage is one configured example message.
type FewShotMessage struct {
	Role    string `toml:"role" json:"role"`
	Name    string `toml:"name,omitempty" json:"name,omitempty"`
	Content string `toml:"content" json:"content"`
}

// ContextConfig holds settings for ambient context gathering.
type ContextConfig struct {
	// Categories are the default context categories when a request names none.
	Categories []string `toml:"categories,omitempty" json:"categories,omitempty"`
	// TTLMinutes is how long category files stay cached before re-reading.
	TTLMinutes int `toml:"ttl_minutes,omitempty" json:"ttl_minutes,omitempty"`
}

// EmbeddingConfig holds settings for the embedding API used by the snippet index.
type EmbeddingConfig struct {
	BaseURL            string `toml:"base_url" json:"base_url"`
	APIKey             string `toml:"api_key" json:"api_key"`
	Model              string `toml:"model" json:"model"`
	Dimensions         int    `toml:"dimensions,omitempty" json:"dimensions,omitempty"`
	TTLMinutes         int    `toml:"ttl_minutes,omitempty" json:"ttl_minutes,omitempty"`
	MaxJournalSnippets int    `toml:"max_journal_snippets,omitempty" json:"max_journal_snippets,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $INKWELL_CONFIG_DIR > $XDG_CONFIG_HOME/inkwell > ~/.config/inkwell
func ConfigDir() string {
	if dir := os.Getenv("INKWELL_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "inkwell")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "inkwell-config")
	}
	return filepath.Join(home, ".config", "inkwell")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// InsertionPromptPath returns the custom insertion prompt template path.
func InsertionPromptPath() string {
	return filepath.Join(ConfigDir(), "insertion_prompt.md")
}

// EditingPromptPath returns the custom editing prompt template path.
func EditingPromptPath() string {
	return filepath.Join(ConfigDir(), "editing_prompt.md")
}

// ContextDir returns the directory holding category context files
// (<category>.md, one file per category).
func ContextDir() string {
	return filepath.Join(ConfigDir(), "context")
}

// JournalPath returns the snippet journal path.
func JournalPath() string {
	return filepath.Join(ConfigDir(), "journal.txt")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("inkwell: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing fields
	def := DefaultConfig()
	if cfg.Purpose == "" {
		cfg.Purpose = def.Purpose
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = def.API.BaseURL
	}
	if cfg.API.APIType == "" {
		cfg.API.APIType = def.API.APIType
	}
	if cfg.API.Model == "" {
		cfg.API.Model = def.API.Model
	}
	if cfg.API.MaxAttempts == 0 {
		cfg.API.MaxAttempts = def.API.MaxAttempts
	}
	if cfg.Insertion.Params == nil {
		cfg.Insertion.Params = def.Insertion.Params
	}
	if cfg.Insertion.FewShot == nil {
		cfg.Insertion.FewShot = def.Insertion.FewShot
	}
	if cfg.Editing.Params == nil {
		cfg.Editing.Params = def.Editing.Params
	}
	if cfg.Editing.FewShot == nil {
		cfg.Editing.FewShot = def.Editing.FewShot
	}
	if cfg.Context.Categories == nil {
		cfg.Context.Categories = def.Context.Categories
	}
	if cfg.Context.TTLMinutes == 0 {
		cfg.Context.TTLMinutes = def.Context.TTLMinutes
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = def.Embedding.Dimensions
	}
	if cfg.Embedding.TTLMinutes == 0 {
		cfg.Embedding.TTLMinutes = def.Embedding.TTLMinutes
	}
	if cfg.Embedding.MaxJournalSnippets == 0 {
		cfg.Embedding.MaxJournalSnippets = def.Embedding.MaxJournalSnippets
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	if cfg.API.MaxAttempts < 0 {
		warnings = append(warnings, "api.max_attempts is negative; requests will fail without calling the backend")
	}
	if _, err := os.Stat(JournalPath()); err == nil && !EmbeddingEnabled(cfg) {
		warnings = append(warnings, "a snippet journal exists but the embedding API is not configured; relevant-snippet context will be unavailable")
	}
	switch cfg.API.APIType {
	case "", "chat_completions", "responses":
	default:
		warnings = append(warnings, "api.api_type is not one of chat_completions or responses: "+cfg.API.APIType)
	}
	return warnings
}

// ResolveBaseURL returns the completion API base URL.
// Priority: $INKWELL_API_BASE_URL env > config value.
func ResolveBaseURL(cfg *Config) string {
	if url := os.Getenv("INKWELL_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.API.BaseURL
	}
	return ""
}

// ResolveAPIKey returns the completion API key.
// Priority: $INKWELL_API_KEY env > config value.
func ResolveAPIKey(cfg *Config) string {
	if key := os.Getenv("INKWELL_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.API.APIKey
	}
	return ""
}

// ResolveModel returns the completion model for the given mode section,
// falling back to the shared api.model.
// Priority: $INKWELL_MODEL env > mode model > api.model.
func ResolveModel(cfg *Config, mode *ModeConfig) string {
	if model := os.Getenv("INKWELL_MODEL"); model != "" {
		return model
	}
	if mode != nil && mode.Model != "" {
		return mode.Model
	}
	if cfg != nil {
		return cfg.API.Model
	}
	return ""
}

// ResolveEmbeddingBaseURL returns the embedding API base URL.
// Priority: $INKWELL_EMBEDDING_API_BASE_URL env > config value.
func ResolveEmbeddingBaseURL(cfg *Config) string {
	if url := os.Getenv("INKWELL_EMBEDDING_API_BASE_URL"); url != "" {
		return url
	}
	if cfg != nil {
		return cfg.Embedding.BaseURL
	}
	return ""
}

// ResolveEmbeddingAPIKey returns the embedding API key.
// Priority: $INKWELL_EMBEDDING_API_KEY env > config value.
func ResolveEmbeddingAPIKey(cfg *Config) string {
	if key := os.Getenv("INKWELL_EMBEDDING_API_KEY"); key != "" {
		return key
	}
	if cfg != nil {
		return cfg.Embedding.APIKey
	}
	return ""
}

// ResolveEmbeddingModel returns the embedding model name.
// Priority: $INKWELL_EMBEDDING_MODEL env > config value.
func ResolveEmbeddingModel(cfg *Config) string {
	if model := os.Getenv("INKWELL_EMBEDDING_MODEL"); model != "" {
		return model
	}
	if cfg != nil {
		return cfg.Embedding.Model
	}
	return ""
}

// EmbeddingEnabled returns true when both base_url and api_key are configured for embedding.
func EmbeddingEnabled(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return ResolveEmbeddingBaseURL(cfg) != "" && ResolveEmbeddingAPIKey(cfg) != ""
}
