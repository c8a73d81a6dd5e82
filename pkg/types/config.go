// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single request, including document downloads.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperlens/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries caps retries on 429/503 responses (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Email is sent to OpenAlex as the polite-pool mailto parameter.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`
}

// CacheConfig locates the artifact store and the application ledger.
type CacheConfig struct {
	// Dir is the cache root; per-paper directories, index.json and
	// applications.json live directly beneath it.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// OCRConfig configures the OCR backend, an OpenAI-compatible
// chat-completions endpoint serving a vision model.
type OCRConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Model   string `json:"model" yaml:"model" mapstructure:"model"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// ProbeTimeout bounds the availability probe (default 5s).
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// PageTimeout bounds the OCR call for a single page (default 120s).
	PageTimeout time.Duration `json:"page_timeout" yaml:"page_timeout" mapstructure:"page_timeout"`

	// DPI is the rasterization resolution (default 180).
	DPI int `json:"dpi" yaml:"dpi" mapstructure:"dpi"`

	// MaxTokens caps the completion length per page (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// TextLayerBackend identifies the text-layer extraction tool.
type TextLayerBackend string

const (
	TextLayerNative     TextLayerBackend = "native"
	TextLayerMarkitdown TextLayerBackend = "markitdown"
)

// TextLayerConfig selects the fallback extraction backend.
type TextLayerConfig struct {
	Backend TextLayerBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
}

// ClassifierProvider names a classification service implementation.
type ClassifierProvider string

const (
	ProviderClaude ClassifierProvider = "claude"
	ProviderGemini ClassifierProvider = "gemini"
)

// ClassifierConfig holds settings for the classification service.
type ClassifierConfig struct {
	Provider ClassifierProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxInputChars truncates analysis input (default 20000).
	MaxInputChars int `json:"max_input_chars" yaml:"max_input_chars" mapstructure:"max_input_chars"`

	// MaxTokens caps the response length (default 8192).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// MetadataConfig holds settings for the Semantic Scholar metadata provider.
type MetadataConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// RecommendationLimit caps recommendations fetched per paper (default 10).
	RecommendationLimit int `json:"recommendation_limit" yaml:"recommendation_limit" mapstructure:"recommendation_limit"`

	// CitationLimit caps citations kept per paper (default 20).
	CitationLimit int `json:"citation_limit" yaml:"citation_limit" mapstructure:"citation_limit"`
}

// SearchConfig holds settings for the discovery sources.
type SearchConfig struct {
	// MaxResults is the number of hits requested per source (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EnableArxiv controls whether the arXiv source is used.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// EnableSemanticScholar controls whether the Semantic Scholar source is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnableOpenAlex controls whether the OpenAlex source is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// UserAgent and Email are copied from HTTPConfig by the caller.
	UserAgent string `json:"-" yaml:"-" mapstructure:"-"`
	Email     string `json:"-" yaml:"-" mapstructure:"-"`
}

// RelevanceConfig bounds the relevance fan-out.
type RelevanceConfig struct {
	// Workers is the maximum number of candidates processed at once (default 8).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// TaskTimeout bounds one candidate's metadata fetch plus classification
	// (default 60s).
	TaskTimeout time.Duration `json:"task_timeout" yaml:"task_timeout" mapstructure:"task_timeout"`

	// DiscoveryLimit is the number of hits requested from discovery (default 10).
	DiscoveryLimit int `json:"discovery_limit" yaml:"discovery_limit" mapstructure:"discovery_limit"`
}

// LibraryConfig locates the tracked-paper database.
type LibraryConfig struct {
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`

	// SeedDefaults inserts the curated paper list into an empty library.
	SeedDefaults bool `json:"seed_defaults" yaml:"seed_defaults" mapstructure:"seed_defaults"`
}

// InboxConfig configures the watched directory for local PDFs.
type InboxConfig struct {
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Debounce collapses bursts of write events on one file (default 2s).
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the endpoint.
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups every setting. The CLI fills it from viper.
type Config struct {
	HTTP       HTTPConfig       `json:"http" yaml:"http" mapstructure:"http"`
	Cache      CacheConfig      `json:"cache" yaml:"cache" mapstructure:"cache"`
	OCR        OCRConfig        `json:"ocr" yaml:"ocr" mapstructure:"ocr"`
	TextLayer  TextLayerConfig  `json:"text_layer" yaml:"text_layer" mapstructure:"text_layer"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier" mapstructure:"classifier"`
	Metadata   MetadataConfig   `json:"metadata" yaml:"metadata" mapstructure:"metadata"`
	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	Relevance  RelevanceConfig  `json:"relevance" yaml:"relevance" mapstructure:"relevance"`
	Library    LibraryConfig    `json:"library" yaml:"library" mapstructure:"library"`
	Inbox      InboxConfig      `json:"inbox" yaml:"inbox" mapstructure:"inbox"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Timeout:    60 * time.Second,
			UserAgent:  "paperlens/0.1",
			MaxRetries: 5,
		},
		Cache: CacheConfig{Dir: "data/cache"},
		OCR: OCRConfig{
			Enabled:      true,
			BaseURL:      "http://localhost:8000",
			Model:        "zai-org/GLM-OCR",
			ProbeTimeout: 5 * time.Second,
			PageTimeout:  120 * time.Second,
			DPI:          180,
			MaxTokens:    4096,
		},
		TextLayer: TextLayerConfig{Backend: TextLayerNative},
		Classifier: ClassifierConfig{
			Provider:      ProviderClaude,
			Model:         "claude-sonnet-4-5-20250929",
			MaxRetries:    3,
			MaxInputChars: 20000,
			MaxTokens:     8192,
		},
		Metadata: MetadataConfig{
			RecommendationLimit: 10,
			CitationLimit:       20,
		},
		Search: SearchConfig{
			MaxResults:            10,
			EnableArxiv:           true,
			EnableSemanticScholar: false,
		},
		Relevance: RelevanceConfig{
			Workers:        8,
			TaskTimeout:    60 * time.Second,
			DiscoveryLimit: 10,
		},
		Library: LibraryConfig{
			DBPath:       "data/papers.db",
			SeedDefaults: true,
		},
		Inbox: InboxConfig{
			Dir:      "inbox",
			Debounce: 2 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}
