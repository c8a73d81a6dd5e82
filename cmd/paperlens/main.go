// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperlens CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperlens/internal/secrets"
	"github.com/pdiddy/paperlens/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// Secret file names under .secrets/.
const (
	secretAnthropic       = "anthropic-api-key"
	secretGemini          = "gemini-api-key"
	secretSemanticScholar = "semantic-scholar-api-key"
	secretOpenAlexEmail   = "openalex-email"
	secretOCR             = "ocr-api-key"
)

// secretDefault returns fallback when it is set, else the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

var rootCmd = &cobra.Command{
	Use:   "paperlens",
	Short: "Parse, analyze and relate research papers",
	Long: `paperlens turns research papers into structured, cached artifacts.

A paper is named by an arXiv id, a DOI, a URL or a local PDF path. The parse,
sections, analyze and metadata stages each cache their result under the
cache directory, so repeating a stage costs nothing. discover takes an
application idea from a paper's analysis, finds related papers and keeps the
ones a language model judges relevant; saved ideas accumulate in the
applications ledger. add and papers manage a library of tracked papers, and
watch parses PDFs dropped into the inbox directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", secrets.Keys(s))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperlens.yaml or ~/.config/paperlens/paperlens.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides log.level)")
	rootCmd.PersistentFlags().String("cache-dir", "", "artifact cache directory (overrides cache.dir)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("cache.dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("metrics.addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))
}

func initConfig() {
	setDefaults(viper.GetViper(), types.DefaultConfig())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperlens")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperlens"))
		}
	}

	viper.SetEnvPrefix("PAPERLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of def with v so that environment
// variables and flags can override keys the config file leaves out.
func setDefaults(v *viper.Viper, def types.Config) {
	v.SetDefault("http.timeout", def.HTTP.Timeout)
	v.SetDefault("http.user_agent", def.HTTP.UserAgent)
	v.SetDefault("http.max_retries", def.HTTP.MaxRetries)
	v.SetDefault("http.email", def.HTTP.Email)

	v.SetDefault("cache.dir", def.Cache.Dir)

	v.SetDefault("ocr.enabled", def.OCR.Enabled)
	v.SetDefault("ocr.base_url", def.OCR.BaseURL)
	v.SetDefault("ocr.model", def.OCR.Model)
	v.SetDefault("ocr.api_key", def.OCR.APIKey)
	v.SetDefault("ocr.probe_timeout", def.OCR.ProbeTimeout)
	v.SetDefault("ocr.page_timeout", def.OCR.PageTimeout)
	v.SetDefault("ocr.dpi", def.OCR.DPI)
	v.SetDefault("ocr.max_tokens", def.OCR.MaxTokens)

	v.SetDefault("text_layer.backend", string(def.TextLayer.Backend))

	v.SetDefault("classifier.provider", string(def.Classifier.Provider))
	v.SetDefault("classifier.model", def.Classifier.Model)
	v.SetDefault("classifier.api_key", def.Classifier.APIKey)
	v.SetDefault("classifier.max_retries", def.Classifier.MaxRetries)
	v.SetDefault("classifier.max_input_chars", def.Classifier.MaxInputChars)
	v.SetDefault("classifier.max_tokens", def.Classifier.MaxTokens)

	v.SetDefault("metadata.api_key", def.Metadata.APIKey)
	v.SetDefault("metadata.recommendation_limit", def.Metadata.RecommendationLimit)
	v.SetDefault("metadata.citation_limit", def.Metadata.CitationLimit)

	v.SetDefault("search.max_results", def.Search.MaxResults)
	v.SetDefault("search.enable_arxiv", def.Search.EnableArxiv)
	v.SetDefault("search.enable_semantic_scholar", def.Search.EnableSemanticScholar)
	v.SetDefault("search.enable_openalex", def.Search.EnableOpenAlex)
	v.SetDefault("search.semantic_scholar_api_key", def.Search.SemanticScholarAPIKey)

	v.SetDefault("relevance.workers", def.Relevance.Workers)
	v.SetDefault("relevance.task_timeout", def.Relevance.TaskTimeout)
	v.SetDefault("relevance.discovery_limit", def.Relevance.DiscoveryLimit)

	v.SetDefault("library.db_path", def.Library.DBPath)
	v.SetDefault("library.seed_defaults", def.Library.SeedDefaults)

	v.SetDefault("inbox.dir", def.Inbox.Dir)
	v.SetDefault("inbox.debounce", def.Inbox.Debounce)

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
}

// loadConfig decodes v into a Config and fills API keys the configuration
// leaves empty from loaded secrets.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}

	switch cfg.Classifier.Provider {
	case types.ProviderGemini:
		cfg.Classifier.APIKey = secretDefault(secretGemini, cfg.Classifier.APIKey)
	default:
		cfg.Classifier.APIKey = secretDefault(secretAnthropic, cfg.Classifier.APIKey)
	}
	cfg.Metadata.APIKey = secretDefault(secretSemanticScholar, cfg.Metadata.APIKey)
	cfg.Search.SemanticScholarAPIKey = secretDefault(secretSemanticScholar, cfg.Search.SemanticScholarAPIKey)
	cfg.HTTP.Email = secretDefault(secretOpenAlexEmail, cfg.HTTP.Email)
	cfg.OCR.APIKey = secretDefault(secretOCR, cfg.OCR.APIKey)

	cfg.Search.UserAgent = cfg.HTTP.UserAgent
	cfg.Search.Email = cfg.HTTP.Email
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
