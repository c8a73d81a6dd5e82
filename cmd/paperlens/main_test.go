// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperlens/pkg/types"
)

func withSecrets(t *testing.T, s map[string]string) {
	t.Helper()
	prev := loadedSecrets
	loadedSecrets = s
	t.Cleanup(func() { loadedSecrets = prev })
}

func TestLoadConfigDefaults(t *testing.T) {
	withSecrets(t, nil)
	v := viper.New()
	setDefaults(v, types.DefaultConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	want := types.DefaultConfig()
	want.Search.UserAgent = want.HTTP.UserAgent
	assert.Equal(t, want, cfg)
}

func TestLoadConfigOverridesAndSecrets(t *testing.T) {
	withSecrets(t, map[string]string{
		secretGemini:          "gem-key",
		secretAnthropic:       "claude-key",
		secretSemanticScholar: "s2-key",
		secretOpenAlexEmail:   "me@example.org",
	})
	v := viper.New()
	setDefaults(v, types.DefaultConfig())
	v.Set("classifier.provider", "gemini")
	v.Set("relevance.task_timeout", "15s")
	v.Set("metadata.api_key", "configured")

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, types.ProviderGemini, cfg.Classifier.Provider)
	assert.Equal(t, "gem-key", cfg.Classifier.APIKey)
	assert.Equal(t, 15*time.Second, cfg.Relevance.TaskTimeout)
	// Configured values win over secrets.
	assert.Equal(t, "configured", cfg.Metadata.APIKey)
	assert.Equal(t, "s2-key", cfg.Search.SemanticScholarAPIKey)
	assert.Equal(t, "me@example.org", cfg.HTTP.Email)
	assert.Equal(t, "me@example.org", cfg.Search.Email)
}

func TestParseKinds(t *testing.T) {
	kinds, err := parseKinds([]string{"raw_text", " analysis ", ""})
	require.NoError(t, err)
	assert.Equal(t, []types.ArtifactKind{types.KindRawText, types.KindAnalysis}, kinds)

	_, err = parseKinds([]string{"figures"})
	assert.ErrorContains(t, err, "figures")

	kinds, err = parseKinds(nil)
	require.NoError(t, err)
	assert.Empty(t, kinds)
}

func TestCachedID(t *testing.T) {
	assert.Equal(t, types.PaperID("1706.03762"), cachedID("https://arxiv.org/abs/1706.03762v5"))
	assert.Equal(t, types.PaperID("some-cached-id"), cachedID(" some-cached-id "))
}

func TestAnalysisMarkdown(t *testing.T) {
	md := analysisMarkdown(types.Analysis{
		PaperTitle: "Attention Is All You Need",
		Summary: types.Summary{
			MainContribution: "The Transformer.",
			Applications:     []string{"machine translation", " ", "summarization"},
		},
		Benchmarks: []types.Benchmark{
			{Name: "WMT14 En-De", Score: "28.4", Metric: "BLEU", IsThisPaperResult: true},
			{Name: "a|b", Score: "1", Metric: "x"},
		},
	})

	assert.Contains(t, md, "# Attention Is All You Need\n")
	assert.Contains(t, md, "0. machine translation\n1. summarization\n")
	assert.Contains(t, md, "| WMT14 En-De | 28.4 | BLEU | yes |")
	assert.Contains(t, md, `| a\|b | 1 | x |  |`)
	assert.NotContains(t, md, "Analogy")
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, nil)
	assert.Equal(t, "Cache is empty.\n", buf.String())

	buf.Reset()
	printStatus(&buf, []types.ArtifactStatus{{
		PaperID: "1706.03762",
		Present: map[types.ArtifactKind]bool{types.KindRawText: true},
	}})
	assert.Contains(t, buf.String(), "raw_text")
	assert.Contains(t, buf.String(), "1706.03762")
	assert.Contains(t, buf.String(), "yes")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestAuthorList(t *testing.T) {
	assert.Equal(t, "", authorList(nil))
	assert.Equal(t, "Ashish Vaswani", authorList([]string{"Ashish Vaswani"}))
	assert.Equal(t, "Ashish Vaswani et al.", authorList([]string{"Ashish Vaswani", "Noam Shazeer"}))
}

func TestConfigDumpRedactsKeys(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Classifier.APIKey = "sk-secret"
	cfg.OCR.APIKey = "ocr-secret"

	var buf bytes.Buffer
	require.NoError(t, writeConfigYAML(&buf, redact(cfg)))
	out := buf.String()

	assert.NotContains(t, out, "sk-secret")
	assert.NotContains(t, out, "ocr-secret")
	assert.Contains(t, out, "api_key: REDACTED")
	assert.Contains(t, out, "timeout: 1m0s")
	assert.Contains(t, out, "db_path: data/papers.db")
	// Empty keys stay empty and are omitted.
	assert.Empty(t, redact(types.DefaultConfig()).Metadata.APIKey)
	assert.Equal(t, "sk-secret", cfg.Classifier.APIKey)
}
