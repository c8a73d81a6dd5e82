// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperlens/pkg/types"
)

const redacted = "REDACTED"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long: `Config prints the configuration after defaults, the config file,
PAPERLENS_* environment variables, flags and .secrets/ are applied. API keys
are redacted. The output is a valid paperlens.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		return writeConfigYAML(os.Stdout, redact(cfg))
	},
}

// redact blanks out credentials so the dump is safe to share.
func redact(cfg types.Config) types.Config {
	for _, key := range []*string{
		&cfg.Classifier.APIKey,
		&cfg.Metadata.APIKey,
		&cfg.Search.SemanticScholarAPIKey,
		&cfg.OCR.APIKey,
	} {
		if *key != "" {
			*key = redacted
		}
	}
	return cfg
}

func writeConfigYAML(w io.Writer, cfg types.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	rootCmd.AddCommand(configCmd)
}
