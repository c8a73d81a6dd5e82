// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperlens/internal/acquire"
	"github.com/pdiddy/paperlens/pkg/types"
)

var showCmd = &cobra.Command{
	Use:   "show <locator>",
	Short: "Render a paper's cached text or analysis in the terminal",
	Long: `Show reads the cache only; it never runs a stage. By default it renders
the cached sections as Markdown, falling back to the raw text. --analysis
renders the cached analysis instead, and --yaml prints it as YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	showAnalysis, _ := cmd.Flags().GetBool("analysis")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	plain, _ := cmd.Flags().GetBool("plain")
	style, _ := cmd.Flags().GetString("style")
	width, _ := cmd.Flags().GetInt("width")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		id := cachedID(args[0])

		var md string
		if showAnalysis || asYAML {
			an, found, err := a.store.GetAnalysis(id)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: no cached analysis for %s; run analyze first", types.ErrNotFound, id)
			}
			if asYAML {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(an)
			}
			md = analysisMarkdown(an)
		} else {
			text, err := cachedText(a, id)
			if err != nil {
				return err
			}
			md = text
		}

		if plain {
			fmt.Fprintln(os.Stdout, md)
			return nil
		}
		out, err := renderMarkdown(md, style, width)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, out)
		return nil
	})
}

// cachedID maps a locator to the id its artifacts are stored under. A
// string that is not a locator is taken to be an id already.
func cachedID(locator string) types.PaperID {
	if src, err := acquire.Normalize(locator); err == nil {
		return src.PaperID
	}
	return types.PaperID(strings.TrimSpace(locator))
}

func cachedText(a *app, id types.PaperID) (string, error) {
	sec, found, err := a.store.GetSections(id)
	if err != nil {
		return "", err
	}
	if found && !sec.Degraded() {
		return sec.CleanMarkdown(), nil
	}
	raw, found, err := a.store.GetRawText(id)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: nothing cached for %s; run parse first", types.ErrNotFound, id)
	}
	return raw.Text, nil
}

// analysisMarkdown lays an analysis out as a Markdown document.
func analysisMarkdown(an types.Analysis) string {
	var b strings.Builder
	title := an.PaperTitle
	if title == "" {
		title = "Untitled paper"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "**Contribution.** %s\n\n", an.Summary.MainContribution)
	fmt.Fprintf(&b, "**Methodology.** %s\n\n", an.Summary.Methodology)
	fmt.Fprintf(&b, "**Limitations.** %s\n\n", an.Summary.Limitations)

	b.WriteString("## Novelty\n\n")
	fmt.Fprintf(&b, "- Status quo: %s\n", an.Novelty.StatusQuo)
	fmt.Fprintf(&b, "- Delta: %s\n", an.Novelty.ProposedDelta)
	fmt.Fprintf(&b, "- Summary: %s\n", an.Novelty.NoveltySummary)
	if an.Novelty.RealWorldAnalogy != "" {
		fmt.Fprintf(&b, "- Analogy: %s\n", an.Novelty.RealWorldAnalogy)
	}
	b.WriteString("\n")

	if ideas := an.ApplicationIdeas(); len(ideas) > 0 {
		b.WriteString("## Applications\n\n")
		for i, idea := range ideas {
			fmt.Fprintf(&b, "%d. %s\n", i, idea.Domain)
		}
		b.WriteString("\n")
	}

	if len(an.Benchmarks) > 0 {
		b.WriteString("## Benchmarks\n\n")
		b.WriteString("| Benchmark | Score | Metric | Own |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, bm := range an.Benchmarks {
			own := ""
			if bm.IsThisPaperResult {
				own = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				cell(bm.Name), cell(bm.Score), cell(bm.Metric), own)
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

func renderMarkdown(md, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	return r.Render(md)
}

func init() {
	showCmd.Flags().Bool("analysis", false, "render the cached analysis")
	showCmd.Flags().Bool("yaml", false, "print the cached analysis as YAML")
	showCmd.Flags().Bool("plain", false, "print Markdown without rendering")
	showCmd.Flags().String("style", "auto", "glamour style: auto, dark, light, notty")
	showCmd.Flags().Int("width", 100, "word-wrap width")

	rootCmd.AddCommand(showCmd)
}
