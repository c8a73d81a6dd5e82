// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperlens/pkg/types"
)

// withApp builds the app for one command run and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func cacheNote(fromCache bool) string {
	if fromCache {
		return "cached"
	}
	return "fresh"
}

// --- parse ---

var parseCmd = &cobra.Command{
	Use:   "parse <locator>",
	Short: "Extract a paper's raw text",
	Long: `Parse downloads the paper and extracts its text, preferring OCR when the
OCR service answers its probe and falling back to the PDF text layer. The
text is cached; later runs read the cache unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	asJSON, _ := cmd.Flags().GetBool("json")
	printText, _ := cmd.Flags().GetBool("text")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		res := a.pipe.Parse(ctx, args[0], force)
		if err := stageError("parse", res.Result); err != nil {
			return err
		}
		switch {
		case asJSON:
			return writeJSON(os.Stdout, res)
		case printText:
			fmt.Fprintln(os.Stdout, res.Text)
		default:
			fmt.Fprintf(os.Stdout, "%s: %d characters via %s (%s)\n",
				res.PaperID, len(res.Text), res.Method, cacheNote(res.FromCache))
		}
		return nil
	})
}

// --- sections ---

var sectionsCmd = &cobra.Command{
	Use:   "sections <locator>",
	Short: "Segment a paper into its canonical sections",
	Long: `Sections splits the paper's raw text into title, abstract, introduction,
methodology, experiments and conclusion, parsing the paper first if needed.
When the classifier fails the whole text lands under experiments and the map
is marked degraded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSections,
}

func runSections(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	asJSON, _ := cmd.Flags().GetBool("json")
	asMarkdown, _ := cmd.Flags().GetBool("markdown")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		res := a.pipe.Sections(ctx, args[0], force)
		if err := stageError("sections", res.Result); err != nil {
			return err
		}
		switch {
		case asJSON:
			return writeJSON(os.Stdout, res)
		case asMarkdown:
			fmt.Fprintln(os.Stdout, res.Sections.CleanMarkdown())
		default:
			printSections(os.Stdout, res.PaperID, res.Sections, res.FromCache)
		}
		return nil
	})
}

func printSections(w io.Writer, id types.PaperID, s types.SectionMap, fromCache bool) {
	fmt.Fprintf(w, "%s (%s, %s)\n", id, s.Provenance, cacheNote(fromCache))
	if s.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", s.Title)
	}
	fmt.Fprintf(w, "%-14s %8s\n", "SECTION", "CHARS")
	fmt.Fprintln(w, strings.Repeat("-", 23))
	for _, sec := range []struct {
		name, body string
	}{
		{"abstract", s.Abstract},
		{"introduction", s.Introduction},
		{"methodology", s.Methodology},
		{"experiments", s.Experiments},
		{"conclusion", s.Conclusion},
	} {
		fmt.Fprintf(w, "%-14s %8d\n", sec.name, len(sec.body))
	}
	if s.CodeLink != "" {
		fmt.Fprintf(w, "Code: %s\n", s.CodeLink)
	}
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <locator>",
	Short: "Produce a structured analysis of a paper",
	Long: `Analyze asks the classifier for the paper's novelty, summary, application
ideas and benchmark results. Cached sections are used as input when present;
otherwise the raw text is sent, parsing the paper first if needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		res := a.pipe.Analyze(ctx, args[0], force)
		if err := stageError("analyze", res.Result); err != nil {
			return err
		}
		if asJSON {
			return writeJSON(os.Stdout, res)
		}
		printAnalysis(os.Stdout, res.PaperID, res.Analysis, res.FromCache)
		return nil
	})
}

func printAnalysis(w io.Writer, id types.PaperID, an types.Analysis, fromCache bool) {
	fmt.Fprintf(w, "%s: %s (%s)\n\n", id, an.PaperTitle, cacheNote(fromCache))
	fmt.Fprintf(w, "Contribution: %s\n", an.Summary.MainContribution)
	fmt.Fprintf(w, "Novelty:      %s\n", an.Novelty.NoveltySummary)
	fmt.Fprintf(w, "Limitations:  %s\n", an.Summary.Limitations)

	if ideas := an.ApplicationIdeas(); len(ideas) > 0 {
		fmt.Fprintln(w, "\nApplications:")
		for i, idea := range ideas {
			fmt.Fprintf(w, "  [%d] %s\n", i, idea.Domain)
		}
	}
	if own := an.OwnResults(); len(own) > 0 {
		fmt.Fprintf(w, "\n%-30s %-12s %s\n", "BENCHMARK", "SCORE", "METRIC")
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, b := range own {
			fmt.Fprintf(w, "%-30s %-12s %s\n", truncate(b.Name, 30), b.Score, b.Metric)
		}
	}
}

// --- metadata ---

var metadataCmd = &cobra.Command{
	Use:   "metadata <locator>",
	Short: "Fetch bibliographic metadata from Semantic Scholar",
	Long: `Metadata looks the paper up by arXiv id or DOI and caches the record,
including citations and recommendations. A tracked library entry is
refreshed with the fetched title, authors and abstract.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetadata,
}

func runMetadata(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		res := a.pipe.Metadata(ctx, args[0], force)
		if err := stageError("metadata", res.Result); err != nil {
			return err
		}
		if asJSON {
			return writeJSON(os.Stdout, res)
		}
		m := res.Metadata
		fmt.Fprintf(os.Stdout, "%s: %s (%s)\n", res.PaperID, m.Title, cacheNote(res.FromCache))
		fmt.Fprintf(os.Stdout, "Authors:   %s\n", strings.Join(m.AuthorNames(), ", "))
		fmt.Fprintf(os.Stdout, "Year:      %d  Venue: %s\n", m.Year, m.Venue)
		fmt.Fprintf(os.Stdout, "Citations: %d (%d influential)\n", m.CitationCount, m.InfluentialCitationCount)
		if m.TLDR != "" {
			fmt.Fprintf(os.Stdout, "TL;DR:     %s\n", m.TLDR)
		}
		fmt.Fprintf(os.Stdout, "Recommendations: %d\n", len(m.Recommendations))
		return nil
	})
}

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status [locator...]",
	Short: "Show which artifacts are cached",
	Long: `Status reports the cached artifacts for each given paper, or for every
paper in the cache when no locator is given.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		locators := args
		if len(locators) == 0 {
			ids, err := a.store.List()
			if err != nil {
				return err
			}
			for _, id := range ids {
				locators = append(locators, id.String())
			}
		}

		statuses := make([]types.ArtifactStatus, 0, len(locators))
		for _, loc := range locators {
			st, err := a.pipe.Status(loc)
			if err != nil {
				return err
			}
			statuses = append(statuses, st)
		}
		if asJSON {
			return writeJSON(os.Stdout, statuses)
		}
		printStatus(os.Stdout, statuses)
		return nil
	})
}

func printStatus(w io.Writer, statuses []types.ArtifactStatus) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "Cache is empty.")
		return
	}
	fmt.Fprintf(w, "%-28s", "PAPER")
	for _, kind := range types.AllKinds {
		fmt.Fprintf(w, " %-9s", kind)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 28+10*len(types.AllKinds)))
	for _, st := range statuses {
		fmt.Fprintf(w, "%-28s", truncate(st.PaperID.String(), 28))
		for _, kind := range types.AllKinds {
			mark := "-"
			if st.Has(kind) {
				mark = "yes"
			}
			fmt.Fprintf(w, " %-9s", mark)
		}
		fmt.Fprintln(w)
	}
}

// --- clear ---

var clearCmd = &cobra.Command{
	Use:   "clear <locator>",
	Short: "Remove cached artifacts for a paper",
	Long: `Clear removes the paper's cached artifacts. With --kind only the named
kinds are removed; the next stage run recomputes them.`,
	Args: cobra.ExactArgs(1),
	RunE: runClear,
}

func runClear(cmd *cobra.Command, args []string) error {
	kindNames, _ := cmd.Flags().GetStringSlice("kind")
	kinds, err := parseKinds(kindNames)
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		id, err := a.pipe.Clear(args[0], kinds...)
		if err != nil {
			return err
		}
		if len(kinds) == 0 {
			fmt.Fprintf(os.Stdout, "Cleared all artifacts for %s\n", id)
		} else {
			fmt.Fprintf(os.Stdout, "Cleared %v for %s\n", kinds, id)
		}
		return nil
	})
}

// parseKinds validates artifact kind names.
func parseKinds(names []string) ([]types.ArtifactKind, error) {
	var kinds []types.ArtifactKind
	for _, n := range names {
		k := types.ArtifactKind(strings.TrimSpace(n))
		if k == "" {
			continue
		}
		if !k.Valid() {
			return nil, fmt.Errorf("unknown artifact kind %q (want one of %v)", n, types.AllKinds)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func init() {
	for _, c := range []*cobra.Command{parseCmd, sectionsCmd, analyzeCmd, metadataCmd} {
		c.Flags().Bool("force", false, "ignore the cache and recompute")
		c.Flags().Bool("json", false, "output the result as JSON")
	}
	parseCmd.Flags().Bool("text", false, "print the extracted text")
	sectionsCmd.Flags().Bool("markdown", false, "print the sections as Markdown")

	statusCmd.Flags().Bool("json", false, "output as JSON")
	clearCmd.Flags().StringSlice("kind", nil, "artifact kinds to clear: raw_text, sections, metadata, analysis")

	rootCmd.AddCommand(parseCmd, sectionsCmd, analyzeCmd, metadataCmd, statusCmd, clearCmd)
}
