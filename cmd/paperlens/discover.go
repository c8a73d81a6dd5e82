// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperlens/internal/pipeline"
	"github.com/pdiddy/paperlens/internal/search"
	"github.com/pdiddy/paperlens/pkg/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <locator>",
	Short: "Find papers relevant to one of a paper's application ideas",
	Long: `Discover takes application idea --idea (default 0, the first) from the
paper's cached analysis, searches the discovery sources with it, adds the
paper's metadata recommendations as seeds, and asks the classifier which
candidates are relevant. The paper must be analyzed first.

--save appends the idea and the accepted papers to the applications ledger.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ideaIndex, _ := cmd.Flags().GetInt("idea")
	save, _ := cmd.Flags().GetBool("save")
	asJSON, _ := cmd.Flags().GetBool("json")
	showAudit, _ := cmd.Flags().GetBool("audit")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		res := a.pipe.Discover(ctx, args[0], ideaIndex)
		if err := stageError("discover", res.Result); err != nil {
			return err
		}

		if asJSON {
			if err := writeJSON(os.Stdout, res); err != nil {
				return err
			}
		} else {
			printDiscovery(os.Stdout, res, showAudit)
		}

		if save {
			entry, err := a.pipe.SaveApplication(ctx, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved application %s to %s\n", entry.ID, a.ledger.Path())
		}
		return nil
	})
}

func printDiscovery(w io.Writer, res pipeline.DiscoverResult, showAudit bool) {
	fmt.Fprintf(w, "Idea: %s\n", res.Idea.Domain)
	fmt.Fprintf(w, "From: %s (%s)\n", res.Source.Title, res.Source.PaperID)
	fmt.Fprintf(w, "Candidates: %d discovered, %d unique, %d accepted\n\n",
		res.Discovered, res.Unique, len(res.Accepted))

	if len(res.Accepted) == 0 {
		fmt.Fprintln(w, "No relevant papers found.")
	} else {
		printCandidates(w, res.Accepted)
	}

	if !showAudit {
		return
	}
	fmt.Fprintf(w, "\n%-20s %-9s %s\n", "PAPER", "OUTCOME", "REASON")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, d := range res.Audit {
		reason := d.Reason
		if d.Error != "" {
			reason = d.Error
		}
		if d.Warning != "" {
			reason += " (" + d.Warning + ")"
		}
		fmt.Fprintf(w, "%-20s %-9s %s\n", truncate(d.PaperID.String(), 20), d.Outcome, truncate(reason, 50))
	}
}

func printCandidates(w io.Writer, papers []types.CandidatePaper) {
	fmt.Fprintf(w, "%-20s %-55s %s\n", "PAPER", "TITLE", "AUTHORS")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, p := range papers {
		fmt.Fprintf(w, "%-20s %-55s %s\n",
			truncate(p.PaperID.String(), 20), truncate(p.Title, 55), truncate(authorList(p.Authors), 25))
	}
}

var applicationsCmd = &cobra.Command{
	Use:   "applications [id]",
	Short: "List saved application ideas",
	Long: `Applications lists the ledger of saved application ideas, oldest first.
With an id it shows one entry and its related papers; --csl writes the
related papers as CSL-YAML for citation tools.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApplications,
}

func runApplications(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		var entries []types.ApplicationLedgerEntry
		if len(args) == 1 {
			e, err := a.ledger.Get(args[0])
			if err != nil {
				return err
			}
			entries = []types.ApplicationLedgerEntry{e}
		} else {
			var err error
			if entries, err = a.ledger.List(); err != nil {
				return err
			}
		}

		switch {
		case asCSL:
			var items []search.CSLItem
			seen := make(map[types.PaperID]bool)
			for _, e := range entries {
				for _, p := range e.RelatedPapers {
					if seen[p.PaperID] {
						continue
					}
					seen[p.PaperID] = true
					items = append(items, search.CandidateCSL(p))
				}
			}
			return search.WriteCSL(items, os.Stdout)
		case asJSON:
			return writeJSON(os.Stdout, entries)
		case len(args) == 1:
			e := entries[0]
			fmt.Fprintf(os.Stdout, "%s  %s\n", e.ID, e.Application.Domain)
			fmt.Fprintf(os.Stdout, "Utility: %s\n", e.Application.SpecificUtility)
			fmt.Fprintf(os.Stdout, "From:    %s (%s)\n\n", e.SourcePaper.Title, e.SourcePaper.PaperID)
			printCandidates(os.Stdout, e.RelatedPapers)
		default:
			printLedger(os.Stdout, entries)
		}
		return nil
	})
}

func printLedger(w io.Writer, entries []types.ApplicationLedgerEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No saved applications.")
		return
	}
	fmt.Fprintf(w, "%-22s %-35s %-20s %s\n", "ID", "DOMAIN", "SOURCE", "RELATED")
	fmt.Fprintln(w, strings.Repeat("-", 88))
	for _, e := range entries {
		fmt.Fprintf(w, "%-22s %-35s %-20s %d\n",
			e.ID, truncate(e.Application.Domain, 35), truncate(e.SourcePaper.PaperID.String(), 20), len(e.RelatedPapers))
	}
}

func init() {
	discoverCmd.Flags().Int("idea", 0, "index of the application idea to discover for")
	discoverCmd.Flags().Bool("save", false, "append the result to the applications ledger")
	discoverCmd.Flags().Bool("json", false, "output the result as JSON")
	discoverCmd.Flags().Bool("audit", false, "show the decision for every candidate")

	applicationsCmd.Flags().Bool("json", false, "output as JSON")
	applicationsCmd.Flags().Bool("csl", false, "write related papers as CSL-YAML")

	rootCmd.AddCommand(discoverCmd, applicationsCmd)
}
