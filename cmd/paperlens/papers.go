// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperlens/internal/library"
	"github.com/pdiddy/paperlens/pkg/types"
)

var addCmd = &cobra.Command{
	Use:   "add <locator>...",
	Short: "Track papers in the library",
	Long: `Add checks that each paper exists (arXiv ids against arXiv, DOIs against
CrossRef, local paths on disk) and adds it to the library. Papers already
tracked are reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		var failed int
		for _, loc := range args {
			res := a.pipe.Add(ctx, loc)
			switch {
			case res.Success:
				fmt.Fprintf(os.Stdout, "Added %s: %s\n", res.Paper.PaperID, res.Paper.Title)
			case errors.Is(res.Err(), types.ErrAlreadyExists):
				fmt.Fprintf(os.Stdout, "Already tracked: %s\n", res.PaperID)
			default:
				failed++
				fmt.Fprintf(os.Stderr, "add %s: %s\n", loc, res.Error)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d paper(s) could not be added", failed)
		}
		return nil
	})
}

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "List or search the tracked papers",
	Long: `Papers lists the library newest first. --search runs a full-text query
over titles and abstracts. --yaml and --json export the whole library.`,
	Args: cobra.NoArgs,
	RunE: runPapers,
}

func runPapers(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetInt("limit")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	asJSON, _ := cmd.Flags().GetBool("json")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if query == "" {
			switch {
			case asYAML:
				return a.library.ExportYAML(ctx, os.Stdout)
			case asJSON:
				return a.library.ExportJSON(ctx, os.Stdout)
			}
		}

		var (
			papers []types.LibraryPaper
			err    error
		)
		if query != "" {
			papers, err = a.library.Search(ctx, query, limit)
		} else {
			papers, err = a.library.List(ctx)
		}
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(os.Stdout, papers)
		}
		printPapers(os.Stdout, papers)
		return nil
	})
}

func printPapers(w io.Writer, papers []types.LibraryPaper) {
	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers.")
		return
	}
	fmt.Fprintf(w, "%-20s %-50s %-25s %s\n", "PAPER", "TITLE", "AUTHORS", "ADDED")
	fmt.Fprintln(w, strings.Repeat("-", 108))
	for _, p := range papers {
		fmt.Fprintf(w, "%-20s %-50s %-25s %s\n",
			truncate(p.PaperID.String(), 20),
			truncate(p.Title, 50),
			truncate(authorList(p.Authors), 25),
			p.AddedAt.Format("2006-01-02"))
	}
}

func authorList(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	default:
		return authors[0] + " et al."
	}
}

func init() {
	papersCmd.Flags().String("search", "", "full-text query over titles and abstracts")
	papersCmd.Flags().Int("limit", library.DefaultSearchLimit, "maximum number of search hits")
	papersCmd.Flags().Bool("yaml", false, "export the library as YAML")
	papersCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(addCmd, papersCmd)
}
