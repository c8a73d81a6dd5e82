// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paperlens/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the discovery sources for papers",
	Long: `Search queries the enabled discovery sources (arXiv, Semantic Scholar,
OpenAlex) concurrently. Results are deduplicated across sources and ranked
by position. --save writes the query and results to a YAML file that
--load replays without hitting the network.`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	loadPath, _ := cmd.Flags().GetString("load")
	savePath, _ := cmd.Flags().GetString("save")
	asJSON, _ := cmd.Flags().GetBool("json")
	asCSL, _ := cmd.Flags().GetBool("csl")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		fsys := afero.NewOsFs()

		var out search.Output
		if loadPath != "" {
			qf, err := search.ReadQueryFile(fsys, loadPath)
			if err != nil {
				return err
			}
			out = search.Output{
				Results:       qf.Results,
				DupsRemoved:   qf.Summary.DuplicatesRemoved,
				BackendErrors: qf.Summary.BackendErrors,
			}
		} else {
			q, err := queryFromFlags(cmd)
			if err != nil {
				return err
			}
			cfg := a.cfg.Search
			if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
				cfg.MaxResults = n
			}
			if len(a.backends) == 0 {
				return fmt.Errorf("no discovery sources enabled")
			}
			out, err = search.Search(ctx, q, a.backends, cfg, a.log)
			if err != nil {
				return err
			}
			for _, e := range out.BackendErrors {
				fmt.Fprintf(os.Stderr, "warning: %s\n", e)
			}
			if savePath != "" {
				if err := search.WriteQueryFile(fsys, savePath, q, out, time.Now()); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "Saved query to %s\n", savePath)
			}
		}

		switch {
		case asCSL:
			return search.FormatCSL(out, os.Stdout)
		case asJSON:
			return search.FormatJSON(out, os.Stdout)
		default:
			search.FormatTable(out, os.Stdout)
		}
		return nil
	})
}

// queryFromFlags builds a Query from the search flags.
func queryFromFlags(cmd *cobra.Command) (search.Query, error) {
	text, _ := cmd.Flags().GetString("query")
	author, _ := cmd.Flags().GetString("author")
	keywords, _ := cmd.Flags().GetString("keywords")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	params := search.QueryParams{
		FreeText: text,
		Author:   author,
		DateFrom: from,
		DateTo:   to,
	}
	for _, k := range strings.Split(keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			params.Keywords = append(params.Keywords, k)
		}
	}
	q, err := params.ToQuery()
	if err != nil {
		return search.Query{}, err
	}
	if q.IsEmpty() {
		return search.Query{}, search.ErrEmptyQuery
	}
	return q, nil
}

func init() {
	searchCmd.Flags().String("query", "", "free-text research question")
	searchCmd.Flags().String("author", "", "filter by author name")
	searchCmd.Flags().String("keywords", "", "filter by keywords (comma-separated)")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().Int("max-results", 0, "maximum number of results (default search.max_results)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().Bool("csl", false, "output results as CSL-YAML")
	searchCmd.Flags().String("save", "", "write the query and results to this YAML file")
	searchCmd.Flags().String("load", "", "print results from a saved query file instead of searching")

	rootCmd.AddCommand(searchCmd)
}
