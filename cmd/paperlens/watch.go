// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/paperlens/internal/inbox"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Parse PDFs dropped into the inbox directory",
	Long: `Watch parses and segments every PDF already in the inbox, then keeps
watching the directory. A new file is processed once its writes settle; a
file that is rewritten in place is parsed again. --once stops after the
backlog.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	once, _ := cmd.Flags().GetBool("once")
	dirFlag, _ := cmd.Flags().GetString("dir")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		dir := a.cfg.Inbox.Dir
		if dirFlag != "" {
			dir = dirFlag
		}
		dir, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating inbox %s: %w", dir, err)
		}

		backlog, err := inbox.Scan(afero.NewOsFs(), dir)
		if err != nil {
			return err
		}
		for _, path := range backlog {
			ingest(ctx, a, path, false)
		}
		if once {
			return nil
		}

		w, err := inbox.New(dir, a.cfg.Inbox.Debounce, a.log)
		if err != nil {
			return err
		}
		defer w.Close()

		events, err := w.Watch(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", dir)
		for ev := range events {
			ingest(ctx, a, ev.Path, ev.Op == inbox.Modified)
		}
		return nil
	})
}

// ingest parses and segments one inbox file. Failures are reported and
// never stop the watch.
func ingest(ctx context.Context, a *app, path string, force bool) {
	log := a.log.With(zap.String("path", path))

	parsed := a.pipe.Parse(ctx, path, force)
	if !parsed.Success {
		log.Warn("inbox parse failed", zap.String("error", parsed.Error))
		fmt.Fprintf(os.Stderr, "%s: parse failed: %s\n", filepath.Base(path), parsed.Error)
		return
	}
	sec := a.pipe.Sections(ctx, path, force)
	if !sec.Success {
		log.Warn("inbox segmentation failed", zap.String("error", sec.Error))
		fmt.Fprintf(os.Stdout, "%s: parsed as %s (%s), not segmented\n", filepath.Base(path), parsed.PaperID, parsed.Method)
		return
	}
	fmt.Fprintf(os.Stdout, "%s: parsed as %s (%s, sections %s)\n",
		filepath.Base(path), parsed.PaperID, parsed.Method, sec.Sections.Provenance)
}

func init() {
	watchCmd.Flags().String("dir", "", "inbox directory (default inbox.dir)")
	watchCmd.Flags().Bool("once", false, "process the backlog and exit")

	rootCmd.AddCommand(watchCmd)
}
