package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meigma/ultra/internal/pathutil"
	"github.com/meigma/ultra/internal/ui"
	"github.com/meigma/ultra/internal/watch"
	"github.com/meigma/ultra/library"
	"github.com/meigma/ultra/project"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-scan the project whenever its files change",
		Long: `Watch the project directory and re-scan after changes settle. The
database is saved after every scan that changed the index.

Use Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.openProject(); err != nil {
				return err
			}
			p := a.ws.Project()
			out := cmd.OutOrStdout()

			w, err := watch.New(p.Root(),
				watch.WithDebounce(debounce),
				watch.WithIgnore(ignoreProjectFiles),
				watch.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			fmt.Fprintln(out, ui.FormatInfo("Watching "+p.Root()))
			fmt.Fprintln(out, ui.FormatMuted("Press Ctrl+C to stop"))
			return w.Run(ctx, func() error {
				report, err := a.ws.Activate()
				if err != nil {
					return err
				}
				if !report.Changed() {
					return nil
				}
				printItems(out, report.Items)
				return a.ws.SaveProject("")
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-scanning")
	return cmd
}

// ignoreProjectFiles skips the Library, the database, and temp files left
// by atomic writes.
func ignoreProjectFiles(rel string) bool {
	if pathutil.Within(rel, library.DirName) {
		return true
	}
	base := pathutil.Base(rel)
	return base == project.DatabaseName || strings.HasPrefix(base, ".ultra-")
}
