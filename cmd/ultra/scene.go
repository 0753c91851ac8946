package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/ultra"
	"github.com/meigma/ultra/archive"
	"github.com/meigma/ultra/codec"
	"github.com/meigma/ultra/internal/ui"
	"github.com/meigma/ultra/outcome"
)

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save SPEC DEST",
		Short: "Save a scene archive",
		Long: `Save the scene described by the JSON file SPEC into the archive DEST.
The .ultra extension is appended to DEST when missing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openProject(); err != nil {
				return err
			}
			savables, err := readSceneSpec(args[0], a.ws.Project().Root())
			if err != nil {
				return err
			}
			report, err := a.ws.SaveScene(savables, args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printItems(out, report.Items)
			fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Saved scene %q to %s (%s)",
				ultra.SceneName(report.Path), report.Path, ui.Bytes(uint64(report.Bytes))))) //nolint:gosec // non-negative
			return nil
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	var printDoc bool
	cmd := &cobra.Command{
		Use:   "load SRC",
		Short: "Load a scene archive into the project",
		Long: `Extract the model resources of the scene archive SRC into the project
Library. The archive file is removed after a successful load.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openProject(); err != nil {
				return err
			}
			res, err := a.ws.LoadScene(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printItems(out, res.Items)
			fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Loaded scene %q with %d models",
				ultra.SceneName(args[0]), len(res.Models()))))
			if !printDoc {
				return nil
			}
			data, err := json.MarshalIndent(res.Document, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&printDoc, "print", false, "print the loaded scene document")
	return cmd
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect ARCHIVE",
		Short: "List the entries of a scene or pack archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := readArchive(a, args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, ui.FormatHeader("NAME\tSIZE"))
			var items outcome.List
			for e, err := range r.All() {
				if err != nil {
					return err
				}
				items.Add(e.Name, outcome.Stored, e.Size)
				fmt.Fprintf(tw, "%s\t%s\n", e.Name, ui.Bytes(e.Size))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			stats := items.Stats()
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatInfo(fmt.Sprintf("%d entries, %s uncompressed",
				stats.Processed, ui.Bytes(stats.TotalBytes))))
			return nil
		},
	}
}

func readArchive(a *app, path string) (*archive.Reader, error) {
	c, err := codec.New(codec.WithAlgorithm(a.cfg.Algorithm()), codec.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	defer c.Close()
	blob, err := os.ReadFile(path) //nolint:gosec // user-supplied archive path
	if err != nil {
		return nil, err
	}
	data, err := c.Decode(blob)
	if err != nil {
		return nil, err
	}
	return archive.NewReader(data), nil
}
