package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/ultra/internal/ui"
)

func newPackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pack DEST",
		Short: "Bundle the project into one archive",
		Long: `Save the project database, then write it and every tracked source file
into the compressed archive DEST. The Library is not included; it is
rebuilt when the pack is unpacked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openProject(); err != nil {
				return err
			}
			report, err := a.ws.PackProject(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printItems(out, report.Items.Failed())
			stats := report.Items.Stats()
			fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Packed %d assets (%s) into %s (%s)",
				stats.Processed, ui.Bytes(stats.TotalBytes), report.Path, ui.Bytes(uint64(report.Bytes))))) //nolint:gosec // non-negative
			return nil
		},
	}
}

func newUnpackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unpack SRC DIR",
		Short: "Restore a packed project into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.ws.UnpackProject(args[0], args[1])
			if err != nil {
				return err
			}
			p := a.ws.Project()
			out := cmd.OutOrStdout()
			printItems(out, report.Items.Failed())
			fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Unpacked project %q into %s (%d assets)",
				p.Name(), p.Root(), p.Len())))
			return nil
		},
	}
}
