package main

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meigma/ultra/internal/atomicfile"
	"github.com/meigma/ultra/internal/ui"
	"github.com/meigma/ultra/outcome"
	"github.com/meigma/ultra/preview"
	"github.com/meigma/ultra/project"
)

func newInitCmd(a *app) *cobra.Command {
	var mkdir bool
	cmd := &cobra.Command{
		Use:   "init NAME [DIR]",
		Short: "Create a project",
		Long: `Create a project database in DIR (default: current directory) and
scan it. With --mkdir the project is created in DIR/NAME.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 2 {
				dir = args[1]
			}
			if err := a.ws.NewProject(args[0], dir, mkdir); err != nil {
				return err
			}
			p := a.ws.Project()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ui.FormatSuccess(fmt.Sprintf("Created project %q at %s", p.Name(), p.Root())))
			printItems(out, p.LastScan().Items)
			return nil
		},
	}
	cmd.Flags().BoolVar(&mkdir, "mkdir", false, "create a NAME subdirectory for the project")
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Synchronize the project with its files",
		Long: `Scan the project directory, copy new and changed models and textures
into the Library, drop records for deleted files, and save the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.openProject(); err != nil {
				return err
			}
			p := a.ws.Project()
			report := p.LastScan()
			out := cmd.OutOrStdout()
			printItems(out, report.Items)

			stats := report.Items.Stats()
			fmt.Fprintln(out, ui.FormatInfo(fmt.Sprintf("%d assets tracked, %d changes, %d failures",
				p.Len(), stats.Processed, stats.Failed)))
			if n, err := p.Library().SizeBytes(); err == nil {
				fmt.Fprintln(out, ui.FormatInfo("Library: "+ui.Bytes(uint64(n)))) //nolint:gosec // sizes are non-negative
			}
			if noSave {
				return nil
			}
			return a.ws.SaveProject("")
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not write the database after scanning")
	return cmd
}

func newAssetsCmd(a *app) *cobra.Command {
	var (
		typeName   string
		thumbnails string
	)
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List tracked assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter project.AssetType
			if typeName != "" {
				if err := filter.UnmarshalText([]byte(typeName)); err != nil {
					return err
				}
			}
			if err := a.openProject(); err != nil {
				return err
			}
			p := a.ws.Project()
			out := cmd.OutOrStdout()

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, ui.FormatHeader("ID\tTYPE\tSIZE\tPATH"))
			for _, rec := range p.Assets() {
				if typeName != "" && rec.Type != filter {
					continue
				}
				size := "-"
				if info, err := os.Stat(p.LibraryPath(rec)); err == nil {
					size = ui.Bytes(uint64(info.Size())) //nolint:gosec // file sizes are non-negative
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.ID, rec.Type, size, rec.SourcePath)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if thumbnails == "" {
				return nil
			}
			return writeThumbnails(out, p, a.cfg.PreviewSize, thumbnails)
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "only list assets of this type (model or texture)")
	cmd.Flags().StringVar(&thumbnails, "thumbnails", "", "write texture thumbnails as PNG files into this directory")
	return cmd
}

func writeThumbnails(out io.Writer, p *project.Project, size int, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	r := preview.NewThumbnailer(preview.WithSize(size))
	for id, h := range p.Previews(project.Texture, r) {
		thumb, ok := h.(*preview.Thumbnail)
		if !ok || thumb.Image == nil {
			continue
		}
		path := filepath.Join(dir, id.String()+".png")
		var buf bytes.Buffer
		if err := png.Encode(&buf, thumb.Image); err != nil {
			return fmt.Errorf("encode thumbnail %s: %w", path, err)
		}
		if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write thumbnail %s: %w", path, err)
		}
		fmt.Fprintln(out, ui.FormatMuted("thumbnail "+path))
	}
	return nil
}

func printItems(w io.Writer, items outcome.List) {
	for _, it := range items {
		switch {
		case !it.OK():
			fmt.Fprintln(w, ui.FormatError(fmt.Sprintf("%s %s: %v", it.Action, it.Name, it.Err)))
		case it.Action == outcome.Removed:
			fmt.Fprintln(w, ui.FormatWarning(fmt.Sprintf("%s %s", it.Action, it.Name)))
		default:
			fmt.Fprintln(w, ui.FormatSuccess(fmt.Sprintf("%s %s (%s)", it.Action, it.Name, ui.Bytes(it.Bytes))))
		}
	}
}
