package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meigma/ultra"
	"github.com/meigma/ultra/config"
	"github.com/meigma/ultra/internal/ui"
)

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	projectDir string

	cfg    *config.Config
	logger *slog.Logger
	ws     *ultra.Workspace
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "ultra",
		Short: "Keep a scene editor project in sync with its asset library",
		Long: ui.FormatTitle("ultra") + " - project asset sync and portable scene archives\n\n" +
			"Tracks the models and textures under a project directory, mirrors them\n" +
			"into the project's Library, and saves scenes and whole projects into\n" +
			"compressed archives.",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ultra/config.yaml)")
	cmd.PersistentFlags().StringVarP(&a.projectDir, "project", "C", ".", "project directory")

	cmd.AddCommand(
		newInitCmd(a),
		newScanCmd(a),
		newAssetsCmd(a),
		newSaveCmd(a),
		newLoadCmd(a),
		newInspectCmd(a),
		newPackCmd(a),
		newUnpackCmd(a),
		newWatchCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	ui.SetTheme(cfg.ColorTheme)

	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	a.logger = logger

	ws, err := ultra.New(ultra.WithConfig(cfg), ultra.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}
	a.ws = ws
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.ws == nil {
		return nil
	}
	return a.ws.Close()
}

// openProject loads the project named by --project.
func (a *app) openProject() error {
	if err := a.ws.OpenProject(a.projectDir); err != nil {
		return fmt.Errorf("failed to open project %s: %w", a.projectDir, err)
	}
	return nil
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
