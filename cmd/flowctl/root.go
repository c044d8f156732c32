package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ha1tch/flow-toolkit/pkg/config"
	"github.com/ha1tch/flow-toolkit/pkg/editor"
	"github.com/ha1tch/flow-toolkit/pkg/flowfile"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

var version = "0.3.0"

var (
	configPath string
	settings   = config.Default()
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flowctl",
		Short: "flowctl - inspect, validate and render flow documents",
		Long: Brand.Sprint("flowctl") + " - inspect, validate and render flow documents\n" +
			Subtle.Sprint("Settings come from flowedit.toml, FLOWEDIT_* variables and flags"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			settings = *cfg
			return setupLogging(settings.Log)
		},
	}
	root.SetVersionTemplate("flowctl {{ .Version }}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.FileName, "settings file")
	config.Flags(root.PersistentFlags())

	root.AddCommand(
		infoCmd(),
		validateCmd(),
		exportCmd(),
		layoutCmd(),
		watchCmd(),
		serveCmd(),
	)
	return root
}

func setupLogging(lc config.LogConfig) error {
	lvl, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(lvl)
	logging.SetJSONOutput(lc.JSON)
	return nil
}

// openSession reads a document into a fresh editor session.
func openSession(cfg config.Config, path string) (*editor.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := editor.New(cfg, editor.Options{})
	if err != nil {
		return nil, err
	}
	if err := s.ImportJSON(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// renderOptions sizes exported images from the settings.
func renderOptions(cfg config.Config, title string) flowfile.RenderOptions {
	opts := flowfile.DefaultRenderOptions()
	if cfg.Render.Width > 0 {
		opts.Width = cfg.Render.Width
	}
	if cfg.Render.Height > 0 {
		opts.Height = cfg.Render.Height
	}
	opts.Title = title
	return opts
}

func fail(err error) error {
	Bad.Fprintf(os.Stderr, "flowctl: %v\n", err)
	return err
}
