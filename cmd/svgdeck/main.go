package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/flanksource/svgdeck"
	"github.com/flanksource/svgdeck/mcp"
	"github.com/flanksource/svgdeck/shutdown"
	"github.com/flanksource/svgdeck/tools"
)

// Build information (set by goreleaser)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	shutdown.Shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	t := &tools.Tools{}

	rootCmd := &cobra.Command{
		Use:   "svgdeck",
		Short: "Place SVG graphics onto PowerPoint slides",
		Long: `svgdeck inserts SVG graphics into PPTX presentations at positions given in
inches, centimeters, points, pixels, EMU or percent of the slide, and
manages the slides around them.

Every tool prints a status line and exits 0, also when the operation
failed. Run "svgdeck mcp serve" to expose the tools to an MCP client.`,
		Example: `  svgdeck insert_svg --pptx-path deck.pptx --svg-path chart.svg --slide-number 2 --width 50%
  svgdeck batch_insert_svgs --pptx-path deck.pptx --svg-dir charts/
  svgdeck mcp serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := svgdeck.Flags.UseFlags()
			if err != nil {
				return err
			}
			built, err := tools.New(cfg)
			if err != nil {
				return err
			}
			*t = *built
			shutdown.AddHookWithPriority("rasterizers", shutdown.PriorityRenderers, func() {
				if err := t.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "closing rasterizers: %v\n", err)
				}
			})
			return nil
		},
	}

	svgdeck.BindAllFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(tools.Commands(t)...)
	rootCmd.AddCommand(mcp.NewCommand())
	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newInitCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), getVersionInfo())
		},
	}
}

func getVersionInfo() string {
	return fmt.Sprintf("svgdeck %s (commit: %s, built: %s, go: %s)",
		version, commit, date, runtime.Version())
}

func newInitCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		// an unreadable existing config must not block rewriting it
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = svgdeck.DefaultConfigPath()
			}
			if err := svgdeck.SaveConfig(svgdeck.DefaultConfig(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "output", "o", "", "Output file (default ~/.config/svgdeck/config.yaml)")
	return cmd
}
