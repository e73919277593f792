package mcp

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// CommandOptions holds options for MCP command creation
type CommandOptions struct {
	ConfigPath string
	AutoExpose bool
	Timeout    int
}

// NewCommand creates the MCP command group that can be added to any cobra CLI
func NewCommand() *cobra.Command {
	opts := &CommandOptions{}

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP (Model Context Protocol) server management",
		Long: `Run svgdeck as an MCP server and inspect its configuration.

Every tool command (insert_svg, batch_insert_svgs, ...) is exposed as an
MCP tool whose arguments are the command's flags.`,
	}

	mcpCmd.AddCommand(newServeCommand(opts))
	mcpCmd.AddCommand(newConfigCommand(opts))

	mcpCmd.PersistentFlags().StringVar(&opts.ConfigPath, "mcp-config", "", "Path to MCP configuration file (default ~/.config/svgdeck/mcp-config.json)")

	return mcpCmd
}

func (o *CommandOptions) load() (*Config, string, error) {
	configPath := o.ConfigPath
	if configPath == "" {
		configPath = GetConfigPath()
	}
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, configPath, fmt.Errorf("failed to load configuration: %w", err)
	}
	return config, configPath, nil
}

func newServeCommand(opts *CommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run svgdeck as an MCP server on stdio",
		Long: `Start svgdeck as an MCP server speaking JSON-RPC 2.0 over stdin and stdout.

Connect it to an MCP client such as Claude Desktop or Cursor with:

  {"command": "svgdeck", "args": ["mcp", "serve"]}

Logs and the startup banner go to stderr; stdout carries only protocol
messages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, _, err := opts.load()
			if err != nil {
				return err
			}
			if opts.AutoExpose {
				config.Tools.AutoExpose = true
			}
			if opts.Timeout > 0 {
				config.Security.TimeoutSeconds = opts.Timeout
			}

			server := NewMCPServer(config, cmd.Root())
			if err := server.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize MCP server: %w", err)
			}

			displayServerInfo(os.Stderr, config, server.Registry().Names())

			log.Infof("Starting MCP server with %d tools", len(server.Registry().Names()))
			return server.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.AutoExpose, "auto-expose", false, "Expose every command that is not excluded")
	cmd.Flags().IntVar(&opts.Timeout, "timeout", 0, "Override the per-call timeout in seconds")

	return cmd
}

func newConfigCommand(opts *CommandOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the MCP server configuration",
		Long: `Display the MCP server configuration, creating it with defaults when missing.

The configuration controls which commands are exposed as MCP tools, the
per-call timeout and audit logging.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, configPath, err := opts.load()
			if err != nil {
				return err
			}
			displayConfig(cmd.OutOrStdout(), config, configPath)
			return nil
		},
	}
}

// useProfile drops colors when w is not a terminal or NO_COLOR is set.
func useProfile(w io.Writer) {
	f, ok := w.(*os.File)
	if os.Getenv("NO_COLOR") != "" || !ok || !term.IsTerminal(int(f.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// displayServerInfo shows server startup information
func displayServerInfo(w io.Writer, config *Config, tools []string) {
	useProfile(w)
	primaryColor := lipgloss.Color("14")
	accentColor := lipgloss.Color("12")
	successColor := lipgloss.Color("10")
	mutedColor := lipgloss.Color("8")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(1, 2).
		MarginBottom(1)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		Render("svgdeck MCP server")

	content := []string{
		title,
		"",
		fmt.Sprintf("Name: %s", config.Name),
		fmt.Sprintf("Version: %s", config.Version),
		fmt.Sprintf("Transport: %s", config.Transport.Type),
		fmt.Sprintf("Timeout: %ds", config.Security.TimeoutSeconds),
		fmt.Sprintf("Audit logging: %s", boolToStatus(config.Security.AuditLog, successColor, mutedColor)),
		"",
		fmt.Sprintf("Tools (%d):", len(tools)),
	}
	for _, t := range tools {
		content = append(content, fmt.Sprintf("  • %s", t))
	}

	fmt.Fprintf(w, "%s\n", boxStyle.Render(strings.Join(content, "\n")))
}

// displayConfig shows the current configuration
func displayConfig(w io.Writer, config *Config, configPath string) {
	useProfile(w)
	primaryColor := lipgloss.Color("14")
	accentColor := lipgloss.Color("12")
	successColor := lipgloss.Color("10")
	mutedColor := lipgloss.Color("8")

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(primaryColor).
		MarginBottom(1)
	accentStyle := lipgloss.NewStyle().Foreground(accentColor)
	mutedStyle := lipgloss.NewStyle().Foreground(mutedColor)

	fmt.Fprintln(w, titleStyle.Render("MCP Server Configuration"))
	fmt.Fprintf(w, "Config file: %s\n\n", mutedStyle.Render(configPath))

	fmt.Fprintln(w, accentStyle.Render("Server Settings:"))
	fmt.Fprintf(w, "  Name: %s\n", config.Name)
	fmt.Fprintf(w, "  Description: %s\n", config.Description)
	fmt.Fprintf(w, "  Version: %s\n", config.Version)
	fmt.Fprintf(w, "  Transport: %s\n\n", config.Transport.Type)

	fmt.Fprintln(w, accentStyle.Render("Security Settings:"))
	fmt.Fprintf(w, "  Audit logging: %s\n", boolToStatus(config.Security.AuditLog, successColor, mutedColor))
	fmt.Fprintf(w, "  Timeout: %ds\n\n", config.Security.TimeoutSeconds)

	fmt.Fprintln(w, accentStyle.Render("Tool Settings:"))
	fmt.Fprintf(w, "  Auto-expose: %s\n", boolToStatus(config.Tools.AutoExpose, successColor, mutedColor))
	if len(config.Tools.Include) > 0 {
		fmt.Fprintln(w, "  Included commands:")
		for _, cmd := range config.Tools.Include {
			fmt.Fprintf(w, "    • %s\n", cmd)
		}
	}
	if len(config.Tools.Exclude) > 0 {
		fmt.Fprintln(w, "  Excluded commands:")
		for _, cmd := range config.Tools.Exclude {
			fmt.Fprintf(w, "    • %s\n", cmd)
		}
	}
}

func boolToStatus(b bool, enabledColor, disabledColor lipgloss.Color) string {
	if b {
		return lipgloss.NewStyle().Foreground(enabledColor).Render("enabled")
	}
	return lipgloss.NewStyle().Foreground(disabledColor).Render("disabled")
}
