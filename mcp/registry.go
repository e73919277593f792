package mcp

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ToolRegistry manages the mapping between cobra commands and MCP tools
type ToolRegistry struct {
	config *Config
	tools  map[string]*ToolDefinition
}

// ToolDefinition represents an MCP tool definition
type ToolDefinition struct {
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	InputSchema Schema         `json:"inputSchema"`
	Command     *cobra.Command `json:"-"`
}

// Schema represents a JSON schema for tool input
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property represents a JSON schema property
type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Items       *Property   `json:"items,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

// NewToolRegistry creates a new tool registry
func NewToolRegistry(config *Config) *ToolRegistry {
	return &ToolRegistry{
		config: config,
		tools:  make(map[string]*ToolDefinition),
	}
}

// RegisterCommand registers a cobra command as an MCP tool
func (r *ToolRegistry) RegisterCommand(cmd *cobra.Command) error {
	if !r.shouldExposeCommand(cmd) {
		return nil
	}
	tool, err := r.commandToTool(cmd)
	if err != nil {
		return fmt.Errorf("failed to convert command to tool: %w", err)
	}
	r.tools[tool.Name] = tool
	return nil
}

// RegisterCommandTree recursively registers a command and its subcommands
func (r *ToolRegistry) RegisterCommandTree(cmd *cobra.Command) error {
	if err := r.RegisterCommand(cmd); err != nil {
		return err
	}
	for _, subCmd := range cmd.Commands() {
		if err := r.RegisterCommandTree(subCmd); err != nil {
			return err
		}
	}
	return nil
}

// GetTools returns all registered tools
func (r *ToolRegistry) GetTools() map[string]*ToolDefinition {
	return r.tools
}

// GetTool returns a specific tool by name
func (r *ToolRegistry) GetTool(name string) (*ToolDefinition, bool) {
	tool, exists := r.tools[name]
	return tool, exists
}

// Names lists the registered tool names in order.
func (r *ToolRegistry) Names() []string {
	return sortedKeys(r.tools)
}

func (r *ToolRegistry) shouldExposeCommand(cmd *cobra.Command) bool {
	if cmd.Parent() == nil || !cmd.Runnable() || cmd.Hidden {
		return false
	}

	cmdPath := getCommandPath(cmd)
	for _, blocked := range r.config.Tools.Exclude {
		if matched, _ := regexp.MatchString(blocked, cmdPath); matched {
			return false
		}
	}
	if r.config.Tools.AutoExpose {
		return true
	}
	for _, allowed := range r.config.Tools.Include {
		if matched, _ := regexp.MatchString(allowed, cmdPath); matched {
			return true
		}
	}
	return false
}

// commandToTool builds the input schema from the command's local flags.
func (r *ToolRegistry) commandToTool(cmd *cobra.Command) (*ToolDefinition, error) {
	cmdPath := getCommandPath(cmd)

	schema := Schema{
		Type:       "object",
		Properties: make(map[string]Property),
		Required:   []string{},
	}

	if cmd.Args != nil {
		schema.Properties["args"] = Property{
			Type:        "array",
			Description: "Positional arguments for the command",
			Items:       &Property{Type: "string"},
		}
	}

	cmd.LocalNonPersistentFlags().VisitAll(func(flag *pflag.Flag) {
		if flag.Hidden {
			return
		}
		schema.Properties[flag.Name] = flagProperty(flag)
		if isRequired(flag) {
			schema.Required = append(schema.Required, flag.Name)
		}
	})
	sort.Strings(schema.Required)

	description := cmd.Short
	if override, exists := r.config.Tools.Descriptions[cmdPath]; exists {
		description = override
	}

	appName := "app"
	if root := getRootCommand(cmd); root != nil {
		appName = root.Name()
	}

	return &ToolDefinition{
		Name:        cmdPath,
		Title:       fmt.Sprintf("%s %s", appName, cmdPath),
		Description: description,
		InputSchema: schema,
		Command:     cmd,
	}, nil
}

func flagProperty(flag *pflag.Flag) Property {
	prop := Property{Description: flag.Usage}
	switch flag.Value.Type() {
	case "bool":
		prop.Type = "boolean"
		prop.Default = flag.DefValue == "true"
	case "int", "int8", "int16", "int32", "int64", "uint", "count":
		prop.Type = "integer"
		prop.Default = flag.DefValue
	case "float32", "float64":
		prop.Type = "number"
		prop.Default = flag.DefValue
	case "stringArray", "stringSlice":
		prop.Type = "array"
		prop.Items = &Property{Type: "string"}
	default:
		prop.Type = "string"
		if flag.DefValue != "" {
			prop.Default = flag.DefValue
		}
	}
	return prop
}

// RequiredAnnotation lists a flag as required in the tool schema without
// cobra enforcing it, for commands that report missing input themselves.
const RequiredAnnotation = "mcp_required"

func isRequired(flag *pflag.Flag) bool {
	for _, key := range []string{cobra.BashCompOneRequiredFlag, RequiredAnnotation} {
		if values, ok := flag.Annotations[key]; ok && len(values) > 0 && values[0] == "true" {
			return true
		}
	}
	return false
}

// getCommandPath returns the full command path (e.g., "insert_svg", "mcp serve")
func getCommandPath(cmd *cobra.Command) string {
	if cmd.Parent() == nil {
		return cmd.Name()
	}
	parts := []string{}
	for c := cmd; c.Parent() != nil; c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	return strings.Join(parts, " ")
}

func getRootCommand(cmd *cobra.Command) *cobra.Command {
	for cmd.Parent() != nil {
		cmd = cmd.Parent()
	}
	return cmd
}

// ListToolsResponse represents the MCP tools/list response
type ListToolsResponse struct {
	Tools []ToolDefinition `json:"tools"`
}

// ToListResponse lists the tools sorted by name
func (r *ToolRegistry) ToListResponse() *ListToolsResponse {
	return &ListToolsResponse{
		Tools: lo.Map(r.Names(), func(name string, _ int) ToolDefinition {
			tool := *r.tools[name]
			tool.Command = nil
			return tool
		}),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
