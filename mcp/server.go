package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var log = logger.GetLogger("mcp")

const (
	protocolVersion = "2024-11-05"
	maxRequestSize  = 32 << 20
)

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// MCPServer exposes cobra commands as MCP tools over JSON-RPC 2.0. Requests
// are handled one at a time, in arrival order.
type MCPServer struct {
	config         *Config
	registry       *ToolRegistry
	promptRegistry *PromptRegistry
	rootCmd        *cobra.Command
}

// NewMCPServer creates a new MCP server
func NewMCPServer(config *Config, rootCmd *cobra.Command) *MCPServer {
	promptRegistry := NewPromptRegistry()
	promptRegistry.LoadDefaults()

	promptsPath := GetPromptsPath()
	if _, err := os.Stat(promptsPath); err == nil {
		if err := promptRegistry.LoadFromFile(promptsPath); err != nil {
			log.Warnf("ignoring custom prompts: %v", err)
		}
	}

	return &MCPServer{
		config:         config,
		registry:       NewToolRegistry(config),
		promptRegistry: promptRegistry,
		rootCmd:        rootCmd,
	}
}

// Initialize registers all commands with the tool registry
func (s *MCPServer) Initialize() error {
	return s.registry.RegisterCommandTree(s.rootCmd)
}

// Registry exposes the registered tools.
func (s *MCPServer) Registry() *ToolRegistry {
	return s.registry
}

// Start serves stdin/stdout until EOF or ctx is cancelled
func (s *MCPServer) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC message per line from in and writes responses
// to out. Notifications get no response.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxRequestSize)
	encoder := json.NewEncoder(out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("stdin scan error: %w", err)
			}
			return nil
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		response := s.handleJSONRPCRequest(ctx, line)
		if response == nil {
			continue
		}
		if err := encoder.Encode(response); err != nil {
			log.Errorf("Error writing response: %v", err)
		}
	}
}

// JSONRPCRequest represents an MCP JSON-RPC request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents an MCP JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSONRPCError represents an MCP JSON-RPC error
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func result(req JSONRPCRequest, v interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: v}
}

func failure(req JSONRPCRequest, code int, format string, args ...interface{}) *JSONRPCResponse {
	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error:   &JSONRPCError{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

func (s *MCPServer) handleJSONRPCRequest(ctx context.Context, line []byte) *JSONRPCResponse {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return failure(req, codeParseError, "Parse error")
	}

	// notifications carry no id and expect no answer
	if req.ID == nil && strings.HasPrefix(req.Method, "notifications/") {
		log.Debugf("notification %s", req.Method)
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "ping":
		return result(req, map[string]interface{}{})
	case "tools/list":
		return result(req, s.registry.ToListResponse())
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "prompts/list":
		return s.handlePromptsList(req)
	case "prompts/get":
		return s.handlePromptsGet(req)
	default:
		return failure(req, codeMethodNotFound, "Method not found")
	}
}

func (s *MCPServer) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	return result(req, map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities": map[string]interface{}{
			"tools":   map[string]interface{}{"listChanged": false},
			"prompts": map[string]interface{}{"listChanged": false},
		},
		"serverInfo": map[string]interface{}{
			"name":    s.config.Name,
			"version": s.config.Version,
		},
	})
}

// ToolCallParams represents the parameters for a tools/call request
type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolCallResult represents the result of a tool call
type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock represents a content block in MCP
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (s *MCPServer) handleToolsCall(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req, codeInvalidParams, "Invalid params")
	}

	tool, exists := s.registry.GetTool(params.Name)
	if !exists {
		return failure(req, codeInvalidParams, "Tool not found: %s", params.Name)
	}
	return result(req, s.executeTool(ctx, tool, params.Arguments))
}

// executeTool runs the tool's command with args applied to its flags and
// returns what the command printed.
func (s *MCPServer) executeTool(ctx context.Context, tool *ToolDefinition, args map[string]interface{}) *ToolCallResult {
	timeout := time.Duration(s.config.Security.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := tool.Command
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	cmd.SetContext(ctx)
	defer func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	}()

	started := time.Now()
	err := s.runCommand(cmd, args)
	text := strings.TrimSpace(output.String())
	isError := err != nil || strings.HasPrefix(text, "Error:")

	if s.config.Security.AuditLog {
		status := "success"
		if isError {
			status = "failed"
		}
		log.Infof("MCP tool executed: %s with args: %v (%s in %s)", tool.Name, args, status, time.Since(started).Round(time.Millisecond))
	}

	content := []ContentBlock{}
	if text != "" {
		content = append(content, ContentBlock{Type: "text", Text: text})
	}
	if err != nil {
		content = append(content, ContentBlock{Type: "text", Text: fmt.Sprintf("Error: %v", err)})
	}
	return &ToolCallResult{Content: content, IsError: isError}
}

func (s *MCPServer) runCommand(cmd *cobra.Command, args map[string]interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", cmd.Name(), r)
		}
	}()

	flags := cmd.LocalNonPersistentFlags()
	if err := resetFlags(flags); err != nil {
		return err
	}
	positional, err := applyArgsToFlags(flags, args)
	if err != nil {
		return err
	}
	if err := cmd.ValidateRequiredFlags(); err != nil {
		return err
	}
	if err := cmd.ValidateArgs(positional); err != nil {
		return err
	}

	switch {
	case cmd.RunE != nil:
		return cmd.RunE(cmd, positional)
	case cmd.Run != nil:
		cmd.Run(cmd, positional)
		return nil
	}
	return fmt.Errorf("command has no Run function")
}

// resetFlags restores every flag to its default so one call's arguments
// never leak into the next.
func resetFlags(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(flag *pflag.Flag) {
		if err != nil {
			return
		}
		if slice, ok := flag.Value.(pflag.SliceValue); ok {
			err = slice.Replace(nil)
		} else {
			err = flag.Value.Set(flag.DefValue)
		}
		flag.Changed = false
	})
	return err
}

// applyArgsToFlags sets flags from tool arguments and returns the
// positional arguments found under "args".
func applyArgsToFlags(flags *pflag.FlagSet, args map[string]interface{}) ([]string, error) {
	var positional []string
	for key, value := range args {
		if key == "args" {
			if list, ok := value.([]interface{}); ok {
				for _, v := range list {
					positional = append(positional, fmt.Sprintf("%v", v))
				}
			}
			continue
		}

		flag := flags.Lookup(key)
		if flag == nil {
			flag = flags.Lookup(strings.ReplaceAll(key, "_", "-"))
		}
		if flag == nil {
			return nil, fmt.Errorf("unknown flag: %s", key)
		}

		switch v := value.(type) {
		case []interface{}:
			values := make([]string, len(v))
			for i, item := range v {
				values[i] = fmt.Sprintf("%v", item)
			}
			if slice, ok := flag.Value.(pflag.SliceValue); ok {
				if err := slice.Replace(values); err != nil {
					return nil, fmt.Errorf("failed to set flag %s: %w", key, err)
				}
			} else if err := flags.Set(flag.Name, strings.Join(values, ",")); err != nil {
				return nil, fmt.Errorf("failed to set flag %s: %w", key, err)
			}
			flag.Changed = true
		case float64:
			if err := flags.Set(flag.Name, strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
				return nil, fmt.Errorf("failed to set flag %s: %w", key, err)
			}
		default:
			if err := flags.Set(flag.Name, fmt.Sprintf("%v", v)); err != nil {
				return nil, fmt.Errorf("failed to set flag %s: %w", key, err)
			}
		}
	}
	return positional, nil
}

func (s *MCPServer) handlePromptsList(req JSONRPCRequest) *JSONRPCResponse {
	prompts := s.promptRegistry.List()
	prompts = append(prompts, discoverPrompt())

	response := &ListPromptsResponse{Prompts: make([]Prompt, len(prompts))}
	for i, p := range prompts {
		response.Prompts[i] = *p
	}
	return result(req, response)
}

func discoverPrompt() *Prompt {
	return &Prompt{
		Name:        "discover-tools",
		Description: "Discover how to use available tools",
		Template:    "Describe each available tool, its arguments and how they combine.",
		Tags:        []string{"discovery", "tools", "help"},
	}
}

// PromptsGetParams represents the parameters for a prompts/get request
type PromptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

func (s *MCPServer) handlePromptsGet(req JSONRPCRequest) *JSONRPCResponse {
	var params PromptsGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return failure(req, codeInvalidParams, "Invalid params")
	}

	if params.Name == "discover-tools" {
		return result(req, &GetPromptResponse{
			Description: "Discover available tools and their usage",
			Messages: []PromptMessage{
				{Role: "user", Content: ContentBlock{Type: "text", Text: s.describeTools()}},
			},
		})
	}

	prompt, exists := s.promptRegistry.Get(params.Name)
	if !exists {
		return failure(req, codeInvalidParams, "Prompt not found: %s", params.Name)
	}
	response, err := prompt.ToMCPResponse(params.Arguments)
	if err != nil {
		return failure(req, codeInvalidParams, "%v", err)
	}
	return result(req, response)
}

func (s *MCPServer) describeTools() string {
	var sections []string
	for _, name := range s.registry.Names() {
		tool := s.registry.tools[name]
		desc := fmt.Sprintf("**%s**: %s", name, tool.Description)
		params := make([]string, 0, len(tool.InputSchema.Properties))
		for _, param := range sortedKeys(tool.InputSchema.Properties) {
			required := ""
			for _, r := range tool.InputSchema.Required {
				if r == param {
					required = " (required)"
				}
			}
			params = append(params, fmt.Sprintf("    - %s: %s%s", param, tool.InputSchema.Properties[param].Description, required))
		}
		if len(params) > 0 {
			desc += "\n  Parameters:\n" + strings.Join(params, "\n")
		}
		sections = append(sections, desc)
	}
	return fmt.Sprintf("Here are the available tools you can use:\n\n%s\n\nWhat would you like to do with these tools?",
		strings.Join(sections, "\n\n"))
}
