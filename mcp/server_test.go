package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "app"}
	root.PersistentFlags().String("log-level", "info", "Log level")

	var name string
	var times int
	var loud bool
	var tags []string
	greet := &cobra.Command{
		Use:   "greet",
		Short: "Greet someone",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := strings.Repeat("hello "+name+" ", times)
			if loud {
				msg = strings.ToUpper(msg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s[%s]", strings.TrimSpace(msg), strings.Join(tags, ","))
			return nil
		},
	}
	greet.Flags().StringVar(&name, "name", "", "Who to greet")
	greet.Flags().IntVar(&times, "times", 1, "Repetitions")
	greet.Flags().BoolVar(&loud, "loud", false, "Shout")
	greet.Flags().StringArrayVar(&tags, "tag", nil, "Tags")
	_ = greet.MarkFlagRequired("name")

	fail := &cobra.Command{
		Use:   "fail",
		Short: "Report an error status",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Error: nothing works")
			return nil
		},
	}
	fail.Flags().String("reason", "", "Why it fails")
	_ = fail.Flags().SetAnnotation("reason", RequiredAnnotation, []string{"true"})
	echo := &cobra.Command{
		Use:   "echo",
		Short: "Print arguments",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
	hidden := &cobra.Command{Use: "secret", Hidden: true, Run: func(*cobra.Command, []string) {}}
	version := &cobra.Command{Use: "version", Run: func(*cobra.Command, []string) {}}
	group := &cobra.Command{Use: "mcp"}
	group.AddCommand(&cobra.Command{Use: "serve", Run: func(*cobra.Command, []string) {}})

	root.AddCommand(greet, fail, echo, hidden, version, group)
	return root
}

func newTestServer(t *testing.T) *MCPServer {
	t.Helper()
	s := NewMCPServer(DefaultConfig(), testTree())
	require.NoError(t, s.Initialize())
	return s
}

func call(t *testing.T, s *MCPServer, line string) *JSONRPCResponse {
	t.Helper()
	return s.handleJSONRPCRequest(context.Background(), []byte(line))
}

func toolText(t *testing.T, resp *JSONRPCResponse) (string, bool) {
	t.Helper()
	require.Nil(t, resp.Error)
	res, ok := resp.Result.(*ToolCallResult)
	require.True(t, ok)
	texts := make([]string, 0, len(res.Content))
	for _, c := range res.Content {
		texts = append(texts, c.Text)
	}
	return strings.Join(texts, "\n"), res.IsError
}

func TestRegistryExposesRunnableCommands(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, []string{"echo", "fail", "greet"}, s.Registry().Names())

	greet, ok := s.Registry().GetTool("greet")
	require.True(t, ok)
	assert.Equal(t, "app greet", greet.Title)
	assert.Equal(t, []string{"name"}, greet.InputSchema.Required)
	assert.NotContains(t, greet.InputSchema.Properties, "log-level")
	assert.NotContains(t, greet.InputSchema.Properties, "args")

	props := greet.InputSchema.Properties
	assert.Equal(t, "string", props["name"].Type)
	assert.Equal(t, "integer", props["times"].Type)
	assert.Equal(t, "boolean", props["loud"].Type)
	assert.Equal(t, false, props["loud"].Default)
	assert.Equal(t, "array", props["tag"].Type)
	require.NotNil(t, props["tag"].Items)
	assert.Equal(t, "string", props["tag"].Items.Type)

	echo, _ := s.Registry().GetTool("echo")
	assert.Contains(t, echo.InputSchema.Properties, "args")

	fail, _ := s.Registry().GetTool("fail")
	assert.Equal(t, []string{"reason"}, fail.InputSchema.Required)
}

func TestRegistryDescriptionOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tools.Descriptions = map[string]string{"greet": "Say hello"}
	cfg.Tools.Include = []string{"^greet$"}
	r := NewToolRegistry(cfg)
	require.NoError(t, r.RegisterCommandTree(testTree()))
	assert.Equal(t, []string{"greet"}, r.Names())
	tool, _ := r.GetTool("greet")
	assert.Equal(t, "Say hello", tool.Description)
}

func TestInitializeAndPing(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.Nil(t, resp.Error)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"protocolVersion":"2024-11-05"`)
	assert.Contains(t, string(data), `"name":"svgdeck"`)

	resp = call(t, s, `{"jsonrpc":"2.0","id":"p","method":"ping"}`)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "p", resp.ID)
}

func TestNotificationsAndErrors(t *testing.T) {
	s := newTestServer(t)
	assert.Nil(t, call(t, s, `{"jsonrpc":"2.0","method":"notifications/initialized"}`))

	resp := call(t, s, `{"jsonrpc":"2.0","id":2,"method":"resources/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)

	resp = call(t, s, `{not json`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)

	resp = call(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"version"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "Tool not found: version")
}

func TestToolsCall(t *testing.T) {
	s := newTestServer(t)

	text, isErr := toolText(t, call(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"greet","arguments":{"name":"ada","times":2,"loud":true,"tag":["a","b"]}}}`))
	assert.False(t, isErr)
	assert.Equal(t, "HELLO ADA HELLO ADA[a,b]", text)

	// flags from the previous call must not leak
	text, isErr = toolText(t, call(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"greet","arguments":{"name":"bob"}}}`))
	assert.False(t, isErr)
	assert.Equal(t, "hello bob[]", text)

	text, isErr = toolText(t, call(t, s, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"greet","arguments":{}}}`))
	assert.True(t, isErr)
	assert.Contains(t, text, `required flag(s) "name" not set`)

	text, isErr = toolText(t, call(t, s, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"greet","arguments":{"nmae":"x"}}}`))
	assert.True(t, isErr)
	assert.Contains(t, text, "unknown flag: nmae")

	text, isErr = toolText(t, call(t, s, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"fail","arguments":{}}}`))
	assert.True(t, isErr)
	assert.Equal(t, "Error: nothing works", text)

	text, isErr = toolText(t, call(t, s, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"echo","arguments":{"args":["x",1]}}}`))
	assert.False(t, isErr)
	assert.Equal(t, "x 1", text)

	_, isErr = toolText(t, call(t, s, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"echo","arguments":{}}}`))
	assert.True(t, isErr)
}

func TestServeLoop(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
	}, "\n"))
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var list struct {
		ID     int `json:"id"`
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &list))
	assert.Equal(t, 2, list.ID)
	require.Len(t, list.Result.Tools, 3)
	assert.Equal(t, "echo", list.Result.Tools[0].Name)
}

func TestServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPromptsOverJSONRPC(t *testing.T) {
	s := newTestServer(t)

	resp := call(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`)
	require.Nil(t, resp.Error)
	list := resp.Result.(*ListPromptsResponse)
	names := make([]string, 0, len(list.Prompts))
	for _, p := range list.Prompts {
		names = append(names, p.Name)
	}
	assert.Contains(t, names, "svg-slide")
	assert.Equal(t, "discover-tools", names[len(names)-1])

	resp = call(t, s, `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"discover-tools"}}`)
	require.Nil(t, resp.Error)
	got := resp.Result.(*GetPromptResponse)
	text := got.Messages[0].Content.(ContentBlock).Text
	assert.Contains(t, text, "**greet**: Greet someone")
	assert.Contains(t, text, "- name: Who to greet (required)")

	resp = call(t, s, `{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{"name":"svg-slide","arguments":{"topic":"sales"}}}`)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "missing required argument pptx_path")

	resp = call(t, s, `{"jsonrpc":"2.0","id":4,"method":"prompts/get","params":{"name":"nope"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}
