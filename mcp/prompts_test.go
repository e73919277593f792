package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptRender(t *testing.T) {
	r := NewPromptRegistry()
	r.LoadDefaults()

	p, ok := r.Get("svg-slide")
	require.True(t, ok)
	out, err := p.Render(map[string]string{"topic": "churn", "pptx_path": "q3.pptx"})
	require.NoError(t, err)
	assert.Contains(t, out, "showing: churn")
	assert.Contains(t, out, "slide 1 of q3.pptx")

	review, _ := r.Get("review")
	out, err = review.Render(map[string]string{"pptx_path": "q3.pptx"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Pay particular attention")
	assert.NotContains(t, out, "\n\n")

	out, err = review.Render(map[string]string{"pptx_path": "q3.pptx", "focus": "contrast"})
	require.NoError(t, err)
	assert.Contains(t, out, "Pay particular attention to contrast.")
}

func TestPromptRegistryListing(t *testing.T) {
	r := NewPromptRegistry()
	r.LoadDefaults()

	names := []string{}
	for _, p := range r.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"deck-from-dir", "help", "layout", "review", "svg-slide"}, names)

	batch := r.ListByTag("BATCH")
	require.Len(t, batch, 1)
	assert.Equal(t, "deck-from-dir", batch[0].Name)
}

func TestPromptFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	r := NewPromptRegistry()
	r.Register(&Prompt{Name: "custom", Template: "Insert {{.svg}}", Arguments: []PromptArgument{{Name: "svg", Required: true}}})
	require.NoError(t, r.SaveToFile(path))

	loaded := NewPromptRegistry()
	require.NoError(t, loaded.LoadFromFile(path))
	p, ok := loaded.Get("custom")
	require.True(t, ok)
	resp, err := p.ToMCPResponse(map[string]string{"svg": "a.svg"})
	require.NoError(t, err)
	assert.Equal(t, ContentBlock{Type: "text", Text: "Insert a.svg"}, resp.Messages[0].Content)

	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"broken","template":"{{.x"}]`), 0644))
	assert.Error(t, NewPromptRegistry().LoadFromFile(path))
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "svgdeck", "mcp-config.json")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	require.NoError(t, os.WriteFile(path, []byte(`{"security":{"timeout_seconds":5},"transport":{"type":"stdio"}}`), 0644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Security.TimeoutSeconds)
	assert.True(t, cfg.Security.AuditLog)

	require.NoError(t, os.WriteFile(path, []byte(`{"transport":{"type":"http"}}`), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "unsupported transport type: http")
}
