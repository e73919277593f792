package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/samber/lo"
)

// Prompt represents an MCP prompt that can be provided to AI assistants
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Template    string           `json:"template"`
	Tags        []string         `json:"tags,omitempty"`
	Examples    []string         `json:"examples,omitempty"`
}

// PromptArgument represents an argument for a prompt
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
}

// PromptRegistry manages available prompts
type PromptRegistry struct {
	prompts map[string]*Prompt
}

func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{prompts: make(map[string]*Prompt)}
}

// LoadDefaults registers prompts for common deck-building workflows
func (r *PromptRegistry) LoadDefaults() {
	r.Register(&Prompt{
		Name:        "help",
		Description: "Explain the available slide tools",
		Template: `Please explain which tools are available for building slides from SVG graphics
and when to use each of them.`,
		Tags: []string{"discovery", "help"},
	})

	r.Register(&Prompt{
		Name:        "svg-slide",
		Description: "Draw an SVG graphic and place it on a slide",
		Arguments: []PromptArgument{
			{Name: "topic", Description: "What the slide should show", Required: true},
			{Name: "pptx_path", Description: "Presentation to add the slide to", Required: true},
			{Name: "slide", Description: "Slide number", Required: false, Default: "1"},
		},
		Template: `Create an SVG graphic (16:9, viewBox 0 0 1600 900) showing: {{.topic}}
Save it with save_svg_code, then place it on slide {{.slide}} of {{.pptx_path}} with insert_svg.
Finally check the result with get_pptx_info.`,
		Tags:     []string{"svg", "slides"},
		Examples: []string{"svg-slide --topic 'quarterly revenue by region' --pptx_path report.pptx --slide 3"},
	})

	r.Register(&Prompt{
		Name:        "deck-from-dir",
		Description: "Build a deck from a directory of SVG files",
		Arguments: []PromptArgument{
			{Name: "svg_dir", Description: "Directory holding the SVG files", Required: true},
			{Name: "pptx_path", Description: "Presentation to create or extend", Required: true},
			{Name: "start", Description: "First slide to fill", Required: false, Default: "1"},
		},
		Template: `List the SVG files in {{.svg_dir}} with list_files, then insert them into {{.pptx_path}}
starting at slide {{.start}} with batch_insert_svgs. Report any graphic that failed.`,
		Tags: []string{"batch", "slides"},
	})

	r.Register(&Prompt{
		Name:        "layout",
		Description: "Place several graphics on one slide in a grid",
		Arguments: []PromptArgument{
			{Name: "pptx_path", Description: "Presentation", Required: true},
			{Name: "slide", Description: "Slide number", Required: true},
			{Name: "graphics", Description: "Comma-separated SVG paths", Required: true},
			{Name: "margin", Description: "Margin around each graphic", Required: false, Default: "0.25in"},
		},
		Template: `Arrange these graphics in an even grid on slide {{.slide}} of {{.pptx_path}}: {{.graphics}}
Use insert_svg once per graphic with --x, --y and --width given as percentages of the slide,
keeping a margin of {{.margin}} and --keep-aspect so nothing is distorted.`,
		Tags: []string{"layout", "slides"},
	})

	r.Register(&Prompt{
		Name:        "review",
		Description: "Review the slides of a presentation",
		Arguments: []PromptArgument{
			{Name: "pptx_path", Description: "Presentation to review", Required: true},
			{Name: "focus", Description: "What to pay attention to", Required: false},
		},
		Template: `Inspect {{.pptx_path}} with get_pptx_info and render each slide with render_slide.
{{if .focus}}Pay particular attention to {{.focus}}.{{end}}
Suggest slides to reorder with move_slide or remove with delete_slide.`,
		Tags: []string{"review", "slides"},
	})
}

func (r *PromptRegistry) Register(prompt *Prompt) {
	r.prompts[prompt.Name] = prompt
}

func (r *PromptRegistry) Get(name string) (*Prompt, bool) {
	prompt, exists := r.prompts[name]
	return prompt, exists
}

// List returns all prompts sorted by name
func (r *PromptRegistry) List() []*Prompt {
	prompts := lo.Values(r.prompts)
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })
	return prompts
}

// ListByTag returns prompts with a specific tag
func (r *PromptRegistry) ListByTag(tag string) []*Prompt {
	return lo.Filter(r.List(), func(p *Prompt, _ int) bool {
		return lo.ContainsBy(p.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
	})
}

// LoadFromFile loads prompts from a JSON file
func (r *PromptRegistry) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts []*Prompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return fmt.Errorf("failed to parse prompts file: %w", err)
	}
	for _, p := range prompts {
		if _, err := template.New(p.Name).Parse(p.Template); err != nil {
			return fmt.Errorf("prompt %s: %w", p.Name, err)
		}
		r.Register(p)
	}
	return nil
}

// SaveToFile saves prompts to a JSON file
func (r *PromptRegistry) SaveToFile(path string) error {
	data, err := json.MarshalIndent(r.List(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prompts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write prompts file: %w", err)
	}
	return nil
}

// GetPromptsPath returns the default prompts file path
func GetPromptsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "svgdeck", "mcp-prompts.json")
}

// ListPromptsResponse represents the MCP prompts/list response
type ListPromptsResponse struct {
	Prompts []Prompt `json:"prompts"`
}

// GetPromptResponse represents the MCP prompts/get response
type GetPromptResponse struct {
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Messages    []PromptMessage  `json:"messages"`
}

// PromptMessage represents a message in a prompt
type PromptMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

// Render executes the template. Missing arguments take their default or
// render empty; a missing required argument is an error.
func (p *Prompt) Render(args map[string]string) (string, error) {
	values := map[string]string{}
	for _, a := range p.Arguments {
		v, ok := args[a.Name]
		if !ok || v == "" {
			v = a.Default
		}
		if v == "" && a.Required {
			return "", fmt.Errorf("prompt %s: missing required argument %s", p.Name, a.Name)
		}
		values[a.Name] = v
	}
	for k, v := range args {
		if _, known := values[k]; !known {
			values[k] = v
		}
	}

	tmpl, err := template.New(p.Name).Option("missingkey=zero").Parse(p.Template)
	if err != nil {
		return "", fmt.Errorf("prompt %s: %w", p.Name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("prompt %s: %w", p.Name, err)
	}

	lines := lo.Filter(strings.Split(buf.String(), "\n"), func(l string, _ int) bool {
		return strings.TrimSpace(l) != ""
	})
	return strings.Join(lines, "\n"), nil
}

// ToMCPResponse converts a prompt to MCP response format
func (p *Prompt) ToMCPResponse(args map[string]string) (*GetPromptResponse, error) {
	content, err := p.Render(args)
	if err != nil {
		return nil, err
	}
	return &GetPromptResponse{
		Description: p.Description,
		Arguments:   p.Arguments,
		Messages: []PromptMessage{
			{
				Role:    "user",
				Content: ContentBlock{Type: "text", Text: content},
			},
		},
	}, nil
}
