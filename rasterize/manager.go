package rasterize

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
)

// Manager tries registered converters in order until one succeeds.
type Manager struct {
	mu         sync.RWMutex
	converters []Converter
	preferred  string
}

// NewManager registers the native renderer followed by every external
// renderer found on the system. Playwright is only added when
// withPlaywright is set.
func NewManager(withPlaywright bool) *Manager {
	candidates := []Converter{NewNative(), NewRSVG(), NewInkscape()}
	if withPlaywright {
		candidates = append(candidates, NewPlaywright())
	}
	return NewManagerWith(lo.Filter(candidates, func(c Converter, _ int) bool { return c.IsAvailable() })...)
}

// NewManagerWith uses exactly the given converters, in order.
func NewManagerWith(converters ...Converter) *Manager {
	return &Manager{converters: converters}
}

// SetPreferred moves the named converter to the front of the chain.
func (m *Manager) SetPreferred(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !lo.ContainsBy(m.converters, func(c Converter) bool { return c.Name() == name }) {
		return fmt.Errorf("converter '%s' not available", name)
	}
	m.preferred = name
	return nil
}

func (m *Manager) Preferred() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preferred
}

// Available lists converter names in the order they are tried.
func (m *Manager) Available() []string {
	return lo.Map(m.chain(), func(c Converter, _ int) string { return c.Name() })
}

func (m *Manager) chain() []Converter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Converter, 0, len(m.converters))
	if m.preferred != "" {
		if c, ok := lo.Find(m.converters, func(c Converter) bool { return c.Name() == m.preferred }); ok {
			out = append(out, c)
		}
	}
	for _, c := range m.converters {
		if c.Name() != m.preferred {
			out = append(out, c)
		}
	}
	return out
}

// Convert renders svgPath to outputPath, falling back through the chain.
// The returned error joins every converter failure.
func (m *Manager) Convert(ctx context.Context, svgPath, outputPath string, options *Options) (*Result, error) {
	chain := m.chain()
	if len(chain) == 0 {
		return nil, fmt.Errorf("no SVG converters available")
	}
	if options == nil {
		options = DefaultOptions()
	}

	var errs []error
	for _, c := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := c.Convert(ctx, svgPath, outputPath, options)
		if err == nil {
			log.Debugf("%s rendered %s (%dx%d)", c.Name(), svgPath, res.Width, res.Height)
			return res, nil
		}
		log.Debugf("%s failed on %s: %v", c.Name(), svgPath, err)
		errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
	}
	return nil, fmt.Errorf("all converters failed: %w", errors.Join(errs...))
}

// Close releases converters holding external processes.
func (m *Manager) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var errs []error
	for _, c := range m.converters {
		if closer, ok := c.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
