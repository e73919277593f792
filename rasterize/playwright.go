package rasterize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Playwright renders through headless Chromium. The first conversion
// installs the browser, so it is only registered when asked for.
type Playwright struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewPlaywright() *Playwright {
	return &Playwright{}
}

func (c *Playwright) Name() string {
	return "playwright"
}

func (c *Playwright) IsAvailable() bool {
	return true
}

func (c *Playwright) start() error {
	if c.browser != nil {
		return nil
	}
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return newError(c.Name(), "install browsers", err)
	}
	pw, err := playwright.Run()
	if err != nil {
		return newError(c.Name(), "start playwright", err)
	}
	browser, err := pw.Chromium.Launch()
	if err != nil {
		_ = pw.Stop()
		return newError(c.Name(), "launch browser", err)
	}
	c.pw, c.browser = pw, browser
	return nil
}

func (c *Playwright) Convert(ctx context.Context, svgPath, outputPath string, options *Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(c.Name(), "convert", err)
	}
	if options == nil {
		options = DefaultOptions()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.start(); err != nil {
		return nil, err
	}

	markup, err := os.ReadFile(svgPath)
	if err != nil {
		return nil, newError(c.Name(), "read SVG", err)
	}

	page, err := c.browser.NewPage()
	if err != nil {
		return nil, newError(c.Name(), "create page", err)
	}
	defer page.Close()

	background := "transparent"
	if options.BackgroundColor != "" {
		background = options.BackgroundColor
	}
	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <style>
        html, body { margin: 0; padding: 0; background: %s; }
        svg { display: block; width: 100%%; height: 100%%; }
    </style>
</head>
<body>
    %s
</body>
</html>`, background, string(markup))

	if err := page.SetContent(html); err != nil {
		return nil, newError(c.Name(), "set content", err)
	}
	if options.Width > 0 && options.Height > 0 {
		if err := page.SetViewportSize(options.Width, options.Height); err != nil {
			return nil, newError(c.Name(), "set viewport", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, newError(c.Name(), "create output directory", err)
	}
	if _, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:           &outputPath,
		Type:           playwright.ScreenshotTypePng,
		OmitBackground: playwright.Bool(options.BackgroundColor == ""),
	}); err != nil {
		return nil, newError(c.Name(), "screenshot PNG", err)
	}
	return pngResult(c.Name(), outputPath)
}

// Close stops the browser and the driver.
func (c *Playwright) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			return err
		}
		c.browser = nil
	}
	if c.pw != nil {
		if err := c.pw.Stop(); err != nil {
			return err
		}
		c.pw = nil
	}
	return nil
}
