package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/flanksource/svgdeck"
	"github.com/flanksource/svgdeck/pptx"
	"github.com/flanksource/svgdeck/units"
)

const modifiedLayout = "2006-01-02 15:04:05"

var typeExtensions = map[string][]string{
	"svg":  {".svg"},
	"pptx": {".pptx", ".ppt"},
}

// ListFiles lists the entries of directory, one per line, optionally
// filtered by file type ("svg", "pptx" or any extension).
func (t *Tools) ListFiles(directory, fileType string) string {
	return guard("list_files", func() (string, error) {
		if directory == "" {
			directory = "."
		}
		entries, err := os.ReadDir(directory)
		if err != nil {
			return "", &svgdeck.Error{Kind: svgdeck.IOFailure, Op: "list files", Path: directory, Err: err}
		}
		names := lo.Map(entries, func(e os.DirEntry, _ int) string { return e.Name() })

		fileType = strings.ToLower(strings.TrimPrefix(fileType, "."))
		if fileType != "" {
			exts, ok := typeExtensions[fileType]
			if !ok {
				exts = []string{"." + fileType}
			}
			names = lo.Filter(names, func(n string, _ int) bool {
				return lo.Contains(exts, strings.ToLower(filepath.Ext(n)))
			})
		}
		if len(names) == 0 {
			if fileType == "" {
				return fmt.Sprintf("No files found in %s", directory), nil
			}
			return fmt.Sprintf("No %s files found in %s", fileType, directory), nil
		}
		return strings.Join(names, "\n"), nil
	})
}

// GetFileInfo reports the type, size and modification time of a file.
func (t *Tools) GetFileInfo(path string) string {
	return guard("get_file_info", func() (string, error) {
		st, err := os.Stat(path)
		if os.IsNotExist(err) {
			return fmt.Sprintf("File %s does not exist", path), nil
		}
		if err != nil {
			return "", &svgdeck.Error{Kind: svgdeck.IOFailure, Op: "stat", Path: path, Err: err}
		}
		if st.IsDir() {
			return fmt.Sprintf("%s is a directory", path), nil
		}
		return fmt.Sprintf("File: %s\nType: %s\nSize: %s\nModified: %s",
			path, describeType(path), formatSize(st.Size()), st.ModTime().Format(modifiedLayout)), nil
	})
}

// GetPPTXInfo reports slide count, canvas and pictures of a presentation.
func (t *Tools) GetPPTXInfo(path string) string {
	return guard("get_pptx_info", func() (string, error) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		info, err := t.Engine.Info(path)
		if err != nil {
			return "", err
		}
		lines := []string{
			fmt.Sprintf("Presentation: %s", info.Path),
			fmt.Sprintf("Size: %s", formatSize(info.Size)),
			fmt.Sprintf("Modified: %s", info.Modified.Format(modifiedLayout)),
			fmt.Sprintf("Slides: %d", info.Slides),
			fmt.Sprintf("Canvas: %.2fin x %.2fin (%.2fcm x %.2fcm, %d x %d EMU)",
				info.WidthIn(), info.HeightIn(), info.WidthCm(), info.HeightCm(), info.Canvas.Width, info.Canvas.Height),
		}
		for i, pics := range info.Pictures {
			if len(pics) == 0 {
				continue
			}
			names := lo.Map(pics, func(p pptx.PictureInfo, _ int) string {
				return fmt.Sprintf("%s @ %s", p.Name, placement(p.X, p.Y, p.Width, p.Height))
			})
			lines = append(lines, fmt.Sprintf("  slide %d: %s", i+1, strings.Join(names, ", ")))
		}

		if t.Preview != nil {
			if summary, err := t.Preview.Summarize(path); err != nil {
				log.Debugf("preview reader could not open %s: %v", path, err)
			} else if len(summary) != info.Slides {
				lines = append(lines, fmt.Sprintf("Warning: preview reader sees %d slides", len(summary)))
			}
		}
		return strings.Join(lines, "\n"), nil
	})
}

func placement(x, y, w, h units.EMU) string {
	return svgdeck.Placement{X: x, Y: y, Width: w, Height: h}.String()
}

func describeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".svg":
		return "SVG image"
	case ".pptx", ".ppt":
		return "PowerPoint presentation"
	case "":
		return "unknown"
	}
	return ext[1:] + " file"
}

// formatSize prints KB below one MB and MB above, with two decimals.
func formatSize(n int64) string {
	kb := float64(n) / 1024
	if mb := kb / 1024; mb >= 1 {
		return fmt.Sprintf("%.2f MB", mb)
	}
	return fmt.Sprintf("%.2f KB", kb)
}
