// Package export turns a task list into markdown, JSON or PDF.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/charmbracelet/glamour"
	"github.com/jung-kurt/gofpdf"
)

// Formats lists the accepted format names.
var Formats = []string{"md", "json", "pdf"}

// Export encodes tasks in format.
func Export(tasks []model.Task, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "md", "markdown":
		return []byte(Markdown(tasks)), nil
	case "json":
		if tasks == nil {
			tasks = []model.Task{}
		}
		return json.MarshalIndent(tasks, "", "  ")
	case "pdf":
		return PDF(tasks)
	default:
		return nil, fmt.Errorf("unknown format %s", format)
	}
}

// Markdown renders the list as a checklist.
func Markdown(tasks []model.Task) string {
	var b strings.Builder
	b.WriteString("# Tarefas\n\n")
	if len(tasks) == 0 {
		b.WriteString("_no tasks_\n")
		return b.String()
	}
	for _, t := range tasks {
		fmt.Fprintf(&b, "- [ ] %s `#%d`\n", escapeMD(t.Title), t.ID)
	}
	return b.String()
}

func escapeMD(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "\n", " ")
	return r.Replace(s)
}

// Render formats markdown for a terminal of the given width.
// Colour follows the terminal unless plain is set.
func Render(md string, width int, plain bool) (string, error) {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return out, nil
}

// PDF lays the list out on A4 pages.
func PDF(tasks []model.Task) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Tarefas")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 10)
	// core fonts are cp1252; titles are usually utf-8
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if len(tasks) == 0 {
		pdf.MultiCell(0, 6, "no tasks", "0", "L", false)
	}
	for i, t := range tasks {
		line := fmt.Sprintf("%d. %s  (#%d)", i+1, tr(t.Title), t.ID)
		pdf.MultiCell(0, 6, line, "0", "L", false)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
