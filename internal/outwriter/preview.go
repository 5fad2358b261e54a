package outwriter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

// WritePreview renders the Markdown report for the terminal.
func WritePreview(w io.Writer, report *schema.ProjectReport, cfg *contract.Config) error {
	var md bytes.Buffer
	if err := WriteMarkdown(&md, report); err != nil {
		return err
	}

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(GetMaxTablePathWidth(cfg) + 55)}
	if cfg.UseColors {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("failed to create Markdown renderer: %w", err)
	}

	out, err := renderer.Render(md.String())
	if err != nil {
		return fmt.Errorf("failed to render Markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
