package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Makepad-fr/tarefas/internal/export"
	"github.com/Makepad-fr/tarefas/internal/ui"
	"github.com/spf13/cobra"
)

func newExportCmd(g *globals) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the task list as markdown, JSON or PDF",
		Example: `  tarefas export --format json
  tarefas export --format pdf --out tarefas.pdf`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validFormat(format) {
				return usagef("unknown format %q (want %s)", format, strings.Join(export.Formats, "|"))
			}
			if format == "pdf" && (out == "" || out == "-") {
				return usagef("export: pdf needs --out")
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			b, err := export.Export(s.store.Tasks(), format)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err := ui.Stdout.Write(b)
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			ui.OK("exported to " + out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "md", "md|json|pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func validFormat(f string) bool {
	for _, v := range export.Formats {
		if v == f {
			return true
		}
	}
	return false
}
