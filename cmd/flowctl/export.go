package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/flow-toolkit/pkg/editor"
	"github.com/ha1tch/flow-toolkit/pkg/flowfile"
	"github.com/ha1tch/flow-toolkit/pkg/logging"
)

var formats = []string{"json", "dot", "svg", "png"}

// formatFor picks the export format: an explicit one wins, then the output
// extension, then JSON.
func formatFor(explicit, output string) (string, error) {
	f := strings.ToLower(explicit)
	if f == "" {
		switch ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), "."); ext {
		case "":
			f = "json"
		case "gv":
			f = "dot"
		default:
			f = ext
		}
	}
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q (want one of %s)", f, strings.Join(formats, ", "))
}

// render writes the session's scene in the given format.
func render(s *editor.Session, format string, opts flowfile.RenderOptions, w io.Writer) error {
	switch format {
	case "json":
		data, err := s.ExportJSON(true)
		if err != nil {
			return err
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "dot":
		_, err := io.WriteString(w, flowfile.GenerateDOT(s.Registry(), opts.Title))
		return err
	case "svg":
		_, err := io.WriteString(w, flowfile.GenerateSVG(s.Registry(), opts))
		return err
	case "png":
		return flowfile.RenderPNG(s.Registry(), w, opts)
	}
	return fmt.Errorf("unknown format %q", format)
}

// exportFile renders input to output, or to stdout when output is empty.
// The file is only replaced once rendering succeeded.
func exportFile(input, output, format, title string) error {
	s, err := openSession(settings, input)
	if err != nil {
		return err
	}
	defer s.Close()

	var buf bytes.Buffer
	if err := render(s, format, renderOptions(settings, title), &buf); err != nil {
		return err
	}
	if output == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return err
	}
	logging.Info("exported", "input", input, "output", output, "format", format, "bytes", buf.Len())
	return nil
}

func exportCmd() *cobra.Command {
	var output, format, title string
	cmd := &cobra.Command{
		Use:   "export <document>",
		Short: "Render a flow document as JSON, DOT, SVG or PNG",
		Example: `  flowctl export flow.json -o flow.svg
  flowctl export flow.json -f dot | dot -Tpdf -o flow.pdf
  flowctl export flow.json -o flow.png --title "Checkout"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatFor(format, output)
			if err != nil {
				return fail(err)
			}
			if f == "png" && output == "" {
				return fail(fmt.Errorf("png output needs -o"))
			}
			if err := exportFile(args[0], output, f, title); err != nil {
				return fail(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "json, dot, svg or png (default from the output extension)")
	cmd.Flags().StringVar(&title, "title", "", "title drawn above the diagram")
	return cmd
}
