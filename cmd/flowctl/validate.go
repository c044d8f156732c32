package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// report is the outcome of checking a document.
type report struct {
	Issues   []string        `json:"issues,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Analysis *graph.Analysis `json:"analysis"`
}

// OK reports whether the document has no structural issues.
func (r report) OK() bool { return len(r.Issues) == 0 }

func check(reg *graph.Registry) report {
	r := report{Issues: graph.Validate(reg), Analysis: graph.Analyse(reg)}
	for _, c := range r.Analysis.Cycles {
		r.Warnings = append(r.Warnings, "cycle: "+strings.Join(c, " -> "))
	}
	for _, id := range r.Analysis.Isolated {
		r.Warnings = append(r.Warnings, "isolated node "+id)
	}
	for _, k := range r.Analysis.Dangling {
		r.Warnings = append(r.Warnings, "unconnected output "+k.String())
	}
	for _, n := range reg.Nodes() {
		for _, e := range n.Errors {
			r.Warnings = append(r.Warnings, fmt.Sprintf("node %s: %s", n.ID, e))
		}
	}
	return r
}

func validateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <document>...",
		Short: "Check flow documents for broken links and fan-out violations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				s, err := openSession(settings, path)
				if err != nil {
					fmt.Printf("  %s %s: %v\n", statusIcon(false), path, err)
					failed++
					continue
				}
				r := check(s.Registry())
				ok := r.OK() && (!strict || len(r.Warnings) == 0)
				fmt.Printf("  %s %s\n", statusIcon(ok), path)
				for _, issue := range r.Issues {
					fmt.Printf("      %s\n", Bad.Sprint(issue))
				}
				for _, w := range r.Warnings {
					fmt.Printf("      %s %s\n", warnIcon(), w)
				}
				if !ok {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed validation", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as failures")
	return cmd
}
