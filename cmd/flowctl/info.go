package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ha1tch/flow-toolkit/pkg/editor"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <document>",
		Short: "Show what a flow document contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(settings, args[0])
			if err != nil {
				return fail(err)
			}
			printInfo(args[0], s)
			return nil
		},
	}
}

func printInfo(path string, s *editor.Session) {
	reg := s.Registry()
	banner(path)

	wa := s.Workarea()
	field("Workarea", "%gx%g", wa.Width, wa.Height)
	field("Nodes", "%d", len(reg.Nodes()))
	field("Links", "%d", len(reg.Links()))
	field("Elements", "%d", len(reg.Elements()))

	types := make(map[string]int)
	policies := make(map[graph.OutPortType]int)
	for _, n := range reg.Nodes() {
		types[n.Type]++
		policies[n.Descriptor.OutPortType]++
	}
	if len(types) > 0 {
		fmt.Println()
		fmt.Println("  Node types:")
		for _, t := range sortedKeys(types) {
			fmt.Printf("    %-20s %d\n", t, types[t])
		}
		fmt.Println("  Fan-out:")
		for _, p := range []graph.OutPortType{graph.OutSingle, graph.OutStatic, graph.OutDynamic, graph.OutBroadcast, graph.OutNone} {
			if policies[p] > 0 {
				fmt.Printf("    %-20s %d\n", p, policies[p])
			}
		}
	}

	a := graph.Analyse(reg)
	fmt.Println()
	field("Entry", "%s", list(a.Entry))
	if a.Acyclic() {
		field("Order", "%s", list(a.Order))
	} else {
		field("Order", "%s", Warn.Sprintf("%d cycle(s), no execution order", len(a.Cycles)))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
