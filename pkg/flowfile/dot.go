package flowfile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/flow-toolkit/pkg/geometry"
	"github.com/ha1tch/flow-toolkit/pkg/graph"
)

// GenerateDOT converts a scene to Graphviz DOT format. Nodes keep their
// registry order; edges are labelled with the source port where it matters.
func GenerateDOT(reg *graph.Registry, title string) string {
	var sb strings.Builder

	sb.WriteString("digraph Flow {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=11];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	if title != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		fmt.Fprintf(&sb, "    label=\"%s\";\n", escapeDOT(title))
		sb.WriteString("\n")
	}

	for _, n := range reg.Nodes() {
		attrs := []string{fmt.Sprintf("label=\"%s\"", escapeDOT(nodeLabel(n)))}
		if len(n.Errors) > 0 {
			attrs = append(attrs, "color=\"#c62828\"")
		}
		if n.Description != "" {
			attrs = append(attrs, fmt.Sprintf("tooltip=\"%s\"", escapeDOT(n.Description)))
		}
		fmt.Fprintf(&sb, "    \"%s\" [%s];\n", escapeDOT(n.ID), strings.Join(attrs, ", "))
	}
	sb.WriteString("\n")

	for _, l := range reg.Links() {
		var attrs []string
		if label := linkLabel(reg, l); label != "" {
			attrs = append(attrs, fmt.Sprintf("label=\"%s\"", escapeDOT(label)))
		}
		if l.Routing == geometry.Orthogonal {
			attrs = append(attrs, "style=dashed")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&sb, "    \"%s\" -> \"%s\";\n", escapeDOT(l.FromNodeID), escapeDOT(l.ToNodeID))
			continue
		}
		fmt.Fprintf(&sb, "    \"%s\" -> \"%s\" [%s];\n",
			escapeDOT(l.FromNodeID), escapeDOT(l.ToNodeID), strings.Join(attrs, ", "))
	}

	sb.WriteString("}\n")
	return sb.String()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
