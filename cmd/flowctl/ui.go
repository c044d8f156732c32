package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Output styles.
var (
	Brand  = color.New(color.FgHiCyan, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

func banner(subtitle string) {
	fmt.Printf("%s - %s\n\n", Brand.Sprint("flowctl"), subtitle)
}

// field prints one aligned "label  value" line.
func field(label string, format string, args ...any) {
	fmt.Printf("  %s  %s\n", Brand.Sprintf("%-10s", label), fmt.Sprintf(format, args...))
}

func statusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

func warnIcon() string {
	return Warn.Sprint("!")
}

func list(items []string) string {
	if len(items) == 0 {
		return Subtle.Sprint("none")
	}
	return strings.Join(items, ", ")
}
