package main

import (
	"fmt"
	"os"
)

// ANSI colors for CLI feedback. All feedback goes to stderr so command
// output on stdout stays pipeable.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printMarked(color, mark, format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printMarked(colorGreen, "✓", format, args...) }

func printError(format string, args ...any) { printMarked(colorRed, "✗", format, args...) }

func printWarning(format string, args ...any) { printMarked(colorYellow, "⚠", format, args...) }

// printStatus renders one "Label: value" line of `perctx status` output.
func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), val)
}
