package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// ANSI color constants for plain output (no lipgloss: runs outside the TUI).
const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiItalic = "\033[3m"
	ansiGold   = "\033[38;2;212;168;68m"  // #d4a844
	ansiAmber  = "\033[38;2;232;190;104m" // #e8be68
	ansiSlate  = "\033[38;2;136;144;160m" // #8890a0
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the folio version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout(), version)
		},
	}
}

// printLogo prints the spaced FOLIO wordmark in alternating gold.
func printLogo(w io.Writer) {
	letters := "FOLIO"
	colors := [2]string{ansiGold, ansiAmber}
	fmt.Fprint(w, "\n  ")
	for i, ch := range letters {
		fmt.Fprintf(w, "%s%s%c%s", colors[i%2], ansiBold, ch, ansiReset)
		if i < len(letters)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

func printVersion(w io.Writer, v string) {
	printLogo(w)
	fmt.Fprintf(w, "\n  %s%s%s%s  %s%s%s/%s%s\n\n",
		ansiGold, ansiBold, v, ansiReset,
		ansiSlate, ansiItalic, runtime.GOOS, runtime.GOARCH, ansiReset)
}
