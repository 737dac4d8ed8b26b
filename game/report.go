package game

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sarchlab/chameneos/palette"
)

// PrintComplementTable prints one line per ordered pair of colors followed
// by an empty line.
func PrintComplementTable(w io.Writer) {
	for _, a := range palette.Colors() {
		for _, b := range palette.Colors() {
			fmt.Fprintf(w, "%s + %s -> %s\n", a, b, palette.Complement(a, b))
		}
	}

	fmt.Fprintln(w)
}

// PrintRoundHeader prints the initial colors of a round.
func PrintRoundHeader(w io.Writer, colors []palette.Color) {
	names := make([]string, len(colors))
	for i, c := range colors {
		names[i] = c.String()
	}

	fmt.Fprintln(w, " "+strings.Join(names, " "))
}

// PrintRoundResult prints the report line of every creature in identity
// order, the spelled total and an empty line.
func PrintRoundResult(w io.Writer, r RoundResult) {
	for _, report := range r.Reports {
		fmt.Fprintln(w, report.String())
	}

	fmt.Fprintln(w, palette.Spell(r.Total()))
	fmt.Fprintln(w)
}

// PrintDuration prints the elapsed time of a run.
func PrintDuration(w io.Writer, d time.Duration) {
	fmt.Fprintf(w, "duration: %.3f seconds\n", d.Seconds())
}
