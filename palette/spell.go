package palette

import (
	"strconv"
	"strings"
)

var digitNames = [10]string{
	"zero", "one", "two", "three", "four",
	"five", "six", "seven", "eight", "nine",
}

// Spell writes each decimal digit of n as an English word, every word
// preceded by a space: Spell(120) is " one two zero". Negative numbers are
// spelled as their absolute value.
func Spell(n int) string {
	abs := uint64(n)
	if n < 0 {
		abs = -abs
	}

	var sb strings.Builder
	for _, d := range strconv.FormatUint(abs, 10) {
		sb.WriteByte(' ')
		sb.WriteString(digitNames[d-'0'])
	}

	return sb.String()
}
