// Package palette holds the colors a creature can take and the rule that
// combines two colors when creatures meet.
package palette

import (
	"fmt"
	"strings"
)

// Color is the state a creature carries.
type Color uint8

// The palette.
const (
	Blue Color = iota
	Red
	Yellow

	numColors = 3
)

var colorNames = [numColors]string{"blue", "red", "yellow"}

// Colors lists the palette in display order.
func Colors() []Color {
	return []Color{Blue, Red, Yellow}
}

func (c Color) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Color(%d)", uint8(c))
	}

	return colorNames[c]
}

// Valid reports whether c belongs to the palette.
func (c Color) Valid() bool {
	return c < numColors
}

// Parse returns the color with the given name.
func Parse(name string) (Color, error) {
	for i, n := range colorNames {
		if strings.EqualFold(n, name) {
			return Color(i), nil
		}
	}

	return 0, fmt.Errorf("unknown color %q", name)
}

// ParseList parses a space or comma separated list of colors.
func ParseList(s string) ([]Color, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})

	colors := make([]Color, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}

		colors = append(colors, c)
	}

	return colors, nil
}
