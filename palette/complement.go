package palette

var complementTable = buildComplementTable()

func buildComplementTable() [numColors][numColors]Color {
	var t [numColors][numColors]Color

	for _, a := range Colors() {
		for _, b := range Colors() {
			t[a][b] = third(a, b)
		}
	}

	return t
}

// third is the color neither a nor b, or a itself when a == b.
func third(a, b Color) Color {
	if a == b {
		return a
	}

	return Color(numColors*(numColors-1)/2) - a - b
}

// Complement returns the color two creatures of colors a and b both take
// after they meet. It panics on colors outside the palette.
func Complement(a, b Color) Color {
	if !a.Valid() || !b.Valid() {
		panic("color not in palette")
	}

	return complementTable[a][b]
}
