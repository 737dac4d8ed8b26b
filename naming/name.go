package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// element matches one dot-separated part of a name: a capitalized word
// followed by any number of indices, such as "Creature[3]".
var element = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*(\[[0-9]+\])*$`)

// MustBeValid panics unless every dot-separated element of the name is a
// capitalized word with optional square-bracket indices, as in
// "Game.Round[1].Creature[3]".
func MustBeValid(name string) {
	for _, e := range strings.Split(name, ".") {
		if !element.MatchString(e) {
			panic(fmt.Sprintf("name %q: element %q is not valid", name, e))
		}
	}
}

// Build builds a name from a parent name and an element name.
func Build(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildWithIndex builds a name from a parent name, an element name and an
// index.
func BuildWithIndex(parentName, elementName string, index int) string {
	return Build(parentName, elementName+"["+strconv.Itoa(index)+"]")
}

// Parent returns the name of the element that contains the named element, or
// an empty string for a top-level name.
func Parent(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}

	return name[:i]
}
