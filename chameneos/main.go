// Package main is the entry point of the chameneos game.
package main

import "github.com/sarchlab/chameneos/chameneos/cmd"

func main() {
	cmd.Execute()
}
