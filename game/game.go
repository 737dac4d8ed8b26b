// Package game drives rounds of creatures and a broker and prints the
// report of a run.
package game

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/id"
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/palette"
	"github.com/sarchlab/chameneos/wire"
)

// DefaultRounds returns the two color sequences of a standard run: three
// creatures, then ten.
func DefaultRounds() [][]palette.Color {
	b, r, y := palette.Blue, palette.Red, palette.Yellow

	return [][]palette.Color{
		{b, r, y},
		{b, r, y, r, y, b, r, y, r, b},
	}
}

// Game runs a sequence of rounds over the same pairing budget. Hooks
// accepted by the game are attached to every round and every component.
type Game struct {
	naming.NamedBase
	hooking.HookableBase

	budget    int
	rounds    [][]palette.Color
	transport wire.Transport
	timeout   time.Duration
	idGen     id.IDGenerator
	out       io.Writer
}

// Budget returns the pairing budget of each round.
func (g *Game) Budget() int {
	return g.budget
}

// NewRound creates the round with the given 1-based index.
func (g *Game) NewRound(index int, colors []palette.Color) (*Round, error) {
	if g.budget > 0 && len(colors) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewCreatures, len(colors))
	}

	name := naming.BuildWithIndex(g.Name(), "Round", index)
	r := &Round{
		NamedBase: naming.MakeNamedBase(name),
		info: RoundInfo{
			ID:     g.idGen.Generate(),
			Name:   name,
			Colors: append([]palette.Color(nil), colors...),
			Budget: g.budget,
		},
		transport: g.transport,
		timeout:   g.timeout,
	}

	for _, h := range g.Hooks() {
		r.AcceptHook(h)
	}

	return r, nil
}

// Run prints the complement table, runs every round and prints its report,
// then prints the elapsed time. It stops at the first failing round.
func (g *Game) Run(ctx context.Context) ([]RoundResult, error) {
	start := time.Now()

	PrintComplementTable(g.out)

	results := make([]RoundResult, 0, len(g.rounds))
	for i, colors := range g.rounds {
		round, err := g.NewRound(i+1, colors)
		if err != nil {
			return results, err
		}

		PrintRoundHeader(g.out, colors)

		result, err := round.Run(ctx)
		if err != nil {
			return results, err
		}

		PrintRoundResult(g.out, result)
		results = append(results, result)
	}

	PrintDuration(g.out, time.Since(start))

	return results, nil
}
