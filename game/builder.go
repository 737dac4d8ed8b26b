package game

import (
	"io"
	"os"
	"time"

	"github.com/sarchlab/chameneos/id"
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/palette"
	"github.com/sarchlab/chameneos/wire"
)

// Builder can build games.
type Builder struct {
	budget    int
	rounds    [][]palette.Color
	transport wire.Transport
	timeout   time.Duration
	idGen     id.IDGenerator
	out       io.Writer
}

// MakeBuilder creates a Builder with the default rounds, the in-memory
// transport, sequential IDs and stdout as output.
func MakeBuilder() Builder {
	return Builder{
		rounds:    DefaultRounds(),
		transport: wire.MemTransport,
		idGen:     id.NewSequentialIDGenerator(),
		out:       os.Stdout,
	}
}

// WithBudget sets the number of pairings of each round.
func (b Builder) WithBudget(n int) Builder {
	b.budget = n
	return b
}

// WithRounds replaces the color sequences to run.
func (b Builder) WithRounds(rounds [][]palette.Color) Builder {
	b.rounds = rounds
	return b
}

// WithTransport sets what carries the channels.
func (b Builder) WithTransport(t wire.Transport) Builder {
	b.transport = t
	return b
}

// WithRoundTimeout bounds how long a round may take. Zero means no bound.
func (b Builder) WithRoundTimeout(d time.Duration) Builder {
	b.timeout = d
	return b
}

// WithIDGenerator sets the generator of round IDs.
func (b Builder) WithIDGenerator(g id.IDGenerator) Builder {
	b.idGen = g
	return b
}

// WithOutput sets where the report is printed.
func (b Builder) WithOutput(w io.Writer) Builder {
	b.out = w
	return b
}

// Build creates a game.
func (b Builder) Build(name string) *Game {
	if b.budget < 0 {
		panic("pairing budget must not be negative")
	}

	return &Game{
		NamedBase: naming.MakeNamedBase(name),
		budget:    b.budget,
		rounds:    b.rounds,
		transport: b.transport,
		timeout:   b.timeout,
		idGen:     b.idGen,
		out:       b.out,
	}
}
