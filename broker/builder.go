package broker

import (
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/wire"
)

// Builder can build brokers.
type Builder struct {
	venue   wire.Receiver
	inboxes []wire.Sender
	budget  int
}

// MakeBuilder creates a Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithVenue sets the shared channel all creatures post to.
func (b Builder) WithVenue(venue wire.Receiver) Builder {
	b.venue = venue
	return b
}

// WithInboxes sets the private channels. The channel at index i belongs to
// the creature with identity i+1.
func (b Builder) WithInboxes(inboxes []wire.Sender) Builder {
	b.inboxes = inboxes
	return b
}

// WithBudget sets the number of pairings to perform.
func (b Builder) WithBudget(n int) Builder {
	b.budget = n
	return b
}

// Build creates a broker. The inbox table is copied and never changes.
func (b Builder) Build(name string) *Broker {
	if b.venue == nil {
		panic("broker needs a venue")
	}

	if b.budget < 0 {
		panic("pairing budget must not be negative")
	}

	inboxes := make([]wire.Sender, len(b.inboxes))
	for i, inbox := range b.inboxes {
		if inbox == nil {
			panic("broker inbox must not be nil")
		}

		inboxes[i] = inbox
	}

	return &Broker{
		NamedBase: naming.MakeNamedBase(name),
		venue:     b.venue,
		inboxes:   inboxes,
		budget:    b.budget,
		stopped:   make([]bool, len(inboxes)),
	}
}
