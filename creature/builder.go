package creature

import (
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/palette"
	"github.com/sarchlab/chameneos/protocol"
	"github.com/sarchlab/chameneos/wire"
)

// Builder can build creatures.
type Builder struct {
	id    protocol.Identity
	color palette.Color
	venue wire.Sender
	inbox wire.Receiver
}

// MakeBuilder creates a Builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithIdentity sets the identity. It must be at least 1.
func (b Builder) WithIdentity(id protocol.Identity) Builder {
	b.id = id
	return b
}

// WithColor sets the initial color.
func (b Builder) WithColor(c palette.Color) Builder {
	b.color = c
	return b
}

// WithVenue sets the shared channel to the broker.
func (b Builder) WithVenue(venue wire.Sender) Builder {
	b.venue = venue
	return b
}

// WithInbox sets the private channel the broker replies on.
func (b Builder) WithInbox(inbox wire.Receiver) Builder {
	b.inbox = inbox
	return b
}

// Build creates a creature.
func (b Builder) Build(name string) *Creature {
	if b.id < 1 {
		panic("creature identity must be at least 1")
	}

	if b.venue == nil || b.inbox == nil {
		panic("creature needs a venue and an inbox")
	}

	if !b.color.Valid() {
		panic("creature color not in palette")
	}

	return &Creature{
		NamedBase: naming.MakeNamedBase(name),
		state:     State{ID: b.id, Color: b.color},
		venue:     b.venue,
		inbox:     b.inbox,
	}
}
