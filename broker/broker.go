// Package broker implements the coordinator of a game. The broker owns the
// shared channel every creature announces on and a private reply channel per
// creature. It pairs announcements two at a time in arrival order until the
// pairing budget is spent, then stops every creature and collects their
// tallies.
package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/protocol"
	"github.com/sarchlab/chameneos/wire"
)

// HookPosPair marks when two announcements have been matched and both
// results sent. Item is the Pairing.
var HookPosPair = &hooking.HookPos{Name: "Broker Pair"}

// HookPosStopSent marks when a stop signal has been sent. Item is the
// protocol.Identity of the stopped creature.
var HookPosStopSent = &hooking.HookPos{Name: "Broker Stop Sent"}

// HookPosTally marks when a tally has been collected. Item is the
// protocol.Tally, Detail the number of creatures still outstanding.
var HookPosTally = &hooking.HookPos{Name: "Broker Tally"}

var (
	// ErrUnknownCreature is returned when a message names an identity
	// without a registered inbox.
	ErrUnknownCreature = errors.New("broker: unknown creature")

	// ErrProtocol is returned when a message arrives in a phase that does
	// not allow it.
	ErrProtocol = errors.New("broker: protocol violation")

	// ErrTallyMismatch is returned when the tallies do not add up to two
	// meetings per pairing.
	ErrTallyMismatch = errors.New("broker: tallies do not match pairings")
)

// Phase is the stage the broker is in.
type Phase int

// Phases of a broker run.
const (
	PhaseMatching Phase = iota
	PhaseStopping
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseMatching:
		return "matching"
	case PhaseStopping:
		return "stopping"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Pairing is one matched pair of announcements.
type Pairing struct {
	Seq       int
	Remaining int
	First     protocol.Announcement
	Second    protocol.Announcement
}

// Result is what a broker run returns.
type Result struct {
	// Pairings is the number of pairing events performed.
	Pairings int

	// CreatureMeetings is the sum of all tallies. Every pairing counts once
	// for each of its two creatures.
	CreatureMeetings int

	// Tallies is the number of creatures that reported.
	Tallies int
}

// Total returns the number of meetings of the run as reported by the
// creatures, which equals the pairing budget.
func (r Result) Total() int {
	return r.CreatureMeetings / 2
}

// Broker matches creatures. It is driven by Run from a single goroutine.
type Broker struct {
	naming.NamedBase
	hooking.HookableBase

	venue   wire.Receiver
	inboxes []wire.Sender
	budget  int

	phase   Phase
	stopped []bool
	result  Result
}

// NumCreatures returns the number of creatures the broker waits for.
func (b *Broker) NumCreatures() int {
	return len(b.inboxes)
}

// Phase returns the current phase. It must not be called while Run is
// executing in another goroutine.
func (b *Broker) Phase() Phase {
	return b.phase
}

// Run performs the pairing budget, then stops all creatures and returns once
// every creature has sent its tally. A canceled context is observed between
// messages; whoever cancels must also close the channels.
func (b *Broker) Run(ctx context.Context) (Result, error) {
	err := b.match(ctx)
	if err != nil {
		return b.result, fmt.Errorf("%s: %w", b.Name(), err)
	}

	err = b.stopAll(ctx)
	if err != nil {
		return b.result, fmt.Errorf("%s: %w", b.Name(), err)
	}

	b.phase = PhaseDone

	if b.result.CreatureMeetings != 2*b.result.Pairings {
		return b.result, fmt.Errorf("%s: %w: %d pairings, %d meetings",
			b.Name(), ErrTallyMismatch,
			b.result.Pairings, b.result.CreatureMeetings)
	}

	return b.result, nil
}

func (b *Broker) match(ctx context.Context) error {
	b.phase = PhaseMatching

	for remaining := b.budget; remaining > 0; remaining-- {
		if err := ctx.Err(); err != nil {
			return err
		}

		first, err := b.readAnnouncement()
		if err != nil {
			return err
		}

		second, err := b.readAnnouncement()
		if err != nil {
			return err
		}

		err = b.reply(first.ID, protocol.ResultFor(second))
		if err != nil {
			return err
		}

		err = b.reply(second.ID, protocol.ResultFor(first))
		if err != nil {
			return err
		}

		b.result.Pairings++
		b.invoke(HookPosPair, Pairing{
			Seq:       b.result.Pairings,
			Remaining: remaining - 1,
			First:     first,
			Second:    second,
		}, nil)
	}

	return nil
}

func (b *Broker) readAnnouncement() (protocol.Announcement, error) {
	m, err := protocol.ReadInbound(b.venue)
	if err != nil {
		return protocol.Announcement{}, fmt.Errorf("reading announcement: %w", err)
	}

	a, ok := m.(protocol.Announcement)
	if !ok {
		return protocol.Announcement{}, fmt.Errorf(
			"%w: tally %q while pairings remain", ErrProtocol, m.Payload())
	}

	return a, nil
}

func (b *Broker) stopAll(ctx context.Context) error {
	b.phase = PhaseStopping

	for outstanding := len(b.inboxes); outstanding > 0; {
		if err := ctx.Err(); err != nil {
			return err
		}

		m, err := protocol.ReadInbound(b.venue)
		if err != nil {
			return fmt.Errorf("reading while stopping: %w", err)
		}

		switch m := m.(type) {
		case protocol.Announcement:
			err = b.stop(m.ID)
			if err != nil {
				return err
			}
		case protocol.Tally:
			outstanding--
			b.result.Tallies++
			b.result.CreatureMeetings += m.Meetings
			b.invoke(HookPosTally, m, outstanding)
		}
	}

	return nil
}

func (b *Broker) stop(id protocol.Identity) error {
	if err := b.mustKnow(id); err != nil {
		return err
	}

	if b.stopped[id-1] {
		return fmt.Errorf("%w: creature %d announced after stop",
			ErrProtocol, id)
	}

	err := b.reply(id, protocol.Stop{})
	if err != nil {
		return err
	}

	b.stopped[id-1] = true
	b.invoke(HookPosStopSent, id, nil)

	return nil
}

func (b *Broker) reply(id protocol.Identity, r protocol.Reply) error {
	if err := b.mustKnow(id); err != nil {
		return err
	}

	err := protocol.Respond(b.inboxes[id-1], r)
	if err != nil {
		return fmt.Errorf("replying to creature %d: %w", id, err)
	}

	return nil
}

func (b *Broker) mustKnow(id protocol.Identity) error {
	if id < 1 || int(id) > len(b.inboxes) {
		return fmt.Errorf("%w: %d", ErrUnknownCreature, id)
	}

	return nil
}

func (b *Broker) invoke(pos *hooking.HookPos, item, detail interface{}) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
