// Package creature implements the worker of a game. A creature announces its
// color to the broker, waits for whom it met, takes the complement color and
// repeats until the broker tells it to stop.
package creature

import (
	"context"
	"fmt"

	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/palette"
	"github.com/sarchlab/chameneos/protocol"
	"github.com/sarchlab/chameneos/wire"
)

// HookPosAnnounce marks when an announcement has been posted. Item is the
// protocol.Announcement.
var HookPosAnnounce = &hooking.HookPos{Name: "Creature Announce"}

// HookPosMeet marks when a pairing result has been applied. Item is the
// protocol.PairingResult, Detail the State after the update.
var HookPosMeet = &hooking.HookPos{Name: "Creature Meet"}

// HookPosStop marks when the stop signal has been received, before the tally
// is posted. Item is the FinalReport.
var HookPosStop = &hooking.HookPos{Name: "Creature Stop"}

// State is what a creature knows about itself.
type State struct {
	ID           protocol.Identity
	Color        palette.Color
	Meetings     int
	SelfMeetings int
}

// FinalReport is the final state of a creature that has been stopped.
type FinalReport State

// String formats the report line: the meeting count followed by the spelled
// self-meeting count.
func (r FinalReport) String() string {
	return fmt.Sprintf("%d %s", r.Meetings, palette.Spell(r.SelfMeetings))
}

// Creature is one worker. It is driven by Run from a single goroutine.
type Creature struct {
	naming.NamedBase
	hooking.HookableBase

	state State
	venue wire.Sender
	inbox wire.Receiver
}

// State returns the current state. It must not be called while Run is
// executing in another goroutine.
func (c *Creature) State() State {
	return c.state
}

// Run loops until the broker sends the stop signal, then posts the tally and
// returns the final report. A canceled context is only observed between
// round trips; whoever cancels must also close the channels to unblock a
// creature waiting for a reply.
func (c *Creature) Run(ctx context.Context) (FinalReport, error) {
	for {
		if err := ctx.Err(); err != nil {
			return FinalReport(c.state), fmt.Errorf("%s: %w", c.Name(), err)
		}

		stopped, err := c.roundTrip()
		if err != nil {
			return FinalReport(c.state), fmt.Errorf("%s: %w", c.Name(), err)
		}

		if stopped {
			return FinalReport(c.state), nil
		}
	}
}

func (c *Creature) roundTrip() (stopped bool, err error) {
	announcement := protocol.Announcement{ID: c.state.ID, Color: c.state.Color}

	err = protocol.Post(c.venue, announcement)
	if err != nil {
		return false, fmt.Errorf("announcing: %w", err)
	}

	c.invoke(HookPosAnnounce, announcement, nil)

	reply, err := protocol.ReadReply(c.inbox)
	if err != nil {
		return false, fmt.Errorf("waiting for broker: %w", err)
	}

	switch reply := reply.(type) {
	case protocol.Stop:
		return true, c.leave()
	case protocol.PairingResult:
		c.meet(reply)
		return false, nil
	default:
		panic(fmt.Sprintf("unexpected reply %T", reply))
	}
}

func (c *Creature) meet(r protocol.PairingResult) {
	if r.Peer == c.state.ID {
		c.state.SelfMeetings++
	}

	c.state.Meetings++
	c.state.Color = palette.Complement(c.state.Color, r.PeerColor)

	c.invoke(HookPosMeet, r, c.state)
}

func (c *Creature) leave() error {
	c.invoke(HookPosStop, FinalReport(c.state), nil)

	err := protocol.Post(c.venue, protocol.Tally{Meetings: c.state.Meetings})
	if err != nil {
		return fmt.Errorf("posting tally: %w", err)
	}

	return nil
}

func (c *Creature) invoke(pos *hooking.HookPos, item, detail interface{}) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
