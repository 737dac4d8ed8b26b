package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/chameneos/broker"
	"github.com/sarchlab/chameneos/creature"
	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/palette"
	"github.com/sarchlab/chameneos/protocol"
	"github.com/sarchlab/chameneos/wire"
)

// HookPosRoundStart marks when a round has built its components and is
// about to start them. Item is the RoundInfo.
var HookPosRoundStart = &hooking.HookPos{Name: "Round Start"}

// HookPosRoundEnd marks when a round has finished, successfully or not.
// Item is the RoundResult, Detail the error if any.
var HookPosRoundEnd = &hooking.HookPos{Name: "Round End"}

var (
	// ErrTooFewCreatures is returned for a round that could never finish
	// its pairing budget.
	ErrTooFewCreatures = errors.New("game: a positive budget needs at least two creatures")

	// ErrAborted is returned when a round is canceled or times out.
	ErrAborted = errors.New("game: round aborted")
)

// RoundInfo describes a round.
type RoundInfo struct {
	ID     string
	Name   string
	Colors []palette.Color
	Budget int
}

// RoundResult is the outcome of a round.
type RoundResult struct {
	RoundInfo

	Reports  []creature.FinalReport
	Broker   broker.Result
	Duration time.Duration
}

// Total returns the number of meetings of the round.
func (r RoundResult) Total() int {
	return r.Broker.Total()
}

// A Round is one run of the game for a fixed color sequence.
type Round struct {
	naming.NamedBase
	hooking.HookableBase

	info      RoundInfo
	transport wire.Transport
	timeout   time.Duration

	venue     *wire.Channel
	inboxes   []*wire.Channel
	broker    *broker.Broker
	creatures []*creature.Creature
}

// Info returns the description of the round.
func (r *Round) Info() RoundInfo {
	return r.info
}

// Run spawns one goroutine per creature, runs the broker and joins them all.
// If ctx is canceled, the timeout expires or any component fails, every
// channel of the round is closed so that no goroutine stays blocked.
func (r *Round) Run(ctx context.Context) (result RoundResult, err error) {
	result.RoundInfo = r.info
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)
		r.invoke(HookPosRoundEnd, result, err)
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	err = r.open()
	defer r.close()

	if err != nil {
		return result, fmt.Errorf("%s: %w", r.Name(), err)
	}

	r.build()
	r.invoke(HookPosRoundStart, r.info, nil)

	g, gctx := errgroup.WithContext(ctx)
	stopTeardown := context.AfterFunc(gctx, r.close)
	defer stopTeardown()

	result.Reports = make([]creature.FinalReport, len(r.creatures))
	for i, c := range r.creatures {
		i, c := i, c
		g.Go(func() error {
			report, err := c.Run(gctx)
			result.Reports[i] = report

			return err
		})
	}

	var brokerResult broker.Result
	g.Go(func() error {
		var err error
		brokerResult, err = r.broker.Run(gctx)

		return err
	})

	err = g.Wait()
	result.Broker = brokerResult

	switch {
	case err == nil:
		return result, nil
	case ctx.Err() != nil:
		return result, fmt.Errorf("%s: %w: %w",
			r.Name(), ErrAborted, context.Cause(ctx))
	default:
		return result, fmt.Errorf("%s: %w", r.Name(), err)
	}
}

func (r *Round) open() error {
	var err error

	r.venue, err = wire.Open(r.transport, naming.Build(r.Name(), "Venue"))
	if err != nil {
		return err
	}

	r.inboxes = make([]*wire.Channel, len(r.info.Colors))
	for i := range r.info.Colors {
		r.inboxes[i], err = wire.Open(r.transport,
			naming.BuildWithIndex(r.Name(), "Inbox", i+1))
		if err != nil {
			return err
		}
	}

	return nil
}

// close tears down every channel. It is idempotent.
func (r *Round) close() {
	if r.venue != nil {
		_ = r.venue.Close()
	}

	for _, inbox := range r.inboxes {
		if inbox != nil {
			_ = inbox.Close()
		}
	}
}

func (r *Round) build() {
	senders := make([]wire.Sender, len(r.inboxes))
	for i, inbox := range r.inboxes {
		senders[i] = inbox
	}

	r.broker = broker.MakeBuilder().
		WithVenue(r.venue).
		WithInboxes(senders).
		WithBudget(r.info.Budget).
		Build(naming.Build(r.Name(), "Broker"))

	r.creatures = make([]*creature.Creature, len(r.info.Colors))
	for i, c := range r.info.Colors {
		r.creatures[i] = creature.MakeBuilder().
			WithIdentity(protocol.Identity(i + 1)).
			WithColor(c).
			WithVenue(r.venue).
			WithInbox(r.inboxes[i]).
			Build(naming.BuildWithIndex(r.Name(), "Creature", i+1))
	}

	for _, h := range r.Hooks() {
		r.venue.AcceptHook(h)
		r.broker.AcceptHook(h)

		for _, inbox := range r.inboxes {
			inbox.AcceptHook(h)
		}

		for _, c := range r.creatures {
			c.AcceptHook(h)
		}
	}
}

func (r *Round) invoke(pos *hooking.HookPos, item, detail interface{}) {
	if r.NumHooks() == 0 {
		return
	}

	r.InvokeHook(hooking.HookCtx{
		Domain: r,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
