// Package tracing provides hooks that record what happens during a game.
package tracing

import (
	"sync"

	"github.com/sarchlab/chameneos/broker"
	"github.com/sarchlab/chameneos/creature"
	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/naming"
	"github.com/sarchlab/chameneos/protocol"
	"github.com/sarchlab/chameneos/wire"
)

// Counts is a snapshot of a CountingTracer. Creature maps are keyed by the
// creature name, broker maps by the broker name and frame maps by the channel
// name.
type Counts struct {
	Announcements map[string]int
	Meetings      map[string]int
	StopsRecvd    map[string]int
	Pairings      map[string]int
	Tallies       map[string]int
	TalliedTotal  map[string]int
	StopsSent     map[string]map[protocol.Identity]int
	FramesSent    map[string]int
	FramesRecvd   map[string]int
}

// CountingTracer counts every hook event by component. It is safe for
// concurrent use.
type CountingTracer struct {
	lock   sync.Mutex
	counts Counts
}

// NewCountingTracer creates a CountingTracer.
func NewCountingTracer() *CountingTracer {
	return &CountingTracer{counts: newCounts()}
}

func newCounts() Counts {
	return Counts{
		Announcements: make(map[string]int),
		Meetings:      make(map[string]int),
		StopsRecvd:    make(map[string]int),
		Pairings:      make(map[string]int),
		Tallies:       make(map[string]int),
		TalliedTotal:  make(map[string]int),
		StopsSent:     make(map[string]map[protocol.Identity]int),
		FramesSent:    make(map[string]int),
		FramesRecvd:   make(map[string]int),
	}
}

// Func counts the event.
func (t *CountingTracer) Func(ctx hooking.HookCtx) {
	name := domainName(ctx.Domain)

	t.lock.Lock()
	defer t.lock.Unlock()

	switch ctx.Pos {
	case creature.HookPosAnnounce:
		t.counts.Announcements[name]++
	case creature.HookPosMeet:
		t.counts.Meetings[name]++
	case creature.HookPosStop:
		t.counts.StopsRecvd[name]++
	case broker.HookPosPair:
		t.counts.Pairings[name]++
	case broker.HookPosTally:
		t.counts.Tallies[name]++
		t.counts.TalliedTotal[name] += ctx.Item.(protocol.Tally).Meetings
	case broker.HookPosStopSent:
		sent, ok := t.counts.StopsSent[name]
		if !ok {
			sent = make(map[protocol.Identity]int)
			t.counts.StopsSent[name] = sent
		}

		sent[ctx.Item.(protocol.Identity)]++
	case wire.HookPosFrameSent:
		t.counts.FramesSent[name]++
	case wire.HookPosFrameRecvd:
		t.counts.FramesRecvd[name]++
	}
}

// Counts returns a copy of the counters.
func (t *CountingTracer) Counts() Counts {
	t.lock.Lock()
	defer t.lock.Unlock()

	c := newCounts()
	copyInto(c.Announcements, t.counts.Announcements)
	copyInto(c.Meetings, t.counts.Meetings)
	copyInto(c.StopsRecvd, t.counts.StopsRecvd)
	copyInto(c.Pairings, t.counts.Pairings)
	copyInto(c.Tallies, t.counts.Tallies)
	copyInto(c.TalliedTotal, t.counts.TalliedTotal)
	copyInto(c.FramesSent, t.counts.FramesSent)
	copyInto(c.FramesRecvd, t.counts.FramesRecvd)

	for name, sent := range t.counts.StopsSent {
		c.StopsSent[name] = make(map[protocol.Identity]int, len(sent))
		copyInto(c.StopsSent[name], sent)
	}

	return c
}

func copyInto[K comparable](dst, src map[K]int) {
	for k, v := range src {
		dst[k] = v
	}
}

func domainName(domain hooking.Hookable) string {
	if named, ok := domain.(naming.Named); ok {
		return named.Name()
	}

	return ""
}
