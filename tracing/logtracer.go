package tracing

import (
	"log"

	"github.com/sarchlab/chameneos/broker"
	"github.com/sarchlab/chameneos/creature"
	"github.com/sarchlab/chameneos/game"
	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/protocol"
	"github.com/sarchlab/chameneos/wire"
)

// LogTracer writes the protocol events of a game to a logger. Announcements,
// meetings and raw frames are only logged when Chatty is set.
type LogTracer struct {
	*log.Logger

	Chatty bool
}

// NewLogTracer creates a LogTracer.
func NewLogTracer(logger *log.Logger) *LogTracer {
	return &LogTracer{Logger: logger}
}

// Func logs the event.
func (t *LogTracer) Func(ctx hooking.HookCtx) {
	name := domainName(ctx.Domain)

	switch ctx.Pos {
	case game.HookPosRoundStart:
		info := ctx.Item.(game.RoundInfo)
		t.Printf("%s: start, %d creatures, budget %d",
			name, len(info.Colors), info.Budget)
	case game.HookPosRoundEnd:
		t.logRoundEnd(name, ctx)
	case broker.HookPosPair:
		p := ctx.Item.(broker.Pairing)
		t.Printf("%s: pairing %d: %s with %s, %d left",
			name, p.Seq, p.First.Payload(), p.Second.Payload(), p.Remaining)
	case broker.HookPosStopSent:
		t.Printf("%s: stop sent to %d", name, ctx.Item.(protocol.Identity))
	case broker.HookPosTally:
		t.Printf("%s: tally %d, %d outstanding",
			name, ctx.Item.(protocol.Tally).Meetings, ctx.Detail)
	case creature.HookPosStop:
		t.Printf("%s: stopped: %s", name, ctx.Item.(creature.FinalReport))
	case creature.HookPosAnnounce:
		if t.Chatty {
			t.Printf("%s: announce %s",
				name, ctx.Item.(protocol.Announcement).Payload())
		}
	case creature.HookPosMeet:
		if t.Chatty {
			t.Printf("%s: met %s",
				name, ctx.Item.(protocol.PairingResult).Payload())
		}
	case wire.HookPosFrameSent, wire.HookPosFrameRecvd:
		if t.Chatty {
			t.logFrame(name, ctx)
		}
	}
}

func (t *LogTracer) logFrame(name string, ctx hooking.HookCtx) {
	verb := "sent"
	if ctx.Pos == wire.HookPosFrameRecvd {
		verb = "received"
	}

	f := ctx.Item.(wire.Frame)
	if f.End {
		t.Printf("%s: %s end frame", name, verb)
		return
	}

	t.Printf("%s: %s frame %q", name, verb, f.Payload)
}

func (t *LogTracer) logRoundEnd(name string, ctx hooking.HookCtx) {
	result := ctx.Item.(game.RoundResult)

	if err, ok := ctx.Detail.(error); ok && err != nil {
		t.Printf("%s: failed after %s: %v", name, result.Duration, err)
		return
	}

	t.Printf("%s: done in %s, %d meetings",
		name, result.Duration, result.Total())
}
