package broker

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/palette"
	"github.com/sarchlab/chameneos/protocol"
	"github.com/sarchlab/chameneos/wire"
)

var _ = Describe("Broker", func() {
	var (
		mockCtrl *gomock.Controller
		venue    *MockReceiver
		inboxes  []*MockSender
	)

	feed := func(payloads ...string) {
		calls := make([]any, 0, len(payloads))
		for _, p := range payloads {
			calls = append(calls, venue.EXPECT().Receive().Return(p, true, nil))
		}

		gomock.InOrder(calls...)
	}

	build := func(budget int) *Broker {
		senders := make([]wire.Sender, len(inboxes))
		for i, inbox := range inboxes {
			senders[i] = inbox
		}

		return MakeBuilder().
			WithVenue(venue).
			WithInboxes(senders).
			WithBudget(budget).
			Build("Round[1].Broker")
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		venue = NewMockReceiver(mockCtrl)
		inboxes = []*MockSender{
			NewMockSender(mockCtrl),
			NewMockSender(mockCtrl),
			NewMockSender(mockCtrl),
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should pair in arrival order and then stop everyone", func() {
		feed("1 blue", "2 red",
			"3 yellow", "1 yellow", "1", "2 yellow", "1", "0")

		gomock.InOrder(
			inboxes[0].EXPECT().Send("2 red").Return(nil),
			inboxes[0].EXPECT().SendEnd().Return(nil),
		)
		gomock.InOrder(
			inboxes[1].EXPECT().Send("1 blue").Return(nil),
			inboxes[1].EXPECT().SendEnd().Return(nil),
		)
		inboxes[2].EXPECT().SendEnd().Return(nil)

		b := build(1)
		result, err := b.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Pairings).To(Equal(1))
		Expect(result.CreatureMeetings).To(Equal(2))
		Expect(result.Tallies).To(Equal(3))
		Expect(result.Total()).To(Equal(1))
		Expect(b.Phase()).To(Equal(PhaseDone))
	})

	It("should go straight to stopping with a zero budget", func() {
		feed("2 red", "3 yellow", "1 blue", "0", "0", "0")

		for _, inbox := range inboxes {
			inbox.EXPECT().SendEnd().Return(nil)
		}

		result, err := build(0).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Pairings).To(Equal(0))
		Expect(result.Total()).To(Equal(0))
		Expect(result.Tallies).To(Equal(3))
	})

	It("should pair a creature with itself", func() {
		inboxes = inboxes[:1]
		feed("1 blue", "1 blue", "1 blue", "2")

		gomock.InOrder(
			inboxes[0].EXPECT().Send("1 blue").Return(nil),
			inboxes[0].EXPECT().Send("1 blue").Return(nil),
			inboxes[0].EXPECT().SendEnd().Return(nil),
		)

		result, err := build(1).Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Pairings).To(Equal(1))
		Expect(result.CreatureMeetings).To(Equal(2))
	})

	It("should reject a tally while pairings remain", func() {
		feed("1 blue", "4")

		_, err := build(1).Run(context.Background())

		Expect(err).To(MatchError(ErrProtocol))
	})

	It("should reject unknown identities", func() {
		feed("7 blue", "1 red")

		_, err := build(1).Run(context.Background())

		Expect(err).To(MatchError(ErrUnknownCreature))
	})

	It("should reject an announcement after stop", func() {
		inboxes = inboxes[:1]
		feed("1 blue", "1 blue")
		inboxes[0].EXPECT().SendEnd().Return(nil)

		_, err := build(0).Run(context.Background())

		Expect(err).To(MatchError(ErrProtocol))
	})

	It("should detect tallies that do not add up", func() {
		inboxes = inboxes[:2]
		feed("1 blue", "2 red", "1", "5")
		inboxes[0].EXPECT().Send("2 red").Return(nil)
		inboxes[1].EXPECT().Send("1 blue").Return(nil)

		_, err := build(1).Run(context.Background())

		Expect(err).To(MatchError(ErrTallyMismatch))
	})

	It("should fail when the venue is closed", func() {
		venue.EXPECT().Receive().Return("", false, wire.ErrClosed)

		_, err := build(1).Run(context.Background())

		Expect(err).To(MatchError(wire.ErrClosed))
	})

	It("should stop reading once canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := build(1).Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
	})

	It("should invoke hooks", func() {
		inboxes = inboxes[:2]
		feed("2 red", "1 blue", "1 yellow", "2 yellow", "1", "1")
		inboxes[0].EXPECT().Send("2 red").Return(nil)
		inboxes[1].EXPECT().Send("1 blue").Return(nil)
		inboxes[0].EXPECT().SendEnd().Return(nil)
		inboxes[1].EXPECT().SendEnd().Return(nil)

		b := build(1)

		var positions []*hooking.HookPos
		var pairing Pairing
		b.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			positions = append(positions, ctx.Pos)
			if ctx.Pos == HookPosPair {
				pairing = ctx.Item.(Pairing)
			}
		}))

		_, err := b.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(positions).To(Equal([]*hooking.HookPos{
			HookPosPair,
			HookPosStopSent, HookPosStopSent,
			HookPosTally, HookPosTally,
		}))
		Expect(pairing.Seq).To(Equal(1))
		Expect(pairing.Remaining).To(Equal(0))
		Expect(pairing.First).To(Equal(protocol.Announcement{ID: 2, Color: palette.Red}))
	})
})
