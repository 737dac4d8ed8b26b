package creature

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/chameneos/hooking"
	"github.com/sarchlab/chameneos/palette"
	"github.com/sarchlab/chameneos/protocol"
	"github.com/sarchlab/chameneos/wire"
)

var _ = Describe("Creature", func() {
	var (
		mockCtrl *gomock.Controller
		venue    *MockSender
		inbox    *MockReceiver
		c        *Creature
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		venue = NewMockSender(mockCtrl)
		inbox = NewMockReceiver(mockCtrl)
		c = MakeBuilder().
			WithIdentity(1).
			WithColor(palette.Blue).
			WithVenue(venue).
			WithInbox(inbox).
			Build("Round[1].Creature[1]")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should report zero meetings when stopped at once", func() {
		gomock.InOrder(
			venue.EXPECT().Send("1 blue").Return(nil),
			inbox.EXPECT().Receive().Return("", false, nil),
			venue.EXPECT().Send("0").Return(nil),
		)

		report, err := c.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Meetings).To(Equal(0))
		Expect(report.SelfMeetings).To(Equal(0))
		Expect(report.String()).To(Equal("0  zero"))
	})

	It("should take the complement color after a meeting", func() {
		gomock.InOrder(
			venue.EXPECT().Send("1 blue").Return(nil),
			inbox.EXPECT().Receive().Return("2 red", true, nil),
			venue.EXPECT().Send("1 yellow").Return(nil),
			inbox.EXPECT().Receive().Return("3 blue", true, nil),
			venue.EXPECT().Send("1 red").Return(nil),
			inbox.EXPECT().Receive().Return("stop", true, nil),
			venue.EXPECT().Send("2").Return(nil),
		)

		report, err := c.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Meetings).To(Equal(2))
		Expect(report.SelfMeetings).To(Equal(0))
		Expect(report.Color).To(Equal(palette.Red))
		Expect(c.State().Color).To(Equal(palette.Red))
	})

	It("should count meeting itself", func() {
		gomock.InOrder(
			venue.EXPECT().Send("1 blue").Return(nil),
			inbox.EXPECT().Receive().Return("1 blue", true, nil),
			venue.EXPECT().Send("1 blue").Return(nil),
			inbox.EXPECT().Receive().Return("", false, nil),
			venue.EXPECT().Send("1").Return(nil),
		)

		report, err := c.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(report.Meetings).To(Equal(1))
		Expect(report.SelfMeetings).To(Equal(1))
		Expect(report.Color).To(Equal(palette.Blue))
		Expect(report.String()).To(Equal("1  one"))
	})

	It("should fail when the inbox is closed", func() {
		gomock.InOrder(
			venue.EXPECT().Send("1 blue").Return(nil),
			inbox.EXPECT().Receive().Return("", false, wire.ErrClosed),
		)

		_, err := c.Run(context.Background())

		Expect(err).To(MatchError(wire.ErrClosed))
	})

	It("should fail on a malformed reply", func() {
		gomock.InOrder(
			venue.EXPECT().Send("1 blue").Return(nil),
			inbox.EXPECT().Receive().Return("2 green", true, nil),
		)

		_, err := c.Run(context.Background())

		Expect(err).To(MatchError(protocol.ErrMalformed))
	})

	It("should fail when the tally cannot be posted", func() {
		sendErr := errors.New("broken")

		gomock.InOrder(
			venue.EXPECT().Send("1 blue").Return(nil),
			inbox.EXPECT().Receive().Return("", false, nil),
			venue.EXPECT().Send("0").Return(sendErr),
		)

		_, err := c.Run(context.Background())

		Expect(err).To(MatchError(sendErr))
	})

	It("should not announce once canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Run(ctx)

		Expect(err).To(MatchError(context.Canceled))
	})

	It("should invoke hooks", func() {
		hook := NewMockHook(mockCtrl)
		c.AcceptHook(hook)

		gomock.InOrder(
			venue.EXPECT().Send("1 blue").Return(nil),
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: c,
				Pos:    HookPosAnnounce,
				Item:   protocol.Announcement{ID: 1, Color: palette.Blue},
			}),
			inbox.EXPECT().Receive().Return("2 red", true, nil),
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: c,
				Pos:    HookPosMeet,
				Item:   protocol.PairingResult{Peer: 2, PeerColor: palette.Red},
				Detail: State{ID: 1, Color: palette.Yellow, Meetings: 1},
			}),
			venue.EXPECT().Send("1 yellow").Return(nil),
			hook.EXPECT().Func(gomock.Any()),
			inbox.EXPECT().Receive().Return("", false, nil),
			hook.EXPECT().Func(hooking.HookCtx{
				Domain: c,
				Pos:    HookPosStop,
				Item:   FinalReport{ID: 1, Color: palette.Yellow, Meetings: 1},
			}),
			venue.EXPECT().Send("1").Return(nil),
		)

		_, err := c.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
	})

	It("should refuse to build without channels", func() {
		Expect(func() {
			MakeBuilder().WithIdentity(1).Build("Creature[1]")
		}).To(Panic())
	})

	It("should refuse to build without identity", func() {
		Expect(func() {
			MakeBuilder().WithVenue(venue).WithInbox(inbox).Build("Creature[1]")
		}).To(Panic())
	})
})
