package protocol

import (
	"fmt"

	"github.com/sarchlab/chameneos/wire"
)

// Post sends an Announcement or a Tally on the shared channel.
func Post(s wire.Sender, m Inbound) error {
	return s.Send(m.Payload())
}

// Respond sends a reply on a private channel. Stop is sent as the end frame.
func Respond(s wire.Sender, r Reply) error {
	switch r := r.(type) {
	case PairingResult:
		return s.Send(r.Payload())
	case Stop:
		return s.SendEnd()
	default:
		panic(fmt.Sprintf("unknown reply %T", r))
	}
}

// ReadInbound blocks until the next Announcement or Tally arrives.
func ReadInbound(r wire.Receiver) (Inbound, error) {
	payload, ok, err := r.Receive()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, fmt.Errorf("%w: end frame on shared channel", ErrMalformed)
	}

	return ParseInbound(payload)
}

// ReadReply blocks until the broker replies.
func ReadReply(r wire.Receiver) (Reply, error) {
	payload, ok, err := r.Receive()
	if err != nil {
		return nil, err
	}

	return ParseReply(payload, ok)
}
