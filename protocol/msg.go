// Package protocol defines the messages exchanged between creatures and the
// broker and their textual payloads on the wire.
//
// Creatures post to the shared channel:
//
//	Announcement  "<identity> <color>"
//	Tally         "<meetings>"
//
// The broker replies on a creature's private channel:
//
//	PairingResult "<peerIdentity> <peerColor>"
//	Stop          the end frame (the payload "stop" is also accepted)
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/chameneos/palette"
)

// StopKeyword is the textual form of the stop signal.
const StopKeyword = "stop"

// ErrMalformed is returned for a payload that is not a valid message.
var ErrMalformed = errors.New("protocol: malformed message")

// Identity is the 1-based number of a creature within a round.
type Identity int

// An Inbound message travels from a creature to the broker.
type Inbound interface {
	Payload() string
	isInbound()
}

// A Reply travels from the broker to one creature.
type Reply interface {
	isReply()
}

// Announcement is a creature's current state, sent once per round trip.
type Announcement struct {
	ID    Identity
	Color palette.Color
}

// Payload returns "<identity> <color>".
func (a Announcement) Payload() string {
	return formatPair(a.ID, a.Color)
}

func (Announcement) isInbound() {}

// Tally is a creature's final meeting count.
type Tally struct {
	Meetings int
}

// Payload returns the decimal meeting count.
func (t Tally) Payload() string {
	return strconv.Itoa(t.Meetings)
}

func (Tally) isInbound() {}

// PairingResult tells a creature whom it met.
type PairingResult struct {
	Peer      Identity
	PeerColor palette.Color
}

// Payload returns "<peerIdentity> <peerColor>".
func (r PairingResult) Payload() string {
	return formatPair(r.Peer, r.PeerColor)
}

func (PairingResult) isReply() {}

// Stop ends a creature's loop.
type Stop struct{}

func (Stop) isReply() {}

// ResultFor returns what the partner of a receives when a is matched.
func ResultFor(a Announcement) PairingResult {
	return PairingResult{Peer: a.ID, PeerColor: a.Color}
}

func formatPair(id Identity, c palette.Color) string {
	return strconv.Itoa(int(id)) + " " + c.String()
}

// ParseInbound decodes a payload read from the shared channel. Two fields
// make an Announcement, one field makes a Tally.
func ParseInbound(payload string) (Inbound, error) {
	fields := strings.Fields(payload)

	switch len(fields) {
	case 2:
		id, c, err := parsePair(fields)
		if err != nil {
			return nil, err
		}

		return Announcement{ID: id, Color: c}, nil
	case 1:
		meetings, err := strconv.Atoi(fields[0])
		if err != nil || meetings < 0 {
			return nil, fmt.Errorf("%w: bad tally %q", ErrMalformed, payload)
		}

		return Tally{Meetings: meetings}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
	}
}

// ParseReply decodes a frame read from a private channel. ok is false for the
// end frame.
func ParseReply(payload string, ok bool) (Reply, error) {
	if !ok {
		return Stop{}, nil
	}

	fields := strings.Fields(payload)
	if len(fields) == 1 && fields[0] == StopKeyword {
		return Stop{}, nil
	}

	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, payload)
	}

	id, c, err := parsePair(fields)
	if err != nil {
		return nil, err
	}

	return PairingResult{Peer: id, PeerColor: c}, nil
}

func parsePair(fields []string) (Identity, palette.Color, error) {
	id, err := strconv.Atoi(fields[0])
	if err != nil || id < 1 {
		return 0, 0, fmt.Errorf("%w: bad identity %q", ErrMalformed, fields[0])
	}

	c, err := palette.Parse(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return Identity(id), c, nil
}
