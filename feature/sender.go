package feature

import (
	"fmt"

	"github.com/MONDERASDOR/SaverTab/errlog"
	"github.com/MONDERASDOR/SaverTab/player"
	"github.com/MONDERASDOR/SaverTab/protocol"
)

// Sender delivers an encoded packet to a client. Delivery is fire and
// forget.
type Sender interface {
	Send(receiver *player.Player, p protocol.Packet, tag Tag)
}

// ConnSender frames packets onto the player's own connection.
type ConnSender struct {
	Errors *errlog.Manager
}

func (s ConnSender) Send(receiver *player.Player, p protocol.Packet, tag Tag) {
	if err := receiver.Write(p.Encode()); err != nil && s.Errors != nil {
		s.Errors.PrintError(fmt.Sprintf("%s: failed to send packet %#x to %s", tag, p.ID, receiver.Name), err, false, errlog.Errors)
	}
}
