package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MONDERASDOR/SaverTab/component"
	"github.com/MONDERASDOR/SaverTab/version"
)

// MaxNameLength is the longest profile name clients accept in an add entry.
const MaxNameLength = 16

// Action ordinals of the pre 1.19.3 player list item packet.
const (
	legacyAddPlayer         = 0
	legacyUpdateDisplayName = 3
	legacyRemovePlayer      = 4
)

// Action bits of the 1.19.3+ player info update packet.
const (
	bitAddPlayer         = 0x01
	bitUpdateGameMode    = 0x04
	bitUpdateListed      = 0x08
	bitUpdateLatency     = 0x10
	bitUpdateDisplayName = 0x20
)

type packetIDs struct {
	playerInfo       int
	playerInfoRemove int
	chat             int
}

func idsFor(v version.Version) packetIDs {
	switch {
	case v >= version.V1_20_2:
		return packetIDs{0x3C, 0x3B, 0x67}
	case v >= version.V1_19_4:
		return packetIDs{0x3A, 0x39, 0x64}
	case v >= version.V1_19_3:
		return packetIDs{0x36, 0x35, 0x60}
	case v >= version.V1_19_1:
		return packetIDs{0x37, -1, 0x62}
	case v >= version.V1_19:
		return packetIDs{0x34, -1, 0x5F}
	case v >= version.V1_17:
		return packetIDs{0x36, -1, 0x0F}
	case v >= version.V1_16_2:
		return packetIDs{0x32, -1, 0x0E}
	case v >= version.V1_16:
		return packetIDs{0x33, -1, 0x0E}
	case v >= version.V1_15:
		return packetIDs{0x34, -1, 0x0F}
	case v >= version.V1_14:
		return packetIDs{0x33, -1, 0x0E}
	case v >= version.V1_13:
		return packetIDs{0x30, -1, 0x0E}
	case v >= version.V1_12_1:
		return packetIDs{0x2E, -1, 0x0F}
	case v >= version.V1_9:
		return packetIDs{0x2D, -1, 0x0F}
	case v >= version.V1_8:
		return packetIDs{0x38, -1, 0x02}
	}
	return packetIDs{-1, -1, 0x02}
}

// SerializePlayerInfo encodes pk for a client running v. Clients older than
// 1.8 have no display name support and get ErrUnsupportedVersion.
func SerializePlayerInfo(pk *PlayerInfoPacket, v version.Version) (Packet, error) {
	if !v.SupportsPlayerInfo() {
		return Packet{}, fmt.Errorf("%s for %v: %w", pk.Action, v, ErrUnsupportedVersion)
	}
	if v.UsesPlayerInfoBitset() {
		return serializeBitset(pk, v)
	}
	var action int
	switch pk.Action {
	case AddPlayer:
		action = legacyAddPlayer
	case UpdateDisplayName:
		action = legacyUpdateDisplayName
	case RemovePlayer:
		action = legacyRemovePlayer
	default:
		return Packet{}, fmt.Errorf("unknown player info action %v", pk.Action)
	}
	buf := new(bytes.Buffer)
	buf.Write(WriteVarInt(action))
	buf.Write(WriteVarInt(len(pk.Entries)))
	for _, e := range pk.Entries {
		buf.Write(WriteUUID(e.UUID))
		switch pk.Action {
		case AddPlayer:
			buf.Write(WriteString(truncateName(e.Name)))
			buf.Write(WriteVarInt(0)) // properties
			buf.Write(WriteVarInt(e.GameMode))
			buf.Write(WriteVarInt(e.Latency))
			if err := writeDisplayName(buf, e.DisplayName); err != nil {
				return Packet{}, err
			}
			if v.HasSignatureData() {
				buf.Write(WriteBool(false))
			}
		case UpdateDisplayName:
			if err := writeDisplayName(buf, e.DisplayName); err != nil {
				return Packet{}, err
			}
		}
	}
	return Packet{ID: idsFor(v).playerInfo, Data: buf.Bytes()}, nil
}

func serializeBitset(pk *PlayerInfoPacket, v version.Version) (Packet, error) {
	ids := idsFor(v)
	buf := new(bytes.Buffer)
	if pk.Action == RemovePlayer {
		buf.Write(WriteVarInt(len(pk.Entries)))
		for _, e := range pk.Entries {
			buf.Write(WriteUUID(e.UUID))
		}
		return Packet{ID: ids.playerInfoRemove, Data: buf.Bytes()}, nil
	}
	var actions byte
	switch pk.Action {
	case AddPlayer:
		actions = bitAddPlayer | bitUpdateGameMode | bitUpdateListed | bitUpdateLatency | bitUpdateDisplayName
	case UpdateDisplayName:
		actions = bitUpdateDisplayName
	default:
		return Packet{}, fmt.Errorf("unknown player info action %v", pk.Action)
	}
	buf.WriteByte(actions)
	buf.Write(WriteVarInt(len(pk.Entries)))
	for _, e := range pk.Entries {
		buf.Write(WriteUUID(e.UUID))
		if actions&bitAddPlayer != 0 {
			buf.Write(WriteString(truncateName(e.Name)))
			buf.Write(WriteVarInt(0))
		}
		if actions&bitUpdateGameMode != 0 {
			buf.Write(WriteVarInt(e.GameMode))
		}
		if actions&bitUpdateListed != 0 {
			buf.Write(WriteBool(true))
		}
		if actions&bitUpdateLatency != 0 {
			buf.Write(WriteVarInt(e.Latency))
		}
		if err := writeDisplayName(buf, e.DisplayName); err != nil {
			return Packet{}, err
		}
	}
	return Packet{ID: ids.playerInfo, Data: buf.Bytes()}, nil
}

func writeDisplayName(buf *bytes.Buffer, c *component.Component) error {
	if c == nil {
		buf.Write(WriteBool(false))
		return nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode display name: %w", err)
	}
	buf.Write(WriteBool(true))
	buf.Write(WriteString(string(b)))
	return nil
}

func truncateName(name string) string {
	rs := []rune(name)
	if len(rs) > MaxNameLength {
		return string(rs[:MaxNameLength])
	}
	return name
}
