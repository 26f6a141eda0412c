package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MONDERASDOR/SaverTab/component"
	"github.com/MONDERASDOR/SaverTab/version"
)

// ChatMessageType is where a chat message is shown.
type ChatMessageType byte

const (
	ChatMessage ChatMessageType = iota
	SystemMessage
	GameInfo
)

// SerializeChat encodes a server message. Up to 1.18 the position is a byte
// after the JSON text, 1.16 adds the sender uuid, 1.19 uses the system chat
// packet with a VarInt type and 1.19.1+ replaced the type with an overlay
// flag.
func SerializeChat(msg *component.Component, kind ChatMessageType, v version.Version) (Packet, error) {
	if v == version.Unknown {
		return Packet{}, fmt.Errorf("chat for %v: %w", v, ErrUnsupportedVersion)
	}
	if !v.SupportsRichText() {
		msg = component.Plain(msg.Legacy)
	}
	text, err := json.Marshal(msg)
	if err != nil {
		return Packet{}, fmt.Errorf("encode chat: %w", err)
	}
	buf := new(bytes.Buffer)
	buf.Write(WriteString(string(text)))
	switch {
	case v >= version.V1_19_1:
		buf.Write(WriteBool(kind == GameInfo))
	case v >= version.V1_19:
		// the system chat type registry starts at 1 for system messages
		if kind == GameInfo {
			buf.Write(WriteVarInt(2))
		} else {
			buf.Write(WriteVarInt(1))
		}
	case v < version.V1_8:
		// 1.7 has no position field
	default:
		buf.WriteByte(byte(kind))
		if v >= version.V1_16 {
			buf.Write(WriteUUID(uuid.Nil))
		}
	}
	return Packet{ID: idsFor(v).chat, Data: buf.Bytes()}, nil
}
