package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ErrUnsupportedVersion is returned when a packet cannot be encoded for the
// recipient's protocol version at all.
var ErrUnsupportedVersion = errors.New("packet not supported by client version")

// Packet is an encoded clientbound packet, not yet length framed.
type Packet struct {
	ID   int
	Data []byte
}

// Utility functions for Minecraft protocol
func ReadVarInt(r io.Reader) (int, error) {
	var num int
	var shift uint
	for {
		var b [1]byte
		_, err := io.ReadFull(r, b[:])
		if err != nil {
			return 0, err
		}
		num |= int(b[0]&0x7F) << shift
		if b[0]&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 35 {
			return 0, fmt.Errorf("VarInt too big")
		}
	}
	return num, nil
}

func ReadUnsignedShort(r io.Reader) (uint16, error) {
	var b [2]byte
	_, err := io.ReadFull(r, b[:])
	if err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func ReadString(r io.Reader) (string, error) {
	strlen, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	if strlen < 0 || strlen > 32767*4 {
		return "", fmt.Errorf("string length %d out of range", strlen)
	}
	b := make([]byte, strlen)
	_, err = io.ReadFull(r, b)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func ReadBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func ReadUUID(r io.Reader) (uuid.UUID, error) {
	var id uuid.UUID
	_, err := io.ReadFull(r, id[:])
	return id, err
}

// WriteVarInt encodes val as a VarInt. Negative values use the full five
// byte two's complement form.
func WriteVarInt(val int) []byte {
	u := uint32(int32(val))
	var out []byte
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if u == 0 {
			break
		}
	}
	return out
}

func WriteString(s string) []byte {
	b := WriteVarInt(len(s))
	b = append(b, []byte(s)...)
	return b
}

func WriteBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// WriteUUID encodes id as two big endian longs, which is its raw byte form.
func WriteUUID(id uuid.UUID) []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

// Encode frames p as length, id, payload.
func (p Packet) Encode() []byte {
	packet := append(WriteVarInt(p.ID), p.Data...)
	buf := bytes.NewBuffer(make([]byte, 0, len(packet)+5))
	buf.Write(WriteVarInt(len(packet)))
	buf.Write(packet)
	return buf.Bytes()
}

func WritePacket(w io.Writer, id int, data []byte) error {
	_, err := w.Write(Packet{ID: id, Data: data}.Encode())
	return err
}

// ReadPacket reads one length framed packet.
func ReadPacket(r io.Reader) (Packet, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return Packet{}, err
	}
	if length <= 0 || length > 1<<21 {
		return Packet{}, fmt.Errorf("packet length %d out of range", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Packet{}, fmt.Errorf("read packet body: %w", err)
	}
	br := bytes.NewReader(body)
	id, err := ReadVarInt(br)
	if err != nil {
		return Packet{}, fmt.Errorf("read packet id: %w", err)
	}
	return Packet{ID: id, Data: body[len(body)-br.Len():]}, nil
}
