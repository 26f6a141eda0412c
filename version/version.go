package version

import "fmt"

// Version is a client protocol version negotiated at handshake.
// Versions are ordered by their ordinal, oldest first.
type Version int

const (
	Unknown Version = iota
	V1_7_2
	V1_7_10
	V1_8
	V1_9
	V1_9_1
	V1_9_2
	V1_9_4
	V1_10
	V1_11
	V1_11_2
	V1_12
	V1_12_1
	V1_12_2
	V1_13
	V1_13_1
	V1_13_2
	V1_14
	V1_14_1
	V1_14_2
	V1_14_3
	V1_14_4
	V1_15
	V1_15_1
	V1_15_2
	V1_16
	V1_16_1
	V1_16_2
	V1_16_3
	V1_16_4
	V1_17
	V1_17_1
	V1_18
	V1_18_2
	V1_19
	V1_19_1
	V1_19_3
	V1_19_4
	V1_20
	V1_20_2
)

// Latest is the newest version this module knows how to serialize for.
const Latest = V1_20_2

type info struct {
	name     string
	protocol int
	minor    int
}

var table = [...]info{
	Unknown: {"unknown", -1, 0},
	V1_7_2:  {"1.7.2", 4, 7},
	V1_7_10: {"1.7.10", 5, 7},
	V1_8:    {"1.8.x", 47, 8},
	V1_9:    {"1.9", 107, 9},
	V1_9_1:  {"1.9.1", 108, 9},
	V1_9_2:  {"1.9.2", 109, 9},
	V1_9_4:  {"1.9.4", 110, 9},
	V1_10:   {"1.10.x", 210, 10},
	V1_11:   {"1.11", 315, 11},
	V1_11_2: {"1.11.2", 316, 11},
	V1_12:   {"1.12", 335, 12},
	V1_12_1: {"1.12.1", 338, 12},
	V1_12_2: {"1.12.2", 340, 12},
	V1_13:   {"1.13", 393, 13},
	V1_13_1: {"1.13.1", 401, 13},
	V1_13_2: {"1.13.2", 404, 13},
	V1_14:   {"1.14", 477, 14},
	V1_14_1: {"1.14.1", 480, 14},
	V1_14_2: {"1.14.2", 485, 14},
	V1_14_3: {"1.14.3", 490, 14},
	V1_14_4: {"1.14.4", 498, 14},
	V1_15:   {"1.15", 573, 15},
	V1_15_1: {"1.15.1", 575, 15},
	V1_15_2: {"1.15.2", 578, 15},
	V1_16:   {"1.16", 735, 16},
	V1_16_1: {"1.16.1", 736, 16},
	V1_16_2: {"1.16.2", 751, 16},
	V1_16_3: {"1.16.3", 753, 16},
	V1_16_4: {"1.16.4", 754, 16},
	V1_17:   {"1.17", 755, 17},
	V1_17_1: {"1.17.1", 756, 17},
	V1_18:   {"1.18", 757, 18},
	V1_18_2: {"1.18.2", 758, 18},
	V1_19:   {"1.19", 759, 19},
	V1_19_1: {"1.19.1", 760, 19},
	V1_19_3: {"1.19.3", 761, 19},
	V1_19_4: {"1.19.4", 762, 19},
	V1_20:   {"1.20", 763, 20},
	V1_20_2: {"1.20.2", 764, 20},
}

var byProtocol = func() map[int]Version {
	m := make(map[int]Version, len(table))
	for v := V1_7_2; v <= Latest; v++ {
		m[table[v].protocol] = v
	}
	return m
}()

// FromProtocol maps a handshake protocol number to a Version. Numbers newer
// than Latest map to Latest, anything else unrecognised maps to Unknown.
func FromProtocol(n int) Version {
	if v, ok := byProtocol[n]; ok {
		return v
	}
	if n > table[Latest].protocol {
		return Latest
	}
	return Unknown
}

func (v Version) valid() bool { return v >= Unknown && v <= Latest }

func (v Version) String() string {
	if !v.valid() {
		return fmt.Sprintf("Version(%d)", int(v))
	}
	return table[v].name
}

// Protocol returns the network protocol number, -1 for Unknown.
func (v Version) Protocol() int {
	if !v.valid() {
		return -1
	}
	return table[v].protocol
}

// Minor returns the minor release number, e.g. 8 for 1.8.9.
func (v Version) Minor() int {
	if !v.valid() {
		return 0
	}
	return table[v].minor
}

// SupportsPlayerInfo reports whether the client understands the player info
// add/update display name packet at all. Older clients must never receive it.
func (v Version) SupportsPlayerInfo() bool { return v.Minor() >= 8 }

// SupportsRichText reports whether structured chat components render
// correctly in the tab list. 1.8 clients (and some modified 1.8 clients)
// only render the legacy colour codes reliably.
func (v Version) SupportsRichText() bool { return v.Minor() >= 9 }

// SupportsHexColors reports whether RGB colours can be sent.
func (v Version) SupportsHexColors() bool { return v.Minor() >= 16 }

// AffectedByAddDisplayNameBug reports whether the client may be a 1.8.0
// build, which ignores the display name of an add player entry the first
// time it receives it. 1.8.x builds share one protocol number so every
// 1.8 client is treated as affected.
func (v Version) AffectedByAddDisplayNameBug() bool { return v == V1_8 }

// UsesPlayerInfoBitset reports whether the player info packet encodes its
// actions as an EnumSet and removals in a separate packet (1.19.3+).
func (v Version) UsesPlayerInfoBitset() bool { return v >= V1_19_3 }

// HasSignatureData reports whether add player entries carry the chat
// signing key field introduced in 1.19 and moved out in 1.19.3.
func (v Version) HasSignatureData() bool { return v >= V1_19 && v < V1_19_3 }
