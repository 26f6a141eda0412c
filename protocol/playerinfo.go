package protocol

import (
	"fmt"

	"github.com/brunoga/deep/v2"
	"github.com/google/uuid"

	"github.com/MONDERASDOR/SaverTab/component"
)

// PlayerInfoAction is the kind of tab list change a PlayerInfoPacket makes.
type PlayerInfoAction int

const (
	AddPlayer PlayerInfoAction = iota
	UpdateDisplayName
	RemovePlayer
)

func (a PlayerInfoAction) String() string {
	switch a {
	case AddPlayer:
		return "ADD_PLAYER"
	case UpdateDisplayName:
		return "UPDATE_DISPLAY_NAME"
	case RemovePlayer:
		return "REMOVE_PLAYER"
	}
	return fmt.Sprintf("PlayerInfoAction(%d)", int(a))
}

// PlayerInfoEntry is one player in a PlayerInfoPacket.
type PlayerInfoEntry struct {
	UUID uuid.UUID
	// Name, GameMode and Latency are only sent for AddPlayer.
	Name     string
	GameMode int
	Latency  int
	// DisplayName overrides the shown name, nil restores the default.
	DisplayName *component.Component
}

// Clone returns an independent deep copy of e.
func (e PlayerInfoEntry) Clone() PlayerInfoEntry {
	return deep.MustCopy(e)
}

// PlayerInfoPacket is the version independent form of a tab list update.
// Listeners may rewrite entries before the packet is serialized.
type PlayerInfoPacket struct {
	Action  PlayerInfoAction
	Entries []PlayerInfoEntry
}

func NewPlayerInfo(action PlayerInfoAction, entries ...PlayerInfoEntry) *PlayerInfoPacket {
	return &PlayerInfoPacket{Action: action, Entries: entries}
}
