// Package feature dispatches player and packet events to the features that
// declare interest in them.
package feature

import (
	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/errlog"
	"github.com/MONDERASDOR/SaverTab/placeholder"
	"github.com/MONDERASDOR/SaverTab/player"
	"github.com/MONDERASDOR/SaverTab/protocol"
	"github.com/MONDERASDOR/SaverTab/scheduler"
)

// Tag identifies a feature in the registry, in logs and in usage stats.
type Tag string

const (
	TablistNames  Tag = "tablist-names"
	NameTags      Tag = "nametags"
	AlignedSuffix Tag = "aligned-suffix"
)

// Feature is implemented by every registered feature. The optional
// interfaces below opt a feature into events.
type Feature interface {
	Tag() Tag
}

type Loadable interface {
	Feature
	Load()
}

type Unloadable interface {
	Feature
	Unload()
}

type JoinListener interface {
	Feature
	OnJoin(p *player.Player)
}

type QuitListener interface {
	Feature
	OnQuit(p *player.Player)
}

type WorldChangeListener interface {
	Feature
	OnWorldChange(p *player.Player, from, to string)
}

// PlayerInfoListener may rewrite an outbound player info packet. The
// returned function, if any, runs after the packet was handed to the host.
type PlayerInfoListener interface {
	Feature
	OnPacketSend(receiver *player.Player, info *protocol.PlayerInfoPacket) (after func())
}

// Refreshable features are refreshed when placeholders they use change.
type Refreshable interface {
	Feature
	Refresh(p *player.Player, force bool)
	UsedPlaceholders() []string
	RefreshUsedPlaceholders()
}

// Context holds the collaborators shared by all features.
type Context struct {
	Roster       *player.Roster
	Config       *config.Store
	Placeholders *placeholder.Manager
	Scheduler    scheduler.Scheduler
	Errors       *errlog.Manager
	Sender       Sender
	Features     *Manager
}
