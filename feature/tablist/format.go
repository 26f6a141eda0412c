package tablist

import (
	"errors"

	"github.com/MONDERASDOR/SaverTab/component"
	"github.com/MONDERASDOR/SaverTab/config"
	"github.com/MONDERASDOR/SaverTab/feature"
	"github.com/MONDERASDOR/SaverTab/player"
)

var (
	// ErrNotReady means the player's properties are not loaded yet, which
	// happens right after connecting.
	ErrNotReady = errors.New("tab format not loaded yet")
	// ErrDisabledWorld means tab list names are switched off where the
	// player is, so its entry must be left alone.
	ErrDisabledWorld = errors.New("tablist names disabled in world")
)

// WidthFixer pads the trailing text of a tab list name so that suffixes of
// all players line up.
type WidthFixer interface {
	FixTextWidth(p *player.Player, leading, trailing string) string
	// UpdateWidth recomputes the column suffixes are aligned to and reports
	// whether it moved.
	UpdateWidth() bool
}

// Format builds the tab list name of p as seen by viewer.
func (f *Feature) Format(p, viewer *player.Player) (*component.Component, error) {
	if f.IsDisabledWorld(p.World()) {
		return nil, ErrDisabledWorld
	}
	prefix := p.Property(config.TabPrefix)
	name := p.Property(config.CustomTabName)
	suffix := p.Property(config.TabSuffix)
	if prefix == nil || name == nil || suffix == nil {
		return nil, ErrNotReady
	}
	leading := prefix.Format(viewer) + name.Format(viewer)
	trailing := suffix.Format(viewer)
	if wf, ok := f.ctx.Features.Get(feature.AlignedSuffix).(WidthFixer); ok {
		trailing = wf.FixTextWidth(p, leading, trailing)
	}
	return component.Build(leading+trailing, viewer.Version), nil
}
