// Package nametags marks that player name tags are driven by the player's
// real name. While it is registered the tab list refuses add player entries
// that rename a player, since the client would no longer match the name tag
// to the tab list entry.
package nametags

import "github.com/MONDERASDOR/SaverTab/feature"

type Feature struct{}

func New() *Feature { return &Feature{} }

func (*Feature) Tag() feature.Tag { return feature.NameTags }
