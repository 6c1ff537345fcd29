package models

import (
	"errors"
	"sort"
)

// Actor is a fisher or operator entity.
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Validate checks that all actor fields are valid
func (a *Actor) Validate() error {
	if a.ID == "" {
		return errors.New("actor ID must not be empty")
	}
	if a.DisplayName == "" {
		return errors.New("actor display name must not be empty")
	}
	return nil
}

// Site is a landing site or location; it places assets in a province.
type Site struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Province string `json:"province"`
}

// Validate checks that all site fields are valid
func (s *Site) Validate() error {
	if s.ID == "" {
		return errors.New("site ID must not be empty")
	}
	if s.Province == "" {
		return errors.New("site province must not be empty")
	}
	return nil
}

// Asset is a vessel owned by an actor and registered at a site.
type Asset struct {
	ID      string `json:"id"`
	ActorID string `json:"actor_id"`
	SiteID  string `json:"site_id"`
}

// Validate checks that all asset fields are valid
func (a *Asset) Validate() error {
	if a.ID == "" {
		return errors.New("asset ID must not be empty")
	}
	if a.ActorID == "" {
		return errors.New("asset actor ID must not be empty")
	}
	if a.SiteID == "" {
		return errors.New("asset site ID must not be empty")
	}
	return nil
}

// AssetOwnership resolves an asset to its owning actor and, through the
// asset's site, to a province.
type AssetOwnership struct {
	AssetID     string `json:"asset_id"`
	ActorID     string `json:"actor_id"`
	DisplayName string `json:"display_name"`
	SiteID      string `json:"site_id"`
	Province    string `json:"province"`
}

// OwnershipIndex answers asset -> actor and actor -> assets lookups over a
// fixed set of ownership edges, typically every asset of one province.
type OwnershipIndex struct {
	byAsset map[string]AssetOwnership
	byActor map[string][]string
}

// NewOwnershipIndex builds an index from ownership edges. When an asset id is
// repeated the last edge wins.
func NewOwnershipIndex(edges []AssetOwnership) *OwnershipIndex {
	idx := &OwnershipIndex{
		byAsset: make(map[string]AssetOwnership, len(edges)),
		byActor: make(map[string][]string),
	}
	for _, e := range edges {
		if prev, ok := idx.byAsset[e.AssetID]; ok {
			idx.byActor[prev.ActorID] = removeString(idx.byActor[prev.ActorID], e.AssetID)
			if len(idx.byActor[prev.ActorID]) == 0 {
				delete(idx.byActor, prev.ActorID)
			}
		}
		idx.byAsset[e.AssetID] = e
		idx.byActor[e.ActorID] = append(idx.byActor[e.ActorID], e.AssetID)
	}
	for actor := range idx.byActor {
		sort.Strings(idx.byActor[actor])
	}
	return idx
}

// Owner returns the ownership edge for an asset.
func (idx *OwnershipIndex) Owner(assetID string) (AssetOwnership, bool) {
	if idx == nil {
		return AssetOwnership{}, false
	}
	e, ok := idx.byAsset[assetID]
	return e, ok
}

// ActorAssets returns the sorted asset ids owned by actorID within the index.
func (idx *OwnershipIndex) ActorAssets(actorID string) []string {
	if idx == nil {
		return nil
	}
	out := make([]string, len(idx.byActor[actorID]))
	copy(out, idx.byActor[actorID])
	return out
}

// AssetIDs returns every indexed asset id, sorted.
func (idx *OwnershipIndex) AssetIDs() []string {
	if idx == nil {
		return nil
	}
	out := make([]string, 0, len(idx.byAsset))
	for id := range idx.byAsset {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of indexed assets.
func (idx *OwnershipIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.byAsset)
}

// AssetSet converts a list of asset ids into a membership set.
func AssetSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
