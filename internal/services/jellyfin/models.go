package jellyfin

import (
	"slices"
	"strings"

	"automerge/internal/catalog"
)

type itemsResponse struct {
	Items            []item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

type item struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	Type           string            `json:"Type"`
	CollectionType string            `json:"CollectionType"`
	Path           string            `json:"Path"`
	ParentID       string            `json:"ParentId"`
	LocationType   string            `json:"LocationType"`
	LockData       bool              `json:"LockData"`
	ProviderIDs    map[string]string `json:"ProviderIds"`
	MediaSources   []mediaSource     `json:"MediaSources"`
}

type mediaSource struct {
	ID   string `json:"Id"`
	Path string `json:"Path"`
}

// alternateIDs returns the ids of the other versions listed as media sources.
// Media source ids are dash-less guids on some servers, so they are compared
// after normalizing.
func (it item) alternateIDs() []string {
	self := normalizeID(it.ID)
	var out []string
	for _, src := range it.MediaSources {
		id := normalizeID(src.ID)
		if id == "" || id == self || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (it item) onFilesystem() bool {
	if it.LocationType != "" {
		return strings.EqualFold(it.LocationType, "FileSystem")
	}
	return strings.TrimSpace(it.Path) != ""
}

func (it item) record(libraryID string, boxSets map[string]struct{}) catalog.MovieRecord {
	id := normalizeID(it.ID)
	alternates := it.alternateIDs()
	_, inBoxSet := boxSets[normalizeID(it.ParentID)]
	return catalog.MovieRecord{
		ID:                     id,
		Name:                   it.Name,
		LibraryID:              libraryID,
		Locked:                 it.LockData,
		OnFilesystem:           it.onFilesystem(),
		HasTopAncestor:         libraryID != "",
		InsideManualCollection: inBoxSet,
		ProviderIDs:            it.ProviderIDs,
		VersionGroupKey:        versionKey(id, alternates),
		AlternateVersionIDs:    alternates,
	}
}

// versionKey is the smallest id of the group, which every member computes
// identically from its own media sources.
func versionKey(id string, alternates []string) string {
	key := id
	for _, alt := range alternates {
		if alt < key {
			key = alt
		}
	}
	return key
}

func normalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
}
