package grouping

import (
	"slices"
	"strings"

	"automerge/internal/catalog"
)

// Key identifies one provider namespace value, formatted "{type}@{value}"
// with the type lower-cased.
type Key string

// MakeKey builds the equivalence key for a provider type and value.
func MakeKey(providerType, providerValue string) Key {
	return Key(strings.ToLower(strings.TrimSpace(providerType)) + "@" + providerValue)
}

// ProviderType returns the provider type portion of the key.
func (k Key) ProviderType() string {
	providerType, _, _ := strings.Cut(string(k), "@")
	return providerType
}

// AllowList restricts grouping to a set of provider types. The zero value
// allows every provider.
type AllowList struct {
	types map[string]struct{}
}

// NewAllowList builds an allow-list from provider names. Blank names are
// ignored and matching is case-insensitive.
func NewAllowList(providerTypes []string) AllowList {
	var list AllowList
	for _, name := range providerTypes {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if list.types == nil {
			list.types = make(map[string]struct{})
		}
		list.types[name] = struct{}{}
	}
	return list
}

// Empty reports whether the list places no restriction.
func (a AllowList) Empty() bool {
	return len(a.types) == 0
}

// Allows reports whether providerType may be used for grouping.
func (a AllowList) Allows(providerType string) bool {
	if strings.TrimSpace(providerType) == "" {
		return false
	}
	if a.Empty() {
		return true
	}
	_, ok := a.types[strings.ToLower(strings.TrimSpace(providerType))]
	return ok
}

// RecordKeys returns the allowed keys a record carries, sorted.
func RecordKeys(r catalog.MovieRecord, allow AllowList) []Key {
	keys := make([]Key, 0, len(r.ProviderIDs))
	for providerType, value := range r.ProviderIDs {
		if !allow.Allows(providerType) {
			continue
		}
		keys = append(keys, MakeKey(providerType, value))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}
