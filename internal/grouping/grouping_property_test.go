package grouping_test

import (
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"automerge/internal/catalog"
	"automerge/internal/grouping"
)

var propertyProviders = []string{"tmdb", "imdb", "kinopoisk"}

// recordsFromCodes decodes each code as three base-4 digits, one per provider.
// Digit 3 means the provider is absent.
func recordsFromCodes(codes []int) []catalog.MovieRecord {
	records := make([]catalog.MovieRecord, len(codes))
	for i, code := range codes {
		providers := make(map[string]string)
		for _, name := range propertyProviders {
			if digit := code % 4; digit < 3 {
				providers[name] = fmt.Sprint(digit)
			}
			code /= 4
		}
		records[i] = movie(fmt.Sprintf("r%02d", i), providers)
	}
	return records
}

// withLinks links record i to i+1 when bit 0 of links[i] is set and to i+2
// when bit 1 is set. Links are added on both sides.
func withLinks(records []catalog.MovieRecord, links []int) []catalog.MovieRecord {
	link := func(i, j int) {
		if j >= len(records) {
			return
		}
		records[i].AlternateVersionIDs = append(records[i].AlternateVersionIDs, records[j].ID)
		records[j].AlternateVersionIDs = append(records[j].AlternateVersionIDs, records[i].ID)
	}
	for i := range records {
		if i >= len(links) {
			break
		}
		if links[i]&1 != 0 {
			link(i, i+1)
		}
		if links[i]&2 != 0 {
			link(i, i+2)
		}
	}
	return records
}

// connectedComponents is a direct graph search used as the oracle. Components
// whose members already list each other as alternates are left out.
func connectedComponents(records []catalog.MovieRecord) [][]string {
	shares := func(a, b catalog.MovieRecord) bool {
		for k, v := range a.ProviderIDs {
			if other, ok := b.ProviderIDs[k]; ok && other == v {
				return true
			}
		}
		return false
	}
	visited := make([]bool, len(records))
	var out [][]string
	for i := range records {
		if visited[i] {
			continue
		}
		stack := []int{i}
		visited[i] = true
		var ids []string
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			ids = append(ids, records[n].ID)
			for j := range records {
				if !visited[j] && shares(records[n], records[j]) {
					visited[j] = true
					stack = append(stack, j)
				}
			}
		}
		if len(ids) > 1 && !allLinked(records, ids) {
			slices.Sort(ids)
			out = append(out, ids)
		}
	}
	slices.SortFunc(out, func(a, b []string) int {
		if a[0] < b[0] {
			return -1
		}
		if a[0] > b[0] {
			return 1
		}
		return 0
	})
	return out
}

func allLinked(records []catalog.MovieRecord, ids []string) bool {
	byID := make(map[string]catalog.MovieRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	for _, id := range ids {
		for _, other := range ids {
			if id != other && !slices.Contains(byID[id].AlternateVersionIDs, other) {
				return false
			}
		}
	}
	return true
}

func TestProperty_PartitionMatchesConnectedComponents(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("classes equal the connected components of shared keys", prop.ForAll(
		func(codes []int, links []int) bool {
			records := withLinks(recordsFromCodes(codes), links)
			got := classIDs(grouping.Partition(records, grouping.AllowList{}))
			return equalPartitions(got, connectedComponents(records))
		},
		gen.SliceOfN(12, gen.IntRange(0, 63)),
		gen.SliceOfN(12, gen.IntRange(0, 3)),
	))

	properties.Property("classes are disjoint and independent of input order", prop.ForAll(
		func(codes []int) bool {
			records := recordsFromCodes(codes)
			forward := classIDs(grouping.Partition(records, grouping.AllowList{}))
			reversed := slices.Clone(records)
			slices.Reverse(reversed)
			if !equalPartitions(forward, classIDs(grouping.Partition(reversed, grouping.AllowList{}))) {
				return false
			}
			seen := make(map[string]struct{})
			for _, class := range forward {
				for _, id := range class {
					if _, dup := seen[id]; dup {
						return false
					}
					seen[id] = struct{}{}
				}
			}
			return true
		},
		gen.SliceOfN(12, gen.IntRange(0, 63)),
	))

	properties.TestingRun(t)
}
