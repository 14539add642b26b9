// Package i18n resolves localized task names and descriptions from the
// translations embedded in the binary.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// FallbackCulture is used when a requested culture has no translation.
const FallbackCulture = "en-US"

//go:embed translations
var embedded embed.FS

// Translation is the localized metadata of one task.
type Translation struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// Catalog serves translations for one task key. Lookups are cached per
// requested culture.
type Catalog struct {
	key     string
	files   fs.FS
	locales []string
	matcher language.Matcher

	mu    sync.Mutex
	cache map[string]Translation
}

// NewCatalog indexes the embedded translations for key (for example "merge").
func NewCatalog(key string) (*Catalog, error) {
	return newCatalog(embedded, key)
}

var (
	sharedMu sync.Mutex
	shared   = make(map[string]*Catalog)
)

// For returns the process-wide catalog for key, building it on first use.
// Every caller shares its lookup cache.
func For(key string) (*Catalog, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if c, ok := shared[key]; ok {
		return c, nil
	}
	c, err := NewCatalog(key)
	if err != nil {
		return nil, err
	}
	shared[key] = c
	return c, nil
}

func newCatalog(files fs.FS, key string) (*Catalog, error) {
	dir := path.Join("translations", key)
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return nil, fmt.Errorf("read translations for %s: %w", key, err)
	}
	var locales []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".json" {
			continue
		}
		locales = append(locales, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(locales)

	// The fallback goes first so the matcher returns it on no match.
	tags := []language.Tag{language.MustParse(FallbackCulture)}
	ordered := []string{FallbackCulture}
	hasFallback := false
	for _, locale := range locales {
		if locale == FallbackCulture {
			hasFallback = true
			continue
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("translation %s/%s: %w", key, locale, err)
		}
		tags = append(tags, tag)
		ordered = append(ordered, locale)
	}
	if !hasFallback {
		return nil, fmt.Errorf("translations for %s: missing %s", key, FallbackCulture)
	}

	return &Catalog{
		key:     key,
		files:   files,
		locales: ordered,
		matcher: language.NewMatcher(tags),
		cache:   make(map[string]Translation),
	}, nil
}

// Locales lists the available cultures, fallback first.
func (c *Catalog) Locales() []string {
	return append([]string(nil), c.locales...)
}

// Resolve returns the locale that serves culture.
func (c *Catalog) Resolve(culture string) string {
	culture = strings.TrimSpace(culture)
	if culture == "" {
		return FallbackCulture
	}
	tag, err := language.Parse(culture)
	if err != nil {
		return FallbackCulture
	}
	_, index, confidence := c.matcher.Match(tag)
	if confidence == language.No {
		return FallbackCulture
	}
	return c.locales[index]
}

// Lookup returns the translation for culture, loading it on first use.
func (c *Catalog) Lookup(culture string) (Translation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.cache[culture]; ok {
		return t, nil
	}
	locale := c.Resolve(culture)
	data, err := fs.ReadFile(c.files, path.Join("translations", c.key, locale+".json"))
	if err != nil {
		return Translation{}, fmt.Errorf("read translation %s/%s: %w", c.key, locale, err)
	}
	var t Translation
	if err := json.Unmarshal(data, &t); err != nil {
		return Translation{}, fmt.Errorf("decode translation %s/%s: %w", c.key, locale, err)
	}
	c.cache[culture] = t
	return t, nil
}
