// Package i18n holds the notification template table and short UI strings,
// loaded per locale from YAML.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when a lookup misses in the requested locale.
const DefaultLocale = "ru"

const catalogFile = "notifications.yaml"

//go:embed locales
var embedded embed.FS

type Template struct {
	Title    string `yaml:"title"`
	Message  string `yaml:"message"`
	Icon     string `yaml:"icon"`
	Priority string `yaml:"priority"`
}

type catalog struct {
	Templates map[string]Template `yaml:"TEMPLATES"`
	Strings   map[string]string   `yaml:"STRINGS"`
}

var (
	locales  = make(map[string]catalog)
	mu       sync.RWMutex
	loadOnce sync.Once
	loadErr  error
)

func ensureLoaded() {
	loadOnce.Do(func() {
		sub, err := fs.Sub(embedded, "locales")
		if err != nil {
			loadErr = err
			return
		}
		loadErr = load(sub)
	})
}

// LoadTranslations overlays catalogs found under localePath/<locale>/ on top
// of the embedded ones. Keys missing on disk keep their embedded value.
func LoadTranslations(localePath string) error {
	ensureLoaded()
	if loadErr != nil {
		return loadErr
	}
	return load(os.DirFS(filepath.Clean(localePath)))
}

func load(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		locale := entry.Name()
		filePath := path.Join(locale, catalogFile)

		data, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			continue
		}

		var parsed catalog
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("failed to parse %s: %w", filePath, err)
		}

		merged := locales[locale]
		if merged.Templates == nil {
			merged.Templates = make(map[string]Template)
		}
		if merged.Strings == nil {
			merged.Strings = make(map[string]string)
		}
		for k, v := range parsed.Templates {
			merged.Templates[k] = v
		}
		for k, v := range parsed.Strings {
			merged.Strings[k] = v
		}
		locales[locale] = merged
	}

	return nil
}

// Lookup returns the template stored under key, trying locale first and then
// DefaultLocale.
func Lookup(locale, key string) (Template, bool) {
	ensureLoaded()

	mu.RLock()
	defer mu.RUnlock()

	if c, ok := locales[locale]; ok {
		if tpl, ok := c.Templates[key]; ok {
			return tpl, true
		}
	}
	if locale != DefaultLocale {
		if tpl, ok := locales[DefaultLocale].Templates[key]; ok {
			return tpl, true
		}
	}
	return Template{}, false
}

// Translate returns a short UI string, or key itself when nothing matches.
func Translate(locale, key string) string {
	ensureLoaded()

	mu.RLock()
	defer mu.RUnlock()

	if c, ok := locales[locale]; ok {
		if val, ok := c.Strings[key]; ok {
			return val
		}
	}
	if locale != DefaultLocale {
		if val, ok := locales[DefaultLocale].Strings[key]; ok {
			return val
		}
	}
	return key
}

// Err reports a failure to parse the embedded catalogs.
func Err() error {
	ensureLoaded()
	return loadErr
}
