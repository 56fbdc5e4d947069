package suggest

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jellydator/ttlcache/v3"
)

// WorkspaceContext holds gathered context for one document directory.
type WorkspaceContext struct {
	Dir       string
	Listing   string            // directory entries (space-separated)
	Manifests map[string]string // manifest label -> extracted description
}

const (
	workspaceTTL     = 1 * time.Hour
	manifestMaxBytes = 512
	fieldMaxBytes    = 512
)

// WorkspaceCache is a TTL cache of WorkspaceContext entries keyed by
// absolute directory path.
type WorkspaceCache struct {
	cache *ttlcache.Cache[string, *WorkspaceContext]
}

// NewWorkspaceCache creates a new WorkspaceCache with TTL-based expiration.
func NewWorkspaceCache() *WorkspaceCache {
	c := ttlcache.New[string, *WorkspaceContext](
		ttlcache.WithTTL[string, *WorkspaceContext](workspaceTTL),
		ttlcache.WithDisableTouchOnHit[string, *WorkspaceContext](),
	)
	go c.Start()
	return &WorkspaceCache{cache: c}
}

// Close stops the cache expiration loop.
func (wc *WorkspaceCache) Close() {
	wc.cache.Stop()
}

// Get returns the cached WorkspaceContext for the document's directory,
// or nil if not cached/expired.
func (wc *WorkspaceCache) Get(docPath string) *WorkspaceContext {
	item := wc.cache.Get(filepath.Dir(docPath))
	if item == nil {
		return nil
	}
	return item.Value()
}

// Gather collects workspace context for the document's directory and caches it.
func (wc *WorkspaceCache) Gather(docPath string) {
	dir := filepath.Dir(docPath)

	entry := &WorkspaceContext{
		Dir:       dir,
		Manifests: make(map[string]string),
	}

	entry.Listing = listDir(dir)
	gatherManifests(dir, entry.Manifests)

	wc.cache.Set(dir, entry, ttlcache.DefaultTTL)

	slog.Debug("gathered workspace context", "dir", dir)
}

// listDir returns the directory's entries, space-separated, hidden files
// excluded, capped at fieldMaxBytes.
func listDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return truncate(strings.Join(names, " "), fieldMaxBytes)
}

// manifestFiles lists the writing-project manifests to look for.
var manifestFiles = []string{
	"book.toml",
	"hugo.toml",
	"config.toml",
	"package.json",
	"README.md",
}

func gatherManifests(dir string, out map[string]string) {
	for _, name := range manifestFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var extracted string
		switch name {
		case "book.toml":
			extracted = extractBookInfo(string(data))
		case "hugo.toml", "config.toml":
			extracted = extractSiteInfo(string(data))
		case "package.json":
			extracted = extractPackageJSONInfo(string(data))
		case "README.md":
			extracted = extractReadmeTitle(string(data))
		}

		if extracted != "" {
			out[name] = extracted
		}
	}
}

type bookToml struct {
	Book struct {
		Title       string   `toml:"title"`
		Authors     []string `toml:"authors"`
		Description string   `toml:"description"`
	} `toml:"book"`
}

// extractBookInfo extracts title, authors, and description from an mdBook book.toml.
func extractBookInfo(content string) string {
	var book bookToml
	if _, err := toml.Decode(content, &book); err != nil {
		return ""
	}
	var parts []string
	if book.Book.Title != "" {
		parts = append(parts, "title: "+book.Book.Title)
	}
	if len(book.Book.Authors) > 0 {
		parts = append(parts, "authors: "+strings.Join(book.Book.Authors, ", "))
	}
	if book.Book.Description != "" {
		parts = append(parts, "description: "+book.Book.Description)
	}
	return truncate(strings.Join(parts, "; "), manifestMaxBytes)
}

type siteToml struct {
	Title        string `toml:"title"`
	BaseURL      string `toml:"baseURL"`
	LanguageCode string `toml:"languageCode"`
}

// extractSiteInfo extracts the site title from a Hugo-style config.
func extractSiteInfo(content string) string {
	var site siteToml
	if _, err := toml.Decode(content, &site); err != nil {
		return ""
	}
	var parts []string
	if site.Title != "" {
		parts = append(parts, "title: "+site.Title)
	}
	if site.LanguageCode != "" {
		parts = append(parts, "language: "+site.LanguageCode)
	}
	return truncate(strings.Join(parts, "; "), manifestMaxBytes)
}

// extractPackageJSONInfo extracts name and description from package.json.
func extractPackageJSONInfo(content string) string {
	var pkg struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return ""
	}
	var parts []string
	if pkg.Name != "" {
		parts = append(parts, "name: "+pkg.Name)
	}
	if pkg.Description != "" {
		parts = append(parts, "description: "+pkg.Description)
	}
	return truncate(strings.Join(parts, "; "), manifestMaxBytes)
}

// extractReadmeTitle returns the first heading line of a README.
func extractReadmeTitle(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			return truncate(strings.TrimSpace(strings.TrimLeft(line, "#")), manifestMaxBytes)
		}
	}
	return ""
}

// truncate truncates s to maxBytes, appending "..." if truncated.
func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "..."
}
