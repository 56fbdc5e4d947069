package suggest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	inkwell "github.com/inkfall/inkwell"
	"github.com/inkfall/inkwell/snippet"
)

// DefaultCategories is used when neither the request nor the config names
// any context categories.
var DefaultCategories = []string{"global"}

const (
	relevantSnippetCount = 5
	recentSnippetCount   = 5
)

// Gatherer assembles the ambient context string for suggestion requests:
// the named category files, the most recent journal snippets, and, when
// embedding is configured, journal snippets relevant to the request.
type Gatherer struct {
	contextDir string
	categories []string // configured default categories

	cache *ttlcache.Cache[string, string] // category name -> file content

	indexer          *snippet.Indexer
	indexOnce        sync.Once
	embeddingEnabled bool
}

// NewGatherer creates a new context gatherer.
// embedder may be nil to disable semantic features.
func NewGatherer(embedder *snippet.Embedder, cfg *inkwell.Config) *Gatherer {
	var categories []string
	var ttlMinutes int
	maxSnippets := 3000
	embeddingTTL := time.Hour
	if cfg != nil {
		categories = cfg.Context.Categories
		ttlMinutes = cfg.Context.TTLMinutes
		if cfg.Embedding.MaxJournalSnippets > 0 {
			maxSnippets = cfg.Embedding.MaxJournalSnippets
		}
		if cfg.Embedding.TTLMinutes > 0 {
			embeddingTTL = time.Duration(cfg.Embedding.TTLMinutes) * time.Minute
		}
	}
	if ttlMinutes == 0 {
		ttlMinutes = 10
	}

	cache := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](time.Duration(ttlMinutes)*time.Minute),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go cache.Start()

	g := &Gatherer{
		contextDir:       inkwell.ContextDir(),
		categories:       categories,
		cache:            cache,
		indexer:          snippet.NewIndexer(embedder, resolveJournalPath(), maxSnippets, embeddingTTL),
		embeddingEnabled: embedder != nil,
	}

	// Eagerly start indexing when embedding is enabled so the journal is
	// ready by the time the first suggestion request arrives.
	if g.embeddingEnabled {
		g.startIndexing()
	}

	return g
}

// resolveJournalPath returns the snippet journal path.
// Priority: $INKWELL_JOURNAL env > config-dir default.
func resolveJournalPath() string {
	if path := os.Getenv("INKWELL_JOURNAL"); path != "" {
		return path
	}
	return inkwell.JournalPath()
}

// startIndexing launches the indexer's refresh loop exactly once. The loop
// indexes the journal immediately and re-indexes every TTL interval until
// Close.
func (g *Gatherer) startIndexing() {
	g.indexOnce.Do(func() {
		go g.indexer.StartRefreshLoop()
	})
}

// ContextString gathers the ambient context for one request. categories
// falls back to the configured defaults, then to DefaultCategories. query
// drives the relevant-snippet search and may be empty.
func (g *Gatherer) ContextString(ctx context.Context, categories []string, query string) string {
	// Ensure indexing has been triggered (no-op if already started)
	if g.embeddingEnabled {
		g.startIndexing()
	}

	if len(categories) == 0 {
		categories = g.categories
	}
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	var sections []string
	for _, name := range categories {
		content := g.categoryContent(name)
		if content == "" {
			continue
		}
		sections = append(sections, "## "+name+"\n"+content)
	}

	if recent := snippet.RedactAll(g.indexer.RecentSnippets(recentSnippetCount)); len(recent) > 0 {
		sections = append(sections, listSection("recent notes", recent))
	}

	if g.embeddingEnabled && query != "" {
		// Non-blocking: skip semantic search while indexing is in progress
		select {
		case <-g.indexer.InitDone():
			if snippets, err := g.indexer.SearchRelevant(query, relevantSnippetCount); err == nil && len(snippets) > 0 {
				sections = append(sections, listSection("related notes", snippets))
			}
		case <-ctx.Done():
			return strings.Join(sections, "\n\n")
		default:
		}
	}

	return strings.Join(sections, "\n\n")
}

// listSection formats a named section with one bullet per item.
func listSection(name string, items []string) string {
	var sb strings.Builder
	sb.WriteString("## ")
	sb.WriteString(name)
	for _, item := range items {
		sb.WriteString("\n- ")
		sb.WriteString(item)
	}
	return sb.String()
}

// categoryContent reads one category file, caching the (possibly empty)
// result until the TTL expires. Category names are file stems; anything
// that would escape the context directory is ignored.
func (g *Gatherer) categoryContent(name string) string {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		slog.Warn("ignoring invalid context category", "category", name)
		return ""
	}

	if item := g.cache.Get(name); item != nil {
		return item.Value()
	}

	var content string
	data, err := os.ReadFile(filepath.Join(g.contextDir, name+".md"))
	if err == nil {
		content = snippet.Redact(strings.TrimSpace(string(data)))
	}

	g.cache.Set(name, content, ttlcache.DefaultTTL)
	return content
}

// LoadIndexCache loads a previously saved embedding index.
func (g *Gatherer) LoadIndexCache(path string) error {
	return g.indexer.LoadCache(path, g.indexer.EmbeddingModel())
}

// SaveIndexCache writes the embedding index to disk.
func (g *Gatherer) SaveIndexCache(path string) error {
	return g.indexer.SaveCache(path, g.indexer.EmbeddingModel())
}

// Close stops the refresh loop and releases resources held by the gatherer.
func (g *Gatherer) Close() {
	g.indexer.Close()
	g.cache.Stop()
}
