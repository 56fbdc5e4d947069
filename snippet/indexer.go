package snippet

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

const indexBatchSize = 32

// Indexer reads and indexes the snippet journal for semantic retrieval.
// The journal is a plain text file, one snippet per line; editor clients
// append to it when the user accepts a suggestion or files a note.
type Indexer struct {
	journalPath string
	embedder    *Embedder
	maxSnippets int
	ttl         time.Duration

	mu       sync.RWMutex
	graph    *hnsw.Graph[string] // HNSW graph, keyed by snippet hash
	snippets map[string]string   // hash -> redacted snippet text

	stopCh    chan struct{}
	initDone  chan struct{}
	initOnce  sync.Once
	closeOnce sync.Once
}

// NewIndexer creates a new journal indexer.
// If embedder is nil, semantic features are disabled (RecentSnippets still works).
func NewIndexer(embedder *Embedder, journalPath string, maxSnippets int, ttl time.Duration) *Indexer {
	return &Indexer{
		journalPath: journalPath,
		embedder:    embedder,
		maxSnippets: maxSnippets,
		ttl:         ttl,
		graph:       hnsw.NewGraph[string](),
		snippets:    make(map[string]string),
		stopCh:      make(chan struct{}),
		initDone:    make(chan struct{}),
	}
}

// RecentSnippets returns the last n snippets from the journal.
func (idx *Indexer) RecentSnippets(n int) []string {
	if idx.journalPath == "" {
		return nil
	}
	lines := readLastLines(idx.journalPath, n)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := parseJournalLine(line); s != "" {
			out = append(out, s)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// IndexJournal reads the last N snippets from the journal and embeds them.
func (idx *Indexer) IndexJournal() error {
	if idx.embedder == nil || idx.journalPath == "" {
		return nil
	}

	snippets := idx.readTailSnippets()
	if len(snippets) == 0 {
		return nil
	}

	// Collect new snippets that need embedding
	idx.mu.RLock()
	var toEmbed []struct {
		hash string
		text string
	}
	for _, s := range snippets {
		hash := hashSnippet(s)
		if _, exists := idx.graph.Lookup(hash); !exists {
			toEmbed = append(toEmbed, struct {
				hash string
				text string
			}{hash, s})
		}
	}
	idx.mu.RUnlock()

	if len(toEmbed) == 0 {
		return nil
	}

	// Embed in batches via API, accumulating results locally
	var allNodes []hnsw.Node[string]
	allSnippets := make(map[string]string, len(toEmbed))

	for i := 0; i < len(toEmbed); i += indexBatchSize {
		end := i + indexBatchSize
		if end > len(toEmbed) {
			end = len(toEmbed)
		}
		batch := toEmbed[i:end]

		redacted := make([]string, len(batch))
		for j, b := range batch {
			redacted[j] = Redact(b.text)
		}

		vectors, err := idx.embedder.EmbedBatch(redacted)
		if err != nil {
			slog.Error("batch embed error", "error", err)
			continue
		}

		for j, b := range batch {
			allNodes = append(allNodes, hnsw.MakeNode(b.hash, vectors[j]))
			allSnippets[b.hash] = redacted[j]
		}
	}

	// Single graph insertion under one write lock
	if len(allNodes) > 0 {
		idx.mu.Lock()
		idx.graph.Add(allNodes...)
		for k, v := range allSnippets {
			idx.snippets[k] = v
		}
		idx.mu.Unlock()
	}

	return nil
}

// readTailSnippets reads the last maxSnippets entries from the journal, deduplicated.
func (idx *Indexer) readTailSnippets() []string {
	lines := readLastLines(idx.journalPath, idx.maxSnippets)
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)
	for _, line := range lines {
		s := parseJournalLine(line)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// StartRefreshLoop runs IndexJournal immediately, then re-indexes every TTL interval.
// It blocks until Close() is called. If embedder is nil, it closes initDone and returns.
func (idx *Indexer) StartRefreshLoop() {
	if idx.embedder == nil {
		idx.initOnce.Do(func() { close(idx.initDone) })
		return
	}

	if err := idx.IndexJournal(); err != nil {
		slog.Error("initial indexing error", "error", err)
	}
	idx.initOnce.Do(func() { close(idx.initDone) })

	ticker := time.NewTicker(idx.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-idx.stopCh:
			return
		case <-ticker.C:
			if err := idx.IndexJournal(); err != nil {
				slog.Error("periodic re-indexing error", "error", err)
			}
		}
	}
}

// InitDone returns a channel that is closed after the first IndexJournal call completes.
func (idx *Indexer) InitDone() <-chan struct{} {
	return idx.initDone
}

// SearchRelevant embeds the query and returns the topK most similar snippets.
func (idx *Indexer) SearchRelevant(query string, topK int) ([]string, error) {
	if idx.embedder == nil {
		return nil, nil
	}

	queryVec, err := idx.embedder.Embed(Redact(query))
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph.Len() == 0 || topK <= 0 {
		return nil, nil
	}

	neighbors := idx.graph.Search(queryVec, topK)
	out := make([]string, len(neighbors))
	for i, n := range neighbors {
		out[i] = idx.snippets[n.Key]
	}
	return out, nil
}

// Close stops the refresh loop and releases resources held by the indexer.
func (idx *Indexer) Close() {
	idx.closeOnce.Do(func() {
		close(idx.stopCh)
	})
	if idx.embedder != nil {
		idx.embedder.Close()
	}
}

func hashSnippet(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}

func readLastLines(path string, n int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	// For efficiency, seek near end of file for large files
	info, err := f.Stat()
	if err != nil {
		return nil
	}

	// Estimate: average 100 bytes per line, read 2x to be safe
	estimatedBytes := int64(n) * 200
	if estimatedBytes < info.Size() {
		if _, err := f.Seek(-estimatedBytes, io.SeekEnd); err == nil {
			// Skip partial first line
			reader := bufio.NewReader(f)
			reader.ReadString('\n')
			var lines []string
			scanner := bufio.NewScanner(reader)
			for scanner.Scan() {
				lines = append(lines, scanner.Text())
			}
			if len(lines) >= n {
				return lines[len(lines)-n:]
			}
			// Not enough lines, fall through to full read
		}
		f.Seek(0, io.SeekStart)
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
