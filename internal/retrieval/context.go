package retrieval

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/forensiq/forensiq/internal/embed"
)

const (
	// DefaultTopK is the number of snippets returned per search.
	DefaultTopK = 5
	// sampleSize is how many leading log lines drive the query embedding.
	sampleSize = 10
	// indexDocLimit caps how many knowledge docs are pushed per log sample.
	indexDocLimit = 10
	// upsertBatchSize splits index writes into bounded requests.
	upsertBatchSize = 50
)

// timestampOnly matches lines that carry nothing but a timestamp, which add
// no signal to the query embedding.
var timestampOnly = regexp.MustCompile(`^\[?\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}(:\d{2})?\]?$`)

// SampleLines returns up to the first 10 trimmed, non-empty,
// non-timestamp-only lines of the normalized log text.
func SampleLines(logText string) []string {
	var sample []string
	for _, line := range strings.Split(logText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || timestampOnly.MatchString(line) {
			continue
		}
		sample = append(sample, line)
		if len(sample) == sampleSize {
			break
		}
	}
	return sample
}

// ContentHash is the deterministic cache key for a log sample: the md5 hex
// digest of the sampled lines joined by newlines.
func ContentHash(sample []string) string {
	sum := md5.Sum([]byte(strings.Join(sample, "\n")))
	return hex.EncodeToString(sum[:])
}

// ContextBuilder populates the vector index with the knowledge documents
// most relevant to a log sample and searches it for snippet context.
type ContextBuilder struct {
	embedder   embed.Embedder
	svc        SearchService
	collection string
	topK       int
	verbose    bool

	docs []string

	embedOnce sync.Once
	embedErr  error
	docVecs   [][]float32

	mu        sync.Mutex
	populated map[string]bool
}

// NewContextBuilder wires the retrieval collaborators. topK <= 0 selects
// DefaultTopK. Knowledge documents are embedded lazily on first use and
// reused for the process lifetime.
func NewContextBuilder(embedder embed.Embedder, svc SearchService, collection string, topK int, docs []string, verbose bool) *ContextBuilder {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ContextBuilder{
		embedder:   embedder,
		svc:        svc,
		collection: collection,
		topK:       topK,
		docs:       docs,
		verbose:    verbose,
		populated:  make(map[string]bool),
	}
}

// BuildContext returns a sorted, deduplicated set of knowledge snippets
// relevant to the log text. It never fails: any collaborator error degrades
// to an empty context, since retrieval augmentation is background material
// rather than a pipeline requirement.
func (b *ContextBuilder) BuildContext(ctx context.Context, logText string) []string {
	sample := SampleLines(logText)
	if len(sample) == 0 {
		return nil
	}

	query, err := b.embedder.Embed(strings.Join(sample, " "))
	if err != nil {
		b.warnf("query embedding failed: %v", err)
		return nil
	}

	if err := b.populateIndex(ctx, sample, query); err != nil {
		b.warnf("index population failed: %v", err)
		return nil
	}

	hits, err := b.svc.Search(ctx, b.collection, query, b.topK)
	if err != nil {
		b.warnf("search failed: %v", err)
		return nil
	}

	seen := make(map[string]bool)
	var snippets []string
	for _, hit := range hits {
		text := hit.Payload["text"]
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		snippets = append(snippets, text)
	}
	sort.Strings(snippets)
	return snippets
}

// populateIndex pushes the knowledge docs most relevant to the query into
// the collection. Each distinct sample is pushed at most once per process;
// a concurrent duplicate insert is benign since the index only needs to
// contain a relevant snippet, not hold it exactly once.
func (b *ContextBuilder) populateIndex(ctx context.Context, sample []string, query []float32) error {
	hash := ContentHash(sample)
	b.mu.Lock()
	done := b.populated[hash]
	b.mu.Unlock()
	if done {
		return nil
	}

	if err := b.embedDocs(); err != nil {
		return err
	}
	if len(b.docs) == 0 {
		return fmt.Errorf("no knowledge documents loaded")
	}

	top := topIndicesByDot(b.docVecs, query, indexDocLimit)

	if err := b.svc.EnsureCollection(ctx, b.collection, b.embedder.Dim()); err != nil {
		return err
	}

	points := make([]Point, 0, len(top))
	for _, i := range top {
		points = append(points, Point{
			ID:      uuid.NewString(),
			Vector:  b.docVecs[i],
			Payload: map[string]string{"text": b.docs[i]},
		})
	}
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := b.svc.Upsert(ctx, b.collection, points[start:end]); err != nil {
			return err
		}
	}

	b.mu.Lock()
	b.populated[hash] = true
	b.mu.Unlock()
	return nil
}

// embedDocs computes the knowledge document embeddings once.
func (b *ContextBuilder) embedDocs() error {
	b.embedOnce.Do(func() {
		vecs := make([][]float32, len(b.docs))
		for i, doc := range b.docs {
			vec, err := b.embedder.Embed(doc)
			if err != nil {
				b.embedErr = fmt.Errorf("embed knowledge doc %d: %w", i, err)
				return
			}
			vecs[i] = vec
		}
		b.docVecs = vecs
	})
	return b.embedErr
}

// topIndicesByDot returns the indices of the n vectors with the highest dot
// product against the query, best first.
func topIndicesByDot(vecs [][]float32, query []float32, n int) []int {
	idx := make([]int, len(vecs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, c int) bool {
		return embed.Dot(vecs[idx[a]], query) > embed.Dot(vecs[idx[c]], query)
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	return idx
}

func (b *ContextBuilder) warnf(format string, args ...interface{}) {
	if b.verbose {
		fmt.Fprintf(os.Stderr, "[retrieval] "+format+"\n", args...)
	}
}
