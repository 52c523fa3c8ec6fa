// Package pipeline orchestrates document ingestion (extract, chunk,
// embed, index) and question answering (aggregate, retrieve, compose)
// over the component packages. It owns document status transitions and
// the single permitted silent degradation: a failed generation becomes
// a degraded answer instead of an error.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/claro-ai/claro/internal/answer"
	"github.com/claro-ai/claro/internal/chunker"
	"github.com/claro-ai/claro/internal/embeddings"
	"github.com/claro-ai/claro/internal/index"
	"github.com/claro-ai/claro/internal/retriever"
	"github.com/claro-ai/claro/internal/store"
	"github.com/claro-ai/claro/internal/textcache"
)

const (
	defaultChunkSize = 1000
	defaultOverlap   = 200
	defaultTopK      = 3
)

// degradedText is returned when answer generation fails.
const degradedText = "I'm unable to answer right now. Please try again in a moment."

// Options tunes the pipeline. Zero values fall back to defaults; a
// zero StageTimeout disables per-stage deadlines.
type Options struct {
	ChunkSize    int
	Overlap      int
	TopK         int
	StageTimeout time.Duration
}

// Pipeline wires the text cache, chunker, embedder, index manager,
// retriever and composer behind two operations: Ingest and Ask.
type Pipeline struct {
	store     store.Store
	texts     *textcache.Cache
	embedder  embeddings.Embedder
	indexes   *index.Manager
	retriever *retriever.Retriever
	composer  *answer.Composer
	opts      Options

	mu       sync.Mutex
	inflight map[string]*ingestCall
}

// ingestCall tracks one in-flight ingest so concurrent ingests of the
// same document collapse into a single run.
type ingestCall struct {
	done   chan struct{}
	status store.Status
	err    error
}

func New(st store.Store, texts *textcache.Cache, embedder embeddings.Embedder, indexes *index.Manager, composer *answer.Composer, opts Options) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.ChunkSize {
		opts.Overlap = defaultOverlap
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	return &Pipeline{
		store:     st,
		texts:     texts,
		embedder:  embedder,
		indexes:   indexes,
		retriever: retriever.New(embedder),
		composer:  composer,
		opts:      opts,
		inflight:  make(map[string]*ingestCall),
	}
}

// stageCtx bounds one blocking stage by the configured timeout.
func (p *Pipeline) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.StageTimeout > 0 {
		return context.WithTimeout(ctx, p.opts.StageTimeout)
	}
	return context.WithCancel(ctx)
}

// Ingest runs the full ingestion chain for a registered document:
// extract text, chunk, embed, build and persist the vector index,
// moving status pending -> extracted -> indexed (failed on error).
//
// It is idempotent: a document already indexed with a persisted index
// is a no-op. A concurrent ingest of the same document waits for the
// first and adopts its outcome, so exactly one build runs. A cancelled
// ingest persists nothing and leaves the document unmarked as indexed.
func (p *Pipeline) Ingest(ctx context.Context, docID string, source []byte) (store.Status, error) {
	call, leader := p.joinIngest(docID)
	if !leader {
		select {
		case <-call.done:
			return call.status, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	status, err := p.runIngest(ctx, docID, source)
	p.finishIngest(docID, call, status, err)
	return status, err
}

// joinIngest registers an ingest for docID, or returns the in-flight
// call to wait on.
func (p *Pipeline) joinIngest(docID string) (*ingestCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if call, ok := p.inflight[docID]; ok {
		return call, false
	}
	call := &ingestCall{done: make(chan struct{})}
	p.inflight[docID] = call
	return call, true
}

func (p *Pipeline) finishIngest(docID string, call *ingestCall, status store.Status, err error) {
	p.mu.Lock()
	delete(p.inflight, docID)
	p.mu.Unlock()
	call.status = status
	call.err = err
	close(call.done)
}

func (p *Pipeline) runIngest(ctx context.Context, docID string, source []byte) (store.Status, error) {
	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return "", err
	}
	if doc.Status == store.StatusIndexed && p.indexes.Exists(docID) {
		return store.StatusIndexed, nil
	}

	text, err := p.extractStage(ctx, docID, source)
	if err != nil {
		return p.fail(ctx, docID, err)
	}
	if err := p.store.UpdateStatus(ctx, docID, store.StatusExtracted); err != nil {
		return "", err
	}

	chunks, err := chunker.Split(text, p.opts.ChunkSize, p.opts.Overlap)
	if err != nil {
		return p.fail(ctx, docID, fmt.Errorf("chunking %s: %w", docID, err))
	}

	vectors, err := p.embedStage(ctx, chunks)
	if err != nil {
		return p.fail(ctx, docID, fmt.Errorf("embedding %s: %w", docID, err))
	}

	if err := p.buildStage(ctx, docID, chunks, vectors); err != nil {
		return p.fail(ctx, docID, err)
	}

	if err := p.store.UpdateStatus(ctx, docID, store.StatusIndexed); err != nil {
		return "", err
	}
	log.Printf("pipeline: indexed %s (%d chunks)", docID, len(chunks))
	return store.StatusIndexed, nil
}

func (p *Pipeline) extractStage(ctx context.Context, docID string, source []byte) (string, error) {
	sctx, cancel := p.stageCtx(ctx)
	defer cancel()
	return p.texts.GetOrExtract(sctx, docID, source)
}

func (p *Pipeline) embedStage(ctx context.Context, chunks []chunker.Chunk) ([][]float32, error) {
	sctx, cancel := p.stageCtx(ctx)
	defer cancel()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return p.embedder.Embed(sctx, texts)
}

func (p *Pipeline) buildStage(ctx context.Context, docID string, chunks []chunker.Chunk, vectors [][]float32) error {
	sctx, cancel := p.stageCtx(ctx)
	defer cancel()
	_, err := p.indexes.Build(sctx, docID, chunks, vectors)
	return err
}

// fail marks the document failed and returns the original error.
// Cancellation and a concurrently running build are not failures of the
// document itself, so they leave the stored status alone.
func (p *Pipeline) fail(ctx context.Context, docID string, err error) (store.Status, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, index.ErrConcurrentBuild) {
		return "", err
	}
	if uerr := p.store.UpdateStatus(context.WithoutCancel(ctx), docID, store.StatusFailed); uerr != nil {
		log.Printf("pipeline: marking %s failed: %v", docID, uerr)
	}
	return store.StatusFailed, err
}

// Ask answers a question over the user's documents. With an explicit
// docIDs list it uses those documents; otherwise it spans every indexed
// document the user owns. Retrieval failures are errors; a generation
// failure degrades to a canned answer with no citations, logged, so a
// flaky model backend never breaks chat.
func (p *Pipeline) Ask(ctx context.Context, userID, query string, docIDs []string, history []answer.Turn) (answer.Answer, error) {
	ids, err := p.askableDocs(ctx, userID, docIDs)
	if err != nil {
		return answer.Answer{}, err
	}

	agg, err := p.indexes.Aggregate(ctx, userID, ids)
	if err != nil {
		return answer.Answer{}, fmt.Errorf("aggregating indexes: %w", err)
	}

	sctx, cancel := p.stageCtx(ctx)
	results, err := p.retriever.Retrieve(sctx, query, agg, p.opts.TopK)
	cancel()
	if err != nil {
		return answer.Answer{}, fmt.Errorf("retrieving passages: %w", err)
	}

	sctx, cancel = p.stageCtx(ctx)
	defer cancel()
	ans, err := p.composer.Compose(sctx, query, results, history)
	if errors.Is(err, answer.ErrGeneration) {
		log.Printf("pipeline: degraded answer for user %s: %v", userID, err)
		return answer.Answer{Text: degradedText, Citations: []answer.Citation{}, Degraded: true}, nil
	}
	if err != nil {
		return answer.Answer{}, err
	}
	return ans, nil
}

// Search retrieves the top k ranked passages for a query over the
// user's indexed documents, without generating an answer. k <= 0 uses
// the configured top-K.
func (p *Pipeline) Search(ctx context.Context, userID, query string, docIDs []string, k int) ([]retriever.Result, error) {
	if k <= 0 {
		k = p.opts.TopK
	}
	ids, err := p.askableDocs(ctx, userID, docIDs)
	if err != nil {
		return nil, err
	}
	agg, err := p.indexes.Aggregate(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("aggregating indexes: %w", err)
	}

	sctx, cancel := p.stageCtx(ctx)
	defer cancel()
	return p.retriever.Retrieve(sctx, query, agg, k)
}

// askableDocs resolves the candidate set for a question: the requested
// documents, or all of the user's, kept only if indexed with a
// persisted index on disk.
func (p *Pipeline) askableDocs(ctx context.Context, userID string, docIDs []string) ([]string, error) {
	if len(docIDs) == 0 {
		docs, err := p.store.ListDocuments(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("listing documents for %s: %w", userID, err)
		}
		for _, d := range docs {
			if d.Status == store.StatusIndexed {
				docIDs = append(docIDs, d.ID)
			}
		}
	}

	var ids []string
	for _, id := range docIDs {
		if p.indexes.Exists(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
