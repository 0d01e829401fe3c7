// Package retrieval implements the question-answering pipeline: chunk and
// index document text at upload time, then search, gate by relevance, and
// generate answers at question time.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studyflow-ai/studyflow/internal/domain"
	"github.com/studyflow-ai/studyflow/internal/domain/chunk"
	"github.com/studyflow-ai/studyflow/internal/metrics"
)

// apologyAnswer is returned when a collaborator fails and no answer could be
// generated. Degraded but well-formed; the failure itself is logged.
const apologyAnswer = "Sorry, I could not generate an answer right now. Please try again later."

// Options holds the tunables of the pipeline.
type Options struct {
	ChunkSize          int
	Overlap            int
	TopK               int
	RelevanceThreshold float64
	GenTimeout         time.Duration
}

// Service orchestrates indexing and question answering for documents.
type Service struct {
	docs       DocumentStore
	index      Index
	docEmbed   BatchEmbedder
	queryEmbed Embedder
	gen        domain.Generator
	opts       Options
	logger     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a retrieval service.
func New(
	docs DocumentStore, index Index,
	docEmbed BatchEmbedder, queryEmbed Embedder,
	gen domain.Generator, opts Options, logger *zap.Logger,
) *Service {
	return &Service{
		docs:       docs,
		index:      index,
		docEmbed:   docEmbed,
		queryEmbed: queryEmbed,
		gen:        gen,
		opts:       opts,
		logger:     logger,
		locks:      map[string]*sync.Mutex{},
	}
}

// Upload stores a document and indexes its text. Re-uploading the same id
// with identical text is a no-op for the index; changed text rebuilds the
// partition from scratch.
func (s *Service) Upload(ctx context.Context, doc domain.Document) (domain.Document, error) {
	doc.Status = "processing"
	if doc.PageCount == 0 {
		doc.PageCount = countPages(doc.Content)
	}
	if err := s.docs.Put(ctx, doc); err != nil {
		return domain.Document{}, fmt.Errorf("store document: %w", err)
	}

	if err := s.Index(ctx, doc.ID, doc.Content); err != nil {
		doc.Status = "failed"
		if putErr := s.docs.Put(ctx, doc); putErr != nil {
			s.logger.Error("Failed to mark document failed",
				zap.String("document_id", doc.ID), zap.Error(putErr))
		}
		return domain.Document{}, fmt.Errorf("index document: %w", err)
	}

	doc.Status = "indexed"
	if err := s.docs.Put(ctx, doc); err != nil {
		return domain.Document{}, fmt.Errorf("store document: %w", err)
	}
	return doc, nil
}

// Get returns a stored document.
func (s *Service) Get(ctx context.Context, id string) (domain.Document, error) {
	return s.docs.Get(ctx, id)
}

// List returns all stored documents, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Document, error) {
	return s.docs.List(ctx)
}

// Delete removes a document and its index partition.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.index.Clear(ctx, id); err != nil {
		return fmt.Errorf("clear partition: %w", err)
	}
	return nil
}

// Index chunks text, embeds the chunks, and replaces the document's
// partition. Indexing the same text twice is detected by content hash and
// skipped. Concurrent calls for one document are serialized.
func (s *Service) Index(ctx context.Context, documentID, text string) error {
	lock := s.docLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	hash := textHash(text)

	meta, err := s.index.GetMeta(ctx, documentID)
	if err != nil {
		return fmt.Errorf("read partition meta: %w", err)
	}
	if meta.TextHash == hash {
		s.logger.Debug("Document already indexed, skipping",
			zap.String("document_id", documentID))
		return nil
	}

	windows, err := chunk.Collect(text, s.opts.ChunkSize, s.opts.Overlap)
	if err != nil {
		return fmt.Errorf("chunk document: %w", err)
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Text
	}

	batch, err := s.docEmbed.BatchEmbed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(batch.Embeddings) != len(windows) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks",
			len(batch.Embeddings), len(windows))
	}

	entries := make([]domain.IndexEntry, len(windows))
	for i, w := range windows {
		entries[i] = domain.IndexEntry{
			ID:     w.ID(),
			Text:   w.Text,
			Vector: batch.Embeddings[i],
		}
	}

	// Replace, never merge: stale chunks from a previous version of the text
	// must not survive.
	if err := s.index.Clear(ctx, documentID); err != nil {
		return fmt.Errorf("clear partition: %w", err)
	}
	if err := s.index.Add(ctx, documentID, entries); err != nil {
		return fmt.Errorf("write partition: %w", err)
	}

	dims := 0
	if len(entries) > 0 {
		dims = len(entries[0].Vector)
	}
	if err := s.index.SetMeta(ctx, documentID, domain.IndexMeta{
		TextHash:   hash,
		Chunks:     len(entries),
		Dimensions: dims,
	}); err != nil {
		return fmt.Errorf("write partition meta: %w", err)
	}

	s.logger.Info("Document indexed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(entries)),
		zap.Int("dimensions", dims),
	)
	return nil
}

// Ask answers a question against one document's partition. Results closer
// than the relevance threshold ground the answer; when none qualify, the
// generator answers from its own knowledge. A dimensionality mismatch between
// index-time and query-time embeddings fails fast; any other index failure
// degrades to an uncontextualized answer.
func (s *Service) Ask(ctx context.Context, documentID, question string, topK int) (domain.Answer, error) {
	if topK <= 0 {
		topK = s.opts.TopK
	}

	embRes, err := s.queryEmbed.Embed(ctx, question)
	if err != nil {
		s.logger.Error("Question embedding failed",
			zap.String("document_id", documentID), zap.Error(err))
		return s.placeholderAnswer(), nil
	}

	results, err := s.index.Search(ctx, documentID, embRes.Embedding, topK)
	if err != nil {
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			return domain.Answer{}, fmt.Errorf("search partition %s: %w", documentID, err)
		}
		s.logger.Error("Partition search failed, answering without context",
			zap.String("document_id", documentID), zap.Error(err))
		results = nil
	}

	relevant := results[:0:0]
	for _, r := range results {
		if r.Distance < s.opts.RelevanceThreshold {
			relevant = append(relevant, r)
		}
	}

	if len(relevant) == 0 {
		return s.answerWithoutContext(ctx, question), nil
	}
	return s.answerWithContext(ctx, question, relevant), nil
}

func (s *Service) answerWithoutContext(ctx context.Context, question string) domain.Answer {
	ctx, cancel := s.genContext(ctx)
	defer cancel()

	res, err := s.gen.AnswerWithoutContext(ctx, question)
	if err != nil {
		s.logger.Error("Generation without context failed", zap.Error(err))
		return s.placeholderAnswer()
	}

	metrics.AnswerSourceTotal.WithLabelValues(string(domain.SourceAIKnowledge)).Inc()
	return domain.Answer{
		Answer:      res.Answer,
		Sources:     []domain.Source{},
		SourceType:  domain.SourceAIKnowledge,
		PageNumbers: []int{},
		Provider:    s.gen.Name(),
	}
}

func (s *Service) answerWithContext(
	ctx context.Context, question string, relevant []domain.SearchResult,
) domain.Answer {
	passages := make([]string, len(relevant))
	sources := make([]domain.Source, len(relevant))
	for i, r := range relevant {
		passages[i] = r.Content
		sources[i] = domain.Source{
			ChunkID:  r.ChunkID,
			Content:  r.Content,
			Distance: r.Distance,
		}
	}
	contextText := strings.Join(passages, "\n\n")

	genCtx, cancel := s.genContext(ctx)
	defer cancel()

	answer := apologyAnswer
	res, err := s.gen.Answer(genCtx, question, contextText)
	if err != nil {
		s.logger.Error("Generation with context failed", zap.Error(err))
	} else {
		answer = res.Answer
	}

	pages := extractPages(relevant, maxCitations)
	answer = appendCitations(answer, pages)

	metrics.AnswerSourceTotal.WithLabelValues(string(domain.SourceKnowledgeBase)).Inc()
	return domain.Answer{
		Answer:      answer,
		Sources:     sources,
		SourceType:  domain.SourceKnowledgeBase,
		PageNumbers: pages,
		Provider:    s.gen.Name(),
	}
}

func (s *Service) placeholderAnswer() domain.Answer {
	metrics.AnswerSourceTotal.WithLabelValues(string(domain.SourceAIKnowledge)).Inc()
	return domain.Answer{
		Answer:      apologyAnswer,
		Sources:     []domain.Source{},
		SourceType:  domain.SourceAIKnowledge,
		PageNumbers: []int{},
		Provider:    s.gen.Name(),
	}
}

func (s *Service) genContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.GenTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opts.GenTimeout)
}

func (s *Service) docLock(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[documentID] = lock
	}
	return lock
}

func textHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

func countPages(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, string(chunk.PageSeparator)) + 1
}
