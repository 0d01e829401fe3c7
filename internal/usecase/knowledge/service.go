// Package knowledge extracts structured knowledge from document text through
// a generation provider, normalizes it into the canonical schema, and serves
// graph queries over the result.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studyflow-ai/studyflow/internal/domain"
	"github.com/studyflow-ai/studyflow/internal/domain/graph"
	domknow "github.com/studyflow-ai/studyflow/internal/domain/knowledge"
)

// Service orchestrates knowledge extraction and graph queries.
type Service struct {
	docs       DocumentReader
	store      Store
	gen        domain.Generator
	maxChars   int
	genTimeout time.Duration
	logger     *zap.Logger
}

// New creates a knowledge service. maxChars caps how much document text goes
// into one extraction request; 0 disables the cap.
func New(
	docs DocumentReader, store Store, gen domain.Generator,
	maxChars int, genTimeout time.Duration, logger *zap.Logger,
) *Service {
	return &Service{
		docs:       docs,
		store:      store,
		gen:        gen,
		maxChars:   maxChars,
		genTimeout: genTimeout,
		logger:     logger,
	}
}

// Extract runs provider extraction over the document's text, normalizes the
// output, and persists the result. Output the normalizer cannot recognize is
// replaced by the fixed fallback structure; the request still succeeds.
func (s *Service) Extract(ctx context.Context, documentID string) (domknow.Structure, error) {
	doc, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return domknow.Structure{}, fmt.Errorf("get document: %w", err)
	}

	structure := s.extractAndNormalize(ctx, doc.Content)
	structure.DocumentID = documentID
	structure.Provider = s.gen.Name()

	if err := s.store.Put(ctx, documentID, structure); err != nil {
		return domknow.Structure{}, fmt.Errorf("persist knowledge: %w", err)
	}
	return structure, nil
}

// extractAndNormalize produces the canonical structure for text, substituting
// the fallback on any provider or normalization failure.
func (s *Service) extractAndNormalize(ctx context.Context, text string) domknow.Structure {
	// The cap counts runes so multi-byte text is never cut mid-character.
	if s.maxChars > 0 {
		if runes := []rune(text); len(runes) > s.maxChars {
			text = string(runes[:s.maxChars])
		}
	}

	genCtx := ctx
	if s.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.genTimeout)
		defer cancel()
	}

	raw, err := s.gen.ExtractKnowledge(genCtx, text)
	if err != nil {
		s.logger.Error("Knowledge extraction failed, using fallback",
			zap.String("provider", s.gen.Name()), zap.Error(err))
		return domknow.Fallback()
	}

	parsed, err := domknow.ParseExtraction(raw)
	if err != nil {
		s.logger.Warn("Extraction output not parseable, using fallback",
			zap.String("provider", s.gen.Name()), zap.Error(err))
		return domknow.Fallback()
	}

	structure, err := domknow.Normalize(parsed)
	if err != nil {
		if !errors.Is(err, domain.ErrMalformedExtraction) {
			s.logger.Error("Unexpected normalization failure",
				zap.String("provider", s.gen.Name()), zap.Error(err))
		} else {
			s.logger.Warn("Extraction shape not recognized, using fallback",
				zap.String("provider", s.gen.Name()))
		}
		return domknow.Fallback()
	}
	return structure
}

// Get returns the stored structure for a document.
func (s *Service) Get(ctx context.Context, documentID string) (domknow.Structure, error) {
	return s.store.Get(ctx, documentID)
}

// Summary returns entity counts for a document's stored structure.
func (s *Service) Summary(ctx context.Context, documentID string) (domknow.Counts, error) {
	structure, err := s.store.Get(ctx, documentID)
	if err != nil {
		return domknow.Counts{}, err
	}
	return domknow.Summarize(structure), nil
}

// Graph builds the knowledge graph for a document's stored structure.
// The graph is rebuilt from scratch on every call.
func (s *Service) Graph(ctx context.Context, documentID string) (*graph.Graph, error) {
	structure, err := s.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return graph.Build(structure), nil
}

// Related returns the direct neighbors of a node in the document's graph.
func (s *Service) Related(ctx context.Context, documentID, nodeID string) ([]string, error) {
	g, err := s.Graph(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return g.Related(nodeID), nil
}

// Path returns the shortest directed path between two nodes in the
// document's graph, empty when no path exists.
func (s *Service) Path(ctx context.Context, documentID, from, to string) ([]string, error) {
	g, err := s.Graph(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return g.ShortestPath(from, to), nil
}
