package selection

import (
	"context"
	"fmt"
	"sort"

	"github.com/mbaizhakyp/floodwise/internal/embedding"
	"github.com/mbaizhakyp/floodwise/internal/observability"
	"github.com/mbaizhakyp/floodwise/internal/storage"
)

// SVIFilter keeps only the SVI variables semantically relevant to a query.
// Relevance is cosine similarity between the query embedding and each
// variable embedding, both optionally enriched with a domain-description
// text supplied at construction (loaded once, read-only).
//
// The filter is fail-open: when the embedding call fails or returns too few
// vectors, the input is returned unchanged rather than losing data.
type SVIFilter struct {
	embedder      embedding.Embedder
	domainContext string
	logger        *observability.Logger
	metrics       *observability.Metrics
}

// NewSVIFilter creates a new SVI variable filter. domainContext may be
// empty; metrics may be nil.
func NewSVIFilter(embedder embedding.Embedder, domainContext string, logger *observability.Logger, metrics *observability.Metrics) *SVIFilter {
	return &SVIFilter{
		embedder:      embedder,
		domainContext: domainContext,
		logger:        logger.WithComponent("svi_filter"),
		metrics:       metrics,
	}
}

// Filter returns a copy of svi whose variables all meet the relevance
// threshold. Only leaf variables are filtered; theme aggregates and the
// overall ranking pass through untouched. Values are never transformed,
// only membership changes, and themes left without variables are dropped.
func (f *SVIFilter) Filter(ctx context.Context, svi *storage.SVIData, query string, threshold float64) *storage.SVIData {
	if svi == nil {
		return nil
	}

	// Duplicate names across themes embed once and the score applies to
	// every occurrence. Sorted for a deterministic request order.
	names := uniqueVariableNames(svi.Variables)
	if len(names) == 0 {
		return svi
	}

	texts := make([]string, 0, len(names)+1)
	texts = append(texts, f.queryText(query))
	for _, name := range names {
		texts = append(texts, f.variableText(name))
	}

	if f.metrics != nil {
		f.metrics.EmbeddingBatchSize.Observe(float64(len(texts)))
	}

	vectors, err := f.embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(texts) {
		f.failOpen(err, len(vectors))
		return svi
	}

	queryVec := vectors[0]
	scores := make(map[string]float64, len(names))
	for i, name := range names {
		scores[name] = CosineSimilarity(queryVec, vectors[i+1])
	}

	kept := 0
	total := 0
	filtered := make(map[string]map[string]*float64)
	for theme, vars := range svi.Variables {
		for name, value := range vars {
			total++
			if scores[name] < threshold {
				continue
			}
			if filtered[theme] == nil {
				filtered[theme] = make(map[string]*float64)
			}
			filtered[theme][name] = value
			kept++
		}
	}

	f.logger.Debug().
		Int("kept", kept).
		Int("total", total).
		Float64("threshold", threshold).
		Msg("filtered SVI variables by semantic relevance")

	return &storage.SVIData{
		ReleaseYear:    svi.ReleaseYear,
		OverallRanking: svi.OverallRanking,
		Themes:         svi.Themes,
		Variables:      filtered,
	}
}

func (f *SVIFilter) queryText(query string) string {
	if f.domainContext == "" {
		return query
	}
	return fmt.Sprintf("Query: %s\n\nContext: %s", query, f.domainContext)
}

func (f *SVIFilter) variableText(name string) string {
	if f.domainContext == "" {
		return name
	}
	return fmt.Sprintf("%s: %s", name, f.domainContext)
}

func (f *SVIFilter) failOpen(err error, vectors int) {
	f.logger.Warn().Err(err).Int("vectors", vectors).
		Msg("embedding call failed, returning unfiltered SVI variables")
	if f.metrics != nil {
		f.metrics.CollaboratorFailures.WithLabelValues("embedder").Inc()
	}
}

func uniqueVariableNames(variables map[string]map[string]*float64) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, vars := range variables {
		for name := range vars {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
