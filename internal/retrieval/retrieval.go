// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package retrieval runs semantic search over the stored documents.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/provider"
	"github.com/alan-mat/askdoc/internal/vector"
)

const DefaultLimit = 3

// Result carries the ranked documents for a query. Degraded is set
// when the embedding backend failed and the search was silently
// reduced to an empty result instead of raising.
type Result struct {
	Documents []*api.Document
	Degraded  bool
}

type Service struct {
	embedder   provider.Embedder
	store      vector.Store
	collection string
}

func NewService(embedder provider.Embedder, store vector.Store, collection string) *Service {
	return &Service{
		embedder:   embedder,
		store:      store,
		collection: collection,
	}
}

// Search embeds the query and asks the store for the nearest documents
// by cosine distance. The store owns both the ranking order and the
// limit; results are returned exactly as ranked.
//
// A blank query returns an empty result without touching the embedding
// backend. An embedding failure also returns an empty result, flagged
// as degraded, so a downed backend reads as "no matches" rather than
// an outage.
func (s *Service) Search(ctx context.Context, query string, limit uint) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return &Result{}, nil
	}

	if limit == 0 {
		limit = DefaultLimit
	}

	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		slog.Warn("failed to embed query, degrading to empty result", "err", err)
		return &Result{Degraded: true}, nil
	}

	params := vector.NewQueryParams(s.collection, vec, vector.WithLimit(limit))
	docs, err := s.store.Query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}

	return &Result{Documents: docs}, nil
}
