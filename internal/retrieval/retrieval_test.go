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

package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/retrieval"
	"github.com/alan-mat/askdoc/internal/vector"
)

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (e *stubEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	e.calls++
	return e.vec, e.err
}

type stubStore struct {
	docs      []*api.Document
	err       error
	calls     int
	lastLimit uint
}

func (s *stubStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	return true, nil
}

func (s *stubStore) CreateCollection(ctx context.Context, c vector.Collection) error {
	return nil
}

func (s *stubStore) Upsert(ctx context.Context, name string, records []*vector.Record) error {
	return nil
}

func (s *stubStore) Query(ctx context.Context, params *vector.QueryParams) ([]*api.Document, error) {
	s.calls++
	s.lastLimit = params.Limit()
	return s.docs, s.err
}

func (s *stubStore) Close() error { return nil }

func TestSearchReturnsRankedDocuments(t *testing.T) {
	docs := []*api.Document{
		{ID: "a", Title: "first", Score: 0.1},
		{ID: "b", Title: "second", Score: 0.4},
		{ID: "c", Title: "third", Score: 0.9},
	}
	embedder := &stubEmbedder{vec: []float32{0.1, 0.2}}
	store := &stubStore{docs: docs}
	svc := retrieval.NewService(embedder, store, "documents")

	res, err := svc.Search(context.Background(), "how do returns work", 0)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if res.Degraded {
		t.Error("result unexpectedly marked degraded")
	}

	if len(res.Documents) != len(docs) {
		t.Fatalf("got %d documents, want %d", len(res.Documents), len(docs))
	}
	for i := range docs {
		if res.Documents[i].ID != docs[i].ID {
			t.Errorf("document %d = %q, want %q (order must be preserved)", i, res.Documents[i].ID, docs[i].ID)
		}
	}

	if store.lastLimit != retrieval.DefaultLimit {
		t.Errorf("store queried with limit %d, want default %d", store.lastLimit, retrieval.DefaultLimit)
	}
}

func TestSearchPassesExplicitLimit(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{0.5}}
	store := &stubStore{}
	svc := retrieval.NewService(embedder, store, "documents")

	if _, err := svc.Search(context.Background(), "query", 7); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if store.lastLimit != 7 {
		t.Errorf("store queried with limit %d, want 7", store.lastLimit)
	}
}

func TestSearchBlankQuery(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{0.5}}
	store := &stubStore{}
	svc := retrieval.NewService(embedder, store, "documents")

	res, err := svc.Search(context.Background(), "   \t ", 5)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if len(res.Documents) != 0 {
		t.Errorf("blank query returned %d documents, want 0", len(res.Documents))
	}
	if embedder.calls != 0 {
		t.Errorf("blank query reached the embedder %d times, want 0", embedder.calls)
	}
	if store.calls != 0 {
		t.Errorf("blank query reached the store %d times, want 0", store.calls)
	}
}

func TestSearchDegradesOnEmbedFailure(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("backend down")}
	store := &stubStore{docs: []*api.Document{{ID: "x"}}}
	svc := retrieval.NewService(embedder, store, "documents")

	res, err := svc.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Search returned error %v, want degraded empty result", err)
	}

	if !res.Degraded {
		t.Error("result not marked degraded after embedding failure")
	}
	if len(res.Documents) != 0 {
		t.Errorf("degraded search returned %d documents, want 0", len(res.Documents))
	}
	if store.calls != 0 {
		t.Errorf("store queried %d times after embedding failure, want 0", store.calls)
	}
}

func TestSearchPropagatesStoreFailure(t *testing.T) {
	embedder := &stubEmbedder{vec: []float32{0.5}}
	store := &stubStore{err: errors.New("connection refused")}
	svc := retrieval.NewService(embedder, store, "documents")

	if _, err := svc.Search(context.Background(), "query", 3); err == nil {
		t.Fatal("Search swallowed the store failure")
	}
}
