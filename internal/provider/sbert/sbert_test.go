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

package sbert_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/provider/sbert"
)

func TestEmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["text"] != "hello world" {
			t.Errorf("request text = %q, want %q", req["text"], "hello world")
		}

		w.Write([]byte(`{"embedding":[1.5,-0.5,0.25]}`))
	}))
	defer srv.Close()

	p := sbert.New(sbert.Config{URL: srv.URL + "/embed", Dimensions: 3})

	vec, err := p.EmbedQuery(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("EmbedQuery returned error: %v", err)
	}

	want := []float32{1.5, -0.5, 0.25}
	if len(vec) != len(want) {
		t.Fatalf("got %d values, want %d", len(vec), len(want))
	}
	for i := range want {
		if vec[i] != want[i] {
			t.Errorf("vec[%d] = %f, want %f", i, vec[i], want[i])
		}
	}
}

func TestEmbedQueryDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	p := sbert.New(sbert.Config{URL: srv.URL + "/embed", Dimensions: 768})

	_, err := p.EmbedQuery(context.Background(), "hello")
	if !errors.Is(err, api.ErrDimensionMismatch) {
		t.Fatalf("EmbedQuery error = %v, want ErrDimensionMismatch", err)
	}
}

func TestEmbedQueryMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vectors":[0.1]}`))
	}))
	defer srv.Close()

	p := sbert.New(sbert.Config{URL: srv.URL + "/embed"})

	_, err := p.EmbedQuery(context.Background(), "hello")
	if !errors.Is(err, api.ErrMalformedResponse) {
		t.Fatalf("EmbedQuery error = %v, want ErrMalformedResponse", err)
	}
}

func TestEmbedQueryBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := sbert.New(sbert.Config{URL: srv.URL + "/embed"})

	_, err := p.EmbedQuery(context.Background(), "hello")
	var be *api.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("EmbedQuery error = %v, want *api.BackendError", err)
	}
}
