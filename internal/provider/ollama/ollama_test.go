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

package ollama_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/provider/ollama"
)

// scriptedBody replays a fixed sequence of reads, then reports err
// (io.EOF when unset).
type scriptedBody struct {
	reads [][]byte
	err   error
	pos   int
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if b.pos >= len(b.reads) {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.reads[b.pos])
	b.pos++
	return n, nil
}

func (b *scriptedBody) Close() error { return nil }

func drain(t *testing.T, cs api.CompletionStream) []string {
	t.Helper()
	var chunks []string
	for {
		chunk, err := cs.Recv()
		if errors.Is(err, io.EOF) {
			return chunks
		}
		if err != nil {
			t.Fatalf("Recv returned unexpected error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
}

func TestCompletionStreamOrdering(t *testing.T) {
	body := &scriptedBody{reads: [][]byte{
		[]byte(`{"response":"The ","done":false}` + "\n"),
		[]byte(`{"response":"answer ","done":false}` + "\n" + `{"response":"is 42.","done":false}` + "\n"),
		[]byte(`{"response":"","done":true}` + "\n"),
	}}

	got := drain(t, ollama.NewCompletionStream(body))
	want := []string{"The ", "answer ", "is 42."}
	if !slices.Equal(got, want) {
		t.Errorf("got chunks %q, want %q", got, want)
	}
}

func TestCompletionStreamSplitInvariance(t *testing.T) {
	payload := `{"response":"alpha","done":false}` + "\n" +
		`{"response":"beta","done":false}` + "\n" +
		`{"response":"gamma","done":true}` + "\n"

	whole := drain(t, ollama.NewCompletionStream(&scriptedBody{
		reads: [][]byte{[]byte(payload)},
	}))

	var bytewise [][]byte
	for i := range len(payload) {
		bytewise = append(bytewise, []byte{payload[i]})
	}
	split := drain(t, ollama.NewCompletionStream(&scriptedBody{reads: bytewise}))

	if !slices.Equal(whole, split) {
		t.Errorf("single read produced %q, byte-by-byte produced %q", whole, split)
	}
	want := []string{"alpha", "beta", "gamma"}
	if !slices.Equal(whole, want) {
		t.Errorf("got chunks %q, want %q", whole, want)
	}
}

func TestCompletionStreamUndelimitedObjects(t *testing.T) {
	// some backend versions send one whole object per read, no newline
	body := &scriptedBody{reads: [][]byte{
		[]byte(`{"response":"first","done":false}`),
		[]byte(`{"response":"second","done":true}`),
	}}

	got := drain(t, ollama.NewCompletionStream(body))
	want := []string{"first", "second"}
	if !slices.Equal(got, want) {
		t.Errorf("got chunks %q, want %q", got, want)
	}
}

func TestCompletionStreamRetainsPartialAcrossWholeFragment(t *testing.T) {
	// a whole-object read arriving while a partial line is buffered must
	// not discard the partial; it completes on a later read
	body := &scriptedBody{reads: [][]byte{
		[]byte(`{"response":"inter`),
		[]byte(`{"response":"leaved","done":false}`),
		[]byte(`rupted","done":true}`),
	}}

	got := drain(t, ollama.NewCompletionStream(body))
	want := []string{"leaved", "interrupted"}
	if !slices.Equal(got, want) {
		t.Errorf("got chunks %q, want %q", got, want)
	}
}

func TestCompletionStreamSkipsMalformedLines(t *testing.T) {
	body := &scriptedBody{reads: [][]byte{
		[]byte(`{"response":"a","done":false}` + "\n" +
			"NOT-JSON\n" +
			`{"response":"b","done":true}` + "\n"),
	}}

	got := drain(t, ollama.NewCompletionStream(body))
	want := []string{"a", "b"}
	if !slices.Equal(got, want) {
		t.Errorf("got chunks %q, want %q", got, want)
	}
}

func TestCompletionStreamDoneTerminates(t *testing.T) {
	body := &scriptedBody{reads: [][]byte{
		[]byte(`{"response":"only","done":true}` + "\n" +
			`{"response":"ignored","done":false}` + "\n"),
	}}

	got := drain(t, ollama.NewCompletionStream(body))
	want := []string{"only"}
	if !slices.Equal(got, want) {
		t.Errorf("got chunks %q, want %q", got, want)
	}
}

func TestCompletionStreamEmpty(t *testing.T) {
	cs := ollama.NewCompletionStream(&scriptedBody{})

	if _, err := cs.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("Recv on empty stream = %v, want io.EOF", err)
	}
}

func TestCompletionStreamTransportFailure(t *testing.T) {
	body := &scriptedBody{
		reads: [][]byte{
			[]byte(`{"response":"partial ","done":false}` + "\n"),
		},
		err: errors.New("connection reset"),
	}

	cs := ollama.NewCompletionStream(body)

	chunk, err := cs.Recv()
	if err != nil || chunk != "partial " {
		t.Fatalf("first Recv = (%q, %v), want (%q, nil)", chunk, err, "partial ")
	}

	chunk, err = cs.Recv()
	if err != nil {
		t.Fatalf("second Recv returned error %v, want interruption message", err)
	}
	if chunk != ollama.StreamInterruptedMessage {
		t.Errorf("second Recv = %q, want %q", chunk, ollama.StreamInterruptedMessage)
	}

	if _, err := cs.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("third Recv = %v, want io.EOF", err)
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"model":"gemma3:4b","response":"Paris.","done":true}`))
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL})

	got := p.Generate(context.Background(), "What is the capital of France?")
	if got != "Paris." {
		t.Errorf("Generate = %q, want %q", got, "Paris.")
	}
}

func TestGenerateMissingResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"gemma3:4b","done":true}`))
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL})

	got := p.Generate(context.Background(), "anything")
	if got != ollama.GenerationFailedMessage {
		t.Errorf("Generate = %q, want %q", got, ollama.GenerationFailedMessage)
	}
}

func TestGenerateBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL})

	got := p.Generate(context.Background(), "anything")
	if !strings.Contains(got, "404") {
		t.Errorf("Generate = %q, want message naming status 404", got)
	}
}

func TestGenerateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL})

	got := p.Generate(context.Background(), "anything")
	prefix := "the generation service could not be reached: "
	if !strings.HasPrefix(got, prefix) {
		t.Fatalf("Generate = %q, want unreachable message", got)
	}
	if len(got) == len(prefix) {
		t.Errorf("Generate = %q, want the underlying error appended", got)
	}
}

func TestEmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL, Dimensions: 3})

	vec, err := p.EmbedQuery(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedQuery returned error: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("got %d dimensions, want 3", len(vec))
	}
}

func TestEmbedQueryDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"embedding":[0.1,0.2]}`))
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL, Dimensions: 768})

	_, err := p.EmbedQuery(context.Background(), "hello")
	if !errors.Is(err, api.ErrDimensionMismatch) {
		t.Fatalf("EmbedQuery error = %v, want ErrDimensionMismatch", err)
	}
}

func TestEmbedQueryMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":true}`))
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL})

	_, err := p.EmbedQuery(context.Background(), "hello")
	if !errors.Is(err, api.ErrMalformedResponse) {
		t.Fatalf("EmbedQuery error = %v, want ErrMalformedResponse", err)
	}
}

func TestEmbedQueryBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusConflict)
	}))
	defer srv.Close()

	p := ollama.New(ollama.Config{Endpoint: srv.URL})

	_, err := p.EmbedQuery(context.Background(), "hello")
	var be *api.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("EmbedQuery error = %v, want *api.BackendError", err)
	}
	if be.StatusCode != http.StatusConflict {
		t.Errorf("StatusCode = %d, want %d", be.StatusCode, http.StatusConflict)
	}
}
