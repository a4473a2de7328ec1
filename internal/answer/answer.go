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

// Package answer orchestrates the question answering pipeline:
// similarity search, prompt assembly and answer generation, emitted as
// an ordered event stream or returned as one blocking response.
package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/prompt"
	"github.com/alan-mat/askdoc/internal/provider"
	"github.com/alan-mat/askdoc/internal/retrieval"
	"github.com/alan-mat/askdoc/internal/transport"
)

const (
	// DefaultDocumentLimit is how many documents ground an answer.
	DefaultDocumentLimit = 5

	previewLength = 200
)

const (
	NoDocumentsMessage = "no documents related to the question were found"

	blankQuestionMessage = "a question is required"
	searchFailedMessage  = "searching for documents failed"
	answerFailedMessage  = "the answer could not be generated"
)

// EventSink receives the ordered stream events of one answer request.
// transport.MessageStream satisfies it.
type EventSink interface {
	Send(ctx context.Context, event transport.StreamEvent) error
}

type Streamer struct {
	retrieval *retrieval.Service
	generator provider.Generator
	prompts   *prompt.Builder
}

func NewStreamer(retrieval *retrieval.Service, generator provider.Generator) *Streamer {
	return &Streamer{
		retrieval: retrieval,
		generator: generator,
		prompts:   prompt.NewBuilder(),
	}
}

// Stream runs the pipeline and emits events to sink in strict order:
// one documents event, one answer_start, zero or more data events in
// generation order, then exactly one terminal answer_complete or error
// event. A blank question short-circuits to an error event before any
// network call. A zero limit falls back to DefaultDocumentLimit.
func (s *Streamer) Stream(ctx context.Context, question string, limit uint, sink EventSink) error {
	em := &emitter{sink: sink}

	if strings.TrimSpace(question) == "" {
		em.fail(ctx, blankQuestionMessage)
		return api.ErrBlankQuery
	}

	if limit == 0 {
		limit = DefaultDocumentLimit
	}

	res, err := s.retrieval.Search(ctx, question, limit)
	if err != nil {
		slog.Error("document search failed", "err", err)
		em.fail(ctx, searchFailedMessage)
		return err
	}
	if res.Degraded {
		slog.Warn("answering with degraded search results", "question", question)
	}

	em.send(ctx, transport.StreamEvent{
		Type:      transport.EventTypeDocuments,
		Documents: previews(res.Documents),
	})
	em.send(ctx, transport.StreamEvent{Type: transport.EventTypeAnswerStart})

	if len(res.Documents) == 0 {
		em.send(ctx, transport.StreamEvent{
			Type:    transport.EventTypeData,
			Content: NoDocumentsMessage,
		})
		em.complete(ctx)
		return nil
	}

	p := s.prompts.Build(question, res.Documents)

	cs, err := s.generator.GenerateStream(ctx, p)
	if err != nil {
		slog.Error("failed to open generation stream", "err", err)
		em.fail(ctx, answerFailedMessage)
		return err
	}
	defer cs.Close()

	for {
		chunk, err := cs.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Error("generation stream failed", "err", err)
			em.fail(ctx, answerFailedMessage)
			return err
		}

		em.send(ctx, transport.StreamEvent{
			Type:    transport.EventTypeData,
			Content: chunk,
		})
	}

	em.complete(ctx)
	return nil
}

// Response is the blocking counterpart of a streamed answer.
type Response struct {
	Answer    string                `json:"answer"`
	Documents []api.DocumentPreview `json:"documents"`
	Degraded  bool                  `json:"degraded,omitempty"`
}

// Answer runs the pipeline with the blocking generation call. A zero
// limit falls back to DefaultDocumentLimit.
func (s *Streamer) Answer(ctx context.Context, question string, limit uint) (*Response, error) {
	if strings.TrimSpace(question) == "" {
		return nil, api.ErrBlankQuery
	}

	if limit == 0 {
		limit = DefaultDocumentLimit
	}

	res, err := s.retrieval.Search(ctx, question, limit)
	if err != nil {
		return nil, fmt.Errorf("document search failed: %w", err)
	}

	if len(res.Documents) == 0 {
		return &Response{
			Answer:    NoDocumentsMessage,
			Documents: []api.DocumentPreview{},
			Degraded:  res.Degraded,
		}, nil
	}

	p := s.prompts.Build(question, res.Documents)

	return &Response{
		Answer:    s.generator.Generate(ctx, p),
		Documents: previews(res.Documents),
		Degraded:  res.Degraded,
	}, nil
}

func previews(docs []*api.Document) []api.DocumentPreview {
	out := make([]api.DocumentPreview, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Preview(previewLength))
	}
	return out
}

// emitter numbers events and guards the terminal: exactly one final
// event per stream, no events after it.
type emitter struct {
	sink     EventSink
	nextID   int
	terminal bool
}

func (e *emitter) send(ctx context.Context, event transport.StreamEvent) {
	if e.terminal {
		return
	}
	if event.Terminal() {
		e.terminal = true
		event.Final = true
	}

	event.ID = e.nextID
	e.nextID++

	if err := e.sink.Send(ctx, event); err != nil {
		slog.Debug("failed sending event to stream", "type", event.Type, "err", err)
	}
}

func (e *emitter) complete(ctx context.Context) {
	e.send(ctx, transport.StreamEvent{Type: transport.EventTypeAnswerComplete})
}

func (e *emitter) fail(ctx context.Context, msg string) {
	e.send(ctx, transport.StreamEvent{
		Type:    transport.EventTypeError,
		Content: msg,
	})
}
