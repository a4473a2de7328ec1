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

// Package transport moves answer progress events between the worker
// that produces them and the serving process that relays them to a
// client connection.
package transport

import (
	"context"
	"time"

	"github.com/alan-mat/askdoc/internal/api"
)

var (
	TraceExpiry = time.Hour * 24
)

type Transport interface {
	GetMessageStream(id string) (MessageStream, error)
	SetTrace(ctx context.Context, trace *RequestTrace) error
	GetTrace(ctx context.Context, traceId string) (*RequestTrace, error)
}

// MessageStream is an ordered stream of answer events for a single
// request. Events are consumed in the exact order they were sent.
type MessageStream interface {
	Send(ctx context.Context, event StreamEvent) error

	Recv(ctx context.Context) (*StreamEvent, error)

	// Text reads the entire stream written so far and returns the
	// accumulated answer content.
	Text(ctx context.Context) (string, error)

	GetID() string
}

type EventType string

const (
	EventTypeDocuments      EventType = "documents"
	EventTypeAnswerStart    EventType = "answer_start"
	EventTypeData           EventType = "data"
	EventTypeAnswerComplete EventType = "answer_complete"
	EventTypeError          EventType = "error"
)

// StreamEvent is the JSON envelope pushed to the client. Every stream
// ends with exactly one event whose Final flag is set.
type StreamEvent struct {
	ID   int       `json:"id"`
	Type EventType `json:"type"`

	Content   string                `json:"content,omitempty"`
	Documents []api.DocumentPreview `json:"documents,omitempty"`

	Final bool `json:"final,omitempty"`
}

// Terminal reports whether the event ends its stream.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventTypeAnswerComplete || e.Type == EventTypeError
}

type RequestTrace struct {
	ID          string `redis:"id"`
	Status      int    `redis:"status"`
	StartedAt   int64  `redis:"started_at"`
	CompletedAt int64  `redis:"completed_at"`
	Query       string `redis:"query"`
}

type TraceStatus int

const (
	TraceStatusUnspecified = iota
	TraceStatusRunning
	TraceStatusCompleted
	TraceStatusFailed
)
