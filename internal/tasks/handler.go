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

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/alan-mat/askdoc/internal/answer"
	"github.com/alan-mat/askdoc/internal/transport"
)

type AnswerTaskHandler struct {
	transport transport.Transport
	streamer  *answer.Streamer
}

func NewAnswerTaskHandler(t transport.Transport, streamer *answer.Streamer) *AnswerTaskHandler {
	return &AnswerTaskHandler{
		transport: t,
		streamer:  streamer,
	}
}

// ProcessTask runs one answer pipeline into the task's message stream.
// Failures are never retried: the terminal error event has already
// been delivered to the client, re-running would replay the stream.
func (h *AnswerTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p answerTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("invalid answer task payload: %v (%w)", err, asynq.SkipRetry)
	}

	id := t.ResultWriter().TaskID()
	slog.Info("received answer task", "id", id, "question", p.Question)

	ms, err := h.transport.GetMessageStream(id)
	if err != nil {
		slog.Error("failed to initialize message stream", "id", id, "err", err)
		return fmt.Errorf("failed to initialize message stream: %v (%w)", err, asynq.SkipRetry)
	}

	trace := &transport.RequestTrace{
		ID:        id,
		Status:    transport.TraceStatusRunning,
		StartedAt: time.Now().UnixNano(),
		Query:     p.Question,
	}
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", id, "err", err)
	}

	streamErr := h.streamer.Stream(ctx, p.Question, p.Limit, ms)

	trace.CompletedAt = time.Now().UnixNano()
	if streamErr != nil {
		trace.Status = transport.TraceStatusFailed
	} else {
		trace.Status = transport.TraceStatusCompleted
	}
	if err := h.transport.SetTrace(ctx, trace); err != nil {
		slog.Error("failed to set trace", "id", id, "err", err)
	}

	if streamErr != nil {
		return fmt.Errorf("answer pipeline failed: %v (%w)", streamErr, asynq.SkipRetry)
	}
	return nil
}
