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

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alan-mat/askdoc/internal/transport"
)

const maxStreamReadFails = 10

// relayEventStream forwards events from ms to the response writer as
// SSE data frames until a terminal event arrives. The writer must
// support flushing, buffered proxies would otherwise defeat streaming.
func (s *Server) relayEventStream(ctx context.Context, w http.ResponseWriter, ms transport.MessageStream) error {
	f, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support flushing")
	}

	readFails := 0
	for {
		event, err := ms.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// client gone
				return nil
			}

			readFails++
			if readFails >= maxStreamReadFails {
				return fmt.Errorf("reading message stream: %w", err)
			}
			slog.Debug("failed to read message stream", "id", ms.GetID(), "err", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		readFails = 0

		payload, err := json.Marshal(event)
		if err != nil {
			slog.Warn("skipping unserializable event", "id", ms.GetID(), "err", err)
			continue
		}

		if err := writeSSEData(w, payload); err != nil {
			return fmt.Errorf("writing event: %w", err)
		}
		f.Flush()

		if event.Terminal() {
			return nil
		}
	}
}

func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

func writeSSEData(w http.ResponseWriter, payload []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
