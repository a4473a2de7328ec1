package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/tasks"
	"github.com/alan-mat/askdoc/internal/transport"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	var limit uint
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.ParseUint(l, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "query parameter 'limit' must be a positive integer")
			return
		}
		limit = uint(parsed)
	}

	res, err := s.retrieval.Search(r.Context(), query, limit)
	if err != nil {
		slog.Error("search request failed", "query", query, "err", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	docs := res.Documents
	if docs == nil {
		docs = []*api.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"degraded":  res.Degraded,
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Limit    uint   `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.streamer.Answer(r.Context(), req.Question, req.Limit)
	if err != nil {
		if errors.Is(err, api.ErrBlankQuery) {
			writeError(w, http.StatusBadRequest, "a question is required")
			return
		}
		slog.Error("answer request failed", "question", req.Question, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to generate an answer")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleAnswerStream enqueues the answer task and relays its event
// stream to the client as server-sent events. A blank question is
// answered in-band with a single terminal error event, the connection
// still speaks SSE.
func (s *Server) handleAnswerStream(w http.ResponseWriter, r *http.Request) {
	question := r.URL.Query().Get("q")

	var limit uint
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.ParseUint(l, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "query parameter 'limit' must be a positive integer")
			return
		}
		limit = uint(parsed)
	}

	if strings.TrimSpace(question) == "" {
		writeSSEHeaders(w)
		event := transport.StreamEvent{
			Type:    transport.EventTypeError,
			Content: "a question is required",
			Final:   true,
		}
		payload, _ := json.Marshal(event)
		writeSSEData(w, payload)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		return
	}

	task, err := tasks.NewAnswerTask(question, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create answer task")
		return
	}

	info, err := s.asynqClient.EnqueueContext(r.Context(), task)
	if err != nil {
		slog.Error("failed to enqueue answer task", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to schedule answer task")
		return
	}
	slog.Info("enqueued answer task", "id", info.ID, "queue", info.Queue)

	ms, err := s.transport.GetMessageStream(info.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open message stream")
		return
	}

	writeSSEHeaders(w)
	if err := s.relayEventStream(r.Context(), w, ms); err != nil {
		slog.Error("event stream relay failed", "id", info.ID, "err", err)
	}
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	trace, err := s.transport.GetTrace(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}

	writeJSON(w, http.StatusOK, trace)
}

// handleTraceAnswer reassembles the full answer text of a past request
// from its recorded event stream.
func (s *Server) handleTraceAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	trace, err := s.transport.GetTrace(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}

	ms, err := s.transport.GetMessageStream(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open message stream")
		return
	}

	text, err := ms.Text(r.Context())
	if err != nil {
		slog.Error("failed to read stream text", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to read answer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     trace.ID,
		"status": trace.Status,
		"answer": text,
	})
}
