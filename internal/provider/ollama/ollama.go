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

// Package ollama talks to a locally hosted Ollama instance for both
// text generation and embeddings.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/alan-mat/askdoc/internal/api"
	"github.com/alan-mat/askdoc/internal/http"
)

const (
	DefaultEndpoint      = "http://localhost:11434"
	DefaultGenerateModel = "gemma3:4b"
	DefaultEmbedModel    = "nomic-embed-text"

	defaultGenerateTimeout = 120 * time.Second
	defaultEmbedTimeout    = 60 * time.Second
)

// User-visible fallback strings. Generation failures never abort a
// request; they degrade to one of these.
const (
	GenerationFailedMessage         = "could not generate an answer"
	StreamInterruptedMessage        = "the connection to the generation service was interrupted"
	backendUnreachableMessageFormat = "the generation service could not be reached: %v"
	backendErrorMessageFormat       = "the generation service returned an error (status %d)"
)

type Config struct {
	Endpoint string

	GenerateModel string
	EmbedModel    string

	// Dimensions is enforced on every embedding; zero disables the check.
	Dimensions uint

	// Generation is slower than embedding and carries a longer timeout.
	GenerateTimeout time.Duration
	EmbedTimeout    time.Duration
}

type Provider struct {
	genClient   http.Client
	embedClient http.Client
	conf        Config
}

func New(conf Config) *Provider {
	if conf.Endpoint == "" {
		conf.Endpoint = DefaultEndpoint
	}
	if conf.GenerateModel == "" {
		conf.GenerateModel = DefaultGenerateModel
	}
	if conf.EmbedModel == "" {
		conf.EmbedModel = DefaultEmbedModel
	}
	if conf.GenerateTimeout == 0 {
		conf.GenerateTimeout = defaultGenerateTimeout
	}
	if conf.EmbedTimeout == 0 {
		conf.EmbedTimeout = defaultEmbedTimeout
	}

	return &Provider{
		genClient:   http.NewClient(conf.Endpoint, http.WithTimeout(conf.GenerateTimeout)),
		embedClient: http.NewClient(conf.Endpoint, http.WithTimeout(conf.EmbedTimeout)),
		conf:        conf,
	}
}

func (p *Provider) generatePayload(prompt string, stream bool) map[string]any {
	return map[string]any{
		"model":  p.conf.GenerateModel,
		"prompt": prompt,
		"stream": stream,
		"options": map[string]any{
			"temperature": 0.1,
			"top_p":       0.5,
			"num_predict": 300,
			"num_ctx":     1024,
			"stop":        []string{"\n\nQuestion:", "\n\nDocuments:"},
		},
	}
}

// Generate performs one blocking generation call. The result is always
// displayable text: a missing or empty response field degrades to a
// fixed fallback and backend failures are converted into messages.
func (p *Provider) Generate(ctx context.Context, prompt string) string {
	result, err := p.genClient.Request(ctx, http.MethodPost, "/api/generate", p.generatePayload(prompt, false))
	if err != nil {
		var be *api.BackendError
		if errors.As(err, &be) {
			slog.Error("generation request rejected", "status", be.StatusCode, "body", be.Body)
			return fmt.Sprintf(backendErrorMessageFormat, be.StatusCode)
		}
		slog.Error("generation request failed", "err", err)
		return fmt.Sprintf(backendUnreachableMessageFormat, err)
	}

	text, ok := result["response"].(string)
	if !ok || text == "" {
		return GenerationFailedMessage
	}
	return text
}

// GenerateStream opens a streaming generation call. It fails only if
// the stream cannot be opened; failures after that point surface as a
// single fixed message chunk followed by io.EOF.
func (p *Provider) GenerateStream(ctx context.Context, prompt string) (api.CompletionStream, error) {
	body, err := p.genClient.RequestStream(ctx, http.MethodPost, "/api/generate", p.generatePayload(prompt, true))
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	return NewCompletionStream(body), nil
}

// EmbedQuery converts text into a vector via the /api/embeddings
// endpoint. One attempt per call; callers own any retry policy.
func (p *Provider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	payload := map[string]any{
		"model":  p.conf.EmbedModel,
		"prompt": q,
	}

	result, err := p.embedClient.Request(ctx, http.MethodPost, "/api/embeddings", payload)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	raw, ok := result["embedding"].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing 'embedding' field", api.ErrMalformedResponse)
	}

	vec := make([]float32, 0, len(raw))
	for _, v := range raw {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: non-numeric embedding value", api.ErrMalformedResponse)
		}
		vec = append(vec, float32(f))
	}

	if p.conf.Dimensions > 0 && uint(len(vec)) != p.conf.Dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", api.ErrDimensionMismatch, p.conf.Dimensions, len(vec))
	}

	return vec, nil
}

type streamResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// CompletionStream incrementally parses the generation response body:
// a sequence of JSON objects that is usually newline-delimited, but
// some backend versions emit one complete object per network read with
// no trailing newline. Both shapes are tolerated, chunks are delivered
// in production order and never duplicated.
type CompletionStream struct {
	body    io.ReadCloser
	buf     []byte
	pending []string
	done    bool
	failed  bool
}

func NewCompletionStream(body io.ReadCloser) *CompletionStream {
	return &CompletionStream{
		body: body,
	}
}

func (s *CompletionStream) Recv() (string, error) {
	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			return chunk, nil
		}

		if s.done {
			if s.failed {
				s.failed = false
				return StreamInterruptedMessage, nil
			}
			return "", io.EOF
		}

		frag := make([]byte, 4096)
		n, err := s.body.Read(frag)
		if n > 0 {
			s.consume(frag[:n])
		}
		if err != nil {
			s.done = true
			if !errors.Is(err, io.EOF) {
				slog.Warn("generation stream interrupted", "err", err)
				s.failed = true
			}
		}
	}
}

// consume folds one network fragment into the parse state.
func (s *CompletionStream) consume(frag []byte) {
	s.buf = append(s.buf, frag...)

	// the fragment itself may be one complete object with no delimiter;
	// drop only the fragment's bytes, a retained partial line from an
	// earlier read must survive
	if t := bytes.TrimSpace(frag); len(t) > 0 && s.tryObject(t) {
		s.buf = s.buf[:len(s.buf)-len(frag)]
		return
	}

	for !s.done {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(s.buf[:i])
		s.buf = s.buf[i+1:]
		if len(line) == 0 {
			continue
		}
		if !s.tryObject(line) {
			slog.Debug("skipping unparseable stream fragment", "fragment", string(line))
		}
	}

	if s.done {
		// done terminates the stream, any further bytes are ignored
		s.buf = s.buf[:0]
		return
	}

	// the retained remainder may already be a complete object that the
	// backend will never terminate with a newline
	if t := bytes.TrimSpace(s.buf); len(t) > 0 && s.tryObject(t) {
		s.buf = s.buf[:0]
	}
}

func (s *CompletionStream) tryObject(b []byte) bool {
	var resp streamResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return false
	}

	if resp.Response != "" {
		s.pending = append(s.pending, resp.Response)
	}
	if resp.Done {
		s.done = true
	}
	return true
}

func (s *CompletionStream) Close() error {
	return s.body.Close()
}
