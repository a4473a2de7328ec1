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

// Package gemini adapts the Gemini API as an embedding or generation
// backend.
package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"google.golang.org/genai"

	"github.com/alan-mat/askdoc/internal/api"
)

const (
	DefaultModel      = "gemini-2.0-flash"
	DefaultEmbedModel = "gemini-embedding-exp-03-07"

	generationFailedMessage  = "could not generate an answer"
	streamInterruptedMessage = "the connection to the generation service was interrupted"
)

type Config struct {
	APIKey string

	Model      string
	EmbedModel string

	// Dimensions is enforced on every embedding; zero disables the check.
	Dimensions uint
}

type Provider struct {
	client *genai.Client
	conf   Config
}

func New(conf Config) (*Provider, error) {
	if conf.Model == "" {
		conf.Model = DefaultModel
	}
	if conf.EmbedModel == "" {
		conf.EmbedModel = DefaultEmbedModel
	}

	c, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  conf.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}

	return &Provider{
		client: c,
		conf:   conf,
	}, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string) string {
	temperature := float32(0.1)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.conf.Model, genai.Text(prompt), config)
	if err != nil {
		slog.Error("generation request failed", "err", err)
		return generationFailedMessage
	}

	text := resp.Text()
	if text == "" {
		return generationFailedMessage
	}
	return text
}

func (p *Provider) GenerateStream(ctx context.Context, prompt string) (api.CompletionStream, error) {
	temperature := float32(0.1)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}

	i := p.client.Models.GenerateContentStream(ctx, p.conf.Model, genai.Text(prompt), config)

	next, stop := iter.Pull2(i)
	return &completionStream{
		next: next,
		stop: stop,
	}, nil
}

func (p *Provider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	config := &genai.EmbedContentConfig{
		TaskType: "RETRIEVAL_QUERY",
	}
	if p.conf.Dimensions > 0 {
		dims := int32(p.conf.Dimensions)
		config.OutputDimensionality = &dims
	}

	res, err := p.client.Models.EmbedContent(ctx, p.conf.EmbedModel, genai.Text(q), config)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w: %v", api.ErrUnavailable, err)
	}

	if len(res.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", api.ErrMalformedResponse)
	}

	vec := res.Embeddings[0].Values
	if p.conf.Dimensions > 0 && uint(len(vec)) != p.conf.Dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", api.ErrDimensionMismatch, p.conf.Dimensions, len(vec))
	}

	return vec, nil
}

type completionStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
	done bool
}

func (s *completionStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		resp, err, ok := s.next()
		if !ok {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			// a broken stream degrades to one fixed message chunk
			slog.Warn("generation stream interrupted", "err", err)
			s.done = true
			return streamInterruptedMessage, nil
		}

		if text := resp.Text(); text != "" {
			return text, nil
		}
	}
}

func (s *completionStream) Close() error {
	s.stop()
	return nil
}
