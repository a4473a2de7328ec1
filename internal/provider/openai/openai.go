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

// Package openai adapts any OpenAI-compatible API as an embedding or
// generation backend.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"github.com/alan-mat/askdoc/internal/api"
)

const (
	DefaultModel      = "gpt-4.1-nano"
	DefaultEmbedModel = "text-embedding-3-small"

	generationFailedMessage  = "could not generate an answer"
	streamInterruptedMessage = "the connection to the generation service was interrupted"
)

type Config struct {
	APIKey string

	// BaseURL overrides the API host, for self-hosted compatible servers.
	BaseURL string

	Model      string
	EmbedModel string

	// Dimensions is enforced on every embedding; zero disables the check.
	Dimensions uint
}

type Provider struct {
	client *openai.Client
	conf   Config
}

func New(conf Config) *Provider {
	if conf.Model == "" {
		conf.Model = DefaultModel
	}
	if conf.EmbedModel == "" {
		conf.EmbedModel = DefaultEmbedModel
	}

	clientConf := openai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		clientConf.BaseURL = conf.BaseURL
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientConf),
		conf:   conf,
	}
}

func (p *Provider) Generate(ctx context.Context, prompt string) string {
	resp, err := p.client.CreateChatCompletion(ctx, p.completionRequest(prompt, false))
	if err != nil {
		slog.Error("generation request failed", "err", err)
		return generationFailedMessage
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return generationFailedMessage
	}
	return resp.Choices[0].Message.Content
}

func (p *Provider) GenerateStream(ctx context.Context, prompt string) (api.CompletionStream, error) {
	s, err := p.client.CreateChatCompletionStream(ctx, p.completionRequest(prompt, true))
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}

	return &chatStream{stream: s}, nil
}

func (p *Provider) completionRequest(prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: p.conf.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Stream: stream,
	}
}

func (p *Provider) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	req := &openai.EmbeddingRequestStrings{
		Input:          []string{q},
		Model:          openai.EmbeddingModel(p.conf.EmbedModel),
		EncodingFormat: "float",
		Dimensions:     int(p.conf.Dimensions),
	}

	res, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w: %v", api.ErrUnavailable, err)
	}

	if len(res.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", api.ErrMalformedResponse)
	}

	vec := res.Data[0].Embedding
	if p.conf.Dimensions > 0 && uint(len(vec)) != p.conf.Dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", api.ErrDimensionMismatch, p.conf.Dimensions, len(vec))
	}

	return vec, nil
}

type chatStream struct {
	stream *openai.ChatCompletionStream
	done   bool
}

func (s *chatStream) Recv() (string, error) {
	for {
		if s.done {
			return "", io.EOF
		}

		res, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			// a broken stream degrades to one fixed message chunk
			slog.Warn("generation stream interrupted", "err", err)
			s.done = true
			return streamInterruptedMessage, nil
		}

		if len(res.Choices) == 0 || res.Choices[0].Delta.Content == "" {
			continue
		}
		return res.Choices[0].Delta.Content, nil
	}
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}
